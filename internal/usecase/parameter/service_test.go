package parameter

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"troubledesk/internal/domain/incident"
	"troubledesk/internal/domain/sysparam"
	"troubledesk/internal/errs"
	"troubledesk/internal/infrastructure/persistence/sqlite/model"
	sqliterepo "troubledesk/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "troubledesk/internal/infrastructure/persistence/sqlite/uow"
	"troubledesk/internal/ports"
)

type testCache struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newTestCache() *testCache {
	return &testCache{
		data: make(map[string]string),
		ttls: make(map[string]time.Duration),
	}
}

func (c *testCache) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *testCache) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	c.data[key] = value
	c.ttls[key] = ttl
	return nil
}

func (c *testCache) Delete(_ context.Context, key string) error {
	delete(c.data, key)
	return nil
}

type failingRepo struct {
	ports.ParameterRepository
	calls int
}

func (r *failingRepo) GetParameter(context.Context, string) (ports.SystemParameter, error) {
	r.calls++
	return ports.SystemParameter{}, errors.New("database is locked")
}

var admin = incident.Actor{UserID: 1, Role: incident.RoleSystemAdmin}

func setupService(t *testing.T) (*Service, *testCache, *sqliterepo.ParameterRepository) {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open(filepath.Join(t.TempDir(), "params.sqlite")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(&model.SystemParameter{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	cache := newTestCache()
	repo := sqliterepo.NewParameterRepository(db)
	return NewService(repo, sqliteuow.NewUnitOfWork(db), cache, 0), cache, repo
}

func TestDeadlineDaysDefaultsWhenMissing(t *testing.T) {
	svc, cache, _ := setupService(t)
	ctx := context.Background()

	if got := svc.DeadlineDays(ctx); got != incident.DefaultDeadlines() {
		t.Fatalf("DeadlineDays() = %+v", got)
	}
	if _, ok := cache.data["sysparam:secondInfoDeadlineDays"]; !ok {
		t.Fatalf("missing parameter was not cached")
	}
	if cache.ttls["sysparam:secondInfoDeadlineDays"] != 30*time.Minute {
		t.Fatalf("ttl = %s, want 30m", cache.ttls["sysparam:secondInfoDeadlineDays"])
	}
}

func TestSetInvalidatesCache(t *testing.T) {
	svc, cache, _ := setupService(t)
	ctx := context.Background()

	if _, err := svc.Set(ctx, admin, SetInput{Key: incident.ParamSecondInfoDeadlineDays, Value: "10", Type: "int"}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got := svc.GetInt(ctx, incident.ParamSecondInfoDeadlineDays, 7); got != 10 {
		t.Fatalf("GetInt() = %d, want 10", got)
	}

	if _, err := svc.Set(ctx, admin, SetInput{Key: incident.ParamSecondInfoDeadlineDays, Value: "3"}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, ok := cache.data["sysparam:secondInfoDeadlineDays"]; ok {
		t.Fatalf("Set() left a stale cache entry")
	}
	if got := svc.DeadlineDays(ctx); got.SecondInfoDays != 3 || got.ThirdInfoDays != 7 {
		t.Fatalf("DeadlineDays() = %+v", got)
	}
}

func TestDeadlineDaysNonPositiveFallsBack(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	if _, err := svc.Set(ctx, admin, SetInput{Key: incident.ParamThirdInfoDeadlineDays, Value: "0", Type: "int"}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got := svc.DeadlineDays(ctx).ThirdInfoDays; got != 7 {
		t.Fatalf("ThirdInfoDays = %d, want 7", got)
	}
}

func TestTypedGettersUseDefaults(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()
	inactive := false

	mustSet := func(input SetInput) {
		t.Helper()
		if _, err := svc.Set(ctx, admin, input); err != nil {
			t.Fatalf("Set(%s) error = %v", input.Key, err)
		}
	}
	mustSet(SetInput{Key: "exportMaxRows", Value: "5000", Type: "int", IsActive: &inactive})
	mustSet(SetInput{Key: "notifyDelayed", Value: "true", Type: "bool"})
	mustSet(SetInput{Key: "claimRate", Value: "0.15", Type: "decimal"})
	mustSet(SetInput{Key: "greeting", Value: "hello"})

	if got := svc.GetInt(ctx, "exportMaxRows", 100); got != 100 {
		t.Fatalf("GetInt(inactive) = %d", got)
	}
	if !svc.GetBool(ctx, "notifyDelayed", false) {
		t.Fatalf("GetBool() = false")
	}
	if got := svc.GetInt(ctx, "notifyDelayed", 4); got != 4 {
		t.Fatalf("GetInt(bool param) = %d, want default", got)
	}
	if got := svc.GetDecimal(ctx, "claimRate", decimal.Zero); !got.Equal(decimal.RequireFromString("0.15")) {
		t.Fatalf("GetDecimal() = %s", got)
	}
	if got := svc.GetString(ctx, "greeting", ""); got != "hello" {
		t.Fatalf("GetString() = %q", got)
	}
}

func TestSetRejectsInvalidValueAndNonAdmin(t *testing.T) {
	svc, _, repo := setupService(t)
	ctx := context.Background()

	_, err := svc.Set(ctx, admin, SetInput{Key: "secondInfoDeadlineDays", Value: "seven", Type: "int"})
	if !errors.Is(err, ErrInvalidParameterValue) || errs.CodeOf(err) != errs.CodeInvalidInput {
		t.Fatalf("Set(invalid) error = %v", err)
	}
	if _, err := repo.GetParameter(ctx, "secondInfoDeadlineDays"); !errors.Is(err, ports.ErrParameterNotFound) {
		t.Fatalf("invalid value was stored: %v", err)
	}

	_, err = svc.Set(ctx, incident.Actor{UserID: 9, Role: incident.RoleThreePL}, SetInput{Key: "k", Value: "v"})
	if !errors.Is(err, incident.ErrForbidden) || errs.CodeOf(err) != errs.CodeForbidden {
		t.Fatalf("Set(3pl) error = %v", err)
	}
}

func TestLookupErrorFallsBackWithoutCaching(t *testing.T) {
	repo := &failingRepo{}
	cache := newTestCache()
	svc := NewService(repo, nil, cache, time.Minute)

	if got := svc.DeadlineDays(context.Background()); got != incident.DefaultDeadlines() {
		t.Fatalf("DeadlineDays() = %+v", got)
	}
	if len(cache.data) != 0 {
		t.Fatalf("lookup errors must not be cached: %v", cache.data)
	}
	if repo.calls != 2 {
		t.Fatalf("repository calls = %d, want 2", repo.calls)
	}

	var nilService *Service
	if got := nilService.DeadlineDays(context.Background()); got != incident.DefaultDeadlines() {
		t.Fatalf("nil DeadlineDays() = %+v", got)
	}
}

func TestImportAndExport(t *testing.T) {
	svc, cache, _ := setupService(t)
	ctx := context.Background()

	cache.data["sysparam:secondInfoDeadlineDays"] = `{"value":"7","type":"int","active":true}`

	seed := `
[[parameter]]
key = "secondInfoDeadlineDays"
value = "5"
type = "int"
description = "days until 2nd info is delayed"

[[parameter]]
key = "thirdInfoDeadlineDays"
value = "12"
type = "int"
`
	result, err := svc.Import(ctx, admin, strings.NewReader(seed))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if len(result.Keys) != 2 {
		t.Fatalf("Import() keys = %v", result.Keys)
	}
	if got := svc.DeadlineDays(ctx); got.SecondInfoDays != 5 || got.ThirdInfoDays != 12 {
		t.Fatalf("DeadlineDays() after import = %+v", got)
	}

	var buf bytes.Buffer
	if err := svc.Export(ctx, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !strings.Contains(buf.String(), "thirdInfoDeadlineDays") || !strings.Contains(buf.String(), "[[parameter]]") {
		t.Fatalf("Export() = %s", buf.String())
	}
}

func TestImportIsAllOrNothing(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	seed := `
[[parameter]]
key = "thirdInfoDeadlineDays"
value = "12"
type = "int"

[[parameter]]
key = "broken"
value = "maybe"
type = "bool"
`
	if _, err := svc.Import(ctx, admin, strings.NewReader(seed)); !errors.Is(err, sysparam.ErrInvalidValue) {
		t.Fatalf("Import() error = %v", err)
	}
	if got := svc.GetInt(ctx, "thirdInfoDeadlineDays", 7); got != 7 {
		t.Fatalf("partial import stored thirdInfoDeadlineDays = %d", got)
	}
}

func TestEnsureDefaults(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	created, err := svc.EnsureDefaults(ctx)
	if err != nil || len(created) != 2 {
		t.Fatalf("EnsureDefaults() = %v, %v", created, err)
	}
	created, err = svc.EnsureDefaults(ctx)
	if err != nil || len(created) != 0 {
		t.Fatalf("EnsureDefaults(again) = %v, %v", created, err)
	}
}
