package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"troubledesk/internal/domain/incident"
	"troubledesk/internal/infrastructure/persistence/sqlite/model"
	"troubledesk/internal/ports"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "troubledesk.sqlite")
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
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
	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func newIncident(created time.Time, warehouse int64, category int64, details string) incident.Incident {
	return incident.Incident{
		CreationDate:            created,
		OrganizationID:          1,
		CreatorID:               100,
		OccurrenceAt:            created.Add(-2 * time.Hour),
		OccurrenceLocation:      "Osaka DC",
		ShippingWarehouseID:     warehouse,
		ShippingCompanyID:       3,
		TroubleCategoryID:       category,
		TroubleDetailCategoryID: category*10 + 1,
		Details:                 details,
		CreatedAt:               created,
		UpdatedAt:               created,
		CreatedBy:               100,
		UpdatedBy:               100,
	}
}

func TestIncidentCreateGetUpdate(t *testing.T) {
	repo := NewIncidentRepository(setupDB(t))
	ctx := context.Background()

	created, err := repo.CreateIncident(ctx, newIncident(day(2025, 6, 1), 5, 2, "wet cartons"))
	if err != nil {
		t.Fatalf("CreateIncident() error = %v", err)
	}
	if created.ID == 0 {
		t.Fatalf("CreateIncident() id = 0")
	}

	got, err := repo.GetIncident(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetIncident() error = %v", err)
	}
	if got.Details != "wet cartons" || !got.CreationDate.Equal(day(2025, 6, 1)) {
		t.Fatalf("GetIncident() = %+v", got)
	}
	if got.SecondInputDate != nil || got.Quantity != nil {
		t.Fatalf("GetIncident() optional fields should be nil: %+v", got)
	}

	input := day(2025, 6, 3)
	got.SecondInputDate = &input
	got.ProcessDescription = "re-packed"
	got.Cause = "roof leak"
	got.UpdatedBy = 200
	if err := repo.UpdateIncident(ctx, got); err != nil {
		t.Fatalf("UpdateIncident() error = %v", err)
	}

	reloaded, err := repo.GetIncident(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetIncident() error = %v", err)
	}
	if reloaded.SecondInputDate == nil || !reloaded.SecondInputDate.Equal(input) {
		t.Fatalf("SecondInputDate = %v", reloaded.SecondInputDate)
	}
	if reloaded.Cause != "roof leak" || reloaded.UpdatedBy != 200 || reloaded.CreatedBy != 100 {
		t.Fatalf("reloaded = %+v", reloaded)
	}

	got.ID = 9999
	if err := repo.UpdateIncident(ctx, got); !errors.Is(err, ports.ErrIncidentNotFound) {
		t.Fatalf("UpdateIncident(missing) error = %v", err)
	}
	if _, err := repo.GetIncident(ctx, 9999); !errors.Is(err, ports.ErrIncidentNotFound) {
		t.Fatalf("GetIncident(missing) error = %v", err)
	}
}

func TestListIncidentsFilters(t *testing.T) {
	repo := NewIncidentRepository(setupDB(t))
	ctx := context.Background()

	older, _ := repo.CreateIncident(ctx, newIncident(day(2025, 1, 10), 5, 2, "Crushed pallet"))
	newer, _ := repo.CreateIncident(ctx, newIncident(day(2025, 2, 10), 5, 3, "missing box"))
	other, _ := repo.CreateIncident(ctx, newIncident(day(2025, 3, 10), 6, 2, "label swapped"))

	items, err := repo.ListIncidents(ctx, ports.IncidentFilter{})
	if err != nil {
		t.Fatalf("ListIncidents() error = %v", err)
	}
	if len(items) != 3 || items[0].ID != other.ID || items[2].ID != older.ID {
		t.Fatalf("ListIncidents() order = %v", ids(items))
	}

	items, _ = repo.ListIncidents(ctx, ports.IncidentFilter{ShippingWarehouseID: 5})
	if len(items) != 2 || items[0].ID != newer.ID {
		t.Fatalf("ListIncidents(warehouse) = %v", ids(items))
	}

	from := day(2025, 2, 1)
	before := day(2025, 3, 10)
	items, _ = repo.ListIncidents(ctx, ports.IncidentFilter{CreatedFrom: &from, CreatedBefore: &before})
	if len(items) != 1 || items[0].ID != newer.ID {
		t.Fatalf("ListIncidents(range) = %v", ids(items))
	}

	items, _ = repo.ListIncidents(ctx, ports.IncidentFilter{Keyword: "crushed"})
	if len(items) != 1 || items[0].ID != older.ID {
		t.Fatalf("ListIncidents(keyword) = %v", ids(items))
	}
}

func TestListIncidentsOnlyIncomplete(t *testing.T) {
	repo := NewIncidentRepository(setupDB(t))
	ctx := context.Background()

	open, _ := repo.CreateIncident(ctx, newIncident(day(2025, 1, 1), 5, 2, "open"))

	done := newIncident(day(2025, 1, 2), 5, 2, "done")
	second := day(2025, 1, 3)
	third := day(2025, 1, 4)
	done.SecondInputDate = &second
	done.ProcessDescription = "swap"
	done.Cause = "driver"
	done.ThirdInputDate = &third
	done.RecurrencePreventionMeasures = "briefing"
	if _, err := repo.CreateIncident(ctx, done); err != nil {
		t.Fatalf("CreateIncident() error = %v", err)
	}

	blank := done
	blank.RecurrencePreventionMeasures = "   "
	blankRow, _ := repo.CreateIncident(ctx, blank)

	items, err := repo.ListIncidents(ctx, ports.IncidentFilter{OnlyIncomplete: true})
	if err != nil {
		t.Fatalf("ListIncidents() error = %v", err)
	}
	if len(items) != 2 || items[0].ID != blankRow.ID || items[1].ID != open.ID {
		t.Fatalf("ListIncidents(incomplete) = %v", ids(items))
	}
}

func TestCountIncidentsBy(t *testing.T) {
	repo := NewIncidentRepository(setupDB(t))
	ctx := context.Background()

	for _, category := range []int64{2, 2, 3, 2, 4} {
		if _, err := repo.CreateIncident(ctx, newIncident(day(2025, 1, 1), 5, category, "x")); err != nil {
			t.Fatalf("CreateIncident() error = %v", err)
		}
	}

	counts, err := repo.CountIncidentsBy(ctx, ports.IncidentFilter{}, ports.GroupByTroubleCategory)
	if err != nil {
		t.Fatalf("CountIncidentsBy() error = %v", err)
	}
	if len(counts) != 3 || counts[0] != (ports.GroupCount{Key: 2, Count: 3}) || counts[1] != (ports.GroupCount{Key: 3, Count: 1}) {
		t.Fatalf("CountIncidentsBy() = %+v", counts)
	}

	if _, err := repo.CountIncidentsBy(ctx, ports.IncidentFilter{}, "details"); err == nil {
		t.Fatalf("CountIncidentsBy(details) expected error")
	}
}

func TestFilesAndEvents(t *testing.T) {
	repo := NewIncidentRepository(setupDB(t))
	ctx := context.Background()

	inc, _ := repo.CreateIncident(ctx, newIncident(day(2025, 1, 1), 5, 2, "x"))

	file, err := repo.CreateFile(ctx, ports.IncidentFile{
		IncidentID:  inc.ID,
		InfoLevel:   2,
		FileName:    "photo.png",
		ContentType: "image/png",
		FileSize:    3,
		DataURI:     "data:image/png;base64,AQID",
		CreatedAt:   day(2025, 1, 2),
		CreatedBy:   100,
	})
	if err != nil {
		t.Fatalf("CreateFile() error = %v", err)
	}

	listed, err := repo.ListFiles(ctx, inc.ID, 2)
	if err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}
	if len(listed) != 1 || listed[0].FileName != "photo.png" || listed[0].DataURI != "" {
		t.Fatalf("ListFiles() = %+v", listed)
	}
	if other, _ := repo.ListFiles(ctx, inc.ID, 1); len(other) != 0 {
		t.Fatalf("ListFiles(level 1) = %+v", other)
	}

	fetched, err := repo.GetFile(ctx, file.ID)
	if err != nil || fetched.DataURI != "data:image/png;base64,AQID" {
		t.Fatalf("GetFile() = %+v, %v", fetched, err)
	}

	if err := repo.AppendEvent(ctx, ports.IncidentEvent{
		IncidentID: inc.ID,
		ActorID:    100,
		ActorRole:  incident.RoleThreePL,
		Action:     string(incident.ActionCreateSecondInfo),
		Phase:      2,
		Changes:    map[string]any{"cause": "rain"},
		CreatedAt:  day(2025, 1, 2),
	}); err != nil {
		t.Fatalf("AppendEvent() error = %v", err)
	}
	events, err := repo.ListEvents(ctx, inc.ID)
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(events) != 1 || events[0].Changes["cause"] != "rain" || events[0].ActorRole != incident.RoleThreePL {
		t.Fatalf("ListEvents() = %+v", events)
	}

	if err := repo.DeleteIncident(ctx, inc.ID); err != nil {
		t.Fatalf("DeleteIncident() error = %v", err)
	}
	if _, err := repo.GetFile(ctx, file.ID); !errors.Is(err, ports.ErrFileNotFound) {
		t.Fatalf("GetFile() after delete error = %v", err)
	}
	if events, _ := repo.ListEvents(ctx, inc.ID); len(events) != 0 {
		t.Fatalf("ListEvents() after delete = %+v", events)
	}
	if err := repo.DeleteIncident(ctx, inc.ID); !errors.Is(err, ports.ErrIncidentNotFound) {
		t.Fatalf("DeleteIncident(again) error = %v", err)
	}
}

func ids(items []incident.Incident) []int64 {
	out := make([]int64, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}
