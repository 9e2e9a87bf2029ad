package parameter

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestImportFormatYAML(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	seed := `
parameter:
  - key: secondInfoDeadlineDays
    value: "4"
    type: int
  - key: thirdInfoDeadlineDays
    value: "9"
    type: int
    active: true
`
	result, err := svc.ImportFormat(ctx, admin, strings.NewReader(seed), SeedFormatFor("params.yml"))
	if err != nil {
		t.Fatalf("ImportFormat() error = %v", err)
	}
	if len(result.Keys) != 2 {
		t.Fatalf("ImportFormat() keys = %v", result.Keys)
	}
	if got := svc.DeadlineDays(ctx); got.SecondInfoDays != 4 || got.ThirdInfoDays != 9 {
		t.Fatalf("DeadlineDays() = %+v", got)
	}

	if _, err := svc.ImportFormat(ctx, admin, strings.NewReader("parameter:\n  - key: x\n    colour: red\n"), SeedYAML); err == nil {
		t.Fatalf("ImportFormat(unknown field) error = nil")
	}

	var buf bytes.Buffer
	if err := svc.ExportFormat(ctx, &buf, SeedYAML); err != nil {
		t.Fatalf("ExportFormat() error = %v", err)
	}
	if !strings.Contains(buf.String(), "key: thirdInfoDeadlineDays") {
		t.Fatalf("ExportFormat() = %s", buf.String())
	}
}

func TestSeedFormatFor(t *testing.T) {
	cases := map[string]SeedFormat{
		"seed.toml": SeedTOML,
		"seed.YAML": SeedYAML,
		"seed.yml":  SeedYAML,
		"seed":      SeedTOML,
	}
	for path, want := range cases {
		if got := SeedFormatFor(path); got != want {
			t.Fatalf("SeedFormatFor(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestWatchSeedReimportsOnChange(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "params.toml")
	writeSeed := func(days string) {
		t.Helper()
		content := "[[parameter]]\nkey = \"secondInfoDeadlineDays\"\nvalue = \"" + days + "\"\ntype = \"int\"\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write seed: %v", err)
		}
	}
	writeSeed("3")

	applied := make(chan error, 8)
	done := make(chan error, 1)
	go func() {
		done <- svc.WatchSeed(ctx, admin, path, func(_ ImportResult, err error) {
			applied <- err
		})
	}()

	waitApplied := func(want string) {
		t.Helper()
		deadline := time.After(5 * time.Second)
		for {
			select {
			case err := <-applied:
				if err != nil {
					t.Fatalf("import error = %v", err)
				}
				param, err := svc.Get(ctx, "secondInfoDeadlineDays")
				if err == nil && param.Value == want {
					return
				}
			case <-deadline:
				t.Fatalf("seed value %s never applied", want)
			}
		}
	}
	waitApplied("3")

	writeSeed("11")
	waitApplied("11")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("WatchSeed() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("WatchSeed() did not stop")
	}
}
