package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesDefaultsAndFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "database:\n  dsn: " + filepath.Join(dir, "db.sqlite") + "\ncache:\n  status_ttl: 2m\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Cache.StatusTTL != 2*time.Minute {
		t.Fatalf("StatusTTL = %s", cfg.Cache.StatusTTL)
	}
	if cfg.Cache.ParameterTTL != 30*time.Minute {
		t.Fatalf("ParameterTTL = %s", cfg.Cache.ParameterTTL)
	}
	if cfg.Cache.Driver != "memory" || cfg.Database.Driver != "sqlite" {
		t.Fatalf("drivers = %q/%q", cfg.Cache.Driver, cfg.Database.Driver)
	}
	if cfg.Files.MaxBytes != 10<<20 {
		t.Fatalf("MaxBytes = %d", cfg.Files.MaxBytes)
	}
}

func TestLoadRejectsUnknownCacheDriver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("cache:\n  driver: memcached\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(context.Background(), path); err == nil {
		t.Fatalf("Load() expected error for unknown cache driver")
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	if got := (AppConfig{Timezone: "Nowhere/Invalid"}).Location(); got != time.UTC {
		t.Fatalf("Location() = %v", got)
	}
	if got := (AppConfig{}).Location(); got != time.UTC {
		t.Fatalf("Location() = %v", got)
	}
}

func TestLoadEventsDriver(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "database:\n  dsn: " + filepath.Join(dir, "db.sqlite") + "\nevents:\n  driver: nats\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Events.NATSURL != "nats://127.0.0.1:4222" || cfg.Events.SubjectPrefix != "troubledesk.incident" {
		t.Fatalf("Events = %+v", cfg.Events)
	}

	if err := os.WriteFile(path, []byte("events:\n  driver: kafka\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(context.Background(), path); err == nil {
		t.Fatalf("Load() expected error for unknown events driver")
	}
}
