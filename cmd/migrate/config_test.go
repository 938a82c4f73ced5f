package main

import (
	"os"
	"testing"

	"github.com/MufengNiu/Paradisec/internal/config"
)

func TestMigrationsDir_EnvOverride(t *testing.T) {
	os.Setenv("MIGRATIONS_DIR", "/custom/migrations")
	t.Cleanup(func() { _ = os.Unsetenv("MIGRATIONS_DIR") })

	if got := migrationsDir(); got != "/custom/migrations" {
		t.Fatalf("expected MIGRATIONS_DIR override, got %q", got)
	}
}

func TestMigrationsDir_Default(t *testing.T) {
	_ = os.Unsetenv("MIGRATIONS_DIR")

	if got := migrationsDir(); got != "db/migrations" {
		t.Fatalf("expected default migrations dir, got %q", got)
	}
}

func TestDatabaseDSN(t *testing.T) {
	t.Setenv("DB_DSN", "")
	if got := databaseDSN(); got != config.DefaultDSN {
		t.Fatalf("expected default dsn, got %q", got)
	}

	t.Setenv("DB_DSN", "postgres://u:p@db:5432/tlcmap")
	if got := databaseDSN(); got != "postgres://u:p@db:5432/tlcmap" {
		t.Fatalf("expected DB_DSN override, got %q", got)
	}
}
