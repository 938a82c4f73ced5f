package main

import (
	"os"

	"github.com/MufengNiu/Paradisec/internal/config"
)

func migrationsDir() string {
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	return "db/migrations"
}

func databaseDSN() string {
	if v := os.Getenv("DB_DSN"); v != "" {
		return v
	}
	return config.DefaultDSN
}
