package store

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// gooseDialect — диалект goose для драйвера database/sql.
func gooseDialect(driver string) string {
	switch driver {
	case "sqlite":
		return "sqlite3"
	case "pgx":
		return "postgres"
	}
	return driver
}

// useMigrations настраивает goose на встроенные миграции схемы подписчиков.
func useMigrations(driver string) error {
	if err := goose.SetDialect(gooseDialect(driver)); err != nil {
		return fmt.Errorf("goose dialect for %s: %w", driver, err)
	}
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("embedded migrations: %w", err)
	}
	goose.SetBaseFS(sub)
	return nil
}

// RunMigrations накатывает все миграции схемы. Вызывается при открытии SQL-хранилища.
func RunMigrations(db *sql.DB, driver string) error {
	if err := useMigrations(driver); err != nil {
		return err
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("migrate subscribers schema: %w", err)
	}
	version, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("schema version: %w", err)
	}
	slog.Info("🗄️ схема подписчиков актуальна", "driver", driver, "version", version)
	return nil
}
