package db

import (
	"context"
	"embed"
	"fmt"

	"modreview/internal/domain"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate brings the schema up to date. Postgres runs the embedded goose
// migrations; sqlite, used for local runs and tests, is auto-migrated from
// the domain models.
func Migrate(ctx context.Context, gdb *gorm.DB, driver string) error {
	if driver == DriverSQLite {
		return gdb.WithContext(ctx).AutoMigrate(&domain.User{}, &domain.AuthToken{}, &domain.OneTimePassword{})
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
		return fmt.Errorf("db: migrate: %w", err)
	}
	return nil
}
