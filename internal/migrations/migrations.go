// Package migrations holds the database schema as embedded goose migrations.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed sql/*.sql
var files embed.FS

// Migrator applies the embedded migrations to a PostgreSQL database
type Migrator struct {
	provider *goose.Provider
	logger   *zap.Logger
}

// NewMigrator creates a new migrator for db
func NewMigrator(db *sql.DB, logger *zap.Logger) (*Migrator, error) {
	fsys, err := fs.Sub(files, "sql")
	if err != nil {
		return nil, err
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("create migration provider: %w", err)
	}
	return &Migrator{provider: provider, logger: logger}, nil
}

// Up applies every pending migration
func (m *Migrator) Up(ctx context.Context) error {
	results, err := m.provider.Up(ctx)
	for _, r := range results {
		m.logResult(r)
	}
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	if len(results) == 0 {
		m.logger.Info("Database schema is up to date")
	}
	return nil
}

// Down rolls back the most recent migration
func (m *Migrator) Down(ctx context.Context) error {
	result, err := m.provider.Down(ctx)
	if result != nil {
		m.logResult(result)
	}
	if err != nil {
		return fmt.Errorf("roll back migration: %w", err)
	}
	return nil
}

// Version returns the schema version recorded in the database
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	return m.provider.GetDBVersion(ctx)
}

// Status logs the state of every known migration
func (m *Migrator) Status(ctx context.Context) error {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return fmt.Errorf("migration status: %w", err)
	}
	for _, s := range statuses {
		fields := []zap.Field{
			zap.Int64("version", s.Source.Version),
			zap.String("path", s.Source.Path),
			zap.String("state", string(s.State)),
		}
		if !s.AppliedAt.IsZero() {
			fields = append(fields, zap.Time("applied_at", s.AppliedAt))
		}
		m.logger.Info("Migration", fields...)
	}
	return nil
}

func (m *Migrator) logResult(r *goose.MigrationResult) {
	if r.Error != nil {
		m.logger.Error("Migration failed",
			zap.Int64("version", r.Source.Version),
			zap.String("direction", r.Direction),
			zap.Error(r.Error))
		return
	}
	m.logger.Info("Migration applied",
		zap.Int64("version", r.Source.Version),
		zap.String("path", r.Source.Path),
		zap.String("direction", r.Direction),
		zap.Duration("duration", r.Duration))
}
