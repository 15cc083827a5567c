package store

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// MigrationState describes one known schema migration.
type MigrationState struct {
	Version int64  `json:"version"`
	Source  string `json:"source"`
	Applied bool   `json:"applied"`
}

func (s *Store) migrator() (*goose.Provider, error) {
	if s == nil || s.DB == nil {
		return nil, errNotInitialized
	}

	migrations, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, s.DB, migrations)
	if err != nil {
		return nil, fmt.Errorf("init migrations: %w", err)
	}
	return provider, nil
}

// Migrate applies all pending schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	provider, err := s.migrator()
	if err != nil {
		return err
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("store migration failed: %w", err)
	}
	return nil
}

// MigrationStatus lists known migrations and whether each is applied.
func (s *Store) MigrationStatus(ctx context.Context) ([]MigrationState, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	provider, err := s.migrator()
	if err != nil {
		return nil, err
	}

	statuses, err := provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("migration status: %w", err)
	}

	out := make([]MigrationState, 0, len(statuses))
	for _, status := range statuses {
		if status == nil || status.Source == nil {
			continue
		}
		out = append(out, MigrationState{
			Version: status.Source.Version,
			Source:  status.Source.Path,
			Applied: status.State == goose.StateApplied,
		})
	}
	return out, nil
}
