package migration

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/restaurant/internal/config"
	"github.com/Additional-Code/restaurant/internal/database"
)

// sql/<dialect>/ holds one set of numbered goose files per database family.
//
//go:embed sql
var migrations embed.FS

var Module = fx.Provide(New)

// Migrator applies the embedded schema to the writer pool. Each Migrator has
// its own goose provider, so several may run side by side.
type Migrator struct {
	provider *goose.Provider
	logger   *zap.Logger
}

// New selects the migration set matching the configured driver.
func New(cfg config.Config, conns *database.Connections, logger *zap.Logger) (*Migrator, error) {
	dialect, dir, err := dialectFor(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}
	fsys, err := fs.Sub(migrations, "sql/"+dir)
	if err != nil {
		return nil, err
	}
	provider, err := goose.NewProvider(dialect, conns.Writer.DB, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Migrator{provider: provider, logger: logger}, nil
}

// Up applies every pending migration. An up-to-date schema is not an error.
func (m *Migrator) Up(ctx context.Context) error {
	results, err := m.provider.Up(ctx)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		m.logger.Info("no migrations to apply")
		return nil
	}
	for _, r := range results {
		m.logger.Info("migration applied", zap.Int64("version", r.Source.Version), zap.Duration("took", r.Duration))
	}
	return nil
}

// Down rolls back the last steps migrations, at least one, or all of them.
// Running out of migrations stops early without error.
func (m *Migrator) Down(ctx context.Context, steps int, all bool) error {
	if all {
		results, err := m.provider.DownTo(ctx, 0)
		if err != nil {
			return err
		}
		m.logger.Info("migrations rolled back", zap.String("mode", "all"), zap.Int("count", len(results)))
		return nil
	}

	steps = max(steps, 1)
	for done := range steps {
		r, err := m.provider.Down(ctx)
		if errors.Is(err, goose.ErrNoNextVersion) {
			m.logger.Info("no migrations to rollback", zap.Int("rolled_back", done))
			return nil
		}
		if err != nil {
			return err
		}
		m.logger.Info("migration rolled back", zap.Int64("version", r.Source.Version))
	}
	return nil
}

// Version reports the highest applied migration, 0 for an empty schema.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	return m.provider.GetDBVersion(ctx)
}

// Status lists every known migration in version order.
func (m *Migrator) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	return m.provider.Status(ctx)
}

func dialectFor(driver string) (goose.Dialect, string, error) {
	switch driver {
	case "postgres", "pg", "pgx":
		return goose.DialectPostgres, "postgres", nil
	case "mysql":
		return goose.DialectMySQL, "mysql", nil
	case "sqlite", "sqlite3":
		return goose.DialectSQLite3, "sqlite", nil
	default:
		return "", "", fmt.Errorf("unsupported goose dialect for driver %s", driver)
	}
}
