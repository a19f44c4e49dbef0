package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/Additional-Code/restaurant/internal/config"
	"github.com/Additional-Code/restaurant/internal/database"
	"github.com/Additional-Code/restaurant/internal/migration"
)

// SQLiteConfig returns a config pointing at a fresh SQLite file under dir.
func SQLiteConfig(dir string) config.Config {
	dsn := "file:" + filepath.Join(dir, "orders.db")
	return config.Config{
		Database: config.Database{
			Driver:       "sqlite",
			WriterDSN:    dsn,
			ReaderDSN:    dsn,
			MaxOpenConns: 1,
		},
		Kitchen: config.Kitchen{PrepTimeMin: 5, PrepTimeMax: 15},
	}
}

// NewTestDB opens a migrated SQLite database private to the test.
func NewTestDB(t *testing.T) *database.Connections {
	t.Helper()

	cfg := SQLiteConfig(t.TempDir())
	db, err := database.Open(cfg.Database, cfg.Database.WriterDSN)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	conns := &database.Connections{Writer: db, Reader: db}
	t.Cleanup(func() {
		_ = conns.Close()
	})

	mig, err := migration.New(cfg, conns, zap.NewNop())
	if err != nil {
		t.Fatalf("migrator: %v", err)
	}
	if err := mig.Up(context.Background()); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	return conns
}

// CountOrders returns the number of rows in the orders table.
func CountOrders(t *testing.T, ctx context.Context, conns *database.Connections) int {
	t.Helper()
	n, err := conns.Reader.NewSelect().Table("orders").Count(ctx)
	if err != nil {
		t.Fatalf("count orders: %v", err)
	}
	return n
}
