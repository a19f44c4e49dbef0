//go:build integration

package order_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"

	"github.com/Additional-Code/restaurant/internal/config"
	"github.com/Additional-Code/restaurant/internal/database"
	"github.com/Additional-Code/restaurant/internal/migration"
)

func TestRepositorySuitePostgres(t *testing.T) {
	ctx := t.Context()

	container, connStr, err := startPostgres(ctx)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, testcontainers.TerminateContainer(container))
	})

	for _, driver := range []string{"postgres", "pgx"} {
		t.Run(driver, func(t *testing.T) {
			cfg := config.Config{Database: config.Database{
				Driver:       driver,
				WriterDSN:    connStr,
				ReaderDSN:    connStr,
				MaxOpenConns: 8,
			}}
			conns := openPostgres(t, cfg)

			suite.Run(t, &repositorySuite{open: func(t *testing.T) *database.Connections {
				_, err := conns.Writer.ExecContext(t.Context(), "TRUNCATE orders")
				require.NoError(t, err)
				return conns
			}})
		})
	}
}

func startPostgres(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	container, err := postgres.Run(ctx, "postgres:17-alpine",
		postgres.WithDatabase("restaurant"),
		postgres.WithUsername("restaurant"),
		postgres.WithPassword("restaurant"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, "", err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return container, "", err
	}
	return container, connStr, nil
}

func openPostgres(t *testing.T, cfg config.Config) *database.Connections {
	t.Helper()

	db, err := database.Open(cfg.Database, cfg.Database.WriterDSN)
	require.NoError(t, err)
	conns := &database.Connections{Writer: db, Reader: db}
	t.Cleanup(func() { _ = conns.Close() })

	mig, err := migration.New(cfg, conns, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, mig.Up(t.Context()))
	return conns
}
