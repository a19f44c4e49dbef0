package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/restaurant/internal/database"
	"github.com/Additional-Code/restaurant/internal/migration"
	"github.com/Additional-Code/restaurant/internal/testutil"
)

func TestPrintStatus(t *testing.T) {
	ctx := context.Background()
	cfg := testutil.SQLiteConfig(t.TempDir())
	db, err := database.Open(cfg.Database, cfg.Database.WriterDSN)
	require.NoError(t, err)
	conns := &database.Connections{Writer: db, Reader: db}
	t.Cleanup(func() { _ = conns.Close() })

	mig, err := migration.New(cfg, conns, zap.NewNop())
	require.NoError(t, err)

	var before bytes.Buffer
	require.NoError(t, printStatus(ctx, &before, mig))
	assert.Contains(t, before.String(), "schema version 0\n")
	assert.Regexp(t, `1\s+pending\s+-\s+00001_create_orders\.sql`, before.String())

	require.NoError(t, mig.Up(ctx))

	var after bytes.Buffer
	require.NoError(t, printStatus(ctx, &after, mig))
	assert.Contains(t, after.String(), "schema version 1\n")
	assert.Regexp(t, `1\s+applied\s+\d{4}-\d{2}-\d{2}T`, after.String())
}

func TestStartAlias(t *testing.T) {
	cmd, _, err := NewRootCommand().Find([]string{"run"})
	require.NoError(t, err)
	assert.Equal(t, "start", cmd.Name())
}
