package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/schema"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/restaurant/internal/config"
)

const pingTimeout = 5 * time.Second

// backend pairs a bun dialect with the way a DSN becomes a *sql.DB.
type backend struct {
	dialect func() schema.Dialect
	open    func(dsn string) (*sql.DB, error)
}

func sqlOpen(name string) func(string) (*sql.DB, error) {
	return func(dsn string) (*sql.DB, error) { return sql.Open(name, dsn) }
}

var backends = map[string]backend{
	"postgres": {
		dialect: func() schema.Dialect { return pgdialect.New() },
		open: func(dsn string) (*sql.DB, error) {
			return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn))), nil
		},
	},
	"pgx":    {dialect: func() schema.Dialect { return pgdialect.New() }, open: sqlOpen("pgx")},
	"mysql":  {dialect: func() schema.Dialect { return mysqldialect.New() }, open: sqlOpen("mysql")},
	"sqlite": {dialect: func() schema.Dialect { return sqlitedialect.New() }, open: sqlOpen(sqliteshim.ShimName)},
}

// Connections holds the writer pool and the reader pool. They are the same
// pool unless a separate reader DSN is configured.
type Connections struct {
	Writer *bun.DB
	Reader *bun.DB
}

var Module = fx.Provide(New)

// New opens both pools and checks them on start.
func New(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*Connections, error) {
	dbCfg := cfg.Database
	writer, err := Open(dbCfg, dbCfg.WriterDSN)
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}
	conns := &Connections{Writer: writer, Reader: writer}
	if dbCfg.ReaderDSN != dbCfg.WriterDSN {
		if conns.Reader, err = Open(dbCfg, dbCfg.ReaderDSN); err != nil {
			_ = writer.Close()
			return nil, fmt.Errorf("open reader: %w", err)
		}
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := conns.ping(ctx); err != nil {
				return err
			}
			logger.Info("database connected", zap.String("driver", dbCfg.Driver), zap.Bool("split_reader", conns.split()))
			return nil
		},
		OnStop: func(context.Context) error { return conns.Close() },
	})
	return conns, nil
}

// Open returns one bun pool for the configured driver with its pool limits
// applied. Nothing is dialed until first use.
func Open(cfg config.Database, dsn string) (*bun.DB, error) {
	b, err := backendFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if dsn == "" {
		return nil, errors.New("empty DSN")
	}
	sqlDB, err := b.open(dsn)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxConnLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.MaxConnLifetime)
	}
	return bun.NewDB(sqlDB, b.dialect()), nil
}

func backendFor(driver string) (backend, error) {
	b, ok := backends[driver]
	if !ok {
		return backend{}, fmt.Errorf("unsupported database driver: %s", driver)
	}
	return b, nil
}

func (c *Connections) split() bool { return c.Reader != c.Writer }

func (c *Connections) ping(ctx context.Context) error {
	if err := pingContext(ctx, c.Writer); err != nil {
		return fmt.Errorf("ping writer: %w", err)
	}
	if c.split() {
		if err := pingContext(ctx, c.Reader); err != nil {
			return fmt.Errorf("ping reader: %w", err)
		}
	}
	return nil
}

// Close releases the writer and, when distinct, the reader pool.
func (c *Connections) Close() error {
	var errs []error
	if err := c.Writer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close writer: %w", err))
	}
	if c.split() {
		if err := c.Reader.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close reader: %w", err))
		}
	}
	return errors.Join(errs...)
}

func pingContext(ctx context.Context, db *bun.DB) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return db.PingContext(ctx)
}
