package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/restaurant/internal/database"
	"github.com/Additional-Code/restaurant/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/restaurant/repository/order")

// Repository encapsulates read/write access for orders. Reads go to the
// reader pool, writes to the writer pool. No method holds state between calls.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// Create inserts one fully populated order row.
func (r *Repository) Create(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Create", trace.WithAttributes(
		attribute.String("order.id", order.ID.String()),
		attribute.Int("order.table_no", int(order.TableNo)),
		attribute.String("order.item", order.Item),
	))
	defer span.End()

	_, err := r.writer.NewInsert().Model(order).Exec(ctx)
	return traced(span, "insert failed", err)
}

// ByID returns zero or one order with the given id.
func (r *Repository) ByID(ctx context.Context, id uuid.UUID) ([]entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ByID", trace.WithAttributes(attribute.String("order.id", id.String())))
	defer span.End()

	return r.selectOrders(ctx, span, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("id = ?", id)
	})
}

// ByTable returns every order placed for a table.
func (r *Repository) ByTable(ctx context.Context, tableNo int32) ([]entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ByTable", trace.WithAttributes(attribute.Int("order.table_no", int(tableNo))))
	defer span.End()

	return r.selectOrders(ctx, span, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("table_no = ?", tableNo)
	})
}

// ByTableAndItem returns every order of an item placed for a table.
func (r *Repository) ByTableAndItem(ctx context.Context, tableNo int32, item string) ([]entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ByTableAndItem", trace.WithAttributes(
		attribute.Int("order.table_no", int(tableNo)),
		attribute.String("order.item", item),
	))
	defer span.End()

	return r.selectOrders(ctx, span, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("table_no = ?", tableNo).Where("item = ?", item)
	})
}

// All returns every stored order.
func (r *Repository) All(ctx context.Context) ([]entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.All")
	defer span.End()

	return r.selectOrders(ctx, span, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q
	})
}

// DeleteByID removes the order with the given id. A missing id is not an error.
func (r *Repository) DeleteByID(ctx context.Context, id uuid.UUID) (int64, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.DeleteByID", trace.WithAttributes(attribute.String("order.id", id.String())))
	defer span.End()

	res, err := r.writer.NewDelete().Model((*entity.Order)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return 0, traced(span, "delete failed", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return 0, traced(span, "rows affected", err)
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", n))
	return n, nil
}

// rowsAffected reports a driver that cannot count removed rows as an error.
func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// DeleteByTableAndItem removes every order of an item for a table and returns
// the ids that were removed.
func (r *Repository) DeleteByTableAndItem(ctx context.Context, tableNo int32, item string) ([]uuid.UUID, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.DeleteByTableAndItem", trace.WithAttributes(
		attribute.Int("order.table_no", int(tableNo)),
		attribute.String("order.item", item),
	))
	defer span.End()

	var ids []uuid.UUID
	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		ids = ids[:0]
		err := tx.NewSelect().
			Model((*entity.Order)(nil)).
			Column("id").
			Where("table_no = ?", tableNo).
			Where("item = ?", item).
			Scan(ctx, &ids)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		_, err = tx.NewDelete().
			Model((*entity.Order)(nil)).
			Where("id IN (?)", bun.In(ids)).
			Exec(ctx)
		return err
	})
	if err != nil {
		return nil, traced(span, "delete failed", err)
	}
	span.SetAttributes(attribute.Int("db.rows_affected", len(ids)))
	return ids, nil
}

func (r *Repository) selectOrders(ctx context.Context, span trace.Span, filter func(*bun.SelectQuery) *bun.SelectQuery) ([]entity.Order, error) {
	orders := make([]entity.Order, 0)
	if err := filter(r.reader.NewSelect().Model(&orders)).Scan(ctx); err != nil {
		return nil, traced(span, "select failed", err)
	}
	span.SetAttributes(attribute.Int("db.rows", len(orders)))
	return orders, nil
}

// traced marks span as failed when err is set and returns err unchanged.
func traced(span trace.Span, status string, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
	}
	return err
}
