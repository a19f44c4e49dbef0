package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/restaurant/internal/cache"
	"github.com/Additional-Code/restaurant/internal/clock"
	"github.com/Additional-Code/restaurant/internal/config"
	"github.com/Additional-Code/restaurant/internal/domain"
	"github.com/Additional-Code/restaurant/internal/entity"
	"github.com/Additional-Code/restaurant/internal/kitchen"
	"github.com/Additional-Code/restaurant/internal/messaging"
	repo "github.com/Additional-Code/restaurant/internal/repository/order"
	"github.com/Additional-Code/restaurant/pkg/errorbank"
)

const instrumentationName = "github.com/Additional-Code/restaurant/service/order"

var tracer = otel.Tracer(instrumentationName)

// Stores keep microseconds; a finer placed_at would differ between the
// cached copy and the stored row.
const timestampPrecision = time.Microsecond

// Service turns raw terminal input into stored orders and serves reads and
// deletes over them. Calls are independent; the database round trips are the
// only points where a call waits.
type Service struct {
	repo      *repo.Repository
	cache     orderCache
	logger    *zap.Logger
	clock     clock.Clock
	prepTimer kitchen.PrepTimer
	outbox    *outbox

	submitted metric.Int64Counter
	rejected  metric.Int64Counter
	deleted   metric.Int64Counter
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository    *repo.Repository
	Cache         cache.Store
	Config        config.Config
	Logger        *zap.Logger
	Publisher     messaging.Client      `optional:"true"`
	MeterProvider metric.MeterProvider `optional:"true"`
	Clock         clock.Clock
	PrepTimer     kitchen.PrepTimer
}

// NewService wires a new Service. Events are only published when messaging
// is enabled and a publisher is supplied; call Close to drain them.
func NewService(p Params) (*Service, error) {
	provider := p.MeterProvider
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(instrumentationName)

	s := &Service{
		repo:      p.Repository,
		cache:     orderCache{store: p.Cache, ttl: p.Config.Cache.DefaultTTL},
		logger:    p.Logger,
		clock:     p.Clock,
		prepTimer: p.PrepTimer,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	var err error
	if s.submitted, err = meter.Int64Counter("orders.submitted", metric.WithDescription("Orders accepted and stored")); err != nil {
		return nil, err
	}
	if s.rejected, err = meter.Int64Counter("orders.rejected", metric.WithDescription("Orders rejected by validation")); err != nil {
		return nil, err
	}
	if s.deleted, err = meter.Int64Counter("orders.deleted", metric.WithDescription("Orders removed")); err != nil {
		return nil, err
	}

	if p.Config.Messaging.Enabled && p.Publisher != nil {
		s.outbox = newOutbox(p.Publisher, s.logger, p.Config.Messaging.PublishBuffer, p.Config.Messaging.PublishTimeout)
	}
	return s, nil
}

// Close stops publishing and waits for queued events to be sent.
func (s *Service) Close(ctx context.Context) error {
	if s.outbox == nil {
		return nil
	}
	return s.outbox.close(ctx)
}

// Submit validates a raw order, lets the kitchen assign its preparation time
// and stores it. Invalid input never reaches the database.
func (s *Service) Submit(ctx context.Context, raw domain.RawOrder) (uuid.UUID, error) {
	ctx, span := tracer.Start(ctx, "OrderService.Submit", trace.WithAttributes(
		attribute.Int("order.table_no", int(raw.TableNo)),
		attribute.String("order.item", raw.Item),
		attribute.Int("order.quantity", int(raw.Quantity)),
	))
	defer span.End()

	req, err := domain.ParseOrder(raw)
	if err != nil {
		appErr := rejection(err)
		span.SetStatus(codes.Error, "validation failed")
		s.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("field", appErr.Field())))
		s.logger.Info("order rejected", zap.String("field", appErr.Field()), zap.String("reason", appErr.Message()))
		return uuid.Nil, appErr
	}

	order, err := s.prepare(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "prepare failed")
		return uuid.Nil, errorbank.Internal("failed to place order", errorbank.WithCause(err))
	}
	span.SetAttributes(attribute.String("order.id", order.ID.String()))

	if err := s.repo.Create(ctx, &order); err != nil {
		return uuid.Nil, s.failure(span, "failed to place order", err, zap.Stringer("id", order.ID))
	}
	s.submitted.Add(ctx, 1, metric.WithAttributes(attribute.String("item", order.Item)))

	if err := s.cache.put(ctx, order); err != nil {
		s.logger.Warn("orders cache write failed", zap.Stringer("id", order.ID), zap.Error(err))
	}
	s.publishPlaced(ctx, &order)
	return order.ID, nil
}

// prepare assigns identity, preparation time and placement time.
func (s *Service) prepare(req domain.OrderRequest) (entity.Order, error) {
	prep, err := domain.ParseQuantity(s.prepTimer.Next())
	if err != nil {
		return entity.Order{}, err
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return entity.Order{}, err
	}

	n := domain.NewOrderFrom(req, prep)
	return entity.Order{
		ID:              id,
		TableNo:         n.TableNo.Int32(),
		Item:            n.Item.String(),
		Quantity:        n.Quantity.Int32(),
		PreparationTime: n.PreparationTime.Int32(),
		PlacedAt:        s.clock.Now().Truncate(timestampPrecision),
	}, nil
}

// ByID returns the order with the given id, or an empty slice.
func (s *Service) ByID(ctx context.Context, id uuid.UUID) ([]entity.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.ByID", trace.WithAttributes(attribute.String("order.id", id.String())))
	defer span.End()

	cached, found, err := s.cache.get(ctx, id)
	if err != nil {
		s.logger.Warn("orders cache read failed", zap.Stringer("id", id), zap.Error(err))
	}
	if found {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return []entity.Order{cached}, nil
	}

	orders, err := s.repo.ByID(ctx, id)
	if err != nil {
		return nil, s.failure(span, "failed to load orders", err)
	}
	if len(orders) == 1 {
		if err := s.cache.put(ctx, orders[0]); err != nil {
			s.logger.Warn("orders cache write failed", zap.Stringer("id", id), zap.Error(err))
		}
	}
	return orders, nil
}

// ByTable returns every order for a table.
func (s *Service) ByTable(ctx context.Context, tableNo int32) ([]entity.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.ByTable", trace.WithAttributes(attribute.Int("order.table_no", int(tableNo))))
	defer span.End()

	return s.load(span, func() ([]entity.Order, error) { return s.repo.ByTable(ctx, tableNo) })
}

// ByTableAndItem returns every order of an item for a table.
func (s *Service) ByTableAndItem(ctx context.Context, tableNo int32, item string) ([]entity.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.ByTableAndItem", trace.WithAttributes(
		attribute.Int("order.table_no", int(tableNo)),
		attribute.String("order.item", item),
	))
	defer span.End()

	return s.load(span, func() ([]entity.Order, error) { return s.repo.ByTableAndItem(ctx, tableNo, item) })
}

// All returns every stored order.
func (s *Service) All(ctx context.Context) ([]entity.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.All")
	defer span.End()

	return s.load(span, func() ([]entity.Order, error) { return s.repo.All(ctx) })
}

func (s *Service) load(span trace.Span, query func() ([]entity.Order, error)) ([]entity.Order, error) {
	orders, err := query()
	if err != nil {
		return nil, s.failure(span, "failed to load orders", err)
	}
	span.SetAttributes(attribute.Int("orders.count", len(orders)))
	return orders, nil
}

// DeleteByID removes an order. Deleting an unknown id succeeds.
func (s *Service) DeleteByID(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "OrderService.DeleteByID", trace.WithAttributes(attribute.String("order.id", id.String())))
	defer span.End()

	removed, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return s.failure(span, "failed to delete orders", err)
	}

	// Evict even when nothing was removed: the row may have been deleted
	// elsewhere while a copy is still cached.
	s.evict(ctx, []uuid.UUID{id})
	if removed > 0 {
		s.removed(ctx, []uuid.UUID{id})
	}
	return nil
}

// DeleteByTableAndItem removes every order of an item for a table. Zero
// matches is a success.
func (s *Service) DeleteByTableAndItem(ctx context.Context, tableNo int32, item string) error {
	ctx, span := tracer.Start(ctx, "OrderService.DeleteByTableAndItem", trace.WithAttributes(
		attribute.Int("order.table_no", int(tableNo)),
		attribute.String("order.item", item),
	))
	defer span.End()

	ids, err := s.repo.DeleteByTableAndItem(ctx, tableNo, item)
	if err != nil {
		return s.failure(span, "failed to delete orders", err)
	}

	s.evict(ctx, ids)
	if len(ids) > 0 {
		s.removed(ctx, ids)
	}
	return nil
}

func (s *Service) evict(ctx context.Context, ids []uuid.UUID) {
	if err := s.cache.evict(ctx, ids); err != nil {
		s.logger.Warn("orders cache invalidation failed", zap.Stringers("ids", ids), zap.Error(err))
	}
}

func (s *Service) removed(ctx context.Context, ids []uuid.UUID) {
	s.deleted.Add(ctx, int64(len(ids)))
	s.publishDeleted(ctx, ids)
}

// failure records a storage error on the span and in the log and returns the
// client-facing error; the cause is kept for errors.Is but never rendered.
func (s *Service) failure(span trace.Span, message string, err error, fields ...zap.Field) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, message)
	s.logger.Error(message, append(fields, zap.Error(err))...)
	return errorbank.Internal(message, errorbank.WithCause(err))
}

func rejection(err error) *errorbank.AppError {
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		return errorbank.BadRequest(vErr.Message, errorbank.WithField(vErr.Field), errorbank.WithCause(err))
	}
	return errorbank.BadRequest("invalid order", errorbank.WithCause(err))
}
