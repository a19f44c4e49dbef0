package order

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/restaurant/internal/config"
	"github.com/Additional-Code/restaurant/internal/messaging"
	ordersvc "github.com/Additional-Code/restaurant/internal/service/order"
	"github.com/Additional-Code/restaurant/internal/worker"
)

var workerTracer = otel.Tracer("github.com/Additional-Code/restaurant/worker/order")

// Module registers order-related worker handlers.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			NewOrderEventsHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewOrderEventsHandler prints kitchen tickets for placed orders and
// cancellations for deleted ones.
func NewOrderEventsHandler(logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: newHandler(logger),
	}
}

func newHandler(logger *zap.Logger) messaging.Handler {
	return func(ctx context.Context, msg messaging.Message) error {
		_, span := workerTracer.Start(ctx, "worker.orders.process", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
			attribute.Int64("messaging.offset", msg.Offset),
		))
		defer span.End()

		var event ordersvc.Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode order event", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}
		span.SetAttributes(attribute.String("order.event", event.Type))

		switch {
		case event.Type == ordersvc.EventOrderPlaced && event.Placed != nil:
			placed := event.Placed
			logger.Info("kitchen ticket",
				zap.String("id", placed.ID.String()),
				zap.Int32("table_no", placed.TableNo),
				zap.String("item", placed.Item),
				zap.Int32("quantity", placed.Quantity),
				zap.Int32("preparation_minutes", placed.PreparationTime),
				zap.Time("ready_at", placed.PlacedAt.Add(minutes(placed.PreparationTime))),
			)
		case event.Type == ordersvc.EventOrderDeleted && event.Deleted != nil:
			ids := make([]string, 0, len(event.Deleted.IDs))
			for _, id := range event.Deleted.IDs {
				ids = append(ids, id.String())
			}
			logger.Info("kitchen tickets cancelled", zap.Strings("ids", ids))
		default:
			// Unknown events are committed, not retried.
			logger.Warn("unsupported order event", zap.String("type", event.Type))
		}

		return nil
	}
}

func minutes(n int32) time.Duration {
	return time.Duration(n) * time.Minute
}
