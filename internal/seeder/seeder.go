package seeder

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/restaurant/internal/domain"
	ordersvc "github.com/Additional-Code/restaurant/internal/service/order"
)

// Module provides the Seeder to Fx.
var Module = fx.Provide(New)

// Submitter places a raw order and returns the id it was stored under.
type Submitter interface {
	Submit(ctx context.Context, raw domain.RawOrder) (uuid.UUID, error)
}

// Seeder places sample orders for local/dev setups.
type Seeder struct {
	orders Submitter
	logger *zap.Logger
}

// New constructs a Seeder on top of the order service.
func New(svc *ordersvc.Service, logger *zap.Logger) *Seeder {
	return NewWithSubmitter(svc, logger)
}

// NewWithSubmitter constructs a Seeder over any Submitter.
func NewWithSubmitter(orders Submitter, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{orders: orders, logger: logger}
}

// Orders places one order per menu item at the given table. Orders go
// through the regular intake, so they get fresh ids and preparation times.
func (s *Seeder) Orders(ctx context.Context, tableNo int32) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(domain.MenuItems))
	for i, item := range domain.MenuItems {
		id, err := s.orders.Submit(ctx, domain.RawOrder{
			TableNo:  tableNo,
			Item:     item,
			Quantity: int32(i + 1),
		})
		if err != nil {
			return ids, fmt.Errorf("seed %s: %w", item, err)
		}
		ids = append(ids, id)
	}

	s.logger.Info("seeded orders", zap.Int32("table_no", tableNo), zap.Int("count", len(ids)))
	return ids, nil
}
