package order

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/Additional-Code/restaurant/internal/cache"
	"github.com/Additional-Code/restaurant/internal/entity"
)

// orderCache keeps single orders by id. A nil store behaves as always empty.
type orderCache struct {
	store cache.Store
	ttl   time.Duration
}

func orderKey(id uuid.UUID) string {
	return "orders:" + id.String()
}

// get reports found=false on a miss; err is only set for backend failures.
func (c orderCache) get(ctx context.Context, id uuid.UUID) (order entity.Order, found bool, err error) {
	if c.store == nil {
		return order, false, nil
	}
	raw, err := c.store.Get(ctx, orderKey(id))
	if errors.Is(err, cache.ErrCacheMiss) {
		return order, false, nil
	}
	if err != nil {
		return order, false, err
	}
	if err := json.Unmarshal(raw, &order); err != nil {
		return order, false, err
	}
	return order, true, nil
}

func (c orderCache) put(ctx context.Context, order entity.Order) error {
	if c.store == nil {
		return nil
	}
	raw, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, orderKey(order.ID), raw, c.ttl)
}

func (c orderCache) evict(ctx context.Context, ids []uuid.UUID) error {
	if c.store == nil || len(ids) == 0 {
		return nil
	}
	return c.store.Delete(ctx, lo.Map(ids, func(id uuid.UUID, _ int) string { return orderKey(id) })...)
}
