package seeder

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/restaurant/internal/cache"
	"github.com/Additional-Code/restaurant/internal/clock"
	"github.com/Additional-Code/restaurant/internal/config"
	"github.com/Additional-Code/restaurant/internal/domain"
	"github.com/Additional-Code/restaurant/internal/kitchen"
	repo "github.com/Additional-Code/restaurant/internal/repository/order"
	ordersvc "github.com/Additional-Code/restaurant/internal/service/order"
	"github.com/Additional-Code/restaurant/internal/testutil"
)

func TestOrdersPlacesOneOrderPerMenuItem(t *testing.T) {
	conns := testutil.NewTestDB(t)
	noCache, err := cache.NewStore(nil, config.Config{Cache: config.Cache{Driver: "noop"}}, zap.NewNop())
	require.NoError(t, err)

	svc, err := ordersvc.NewService(ordersvc.Params{
		Repository: repo.NewRepository(conns),
		Cache:      noCache,
		Logger:     zap.NewNop(),
		Clock:      clock.NewSystem(),
		PrepTimer:  kitchen.NewFixed(8),
	})
	require.NoError(t, err)

	ctx := context.Background()
	ids, err := New(svc, zap.NewNop()).Orders(ctx, 3)
	require.NoError(t, err)
	require.Len(t, ids, len(domain.MenuItems))

	orders, err := svc.ByTable(ctx, 3)
	require.NoError(t, err)
	require.Len(t, orders, len(domain.MenuItems))

	items := make([]string, 0, len(orders))
	for _, o := range orders {
		items = append(items, o.Item)
		assert.Equal(t, int32(8), o.PreparationTime)
	}
	assert.ElementsMatch(t, domain.MenuItems, items)
}

type failingSubmitter struct {
	after int
	calls int
}

func (f *failingSubmitter) Submit(context.Context, domain.RawOrder) (uuid.UUID, error) {
	f.calls++
	if f.calls > f.after {
		return uuid.Nil, errors.New("store unavailable")
	}
	return uuid.New(), nil
}

func TestOrdersStopsAtFirstFailure(t *testing.T) {
	sub := &failingSubmitter{after: 2}

	ids, err := NewWithSubmitter(sub, nil).Orders(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.MenuItems[2])
	assert.Len(t, ids, 2)
	assert.Equal(t, 3, sub.calls)
}
