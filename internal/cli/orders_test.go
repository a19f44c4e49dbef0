package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/restaurant/internal/cache"
	"github.com/Additional-Code/restaurant/internal/clock"
	"github.com/Additional-Code/restaurant/internal/config"
	"github.com/Additional-Code/restaurant/internal/domain"
	"github.com/Additional-Code/restaurant/internal/dto"
	"github.com/Additional-Code/restaurant/internal/kitchen"
	repo "github.com/Additional-Code/restaurant/internal/repository/order"
	ordersvc "github.com/Additional-Code/restaurant/internal/service/order"
	"github.com/Additional-Code/restaurant/internal/testutil"
)

func newService(t *testing.T) *ordersvc.Service {
	t.Helper()

	conns := testutil.NewTestDB(t)
	noCache, err := cache.NewStore(nil, config.Config{Cache: config.Cache{Driver: "noop"}}, zap.NewNop())
	require.NoError(t, err)

	svc, err := ordersvc.NewService(ordersvc.Params{
		Repository: repo.NewRepository(conns),
		Cache:      noCache,
		Logger:     zap.NewNop(),
		Clock:      clock.NewSystem(),
		PrepTimer:  kitchen.NewFixed(10),
	})
	require.NoError(t, err)
	return svc
}

func place(t *testing.T, svc *ordersvc.Service, tableNo int32, item string) uuid.UUID {
	t.Helper()
	id, err := svc.Submit(context.Background(), domain.RawOrder{TableNo: tableNo, Item: item, Quantity: 1})
	require.NoError(t, err)
	return id
}

func decode(t *testing.T, out *bytes.Buffer) []dto.OrderResponse {
	t.Helper()
	var orders []dto.OrderResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &orders))
	return orders
}

func TestListOrders(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	first := place(t, svc, 1, "cola")
	place(t, svc, 1, "water")
	place(t, svc, 2, "cola")

	tests := []struct {
		name string
		sel  orderSelector
		want int
	}{
		{name: "all", sel: orderSelector{}, want: 3},
		{name: "by id", sel: orderSelector{id: first.String()}, want: 1},
		{name: "by table", sel: orderSelector{tableNo: 1, hasTable: true}, want: 2},
		{name: "by table and item", sel: orderSelector{tableNo: 2, hasTable: true, item: "cola"}, want: 1},
		{name: "no match", sel: orderSelector{tableNo: 9, hasTable: true}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, listOrders(ctx, svc, &out, tt.sel))
			assert.Len(t, decode(t, &out), tt.want)
		})
	}
}

func TestListOrdersRejectsBadFlags(t *testing.T) {
	svc := newService(t)
	var out bytes.Buffer

	assert.ErrorContains(t, listOrders(context.Background(), svc, &out, orderSelector{id: "nope"}), "invalid --id")
	assert.ErrorContains(t, listOrders(context.Background(), svc, &out, orderSelector{item: "cola"}), "--item requires --table")
	assert.Zero(t, out.Len())
}

func TestDeleteOrders(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	id := place(t, svc, 4, "fries")
	place(t, svc, 4, "cola")
	place(t, svc, 4, "cola")

	var out bytes.Buffer
	require.NoError(t, deleteOrders(ctx, svc, &out, orderSelector{id: id.String()}))
	assert.Contains(t, out.String(), id.String())

	out.Reset()
	require.NoError(t, deleteOrders(ctx, svc, &out, orderSelector{tableNo: 4, hasTable: true, item: "cola"}))
	assert.Contains(t, out.String(), "deleted cola orders at table 4")

	remaining, err := svc.ByTable(ctx, 4)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	// Repeating a delete is still a success.
	require.NoError(t, deleteOrders(ctx, svc, &out, orderSelector{id: id.String()}))
}

func TestDeleteOrdersRejectsAmbiguousSelectors(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	var out bytes.Buffer

	assert.Error(t, deleteOrders(ctx, svc, &out, orderSelector{}))
	assert.Error(t, deleteOrders(ctx, svc, &out, orderSelector{tableNo: 1, hasTable: true}))
	assert.Error(t, deleteOrders(ctx, svc, &out, orderSelector{id: uuid.NewString(), tableNo: 1, hasTable: true, item: "cola"}))
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := NewRootCommand()

	for _, path := range [][]string{
		{"start"},
		{"migrate", "up"},
		{"migrate", "down"},
		{"migrate", "status"},
		{"seed"},
		{"worker", "run"},
		{"orders", "list"},
		{"orders", "delete"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}
