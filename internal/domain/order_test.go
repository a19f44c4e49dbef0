package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/restaurant/internal/domain"
)

func TestParseOrder(t *testing.T) {
	tests := []struct {
		name      string
		raw       domain.RawOrder
		wantField string
	}{
		{
			name: "valid order",
			raw:  domain.RawOrder{TableNo: 1, Item: "hamburger", Quantity: 1},
		},
		{
			name: "zero table and quantity",
			raw:  domain.RawOrder{TableNo: 0, Item: "water", Quantity: 0},
		},
		{
			name:      "negative table",
			raw:       domain.RawOrder{TableNo: -1, Item: "hamburger", Quantity: 1},
			wantField: "table_no",
		},
		{
			name:      "unknown item",
			raw:       domain.RawOrder{TableNo: 1, Item: "unicorn", Quantity: 1},
			wantField: "item",
		},
		{
			name:      "negative quantity",
			raw:       domain.RawOrder{TableNo: 1, Item: "fries", Quantity: -3},
			wantField: "quantity",
		},
		{
			name:      "first failing field wins",
			raw:       domain.RawOrder{TableNo: -1, Item: "unicorn", Quantity: -1},
			wantField: "table_no",
		},
		{
			name:      "item checked before quantity",
			raw:       domain.RawOrder{TableNo: 2, Item: "", Quantity: -1},
			wantField: "item",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := domain.ParseOrder(tt.raw)
			if tt.wantField != "" {
				var vErr *domain.ValidationError
				require.ErrorAs(t, err, &vErr)
				assert.Equal(t, tt.wantField, vErr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.raw.TableNo, req.TableNo.Int32())
			assert.Equal(t, tt.raw.Item, req.Item.String())
			assert.Equal(t, tt.raw.Quantity, req.Quantity.Int32())
		})
	}
}

func TestNewOrderFrom(t *testing.T) {
	req, err := domain.ParseOrder(domain.RawOrder{TableNo: 4, Item: "cola", Quantity: 2})
	require.NoError(t, err)
	prep, err := domain.ParseQuantity(7)
	require.NoError(t, err)

	order := domain.NewOrderFrom(req, prep)

	assert.Equal(t, int32(4), order.TableNo.Int32())
	assert.Equal(t, "cola", order.Item.String())
	assert.Equal(t, int32(2), order.Quantity.Int32())
	assert.Equal(t, int32(7), order.PreparationTime.Int32())
}
