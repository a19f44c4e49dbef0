package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/Additional-Code/restaurant/internal/entity"
)

// OrderResponse represents a stored order as exposed via transport layers.
type OrderResponse struct {
	ID              uuid.UUID `json:"id"`
	TableNo         int32     `json:"table_no"`
	Item            string    `json:"item"`
	Quantity        int32     `json:"quantity"`
	PreparationTime int32     `json:"preparation_time"`
	PlacedAt        time.Time `json:"placed_at"`
}

// OrderPlacedResponse is returned after a successful submission.
type OrderPlacedResponse struct {
	ID uuid.UUID `json:"id"`
}

// FromOrder maps a stored order onto its wire form.
func FromOrder(order entity.Order) OrderResponse {
	return OrderResponse{
		ID:              order.ID,
		TableNo:         order.TableNo,
		Item:            order.Item,
		Quantity:        order.Quantity,
		PreparationTime: order.PreparationTime,
		PlacedAt:        order.PlacedAt,
	}
}

// FromOrders maps a result set, keeping an empty set as an empty list.
func FromOrders(orders []entity.Order) []OrderResponse {
	return lo.Map(orders, func(order entity.Order, _ int) OrderResponse {
		return FromOrder(order)
	})
}
