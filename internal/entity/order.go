package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Order is a placed order as stored in the orders table. ID, PreparationTime
// and PlacedAt are assigned by the server at insert time.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID              uuid.UUID `bun:"id,pk"`
	TableNo         int32     `bun:"table_no,notnull"`
	Item            string    `bun:"item,notnull"`
	Quantity        int32     `bun:"quantity,notnull"`
	PreparationTime int32     `bun:"preparation_time,notnull"`
	PlacedAt        time.Time `bun:"placed_at,notnull"`
}
