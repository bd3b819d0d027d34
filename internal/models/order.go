package models

import (
	"ms-lounge/internal/clock"

	"github.com/uptrace/bun"
)

type OrderStatus string

const (
	OrderActive OrderStatus = "active"
	OrderClosed OrderStatus = "closed"
)

// Order is a table's tab. At most one active order exists per table.
type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID            int64           `bun:"id,pk,autoincrement" json:"id"`
	TableNumber   int             `bun:"table_number,notnull" json:"table_number"`
	StaffID       int64           `bun:"staff_id,notnull" json:"staff_id"`
	Status        OrderStatus     `bun:"status,notnull" json:"status"`
	CreatedAt     clock.Timestamp `bun:"created_at,notnull" json:"created_at"`
	ClosedAt      clock.Timestamp `bun:"closed_at,nullzero" json:"closed_at"`
	PaymentMethod string          `bun:"payment_method,nullzero" json:"payment_method,omitempty"`

	// OwnerName is filled by listings that join the staff member's user row.
	OwnerName string `bun:"owner_name,scanonly" json:"owner_name,omitempty"`
}

type OrderItem struct {
	bun.BaseModel `bun:"table:order_items,alias:oi"`

	ID       int64           `bun:"id,pk,autoincrement" json:"id"`
	OrderID  int64           `bun:"order_id,notnull" json:"order_id"`
	ItemName string          `bun:"item_name,notnull" json:"item_name"`
	Price    int64           `bun:"price,notnull" json:"price"`
	Quantity int64           `bun:"quantity,notnull" json:"quantity"`
	AddedAt  clock.Timestamp `bun:"added_at,notnull" json:"added_at"`
}

func (i OrderItem) LineTotal() int64 {
	return i.Price * i.Quantity
}

// Receipt is a closed order with its lines. Total is always derived from Items.
type Receipt struct {
	Order Order       `json:"order"`
	Items []OrderItem `json:"items"`
	Total int64       `json:"total"`
}

func ItemsTotal(items []OrderItem) int64 {
	var total int64
	for _, item := range items {
		total += item.LineTotal()
	}
	return total
}
