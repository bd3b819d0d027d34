package models

import (
	"ms-lounge/internal/clock"

	"github.com/uptrace/bun"
)

type ShiftStatus string

const (
	ShiftOpen   ShiftStatus = "open"
	ShiftClosed ShiftStatus = "closed"
)

// Shift is a cashier working period. ShiftNumber restarts at 1 every MonthYear.
type Shift struct {
	bun.BaseModel `bun:"table:shifts,alias:s"`

	ID           int64           `bun:"id,pk,autoincrement" json:"id"`
	ShiftNumber  int             `bun:"shift_number,notnull" json:"shift_number"`
	MonthYear    string          `bun:"month_year,notnull" json:"month_year"`
	StaffID      int64           `bun:"staff_id,notnull" json:"staff_id"`
	OpenedAt     clock.Timestamp `bun:"opened_at,notnull" json:"opened_at"`
	ClosedAt     clock.Timestamp `bun:"closed_at,nullzero" json:"closed_at"`
	TotalRevenue int64           `bun:"total_revenue,notnull" json:"total_revenue"`
	TotalOrders  int64           `bun:"total_orders,notnull" json:"total_orders"`
	Status       ShiftStatus     `bun:"status,notnull" json:"status"`
}

type ShiftSale struct {
	bun.BaseModel `bun:"table:shift_sales,alias:ss"`

	ID          int64  `bun:"id,pk,autoincrement" json:"id"`
	ShiftID     int64  `bun:"shift_id,notnull" json:"shift_id"`
	ItemName    string `bun:"item_name,notnull" json:"item_name"`
	Quantity    int64  `bun:"quantity,notnull" json:"quantity"`
	TotalAmount int64  `bun:"total_amount,notnull" json:"total_amount"`
}

// ItemSales is the per-item rollup a shift close stores.
type ItemSales struct {
	Quantity int64 `json:"quantity"`
	Amount   int64 `json:"amount"`
}

type ShiftSummary struct {
	Revenue int64                `json:"revenue"`
	Orders  int64                `json:"orders"`
	Sales   map[string]ItemSales `json:"sales"`
}
