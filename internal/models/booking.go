package models

import (
	"ms-lounge/internal/clock"

	"github.com/uptrace/bun"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

type Booking struct {
	bun.BaseModel `bun:"table:bookings,alias:b"`

	ID            int64           `bun:"id,pk,autoincrement" json:"id"`
	UserID        *int64          `bun:"user_id" json:"user_id,omitempty"`
	CustomerName  string          `bun:"customer_name,notnull" json:"customer_name"`
	CustomerPhone string          `bun:"customer_phone,notnull" json:"customer_phone"`
	BookingDate   string          `bun:"booking_date,notnull" json:"booking_date"`
	BookingTime   string          `bun:"booking_time,notnull" json:"booking_time"`
	Guests        int             `bun:"guests,notnull" json:"guests"`
	Comment       string          `bun:"comment,notnull" json:"comment"`
	Status        BookingStatus   `bun:"status,notnull" json:"status"`
	CreatedAt     clock.Timestamp `bun:"created_at,notnull" json:"created_at"`
	Source        string          `bun:"source,notnull" json:"source"`
}

type BookingStats struct {
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Cancelled int `json:"cancelled"`
	Total     int `json:"total"`
}
