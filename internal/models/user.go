package models

import (
	"ms-lounge/internal/clock"

	"github.com/uptrace/bun"
)

// User is a loyalty-program member identified by their chat-platform id.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int64           `bun:"id,pk,autoincrement" json:"id"`
	ExternalID   int64           `bun:"external_id,notnull,unique" json:"external_id"`
	FirstName    string          `bun:"first_name,notnull" json:"first_name"`
	LastName     string          `bun:"last_name,notnull" json:"last_name"`
	Phone        string          `bun:"phone,notnull" json:"phone"`
	BonusBalance int64           `bun:"bonus_balance,notnull" json:"bonus_balance"`
	RegisteredAt clock.Timestamp `bun:"registered_at,notnull" json:"registered_at"`
	IsActive     bool            `bun:"is_active,notnull" json:"is_active"`
	ReferredBy   *int64          `bun:"referred_by" json:"referred_by,omitempty"`
	TotalSpent   int64           `bun:"total_spent,notnull" json:"total_spent"`
	TotalOrders  int64           `bun:"total_orders,notnull" json:"total_orders"`
}

func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
