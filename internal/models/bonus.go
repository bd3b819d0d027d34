package models

import (
	"ms-lounge/internal/clock"

	"github.com/uptrace/bun"
)

type TransactionKind string

const (
	KindEarn  TransactionKind = "earn"
	KindSpend TransactionKind = "spend"
)

// BonusTransaction is an append-only ledger entry. Amount is signed:
// positive for earn, negative for spend.
type BonusTransaction struct {
	bun.BaseModel `bun:"table:bonus_transactions,alias:bt"`

	ID          int64           `bun:"id,pk,autoincrement" json:"id"`
	UserID      int64           `bun:"user_id,notnull" json:"user_id"`
	Amount      int64           `bun:"amount,notnull" json:"amount"`
	Kind        TransactionKind `bun:"kind,notnull" json:"kind"`
	Description string          `bun:"description,notnull" json:"description"`
	CreatedAt   clock.Timestamp `bun:"created_at,notnull" json:"created_at"`
}

type Referral struct {
	bun.BaseModel `bun:"table:referrals,alias:r"`

	ID           int64           `bun:"id,pk,autoincrement" json:"id"`
	ReferrerID   int64           `bun:"referrer_id,notnull" json:"referrer_id"`
	ReferredID   int64           `bun:"referred_id,notnull,unique" json:"referred_id"`
	BonusAwarded bool            `bun:"bonus_awarded,notnull" json:"bonus_awarded"`
	CreatedAt    clock.Timestamp `bun:"created_at,notnull" json:"created_at"`
}

type ReferrerStats struct {
	Total   int `bun:"total" json:"total"`
	Awarded int `bun:"awarded" json:"awarded"`
}

type BonusRequestStatus string

const (
	BonusRequestPending  BonusRequestStatus = "pending"
	BonusRequestApproved BonusRequestStatus = "approved"
	BonusRequestRejected BonusRequestStatus = "rejected"
)

// BonusRequest is a customer's ask to redeem points, resolved by an admin.
type BonusRequest struct {
	bun.BaseModel `bun:"table:bonus_requests,alias:br"`

	ID         int64              `bun:"id,pk,autoincrement" json:"id"`
	UserID     int64              `bun:"user_id,notnull" json:"user_id"`
	Amount     int64              `bun:"amount,notnull" json:"amount"`
	Status     BonusRequestStatus `bun:"status,notnull" json:"status"`
	CreatedAt  clock.Timestamp    `bun:"created_at,notnull" json:"created_at"`
	ResolvedAt clock.Timestamp    `bun:"resolved_at,nullzero" json:"resolved_at"`

	FirstName string `bun:"first_name,scanonly" json:"first_name,omitempty"`
	LastName  string `bun:"last_name,scanonly" json:"last_name,omitempty"`
}
