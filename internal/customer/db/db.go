package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ms-lounge/internal/clock"
	"ms-lounge/internal/database"
	apperrors "ms-lounge/internal/errors"
	"ms-lounge/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// Registration is everything AddUser writes in one transaction.
type Registration struct {
	User        *models.User
	SignupBonus int64
	BonusReason string
	ReferrerID  *int64
}

// ---------------- USERS ----------------

// CreateUser inserts the user with the signup grant already on the balance,
// the matching earn entry, and the referral edge when a referrer is given.
func (d *DB) CreateUser(ctx context.Context, reg Registration) error {
	u := reg.User
	u.BonusBalance = reg.SignupBonus
	u.ReferredBy = reg.ReferrerID

	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if reg.ReferrerID != nil {
			exists, err := tx.NewSelect().Model((*models.User)(nil)).Where("u.id = ?", *reg.ReferrerID).Exists(ctx)
			if err != nil {
				return fmt.Errorf("check referrer: %w", err)
			}
			if !exists {
				return apperrors.Validation("referrer %d does not exist", *reg.ReferrerID)
			}
		}

		_, err := tx.NewInsert().Model(u).Exec(ctx)
		if database.IsUniqueViolation(err) {
			return apperrors.NewAppError(apperrors.ErrCodeDuplicateRegistration,
				fmt.Sprintf("user with external id %d already registered", u.ExternalID), apperrors.ErrDuplicateRegistration)
		}
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}

		if reg.SignupBonus > 0 {
			entry := &models.BonusTransaction{
				UserID:      u.ID,
				Amount:      reg.SignupBonus,
				Kind:        models.KindEarn,
				Description: reg.BonusReason,
				CreatedAt:   u.RegisteredAt,
			}
			if _, err := tx.NewInsert().Model(entry).Exec(ctx); err != nil {
				return fmt.Errorf("insert signup bonus: %w", err)
			}
		}

		if reg.ReferrerID != nil {
			ref := &models.Referral{ReferrerID: *reg.ReferrerID, ReferredID: u.ID, CreatedAt: u.RegisteredAt}
			if _, err := tx.NewInsert().Model(ref).Exec(ctx); err != nil {
				return fmt.Errorf("insert referral: %w", err)
			}
		}
		return nil
	})
}

func (d *DB) getUser(ctx context.Context, idb bun.IDB, where string, arg any) (*models.User, error) {
	var u models.User
	err := idb.NewSelect().Model(&u).Where(where, arg).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("user", arg)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (d *DB) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return d.getUser(ctx, d.Bun, "u.id = ?", id)
}

func (d *DB) GetUserByExternalID(ctx context.Context, externalID int64) (*models.User, error) {
	return d.getUser(ctx, d.Bun, "u.external_id = ?", externalID)
}

// ListUsers returns active users, newest first.
func (d *DB) ListUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	err := d.Bun.NewSelect().Model(&users).Where("u.is_active = ?", true).Order("u.id DESC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (d *DB) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := d.Bun.NewUpdate().Model((*models.User)(nil)).Set("is_active = ?", active).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("set user %d active: %w", id, err)
	}
	if database.RowsAffected(res) == 0 {
		return apperrors.NotFound("user", id)
	}
	return nil
}

func (d *DB) RecordPurchase(ctx context.Context, userID, amount int64) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.User)(nil)).
		Set("total_spent = total_spent + ?", amount).
		Set("total_orders = total_orders + 1").
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("record purchase for user %d: %w", userID, err)
	}
	if database.RowsAffected(res) == 0 {
		return apperrors.NotFound("user", userID)
	}
	return nil
}

// ---------------- BONUS LEDGER ----------------

// applyDelta moves a balance by delta and appends the ledger entry, both on tx.
// The balance update only matches while the result stays non-negative.
func applyDelta(ctx context.Context, tx bun.Tx, userID, delta int64, kind models.TransactionKind, description string, at clock.Timestamp) (int64, error) {
	res, err := tx.NewUpdate().
		Model((*models.User)(nil)).
		Set("bonus_balance = bonus_balance + ?", delta).
		Where("id = ?", userID).
		Where("bonus_balance + ? >= 0", delta).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("update balance of user %d: %w", userID, err)
	}
	if database.RowsAffected(res) == 0 {
		exists, err := tx.NewSelect().Model((*models.User)(nil)).Where("u.id = ?", userID).Exists(ctx)
		if err != nil {
			return 0, fmt.Errorf("check user %d: %w", userID, err)
		}
		if !exists {
			return 0, apperrors.NotFound("user", userID)
		}
		return 0, apperrors.NewAppError(apperrors.ErrCodeInsufficientBalance,
			fmt.Sprintf("user %d cannot spend %d points", userID, -delta), apperrors.ErrInsufficientBalance)
	}

	entry := &models.BonusTransaction{
		UserID:      userID,
		Amount:      delta,
		Kind:        kind,
		Description: description,
		CreatedAt:   at,
	}
	if _, err := tx.NewInsert().Model(entry).Exec(ctx); err != nil {
		return 0, fmt.Errorf("insert bonus transaction: %w", err)
	}

	var balance int64
	err = tx.NewSelect().Model((*models.User)(nil)).Column("bonus_balance").Where("u.id = ?", userID).Scan(ctx, &balance)
	if err != nil {
		return 0, fmt.Errorf("read balance of user %d: %w", userID, err)
	}
	return balance, nil
}

// ApplyBonus records a signed ledger entry and returns the new balance.
func (d *DB) ApplyBonus(ctx context.Context, userID, delta int64, kind models.TransactionKind, description string, at clock.Timestamp) (int64, error) {
	var balance int64
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		balance, err = applyDelta(ctx, tx, userID, delta, kind, description, at)
		return err
	})
	return balance, err
}

// Transactions returns a user's ledger, newest first.
func (d *DB) Transactions(ctx context.Context, userID int64) ([]models.BonusTransaction, error) {
	txs := []models.BonusTransaction{}
	err := d.Bun.NewSelect().Model(&txs).Where("bt.user_id = ?", userID).Order("bt.created_at DESC", "bt.id DESC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions of user %d: %w", userID, err)
	}
	return txs, nil
}

// LedgerSum is SUM(amount) for the user, which always equals the balance.
func (d *DB) LedgerSum(ctx context.Context, userID int64) (int64, error) {
	var sum int64
	err := d.Bun.NewSelect().
		Model((*models.BonusTransaction)(nil)).
		ColumnExpr("COALESCE(SUM(bt.amount), 0)").
		Where("bt.user_id = ?", userID).
		Scan(ctx, &sum)
	if err != nil {
		return 0, fmt.Errorf("sum ledger of user %d: %w", userID, err)
	}
	return sum, nil
}

// ---------------- REFERRALS ----------------

// AwardReferral pays the referrer of referredID at most once. The flag flip
// is conditional, so a concurrent or repeated call finds nothing to update.
func (d *DB) AwardReferral(ctx context.Context, referredID, amount int64, description string, at clock.Timestamp) (referrerID int64, awarded bool, err error) {
	err = d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var ref models.Referral
		err := tx.NewSelect().Model(&ref).Where("r.referred_id = ?", referredID).Limit(1).Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get referral of user %d: %w", referredID, err)
		}
		referrerID = ref.ReferrerID

		res, err := tx.NewUpdate().
			Model((*models.Referral)(nil)).
			Set("bonus_awarded = ?", true).
			Where("id = ?", ref.ID).
			Where("bonus_awarded = ?", false).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("flag referral %d: %w", ref.ID, err)
		}
		if database.RowsAffected(res) == 0 {
			return nil
		}

		if _, err := applyDelta(ctx, tx, ref.ReferrerID, amount, models.KindEarn, description, at); err != nil {
			return err
		}
		awarded = true
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return referrerID, awarded, nil
}

func (d *DB) ReferrerStats(ctx context.Context, userID int64) (models.ReferrerStats, error) {
	var stats models.ReferrerStats
	err := d.Bun.NewSelect().
		Model((*models.Referral)(nil)).
		ColumnExpr("COUNT(*) AS total").
		ColumnExpr("COALESCE(SUM(CASE WHEN r.bonus_awarded THEN 1 ELSE 0 END), 0) AS awarded").
		Where("r.referrer_id = ?", userID).
		Scan(ctx, &stats)
	if err != nil {
		return models.ReferrerStats{}, fmt.Errorf("referrer stats of user %d: %w", userID, err)
	}
	return stats, nil
}

// ReferredUsers lists the users a referrer brought in, oldest first.
func (d *DB) ReferredUsers(ctx context.Context, referrerID int64) ([]models.User, error) {
	users := []models.User{}
	err := d.Bun.NewSelect().
		Model(&users).
		Join("JOIN referrals AS r ON r.referred_id = u.id").
		Where("r.referrer_id = ?", referrerID).
		Order("u.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("referred users of %d: %w", referrerID, err)
	}
	return users, nil
}

// ---------------- BONUS REQUESTS ----------------

func (d *DB) CreateBonusRequest(ctx context.Context, req *models.BonusRequest) error {
	_, err := d.Bun.NewInsert().Model(req).Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert bonus request: %w", err)
	}
	return nil
}

func (d *DB) GetBonusRequest(ctx context.Context, id int64) (*models.BonusRequest, error) {
	var req models.BonusRequest
	err := d.Bun.NewSelect().Model(&req).Where("br.id = ?", id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("bonus request", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get bonus request %d: %w", id, err)
	}
	return &req, nil
}

// ListBonusRequests returns requests with the given status joined with the
// requester's name, newest first.
func (d *DB) ListBonusRequests(ctx context.Context, status models.BonusRequestStatus) ([]models.BonusRequest, error) {
	reqs := []models.BonusRequest{}
	err := d.Bun.NewSelect().
		Model(&reqs).
		ColumnExpr("br.*").
		ColumnExpr("u.first_name, u.last_name").
		Join("JOIN users AS u ON u.id = br.user_id").
		Where("br.status = ?", status).
		Order("br.created_at DESC", "br.id DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bonus requests: %w", err)
	}
	return reqs, nil
}

// ResolveBonusRequest moves a pending request to approved or rejected.
// Approval debits the user's balance in the same transaction; if the balance
// is short, nothing changes and the request stays pending.
func (d *DB) ResolveBonusRequest(ctx context.Context, id int64, status models.BonusRequestStatus, description string, at clock.Timestamp) (*models.BonusRequest, error) {
	var req models.BonusRequest
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().Model(&req).Where("br.id = ?", id).Limit(1).Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("bonus request", id)
		}
		if err != nil {
			return fmt.Errorf("get bonus request %d: %w", id, err)
		}
		if req.Status != models.BonusRequestPending {
			return apperrors.NewAppError(apperrors.ErrCodeInvalidTransition,
				fmt.Sprintf("bonus request %d is already %s", id, req.Status), apperrors.ErrInvalidTransition)
		}

		if status == models.BonusRequestApproved {
			if _, err := applyDelta(ctx, tx, req.UserID, -req.Amount, models.KindSpend, description, at); err != nil {
				return err
			}
		}

		res, err := tx.NewUpdate().
			Model((*models.BonusRequest)(nil)).
			Set("status = ?", status).
			Set("resolved_at = ?", at).
			Where("id = ?", id).
			Where("status = ?", models.BonusRequestPending).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update bonus request %d: %w", id, err)
		}
		if database.RowsAffected(res) == 0 {
			return apperrors.NewAppError(apperrors.ErrCodeInvalidTransition,
				fmt.Sprintf("bonus request %d is no longer pending", id), apperrors.ErrInvalidTransition)
		}
		req.Status = status
		req.ResolvedAt = at
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}
