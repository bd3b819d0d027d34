package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ms-lounge/internal/database"
	apperrors "ms-lounge/internal/errors"
	"ms-lounge/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- BOOKINGS ----------------

func (d *DB) CreateBooking(ctx context.Context, b *models.Booking) error {
	if _, err := d.Bun.NewInsert().Model(b).Exec(ctx); err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (d *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	var b models.Booking
	err := d.Bun.NewSelect().Model(&b).Where("b.id = ?", id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("booking", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get booking %d: %w", id, err)
	}
	return &b, nil
}

// UpdateStatus moves a booking from one status to another. It only matches
// the row while it still has the expected status, so a concurrent change
// makes it report InvalidTransition instead of overwriting.
func (d *DB) UpdateStatus(ctx context.Context, id int64, from, to models.BookingStatus) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("status = ?", to).
		Where("id = ?", id).
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update booking %d status: %w", id, err)
	}
	if database.RowsAffected(res) == 0 {
		return apperrors.NewAppError(apperrors.ErrCodeInvalidTransition,
			fmt.Sprintf("booking %d is no longer %s", id, from), apperrors.ErrInvalidTransition)
	}
	return nil
}

func (d *DB) list(ctx context.Context, apply func(*bun.SelectQuery) *bun.SelectQuery) ([]models.Booking, error) {
	bookings := []models.Booking{}
	q := apply(d.Bun.NewSelect().Model(&bookings))
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

func (d *DB) ListByStatus(ctx context.Context, status models.BookingStatus) ([]models.Booking, error) {
	return d.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("b.status = ?", status).Order("b.booking_date ASC", "b.booking_time ASC", "b.id ASC")
	})
}

func (d *DB) ListByDate(ctx context.Context, date string) ([]models.Booking, error) {
	return d.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("b.booking_date = ?", date).Order("b.booking_time ASC", "b.id ASC")
	})
}

func (d *DB) ListAll(ctx context.Context) ([]models.Booking, error) {
	return d.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Order("b.booking_date ASC", "b.booking_time ASC", "b.id ASC")
	})
}

// ListByUser returns a customer's bookings, newest first.
func (d *DB) ListByUser(ctx context.Context, userID int64) ([]models.Booking, error) {
	return d.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("b.user_id = ?", userID).Order("b.created_at DESC", "b.id DESC")
	})
}

func (d *DB) Stats(ctx context.Context) (models.BookingStats, error) {
	var rows []struct {
		Status models.BookingStatus `bun:"status"`
		Count  int                  `bun:"count"`
	}
	err := d.Bun.NewSelect().
		Model((*models.Booking)(nil)).
		ColumnExpr("b.status AS status").
		ColumnExpr("COUNT(*) AS count").
		Group("b.status").
		Scan(ctx, &rows)
	if err != nil {
		return models.BookingStats{}, fmt.Errorf("booking stats: %w", err)
	}

	var stats models.BookingStats
	for _, row := range rows {
		switch row.Status {
		case models.BookingPending:
			stats.Pending = row.Count
		case models.BookingConfirmed:
			stats.Confirmed = row.Count
		case models.BookingCancelled:
			stats.Cancelled = row.Count
		}
		stats.Total += row.Count
	}
	return stats, nil
}

// Dates returns the distinct booking dates in ascending order.
func (d *DB) Dates(ctx context.Context) ([]string, error) {
	dates := []string{}
	err := d.Bun.NewSelect().
		Model((*models.Booking)(nil)).
		ColumnExpr("DISTINCT b.booking_date").
		OrderExpr("b.booking_date ASC").
		Scan(ctx, &dates)
	if err != nil {
		return nil, fmt.Errorf("booking dates: %w", err)
	}
	return dates, nil
}
