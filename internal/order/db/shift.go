package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"ms-lounge/internal/clock"
	"ms-lounge/internal/database"
	apperrors "ms-lounge/internal/errors"
	"ms-lounge/internal/models"

	"github.com/uptrace/bun"
)

// ---------------- SHIFTS ----------------

func nextShiftNumber(ctx context.Context, idb bun.IDB, monthYear string) (int, error) {
	var next int
	err := idb.NewSelect().
		Model((*models.Shift)(nil)).
		ColumnExpr("COALESCE(MAX(s.shift_number), 0) + 1").
		Where("s.month_year = ?", monthYear).
		Scan(ctx, &next)
	if err != nil {
		return 0, fmt.Errorf("next shift number for %s: %w", monthYear, err)
	}
	return next, nil
}

// NextShiftNumber is MAX(shift_number)+1 within the period, 1 for a new period.
func (d *DB) NextShiftNumber(ctx context.Context, monthYear string) (int, error) {
	return nextShiftNumber(ctx, d.Bun, monthYear)
}

func shiftAlreadyOpen() error {
	return apperrors.NewAppError(apperrors.ErrCodeShiftAlreadyOpen, "a shift is already open", apperrors.ErrShiftAlreadyOpen)
}

// OpenShift allocates the next number and inserts the open shift in one
// transaction. Callers serialise it with a shift lock; the unique indexes
// are the last line of defence and surface as conflicts.
func (d *DB) OpenShift(ctx context.Context, staffID int64, monthYear string, at clock.Timestamp) (*models.Shift, error) {
	var shift models.Shift
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		open, err := tx.NewSelect().Model((*models.Shift)(nil)).Where("s.status = ?", models.ShiftOpen).Exists(ctx)
		if err != nil {
			return fmt.Errorf("check open shift: %w", err)
		}
		if open {
			return shiftAlreadyOpen()
		}

		number, err := nextShiftNumber(ctx, tx, monthYear)
		if err != nil {
			return err
		}

		shift = models.Shift{
			ShiftNumber: number,
			MonthYear:   monthYear,
			StaffID:     staffID,
			OpenedAt:    at,
			Status:      models.ShiftOpen,
		}
		_, err = tx.NewInsert().Model(&shift).Exec(ctx)
		if database.IsUniqueViolation(err) {
			return apperrors.NewAppError(apperrors.ErrCodeShiftNumberUnavailable,
				fmt.Sprintf("shift %d/%s was taken concurrently", number, monthYear), apperrors.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("insert shift: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &shift, nil
}

func (d *DB) GetActiveShift(ctx context.Context) (*models.Shift, error) {
	var shift models.Shift
	err := d.Bun.NewSelect().
		Model(&shift).
		Where("s.status = ?", models.ShiftOpen).
		Order("s.opened_at DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("shift", "open")
	}
	if err != nil {
		return nil, fmt.Errorf("get active shift: %w", err)
	}
	return &shift, nil
}

func getShift(ctx context.Context, idb bun.IDB, number int, monthYear string) (*models.Shift, error) {
	var shift models.Shift
	err := idb.NewSelect().
		Model(&shift).
		Where("s.shift_number = ?", number).
		Where("s.month_year = ?", monthYear).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("shift", fmt.Sprintf("%d/%s", number, monthYear))
	}
	if err != nil {
		return nil, fmt.Errorf("get shift %d/%s: %w", number, monthYear, err)
	}
	return &shift, nil
}

func (d *DB) GetShift(ctx context.Context, number int, monthYear string) (*models.Shift, error) {
	return getShift(ctx, d.Bun, number, monthYear)
}

func (d *DB) ListShiftsByMonth(ctx context.Context, monthYear string) ([]models.Shift, error) {
	shifts := []models.Shift{}
	err := d.Bun.NewSelect().
		Model(&shifts).
		Where("s.month_year = ?", monthYear).
		Order("s.shift_number ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list shifts of %s: %w", monthYear, err)
	}
	return shifts, nil
}

func closeShift(ctx context.Context, tx bun.Tx, shift *models.Shift, revenue, orders int64, at clock.Timestamp) error {
	res, err := tx.NewUpdate().
		Model((*models.Shift)(nil)).
		Set("status = ?", models.ShiftClosed).
		Set("closed_at = ?", at).
		Set("total_revenue = ?", revenue).
		Set("total_orders = ?", orders).
		Where("id = ?", shift.ID).
		Where("status = ?", models.ShiftOpen).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("close shift %d/%s: %w", shift.ShiftNumber, shift.MonthYear, err)
	}
	if database.RowsAffected(res) == 0 {
		return apperrors.NewAppError(apperrors.ErrCodeInvalidTransition,
			fmt.Sprintf("shift %d/%s is already closed", shift.ShiftNumber, shift.MonthYear), apperrors.ErrInvalidTransition)
	}
	shift.Status = models.ShiftClosed
	shift.ClosedAt = at
	shift.TotalRevenue = revenue
	shift.TotalOrders = orders
	return nil
}

func saveSales(ctx context.Context, tx bun.Tx, shiftID int64, sales map[string]models.ItemSales) error {
	if _, err := tx.NewDelete().Model((*models.ShiftSale)(nil)).Where("shift_id = ?", shiftID).Exec(ctx); err != nil {
		return fmt.Errorf("clear shift sales: %w", err)
	}
	if len(sales) == 0 {
		return nil
	}

	names := make([]string, 0, len(sales))
	for name := range sales {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]models.ShiftSale, 0, len(sales))
	for _, name := range names {
		rows = append(rows, models.ShiftSale{
			ShiftID:     shiftID,
			ItemName:    name,
			Quantity:    sales[name].Quantity,
			TotalAmount: sales[name].Amount,
		})
	}
	if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("insert shift sales: %w", err)
	}
	return nil
}

// CloseShift stores caller-computed totals on an open shift.
func (d *DB) CloseShift(ctx context.Context, number int, monthYear string, revenue, orders int64, at clock.Timestamp) (*models.Shift, error) {
	var shift *models.Shift
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		if shift, err = getShift(ctx, tx, number, monthYear); err != nil {
			return err
		}
		return closeShift(ctx, tx, shift, revenue, orders, at)
	})
	if err != nil {
		return nil, err
	}
	return shift, nil
}

// SaveShiftSales replaces the stored per-item sales of a shift.
func (d *DB) SaveShiftSales(ctx context.Context, number int, monthYear string, sales map[string]models.ItemSales) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		shift, err := getShift(ctx, tx, number, monthYear)
		if err != nil {
			return err
		}
		return saveSales(ctx, tx, shift.ID, sales)
	})
}

// FinishShift closes the shift and stores its sales together.
func (d *DB) FinishShift(ctx context.Context, shift *models.Shift, summary models.ShiftSummary, at clock.Timestamp) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := closeShift(ctx, tx, shift, summary.Revenue, summary.Orders, at); err != nil {
			return err
		}
		return saveSales(ctx, tx, shift.ID, summary.Sales)
	})
}

// Summarize rolls up the closed orders created in [from, to].
func (d *DB) Summarize(ctx context.Context, from, to clock.Timestamp) (models.ShiftSummary, error) {
	summary := models.ShiftSummary{Sales: map[string]models.ItemSales{}}

	count, err := windowFilter(d.Bun.NewSelect().Model((*models.Order)(nil)), from, to).
		Where("o.status = ?", models.OrderClosed).
		Count(ctx)
	if err != nil {
		return summary, fmt.Errorf("count shift orders: %w", err)
	}
	summary.Orders = int64(count)

	var rows []models.SalesRow
	err = windowFilter(d.Bun.NewSelect().Model((*models.Order)(nil)), from, to).
		ColumnExpr("oi.item_name AS item_name").
		ColumnExpr("SUM(oi.quantity) AS quantity").
		ColumnExpr("SUM(oi.price * oi.quantity) AS total_amount").
		Join("JOIN order_items AS oi ON oi.order_id = o.id").
		Where("o.status = ?", models.OrderClosed).
		Group("oi.item_name").
		Scan(ctx, &rows)
	if err != nil {
		return summary, fmt.Errorf("sum shift sales: %w", err)
	}
	for _, row := range rows {
		summary.Sales[row.ItemName] = models.ItemSales{Quantity: row.Quantity, Amount: row.TotalAmount}
		summary.Revenue += row.TotalAmount
	}
	return summary, nil
}
