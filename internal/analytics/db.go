package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"ms-lounge/internal/clock"
	apperrors "ms-lounge/internal/errors"
	"ms-lounge/internal/models"

	"github.com/uptrace/bun"
)

// DB runs the read-only reporting queries.
type DB struct {
	bun *bun.DB
}

func NewDB(db *bun.DB) *DB {
	return &DB{bun: db}
}

// Period selects rows by time. Prefix matches the leading characters of the
// period column ("2024" or "2024-01"); From and To bound it inclusively.
// Zero fields do not filter.
type Period struct {
	Prefix string
	From   clock.Timestamp
	To     clock.Timestamp
}

// where renders the period against a text column. Shift queries pass
// month_year as the prefix column so explicit periods follow the shift's key.
func (p Period) where(prefixCol, timeCol string) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if p.Prefix != "" {
		conds = append(conds, fmt.Sprintf("substr(%s, 1, %d) = ?", prefixCol, len(p.Prefix)))
		args = append(args, p.Prefix)
	}
	if !p.From.IsZero() {
		conds = append(conds, timeCol+" >= ?")
		args = append(args, p.From)
	}
	if !p.To.IsZero() {
		conds = append(conds, timeCol+" <= ?")
		args = append(args, p.To)
	}
	if len(conds) == 0 {
		return "1 = 1", nil
	}
	return strings.Join(conds, " AND "), args
}

// TotalRevenue sums total_revenue of the closed shifts in the period.
func (db *DB) TotalRevenue(ctx context.Context, p Period) (int64, error) {
	cond, args := p.where("s.month_year", "s.opened_at")
	var total int64
	err := db.bun.NewRaw(`
		SELECT COALESCE(SUM(s.total_revenue), 0)
		FROM shifts AS s
		WHERE s.status = 'closed' AND `+cond, args...).
		Scan(ctx, &total)
	if err != nil {
		return 0, fmt.Errorf("total revenue: %w", err)
	}
	return total, nil
}

// SalesStatistics aggregates stored shift sales per item, best sellers first.
func (db *DB) SalesStatistics(ctx context.Context, p Period) ([]models.SalesRow, error) {
	cond, args := p.where("s.month_year", "s.opened_at")
	rows := []models.SalesRow{}
	err := db.bun.NewRaw(`
		SELECT ss.item_name AS item_name,
		       SUM(ss.quantity) AS quantity,
		       SUM(ss.total_amount) AS total_amount
		FROM shift_sales AS ss
		JOIN shifts AS s ON s.id = ss.shift_id
		WHERE s.status = 'closed' AND `+cond+`
		GROUP BY ss.item_name
		ORDER BY total_amount DESC, ss.item_name ASC`, args...).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("sales statistics: %w", err)
	}
	return rows, nil
}

func (db *DB) ShiftSales(ctx context.Context, number int, monthYear string) ([]models.SalesRow, error) {
	rows := []models.SalesRow{}
	err := db.bun.NewRaw(`
		SELECT ss.item_name AS item_name,
		       ss.quantity AS quantity,
		       ss.total_amount AS total_amount
		FROM shift_sales AS ss
		JOIN shifts AS s ON s.id = ss.shift_id
		WHERE s.shift_number = ? AND s.month_year = ?
		ORDER BY ss.total_amount DESC, ss.item_name ASC`, number, monthYear).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("sales of shift %d/%s: %w", number, monthYear, err)
	}
	return rows, nil
}

// SpentBonuses is the positive total of spend entries created in the period.
func (db *DB) SpentBonuses(ctx context.Context, p Period) (int64, error) {
	cond, args := p.where("bt.created_at", "bt.created_at")
	var spent int64
	err := db.bun.NewRaw(`
		SELECT COALESCE(-SUM(bt.amount), 0)
		FROM bonus_transactions AS bt
		WHERE bt.kind = 'spend' AND `+cond, args...).
		Scan(ctx, &spent)
	if err != nil {
		return 0, fmt.Errorf("spent bonuses: %w", err)
	}
	return spent, nil
}

type paymentRow struct {
	Method      string `bun:"method"`
	Count       int64  `bun:"count"`
	TotalAmount int64  `bun:"total_amount"`
}

// PaymentStatistics groups closed orders created in the period by payment
// method. Orders closed without a method are left out.
func (db *DB) PaymentStatistics(ctx context.Context, p Period) (map[string]models.PaymentStat, error) {
	cond, args := p.where("o.created_at", "o.created_at")
	var rows []paymentRow
	err := db.bun.NewRaw(`
		SELECT o.payment_method AS method,
		       COUNT(DISTINCT o.id) AS count,
		       COALESCE(SUM(oi.price * oi.quantity), 0) AS total_amount
		FROM orders AS o
		LEFT JOIN order_items AS oi ON oi.order_id = o.id
		WHERE o.status = 'closed'
		  AND o.payment_method IS NOT NULL AND o.payment_method <> ''
		  AND `+cond+`
		GROUP BY o.payment_method`, args...).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("payment statistics: %w", err)
	}

	stats := make(map[string]models.PaymentStat, len(rows))
	for _, r := range rows {
		stats[r.Method] = models.PaymentStat{Count: r.Count, TotalAmount: r.TotalAmount}
	}
	return stats, nil
}

func (db *DB) ShiftYears(ctx context.Context) ([]string, error) {
	years := []string{}
	err := db.bun.NewRaw(`
		SELECT DISTINCT substr(s.month_year, 1, 4) AS year
		FROM shifts AS s
		WHERE s.status = 'closed'
		ORDER BY year DESC`).
		Scan(ctx, &years)
	if err != nil {
		return nil, fmt.Errorf("shift years: %w", err)
	}
	return years, nil
}

func (db *DB) ShiftMonths(ctx context.Context, year string) ([]string, error) {
	months := []string{}
	err := db.bun.NewRaw(`
		SELECT DISTINCT s.month_year
		FROM shifts AS s
		WHERE s.status = 'closed' AND substr(s.month_year, 1, 4) = ?
		ORDER BY s.month_year DESC`, year).
		Scan(ctx, &months)
	if err != nil {
		return nil, fmt.Errorf("shift months of %s: %w", year, err)
	}
	return months, nil
}

// ClosedShifts lists the closed shifts in the period, newest first.
func (db *DB) ClosedShifts(ctx context.Context, p Period) ([]models.Shift, error) {
	cond, args := p.where("s.month_year", "s.opened_at")
	shifts := []models.Shift{}
	err := db.bun.NewSelect().
		Model(&shifts).
		Where("s.status = ?", models.ShiftClosed).
		Where(cond, args...).
		Order("s.opened_at DESC", "s.id DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("closed shifts: %w", err)
	}
	return shifts, nil
}

func (db *DB) Shift(ctx context.Context, number int, monthYear string) (*models.Shift, error) {
	var shift models.Shift
	err := db.bun.NewSelect().
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
