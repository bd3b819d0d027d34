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

// ownerColumns joins the staff member's name. staff_id holds the external
// chat id, so the join is on users.external_id.
const ownerColumns = "TRIM(COALESCE(u.first_name, '') || ' ' || COALESCE(u.last_name, '')) AS owner_name"

// ---------------- ORDERS ----------------

// CreateOrder inserts an active order. A second active order for the same
// table hits the partial unique index and is reported as TABLE_OCCUPIED.
func (d *DB) CreateOrder(ctx context.Context, o *models.Order) error {
	_, err := d.Bun.NewInsert().Model(o).Exec(ctx)
	if database.IsUniqueViolation(err) {
		return apperrors.NewAppError(apperrors.ErrCodeTableOccupied,
			fmt.Sprintf("table %d already has an active order", o.TableNumber), apperrors.ErrTableOccupied)
	}
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func getOrder(ctx context.Context, idb bun.IDB, id int64) (*models.Order, error) {
	var o models.Order
	err := idb.NewSelect().Model(&o).Where("o.id = ?", id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("order", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	return &o, nil
}

func (d *DB) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	return getOrder(ctx, d.Bun, id)
}

func (d *DB) GetActiveOrderByTable(ctx context.Context, table int) (*models.Order, error) {
	var o models.Order
	err := d.Bun.NewSelect().
		Model(&o).
		Where("o.table_number = ?", table).
		Where("o.status = ?", models.OrderActive).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("active order for table", table)
	}
	if err != nil {
		return nil, fmt.Errorf("get active order for table %d: %w", table, err)
	}
	return &o, nil
}

// requireActive loads the order on tx and fails unless it is still open.
func requireActive(ctx context.Context, tx bun.Tx, orderID int64) (*models.Order, error) {
	o, err := getOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != models.OrderActive {
		return nil, apperrors.NewAppError(apperrors.ErrCodeInvalidTransition,
			fmt.Sprintf("order %d is %s", orderID, o.Status), apperrors.ErrInvalidTransition)
	}
	return o, nil
}

// AddItem appends a line or increases the quantity of an existing one.
// The unit price captured by the first insert is kept.
func (d *DB) AddItem(ctx context.Context, orderID int64, name string, price, qty int64, at clock.Timestamp) (*models.OrderItem, error) {
	var item models.OrderItem
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := requireActive(ctx, tx, orderID); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, item_name, price, quantity, added_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (order_id, item_name) DO UPDATE SET quantity = order_items.quantity + excluded.quantity`,
			orderID, name, price, qty, at)
		if err != nil {
			return fmt.Errorf("upsert order item: %w", err)
		}

		return tx.NewSelect().
			Model(&item).
			Where("oi.order_id = ?", orderID).
			Where("oi.item_name = ?", name).
			Limit(1).
			Scan(ctx)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// RemoveOneUnit decrements a line, deleting it when the last unit goes.
// It returns the quantity left.
func (d *DB) RemoveOneUnit(ctx context.Context, orderID int64, name string) (int64, error) {
	var remaining int64
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := requireActive(ctx, tx, orderID); err != nil {
			return err
		}

		var item models.OrderItem
		err := tx.NewSelect().
			Model(&item).
			Where("oi.order_id = ?", orderID).
			Where("oi.item_name = ?", name).
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("order item", name)
		}
		if err != nil {
			return fmt.Errorf("get order item: %w", err)
		}

		if item.Quantity > 1 {
			_, err = tx.NewUpdate().
				Model((*models.OrderItem)(nil)).
				Set("quantity = quantity - 1").
				Where("id = ?", item.ID).
				Exec(ctx)
			remaining = item.Quantity - 1
		} else {
			_, err = tx.NewDelete().
				Model((*models.OrderItem)(nil)).
				Where("id = ?", item.ID).
				Exec(ctx)
		}
		if err != nil {
			return fmt.Errorf("remove unit of %q: %w", name, err)
		}
		return nil
	})
	return remaining, err
}

func items(ctx context.Context, idb bun.IDB, orderID int64) ([]models.OrderItem, error) {
	lines := []models.OrderItem{}
	err := idb.NewSelect().
		Model(&lines).
		Where("oi.order_id = ?", orderID).
		Order("oi.added_at ASC", "oi.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items of order %d: %w", orderID, err)
	}
	return lines, nil
}

func (d *DB) Items(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	return items(ctx, d.Bun, orderID)
}

// OrderTotal is SUM(price * quantity) over the order's lines.
func (d *DB) OrderTotal(ctx context.Context, orderID int64) (int64, error) {
	var total int64
	err := d.Bun.NewSelect().
		Model((*models.OrderItem)(nil)).
		ColumnExpr("COALESCE(SUM(oi.price * oi.quantity), 0)").
		Where("oi.order_id = ?", orderID).
		Scan(ctx, &total)
	if err != nil {
		return 0, fmt.Errorf("total of order %d: %w", orderID, err)
	}
	return total, nil
}

// CloseOrder marks an active order closed and returns its receipt.
func (d *DB) CloseOrder(ctx context.Context, orderID int64, paymentMethod string, at clock.Timestamp) (*models.Receipt, error) {
	var receipt models.Receipt
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := requireActive(ctx, tx, orderID); err != nil {
			return err
		}

		q := tx.NewUpdate().
			Model((*models.Order)(nil)).
			Set("status = ?", models.OrderClosed).
			Set("closed_at = ?", at).
			Where("id = ?", orderID).
			Where("status = ?", models.OrderActive)
		if paymentMethod != "" {
			q = q.Set("payment_method = ?", paymentMethod)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("close order %d: %w", orderID, err)
		}

		o, err := getOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		lines, err := items(ctx, tx, orderID)
		if err != nil {
			return err
		}
		receipt = models.Receipt{Order: *o, Items: lines, Total: models.ItemsTotal(lines)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (d *DB) UpdatePaymentMethod(ctx context.Context, orderID int64, method string) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("payment_method = ?", method).
		Where("id = ?", orderID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update payment method of order %d: %w", orderID, err)
	}
	if database.RowsAffected(res) == 0 {
		return apperrors.NotFound("order", orderID)
	}
	return nil
}

func (d *DB) listWithOwner(ctx context.Context, apply func(*bun.SelectQuery) *bun.SelectQuery) ([]models.Order, error) {
	orders := []models.Order{}
	q := d.Bun.NewSelect().
		Model(&orders).
		ColumnExpr("o.*").
		ColumnExpr(ownerColumns).
		Join("LEFT JOIN users AS u ON u.external_id = o.staff_id")
	if err := apply(q).Scan(ctx); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// ListActive returns open tabs, newest first, with the staff member's name.
func (d *DB) ListActive(ctx context.Context) ([]models.Order, error) {
	return d.listWithOwner(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("o.status = ?", models.OrderActive).Order("o.created_at DESC", "o.id DESC")
	})
}

// ListByDate returns orders created on date (YYYY-MM-DD), optionally by status.
func (d *DB) ListByDate(ctx context.Context, date string, status models.OrderStatus) ([]models.Order, error) {
	return d.listWithOwner(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.Where("substr(o.created_at, 1, 10) = ?", date)
		if status != "" {
			q = q.Where("o.status = ?", status)
		}
		return q.Order("o.created_at DESC", "o.id DESC")
	})
}

func (d *DB) ListClosed(ctx context.Context) ([]models.Order, error) {
	return d.listWithOwner(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("o.status = ?", models.OrderClosed).Order("o.closed_at DESC", "o.id DESC")
	})
}

// OrderDates lists the distinct dates that have closed orders, newest first.
func (d *DB) OrderDates(ctx context.Context) ([]string, error) {
	dates := []string{}
	err := d.Bun.NewSelect().
		Model((*models.Order)(nil)).
		ColumnExpr("DISTINCT substr(o.created_at, 1, 10) AS order_date").
		Where("o.status = ?", models.OrderClosed).
		OrderExpr("order_date DESC").
		Scan(ctx, &dates)
	if err != nil {
		return nil, fmt.Errorf("order dates: %w", err)
	}
	return dates, nil
}

func windowFilter(q *bun.SelectQuery, from, to clock.Timestamp) *bun.SelectQuery {
	q = q.Where("o.created_at >= ?", from)
	if !to.IsZero() {
		q = q.Where("o.created_at <= ?", to)
	}
	return q
}

// ListInWindow returns every order created in [from, to]. A zero to means open ended.
func (d *DB) ListInWindow(ctx context.Context, from, to clock.Timestamp) ([]models.Order, error) {
	return d.listWithOwner(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return windowFilter(q, from, to).Order("o.created_at DESC", "o.id DESC")
	})
}
