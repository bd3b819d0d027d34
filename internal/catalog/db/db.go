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

// ---------------- MENU ITEMS ----------------

func (d *DB) Categories(ctx context.Context) ([]string, error) {
	categories := []string{}
	err := d.Bun.NewSelect().
		Model((*models.MenuItem)(nil)).
		ColumnExpr("DISTINCT mi.category").
		Where("mi.is_active = ?", true).
		OrderExpr("mi.category ASC").
		Scan(ctx, &categories)
	if err != nil {
		return nil, fmt.Errorf("menu categories: %w", err)
	}
	return categories, nil
}

func (d *DB) list(ctx context.Context, active bool, category string) ([]models.MenuItem, error) {
	items := []models.MenuItem{}
	q := d.Bun.NewSelect().Model(&items).Where("mi.is_active = ?", active)
	if category != "" {
		q = q.Where("mi.category = ?", category)
	}
	if err := q.Order("mi.category ASC", "mi.price ASC", "mi.name ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	return items, nil
}

func (d *DB) ListByCategory(ctx context.Context, category string) ([]models.MenuItem, error) {
	return d.list(ctx, true, category)
}

func (d *DB) ListActive(ctx context.Context) ([]models.MenuItem, error) {
	return d.list(ctx, true, "")
}

func (d *DB) ListInactive(ctx context.Context) ([]models.MenuItem, error) {
	return d.list(ctx, false, "")
}

func (d *DB) get(ctx context.Context, column string, value any) (*models.MenuItem, error) {
	var item models.MenuItem
	err := d.Bun.NewSelect().Model(&item).Where(fmt.Sprintf("mi.%s = ?", column), value).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("menu item", value)
	}
	if err != nil {
		return nil, fmt.Errorf("get menu item: %w", err)
	}
	return &item, nil
}

func (d *DB) Get(ctx context.Context, id int64) (*models.MenuItem, error) {
	return d.get(ctx, "id", id)
}

func (d *DB) GetByName(ctx context.Context, name string) (*models.MenuItem, error) {
	return d.get(ctx, "name", name)
}

func (d *DB) Insert(ctx context.Context, item *models.MenuItem) error {
	_, err := d.Bun.NewInsert().Model(item).Exec(ctx)
	if database.IsUniqueViolation(err) {
		return apperrors.NewAppError(apperrors.ErrCodeConflict, fmt.Sprintf("menu item %q already exists", item.Name), apperrors.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert menu item: %w", err)
	}
	return nil
}

func (d *DB) Update(ctx context.Context, item *models.MenuItem) error {
	res, err := d.Bun.NewUpdate().
		Model(item).
		Column("name", "price", "category").
		WherePK().
		Exec(ctx)
	if database.IsUniqueViolation(err) {
		return apperrors.NewAppError(apperrors.ErrCodeConflict, fmt.Sprintf("menu item %q already exists", item.Name), apperrors.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("update menu item %d: %w", item.ID, err)
	}
	if database.RowsAffected(res) == 0 {
		return apperrors.NotFound("menu item", item.ID)
	}
	return nil
}

func (d *DB) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.MenuItem)(nil)).
		Set("is_active = ?", active).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set menu item %d active=%t: %w", id, active, err)
	}
	if database.RowsAffected(res) == 0 {
		return apperrors.NotFound("menu item", id)
	}
	return nil
}

func (d *DB) Count(ctx context.Context) (int, error) {
	n, err := d.Bun.NewSelect().Model((*models.MenuItem)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count menu items: %w", err)
	}
	return n, nil
}

// InsertMany adds items in one transaction, skipping names already present.
func (d *DB) InsertMany(ctx context.Context, items []models.MenuItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	var inserted int
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for i := range items {
			res, err := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO menu_items (name, price, category, is_active) VALUES (?, ?, ?, ?)",
				items[i].Name, items[i].Price, items[i].Category, items[i].IsActive)
			if err != nil {
				return fmt.Errorf("insert %q: %w", items[i].Name, err)
			}
			inserted += int(database.RowsAffected(res))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("seed menu: %w", err)
	}
	return inserted, nil
}
