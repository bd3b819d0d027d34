package catalog

import (
	"context"
	"fmt"
	"strings"

	apperrors "ms-lounge/internal/errors"
	"ms-lounge/internal/logger"
	"ms-lounge/internal/models"
)

type DBLayer interface {
	Categories(ctx context.Context) ([]string, error)
	ListByCategory(ctx context.Context, category string) ([]models.MenuItem, error)
	ListActive(ctx context.Context) ([]models.MenuItem, error)
	ListInactive(ctx context.Context) ([]models.MenuItem, error)
	Get(ctx context.Context, id int64) (*models.MenuItem, error)
	GetByName(ctx context.Context, name string) (*models.MenuItem, error)
	Insert(ctx context.Context, item *models.MenuItem) error
	Update(ctx context.Context, item *models.MenuItem) error
	SetActive(ctx context.Context, id int64, active bool) error
	Count(ctx context.Context) (int, error)
	InsertMany(ctx context.Context, items []models.MenuItem) (int, error)
}

type MenuService struct {
	DB     DBLayer
	Logger *logger.Logger
}

func NewMenuService(db DBLayer, log *logger.Logger) *MenuService {
	return &MenuService{DB: db, Logger: log}
}

func (s *MenuService) Categories(ctx context.Context) ([]string, error) {
	return s.DB.Categories(ctx)
}

func (s *MenuService) ListByCategory(ctx context.Context, category string) ([]models.MenuItem, error) {
	return s.DB.ListByCategory(ctx, category)
}

func (s *MenuService) ListAll(ctx context.Context) ([]models.MenuItem, error) {
	return s.DB.ListActive(ctx)
}

func (s *MenuService) ListInactive(ctx context.Context) ([]models.MenuItem, error) {
	return s.DB.ListInactive(ctx)
}

func (s *MenuService) Get(ctx context.Context, id int64) (*models.MenuItem, error) {
	return s.DB.Get(ctx, id)
}

func (s *MenuService) GetByName(ctx context.Context, name string) (*models.MenuItem, error) {
	return s.DB.GetByName(ctx, strings.TrimSpace(name))
}

func validate(name string, price int64, category string) error {
	if name == "" {
		return apperrors.Validation("menu item name is required")
	}
	if category == "" {
		return apperrors.Validation("menu item category is required")
	}
	if price < 0 {
		return apperrors.Validation("menu item price must not be negative, got %d", price)
	}
	return nil
}

// Add creates an active menu item. A duplicate name is a conflict.
func (s *MenuService) Add(ctx context.Context, name string, price int64, category string) (*models.MenuItem, error) {
	name, category = strings.TrimSpace(name), strings.TrimSpace(category)
	if err := validate(name, price, category); err != nil {
		return nil, err
	}

	item := &models.MenuItem{Name: name, Price: price, Category: category, IsActive: true}
	if err := s.DB.Insert(ctx, item); err != nil {
		return nil, err
	}
	s.Logger.LogDatabase("INSERT", "menu_items", fmt.Sprintf("%q at %d in %s", name, price, category))
	return item, nil
}

// Update changes name, price and category. Renaming onto another item's name is a conflict.
func (s *MenuService) Update(ctx context.Context, id int64, name string, price int64, category string) (*models.MenuItem, error) {
	name, category = strings.TrimSpace(name), strings.TrimSpace(category)
	if err := validate(name, price, category); err != nil {
		return nil, err
	}

	item, err := s.DB.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	item.Name, item.Price, item.Category = name, price, category
	if err := s.DB.Update(ctx, item); err != nil {
		return nil, err
	}
	s.Logger.LogDatabase("UPDATE", "menu_items", fmt.Sprintf("#%d now %q at %d", id, name, price))
	return item, nil
}

// Deactivate hides an item from the menu. Past orders keep their captured name and price.
func (s *MenuService) Deactivate(ctx context.Context, id int64) error {
	if err := s.DB.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.Logger.LogDatabase("DEACTIVATE", "menu_items", fmt.Sprintf("#%d", id))
	return nil
}

func (s *MenuService) Restore(ctx context.Context, id int64) error {
	if err := s.DB.SetActive(ctx, id, true); err != nil {
		return err
	}
	s.Logger.LogDatabase("RESTORE", "menu_items", fmt.Sprintf("#%d", id))
	return nil
}

// SeedDefaults loads DefaultMenu into an empty catalog and reports how many rows it added.
func (s *MenuService) SeedDefaults(ctx context.Context) (int, error) {
	n, err := s.DB.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	inserted, err := s.DB.InsertMany(ctx, DefaultMenu())
	if err != nil {
		return 0, err
	}
	s.Logger.LogDatabase("SEED", "menu_items", fmt.Sprintf("%d default items", inserted))
	return inserted, nil
}
