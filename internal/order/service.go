package order

import (
	"context"
	"fmt"
	"strings"

	"ms-lounge/internal/clock"
	apperrors "ms-lounge/internal/errors"
	"ms-lounge/internal/kafka"
	"ms-lounge/internal/logger"
	"ms-lounge/internal/models"
)

type DBLayer interface {
	CreateOrder(ctx context.Context, o *models.Order) error
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	GetActiveOrderByTable(ctx context.Context, table int) (*models.Order, error)
	AddItem(ctx context.Context, orderID int64, name string, price, qty int64, at clock.Timestamp) (*models.OrderItem, error)
	RemoveOneUnit(ctx context.Context, orderID int64, name string) (int64, error)
	Items(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	OrderTotal(ctx context.Context, orderID int64) (int64, error)
	CloseOrder(ctx context.Context, orderID int64, paymentMethod string, at clock.Timestamp) (*models.Receipt, error)
	UpdatePaymentMethod(ctx context.Context, orderID int64, method string) error
	ListActive(ctx context.Context) ([]models.Order, error)
	ListByDate(ctx context.Context, date string, status models.OrderStatus) ([]models.Order, error)
	ListClosed(ctx context.Context) ([]models.Order, error)
	OrderDates(ctx context.Context) ([]string, error)
	ListInWindow(ctx context.Context, from, to clock.Timestamp) ([]models.Order, error)
}

// MenuLookup resolves catalog items for AddMenuItem.
type MenuLookup interface {
	Get(ctx context.Context, id int64) (*models.MenuItem, error)
}

type OrderService struct {
	DB     DBLayer
	Menu   MenuLookup
	Events kafka.Publisher
	Clock  *clock.Clock
	Logger *logger.Logger
}

func NewOrderService(db DBLayer, menu MenuLookup, events kafka.Publisher, clk *clock.Clock, log *logger.Logger) *OrderService {
	return &OrderService{DB: db, Menu: menu, Events: events, Clock: clk, Logger: log}
}

// ---------------- ORDERS ----------------

// OpenOrder starts a tab for a table. A table with an open tab is refused.
func (s *OrderService) OpenOrder(ctx context.Context, table int, staffID int64) (*models.Order, error) {
	if table < 1 {
		return nil, apperrors.Validation("table number must be positive, got %d", table)
	}

	o := &models.Order{
		TableNumber: table,
		StaffID:     staffID,
		Status:      models.OrderActive,
		CreatedAt:   s.Clock.Stamp(),
	}
	if err := s.DB.CreateOrder(ctx, o); err != nil {
		return nil, err
	}

	s.Logger.LogOrder("OPEN", o.ID, fmt.Sprintf("table %d by staff %d", table, staffID))
	s.publish(ctx, kafka.EventOrderOpened, o.ID, o)
	return o, nil
}

func (s *OrderService) GetActiveOrderByTable(ctx context.Context, table int) (*models.Order, error) {
	return s.DB.GetActiveOrderByTable(ctx, table)
}

func (s *OrderService) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	return s.DB.GetOrder(ctx, id)
}

// AddItem adds qty units of an item at the given unit price. Repeated names
// merge into one line.
func (s *OrderService) AddItem(ctx context.Context, orderID int64, name string, price, qty int64) (*models.OrderItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Validation("item name is required")
	}
	if qty < 1 {
		return nil, apperrors.Validation("quantity must be at least 1, got %d", qty)
	}
	if price < 0 {
		return nil, apperrors.Validation("price must not be negative, got %d", price)
	}

	item, err := s.DB.AddItem(ctx, orderID, name, price, qty, s.Clock.Stamp())
	if err != nil {
		return nil, err
	}
	s.Logger.LogOrder("ADD", orderID, fmt.Sprintf("%s x%d (now %d)", name, qty, item.Quantity))
	return item, nil
}

// AddMenuItem adds an active catalog item, capturing its current name and price.
func (s *OrderService) AddMenuItem(ctx context.Context, orderID, menuItemID int64, qty int64) (*models.OrderItem, error) {
	item, err := s.Menu.Get(ctx, menuItemID)
	if err != nil {
		return nil, err
	}
	if !item.IsActive {
		return nil, apperrors.Validation("menu item %q is not available", item.Name)
	}
	return s.AddItem(ctx, orderID, item.Name, item.Price, qty)
}

func (s *OrderService) RemoveOneUnit(ctx context.Context, orderID int64, name string) (int64, error) {
	left, err := s.DB.RemoveOneUnit(ctx, orderID, strings.TrimSpace(name))
	if err != nil {
		return 0, err
	}
	s.Logger.LogOrder("REMOVE", orderID, fmt.Sprintf("%s (left %d)", name, left))
	return left, nil
}

func (s *OrderService) Items(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	return s.DB.Items(ctx, orderID)
}

func (s *OrderService) OrderTotal(ctx context.Context, orderID int64) (int64, error) {
	return s.DB.OrderTotal(ctx, orderID)
}

// CloseOrder settles the tab. The receipt total is derived from its lines.
func (s *OrderService) CloseOrder(ctx context.Context, orderID int64, paymentMethod string) (*models.Receipt, error) {
	receipt, err := s.DB.CloseOrder(ctx, orderID, strings.TrimSpace(paymentMethod), s.Clock.Stamp())
	if err != nil {
		return nil, err
	}

	s.Logger.LogOrder("CLOSE", orderID, fmt.Sprintf("table %d total %d via %s", receipt.Order.TableNumber, receipt.Total, receipt.Order.PaymentMethod))
	s.publish(ctx, kafka.EventOrderClosed, orderID, receipt)
	return receipt, nil
}

func (s *OrderService) UpdatePaymentMethod(ctx context.Context, orderID int64, method string) error {
	method = strings.TrimSpace(method)
	if method == "" {
		return apperrors.Validation("payment method is required")
	}
	if err := s.DB.UpdatePaymentMethod(ctx, orderID, method); err != nil {
		return err
	}
	s.Logger.LogOrder("PAYMENT", orderID, method)
	return nil
}

func (s *OrderService) ListActive(ctx context.Context) ([]models.Order, error) {
	return s.DB.ListActive(ctx)
}

func (s *OrderService) ListByDate(ctx context.Context, date string, status models.OrderStatus) ([]models.Order, error) {
	return s.DB.ListByDate(ctx, date, status)
}

func (s *OrderService) ListClosed(ctx context.Context) ([]models.Order, error) {
	return s.DB.ListClosed(ctx)
}

func (s *OrderService) OrderDates(ctx context.Context) ([]string, error) {
	return s.DB.OrderDates(ctx)
}

// ListByShift returns the orders created while the shift was open. An open
// shift's window has no upper bound.
func (s *OrderService) ListByShift(ctx context.Context, shift *models.Shift) ([]models.Order, error) {
	return s.DB.ListInWindow(ctx, shift.OpenedAt, shift.ClosedAt)
}

func (s *OrderService) publish(ctx context.Context, eventType string, orderID int64, payload any) {
	if err := s.Events.Publish(ctx, eventType, fmt.Sprint(orderID), payload); err != nil {
		s.Logger.Warn("ORDER", fmt.Sprintf("Kafka publish error (%s): %v", eventType, err))
	}
}
