package api

import (
	"net/http"
	"net/url"

	apperrors "ms-lounge/internal/errors"
	"ms-lounge/internal/models"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) OpenOrder(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		TableNumber int   `json:"table_number"`
		StaffID     int64 `json:"staff_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	staff, err := staffID(r, req.StaffID)
	if err != nil {
		return err
	}

	o, err := h.Orders.OpenOrder(r.Context(), req.TableNumber, staff)
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusCreated, "order opened", o)
	return nil
}

// ListOrders returns orders of ?date= (optionally ?status=), or all closed orders.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	var (
		orders []models.Order
		err    error
	)
	if date := q.Get("date"); date != "" {
		orders, err = h.Orders.ListByDate(r.Context(), date, models.OrderStatus(q.Get("status")))
	} else {
		orders, err = h.Orders.ListClosed(r.Context())
	}
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "", orders)
	return nil
}

func (h *Handler) ActiveOrders(w http.ResponseWriter, r *http.Request) error {
	orders, err := h.Orders.ListActive(r.Context())
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "", orders)
	return nil
}

func (h *Handler) OrderDates(w http.ResponseWriter, r *http.Request) error {
	dates, err := h.Orders.OrderDates(r.Context())
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "", dates)
	return nil
}

func (h *Handler) OrderByTable(w http.ResponseWriter, r *http.Request) error {
	table, err := intParam(r, "table")
	if err != nil {
		return err
	}
	o, err := h.Orders.GetActiveOrderByTable(r.Context(), table)
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "", o)
	return nil
}

// GetOrder returns the order with its lines and derived total.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) error {
	id, err := int64Param(r, "id")
	if err != nil {
		return err
	}
	o, err := h.Orders.GetOrder(r.Context(), id)
	if err != nil {
		return err
	}
	items, err := h.Orders.Items(r.Context(), id)
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "", models.Receipt{Order: *o, Items: items, Total: models.ItemsTotal(items)})
	return nil
}

// AddOrderItem takes either a menu_item_id or a free name and price.
func (h *Handler) AddOrderItem(w http.ResponseWriter, r *http.Request) error {
	id, err := int64Param(r, "id")
	if err != nil {
		return err
	}
	var req struct {
		MenuItemID int64  `json:"menu_item_id"`
		Name       string `json:"name"`
		Price      int64  `json:"price"`
		Quantity   int64  `json:"quantity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	var item *models.OrderItem
	if req.MenuItemID != 0 {
		item, err = h.Orders.AddMenuItem(r.Context(), id, req.MenuItemID, req.Quantity)
	} else {
		item, err = h.Orders.AddItem(r.Context(), id, req.Name, req.Price, req.Quantity)
	}
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "item added", item)
	return nil
}

func (h *Handler) RemoveOrderItem(w http.ResponseWriter, r *http.Request) error {
	id, err := int64Param(r, "id")
	if err != nil {
		return err
	}
	name, err := itemName(r)
	if err != nil {
		return err
	}
	left, err := h.Orders.RemoveOneUnit(r.Context(), id, name)
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "item removed", map[string]int64{"quantity": left})
	return nil
}

func (h *Handler) CloseOrder(w http.ResponseWriter, r *http.Request) error {
	id, err := int64Param(r, "id")
	if err != nil {
		return err
	}
	var req struct {
		PaymentMethod string `json:"payment_method"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	receipt, err := h.Orders.CloseOrder(r.Context(), id, req.PaymentMethod)
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "order closed", receipt)
	return nil
}

func (h *Handler) UpdatePaymentMethod(w http.ResponseWriter, r *http.Request) error {
	id, err := int64Param(r, "id")
	if err != nil {
		return err
	}
	var req struct {
		PaymentMethod string `json:"payment_method"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if err := h.Orders.UpdatePaymentMethod(r.Context(), id, req.PaymentMethod); err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "payment method updated", nil)
	return nil
}

// itemName reads the {name} segment. Menu names may contain "/", which
// clients send as %2F; chi then routes on the raw path and leaves the
// segment escaped.
func itemName(r *http.Request) (string, error) {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath == "" {
		return name, nil
	}
	unescaped, err := url.PathUnescape(name)
	if err != nil {
		return "", apperrors.Validation("invalid item name %q", name)
	}
	return unescaped, nil
}
