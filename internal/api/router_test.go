package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"ms-lounge/internal/analytics"
	"ms-lounge/internal/auth"
	"ms-lounge/internal/booking"
	bookingdb "ms-lounge/internal/booking/db"
	"ms-lounge/internal/catalog"
	catalogdb "ms-lounge/internal/catalog/db"
	"ms-lounge/internal/clock"
	"ms-lounge/internal/customer"
	customerdb "ms-lounge/internal/customer/db"
	"ms-lounge/internal/database/dbtest"
	"ms-lounge/internal/kafka"
	"ms-lounge/internal/logger"
	"ms-lounge/internal/order"
	orderdb "ms-lounge/internal/order/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminID = 1

func newTestHandler(t *testing.T) *Handler {
	bunDB := dbtest.New(t, true)
	clk := clock.Fixed(time.Date(2024, 1, 10, 18, 0, 0, 0, clock.Location()))
	log := logger.NewLoggerWithWriter(io.Discard)
	events := kafka.NoopPublisher{}

	orders := &orderdb.DB{Bun: bunDB}
	menu := catalog.NewMenuService(&catalogdb.DB{Bun: bunDB}, log)
	return &Handler{
		Bookings: booking.NewBookingService(&bookingdb.DB{Bun: bunDB}, events, clk, log),
		Customers: customer.NewCustomerService(&customerdb.DB{Bun: bunDB}, events, clk, log, customer.Settings{
			SignupBonus: 100, ReferralBonus: 100, BotUsername: "lounge_bot",
		}),
		Orders:  order.NewOrderService(orders, menu, events, clk, log),
		Shifts:  order.NewShiftService(orders, nil, events, clk, log),
		Menu:    menu,
		Reports: analytics.NewService(bunDB, clk),
		Logger:  log,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, h http.Handler, method, path string, body any, token string) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec.Code, env
}

func TestOrderFlow(t *testing.T) {
	router := NewRouter(newTestHandler(t), RouterOptions{})

	status, env := do(t, router, http.MethodPost, "/api/orders", map[string]any{"table_number": 3, "staff_id": 42}, "")
	require.Equal(t, http.StatusCreated, status)
	var opened struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &opened))

	status, env = do(t, router, http.MethodPost, "/api/orders", map[string]any{"table_number": 3, "staff_id": 42}, "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "TABLE_OCCUPIED", env.Code)

	status, _ = do(t, router, http.MethodPost, "/api/orders", map[string]any{"table_number": 4}, "")
	assert.Equal(t, http.StatusBadRequest, status)

	path := "/api/orders/" + jsonID(opened.ID)
	status, _ = do(t, router, http.MethodPost, path+"/items", map[string]any{"name": "Cola", "price": 100, "quantity": 2}, "")
	require.Equal(t, http.StatusOK, status)
	status, _ = do(t, router, http.MethodPost, path+"/items", map[string]any{"menu_item_id": 1}, "")
	require.Equal(t, http.StatusOK, status)

	status, env = do(t, router, http.MethodPost, path+"/close", map[string]any{"payment_method": "cash"}, "")
	require.Equal(t, http.StatusOK, status)
	var receipt struct {
		Total int64 `json:"total"`
		Items []any `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &receipt))
	assert.Len(t, receipt.Items, 2)
	assert.Greater(t, receipt.Total, int64(200))

	status, env = do(t, router, http.MethodPost, path+"/close", map[string]any{"payment_method": "cash"}, "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INVALID_TRANSITION", env.Code)

	status, env = do(t, router, http.MethodGet, "/api/orders/999", nil, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", env.Code)
}

func TestShiftAndBookingErrors(t *testing.T) {
	router := NewRouter(newTestHandler(t), RouterOptions{})

	status, _ := do(t, router, http.MethodPost, "/api/shifts", map[string]any{"staff_id": 42}, "")
	require.Equal(t, http.StatusCreated, status)
	status, env := do(t, router, http.MethodPost, "/api/shifts", map[string]any{"staff_id": 42}, "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "SHIFT_ALREADY_OPEN", env.Code)

	status, _ = do(t, router, http.MethodGet, "/api/shifts/2024-01/1", nil, "")
	assert.Equal(t, http.StatusOK, status)
	status, _ = do(t, router, http.MethodPost, "/api/shifts/active/finish", nil, "")
	assert.Equal(t, http.StatusOK, status)

	status, env = do(t, router, http.MethodPost, "/api/bookings", map[string]any{"name": "Anna", "date": "2024-01-12", "time": "19:30"}, "")
	require.Equal(t, http.StatusCreated, status)
	var b struct {
		ID     int64  `json:"id"`
		Source string `json:"source"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &b))
	assert.Equal(t, "web", b.Source)

	path := "/api/bookings/" + jsonID(b.ID) + "/status"
	status, _ = do(t, router, http.MethodPut, path, map[string]any{"status": "cancelled"}, "")
	assert.Equal(t, http.StatusOK, status)
	status, env = do(t, router, http.MethodPut, path, map[string]any{"status": "confirmed"}, "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INVALID_TRANSITION", env.Code)
}

func TestBonusErrors(t *testing.T) {
	router := NewRouter(newTestHandler(t), RouterOptions{})

	status, env := do(t, router, http.MethodPost, "/api/users", map[string]any{"external_id": 500, "first_name": "Olga"}, "")
	require.Equal(t, http.StatusCreated, status)
	var u struct {
		ID           int64 `json:"id"`
		BonusBalance int64 `json:"bonus_balance"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &u))
	assert.Equal(t, int64(100), u.BonusBalance)

	status, env = do(t, router, http.MethodPost, "/api/users", map[string]any{"external_id": 500}, "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "DUPLICATE_REGISTRATION", env.Code)

	path := "/api/users/" + jsonID(u.ID)
	status, env = do(t, router, http.MethodPost, path+"/bonus", map[string]any{"amount": 500, "kind": "spend"}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "INSUFFICIENT_BALANCE", env.Code)

	status, _ = do(t, router, http.MethodPost, path+"/bonus", map[string]any{"amount": 40, "kind": "spend"}, "")
	assert.Equal(t, http.StatusOK, status)

	status, env = do(t, router, http.MethodGet, path+"/transactions", nil, "")
	require.Equal(t, http.StatusOK, status)
	var statement struct {
		Balance      int64 `json:"balance"`
		LedgerSum    int64 `json:"ledger_sum"`
		Balanced     bool  `json:"balanced"`
		Transactions []any `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &statement))
	assert.True(t, statement.Balanced)
	assert.Equal(t, int64(60), statement.Balance)
	assert.Equal(t, int64(60), statement.LedgerSum)
	assert.Len(t, statement.Transactions, 2)

	req := httptest.NewRequest(http.MethodGet, path+"/referral-qr", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

func TestAuthAndAdminRoutes(t *testing.T) {
	issuer, err := auth.NewIssuer("secret", time.Hour)
	require.NoError(t, err)
	router := NewRouter(newTestHandler(t), RouterOptions{
		Issuer:  issuer,
		IsAdmin: func(id int64) bool { return id == adminID },
	})

	adminToken, _, err := issuer.IssueStaffToken(adminID)
	require.NoError(t, err)
	staffToken, _, err := issuer.IssueStaffToken(42)
	require.NoError(t, err)

	status, _ := do(t, router, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, status)

	status, _ = do(t, router, http.MethodGet, "/api/menu", nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = do(t, router, http.MethodGet, "/api/menu", nil, staffToken)
	assert.Equal(t, http.StatusOK, status)

	status, _ = do(t, router, http.MethodGet, "/api/reports/revenue?period=month", nil, staffToken)
	assert.Equal(t, http.StatusForbidden, status)

	status, env := do(t, router, http.MethodGet, "/api/reports/revenue?year=2024&month=01", nil, adminToken)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"total_revenue":0}`, string(env.Data))

	status, _ = do(t, router, http.MethodGet, "/api/reports/revenue?period=week", nil, adminToken)
	assert.Equal(t, http.StatusBadRequest, status)

	// the token's staff id wins over the body
	status, env = do(t, router, http.MethodPost, "/api/shifts", map[string]any{"staff_id": 7}, staffToken)
	require.Equal(t, http.StatusCreated, status)
	var shift struct {
		StaffID int64 `json:"staff_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &shift))
	assert.Equal(t, int64(42), shift.StaffID)

	status, _ = do(t, router, http.MethodPost, "/api/menu", map[string]any{"name": "New", "price": 10, "category": "Чай"}, staffToken)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = do(t, router, http.MethodPost, "/api/menu", map[string]any{"name": "New", "price": 10, "category": "Чай"}, adminToken)
	assert.Equal(t, http.StatusCreated, status)
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestRemoveItemWithSlashInName(t *testing.T) {
	h := newTestHandler(t)
	router := NewRouter(h, RouterOptions{})

	cola, err := h.Menu.GetByName(context.Background(), "Кола/Фанта/Спрайт 1л")
	require.NoError(t, err)
	water, err := h.Menu.GetByName(context.Background(), "Вода")
	require.NoError(t, err)

	status, env := do(t, router, http.MethodPost, "/api/orders", map[string]any{"table_number": 2, "staff_id": 42}, "")
	require.Equal(t, http.StatusCreated, status)
	var opened struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &opened))
	path := "/api/orders/" + jsonID(opened.ID) + "/items"

	for _, id := range []int64{cola.ID, cola.ID, water.ID} {
		status, _ = do(t, router, http.MethodPost, path, map[string]any{"menu_item_id": id}, "")
		require.Equal(t, http.StatusOK, status)
	}

	var left struct {
		Quantity int64 `json:"quantity"`
	}
	status, env = do(t, router, http.MethodDelete, path+"/"+url.PathEscape(cola.Name), nil, "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &left))
	assert.Equal(t, int64(1), left.Quantity)

	status, env = do(t, router, http.MethodDelete, path+"/"+url.PathEscape(water.Name), nil, "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &left))
	assert.Zero(t, left.Quantity)

	items, err := h.Orders.Items(context.Background(), opened.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, cola.Name, items[0].ItemName)
}
