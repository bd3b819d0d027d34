package api

import (
	"fmt"
	"net/http"
	"time"

	"ms-lounge/internal/analytics"
	"ms-lounge/internal/auth"
	"ms-lounge/internal/booking"
	"ms-lounge/internal/catalog"
	"ms-lounge/internal/customer"
	apperrors "ms-lounge/internal/errors"
	"ms-lounge/internal/logger"
	"ms-lounge/internal/order"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handler exposes the ledger services over JSON/HTTP.
type Handler struct {
	Bookings  *booking.BookingService
	Customers *customer.CustomerService
	Orders    *order.OrderService
	Shifts    *order.ShiftService
	Menu      *catalog.MenuService
	Reports   *analytics.Service
	Logger    *logger.Logger
}

// RouterOptions controls authentication. A nil Issuer disables it, which is
// only meant for local runs.
type RouterOptions struct {
	Issuer  *auth.Issuer
	IsAdmin func(int64) bool
}

func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		sendSuccess(w, http.StatusOK, "ok", nil)
	})

	admin := func(next http.Handler) http.Handler { return next }
	r.Group(func(r chi.Router) {
		if opts.Issuer != nil {
			r.Use(auth.Middleware(opts.Issuer, h.Logger))
			admin = auth.RequireAdmin(opts.IsAdmin, h.Logger)
		}

		r.Route("/api", func(r chi.Router) {
			r.Route("/bookings", func(r chi.Router) {
				r.Post("/", handle(h.Logger, h.CreateBooking))
				r.Get("/", handle(h.Logger, h.ListBookings))
				r.Get("/stats", handle(h.Logger, h.BookingStats))
				r.Get("/dates", handle(h.Logger, h.BookingDates))
				r.Get("/{id}", handle(h.Logger, h.GetBooking))
				r.Put("/{id}/status", handle(h.Logger, h.SetBookingStatus))
			})

			r.Route("/users", func(r chi.Router) {
				r.Post("/", handle(h.Logger, h.AddUser))
				r.Get("/", handle(h.Logger, h.ListUsers))
				r.Get("/{id}", handle(h.Logger, h.GetUser))
				r.With(admin).Delete("/{id}", handle(h.Logger, h.DeactivateUser))
				r.Get("/{id}/transactions", handle(h.Logger, h.Transactions))
				r.Post("/{id}/bonus", handle(h.Logger, h.RecordTransaction))
				r.Post("/{id}/purchases", handle(h.Logger, h.RecordPurchase))
				r.Post("/{id}/referral-award", handle(h.Logger, h.AwardReferral))
				r.Get("/{id}/referrals", handle(h.Logger, h.Referrals))
				r.Get("/{id}/referral-qr", handle(h.Logger, h.ReferralQR))
				r.Post("/{id}/bonus-requests", handle(h.Logger, h.CreateBonusRequest))
			})

			r.Route("/bonus-requests", func(r chi.Router) {
				r.Get("/", handle(h.Logger, h.PendingBonusRequests))
				r.With(admin).Put("/{id}", handle(h.Logger, h.ResolveBonusRequest))
			})

			r.Route("/menu", func(r chi.Router) {
				r.Get("/", handle(h.Logger, h.ListMenu))
				r.Get("/categories", handle(h.Logger, h.MenuCategories))
				r.Get("/{id}", handle(h.Logger, h.GetMenuItem))
				r.Group(func(r chi.Router) {
					r.Use(admin)
					r.Get("/inactive", handle(h.Logger, h.InactiveMenu))
					r.Post("/", handle(h.Logger, h.AddMenuItem))
					r.Put("/{id}", handle(h.Logger, h.UpdateMenuItem))
					r.Delete("/{id}", handle(h.Logger, h.DeactivateMenuItem))
					r.Post("/{id}/restore", handle(h.Logger, h.RestoreMenuItem))
				})
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", handle(h.Logger, h.OpenOrder))
				r.Get("/", handle(h.Logger, h.ListOrders))
				r.Get("/active", handle(h.Logger, h.ActiveOrders))
				r.Get("/dates", handle(h.Logger, h.OrderDates))
				r.Get("/table/{table}", handle(h.Logger, h.OrderByTable))
				r.Get("/{id}", handle(h.Logger, h.GetOrder))
				r.Post("/{id}/items", handle(h.Logger, h.AddOrderItem))
				r.Delete("/{id}/items/{name}", handle(h.Logger, h.RemoveOrderItem))
				r.Post("/{id}/close", handle(h.Logger, h.CloseOrder))
				r.Put("/{id}/payment", handle(h.Logger, h.UpdatePaymentMethod))
			})

			r.Route("/shifts", func(r chi.Router) {
				r.Post("/", handle(h.Logger, h.OpenShift))
				r.Get("/", handle(h.Logger, h.ListShifts))
				r.Get("/next", handle(h.Logger, h.NextShiftNumber))
				r.Get("/active", handle(h.Logger, h.ActiveShift))
				r.Post("/active/finish", handle(h.Logger, h.FinishActiveShift))
				r.Get("/{monthYear}/{number}", handle(h.Logger, h.GetShift))
				r.Get("/{monthYear}/{number}/orders", handle(h.Logger, h.ShiftOrders))
				r.Get("/{monthYear}/{number}/summary", handle(h.Logger, h.ShiftSummary))
				r.Put("/{monthYear}/{number}/close", handle(h.Logger, h.CloseShift))
				r.Put("/{monthYear}/{number}/sales", handle(h.Logger, h.SaveShiftSales))
			})

			r.Route("/reports", func(r chi.Router) {
				r.Use(admin)
				r.Get("/revenue", handle(h.Logger, h.Revenue))
				r.Get("/sales", handle(h.Logger, h.Sales))
				r.Get("/bonuses", handle(h.Logger, h.SpentBonuses))
				r.Get("/payments", handle(h.Logger, h.Payments))
				r.Get("/shifts", handle(h.Logger, h.ReportShifts))
				r.Get("/years", handle(h.Logger, h.ShiftYears))
				r.Get("/years/{year}/months", handle(h.Logger, h.ShiftMonths))
				r.Get("/shifts/{monthYear}/{number}", handle(h.Logger, h.ShiftReport))
			})
		})
	})

	return r
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.Logger.LogAPI(r.Method, r.URL.Path, fmt.Sprint(ww.Status()), time.Since(start).String())
	})
}

// staffID prefers the authenticated staff member over the request body.
func staffID(r *http.Request, fromBody int64) (int64, error) {
	if id, ok := auth.StaffID(r.Context()); ok {
		return id, nil
	}
	if fromBody == 0 {
		return 0, apperrors.Validation("staff_id is required")
	}
	return fromBody, nil
}
