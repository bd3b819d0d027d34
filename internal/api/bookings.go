package api

import (
	"net/http"

	"ms-lounge/internal/booking"
	"ms-lounge/internal/models"
)

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) error {
	var req booking.NewBooking
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if req.Source == "" {
		req.Source = "web"
	}

	b, err := h.Bookings.CreateBooking(r.Context(), req)
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusCreated, "booking created", b)
	return nil
}

// ListBookings filters by ?status= or ?date=, or returns every booking.
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) error {
	var (
		bookings []models.Booking
		err      error
	)
	switch q := r.URL.Query(); {
	case q.Get("status") != "":
		bookings, err = h.Bookings.ListByStatus(r.Context(), models.BookingStatus(q.Get("status")))
	case q.Get("date") != "":
		bookings, err = h.Bookings.ListByDate(r.Context(), q.Get("date"))
	default:
		bookings, err = h.Bookings.ListAll(r.Context())
	}
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "", bookings)
	return nil
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) error {
	id, err := int64Param(r, "id")
	if err != nil {
		return err
	}
	b, err := h.Bookings.GetBooking(r.Context(), id)
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "", b)
	return nil
}

func (h *Handler) SetBookingStatus(w http.ResponseWriter, r *http.Request) error {
	id, err := int64Param(r, "id")
	if err != nil {
		return err
	}
	var req struct {
		Status models.BookingStatus `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	b, err := h.Bookings.SetBookingStatus(r.Context(), id, req.Status)
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "booking "+string(b.Status), b)
	return nil
}

func (h *Handler) BookingStats(w http.ResponseWriter, r *http.Request) error {
	stats, err := h.Bookings.Stats(r.Context())
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "", stats)
	return nil
}

func (h *Handler) BookingDates(w http.ResponseWriter, r *http.Request) error {
	dates, err := h.Bookings.BookingDates(r.Context())
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "", dates)
	return nil
}
