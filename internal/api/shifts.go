package api

import (
	"net/http"

	"ms-lounge/internal/models"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) shiftFromPath(r *http.Request) (*models.Shift, error) {
	number, err := intParam(r, "number")
	if err != nil {
		return nil, err
	}
	return h.Shifts.GetShift(r.Context(), number, chi.URLParam(r, "monthYear"))
}

func (h *Handler) OpenShift(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		StaffID   int64  `json:"staff_id"`
		MonthYear string `json:"month_year"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	staff, err := staffID(r, req.StaffID)
	if err != nil {
		return err
	}

	shift, err := h.Shifts.OpenShift(r.Context(), staff, req.MonthYear)
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusCreated, "shift opened", shift)
	return nil
}

func (h *Handler) ListShifts(w http.ResponseWriter, r *http.Request) error {
	shifts, err := h.Shifts.ListShiftsByMonth(r.Context(), r.URL.Query().Get("month_year"))
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "", shifts)
	return nil
}

func (h *Handler) NextShiftNumber(w http.ResponseWriter, r *http.Request) error {
	n, err := h.Shifts.NextShiftNumber(r.Context(), r.URL.Query().Get("month_year"))
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "", map[string]int{"shift_number": n})
	return nil
}

func (h *Handler) ActiveShift(w http.ResponseWriter, r *http.Request) error {
	shift, err := h.Shifts.GetActiveShift(r.Context())
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "", shift)
	return nil
}

func (h *Handler) FinishActiveShift(w http.ResponseWriter, r *http.Request) error {
	shift, summary, err := h.Shifts.FinishActiveShift(r.Context())
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "shift closed", map[string]any{"shift": shift, "summary": summary})
	return nil
}

func (h *Handler) GetShift(w http.ResponseWriter, r *http.Request) error {
	shift, err := h.shiftFromPath(r)
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "", shift)
	return nil
}

func (h *Handler) ShiftOrders(w http.ResponseWriter, r *http.Request) error {
	shift, err := h.shiftFromPath(r)
	if err != nil {
		return err
	}
	orders, err := h.Orders.ListByShift(r.Context(), shift)
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "", orders)
	return nil
}

func (h *Handler) ShiftSummary(w http.ResponseWriter, r *http.Request) error {
	shift, err := h.shiftFromPath(r)
	if err != nil {
		return err
	}
	summary, err := h.Shifts.SummarizeShift(r.Context(), shift)
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "", summary)
	return nil
}

func (h *Handler) CloseShift(w http.ResponseWriter, r *http.Request) error {
	number, err := intParam(r, "number")
	if err != nil {
		return err
	}
	var req struct {
		Revenue int64 `json:"total_revenue"`
		Orders  int64 `json:"total_orders"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	shift, err := h.Shifts.CloseShift(r.Context(), number, chi.URLParam(r, "monthYear"), req.Revenue, req.Orders)
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "shift closed", shift)
	return nil
}

func (h *Handler) SaveShiftSales(w http.ResponseWriter, r *http.Request) error {
	number, err := intParam(r, "number")
	if err != nil {
		return err
	}
	var sales map[string]models.ItemSales
	if err := decodeJSON(r, &sales); err != nil {
		return err
	}
	if err := h.Shifts.SaveShiftSales(r.Context(), number, chi.URLParam(r, "monthYear"), sales); err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "shift sales saved", nil)
	return nil
}
