package api

import (
	"net/http"
	"strconv"

	apperrors "ms-lounge/internal/errors"

	"github.com/go-chi/chi/v5"
)

// scope is the period a report request asks for: ?year=&month= or ?period=.
type scope struct {
	period string
	year   int
	month  string
}

func scopeFrom(r *http.Request) (scope, error) {
	q := r.URL.Query()
	s := scope{period: q.Get("period"), month: q.Get("month")}
	if raw := q.Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return s, apperrors.Validation("invalid year %q", raw)
		}
		s.year = year
	} else if s.month != "" {
		return s, apperrors.Validation("month requires year")
	}
	return s, nil
}

// pick runs the by-year-month, by-year or by-period variant for the scope.
func pick[T any](s scope, byYearMonth func(int, string) (T, error), byYear func(int) (T, error), byPeriod func(string) (T, error)) (T, error) {
	switch {
	case s.year != 0 && s.month != "":
		return byYearMonth(s.year, s.month)
	case s.year != 0:
		return byYear(s.year)
	default:
		return byPeriod(s.period)
	}
}

func (h *Handler) Revenue(w http.ResponseWriter, r *http.Request) error {
	s, err := scopeFrom(r)
	if err != nil {
		return err
	}
	ctx := r.Context()
	total, err := pick(s,
		func(y int, m string) (int64, error) { return h.Reports.TotalRevenueByYearMonth(ctx, y, m) },
		func(y int) (int64, error) { return h.Reports.TotalRevenueByYear(ctx, y) },
		func(p string) (int64, error) { return h.Reports.TotalRevenueByPeriod(ctx, p) })
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "", map[string]int64{"total_revenue": total})
	return nil
}

func (h *Handler) Sales(w http.ResponseWriter, r *http.Request) error {
	s, err := scopeFrom(r)
	if err != nil {
		return err
	}
	ctx := r.Context()
	rows, err := pick(s, func(y int, m string) (any, error) {
		return h.Reports.SalesStatisticsByYearMonth(ctx, y, m)
	}, func(y int) (any, error) {
		return h.Reports.SalesStatisticsByYear(ctx, y)
	}, func(p string) (any, error) {
		return h.Reports.SalesStatisticsByPeriod(ctx, p)
	})
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "", rows)
	return nil
}

func (h *Handler) SpentBonuses(w http.ResponseWriter, r *http.Request) error {
	s, err := scopeFrom(r)
	if err != nil {
		return err
	}
	ctx := r.Context()
	spent, err := pick(s,
		func(y int, m string) (int64, error) { return h.Reports.SpentBonusesByYearMonth(ctx, y, m) },
		func(y int) (int64, error) { return h.Reports.SpentBonusesByYear(ctx, y) },
		func(p string) (int64, error) { return h.Reports.SpentBonusesByPeriod(ctx, p) })
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "", map[string]int64{"bonuses_spent": spent})
	return nil
}

func (h *Handler) Payments(w http.ResponseWriter, r *http.Request) error {
	s, err := scopeFrom(r)
	if err != nil {
		return err
	}
	ctx := r.Context()
	stats, err := pick(s, func(y int, m string) (any, error) {
		return h.Reports.PaymentStatisticsByYearMonth(ctx, y, m)
	}, func(y int) (any, error) {
		return h.Reports.PaymentStatisticsByYear(ctx, y)
	}, func(p string) (any, error) {
		return h.Reports.PaymentStatisticsByPeriod(ctx, p)
	})
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "", stats)
	return nil
}

// ReportShifts lists closed shifts of ?year=&month= or of ?period=.
func (h *Handler) ReportShifts(w http.ResponseWriter, r *http.Request) error {
	s, err := scopeFrom(r)
	if err != nil {
		return err
	}
	ctx := r.Context()
	if s.year != 0 && s.month == "" {
		return apperrors.Validation("shift listings need both year and month")
	}
	shifts, err := pick(s, func(y int, m string) (any, error) {
		return h.Reports.ShiftsByYearMonth(ctx, y, m)
	}, nil, func(p string) (any, error) {
		if p == "" {
			return h.Reports.AllClosedShifts(ctx)
		}
		return h.Reports.ShiftsByPeriod(ctx, p)
	})
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "", shifts)
	return nil
}

func (h *Handler) ShiftYears(w http.ResponseWriter, r *http.Request) error {
	years, err := h.Reports.ShiftYears(r.Context())
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "", years)
	return nil
}

func (h *Handler) ShiftMonths(w http.ResponseWriter, r *http.Request) error {
	year, err := intParam(r, "year")
	if err != nil {
		return err
	}
	months, err := h.Reports.ShiftMonths(r.Context(), year)
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "", months)
	return nil
}

func (h *Handler) ShiftReport(w http.ResponseWriter, r *http.Request) error {
	number, err := intParam(r, "number")
	if err != nil {
		return err
	}
	report, err := h.Reports.ShiftReport(r.Context(), number, chi.URLParam(r, "monthYear"))
	if err != nil {
		return err
	}
	sendSuccess(w, http.StatusOK, "", report)
	return nil
}
