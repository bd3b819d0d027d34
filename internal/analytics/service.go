package analytics

import (
	"context"
	"fmt"
	"strconv"

	"ms-lounge/internal/clock"
	apperrors "ms-lounge/internal/errors"
	"ms-lounge/internal/models"

	"github.com/uptrace/bun"
)

// Named reporting periods.
const (
	PeriodAll   = "all"
	PeriodMonth = "month"
	PeriodYear  = "year"
)

// Service answers reporting questions. Empty results are zero values, not errors.
type Service struct {
	db    *DB
	clock *clock.Clock
}

func NewService(db *bun.DB, clk *clock.Clock) *Service {
	return &Service{db: NewDB(db), clock: clk}
}

// PeriodFor resolves a named period against the current business time.
func (s *Service) PeriodFor(name string) (Period, error) {
	switch name {
	case PeriodAll, "":
		return Period{}, nil
	case PeriodMonth:
		return Period{From: s.clock.StartOfMonth()}, nil
	case PeriodYear:
		return Period{From: s.clock.StartOfYear()}, nil
	}
	return Period{}, apperrors.Validation("unknown period %q: expected all, month or year", name)
}

// YearPeriod covers a calendar year.
func YearPeriod(year int) (Period, error) {
	if year < 1000 || year > 9999 {
		return Period{}, apperrors.Validation("invalid year %d", year)
	}
	return Period{Prefix: strconv.Itoa(year)}, nil
}

// YearMonthPeriod covers one month; month is "01".."12" or "1".."12".
func YearMonthPeriod(year int, month string) (Period, error) {
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return Period{}, apperrors.Validation("invalid month %q", month)
	}
	if _, err := YearPeriod(year); err != nil {
		return Period{}, err
	}
	return Period{Prefix: clock.FormatMonthYear(year, m)}, nil
}

// shiftWindow is the time span of a shift; an open shift has no end.
func shiftWindow(shift *models.Shift) Period {
	return Period{From: shift.OpenedAt, To: shift.ClosedAt}
}

// ---------------- REVENUE ----------------

func (s *Service) TotalRevenueByPeriod(ctx context.Context, period string) (int64, error) {
	p, err := s.PeriodFor(period)
	if err != nil {
		return 0, err
	}
	return s.db.TotalRevenue(ctx, p)
}

func (s *Service) TotalRevenueByYear(ctx context.Context, year int) (int64, error) {
	p, err := YearPeriod(year)
	if err != nil {
		return 0, err
	}
	return s.db.TotalRevenue(ctx, p)
}

func (s *Service) TotalRevenueByYearMonth(ctx context.Context, year int, month string) (int64, error) {
	p, err := YearMonthPeriod(year, month)
	if err != nil {
		return 0, err
	}
	return s.db.TotalRevenue(ctx, p)
}

// ---------------- SALES ----------------

func (s *Service) SalesStatisticsByPeriod(ctx context.Context, period string) ([]models.SalesRow, error) {
	p, err := s.PeriodFor(period)
	if err != nil {
		return nil, err
	}
	return s.db.SalesStatistics(ctx, p)
}

func (s *Service) SalesStatisticsByYear(ctx context.Context, year int) ([]models.SalesRow, error) {
	p, err := YearPeriod(year)
	if err != nil {
		return nil, err
	}
	return s.db.SalesStatistics(ctx, p)
}

func (s *Service) SalesStatisticsByYearMonth(ctx context.Context, year int, month string) ([]models.SalesRow, error) {
	p, err := YearMonthPeriod(year, month)
	if err != nil {
		return nil, err
	}
	return s.db.SalesStatistics(ctx, p)
}

func (s *Service) ShiftSales(ctx context.Context, number int, monthYear string) ([]models.SalesRow, error) {
	return s.db.ShiftSales(ctx, number, monthYear)
}

// ---------------- BONUSES ----------------

func (s *Service) SpentBonusesByPeriod(ctx context.Context, period string) (int64, error) {
	p, err := s.PeriodFor(period)
	if err != nil {
		return 0, err
	}
	return s.db.SpentBonuses(ctx, p)
}

func (s *Service) SpentBonusesByYear(ctx context.Context, year int) (int64, error) {
	p, err := YearPeriod(year)
	if err != nil {
		return 0, err
	}
	return s.db.SpentBonuses(ctx, p)
}

func (s *Service) SpentBonusesByYearMonth(ctx context.Context, year int, month string) (int64, error) {
	p, err := YearMonthPeriod(year, month)
	if err != nil {
		return 0, err
	}
	return s.db.SpentBonuses(ctx, p)
}

// SpentBonusesByShift counts spend entries made while the shift was open.
// An unknown shift spent nothing.
func (s *Service) SpentBonusesByShift(ctx context.Context, number int, monthYear string) (int64, error) {
	shift, err := s.db.Shift(ctx, number, monthYear)
	if apperrors.CodeOf(err) == apperrors.ErrCodeNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return s.db.SpentBonuses(ctx, shiftWindow(shift))
}

// ---------------- PAYMENTS ----------------

func (s *Service) PaymentStatisticsByPeriod(ctx context.Context, period string) (map[string]models.PaymentStat, error) {
	p, err := s.PeriodFor(period)
	if err != nil {
		return nil, err
	}
	return s.db.PaymentStatistics(ctx, p)
}

func (s *Service) PaymentStatisticsByYear(ctx context.Context, year int) (map[string]models.PaymentStat, error) {
	p, err := YearPeriod(year)
	if err != nil {
		return nil, err
	}
	return s.db.PaymentStatistics(ctx, p)
}

func (s *Service) PaymentStatisticsByYearMonth(ctx context.Context, year int, month string) (map[string]models.PaymentStat, error) {
	p, err := YearMonthPeriod(year, month)
	if err != nil {
		return nil, err
	}
	return s.db.PaymentStatistics(ctx, p)
}

func (s *Service) PaymentStatisticsByShift(ctx context.Context, number int, monthYear string) (map[string]models.PaymentStat, error) {
	shift, err := s.db.Shift(ctx, number, monthYear)
	if apperrors.CodeOf(err) == apperrors.ErrCodeNotFound {
		return map[string]models.PaymentStat{}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.db.PaymentStatistics(ctx, shiftWindow(shift))
}

// ---------------- SHIFTS ----------------

func (s *Service) ShiftYears(ctx context.Context) ([]string, error) {
	return s.db.ShiftYears(ctx)
}

func (s *Service) ShiftMonths(ctx context.Context, year int) ([]string, error) {
	if _, err := YearPeriod(year); err != nil {
		return nil, err
	}
	return s.db.ShiftMonths(ctx, strconv.Itoa(year))
}

func (s *Service) ShiftsByYearMonth(ctx context.Context, year int, month string) ([]models.Shift, error) {
	p, err := YearMonthPeriod(year, month)
	if err != nil {
		return nil, err
	}
	return s.db.ClosedShifts(ctx, p)
}

func (s *Service) ShiftsByPeriod(ctx context.Context, period string) ([]models.Shift, error) {
	p, err := s.PeriodFor(period)
	if err != nil {
		return nil, err
	}
	return s.db.ClosedShifts(ctx, p)
}

func (s *Service) AllClosedShifts(ctx context.Context) ([]models.Shift, error) {
	return s.db.ClosedShifts(ctx, Period{})
}

// ShiftReport bundles one shift with its sales, payments and bonus spend.
func (s *Service) ShiftReport(ctx context.Context, number int, monthYear string) (*models.ShiftReport, error) {
	shift, err := s.db.Shift(ctx, number, monthYear)
	if err != nil {
		return nil, err
	}

	sales, err := s.db.ShiftSales(ctx, number, monthYear)
	if err != nil {
		return nil, err
	}
	window := shiftWindow(shift)
	payments, err := s.db.PaymentStatistics(ctx, window)
	if err != nil {
		return nil, err
	}
	spent, err := s.db.SpentBonuses(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("shift report %d/%s: %w", number, monthYear, err)
	}

	return &models.ShiftReport{
		Shift:        *shift,
		Sales:        sales,
		Payments:     payments,
		BonusesSpent: spent,
	}, nil
}
