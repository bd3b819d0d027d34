package order

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ms-lounge/internal/clock"
	apperrors "ms-lounge/internal/errors"
	"ms-lounge/internal/kafka"
	"ms-lounge/internal/logger"
	"ms-lounge/internal/models"
	"ms-lounge/internal/order/redis"
)

type ShiftDBLayer interface {
	NextShiftNumber(ctx context.Context, monthYear string) (int, error)
	OpenShift(ctx context.Context, staffID int64, monthYear string, at clock.Timestamp) (*models.Shift, error)
	GetActiveShift(ctx context.Context) (*models.Shift, error)
	GetShift(ctx context.Context, number int, monthYear string) (*models.Shift, error)
	ListShiftsByMonth(ctx context.Context, monthYear string) ([]models.Shift, error)
	CloseShift(ctx context.Context, number int, monthYear string, revenue, orders int64, at clock.Timestamp) (*models.Shift, error)
	SaveShiftSales(ctx context.Context, number int, monthYear string, sales map[string]models.ItemSales) error
	FinishShift(ctx context.Context, shift *models.Shift, summary models.ShiftSummary, at clock.Timestamp) error
	Summarize(ctx context.Context, from, to clock.Timestamp) (models.ShiftSummary, error)
}

// ShiftLocker serialises shift creation. The returned func releases the lock.
type ShiftLocker interface {
	AcquireShiftLock(ctx context.Context) (func(), error)
}

// LocalShiftLock is the single-process ShiftLocker.
type LocalShiftLock struct {
	mu sync.Mutex
}

func (l *LocalShiftLock) AcquireShiftLock(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	return l.mu.Unlock, nil
}

var _ ShiftLocker = (*LocalShiftLock)(nil)
var _ ShiftLocker = (*redis.Redis)(nil)

type ShiftService struct {
	DB     ShiftDBLayer
	Lock   ShiftLocker
	Events kafka.Publisher
	Clock  *clock.Clock
	Logger *logger.Logger
}

func NewShiftService(db ShiftDBLayer, lock ShiftLocker, events kafka.Publisher, clk *clock.Clock, log *logger.Logger) *ShiftService {
	if lock == nil {
		lock = &LocalShiftLock{}
	}
	return &ShiftService{DB: db, Lock: lock, Events: events, Clock: clk, Logger: log}
}

// ---------------- SHIFTS ----------------

func (s *ShiftService) period(monthYear string) (string, error) {
	if monthYear == "" {
		return s.Clock.CurrentMonthYear(), nil
	}
	if err := clock.ValidateMonthYear(monthYear); err != nil {
		return "", apperrors.Validation("%v", err)
	}
	return monthYear, nil
}

func (s *ShiftService) NextShiftNumber(ctx context.Context, monthYear string) (int, error) {
	monthYear, err := s.period(monthYear)
	if err != nil {
		return 0, err
	}
	return s.DB.NextShiftNumber(ctx, monthYear)
}

// OpenShift opens the next shift of the period (current month when empty).
// It fails with ErrShiftAlreadyOpen while another shift is open.
func (s *ShiftService) OpenShift(ctx context.Context, staffID int64, monthYear string) (*models.Shift, error) {
	monthYear, err := s.period(monthYear)
	if err != nil {
		return nil, err
	}

	release, err := s.Lock.AcquireShiftLock(ctx)
	if errors.Is(err, redis.ErrLockBusy) {
		return nil, apperrors.NewAppError(apperrors.ErrCodeConflict, "shift creation is in progress elsewhere", apperrors.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("acquire shift lock: %w", err)
	}
	defer release()

	shift, err := s.DB.OpenShift(ctx, staffID, monthYear, s.Clock.Stamp())
	if err != nil {
		return nil, err
	}

	s.Logger.LogShift("OPEN", shift.ShiftNumber, shift.MonthYear, fmt.Sprintf("opened by staff %d", staffID))
	s.publish(ctx, kafka.EventShiftOpened, shift)
	return shift, nil
}

// CloseShift stores totals computed by the caller.
func (s *ShiftService) CloseShift(ctx context.Context, number int, monthYear string, revenue, orders int64) (*models.Shift, error) {
	if revenue < 0 || orders < 0 {
		return nil, apperrors.Validation("shift totals must not be negative")
	}
	shift, err := s.DB.CloseShift(ctx, number, monthYear, revenue, orders, s.Clock.Stamp())
	if err != nil {
		return nil, err
	}

	s.Logger.LogShift("CLOSE", number, monthYear, fmt.Sprintf("revenue %d over %d orders", revenue, orders))
	s.publish(ctx, kafka.EventShiftClosed, shift)
	return shift, nil
}

func (s *ShiftService) SaveShiftSales(ctx context.Context, number int, monthYear string, sales map[string]models.ItemSales) error {
	if err := s.DB.SaveShiftSales(ctx, number, monthYear, sales); err != nil {
		return err
	}
	s.Logger.LogShift("SALES", number, monthYear, fmt.Sprintf("%d items stored", len(sales)))
	return nil
}

func (s *ShiftService) GetActiveShift(ctx context.Context) (*models.Shift, error) {
	return s.DB.GetActiveShift(ctx)
}

func (s *ShiftService) GetShift(ctx context.Context, number int, monthYear string) (*models.Shift, error) {
	return s.DB.GetShift(ctx, number, monthYear)
}

func (s *ShiftService) ListShiftsByMonth(ctx context.Context, monthYear string) ([]models.Shift, error) {
	monthYear, err := s.period(monthYear)
	if err != nil {
		return nil, err
	}
	return s.DB.ListShiftsByMonth(ctx, monthYear)
}

// SummarizeShift totals the closed orders created inside the shift window.
func (s *ShiftService) SummarizeShift(ctx context.Context, shift *models.Shift) (models.ShiftSummary, error) {
	return s.DB.Summarize(ctx, shift.OpenedAt, shift.ClosedAt)
}

// FinishActiveShift computes the active shift's totals and sales, then
// closes it and stores the sales together.
func (s *ShiftService) FinishActiveShift(ctx context.Context) (*models.Shift, models.ShiftSummary, error) {
	shift, err := s.DB.GetActiveShift(ctx)
	if err != nil {
		return nil, models.ShiftSummary{}, err
	}

	now := s.Clock.Stamp()
	summary, err := s.DB.Summarize(ctx, shift.OpenedAt, now)
	if err != nil {
		return nil, summary, err
	}
	if err := s.DB.FinishShift(ctx, shift, summary, now); err != nil {
		return nil, summary, err
	}

	s.Logger.LogShift("FINISH", shift.ShiftNumber, shift.MonthYear,
		fmt.Sprintf("revenue %d over %d orders, %d items", summary.Revenue, summary.Orders, len(summary.Sales)))
	s.publish(ctx, kafka.EventShiftClosed, shift)
	return shift, summary, nil
}

func (s *ShiftService) publish(ctx context.Context, eventType string, shift *models.Shift) {
	key := fmt.Sprintf("%s/%d", shift.MonthYear, shift.ShiftNumber)
	if err := s.Events.Publish(ctx, eventType, key, shift); err != nil {
		s.Logger.Warn("SHIFT", fmt.Sprintf("Kafka publish error (%s): %v", eventType, err))
	}
}
