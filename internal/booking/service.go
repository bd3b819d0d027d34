package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ms-lounge/internal/clock"
	apperrors "ms-lounge/internal/errors"
	"ms-lounge/internal/kafka"
	"ms-lounge/internal/logger"
	"ms-lounge/internal/models"
)

const DefaultSource = "bot"

type DBLayer interface {
	CreateBooking(ctx context.Context, b *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	UpdateStatus(ctx context.Context, id int64, from, to models.BookingStatus) error
	ListByStatus(ctx context.Context, status models.BookingStatus) ([]models.Booking, error)
	ListByDate(ctx context.Context, date string) ([]models.Booking, error)
	ListAll(ctx context.Context) ([]models.Booking, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Booking, error)
	Stats(ctx context.Context) (models.BookingStats, error)
	Dates(ctx context.Context) ([]string, error)
}

// NewBooking is a reservation request from the bot or the storefront.
type NewBooking struct {
	UserID  *int64 `json:"user_id,omitempty"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Guests  int    `json:"guests"`
	Comment string `json:"comment"`
	Source  string `json:"source"`
}

// transitions lists the allowed status moves. Everything else is rejected.
var transitions = map[models.BookingStatus][]models.BookingStatus{
	models.BookingPending: {models.BookingConfirmed, models.BookingCancelled},
}

func CanTransition(from, to models.BookingStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type BookingService struct {
	DB     DBLayer
	Events kafka.Publisher
	Clock  *clock.Clock
	Logger *logger.Logger
}

func NewBookingService(db DBLayer, events kafka.Publisher, clk *clock.Clock, log *logger.Logger) *BookingService {
	return &BookingService{DB: db, Events: events, Clock: clk, Logger: log}
}

func (s *BookingService) CreateBooking(ctx context.Context, req NewBooking) (*models.Booking, error) {
	req.Date = strings.TrimSpace(req.Date)
	req.Time = strings.TrimSpace(req.Time)
	if req.Date == "" || req.Time == "" {
		return nil, apperrors.Validation("booking date and time are required")
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		return nil, apperrors.Validation("booking date %q must be YYYY-MM-DD", req.Date)
	}
	if _, err := time.Parse("15:04", req.Time); err != nil {
		return nil, apperrors.Validation("booking time %q must be HH:MM", req.Time)
	}
	if req.Guests < 0 {
		return nil, apperrors.Validation("guests must be positive, got %d", req.Guests)
	}
	if req.Guests == 0 {
		req.Guests = 1
	}
	if req.Source == "" {
		req.Source = DefaultSource
	}

	b := &models.Booking{
		UserID:        req.UserID,
		CustomerName:  strings.TrimSpace(req.Name),
		CustomerPhone: strings.TrimSpace(req.Phone),
		BookingDate:   req.Date,
		BookingTime:   req.Time,
		Guests:        req.Guests,
		Comment:       req.Comment,
		Status:        models.BookingPending,
		CreatedAt:     s.Clock.Stamp(),
		Source:        req.Source,
	}
	if err := s.DB.CreateBooking(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	s.Logger.LogBooking("CREATE", b.ID, fmt.Sprintf("%s %s for %d guests via %s", b.BookingDate, b.BookingTime, b.Guests, b.Source))
	s.publish(ctx, kafka.EventBookingCreated, b)
	return b, nil
}

// SetBookingStatus applies a status change allowed by the transition table.
func (s *BookingService) SetBookingStatus(ctx context.Context, id int64, status models.BookingStatus) (*models.Booking, error) {
	if status != models.BookingConfirmed && status != models.BookingCancelled {
		return nil, apperrors.Validation("unknown booking status %q", status)
	}

	b, err := s.DB.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(b.Status, status) {
		return nil, apperrors.NewAppError(apperrors.ErrCodeInvalidTransition,
			fmt.Sprintf("booking %d cannot move from %s to %s", id, b.Status, status), apperrors.ErrInvalidTransition)
	}
	if err := s.DB.UpdateStatus(ctx, id, b.Status, status); err != nil {
		return nil, err
	}

	from := b.Status
	b.Status = status
	s.Logger.LogBooking("STATUS", id, fmt.Sprintf("%s -> %s", from, status))
	s.publish(ctx, kafka.EventBookingStatusChanged, b)
	return b, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.DB.GetBooking(ctx, id)
}

func (s *BookingService) ListByStatus(ctx context.Context, status models.BookingStatus) ([]models.Booking, error) {
	return s.DB.ListByStatus(ctx, status)
}

func (s *BookingService) ListByDate(ctx context.Context, date string) ([]models.Booking, error) {
	return s.DB.ListByDate(ctx, date)
}

func (s *BookingService) ListAll(ctx context.Context) ([]models.Booking, error) {
	return s.DB.ListAll(ctx)
}

func (s *BookingService) ListByUser(ctx context.Context, userID int64) ([]models.Booking, error) {
	return s.DB.ListByUser(ctx, userID)
}

func (s *BookingService) Stats(ctx context.Context) (models.BookingStats, error) {
	return s.DB.Stats(ctx)
}

func (s *BookingService) BookingDates(ctx context.Context) ([]string, error) {
	return s.DB.Dates(ctx)
}

func (s *BookingService) publish(ctx context.Context, eventType string, b *models.Booking) {
	if err := s.Events.Publish(ctx, eventType, fmt.Sprint(b.ID), b); err != nil {
		s.Logger.Warn("BOOKING", fmt.Sprintf("Kafka publish error (%s): %v", eventType, err))
	}
}
