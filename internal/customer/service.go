package customer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ms-lounge/internal/clock"
	customerdb "ms-lounge/internal/customer/db"
	apperrors "ms-lounge/internal/errors"
	"ms-lounge/internal/kafka"
	"ms-lounge/internal/logger"
	"ms-lounge/internal/models"
)

const (
	reasonSignup      = "Welcome bonus"
	reasonReferral    = "Referral bonus for invited user #%d"
	reasonAdjustment  = "Manual adjustment"
	reasonRedemption  = "Bonus request #%d approved"
	reasonDefaultEarn = "Bonus earned"
)

type DBLayer interface {
	CreateUser(ctx context.Context, reg customerdb.Registration) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByExternalID(ctx context.Context, externalID int64) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	SetActive(ctx context.Context, id int64, active bool) error
	RecordPurchase(ctx context.Context, userID, amount int64) error

	ApplyBonus(ctx context.Context, userID, delta int64, kind models.TransactionKind, description string, at clock.Timestamp) (int64, error)
	Transactions(ctx context.Context, userID int64) ([]models.BonusTransaction, error)
	LedgerSum(ctx context.Context, userID int64) (int64, error)

	AwardReferral(ctx context.Context, referredID, amount int64, description string, at clock.Timestamp) (int64, bool, error)
	ReferrerStats(ctx context.Context, userID int64) (models.ReferrerStats, error)
	ReferredUsers(ctx context.Context, referrerID int64) ([]models.User, error)

	CreateBonusRequest(ctx context.Context, req *models.BonusRequest) error
	GetBonusRequest(ctx context.Context, id int64) (*models.BonusRequest, error)
	ListBonusRequests(ctx context.Context, status models.BonusRequestStatus) ([]models.BonusRequest, error)
	ResolveBonusRequest(ctx context.Context, id int64, status models.BonusRequestStatus, description string, at clock.Timestamp) (*models.BonusRequest, error)
}

// Settings are the loyalty program rules.
type Settings struct {
	SignupBonus   int64
	ReferralBonus int64
	BotUsername   string
}

type NewUser struct {
	ExternalID int64  `json:"external_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Phone      string `json:"phone"`
	ReferredBy *int64 `json:"referred_by,omitempty"`
}

// ReferralAward is the outcome of AwardReferralBonus.
type ReferralAward struct {
	ReferrerID int64 `json:"referrer_id"`
	Amount     int64 `json:"amount"`
	Awarded    bool  `json:"awarded"`
}

// Statement is a user's ledger alongside the stored balance. Balanced is
// false when the transactions do not add up to the balance.
type Statement struct {
	UserID       int64                     `json:"user_id"`
	Balance      int64                     `json:"balance"`
	LedgerSum    int64                     `json:"ledger_sum"`
	Balanced     bool                      `json:"balanced"`
	Transactions []models.BonusTransaction `json:"transactions"`
}

type BalanceChange struct {
	UserID  int64                  `json:"user_id"`
	Delta   int64                  `json:"delta"`
	Kind    models.TransactionKind `json:"kind"`
	Balance int64                  `json:"balance"`
}

type CustomerService struct {
	DB       DBLayer
	Events   kafka.Publisher
	Clock    *clock.Clock
	Logger   *logger.Logger
	Settings Settings
}

func NewCustomerService(db DBLayer, events kafka.Publisher, clk *clock.Clock, log *logger.Logger, settings Settings) *CustomerService {
	return &CustomerService{DB: db, Events: events, Clock: clk, Logger: log, Settings: settings}
}

// ---------------- USERS ----------------

// AddUser registers a customer with the signup grant and optional referrer.
func (s *CustomerService) AddUser(ctx context.Context, req NewUser) (*models.User, error) {
	return s.register(ctx, req, s.Settings.SignupBonus)
}

// GetOrCreateUser is the storefront path: it returns the existing user or
// registers one without a signup grant.
func (s *CustomerService) GetOrCreateUser(ctx context.Context, req NewUser) (*models.User, bool, error) {
	u, err := s.DB.GetUserByExternalID(ctx, req.ExternalID)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, false, err
	}

	u, err = s.register(ctx, req, 0)
	if errors.Is(err, apperrors.ErrDuplicateRegistration) {
		// Lost a race with a concurrent registration.
		u, err = s.DB.GetUserByExternalID(ctx, req.ExternalID)
		return u, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}

func (s *CustomerService) register(ctx context.Context, req NewUser, bonus int64) (*models.User, error) {
	if req.ExternalID == 0 {
		return nil, apperrors.Validation("external id is required")
	}
	if req.ReferredBy != nil && *req.ReferredBy <= 0 {
		req.ReferredBy = nil
	}

	u := &models.User{
		ExternalID:   req.ExternalID,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Phone:        strings.TrimSpace(req.Phone),
		RegisteredAt: s.Clock.Stamp(),
		IsActive:     true,
	}

	if req.ReferredBy != nil {
		referrer, err := s.DB.GetUser(ctx, *req.ReferredBy)
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Validation("referrer %d does not exist", *req.ReferredBy)
		}
		if err != nil {
			return nil, err
		}
		if referrer.ExternalID == req.ExternalID {
			return nil, apperrors.Validation("a user cannot refer themselves")
		}
	}

	err := s.DB.CreateUser(ctx, customerdb.Registration{
		User:        u,
		SignupBonus: bonus,
		BonusReason: reasonSignup,
		ReferrerID:  req.ReferredBy,
	})
	if err != nil {
		return nil, err
	}

	s.Logger.LogBonus("REGISTER", u.ID, fmt.Sprintf("external id %d, signup bonus %d", u.ExternalID, bonus))
	s.publish(ctx, kafka.EventUserRegistered, u.ID, u)
	return u, nil
}

func (s *CustomerService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.DB.GetUser(ctx, id)
}

func (s *CustomerService) GetUserByExternalID(ctx context.Context, externalID int64) (*models.User, error) {
	return s.DB.GetUserByExternalID(ctx, externalID)
}

func (s *CustomerService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.DB.ListUsers(ctx)
}

// DeactivateUser hides the user from listings. Their ledger is kept.
func (s *CustomerService) DeactivateUser(ctx context.Context, id int64) error {
	if err := s.DB.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.Logger.LogBonus("DEACTIVATE", id, "user deactivated")
	return nil
}

func (s *CustomerService) RecordPurchase(ctx context.Context, userID, amount int64) error {
	if amount < 0 {
		return apperrors.Validation("purchase amount must not be negative, got %d", amount)
	}
	return s.DB.RecordPurchase(ctx, userID, amount)
}

// ---------------- BONUS LEDGER ----------------

// AdjustBalance applies a signed change; the kind follows the sign.
func (s *CustomerService) AdjustBalance(ctx context.Context, userID, amount int64) (int64, error) {
	if amount == 0 {
		return 0, apperrors.Validation("adjustment amount must not be zero")
	}
	kind := models.KindEarn
	if amount < 0 {
		kind = models.KindSpend
	}
	return s.apply(ctx, userID, amount, kind, reasonAdjustment)
}

// RecordTransaction books a positive amount as earn or spend.
func (s *CustomerService) RecordTransaction(ctx context.Context, userID, amount int64, kind models.TransactionKind, description string) (int64, error) {
	if amount <= 0 {
		return 0, apperrors.Validation("transaction amount must be positive, got %d", amount)
	}
	switch kind {
	case models.KindEarn:
		return s.apply(ctx, userID, amount, kind, description)
	case models.KindSpend:
		return s.apply(ctx, userID, -amount, kind, description)
	default:
		return 0, apperrors.Validation("unknown transaction kind %q", kind)
	}
}

func (s *CustomerService) EarnBonus(ctx context.Context, userID, amount int64, description string) (int64, error) {
	if description == "" {
		description = reasonDefaultEarn
	}
	return s.RecordTransaction(ctx, userID, amount, models.KindEarn, description)
}

func (s *CustomerService) SpendBonus(ctx context.Context, userID, amount int64, description string) (int64, error) {
	return s.RecordTransaction(ctx, userID, amount, models.KindSpend, description)
}

func (s *CustomerService) apply(ctx context.Context, userID, delta int64, kind models.TransactionKind, description string) (int64, error) {
	balance, err := s.DB.ApplyBonus(ctx, userID, delta, kind, description, s.Clock.Stamp())
	if err != nil {
		return 0, err
	}
	s.Logger.LogBonus(strings.ToUpper(string(kind)), userID, fmt.Sprintf("%+d -> balance %d (%s)", delta, balance, description))
	s.publish(ctx, kafka.EventBonusChanged, userID, BalanceChange{UserID: userID, Delta: delta, Kind: kind, Balance: balance})
	return balance, nil
}

func (s *CustomerService) Transactions(ctx context.Context, userID int64) ([]models.BonusTransaction, error) {
	return s.DB.Transactions(ctx, userID)
}

// Statement lists the user's transactions and checks them against the balance.
func (s *CustomerService) Statement(ctx context.Context, userID int64) (*Statement, error) {
	u, err := s.DB.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	txs, err := s.DB.Transactions(ctx, userID)
	if err != nil {
		return nil, err
	}
	sum, err := s.DB.LedgerSum(ctx, userID)
	if err != nil {
		return nil, err
	}

	st := &Statement{UserID: u.ID, Balance: u.BonusBalance, LedgerSum: sum, Balanced: sum == u.BonusBalance, Transactions: txs}
	if !st.Balanced {
		s.Logger.Error("BONUS", fmt.Sprintf("Ledger of user %d sums to %d but balance is %d", userID, sum, u.BonusBalance))
	}
	return st, nil
}

// ---------------- REFERRALS ----------------

// AwardReferralBonus credits the referrer of referredUserID once. Later calls
// and users without a referrer report Awarded=false.
func (s *CustomerService) AwardReferralBonus(ctx context.Context, referredUserID int64) (ReferralAward, error) {
	amount := s.Settings.ReferralBonus
	if amount <= 0 {
		return ReferralAward{}, nil
	}

	referrerID, awarded, err := s.DB.AwardReferral(ctx, referredUserID, amount, fmt.Sprintf(reasonReferral, referredUserID), s.Clock.Stamp())
	if err != nil {
		return ReferralAward{}, err
	}
	if !awarded {
		return ReferralAward{ReferrerID: referrerID}, nil
	}

	award := ReferralAward{ReferrerID: referrerID, Amount: amount, Awarded: true}
	s.Logger.LogBonus("REFERRAL", referrerID, fmt.Sprintf("+%d for inviting user %d", amount, referredUserID))
	s.publish(ctx, kafka.EventReferralAwarded, referrerID, award)
	return award, nil
}

func (s *CustomerService) ReferrerStats(ctx context.Context, userID int64) (models.ReferrerStats, error) {
	return s.DB.ReferrerStats(ctx, userID)
}

func (s *CustomerService) ReferredUsers(ctx context.Context, referrerID int64) ([]models.User, error) {
	return s.DB.ReferredUsers(ctx, referrerID)
}

// ---------------- BONUS REQUESTS ----------------

func (s *CustomerService) CreateBonusRequest(ctx context.Context, userID, amount int64) (*models.BonusRequest, error) {
	if amount <= 0 {
		return nil, apperrors.Validation("requested amount must be positive, got %d", amount)
	}
	u, err := s.DB.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.BonusBalance < amount {
		return nil, apperrors.NewAppError(apperrors.ErrCodeInsufficientBalance,
			fmt.Sprintf("balance %d is below requested %d", u.BonusBalance, amount), apperrors.ErrInsufficientBalance)
	}

	req := &models.BonusRequest{
		UserID:    userID,
		Amount:    amount,
		Status:    models.BonusRequestPending,
		CreatedAt: s.Clock.Stamp(),
	}
	if err := s.DB.CreateBonusRequest(ctx, req); err != nil {
		return nil, err
	}
	s.Logger.LogBonus("REQUEST", userID, fmt.Sprintf("request #%d for %d points", req.ID, amount))
	return req, nil
}

func (s *CustomerService) GetBonusRequest(ctx context.Context, id int64) (*models.BonusRequest, error) {
	return s.DB.GetBonusRequest(ctx, id)
}

func (s *CustomerService) ListPendingRequests(ctx context.Context) ([]models.BonusRequest, error) {
	return s.DB.ListBonusRequests(ctx, models.BonusRequestPending)
}

// SetBonusRequestStatus resolves a pending request. Approving debits the
// balance atomically; rejecting only records the decision.
func (s *CustomerService) SetBonusRequestStatus(ctx context.Context, id int64, status models.BonusRequestStatus) (*models.BonusRequest, error) {
	if status != models.BonusRequestApproved && status != models.BonusRequestRejected {
		return nil, apperrors.Validation("unknown bonus request status %q", status)
	}

	req, err := s.DB.ResolveBonusRequest(ctx, id, status, fmt.Sprintf(reasonRedemption, id), s.Clock.Stamp())
	if err != nil {
		return nil, err
	}
	s.Logger.LogBonus("REQUEST", req.UserID, fmt.Sprintf("request #%d %s", id, status))
	s.publish(ctx, kafka.EventBonusRequestResolved, req.UserID, req)
	return req, nil
}

func (s *CustomerService) publish(ctx context.Context, eventType string, key int64, payload any) {
	if err := s.Events.Publish(ctx, eventType, fmt.Sprint(key), payload); err != nil {
		s.Logger.Warn("BONUS", fmt.Sprintf("Kafka publish error (%s): %v", eventType, err))
	}
}
