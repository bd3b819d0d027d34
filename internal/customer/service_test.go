package customer_test

import (
	"bytes"
	"context"
	"image/png"
	"io"
	"strconv"
	"testing"
	"time"

	"ms-lounge/internal/clock"
	"ms-lounge/internal/customer"
	customerdb "ms-lounge/internal/customer/db"
	"ms-lounge/internal/database/dbtest"
	apperrors "ms-lounge/internal/errors"
	"ms-lounge/internal/kafka"
	"ms-lounge/internal/logger"
	"ms-lounge/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, eventType, key string, payload any) error {
	args := m.Called(eventType, key)
	return args.Error(0)
}

func newService(t *testing.T) (*customer.CustomerService, *customerdb.DB, *MockPublisher) {
	pub := &MockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil)
	d := &customerdb.DB{Bun: dbtest.New(t, false)}
	clk := clock.Fixed(time.Date(2024, 1, 10, 18, 0, 0, 0, clock.Location()))
	svc := customer.NewCustomerService(d, pub, clk, logger.NewLoggerWithWriter(io.Discard), customer.Settings{
		SignupBonus:   100,
		ReferralBonus: 100,
		BotUsername:   "lounge_bot",
	})
	return svc, d, pub
}

func TestReferralScenario(t *testing.T) {
	svc, _, pub := newService(t)
	ctx := context.Background()

	a, err := svc.AddUser(ctx, customer.NewUser{ExternalID: 111, FirstName: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, int64(100), a.BonusBalance)

	b, err := svc.AddUser(ctx, customer.NewUser{ExternalID: 222, FirstName: "Bob", ReferredBy: &a.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(100), b.BonusBalance)
	require.NotNil(t, b.ReferredBy)
	assert.Equal(t, a.ID, *b.ReferredBy)

	award, err := svc.AwardReferralBonus(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, customer.ReferralAward{ReferrerID: a.ID, Amount: 100, Awarded: true}, award)

	again, err := svc.AwardReferralBonus(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, again.Awarded)

	got, err := svc.GetUser(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), got.BonusBalance)

	stats, err := svc.ReferrerStats(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Awarded)

	pub.AssertNumberOfCalls(t, "Publish", 3)
}

func TestAddUserErrors(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	a, err := svc.AddUser(ctx, customer.NewUser{ExternalID: 1})
	require.NoError(t, err)

	_, err = svc.AddUser(ctx, customer.NewUser{ExternalID: 1})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateRegistration)
	assert.Equal(t, apperrors.ErrCodeDuplicateRegistration, apperrors.CodeOf(err))

	ghost := int64(404)
	_, err = svc.AddUser(ctx, customer.NewUser{ExternalID: 2, ReferredBy: &ghost})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.AddUser(ctx, customer.NewUser{ExternalID: 1, ReferredBy: &a.ID})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.AddUser(ctx, customer.NewUser{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestGetOrCreateUserHasNoSignupGrant(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	u, created, err := svc.GetOrCreateUser(ctx, customer.NewUser{ExternalID: 900, FirstName: "Web"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Zero(t, u.BonusBalance)

	again, created, err := svc.GetOrCreateUser(ctx, customer.NewUser{ExternalID: 900})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, u.ID, again.ID)

	txs, err := svc.Transactions(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestAdjustAndRecordTransaction(t *testing.T) {
	svc, d, _ := newService(t)
	ctx := context.Background()
	u, err := svc.AddUser(ctx, customer.NewUser{ExternalID: 5})
	require.NoError(t, err)

	balance, err := svc.AdjustBalance(ctx, u.ID, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(150), balance)

	balance, err = svc.AdjustBalance(ctx, u.ID, -120)
	require.NoError(t, err)
	assert.Equal(t, int64(30), balance)

	_, err = svc.AdjustBalance(ctx, u.ID, -31)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientBalance)
	_, err = svc.AdjustBalance(ctx, u.ID, 0)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	balance, err = svc.SpendBonus(ctx, u.ID, 30, "hookah")
	require.NoError(t, err)
	assert.Zero(t, balance)

	balance, err = svc.EarnBonus(ctx, u.ID, 15, "")
	require.NoError(t, err)
	assert.Equal(t, int64(15), balance)

	_, err = svc.RecordTransaction(ctx, u.ID, -5, models.KindEarn, "bad")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = svc.RecordTransaction(ctx, u.ID, 5, models.TransactionKind("gift"), "bad")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	txs, err := svc.Transactions(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 5)
	for _, tx := range txs {
		if tx.Kind == models.KindSpend {
			assert.Negative(t, tx.Amount)
		} else {
			assert.Positive(t, tx.Amount)
		}
	}

	st, err := svc.Statement(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, st.Balanced)
	assert.Equal(t, balance, st.Balance)
	assert.Equal(t, balance, st.LedgerSum)
	assert.Len(t, st.Transactions, 5)

	_, err = d.Bun.ExecContext(ctx, "UPDATE users SET bonus_balance = bonus_balance + 1 WHERE id = ?", u.ID)
	require.NoError(t, err)
	st, err = svc.Statement(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, st.Balanced)
	assert.Equal(t, balance+1, st.Balance)

	_, err = svc.Statement(ctx, 9999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestBonusRequestFlow(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	u, err := svc.AddUser(ctx, customer.NewUser{ExternalID: 7, FirstName: "Kate"})
	require.NoError(t, err)

	_, err = svc.CreateBonusRequest(ctx, u.ID, 500)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientBalance)

	req, err := svc.CreateBonusRequest(ctx, u.ID, 80)
	require.NoError(t, err)
	assert.Equal(t, models.BonusRequestPending, req.Status)

	pending, err := svc.ListPendingRequests(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Kate", pending[0].FirstName)

	_, err = svc.SetBonusRequestStatus(ctx, req.ID, models.BonusRequestPending)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	approved, err := svc.SetBonusRequestStatus(ctx, req.ID, models.BonusRequestApproved)
	require.NoError(t, err)
	assert.Equal(t, models.BonusRequestApproved, approved.Status)
	assert.False(t, approved.ResolvedAt.IsZero())

	got, err := svc.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), got.BonusBalance)

	_, err = svc.SetBonusRequestStatus(ctx, req.ID, models.BonusRequestRejected)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestReferralQR(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	u, err := svc.AddUser(ctx, customer.NewUser{ExternalID: 8})
	require.NoError(t, err)

	assert.Equal(t, "https://t.me/lounge_bot?start=ref_"+strconv.FormatInt(u.ID, 10), svc.ReferralLink(u.ID))

	img, err := svc.ReferralQR(ctx, u.ID)
	require.NoError(t, err)
	decoded, err := png.Decode(bytes.NewReader(img))
	require.NoError(t, err)
	assert.Equal(t, 256, decoded.Bounds().Dx())

	require.NoError(t, svc.DeactivateUser(ctx, u.ID))
	_, err = svc.ReferralQR(ctx, u.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = svc.ReferralQR(ctx, 999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestParseReferralPayload(t *testing.T) {
	id, ok := customer.ParseReferralPayload("ref_42")
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "ref_", "ref_-1", "hello", "ref_42abc", "ref_ 42", "xref_42"} {
		_, ok := customer.ParseReferralPayload(bad)
		assert.False(t, ok, bad)
	}
}

func TestPublishEventTypes(t *testing.T) {
	svc, _, pub := newService(t)
	ctx := context.Background()

	u, err := svc.AddUser(ctx, customer.NewUser{ExternalID: 31})
	require.NoError(t, err)
	_, err = svc.AdjustBalance(ctx, u.ID, 5)
	require.NoError(t, err)

	pub.AssertCalled(t, "Publish", kafka.EventUserRegistered, mock.Anything)
	pub.AssertCalled(t, "Publish", kafka.EventBonusChanged, mock.Anything)
}
