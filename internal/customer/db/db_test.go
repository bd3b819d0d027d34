package db_test

import (
	"context"
	"testing"
	"time"

	"ms-lounge/internal/clock"
	customerdb "ms-lounge/internal/customer/db"
	"ms-lounge/internal/database/dbtest"
	apperrors "ms-lounge/internal/errors"
	"ms-lounge/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = clock.NewTimestamp(time.Date(2024, 1, 10, 18, 0, 0, 0, clock.Location()))

func setupTestDB(t *testing.T) *customerdb.DB {
	return &customerdb.DB{Bun: dbtest.New(t, false)}
}

func register(t *testing.T, d *customerdb.DB, externalID int64, bonus int64, referrer *int64) *models.User {
	u := &models.User{ExternalID: externalID, FirstName: "User", RegisteredAt: now, IsActive: true}
	require.NoError(t, d.CreateUser(context.Background(), customerdb.Registration{
		User: u, SignupBonus: bonus, BonusReason: "Welcome bonus", ReferrerID: referrer,
	}))
	return u
}

func assertLedgerMatches(t *testing.T, d *customerdb.DB, userID int64) {
	t.Helper()
	ctx := context.Background()
	u, err := d.GetUser(ctx, userID)
	require.NoError(t, err)
	sum, err := d.LedgerSum(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, u.BonusBalance, sum, "balance must equal ledger sum")
}

func TestCreateUserWritesSignupGrant(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	u := register(t, d, 1001, 100, nil)
	assert.NotZero(t, u.ID)

	got, err := d.GetUserByExternalID(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.BonusBalance)
	assert.True(t, got.IsActive)
	assert.Equal(t, "2024-01-10 18:00:00", got.RegisteredAt.String())

	txs, err := d.Transactions(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, models.KindEarn, txs[0].Kind)
	assert.Equal(t, int64(100), txs[0].Amount)
	assertLedgerMatches(t, d, u.ID)
}

func TestDuplicateRegistrationCreatesNothing(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	first := register(t, d, 1001, 100, nil)

	dup := &models.User{ExternalID: 1001, FirstName: "Again", RegisteredAt: now, IsActive: true}
	err := d.CreateUser(ctx, customerdb.Registration{User: dup, SignupBonus: 100, BonusReason: "Welcome bonus"})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateRegistration)

	users, err := d.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	var count int
	count, err = d.Bun.NewSelect().Model((*models.BonusTransaction)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assertLedgerMatches(t, d, first.ID)
}

func TestUnknownReferrerRejected(t *testing.T) {
	d := setupTestDB(t)
	missing := int64(77)

	u := &models.User{ExternalID: 5, RegisteredAt: now, IsActive: true}
	err := d.CreateUser(context.Background(), customerdb.Registration{User: u, SignupBonus: 100, ReferrerID: &missing})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = d.GetUserByExternalID(context.Background(), 5)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReferralAwardIsIdempotent(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	referrer := register(t, d, 1, 100, nil)
	referred := register(t, d, 2, 100, &referrer.ID)

	stats, err := d.ReferrerStats(ctx, referrer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReferrerStats{Total: 1, Awarded: 0}, stats)

	referrerID, awarded, err := d.AwardReferral(ctx, referred.ID, 100, "Referral bonus", now)
	require.NoError(t, err)
	assert.True(t, awarded)
	assert.Equal(t, referrer.ID, referrerID)

	referrerID, awarded, err = d.AwardReferral(ctx, referred.ID, 100, "Referral bonus", now)
	require.NoError(t, err)
	assert.False(t, awarded)
	assert.Equal(t, referrer.ID, referrerID)

	got, err := d.GetUser(ctx, referrer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), got.BonusBalance)
	assertLedgerMatches(t, d, referrer.ID)

	stats, err = d.ReferrerStats(ctx, referrer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReferrerStats{Total: 1, Awarded: 1}, stats)

	invited, err := d.ReferredUsers(ctx, referrer.ID)
	require.NoError(t, err)
	require.Len(t, invited, 1)
	assert.Equal(t, referred.ID, invited[0].ID)
}

func TestAwardWithoutReferral(t *testing.T) {
	d := setupTestDB(t)
	loner := register(t, d, 3, 100, nil)

	referrerID, awarded, err := d.AwardReferral(context.Background(), loner.ID, 100, "Referral bonus", now)
	require.NoError(t, err)
	assert.False(t, awarded)
	assert.Zero(t, referrerID)
}

func TestApplyBonusNeverGoesNegative(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	u := register(t, d, 10, 100, nil)

	balance, err := d.ApplyBonus(ctx, u.ID, -60, models.KindSpend, "hookah", now)
	require.NoError(t, err)
	assert.Equal(t, int64(40), balance)

	_, err = d.ApplyBonus(ctx, u.ID, -41, models.KindSpend, "hookah", now)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientBalance)

	_, err = d.ApplyBonus(ctx, 9999, 10, models.KindEarn, "ghost", now)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	got, err := d.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(40), got.BonusBalance)
	assertLedgerMatches(t, d, u.ID)
}

func TestResolveBonusRequest(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	u := register(t, d, 20, 100, nil)

	approve := &models.BonusRequest{UserID: u.ID, Amount: 70, Status: models.BonusRequestPending, CreatedAt: now}
	tooBig := &models.BonusRequest{UserID: u.ID, Amount: 50, Status: models.BonusRequestPending, CreatedAt: now}
	reject := &models.BonusRequest{UserID: u.ID, Amount: 10, Status: models.BonusRequestPending, CreatedAt: now}
	for _, r := range []*models.BonusRequest{approve, tooBig, reject} {
		require.NoError(t, d.CreateBonusRequest(ctx, r))
	}

	pending, err := d.ListBonusRequests(ctx, models.BonusRequestPending)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, "User", pending[0].FirstName)

	resolved, err := d.ResolveBonusRequest(ctx, approve.ID, models.BonusRequestApproved, "redeem", now)
	require.NoError(t, err)
	assert.Equal(t, models.BonusRequestApproved, resolved.Status)

	_, err = d.ResolveBonusRequest(ctx, tooBig.ID, models.BonusRequestApproved, "redeem", now)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientBalance)
	still, err := d.GetBonusRequest(ctx, tooBig.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BonusRequestPending, still.Status)

	_, err = d.ResolveBonusRequest(ctx, reject.ID, models.BonusRequestRejected, "", now)
	require.NoError(t, err)

	_, err = d.ResolveBonusRequest(ctx, approve.ID, models.BonusRequestRejected, "", now)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	_, err = d.ResolveBonusRequest(ctx, 999, models.BonusRequestRejected, "", now)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	got, err := d.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(30), got.BonusBalance)
	assertLedgerMatches(t, d, u.ID)

	pending, err = d.ListBonusRequests(ctx, models.BonusRequestPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestRecordPurchaseAndDeactivate(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	u := register(t, d, 30, 0, nil)

	require.NoError(t, d.RecordPurchase(ctx, u.ID, 1500))
	require.NoError(t, d.RecordPurchase(ctx, u.ID, 500))
	assert.ErrorIs(t, d.RecordPurchase(ctx, 999, 1), apperrors.ErrNotFound)

	got, err := d.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), got.TotalSpent)
	assert.Equal(t, int64(2), got.TotalOrders)

	require.NoError(t, d.SetActive(ctx, u.ID, false))
	users, err := d.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}
