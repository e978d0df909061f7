package loyalty_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/priroda-spa/loyalty-console/internal/loyalty"
	"github.com/priroda-spa/loyalty-console/internal/mocks"
)

func resolvedAccount(balance int) *loyalty.Account {
	return testAccount(balance, intPtr(3))
}

func TestSessionResolveCanonicalizesCode(t *testing.T) {
	api := mocks.NewAPIForTest(t)
	session := loyalty.NewSession(api)
	ctx := context.Background()

	api.EXPECT().ResolveByCode(ctx, "ABC12345").Return(resolvedAccount(120), nil)

	account, err := session.Resolve(ctx, "  abc12345 ")
	require.NoError(t, err)
	assert.Equal(t, "ABC12345", account.UniqueCode)
	assert.Equal(t, loyalty.PhaseReviewingAccount, session.Phase())
	assert.Equal(t, loyalty.StateBuilding, session.State())
}

func TestSessionResolveEmptyCodeIsLocal(t *testing.T) {
	api := mocks.NewAPIForTest(t)
	session := loyalty.NewSession(api)

	_, err := session.Resolve(context.Background(), "   ")
	require.ErrorIs(t, err, loyalty.ErrNotFound)
}

func TestSessionResolveFailureKeepsState(t *testing.T) {
	api := mocks.NewAPIForTest(t)
	session := loyalty.NewSession(api)
	ctx := context.Background()

	api.EXPECT().ResolveByCode(ctx, "ABC12345").Return(resolvedAccount(120), nil)
	_, err := session.Resolve(ctx, "ABC12345")
	require.NoError(t, err)
	require.NoError(t, session.AddService("Massage", 2000))

	api.EXPECT().ResolveByCode(ctx, "NOPE0000").Return(nil, loyalty.ErrNotFound)
	_, err = session.Resolve(ctx, "nope0000")
	require.ErrorIs(t, err, loyalty.ErrNotFound)

	// A failed lookup replaces nothing: the account and draft survive.
	assert.Equal(t, "ABC12345", session.Account().UniqueCode)
	assert.Len(t, session.Services(), 1)
}

// Scenario: code resolves to balance 120 at 3% cashback, the operator
// bills one massage at ₽2000 and submits without a spend.
func TestSessionAwardFlow(t *testing.T) {
	api := mocks.NewAPIForTest(t)
	session := loyalty.NewSession(api)
	ctx := context.Background()

	api.EXPECT().ResolveByCode(ctx, "ABC12345").Return(resolvedAccount(120), nil)
	_, err := session.Resolve(ctx, "ABC12345")
	require.NoError(t, err)

	require.NoError(t, session.AddService("Massage", 2000))
	assert.Equal(t, 60, session.PreviewAward())
	assert.Equal(t, loyalty.PhaseComposingAdjustment, session.Phase())

	api.EXPECT().
		ApplyAdjustment(ctx, int64(7), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, adj *loyalty.Adjustment) (*loyalty.AdjustmentResult, error) {
			assert.Equal(t, []loyalty.ServiceItem{{Name: "Massage", PriceRub: 2000}}, adj.Services)
			assert.Nil(t, adj.BonusesDelta)
			assert.Equal(t, "Awarded 60 bonuses (3% of ₽2000)", adj.Reason)
			return &loyalty.AdjustmentResult{BonusesAwarded: 60, BonusesSpent: 0, CurrentBonuses: 180}, nil
		})
	api.EXPECT().ResolveByCode(ctx, "ABC12345").Return(resolvedAccount(180), nil)

	result, err := session.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 60, result.BonusesAwarded)
	assert.Equal(t, 180, result.CurrentBonuses)

	// The displayed balance comes from the post-submit resolve, not from
	// the local preview.
	assert.Equal(t, 180, session.Account().Bonuses)
	assert.Equal(t, loyalty.StateIdle, session.State())
	assert.Equal(t, loyalty.PhaseShowingResult, session.Phase())
	assert.Empty(t, session.Services())
	assert.Equal(t, 0, session.SpendAmount())
}

// Scenario: spend 50 with no services, default Russian reason, negative
// delta on the wire.
func TestSessionSpendFlow(t *testing.T) {
	api := mocks.NewAPIForTest(t)
	session := loyalty.NewSession(api)
	ctx := context.Background()

	api.EXPECT().ResolveByCode(ctx, "ABC12345").Return(resolvedAccount(120), nil)
	_, err := session.Resolve(ctx, "ABC12345")
	require.NoError(t, err)
	require.NoError(t, session.SetSpend(50))

	api.EXPECT().
		ApplyAdjustment(ctx, int64(7), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, adj *loyalty.Adjustment) (*loyalty.AdjustmentResult, error) {
			require.NotNil(t, adj.BonusesDelta)
			assert.Equal(t, -50, *adj.BonusesDelta)
			assert.Empty(t, adj.Services)
			assert.Equal(t, "Списано 50 бонусов (скидка)", adj.Reason)
			return &loyalty.AdjustmentResult{BonusesSpent: 50, CurrentBonuses: 70}, nil
		})
	api.EXPECT().ResolveByCode(ctx, "ABC12345").Return(resolvedAccount(70), nil)

	result, err := session.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, result.BonusesSpent)
	assert.Equal(t, 70, session.Account().Bonuses)
}

// Scenario: a spend above the resolved balance fails locally. The mock
// would reject any network call.
func TestSessionOverdraftFailsLocally(t *testing.T) {
	api := mocks.NewAPIForTest(t)
	session := loyalty.NewSession(api)
	ctx := context.Background()

	api.EXPECT().ResolveByCode(ctx, "ABC12345").Return(resolvedAccount(120), nil)
	_, err := session.Resolve(ctx, "ABC12345")
	require.NoError(t, err)
	require.NoError(t, session.SetSpend(150))

	_, err = session.Submit(ctx)
	require.ErrorIs(t, err, loyalty.ErrInsufficientBalance)
	assert.Equal(t, loyalty.StateBuilding, session.State())
	assert.False(t, session.NeedsResolve())
}

func TestSessionEmptyDraftFailsLocally(t *testing.T) {
	api := mocks.NewAPIForTest(t)
	session := loyalty.NewSession(api)
	ctx := context.Background()

	api.EXPECT().ResolveByCode(ctx, "ABC12345").Return(resolvedAccount(120), nil)
	_, err := session.Resolve(ctx, "ABC12345")
	require.NoError(t, err)
	require.NoError(t, session.SetReason("причина без операции"))

	_, err = session.Submit(ctx)
	require.ErrorIs(t, err, loyalty.ErrEmptyAdjustment)
}

// Scenario: the server rejects the spend because the balance changed
// after the resolve. The session must refuse everything until a fresh
// resolve.
func TestSessionServerOverdraftForcesResolve(t *testing.T) {
	api := mocks.NewAPIForTest(t)
	session := loyalty.NewSession(api)
	ctx := context.Background()

	api.EXPECT().ResolveByCode(ctx, "ABC12345").Return(resolvedAccount(120), nil)
	_, err := session.Resolve(ctx, "ABC12345")
	require.NoError(t, err)
	require.NoError(t, session.SetSpend(100))

	api.EXPECT().
		ApplyAdjustment(ctx, int64(7), gomock.Any()).
		Return(nil, loyalty.ErrInsufficientBalance)

	_, err = session.Submit(ctx)
	require.ErrorIs(t, err, loyalty.ErrInsufficientBalance)
	assert.True(t, session.NeedsResolve())

	_, err = session.Submit(ctx)
	require.ErrorIs(t, err, loyalty.ErrResolveRequired)
	require.ErrorIs(t, session.SetSpend(10), loyalty.ErrResolveRequired)
	require.ErrorIs(t, session.AddService("Massage", 100), loyalty.ErrResolveRequired)

	// A fresh resolve unblocks the session with a clean draft.
	api.EXPECT().ResolveByCode(ctx, "ABC12345").Return(resolvedAccount(20), nil)
	_, err = session.Resolve(ctx, "ABC12345")
	require.NoError(t, err)
	assert.False(t, session.NeedsResolve())
	assert.Equal(t, 0, session.SpendAmount())
}

// Scenario: a transient failure preserves the draft for resubmission.
func TestSessionNetworkFailureKeepsDraft(t *testing.T) {
	api := mocks.NewAPIForTest(t)
	session := loyalty.NewSession(api)
	ctx := context.Background()

	api.EXPECT().ResolveByCode(ctx, "ABC12345").Return(resolvedAccount(120), nil)
	_, err := session.Resolve(ctx, "ABC12345")
	require.NoError(t, err)
	require.NoError(t, session.AddService("Massage", 2000))

	api.EXPECT().
		ApplyAdjustment(ctx, int64(7), gomock.Any()).
		Return(nil, assert.AnError)

	_, err = session.Submit(ctx)
	require.Error(t, err)
	assert.Equal(t, loyalty.StateBuilding, session.State())
	assert.Len(t, session.Services(), 1)
	assert.False(t, session.NeedsResolve())
}

// Scenario: switching to a new code mid-draft discards the draft and
// starts a fresh one against the new account.
func TestSessionSwitchingAccountsDiscardsDraft(t *testing.T) {
	api := mocks.NewAPIForTest(t)
	session := loyalty.NewSession(api)
	ctx := context.Background()

	api.EXPECT().ResolveByCode(ctx, "ABC12345").Return(resolvedAccount(120), nil)
	_, err := session.Resolve(ctx, "ABC12345")
	require.NoError(t, err)
	require.NoError(t, session.AddService("Massage", 2000))
	require.NoError(t, session.SetSpend(30))

	other := resolvedAccount(500)
	other.ID = 8
	other.UniqueCode = "XYZ98765"
	api.EXPECT().ResolveByCode(ctx, "XYZ98765").Return(other, nil)

	_, err = session.Resolve(ctx, "xyz98765")
	require.NoError(t, err)

	assert.Empty(t, session.Services())
	assert.Equal(t, 0, session.SpendAmount())
	assert.Equal(t, int64(8), session.Account().ID)
}

// A second submit while one is outstanding must be refused, not queued:
// it could double-apply a spend.
func TestSessionSubmitIsSingleFlight(t *testing.T) {
	api := mocks.NewAPIForTest(t)
	session := loyalty.NewSession(api)
	ctx := context.Background()

	api.EXPECT().ResolveByCode(ctx, "ABC12345").Return(resolvedAccount(120), nil)
	_, err := session.Resolve(ctx, "ABC12345")
	require.NoError(t, err)
	require.NoError(t, session.SetSpend(50))

	api.EXPECT().
		ApplyAdjustment(ctx, int64(7), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, _ *loyalty.Adjustment) (*loyalty.AdjustmentResult, error) {
			_, reentrant := session.Submit(ctx)
			assert.ErrorIs(t, reentrant, loyalty.ErrSubmitInFlight)
			_, reentrant = session.Resolve(ctx, "ABC12345")
			assert.ErrorIs(t, reentrant, loyalty.ErrSubmitInFlight)
			return &loyalty.AdjustmentResult{BonusesSpent: 50, CurrentBonuses: 70}, nil
		})
	api.EXPECT().ResolveByCode(ctx, "ABC12345").Return(resolvedAccount(70), nil)

	_, err = session.Submit(ctx)
	require.NoError(t, err)
}

func TestSessionSubmitWithoutAccount(t *testing.T) {
	api := mocks.NewAPIForTest(t)
	session := loyalty.NewSession(api)

	_, err := session.Submit(context.Background())
	require.ErrorIs(t, err, loyalty.ErrNoAccount)
}

func TestSessionRefreshFailureSurfacesResult(t *testing.T) {
	api := mocks.NewAPIForTest(t)
	session := loyalty.NewSession(api)
	ctx := context.Background()

	api.EXPECT().ResolveByCode(ctx, "ABC12345").Return(resolvedAccount(120), nil)
	_, err := session.Resolve(ctx, "ABC12345")
	require.NoError(t, err)
	require.NoError(t, session.SetSpend(50))

	api.EXPECT().
		ApplyAdjustment(ctx, int64(7), gomock.Any()).
		Return(&loyalty.AdjustmentResult{BonusesSpent: 50, CurrentBonuses: 70}, nil)
	api.EXPECT().ResolveByCode(ctx, "ABC12345").Return(nil, assert.AnError)

	result, err := session.Submit(ctx)
	require.Error(t, err)
	// The adjustment did apply; the caller gets the result together with
	// the refresh failure, and the session demands a manual resolve.
	require.NotNil(t, result)
	assert.Equal(t, 70, result.CurrentBonuses)
	assert.True(t, session.NeedsResolve())
}

func TestSessionNewSearchDiscardsDraft(t *testing.T) {
	api := mocks.NewAPIForTest(t)
	session := loyalty.NewSession(api)
	ctx := context.Background()

	api.EXPECT().ResolveByCode(ctx, "ABC12345").Return(resolvedAccount(120), nil)
	_, err := session.Resolve(ctx, "ABC12345")
	require.NoError(t, err)
	require.NoError(t, session.AddService("Massage", 2000))

	require.NoError(t, session.NewSearch())
	assert.Equal(t, loyalty.PhaseSearchingByCode, session.Phase())
	assert.Empty(t, session.Services())
}
