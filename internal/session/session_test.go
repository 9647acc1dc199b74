package session

import (
	"context"
	"testing"
	"time"

	"mychangex/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBalances struct {
	accounts map[uint]*domain.Account
}

func (f *fakeBalances) AccountByID(_ context.Context, id uint) (*domain.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, domain.ErrRecipientNotFound
	}
	return a, nil
}

func testAccount() *domain.Account {
	return &domain.Account{
		ID:       1,
		Phone:    "+251911111111",
		FullName: "Abel Tesfaye",
		Balance:  decimal.RequireFromString("10.00"),
	}
}

func TestBeginAndGet(t *testing.T) {
	acct := testAccount()
	m := NewManager(&fakeBalances{accounts: map[uint]*domain.Account{1: acct}}, nil)
	m.Begin(context.Background(), acct, "token", time.Now().Add(time.Hour))

	s, err := m.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, uint(1), s.AccountID)
	assert.Equal(t, "+251911111111", s.Phone)
	assert.True(t, s.Balance.Equal(decimal.RequireFromString("10.00")))
}

func TestGetWithoutSession(t *testing.T) {
	m := NewManager(&fakeBalances{}, nil)
	_, err := m.Get(context.Background(), 1)
	require.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestGetExpiredSession(t *testing.T) {
	acct := testAccount()
	m := NewManager(&fakeBalances{accounts: map[uint]*domain.Account{1: acct}}, nil)
	m.Begin(context.Background(), acct, "token", time.Now().Add(-time.Minute))

	_, err := m.Get(context.Background(), 1)
	require.ErrorIs(t, err, domain.ErrSessionExpired)
	// The expired entry is gone for good
	_, err = m.Get(context.Background(), 1)
	require.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestEndInvalidatesSession(t *testing.T) {
	acct := testAccount()
	m := NewManager(&fakeBalances{accounts: map[uint]*domain.Account{1: acct}}, nil)
	m.Begin(context.Background(), acct, "token", time.Now().Add(time.Hour))
	m.End(context.Background(), 1)

	_, err := m.Get(context.Background(), 1)
	require.ErrorIs(t, err, domain.ErrSessionExpired)
}

// The optimistic debit is visible immediately; reconciliation then replaces
// it with whatever the store holds.
func TestApplyDebitThenReconcile(t *testing.T) {
	acct := testAccount()
	store := &fakeBalances{accounts: map[uint]*domain.Account{1: acct}}
	m := NewManager(store, nil)
	m.Begin(context.Background(), acct, "token", time.Now().Add(time.Hour))

	m.ApplyDebit(1, decimal.RequireFromString("3.00"))
	s, err := m.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, s.Balance.Equal(decimal.RequireFromString("7.00")), "optimistic state")

	// The store settled on a different value (server-side drift)
	store.accounts[1] = &domain.Account{ID: 1, Balance: decimal.RequireFromString("6.50")}
	require.NoError(t, m.Reconcile(context.Background(), 1))
	s, err = m.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, s.Balance.Equal(decimal.RequireFromString("6.50")), "reconciled state")
}

// Mutating a returned session copy must not leak into the manager's state.
func TestGetReturnsCopy(t *testing.T) {
	acct := testAccount()
	m := NewManager(&fakeBalances{accounts: map[uint]*domain.Account{1: acct}}, nil)
	m.Begin(context.Background(), acct, "token", time.Now().Add(time.Hour))

	s, err := m.Get(context.Background(), 1)
	require.NoError(t, err)
	s.Balance = decimal.Zero

	again, err := m.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, again.Balance.Equal(decimal.RequireFromString("10.00")))
}

func TestReconcileStoreFailure(t *testing.T) {
	acct := testAccount()
	m := NewManager(&fakeBalances{}, nil)
	m.Begin(context.Background(), acct, "token", time.Now().Add(time.Hour))

	err := m.Reconcile(context.Background(), 1)
	require.Error(t, err)
	// The cached balance is left untouched on failure
	s, err := m.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, s.Balance.Equal(decimal.RequireFromString("10.00")))
}
