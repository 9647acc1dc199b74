package resolver

import (
	"context"
	"testing"
	"time"

	"mychangex/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessions struct {
	sessions map[uint]*domain.Session
}

func (f *fakeSessions) Get(_ context.Context, accountID uint) (*domain.Session, error) {
	s, ok := f.sessions[accountID]
	if !ok {
		return nil, domain.ErrSessionExpired
	}
	return s, nil
}

type fakeAccounts struct {
	byPhone map[string]*domain.Account
}

func (f *fakeAccounts) AccountByPhone(_ context.Context, normalized string) (*domain.Account, error) {
	a, ok := f.byPhone[normalized]
	if !ok {
		return nil, domain.ErrRecipientNotFound
	}
	return a, nil
}

func newFixture() (*Resolver, *fakeAccounts) {
	sessions := &fakeSessions{sessions: map[uint]*domain.Session{
		1: {
			AccountID: 1,
			Phone:     "+251911111111",
			FullName:  "Abel Tesfaye",
			Balance:   decimal.RequireFromString("10.00"),
			ExpiresAt: time.Now().Add(time.Hour),
		},
	}}
	accounts := &fakeAccounts{byPhone: map[string]*domain.Account{
		"+251922222222": {ID: 2, Phone: "+251922222222", FullName: "Sara Bekele"},
	}}
	return New(sessions, accounts), accounts
}

func TestResolveTypedPhone(t *testing.T) {
	r, _ := newFixture()
	acct, err := r.Resolve(context.Background(), "0922222222", 1, false)
	require.NoError(t, err)
	assert.Equal(t, uint(2), acct.ID)
	assert.Equal(t, "Sara Bekele", acct.FullName)
}

// A typed number and a scanned coupon payload for the same phone must
// resolve to the same account.
func TestResolveScannedPayloadMatchesTyped(t *testing.T) {
	r, _ := newFixture()
	typed, err := r.Resolve(context.Background(), "0922222222", 1, false)
	require.NoError(t, err)
	scanned, err := r.Resolve(context.Background(), `{"type":"coupon","phone":"+251922222222"}`, 1, true)
	require.NoError(t, err)
	assert.Equal(t, typed.ID, scanned.ID)
}

func TestResolveScannedFreeText(t *testing.T) {
	r, _ := newFixture()
	acct, err := r.Resolve(context.Background(), "pay 092 222 2222 now", 1, true)
	require.NoError(t, err)
	assert.Equal(t, uint(2), acct.ID)
}

func TestResolveSelfTransfer(t *testing.T) {
	r, _ := newFixture()
	_, err := r.Resolve(context.Background(), "0911111111", 1, false)
	require.ErrorIs(t, err, domain.ErrSelfTransfer)
}

func TestResolveRecipientNotFound(t *testing.T) {
	r, _ := newFixture()
	_, err := r.Resolve(context.Background(), "0933333333", 1, false)
	require.ErrorIs(t, err, domain.ErrRecipientNotFound)
}

// Scanner junk and typed junk fail with different kinds so the UI can
// reprompt the right input.
func TestResolveInvalidInputKinds(t *testing.T) {
	r, _ := newFixture()
	_, err := r.Resolve(context.Background(), "not a payload", 1, true)
	require.ErrorIs(t, err, domain.ErrInvalidPayload)
	_, err = r.Resolve(context.Background(), "not a phone", 1, false)
	require.ErrorIs(t, err, domain.ErrInvalidPhone)
}

func TestResolveRequiresSession(t *testing.T) {
	r, _ := newFixture()
	_, err := r.Resolve(context.Background(), "0922222222", 99, false)
	require.ErrorIs(t, err, domain.ErrSessionExpired)
}
