package transfer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mychangex/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessions struct {
	mu         sync.Mutex
	sessions   map[uint]*domain.Session
	storeSide  map[uint]decimal.Decimal // Source-of-truth balances for Reconcile
	reconciled chan uint
}

func newFakeSessions(balance decimal.Decimal) *fakeSessions {
	return &fakeSessions{
		sessions: map[uint]*domain.Session{
			1: {
				AccountID: 1,
				Phone:     "+251911111111",
				FullName:  "Abel Tesfaye",
				Balance:   balance,
				ExpiresAt: time.Now().Add(time.Hour),
			},
		},
		storeSide:  map[uint]decimal.Decimal{1: balance},
		reconciled: make(chan uint, 4),
	}
}

func (f *fakeSessions) Get(_ context.Context, accountID uint) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[accountID]
	if !ok {
		return nil, domain.ErrSessionExpired
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessions) ApplyDebit(accountID uint, amount decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[accountID]; ok {
		s.Balance = s.Balance.Sub(amount)
	}
}

func (f *fakeSessions) Reconcile(_ context.Context, accountID uint) error {
	f.mu.Lock()
	if s, ok := f.sessions[accountID]; ok {
		s.Balance = f.storeSide[accountID]
	}
	f.mu.Unlock()
	f.reconciled <- accountID
	return nil
}

func (f *fakeSessions) balance(accountID uint) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[accountID].Balance
}

type fakeStrategy struct {
	mu    sync.Mutex
	name  string
	fn    func(req Request) (*Result, error)
	calls []Request
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Execute(_ context.Context, req Request) (*Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	return f.fn(req)
}

func (f *fakeStrategy) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakePinger struct{ err error }

func (f *fakePinger) Ping(context.Context) error { return f.err }

type fakeNotifier struct{ events chan domain.Transaction }

func (f *fakeNotifier) NotifyTransfer(tx domain.Transaction, _, _ string) error {
	f.events <- tx
	return nil
}

// succeedingStrategy completes the transfer and reports the new balance the
// way both real strategies do.
func succeedingStrategy(name string, balance decimal.Decimal) *fakeStrategy {
	var id uint
	return &fakeStrategy{name: name, fn: func(req Request) (*Result, error) {
		id++
		return &Result{
			NewSenderBalance: balance.Sub(req.Amount),
			Transaction: &domain.Transaction{
				ID:         id,
				SenderID:   req.SenderID,
				ReceiverID: req.ReceiverID,
				Amount:     req.Amount,
				Type:       "transfer",
				RequestID:  req.RequestID,
			},
		}, nil
	}}
}

func failingStrategy(name string, err error) *fakeStrategy {
	return &fakeStrategy{name: name, fn: func(Request) (*Result, error) { return nil, err }}
}

func newExecutor(primary, fallback *fakeStrategy, sessions *fakeSessions) (*Executor, *fakeNotifier) {
	notifier := &fakeNotifier{events: make(chan domain.Transaction, 4)}
	exec := NewExecutor(primary, fallback, sessions, &fakePinger{}, notifier).
		WithTiming(time.Second, time.Millisecond)
	return exec, notifier
}

func recipient() *domain.Account {
	return &domain.Account{ID: 2, Phone: "+251922222222", FullName: "Sara Bekele"}
}

// Sender with 10.00 sends 3.00: balance ends at 7.00 and exactly one
// transaction is recorded on the atomic path.
func TestSendAtomicPath(t *testing.T) {
	balance := decimal.RequireFromString("10.00")
	sessions := newFakeSessions(balance)
	sessions.storeSide[1] = decimal.RequireFromString("7.00")
	primary := succeedingStrategy("atomic", balance)
	fallback := failingStrategy("manual", errors.New("should not run"))
	exec, notifier := newExecutor(primary, fallback, sessions)

	res, err := exec.Send(context.Background(), 1, recipient(), decimal.RequireFromString("3.00"))
	require.NoError(t, err)
	assert.True(t, res.NewSenderBalance.Equal(decimal.RequireFromString("7.00")))
	require.NotNil(t, res.Transaction)
	assert.True(t, res.Transaction.Amount.Equal(decimal.RequireFromString("3.00")))
	assert.Equal(t, 1, primary.callCount())
	assert.Equal(t, 0, fallback.callCount(), "fallback must not run when the atomic path succeeds")

	// Optimistic debit lands immediately
	assert.True(t, sessions.balance(1).Equal(decimal.RequireFromString("7.00")))
	// The delayed reconciliation and the notification both fire
	select {
	case <-sessions.reconciled:
	case <-time.After(time.Second):
		t.Fatal("balance was never reconciled")
	}
	select {
	case tx := <-notifier.events:
		assert.Equal(t, uint(1), tx.SenderID)
	case <-time.After(time.Second):
		t.Fatal("notification was never sent")
	}
}

// Sender with 2.00 asks for 5.00: the error names the 3.00 shortage and no
// strategy runs.
func TestSendInsufficientBalance(t *testing.T) {
	sessions := newFakeSessions(decimal.RequireFromString("2.00"))
	primary := failingStrategy("atomic", errors.New("should not run"))
	fallback := failingStrategy("manual", errors.New("should not run"))
	exec, _ := newExecutor(primary, fallback, sessions)

	_, err := exec.Send(context.Background(), 1, recipient(), decimal.RequireFromString("5.00"))
	var insufficient *domain.InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.True(t, insufficient.Shortfall().Equal(decimal.RequireFromString("3.00")))
	assert.Contains(t, err.Error(), "3.00")
	assert.Equal(t, 0, primary.callCount())
	assert.Equal(t, 0, fallback.callCount())
	assert.True(t, sessions.balance(1).Equal(decimal.RequireFromString("2.00")), "balance must not move")
}

func TestSendSelfTransfer(t *testing.T) {
	sessions := newFakeSessions(decimal.RequireFromString("10.00"))
	primary := failingStrategy("atomic", errors.New("should not run"))
	exec, _ := newExecutor(primary, primary, sessions)

	self := &domain.Account{ID: 1, Phone: "+251911111111"}
	_, err := exec.Send(context.Background(), 1, self, decimal.RequireFromString("1.00"))
	require.ErrorIs(t, err, domain.ErrSelfTransfer)
	assert.Equal(t, 0, primary.callCount())
}

func TestSendInvalidAmount(t *testing.T) {
	sessions := newFakeSessions(decimal.RequireFromString("10.00"))
	primary := failingStrategy("atomic", errors.New("should not run"))
	exec, _ := newExecutor(primary, primary, sessions)

	for _, amount := range []string{"0", "-1.00"} {
		_, err := exec.Send(context.Background(), 1, recipient(), decimal.RequireFromString(amount))
		require.ErrorIs(t, err, domain.ErrInvalidAmount, "amount %s", amount)
	}
	assert.Equal(t, 0, primary.callCount())
}

func TestSendRequiresSession(t *testing.T) {
	sessions := newFakeSessions(decimal.RequireFromString("10.00"))
	primary := failingStrategy("atomic", errors.New("should not run"))
	exec, _ := newExecutor(primary, primary, sessions)

	_, err := exec.Send(context.Background(), 99, recipient(), decimal.RequireFromString("1.00"))
	require.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestSendConnectionTimeout(t *testing.T) {
	sessions := newFakeSessions(decimal.RequireFromString("10.00"))
	primary := failingStrategy("atomic", errors.New("should not run"))
	notifier := &fakeNotifier{events: make(chan domain.Transaction, 1)}
	exec := NewExecutor(primary, primary, sessions, &fakePinger{err: context.DeadlineExceeded}, notifier).
		WithTiming(10*time.Millisecond, time.Millisecond)

	_, err := exec.Send(context.Background(), 1, recipient(), decimal.RequireFromString("1.00"))
	require.ErrorIs(t, err, domain.ErrConnectionTimeout)
	assert.Equal(t, 0, primary.callCount())
}

// The atomic path fails, the manual sequence completes: same external result
// as the atomic success.
func TestSendFallbackPath(t *testing.T) {
	balance := decimal.RequireFromString("10.00")
	sessions := newFakeSessions(balance)
	sessions.storeSide[1] = decimal.RequireFromString("7.00")
	primary := failingStrategy("atomic", errors.New("rpc unavailable"))
	fallback := succeedingStrategy("manual", balance)
	exec, _ := newExecutor(primary, fallback, sessions)

	res, err := exec.Send(context.Background(), 1, recipient(), decimal.RequireFromString("3.00"))
	require.NoError(t, err)
	assert.True(t, res.NewSenderBalance.Equal(decimal.RequireFromString("7.00")))
	assert.Equal(t, 1, primary.callCount())
	assert.Equal(t, 1, fallback.callCount())
	assert.True(t, sessions.balance(1).Equal(decimal.RequireFromString("7.00")))
}

// A partial fallback completion is surfaced as-is, never consolidated into a
// generic failure.
func TestSendPartialFallbackSurfaced(t *testing.T) {
	sessions := newFakeSessions(decimal.RequireFromString("10.00"))
	primary := failingStrategy("atomic", errors.New("rpc unavailable"))
	fallback := &fakeStrategy{name: "manual", fn: func(req Request) (*Result, error) {
		return nil, &domain.PartialTransferError{
			RequestID:  req.RequestID,
			SenderID:   req.SenderID,
			ReceiverID: req.ReceiverID,
			Amount:     req.Amount,
			FailedStep: domain.StepCredit,
			Err:        errors.New("connection reset"),
		}
	}}
	exec, _ := newExecutor(primary, fallback, sessions)

	_, err := exec.Send(context.Background(), 1, recipient(), decimal.RequireFromString("3.00"))
	var partial *domain.PartialTransferError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, domain.StepCredit, partial.FailedStep)
	var failed *domain.TransferFailedError
	assert.False(t, errors.As(err, &failed), "partial completion must stay distinguishable")
	assert.True(t, sessions.balance(1).Equal(decimal.RequireFromString("10.00")), "no optimistic debit on failure")
}

// Both paths fail outright: one consolidated error carrying the most
// specific underlying reason.
func TestSendBothPathsFail(t *testing.T) {
	sessions := newFakeSessions(decimal.RequireFromString("10.00"))
	primary := failingStrategy("atomic", errors.New("rpc unavailable"))
	cause := errors.New("row lock wait timeout")
	fallback := failingStrategy("manual", cause)
	exec, _ := newExecutor(primary, fallback, sessions)

	_, err := exec.Send(context.Background(), 1, recipient(), decimal.RequireFromString("3.00"))
	var failed *domain.TransferFailedError
	require.ErrorAs(t, err, &failed)
	assert.ErrorIs(t, failed, cause)
}

// Resubmitting a succeeded transfer is NOT idempotent: the design records a
// fresh request id per invocation and a second row gets created.
func TestSendRetryIsNotIdempotent(t *testing.T) {
	balance := decimal.RequireFromString("10.00")
	sessions := newFakeSessions(balance)
	primary := succeedingStrategy("atomic", balance)
	fallback := failingStrategy("manual", errors.New("should not run"))
	exec, _ := newExecutor(primary, fallback, sessions)

	amount := decimal.RequireFromString("3.00")
	first, err := exec.Send(context.Background(), 1, recipient(), amount)
	require.NoError(t, err)
	second, err := exec.Send(context.Background(), 1, recipient(), amount)
	require.NoError(t, err)

	require.Equal(t, 2, primary.callCount(), "the retry reached the backend again")
	assert.NotEqual(t, first.Transaction.ID, second.Transaction.ID, "a duplicate row was created")
	assert.NotEqual(t, first.Transaction.RequestID, second.Transaction.RequestID,
		"distinct request ids make the duplicate detectable, nothing deduplicates it")
}
