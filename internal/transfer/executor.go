package transfer

import (
	"context"
	"errors"
	"time"

	"mychangex/internal/domain"

	"github.com/google/uuid" // Request ids
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus" // Logging library
)

// Default timing. The connectivity probe bounds how long a transfer attempt
// waits for a reachable backend; the resync delay is how long after an
// optimistic balance update the cached balance is re-read from the store.
const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultResyncDelay    = 3 * time.Second
)

// Sessions is the session surface the executor needs: current user lookup,
// optimistic debit, and delayed reconciliation.
type Sessions interface {
	Get(ctx context.Context, accountID uint) (*domain.Session, error)
	ApplyDebit(accountID uint, amount decimal.Decimal)
	Reconcile(ctx context.Context, accountID uint) error
}

// Pinger checks that the backend is reachable before any mutation starts.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Notifier informs both parties of a completed transfer. Failures here never
// block or roll back the transfer.
type Notifier interface {
	NotifyTransfer(tx domain.Transaction, senderName, receiverName string) error
}

// Executor moves value from the current user to a resolved recipient. It
// validates every precondition client-side, prefers the atomic strategy and
// falls back to the manual one only when the atomic path reports failure.
type Executor struct {
	primary        Strategy
	fallback       Strategy
	sessions       Sessions
	pinger         Pinger
	notifier       Notifier
	connectTimeout time.Duration
	resyncDelay    time.Duration
}

// NewExecutor wires an executor with the default timing.
func NewExecutor(primary, fallback Strategy, sessions Sessions, pinger Pinger, notifier Notifier) *Executor {
	return &Executor{
		primary:        primary,
		fallback:       fallback,
		sessions:       sessions,
		pinger:         pinger,
		notifier:       notifier,
		connectTimeout: DefaultConnectTimeout,
		resyncDelay:    DefaultResyncDelay,
	}
}

// WithTiming overrides the connectivity timeout and resync delay.
func (e *Executor) WithTiming(connectTimeout, resyncDelay time.Duration) *Executor {
	e.connectTimeout = connectTimeout
	e.resyncDelay = resyncDelay
	return e
}

// Send transfers amount from the current user to the recipient.
//
// Preconditions are checked in order, first failure wins: valid session,
// positive amount, recipient is not the sender, amount within balance.
// Retrying a failed Send is not idempotent: if the failure happened after
// the server committed, a retry produces a second transaction row.
func (e *Executor) Send(ctx context.Context, senderID uint, recipient *domain.Account, amount decimal.Decimal) (*Result, error) {
	// A valid session is a hard precondition
	sess, err := e.sessions.Get(ctx, senderID)
	if err != nil {
		return nil, err
	}
	// Validate the amount before anything touches the network
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if recipient == nil {
		return nil, domain.ErrRecipientNotFound
	}
	if recipient.ID == senderID {
		return nil, domain.ErrSelfTransfer
	}
	if amount.GreaterThan(sess.Balance) {
		return nil, &domain.InsufficientBalanceError{Balance: sess.Balance, Amount: amount}
	}
	// Bounded connectivity probe; a timeout is recoverable, the caller may retry
	pingCtx, cancel := context.WithTimeout(ctx, e.connectTimeout)
	defer cancel()
	if err := e.pinger.Ping(pingCtx); err != nil {
		return nil, domain.ErrConnectionTimeout
	}
	req := Request{
		RequestID:  uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: recipient.ID,
		Amount:     amount,
	}
	res, err := e.execute(ctx, req)
	if err != nil {
		return nil, err
	}
	// Log the completed transfer with full context
	logrus.WithFields(logrus.Fields{
		"request_id":  req.RequestID,
		"sender_id":   req.SenderID,
		"receiver_id": req.ReceiverID,
		"amount":      amount.StringFixed(2),
		"timestamp":   time.Now().Format(time.RFC3339),
	}).Info("Transfer completed")
	// Optimistic local balance update, corrected by a delayed re-read
	e.sessions.ApplyDebit(senderID, amount)
	time.AfterFunc(e.resyncDelay, func() {
		_ = e.sessions.Reconcile(context.Background(), senderID)
	})
	// Fire-and-forget notification of both parties
	if e.notifier != nil && res.Transaction != nil {
		tx := *res.Transaction
		senderName, receiverName := sess.FullName, recipient.FullName
		go func() {
			if err := e.notifier.NotifyTransfer(tx, senderName, receiverName); err != nil {
				logrus.WithFields(logrus.Fields{
					"request_id": req.RequestID,
					"error":      err.Error(),
				}).Warn("Transfer notification failed")
			}
		}()
	}
	return res, nil
}

// execute runs the two-tier attempt: atomic first, manual fallback only when
// the atomic path reports failure.
func (e *Executor) execute(ctx context.Context, req Request) (*Result, error) {
	res, primaryErr := e.primary.Execute(ctx, req)
	if primaryErr == nil {
		return res, nil
	}
	logrus.WithFields(logrus.Fields{
		"request_id": req.RequestID,
		"strategy":   e.primary.Name(),
		"error":      primaryErr.Error(),
	}).Warn("Atomic transfer failed, attempting manual fallback")
	res, fallbackErr := e.fallback.Execute(ctx, req)
	if fallbackErr == nil {
		return res, nil
	}
	// A partial completion is propagated as-is, never consolidated away:
	// support needs the step detail to reconcile manually
	var partial *domain.PartialTransferError
	if errors.As(fallbackErr, &partial) {
		logrus.WithFields(logrus.Fields{
			"request_id":  partial.RequestID,
			"sender_id":   partial.SenderID,
			"receiver_id": partial.ReceiverID,
			"amount":      partial.Amount.StringFixed(2),
			"failed_step": partial.FailedStep,
			"error":       partial.Err.Error(),
		}).Error("Fallback transfer partially completed")
		return nil, partial
	}
	logrus.WithFields(logrus.Fields{
		"request_id": req.RequestID,
		"strategy":   e.fallback.Name(),
		"error":      fallbackErr.Error(),
	}).Error("Transfer failed on both paths")
	return nil, &domain.TransferFailedError{Reason: fallbackErr}
}
