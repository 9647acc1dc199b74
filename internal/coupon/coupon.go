package coupon

import (
	"context"

	"mychangex/internal/domain"

	"github.com/shopspring/decimal"
)

// HistoryCap bounds how many coupon rows one listing returns.
const HistoryCap = 100

// Transactions is the history query surface: all rows the account
// participates in with amount below the threshold, newest first.
type Transactions interface {
	ListCouponsFor(ctx context.Context, accountID uint, below decimal.Decimal, limit int) ([]domain.Transaction, error)
}

// Accounts resolves the counterparty of a coupon for the send-back intent.
type Accounts interface {
	AccountByID(ctx context.Context, id uint) (*domain.Account, error)
}

// Sessions is the session accessor; a valid session is a hard precondition
// for every ledger operation.
type Sessions interface {
	Get(ctx context.Context, accountID uint) (*domain.Session, error)
}

// SendBackIntent is a prepared reversal: the coupon's exact amount, aimed at
// the original sender only, to be confirmed by the user and handed to the
// transfer executor. Executing it creates a brand-new transaction; the
// original row is never touched.
type SendBackIntent struct {
	RecipientID    uint            `json:"recipient_id"`
	RecipientPhone string          `json:"recipient_phone"`
	RecipientName  string          `json:"recipient_name"`
	PresetAmount   decimal.Decimal `json:"preset_amount"`
}

// Ledger is the read-side coupon view over the immutable transaction
// history; it owns no store of its own.
type Ledger struct {
	sessions Sessions
	txs      Transactions
	accounts Accounts
}

// NewLedger creates a coupon view over the given stores.
func NewLedger(sessions Sessions, txs Transactions, accounts Accounts) *Ledger {
	return &Ledger{sessions: sessions, txs: txs, accounts: accounts}
}

// ListCoupons returns the account's coupon transactions, sent and received,
// newest first, capped at HistoryCap.
func (l *Ledger) ListCoupons(ctx context.Context, accountID uint) ([]domain.Transaction, error) {
	if _, err := l.sessions.Get(ctx, accountID); err != nil {
		return nil, err
	}
	return l.txs.ListCouponsFor(ctx, accountID, domain.CouponThreshold, HistoryCap)
}

// CanSendBack reports whether the account may return the coupon: it must be
// the receiver, the row must not be self-referencing, and the amount must be
// below the coupon threshold.
func CanSendBack(t domain.Transaction, accountID uint) bool {
	return t.ReceiverID == accountID && t.SenderID != accountID && t.IsCoupon()
}

// PrepareSendBack yields the reversal intent for a received coupon. Fails
// with ErrNotReceived when the account was not the coupon's receiver.
func (l *Ledger) PrepareSendBack(ctx context.Context, t domain.Transaction, accountID uint) (*SendBackIntent, error) {
	if _, err := l.sessions.Get(ctx, accountID); err != nil {
		return nil, err
	}
	if !CanSendBack(t, accountID) {
		return nil, domain.ErrNotReceived
	}
	sender, err := l.accounts.AccountByID(ctx, t.SenderID)
	if err != nil {
		return nil, err
	}
	return &SendBackIntent{
		RecipientID:    sender.ID,
		RecipientPhone: sender.Phone,
		RecipientName:  sender.FullName,
		PresetAmount:   t.Amount,
	}, nil
}
