package transfer

import (
	"context"

	"mychangex/internal/domain"

	"github.com/shopspring/decimal"
)

// Request is one validated transfer about to be executed. RequestID is
// client-generated per invocation and recorded on the transaction row so a
// duplicate submission can at least be traced afterwards.
type Request struct {
	RequestID  string
	SenderID   uint
	ReceiverID uint
	Amount     decimal.Decimal
}

// Result is the shape both strategies report on success.
type Result struct {
	NewSenderBalance decimal.Decimal
	Transaction      *domain.Transaction
}

// Strategy executes a validated transfer. The primary strategy is atomic:
// debit, credit and record happen in one server-side transaction or not at
// all. The fallback strategy is a sequence of independent read-modify-write
// calls with no atomicity across steps; it reports partial completion as
// *domain.PartialTransferError and never rolls anything back.
type Strategy interface {
	Name() string
	Execute(ctx context.Context, req Request) (*Result, error)
}
