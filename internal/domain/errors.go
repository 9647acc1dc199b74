package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error kinds shared by every component. Validation errors are raised before
// any network call; execution errors come out of the transfer strategies.
var (
	ErrInvalidPhone      = errors.New("phone number is not valid")
	ErrInvalidPayload    = errors.New("scanned payload is not recognized")
	ErrSelfTransfer      = errors.New("cannot transfer to yourself")
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrInvalidAmount     = errors.New("amount must be a positive number")
	ErrSessionExpired    = errors.New("session expired, please log in again")
	ErrConnectionTimeout = errors.New("could not reach the server, please retry")
	ErrNotReceived       = errors.New("only a received coupon can be sent back")
)

// InsufficientBalanceError reports a transfer amount above the sender's
// balance. The message must state the shortfall.
type InsufficientBalanceError struct {
	Balance decimal.Decimal // Sender balance at validation time
	Amount  decimal.Decimal // Requested transfer amount
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: short by %s", e.Shortfall().StringFixed(2))
}

// Shortfall is how much the sender is missing.
func (e *InsufficientBalanceError) Shortfall() decimal.Decimal {
	return e.Amount.Sub(e.Balance)
}

// TransferFailedError means both the atomic and the fallback path failed.
// Reason carries the most specific underlying cause.
type TransferFailedError struct {
	Reason error
}

func (e *TransferFailedError) Error() string {
	if e.Reason != nil {
		return "transfer failed: " + e.Reason.Error()
	}
	return "transfer failed"
}

func (e *TransferFailedError) Unwrap() error { return e.Reason }

// PartialTransferError means the fallback path debited the sender but failed
// on a later step. It must never be swallowed: the caller surfaces it and an
// audit row is left behind for manual reconciliation.
type PartialTransferError struct {
	RequestID  string
	SenderID   uint
	ReceiverID uint
	Amount     decimal.Decimal
	FailedStep string // StepCredit or StepRecord
	Err        error
}

func (e *PartialTransferError) Error() string {
	return fmt.Sprintf("transfer partially completed: debited %s from account %d but %s step failed: %v",
		e.Amount.StringFixed(2), e.SenderID, e.FailedStep, e.Err)
}

func (e *PartialTransferError) Unwrap() error { return e.Err }
