package store

import (
	"context"

	"mychangex/internal/domain"
	"mychangex/internal/transfer"

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// FallbackTransfer is the manual strategy, used only when the atomic path
// reports failure. It issues three independent read-modify-write calls with
// no transaction around them: a failure after the debit leaves the sender
// debited and nothing else done. There is no compensating rollback; the
// partial completion is audited and surfaced, not hidden. Concurrent manual
// transfers against the same account can lose updates — serialization only
// exists on the atomic path.
type FallbackTransfer struct {
	db *gorm.DB
}

// NewFallbackTransfer creates the manual strategy over a gorm connection.
func NewFallbackTransfer(db *gorm.DB) *FallbackTransfer {
	return &FallbackTransfer{db: db}
}

func (f *FallbackTransfer) Name() string { return "manual" }

// Execute performs debit, credit and record as separate calls.
func (f *FallbackTransfer) Execute(ctx context.Context, req transfer.Request) (*transfer.Result, error) {
	db := f.db.WithContext(ctx)
	// Step 1: re-read the sender and write the decremented balance
	var sender domain.Account
	if err := db.First(&sender, req.SenderID).Error; err != nil {
		return nil, err
	}
	if sender.Balance.LessThan(req.Amount) {
		return nil, &domain.InsufficientBalanceError{Balance: sender.Balance, Amount: req.Amount}
	}
	newSenderBalance := sender.Balance.Sub(req.Amount)
	if err := db.Model(&domain.Account{}).Where("id = ?", req.SenderID).
		Update("balance", newSenderBalance).Error; err != nil {
		return nil, err // Nothing committed yet, plain failure
	}
	// Step 2: re-read the receiver and write the incremented balance
	var receiver domain.Account
	if err := db.First(&receiver, req.ReceiverID).Error; err != nil {
		return nil, f.partial(ctx, req, domain.StepCredit, err)
	}
	if err := db.Model(&domain.Account{}).Where("id = ?", req.ReceiverID).
		Update("balance", receiver.Balance.Add(req.Amount)).Error; err != nil {
		return nil, f.partial(ctx, req, domain.StepCredit, err)
	}
	// Step 3: insert the transaction row
	t := domain.Transaction{
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		Amount:     req.Amount,
		Type:       "transfer",
		RequestID:  req.RequestID,
	}
	if err := db.Create(&t).Error; err != nil {
		return nil, f.partial(ctx, req, domain.StepRecord, err)
	}
	return &transfer.Result{NewSenderBalance: newSenderBalance, Transaction: &t}, nil
}

// partial records the partially completed transfer for manual reconciliation
// and returns the typed error. The audit write is best effort: if it fails
// too, the log line is the only trace left.
func (f *FallbackTransfer) partial(ctx context.Context, req transfer.Request, step string, cause error) error {
	audit := domain.TransferAudit{
		RequestID:  req.RequestID,
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		Amount:     req.Amount,
		FailedStep: step,
		Detail:     cause.Error(),
	}
	if err := f.db.WithContext(ctx).Create(&audit).Error; err != nil {
		logrus.WithFields(logrus.Fields{
			"request_id":  req.RequestID,
			"sender_id":   req.SenderID,
			"receiver_id": req.ReceiverID,
			"amount":      req.Amount.StringFixed(2),
			"failed_step": step,
			"error":       err.Error(),
		}).Error("Failed to record transfer audit")
	}
	return &domain.PartialTransferError{
		RequestID:  req.RequestID,
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		Amount:     req.Amount,
		FailedStep: step,
		Err:        cause,
	}
}
