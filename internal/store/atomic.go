package store

import (
	"context"

	"mychangex/internal/domain"
	"mychangex/internal/transfer"

	"gorm.io/gorm" // GORM ORM library
)

// AtomicTransfer is the primary strategy: debit, credit and record happen
// inside one database transaction, all-or-nothing.
type AtomicTransfer struct {
	db *gorm.DB
}

// NewAtomicTransfer creates the atomic strategy over a gorm connection.
func NewAtomicTransfer(db *gorm.DB) *AtomicTransfer {
	return &AtomicTransfer{db: db}
}

func (a *AtomicTransfer) Name() string { return "atomic" }

// Execute runs the whole transfer in a single transaction. Any step failing
// rolls the entire operation back; the balance invariant is re-checked under
// the transaction so a concurrent writer cannot push the sender negative.
func (a *AtomicTransfer) Execute(ctx context.Context, req transfer.Request) (*transfer.Result, error) {
	var result transfer.Result
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Re-read the sender under the transaction
		var sender domain.Account
		if err := tx.First(&sender, req.SenderID).Error; err != nil {
			return err
		}
		// Re-check the balance invariant server-side
		if sender.Balance.LessThan(req.Amount) {
			return &domain.InsufficientBalanceError{Balance: sender.Balance, Amount: req.Amount}
		}
		// Deduct from sender
		if err := tx.Model(&domain.Account{}).Where("id = ?", req.SenderID).
			Update("balance", gorm.Expr("balance - ?", req.Amount)).Error; err != nil {
			return err // Return error to rollback
		}
		// Add to recipient
		if err := tx.Model(&domain.Account{}).Where("id = ?", req.ReceiverID).
			Update("balance", gorm.Expr("balance + ?", req.Amount)).Error; err != nil {
			return err // Return error to rollback
		}
		// Create the transaction record
		t := domain.Transaction{
			SenderID:   req.SenderID,
			ReceiverID: req.ReceiverID,
			Amount:     req.Amount,
			Type:       "transfer",
			RequestID:  req.RequestID,
		}
		if err := tx.Create(&t).Error; err != nil {
			return err // Return error to rollback
		}
		result.NewSenderBalance = sender.Balance.Sub(req.Amount)
		result.Transaction = &t
		return nil // Commit transaction
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
