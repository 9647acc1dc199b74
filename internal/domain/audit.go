package domain

import "github.com/shopspring/decimal"

// Fallback transfer steps, recorded when a manual transfer stops partway.
const (
	StepDebit  = "debit"  // Sender balance write
	StepCredit = "credit" // Receiver balance write
	StepRecord = "record" // Transaction row insert
)

// TransferAudit Model. One row per partially completed fallback transfer,
// kept for manual reconciliation; nothing in the system compensates
// automatically.
type TransferAudit struct {
	ID         uint            `gorm:"primaryKey" json:"id"`                  // Primary key
	RequestID  string          `gorm:"size:36" json:"request_id"`             // Request id of the failed attempt
	SenderID   uint            `gorm:"index;not null" json:"sender_id"`       // Account that was debited
	ReceiverID uint            `gorm:"not null" json:"receiver_id"`           // Account that should have been credited
	Amount     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"` // Amount in flight
	FailedStep string          `json:"failed_step"`                           // Step that failed: credit or record
	Detail     string          `json:"detail"`                                // Underlying error text
	Resolved   bool            `gorm:"default:false" json:"resolved"`         // Cleared by an operator
	CreatedAt  int64           `gorm:"autoCreateTime:milli" json:"created_at"` // Timestamp of creation in milliseconds
}
