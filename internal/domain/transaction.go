package domain

import "github.com/shopspring/decimal"

// CouponThreshold is the amount below which a transaction counts as a coupon.
var CouponThreshold = decimal.RequireFromString("1.00")

// Transaction Model. Rows are append-only: a completed transfer is never
// updated or deleted, a coupon send-back is a brand-new row in the opposite
// direction.
type Transaction struct {
	ID         uint            `gorm:"primaryKey" json:"id"`                  // Primary key
	SenderID   uint            `gorm:"index;not null" json:"sender_id"`       // Account of the sender
	ReceiverID uint            `gorm:"index;not null" json:"receiver_id"`     // Account of the receiver
	Amount     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"` // Amount, always > 0
	Type       string          `gorm:"default:transfer" json:"type"`          // Transaction type: transfer, topup
	RequestID  string          `gorm:"size:36" json:"request_id"`             // Client-generated id; recorded, not unique
	CreatedAt  int64           `gorm:"autoCreateTime:milli" json:"created_at"` // Timestamp of creation in milliseconds
}

// IsCoupon reports whether the transaction is small change eligible for a
// traceable send-back.
func (t Transaction) IsCoupon() bool {
	return t.Amount.LessThan(CouponThreshold)
}
