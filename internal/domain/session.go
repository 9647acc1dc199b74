package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Session is the cached identity of an authenticated account: id, phone and
// a balance snapshot that is updated optimistically after a transfer and
// reconciled from the store shortly after.
type Session struct {
	AccountID uint            `json:"account_id"` // Account primary key
	Phone     string          `json:"phone"`      // E.164-normalized phone
	FullName  string          `json:"full_name"`  // Display name
	Balance   decimal.Decimal `json:"balance"`    // Cached balance snapshot
	Token     string          `json:"token"`      // JWT for the session
	ExpiresAt time.Time       `json:"expires_at"` // Invalid after this instant
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}
