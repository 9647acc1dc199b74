package domain

import "github.com/shopspring/decimal"

// Account Model
type Account struct {
	ID       uint            `gorm:"primaryKey" json:"id"`                   // Primary key
	Phone    string          `gorm:"unique;not null" json:"phone"`           // E.164-normalized phone, unique
	FullName string          `json:"full_name"`                              // Display name
	PinHash  string          `gorm:"not null" json:"-"`                      // Hashed PIN, never serialized
	Role     string          `gorm:"default:user" json:"role"`               // Role: user or admin
	Balance  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"balance"` // Balance, never negative
}
