package utils

import (
	"time" // Time for token expiration

	"github.com/golang-jwt/jwt/v5" // JWT library
)

// TokenTTL is how long a session token stays valid.
const TokenTTL = 24 * time.Hour

// JWT Claims
type Claims struct {
	AccountID            uint   `json:"account_id"` // Custom claim for account ID
	Phone                string `json:"phone"`      // Custom claim for the normalized phone
	jwt.RegisteredClaims        // Standard JWT claims
}

// GenerateJWT creates a JWT token for a given account
func GenerateJWT(accountID uint, phone, secret string) (string, time.Time, error) {
	expiresAt := time.Now().Add(TokenTTL) // Token expires in 24 hours
	// Set token claims
	claims := Claims{
		AccountID: accountID, // Custom claim for account ID
		Phone:     phone,     // Custom claim for the phone
		// Standard claims
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),  // Expiry instant
			IssuedAt:  jwt.NewNumericDate(time.Now()), // Issued at current time
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims) // Create token with claims
	signed, err := token.SignedString([]byte(secret))          // Sign the token with the secret
	return signed, expiresAt, err
}

// ParseJWT parses and validates a JWT token string
func ParseJWT(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil // Return the secret key for validation
	})
	// Check for parsing errors
	if err != nil {
		return nil, err // Return error if parsing fails
	}
	// Validate token and extract claims
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil // Return claims if valid
	}
	// Return error if token is invalid
	return nil, jwt.ErrSignatureInvalid
}
