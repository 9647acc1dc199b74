package api

import (
	"errors"                     // Error inspection
	"mychangex/internal/domain"  // Importing domain models
	"mychangex/internal/phone"   // Phone normalization
	"mychangex/internal/session" // Session manager
	"mychangex/internal/utils"   // Utility functions
	"net/http"                   // HTTP status codes
	"regexp"                     // Regular expressions

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Decimal amounts
	"golang.org/x/crypto/bcrypt"    // PIN hashing
	"gorm.io/gorm"                  // GORM ORM library
)

// Request struct for registration
type RegisterRequest struct {
	Phone    string `json:"phone" binding:"required"`     // Phone must be provided
	Pin      string `json:"pin" binding:"required"`       // PIN must be provided
	FullName string `json:"full_name" binding:"required"` // Display name must be provided
}

// Request struct for login
type LoginRequest struct {
	Phone string `json:"phone" binding:"required"` // Phone must be provided
	Pin   string `json:"pin" binding:"required"`   // PIN must be provided
}

// Response struct for authentication
type AuthResponse struct {
	Token   string          `json:"token"`   // JWT token
	Account *domain.Account `json:"account"` // Authenticated account snapshot
}

// isValidPin checks if the PIN is 4 to 6 digits
func isValidPin(pin string) bool {
	matched, _ := regexp.MatchString(`^\d{4,6}$`, pin) // Regex to match digit-only PINs
	return matched                                     // Return whether it matched
}

// RegisterHandler creates a new account with a normalized phone and hashed PIN
func RegisterHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Normalize the phone to international format
		normalized, err := phone.Normalize(req.Phone)
		if err != nil {
			// If the phone is invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Phone number is not valid"})
			return
		}
		// Validate the PIN shape
		if !isValidPin(req.Pin) {
			// If the PIN is invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "PIN must be 4-6 digits"})
			return
		}
		// Hash the PIN and create the account
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Pin), bcrypt.DefaultCost)
		if err != nil {
			// If hashing fails, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to secure PIN"})
			return
		}
		// New accounts start at zero; only transfers and admin top-ups move balances
		acct := domain.Account{
			Phone:    normalized,
			FullName: req.FullName,
			PinHash:  string(hash),
			Balance:  decimal.Zero,
		}
		// Attempt to create the account in the database
		if err := db.Create(&acct).Error; err != nil {
			// If creation fails (e.g., duplicate phone), return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Phone already registered"})
			return
		}
		// Return success response
		c.JSON(http.StatusCreated, gin.H{"message": "Account registered successfully"})
	}
}

// LoginHandler authenticates an account by phone and PIN, begins a session
// and returns a JWT token
func LoginHandler(db *gorm.DB, jwtSecret string, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Normalize the phone before lookup
		normalized, err := phone.Normalize(req.Phone)
		if err != nil {
			// If the phone is invalid, return unauthorized (no account enumeration)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		var acct domain.Account // Fetch account from database
		if err := db.Where("phone = ?", normalized).First(&acct).Error; err != nil {
			// If account not found, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		// Compare provided PIN with stored hash
		if err := bcrypt.CompareHashAndPassword([]byte(acct.PinHash), []byte(req.Pin)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		// Generate JWT token
		token, expiresAt, err := utils.GenerateJWT(acct.ID, acct.Phone, jwtSecret)
		if err != nil {
			// If token generation fails, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		// Begin the session with the fresh balance snapshot
		sessions.Begin(c.Request.Context(), &acct, token, expiresAt)
		// Return the token and account in the response
		c.JSON(http.StatusOK, AuthResponse{Token: token, Account: &acct})
	}
}

// LogoutHandler ends the authenticated account's session
func LogoutHandler(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, exists := c.Get("accountID") // Get account ID from context
		// Check if account ID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		sessions.End(c.Request.Context(), accountID.(uint)) // Invalidate the session
		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	}
}

// statusForError maps a core error kind to an HTTP status and user-facing
// message. Financial errors are specific and actionable, never raw strings.
func statusForError(err error) (int, string) {
	var insufficient *domain.InsufficientBalanceError
	var partial *domain.PartialTransferError
	var failed *domain.TransferFailedError
	switch {
	case errors.Is(err, domain.ErrSessionExpired):
		return http.StatusUnauthorized, domain.ErrSessionExpired.Error()
	case errors.Is(err, domain.ErrInvalidPhone):
		return http.StatusBadRequest, domain.ErrInvalidPhone.Error()
	case errors.Is(err, domain.ErrInvalidPayload):
		return http.StatusBadRequest, domain.ErrInvalidPayload.Error()
	case errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusBadRequest, domain.ErrInvalidAmount.Error()
	case errors.Is(err, domain.ErrSelfTransfer):
		return http.StatusBadRequest, domain.ErrSelfTransfer.Error()
	case errors.Is(err, domain.ErrNotReceived):
		return http.StatusBadRequest, domain.ErrNotReceived.Error()
	case errors.Is(err, domain.ErrRecipientNotFound):
		return http.StatusNotFound, domain.ErrRecipientNotFound.Error()
	case errors.Is(err, domain.ErrConnectionTimeout):
		return http.StatusServiceUnavailable, domain.ErrConnectionTimeout.Error()
	case errors.As(err, &insufficient):
		return http.StatusBadRequest, insufficient.Error()
	case errors.As(err, &partial):
		// Degraded outcome: the user and support both need the reference
		return http.StatusBadGateway, "transfer incomplete, support has been notified (ref " + partial.RequestID + ")"
	case errors.As(err, &failed):
		return http.StatusBadGateway, failed.Error()
	}
	return http.StatusInternalServerError, "something went wrong, please try again"
}
