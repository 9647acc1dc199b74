package api

import (
	"context"                   // Context for Redis operations
	"mychangex/internal/domain" // Importing domain models
	"mychangex/internal/store"  // Backend stores
	"mychangex/internal/utils"  // Utility functions
	"net/http"                  // HTTP status codes
	"strconv"                   // String conversion
	"strings"                   // String manipulation
	"time"                      // Time durations

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Decimal amounts
	"github.com/sirupsen/logrus"    // Logging library
	"gorm.io/gorm"                  // GORM ORM library
)

// AccountAdminResponse represents the account data returned to admin
type AccountAdminResponse struct {
	ID       uint            `json:"id"`        // Account ID
	Phone    string          `json:"phone"`     // Normalized phone
	FullName string          `json:"full_name"` // Display name
	Role     string          `json:"role"`      // Account role
	Balance  decimal.Decimal `json:"balance"`   // Current balance
}

// ListAccountsHandler returns all accounts with their balances
func ListAccountsHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background() // Use background context for Redis
		// Create a cache key based on pagination parameters
		cacheKey := "admin:accounts:page=" + c.DefaultQuery("page", "1") + ":size=" + c.DefaultQuery("page_size", "20")
		// Try to get cached response
		var cached struct {
			Accounts   []AccountAdminResponse `json:"accounts"`    // List of accounts
			Page       int                    `json:"page"`        // Current page
			PageSize   int                    `json:"page_size"`   // Page size
			Total      int64                  `json:"total"`       // Total number of accounts
			TotalPages int                    `json:"total_pages"` // Total pages
		}
		// If cached data found, return it
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"accounts":    cached.Accounts,   // List of accounts
				"page":        cached.Page,       // Current page
				"page_size":   cached.PageSize,   // Page size
				"total":       cached.Total,      // Total number of accounts
				"total_pages": cached.TotalPages, // Total pages
				"cached":      true,              // Indicate response is from cache
			})
			return
		}
		page := 1      // Default page number
		pageSize := 20 // Default page size
		if p := c.Query("page"); p != "" {
			if v, err := strconv.Atoi(p); err == nil && v > 0 {
				page = v // Set page if valid
			}
		}
		// Check and set page size within limits
		if ps := c.Query("page_size"); ps != "" {
			// If valid, set page size
			if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
				pageSize = v // Set page size
			}
		}
		offset := (page - 1) * pageSize // Calculate offset for pagination
		var total int64                 // Total account count
		// Fetch total account count and paginated accounts
		if err := db.Model(&domain.Account{}).Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count accounts"}) // Return on error
			return
		}
		var accounts []domain.Account // Slice to hold accounts
		// Apply offset and limit for pagination
		if err := db.Offset(offset).Limit(pageSize).Find(&accounts).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch accounts"}) // Return on error
			return
		}
		// The total number of pages
		totalPages := (int(total) + pageSize - 1) / pageSize // Calculate total pages
		// Prepare response data
		resp := make([]AccountAdminResponse, len(accounts))
		// Map accounts to response format
		for i, a := range accounts {
			resp[i] = AccountAdminResponse{
				ID:       a.ID,       // Account ID
				Phone:    a.Phone,    // Normalized phone
				FullName: a.FullName, // Display name
				Role:     a.Role,     // Account role
				Balance:  a.Balance,  // Current balance
			}
		}
		// Prepare final response data
		respData := gin.H{
			"accounts":    resp,       // List of accounts
			"page":        page,       // Current page
			"page_size":   pageSize,   // Page size
			"total":       total,      // Total number of accounts
			"total_pages": totalPages, // Total pages
			"cached":      false,      // Indicate response is not from cache
		}
		// Cache the response for future requests
		_ = utils.SetCache(ctx, rdb, cacheKey, respData, 60*time.Second)
		c.JSON(http.StatusOK, respData) // Return the response
	}
}

// ListTransactionsHandler returns all transactions, with optional filtering by account, type, or date
func ListTransactionsHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background()
		// Build cache key from all query params
		var keyParts []string // Parts of the cache key
		// Append each query parameter to the key parts
		for _, k := range []string{"account_id", "type", "from", "to", "page", "page_size"} {
			keyParts = append(keyParts, k+"="+c.DefaultQuery(k, "")) // Append key-value pair
		}
		// Join key parts to form the final cache key
		cacheKey := "admin:txs:" + strings.Join(keyParts, ":")
		var cached struct {
			Transactions []domain.Transaction `json:"transactions"` // List of transactions
			Page         int                  `json:"page"`         // Current page
			PageSize     int                  `json:"page_size"`    // Page size
			Total        int64                `json:"total"`        // Total number of transactions
			TotalPages   int                  `json:"total_pages"`  // Total pages
		}

		// If cached data found, return it
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"transactions": cached.Transactions, // List of transactions
				"page":         cached.Page,         // Current page
				"page_size":    cached.PageSize,     // Page size
				"total":        cached.Total,        // Total number of transactions
				"total_pages":  cached.TotalPages,   // Total pages
				"cached":       true,                // Indicate response is from cache
			})
			return
		}
		page := 1      // Default page number
		pageSize := 20 // Default page size
		// Check and set page number and size from query params
		if p := c.Query("page"); p != "" {
			// If valid, set page number
			if v, err := strconv.Atoi(p); err == nil && v > 0 {
				page = v // Set page if valid
			}
		}
		// Check and set page size within limits
		if ps := c.Query("page_size"); ps != "" {
			// If valid, set page size
			if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
				pageSize = v // Set page size
			}
		}
		offset := (page - 1) * pageSize          // Calculate offset for pagination
		query := db.Model(&domain.Transaction{}) // Start building the query
		if accountID := c.Query("account_id"); accountID != "" {
			query = query.Where("sender_id = ? OR receiver_id = ?", accountID, accountID) // Filter by account ID
		}
		if txType := c.Query("type"); txType != "" {
			query = query.Where("type = ?", txType) // Filter by transaction type
		}
		if from := c.Query("from"); from != "" {
			query = query.Where("created_at >= ?", from) // Filter by start date
		}
		if to := c.Query("to"); to != "" {
			query = query.Where("created_at <= ?", to) // Filter by end date
		}
		var total int64 // Total transaction count
		// Get total count of transactions matching the filters
		if err := query.Count(&total).Error; err != nil {
			// If error occurs, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count transactions"})
			return
		}
		var txs []domain.Transaction // Slice to hold transactions
		// Fetch paginated transactions with filters applied
		if err := query.Order("created_at desc").Offset(offset).Limit(pageSize).Find(&txs).Error; err != nil {
			// If error occurs, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
			return
		}
		// The total number of pages
		totalPages := (int(total) + pageSize - 1) / pageSize
		respData := gin.H{
			"transactions": txs,        // List of transactions
			"page":         page,       // Current page
			"page_size":    pageSize,   // Page size
			"total":        total,      // Total number of transactions
			"total_pages":  totalPages, // Total pages
			"cached":       false,      // Indicate response is not from cache
		}
		// Cache the response for future requests
		_ = utils.SetCache(ctx, rdb, cacheKey, respData, 60*time.Second)
		c.JSON(http.StatusOK, respData) // Return the response
	}
}

// TopUpRequest represents an administrative credit
type TopUpRequest struct {
	Phone  string `json:"phone" binding:"required"`  // Target account phone
	Amount string `json:"amount" binding:"required"` // Credit amount, two decimals
}

// TopUpHandler credits an account administratively. This is the only way
// balance enters the system besides transfers.
func TopUpHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TopUpRequest // Bind JSON request to struct
		// Validate request
		if err := c.ShouldBindJSON(&req); err != nil {
			// If invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Parse the amount; it must be positive
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil || !amount.IsPositive() {
			// If invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
			return
		}
		var acct domain.Account // Find the target account
		// Query account by phone
		if err := db.Where("phone = ?", req.Phone).First(&acct).Error; err != nil {
			// If account not found, return not found
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
			return
		}
		// Update balance atomically
		err = db.Transaction(func(tx *gorm.DB) error {
			// Increment the account balance
			if err := tx.Model(&acct).Update("balance", gorm.Expr("balance + ?", amount)).Error; err != nil {
				return err
			}
			// Create the transaction record; a top-up has the account on both sides
			t := domain.Transaction{
				SenderID:   acct.ID, // Administrative credit, no counterparty
				ReceiverID: acct.ID, // Credited account
				Amount:     amount,  // Credit amount
				Type:       "topup", // Transaction type
			}
			// Save transaction
			if err := tx.Create(&t).Error; err != nil {
				return err // Return error to rollback
			}
			return nil // Commit transaction
		})
		// Handle transaction result
		if err != nil {
			// Log the error with context
			logrus.WithFields(logrus.Fields{
				"account_id": acct.ID,     // Credited account
				"amount":     req.Amount,  // Credit amount
				"error":      err.Error(), // Error message
			}).Error("Top-up failed") // Log top-up failure
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Top-up failed"}) // Return internal server error
			return
		}
		// Log successful top-up
		logrus.WithFields(logrus.Fields{
			"account_id": acct.ID,                         // Credited account
			"amount":     req.Amount,                      // Credit amount
			"type":       "topup",                         // Transaction type
			"timestamp":  time.Now().Format(time.RFC3339), // Current timestamp
		}).Info("Top-up transaction") // Log top-up success
		// Invalidate balance and history cache
		if rdb, ok := c.MustGet("redisClient").(*redis.Client); ok {
			invalidateAccountCache(context.Background(), rdb, acct.ID)
		}
		// Return success response
		c.JSON(http.StatusOK, gin.H{"message": "Top-up successful"})
	}
}

// ListReconciliationHandler returns the partial fallback transfers still
// waiting for manual reconciliation
func ListReconciliationHandler(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Fetch unresolved audit rows, oldest first
		audits, err := st.UnresolvedAudits(c.Request.Context())
		if err != nil {
			// If fetching fails, return error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reconciliation queue"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"audits": audits}) // Return the queue
	}
}

// ResolveReconciliationHandler marks an audit row as manually reconciled
func ResolveReconciliationHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Parse the audit ID from the path
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			// If invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid audit id"})
			return
		}
		// Mark the row resolved
		result := db.Model(&domain.TransferAudit{}).Where("id = ?", id).Update("resolved", true)
		if result.Error != nil {
			// If updating fails, return error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve audit"})
			return
		}
		// If nothing matched, the audit does not exist
		if result.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Audit not found"})
			return
		}
		// Log the manual reconciliation
		logrus.WithFields(logrus.Fields{
			"audit_id":  id,                              // Resolved audit
			"timestamp": time.Now().Format(time.RFC3339), // Current timestamp
		}).Info("Transfer audit resolved") // Log resolution
		c.JSON(http.StatusOK, gin.H{"message": "Audit resolved"}) // Return success
	}
}
