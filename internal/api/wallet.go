package api

import (
	"context"                    // Context for Redis operations
	"mychangex/internal/coupon"  // Coupon ledger view
	"mychangex/internal/domain"  // Importing domain models
	"mychangex/internal/resolver" // Recipient resolver
	"mychangex/internal/store"   // Backend stores
	"mychangex/internal/transfer" // Transfer executor
	"mychangex/internal/utils"   // Utility functions
	"net/http"                   // HTTP status codes
	"strconv"                    // String conversion
	"time"                       // Time durations

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Decimal amounts
)

// TransferRequest represents a transfer request. To carries either a typed
// phone number or a scanned QR payload, flagged by Scanned.
type TransferRequest struct {
	To      string `json:"to" binding:"required"`     // Typed phone or scanned payload
	Amount  string `json:"amount" binding:"required"` // Transfer amount, two decimals
	Scanned bool   `json:"scanned"`                   // True when To came from the scanner
}

// balanceKey is the Redis cache key for an account's balance
func balanceKey(accountID uint) string {
	return "balance:acct:" + strconv.Itoa(int(accountID))
}

// invalidateAccountCache drops the cached balance, coupons and the first
// history pages for an account after its balance moved
func invalidateAccountCache(ctx context.Context, rdb *redis.Client, accountID uint) {
	id := strconv.Itoa(int(accountID))
	_ = utils.DeleteCache(ctx, rdb, balanceKey(accountID)) // Invalidate balance cache
	_ = utils.DeleteCache(ctx, rdb, "coupons:acct:"+id)    // Invalidate coupon list cache
	// Invalidate paginated history cache (simple version: delete first 5 pages)
	for i := 1; i <= 5; i++ {
		// Delete cache entries
		_ = utils.DeleteCache(ctx, rdb, "txhistory:acct:"+id+":page:"+strconv.Itoa(i)+":size:20")
	}
}

// GetBalanceHandler returns the authenticated account's balance
func GetBalanceHandler(st *store.Store, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get account ID from context
		accountID, exists := c.Get("accountID")
		// Check if account ID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		ctx := context.Background()          // Context for Redis operations
		cacheKey := balanceKey(accountID.(uint)) // Cache key for the balance
		var acct domain.Account              // Account struct to hold data
		found, err := utils.GetCache(ctx, rdb, cacheKey, &acct) // Try to get from cache
		// If found in cache, return it
		if err == nil && found {
			// Return cached account
			c.JSON(http.StatusOK, gin.H{"account": acct, "cached": true})
			return
		}
		// If not in cache, fetch from the store
		fetched, err := st.AccountByID(c.Request.Context(), accountID.(uint))
		if err != nil {
			// Return not found if the account doesn't exist
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
			return
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, fetched, 60*time.Second)  // Cache the account for 60 seconds
		c.JSON(http.StatusOK, gin.H{"account": fetched, "cached": false}) // Return account info
	}
}

// TransferHandler resolves the recipient and executes a balance-constrained
// transfer through the executor (atomic path first, manual fallback second)
func TransferHandler(res *resolver.Resolver, exec *transfer.Executor) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, exists := c.Get("accountID") // Get account ID from context
		// Check if account ID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req TransferRequest // Bind JSON request to struct
		// Validate request
		if err := c.ShouldBindJSON(&req); err != nil {
			// If invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Parse the amount; non-numeric input is an invalid amount
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			status, msg := statusForError(domain.ErrInvalidAmount)
			c.JSON(status, gin.H{"error": msg})
			return
		}
		// Resolve the recipient from the typed phone or scanned payload
		recipient, err := res.Resolve(c.Request.Context(), req.To, accountID.(uint), req.Scanned)
		if err != nil {
			status, msg := statusForError(err)
			c.JSON(status, gin.H{"error": msg})
			return
		}
		// Execute the transfer
		result, err := exec.Send(c.Request.Context(), accountID.(uint), recipient, amount)
		if err != nil {
			status, msg := statusForError(err)
			c.JSON(status, gin.H{"error": msg})
			return
		}
		// Invalidate balance and history cache for both parties
		if rdb, ok := c.MustGet("redisClient").(*redis.Client); ok {
			ctx := context.Background()                       // Context for Redis operations
			invalidateAccountCache(ctx, rdb, accountID.(uint)) // Sender caches
			invalidateAccountCache(ctx, rdb, recipient.ID)     // Recipient caches
		}
		// Return success response with the new balance
		c.JSON(http.StatusOK, gin.H{
			"message":     "Transfer successful",
			"new_balance": result.NewSenderBalance,
			"transaction": result.Transaction,
		})
	}
}

// GetTransactionHistoryHandler returns the account's transactions, newest first
func GetTransactionHistoryHandler(st *store.Store, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get account ID from context
		accountID, exists := c.Get("accountID")
		// Check if account ID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		page := 1      // Default page
		pageSize := 20 // Default page size
		// If page exists in query
		if p := c.Query("page"); p != "" {
			// Convert page to integer
			if v, err := strconv.Atoi(p); err == nil && v > 0 {
				page = v // Set page if valid
			}
		}
		// If page_size exists in query
		if ps := c.Query("page_size"); ps != "" {
			// Convert page_size to integer
			if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
				pageSize = v // Set page size if valid
			}
		}
		offset := (page - 1) * pageSize // Calculate offset
		// Redis cache key
		cacheKey := "txhistory:acct:" + strconv.Itoa(int(accountID.(uint))) + ":page:" + strconv.Itoa(page) + ":size:" + strconv.Itoa(pageSize)
		ctx := context.Background() // Context for Redis operations
		var cached struct {
			Transactions []domain.Transaction `json:"transactions"` // List of transactions
			Page         int                  `json:"page"`         // Current page
			PageSize     int                  `json:"page_size"`    // Page size
			Total        int64                `json:"total"`        // Total transactions
			TotalPages   int                  `json:"total_pages"`  // Total pages
		}
		// Try to get from cache
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		// If found in cache, return it
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"transactions": cached.Transactions, // Cached transactions
				"page":         cached.Page,         // Current page
				"page_size":    cached.PageSize,     // Page size
				"total":        cached.Total,        // Total transactions
				"total_pages":  cached.TotalPages,   // Total pages
				"cached":       true,
			})
			return
		}
		// Fetch the page from the store
		txs, total, err := st.History(c.Request.Context(), accountID.(uint), offset, pageSize)
		if err != nil {
			// If fetching fails, return error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
			return
		}
		// Calculate total pages
		totalPages := (int(total) + pageSize - 1) / pageSize
		resp := gin.H{
			"transactions": txs,        // List of transactions
			"page":         page,       // Current page
			"page_size":    pageSize,   // Page size
			"total":        total,      // Total transactions
			"total_pages":  totalPages, // Total pages
			"cached":       false,      // Not from cache
		}
		// Cache the result for 60 seconds
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, 60*time.Second)
		c.JSON(http.StatusOK, resp) // Return transaction history
	}
}

// couponEntry decorates a coupon transaction with its send-back eligibility
type couponEntry struct {
	domain.Transaction      // The coupon row
	CanSendBack        bool `json:"can_send_back"` // True when the account may return it
}

// ListCouponsHandler returns the account's coupons (transactions under the
// threshold), newest first, flagged with send-back eligibility
func ListCouponsHandler(ledger *coupon.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get account ID from context
		accountID, exists := c.Get("accountID")
		// Check if account ID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		// Fetch the coupon view
		txs, err := ledger.ListCoupons(c.Request.Context(), accountID.(uint))
		if err != nil {
			status, msg := statusForError(err)
			c.JSON(status, gin.H{"error": msg})
			return
		}
		// Decorate each coupon with its eligibility
		entries := make([]couponEntry, len(txs))
		for i, t := range txs {
			entries[i] = couponEntry{
				Transaction: t,
				CanSendBack: coupon.CanSendBack(t, accountID.(uint)),
			}
		}
		c.JSON(http.StatusOK, gin.H{"coupons": entries}) // Return the coupon list
	}
}

// SendBackRequest identifies the coupon to return
type SendBackRequest struct {
	TransactionID uint `json:"transaction_id" binding:"required"` // Coupon transaction ID
}

// SendBackHandler returns a received coupon to its original sender: same
// amount, opposite direction, brand-new transaction
func SendBackHandler(ledger *coupon.Ledger, st *store.Store, exec *transfer.Executor) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, exists := c.Get("accountID") // Get account ID from context
		// Check if account ID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req SendBackRequest // Bind JSON request to struct
		// Validate request
		if err := c.ShouldBindJSON(&req); err != nil {
			// If invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Load the original coupon row
		original, err := st.TransactionByID(c.Request.Context(), req.TransactionID)
		if err != nil {
			// If missing, return not found
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
			return
		}
		// Prepare the reversal intent; only the original receiver may do this
		intent, err := ledger.PrepareSendBack(c.Request.Context(), *original, accountID.(uint))
		if err != nil {
			status, msg := statusForError(err)
			c.JSON(status, gin.H{"error": msg})
			return
		}
		// The intent targets the original sender only
		recipient := &domain.Account{
			ID:       intent.RecipientID,
			Phone:    intent.RecipientPhone,
			FullName: intent.RecipientName,
		}
		// Execute the reversal as a normal transfer
		result, err := exec.Send(c.Request.Context(), accountID.(uint), recipient, intent.PresetAmount)
		if err != nil {
			status, msg := statusForError(err)
			c.JSON(status, gin.H{"error": msg})
			return
		}
		// Invalidate balance and history cache for both parties
		if rdb, ok := c.MustGet("redisClient").(*redis.Client); ok {
			ctx := context.Background()                        // Context for Redis operations
			invalidateAccountCache(ctx, rdb, accountID.(uint)) // Sender caches
			invalidateAccountCache(ctx, rdb, recipient.ID)     // Recipient caches
		}
		// Return success response
		c.JSON(http.StatusOK, gin.H{
			"message":     "Coupon sent back",
			"new_balance": result.NewSenderBalance,
			"transaction": result.Transaction,
		})
	}
}
