package main

import (
	"context"                        // context package is needed for Redis operations
	"log"                            // log package is needed for logging
	"mychangex/internal/api"         // Custom package for API handlers
	"mychangex/internal/config"      // Custom package for configuration
	"mychangex/internal/coupon"      // Coupon ledger view
	"mychangex/internal/middleware"  // Custom package for middleware
	"mychangex/internal/notify"      // Transfer notification relay
	"mychangex/internal/resolver"    // Recipient resolver
	"mychangex/internal/session"     // Session manager
	"mychangex/internal/store"       // Backend stores and transfer strategies
	"mychangex/internal/transfer"    // Transfer executor

	// For loading .env files
	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"gorm.io/driver/mysql"         // MySQL driver for GORM
	"gorm.io/gorm"                 // GORM ORM library
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Setup Data Source Name (DSN) and connect to the database
	dsn := cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + cfg.DBPort + ")/" + cfg.DBName + "?parseTime=true"
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Wire the core subsystem: stores, sessions, resolver, transfer executor
	st := store.New(db)                                    // Narrow backend interfaces over gorm
	sessions := session.NewManager(st, redisClient)        // Session cache with Redis snapshots
	recipients := resolver.New(sessions, st)               // Phone/QR recipient resolution
	relay := notify.NewRelay(cfg.NotifyURL)                // Fire-and-forget notifications
	executor := transfer.NewExecutor(
		store.NewAtomicTransfer(db),   // Primary: all-or-nothing DB transaction
		store.NewFallbackTransfer(db), // Fallback: manual three-step sequence
		sessions, st, relay,
	)
	coupons := coupon.NewLedger(sessions, st, st) // Coupon view over the history

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	// Auth routes
	r.POST("/account", api.RegisterHandler(db))                        // Registration endpoint
	r.POST("/account/login", api.LoginHandler(db, cfg.JWTSecret, sessions)) // Login endpoint

	// Wallet routes (protected by JWT)
	walletGroup := r.Group("/wallet")
	// Protect wallet routes with JWT middleware and inject Redis client into context
	walletGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), func(c *gin.Context) {
		c.Set("redisClient", redisClient)
		c.Next()
	})
	walletGroup.GET("", api.GetBalanceHandler(st, redisClient))                     // Balance endpoint
	walletGroup.POST("/transfer", api.TransferHandler(recipients, executor))        // Transfer endpoint
	walletGroup.GET("/transactions", api.GetTransactionHistoryHandler(st, redisClient)) // Transaction history endpoint
	walletGroup.GET("/coupons", api.ListCouponsHandler(coupons))                    // Coupon list endpoint
	walletGroup.POST("/coupons/sendback", api.SendBackHandler(coupons, st, executor)) // Coupon send-back endpoint
	walletGroup.POST("/logout", api.LogoutHandler(sessions))                        // Logout endpoint

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin")
	// Protect admin routes with JWT and AdminOnly middleware, inject Redis client
	adminGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), middleware.AdminOnlyMiddleware(db), func(c *gin.Context) {
		c.Set("redisClient", redisClient)
		c.Next()
	})
	adminGroup.GET("/accounts", api.ListAccountsHandler(db, redisClient))          // List accounts endpoint
	adminGroup.GET("/transactions", api.ListTransactionsHandler(db, redisClient))  // List transactions endpoint
	adminGroup.POST("/topup", api.TopUpHandler(db))                                // Administrative credit endpoint
	adminGroup.GET("/reconciliation", api.ListReconciliationHandler(st))           // Partial transfer queue endpoint
	adminGroup.POST("/reconciliation/:id/resolve", api.ResolveReconciliationHandler(db)) // Resolve audit endpoint

	log.Println("Server running on " + cfg.AppPort) // Log server start
	r.Run(":" + cfg.AppPort)                        // Start the server on port cfg.AppPort
}
