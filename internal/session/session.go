package session

import (
	"context"
	"strconv"
	"sync"
	"time"

	"mychangex/internal/domain" // Session model and error kinds
	"mychangex/internal/utils"  // Redis cache helpers

	"github.com/redis/go-redis/v9" // Redis client
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus" // Logging library
)

// Balances is the narrow store surface the manager needs to reconcile a
// cached balance against the source of truth.
type Balances interface {
	AccountByID(ctx context.Context, id uint) (*domain.Account, error)
}

// Manager holds the cached sessions of authenticated accounts. Sessions are
// loaded at login, invalidated at logout or expiry, and snapshotted to Redis
// so a restart does not log everyone out.
type Manager struct {
	mu       sync.Mutex
	sessions map[uint]*domain.Session
	accounts Balances
	rdb      *redis.Client // Optional; nil disables snapshots
}

// NewManager creates a session manager backed by the given account store.
func NewManager(accounts Balances, rdb *redis.Client) *Manager {
	return &Manager{
		sessions: make(map[uint]*domain.Session),
		accounts: accounts,
		rdb:      rdb,
	}
}

// snapshotKey is the Redis key for an account's session snapshot.
func snapshotKey(accountID uint) string {
	return "session:acct:" + strconv.Itoa(int(accountID))
}

// Begin caches a fresh session for the account and snapshots it to Redis.
func (m *Manager) Begin(ctx context.Context, acct *domain.Account, token string, expiresAt time.Time) *domain.Session {
	s := &domain.Session{
		AccountID: acct.ID,
		Phone:     acct.Phone,
		FullName:  acct.FullName,
		Balance:   acct.Balance,
		Token:     token,
		ExpiresAt: expiresAt,
	}
	m.mu.Lock()
	m.sessions[acct.ID] = s
	m.mu.Unlock()
	// Snapshot to Redis for the remaining token lifetime
	if m.rdb != nil {
		_ = utils.SetCache(ctx, m.rdb, snapshotKey(acct.ID), s, time.Until(expiresAt))
	}
	return s
}

// Get returns a copy of the account's session, restoring from the Redis
// snapshot if the in-memory entry is gone. Fails with ErrSessionExpired when
// no valid session exists; every component treats that as a hard precondition.
func (m *Manager) Get(ctx context.Context, accountID uint) (*domain.Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[accountID]
	m.mu.Unlock()
	// Fall back to the Redis snapshot on a miss
	if !ok && m.rdb != nil {
		var restored domain.Session
		if found, err := utils.GetCache(ctx, m.rdb, snapshotKey(accountID), &restored); err == nil && found {
			m.mu.Lock()
			m.sessions[accountID] = &restored
			m.mu.Unlock()
			s, ok = &restored, true
		}
	}
	if !ok {
		return nil, domain.ErrSessionExpired
	}
	// Expired sessions are dropped, not silently refreshed
	if s.Expired() {
		m.End(ctx, accountID)
		return nil, domain.ErrSessionExpired
	}
	cp := *s
	return &cp, nil
}

// ApplyDebit updates the cached balance optimistically after a completed
// transfer, without waiting for a re-fetch.
func (m *Manager) ApplyDebit(accountID uint, amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[accountID]; ok {
		s.Balance = s.Balance.Sub(amount)
	}
}

// Reconcile replaces the cached balance with the store's value, correcting
// any drift the optimistic update introduced.
func (m *Manager) Reconcile(ctx context.Context, accountID uint) error {
	acct, err := m.accounts.AccountByID(ctx, accountID)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"account_id": accountID,
			"error":      err.Error(),
		}).Warn("Balance reconciliation failed")
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[accountID]; ok {
		s.Balance = acct.Balance
	}
	return nil
}

// End invalidates the account's session and its Redis snapshot.
func (m *Manager) End(ctx context.Context, accountID uint) {
	m.mu.Lock()
	delete(m.sessions, accountID)
	m.mu.Unlock()
	if m.rdb != nil {
		_ = utils.DeleteCache(ctx, m.rdb, snapshotKey(accountID))
	}
}
