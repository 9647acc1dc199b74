package store

import (
	"context"
	"errors"

	"mychangex/internal/domain" // Models and error kinds

	"github.com/shopspring/decimal"
	"gorm.io/gorm" // GORM ORM library
)

// Store is the gorm-backed implementation of the narrow backend interfaces
// the core components consume: account lookup, history queries, audits and
// the connectivity probe.
type Store struct {
	db *gorm.DB
}

// New wraps a gorm connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AccountByID fetches an account by primary key.
func (s *Store) AccountByID(ctx context.Context, id uint) (*domain.Account, error) {
	var acct domain.Account
	if err := s.db.WithContext(ctx).First(&acct, id).Error; err != nil {
		return nil, err
	}
	return &acct, nil
}

// AccountByPhone fetches an account by its normalized phone. A missing row
// maps to ErrRecipientNotFound.
func (s *Store) AccountByPhone(ctx context.Context, normalized string) (*domain.Account, error) {
	var acct domain.Account
	if err := s.db.WithContext(ctx).Where("phone = ?", normalized).First(&acct).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRecipientNotFound
		}
		return nil, err
	}
	return &acct, nil
}

// Ping probes backend reachability within the caller's deadline.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// TransactionByID fetches a single transaction row.
func (s *Store) TransactionByID(ctx context.Context, id uint) (*domain.Transaction, error) {
	var t domain.Transaction
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// ListCouponsFor returns the transactions the account participates in with
// amount below the threshold, newest first, capped at limit.
func (s *Store) ListCouponsFor(ctx context.Context, accountID uint, below decimal.Decimal, limit int) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	err := s.db.WithContext(ctx).
		Where("(sender_id = ? OR receiver_id = ?) AND amount < ?", accountID, accountID, below).
		Order("created_at desc").
		Limit(limit).
		Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return txs, nil
}

// History returns a page of the account's transactions, newest first, plus
// the total participant count for pagination.
func (s *Store) History(ctx context.Context, accountID uint, offset, limit int) ([]domain.Transaction, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&domain.Transaction{}).
		Where("sender_id = ? OR receiver_id = ?", accountID, accountID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var txs []domain.Transaction
	err := s.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", accountID, accountID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&txs).Error
	if err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

// UnresolvedAudits lists the partial-transfer rows still waiting for manual
// reconciliation, oldest first.
func (s *Store) UnresolvedAudits(ctx context.Context) ([]domain.TransferAudit, error) {
	var audits []domain.TransferAudit
	if err := s.db.WithContext(ctx).Where("resolved = ?", false).Order("created_at asc").Find(&audits).Error; err != nil {
		return nil, err
	}
	return audits, nil
}
