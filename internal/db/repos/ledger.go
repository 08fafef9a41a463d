package repos

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/taskmesh/marketplace/internal/db/models"
)

// LedgerRepository provides access to per-asset account balances.
type LedgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a new ledger repository instance.
func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *LedgerRepository) WithTx(tx *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: tx}
}

// Get retrieves an account's balance row for one asset. A missing row is
// returned as a zero balance without creating it.
func (r *LedgerRepository) Get(ctx context.Context, account, asset string) (*models.LedgerAccount, error) {
	var row models.LedgerAccount
	err := r.db.WithContext(ctx).
		Where(&models.LedgerAccount{Account: account, Asset: asset}).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.LedgerAccount{Account: account, Asset: asset}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger account: %w", err)
	}
	return &row, nil
}

// Save persists an account balance row, creating it on first use.
func (r *LedgerRepository) Save(ctx context.Context, row *models.LedgerAccount) error {
	if row.ID == 0 {
		return r.db.WithContext(ctx).Create(row).Error
	}
	return r.db.WithContext(ctx).Save(row).Error
}
