package repos

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/taskmesh/marketplace/internal/db/models"
)

// AttestationRepository tracks providers with an accepted attestation.
type AttestationRepository struct {
	db *gorm.DB
}

// NewAttestationRepository creates a new attestation repository instance.
func NewAttestationRepository(db *gorm.DB) *AttestationRepository {
	return &AttestationRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *AttestationRepository) WithTx(tx *gorm.DB) *AttestationRepository {
	return &AttestationRepository{db: tx}
}

// Add marks a provider as verified. Adding an already verified provider
// is a no-op.
func (r *AttestationRepository) Add(ctx context.Context, provider string) error {
	var existing models.VerifiedSource
	err := r.db.WithContext(ctx).
		Where(&models.VerifiedSource{Provider: provider}).
		First(&existing).Error
	if err == nil {
		return nil
	}
	return r.db.WithContext(ctx).Create(&models.VerifiedSource{Provider: provider}).Error
}

// Remove revokes a provider's verification.
func (r *AttestationRepository) Remove(ctx context.Context, provider string) error {
	return r.db.WithContext(ctx).Unscoped().
		Where(&models.VerifiedSource{Provider: provider}).
		Delete(&models.VerifiedSource{}).Error
}

// Exists reports whether a provider is verified.
func (r *AttestationRepository) Exists(ctx context.Context, provider string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.VerifiedSource{}).
		Where(&models.VerifiedSource{Provider: provider}).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to count verified sources: %w", err)
	}
	return count > 0, nil
}
