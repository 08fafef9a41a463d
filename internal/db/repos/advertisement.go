// Package repos provides access to the marketplace database aggregates.
//
// Every repository is a thin wrapper around a *gorm.DB handle. WithTx
// rebinds a repository to a transaction so a service can run several
// repositories under one atomic commit.
package repos

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/taskmesh/marketplace/internal/db/models"
)

// AdvertisementRepository provides access to advertisement restrictions,
// pricing variants and capacity counters.
type AdvertisementRepository struct {
	db *gorm.DB
}

// NewAdvertisementRepository creates a new advertisement repository instance.
func NewAdvertisementRepository(db *gorm.DB) *AdvertisementRepository {
	return &AdvertisementRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *AdvertisementRepository) WithTx(tx *gorm.DB) *AdvertisementRepository {
	return &AdvertisementRepository{db: tx}
}

// Get retrieves a provider's advertisement restriction.
func (r *AdvertisementRepository) Get(ctx context.Context, provider string) (*models.Advertisement, error) {
	var ad models.Advertisement
	err := r.db.WithContext(ctx).Where(&models.Advertisement{Provider: provider}).First(&ad).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get advertisement: %w", err)
	}
	return &ad, nil
}

// Upsert stores a provider's advertisement restriction, replacing any
// previous one.
func (r *AdvertisementRepository) Upsert(ctx context.Context, ad *models.Advertisement) error {
	var existing models.Advertisement
	err := r.db.WithContext(ctx).Where(&models.Advertisement{Provider: ad.Provider}).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.WithContext(ctx).Create(ad).Error
	}
	if err != nil {
		return fmt.Errorf("failed to get advertisement: %w", err)
	}
	ad.ID = existing.ID
	ad.CreatedAt = existing.CreatedAt
	return r.db.WithContext(ctx).Save(ad).Error
}

// Delete removes a provider's advertisement restriction.
func (r *AdvertisementRepository) Delete(ctx context.Context, provider string) error {
	return r.db.WithContext(ctx).Unscoped().
		Where(&models.Advertisement{Provider: provider}).
		Delete(&models.Advertisement{}).Error
}

// GetPricing retrieves a provider's pricing variant for one reward asset.
func (r *AdvertisementRepository) GetPricing(ctx context.Context, provider, asset string) (*models.PricingVariant, error) {
	var pricing models.PricingVariant
	err := r.db.WithContext(ctx).
		Where(&models.PricingVariant{Provider: provider, RewardAsset: asset}).
		First(&pricing).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get pricing: %w", err)
	}
	return &pricing, nil
}

// UpsertPricing stores a pricing variant, replacing any previous variant
// for the same (provider, asset) pair.
func (r *AdvertisementRepository) UpsertPricing(ctx context.Context, pricing *models.PricingVariant) error {
	var existing models.PricingVariant
	err := r.db.WithContext(ctx).
		Where(&models.PricingVariant{Provider: pricing.Provider, RewardAsset: pricing.RewardAsset}).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.WithContext(ctx).Create(pricing).Error
	}
	if err != nil {
		return fmt.Errorf("failed to get pricing: %w", err)
	}
	pricing.ID = existing.ID
	pricing.CreatedAt = existing.CreatedAt
	return r.db.WithContext(ctx).Save(pricing).Error
}

// DeletePricing removes all pricing variants of a provider.
func (r *AdvertisementRepository) DeletePricing(ctx context.Context, provider string) error {
	return r.db.WithContext(ctx).Unscoped().
		Where(&models.PricingVariant{Provider: provider}).
		Delete(&models.PricingVariant{}).Error
}

// GetCapacity retrieves a provider's remaining storage capacity.
func (r *AdvertisementRepository) GetCapacity(ctx context.Context, provider string) (*models.Capacity, error) {
	var capacity models.Capacity
	err := r.db.WithContext(ctx).Where(&models.Capacity{Provider: provider}).First(&capacity).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get capacity: %w", err)
	}
	return &capacity, nil
}

// SetCapacity stores a provider's remaining storage capacity.
func (r *AdvertisementRepository) SetCapacity(ctx context.Context, provider string, remaining int64) error {
	var existing models.Capacity
	err := r.db.WithContext(ctx).Where(&models.Capacity{Provider: provider}).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.WithContext(ctx).Create(&models.Capacity{Provider: provider, Remaining: remaining}).Error
	}
	if err != nil {
		return fmt.Errorf("failed to get capacity: %w", err)
	}
	existing.Remaining = remaining
	return r.db.WithContext(ctx).Save(&existing).Error
}

// DeleteCapacity removes a provider's capacity counter.
func (r *AdvertisementRepository) DeleteCapacity(ctx context.Context, provider string) error {
	return r.db.WithContext(ctx).Unscoped().
		Where(&models.Capacity{Provider: provider}).
		Delete(&models.Capacity{}).Error
}
