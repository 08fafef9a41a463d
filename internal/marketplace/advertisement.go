package marketplace

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/taskmesh/marketplace/internal/checked"
	"github.com/taskmesh/marketplace/internal/db/models"
	"github.com/taskmesh/marketplace/internal/db/repos"
	"github.com/taskmesh/marketplace/internal/events"
)

// Pricing is one pricing variant of an advertisement.
type Pricing struct {
	RewardAsset         string `json:"reward_asset"`
	FeePerMillisecond   uint64 `json:"fee_per_millisecond"`
	FeePerStorageByte   uint64 `json:"fee_per_storage_byte"`
	BaseFeePerExecution uint64 `json:"base_fee_per_execution"`
	// WindowKind selects the scheduling window variant, "end" or "delta".
	WindowKind string `json:"window_kind"`
	Window     uint64 `json:"window"`
}

// Advertisement is the input to Advertise: the provider's capability
// envelope plus at least one pricing variant.
type Advertisement struct {
	MaxMemory           uint32             `json:"max_memory"`
	NetworkRequestQuota uint32             `json:"network_request_quota"`
	StorageCapacity     uint32             `json:"storage_capacity"`
	AllowedConsumers    models.AccountList `json:"allowed_consumers,omitempty"`
	Pricing             []Pricing          `json:"pricing"`
}

// Advertise stores or updates a provider's advertisement. Updating keeps
// committed capacity usage: the remaining capacity is adjusted by the
// difference between the new and old advertised totals, saturating rather
// than failing, so it may go negative.
func (s *Service) Advertise(ctx context.Context, provider string, ad Advertisement) error {
	if len(ad.Pricing) == 0 {
		return ErrEmptyPricing
	}
	if len(ad.Pricing) > models.MaxPricingVariants {
		return fmt.Errorf("%w: %d pricing variants (max %d)", ErrLengthExceeded, len(ad.Pricing), models.MaxPricingVariants)
	}
	if len(ad.AllowedConsumers) > models.MaxAllowedAccounts {
		return fmt.Errorf("%w: %d allowed consumers (max %d)", ErrLengthExceeded, len(ad.AllowedConsumers), models.MaxAllowedAccounts)
	}

	variants := make([]models.PricingVariant, 0, len(ad.Pricing))
	for _, p := range ad.Pricing {
		if err := s.assets.Validate(ctx, p.RewardAsset); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidAssetID, p.RewardAsset, err)
		}
		kind, err := models.ParseSchedulingWindowKind(p.WindowKind)
		if err != nil {
			return err
		}
		variants = append(variants, models.PricingVariant{
			Provider:            provider,
			RewardAsset:         p.RewardAsset,
			FeePerMillisecond:   p.FeePerMillisecond,
			FeePerStorageByte:   p.FeePerStorageByte,
			BaseFeePerExecution: p.BaseFeePerExecution,
			WindowKind:          kind,
			Window:              p.Window,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ads := s.ads.WithTx(tx)

		old, err := ads.Get(ctx, provider)
		switch {
		case err == nil:
			// remaining' = remaining + new total - old total
			capacity, err := ads.GetCapacity(ctx, provider)
			if err != nil && !isNotFound(err) {
				return err
			}
			var remaining int64
			if capacity != nil {
				remaining = capacity.Remaining
			}
			remaining = checked.SaturatingAddI64(remaining, int64(ad.StorageCapacity))
			remaining = checked.SaturatingSubI64(remaining, int64(old.StorageCapacity))
			if err := ads.SetCapacity(ctx, provider, remaining); err != nil {
				return err
			}
		case isNotFound(err):
			if err := ads.SetCapacity(ctx, provider, int64(ad.StorageCapacity)); err != nil {
				return err
			}
		default:
			return err
		}

		if err := ads.Upsert(ctx, &models.Advertisement{
			Provider:            provider,
			MaxMemory:           ad.MaxMemory,
			NetworkRequestQuota: ad.NetworkRequestQuota,
			StorageCapacity:     ad.StorageCapacity,
			AllowedConsumers:    ad.AllowedConsumers,
		}); err != nil {
			return err
		}

		for i := range variants {
			if err := ads.UpsertPricing(ctx, &variants[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	events.Publish(events.Event{Type: events.EventAdvertisementStored, Provider: provider})
	return nil
}

// DeleteAdvertisement removes a provider's advertisement, pricing and
// capacity counter. It fails while any assignment references the provider.
func (s *Service) DeleteAdvertisement(ctx context.Context, provider string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ads := s.ads.WithTx(tx)
		assignments := s.assignments.WithTx(tx)

		if _, err := ads.Get(ctx, provider); err != nil {
			if isNotFound(err) {
				return ErrAdvertisementNotFound
			}
			return err
		}

		matched, err := assignments.ExistsForProvider(ctx, provider)
		if err != nil {
			return err
		}
		if matched {
			return ErrCannotDeleteAdvertisementWhileMatched
		}

		if err := ads.DeletePricing(ctx, provider); err != nil {
			return err
		}
		if err := ads.DeleteCapacity(ctx, provider); err != nil {
			return err
		}
		return ads.Delete(ctx, provider)
	})
	if err != nil {
		return err
	}

	events.Publish(events.Event{Type: events.EventAdvertisementRemoved, Provider: provider})
	return nil
}

// capacityFor loads a provider's capacity row, mapping a missing row to
// the severe ErrCapacityNotFound.
func capacityFor(ctx context.Context, ads *repos.AdvertisementRepository, provider string) (*models.Capacity, error) {
	capacity, err := ads.GetCapacity(ctx, provider)
	if err != nil {
		if isNotFound(err) {
			return nil, severe(ErrCapacityNotFound, map[string]interface{}{"provider": provider})
		}
		return nil, err
	}
	return capacity, nil
}
