package marketplace

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gorm.io/gorm"

	"github.com/taskmesh/marketplace/internal/checked"
	"github.com/taskmesh/marketplace/internal/db/models"
	"github.com/taskmesh/marketplace/internal/events"
	"github.com/taskmesh/marketplace/internal/schedule"
)

// ProposeMatching proposes provider-job pairings. The whole call is
// all-or-nothing: if any slot of any match fails a check, no mutation of
// the call survives. On success the unspent reward accumulated over all
// matches is paid to the matcher, and returned.
func (s *Service) ProposeMatching(ctx context.Context, matcher string, matches []Match) (Reward, error) {
	var (
		remainder   Reward
		matchEvents []events.Event
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		remainder, matchEvents, err = s.processMatching(ctx, tx, matches)
		return err
	})
	if err != nil {
		return Reward{}, err
	}

	// Pay only after all other steps succeeded: paying is not revertible.
	if err := s.rewards.PayMatcherReward(ctx, remainder, matcher); err != nil {
		return Reward{}, fmt.Errorf("%w: matcher reward: %v", ErrFailedToPay, err)
	}

	for _, ev := range matchEvents {
		ev.Matcher = matcher
		events.Publish(ev)
	}
	return remainder, nil
}

// processMatching runs the admission pipeline for every match inside the
// given transaction and returns the accumulated unspent reward. All
// matches of one call must be priced in the same reward asset.
func (s *Service) processMatching(ctx context.Context, tx *gorm.DB, matches []Match) (Reward, []events.Event, error) {
	if len(matches) == 0 {
		return Reward{}, nil, ErrEmptyMatching
	}

	ads := s.ads.WithTx(tx)
	assignments := s.assignments.WithTx(tx)
	jobs := s.jobs.WithTx(tx)

	var (
		remainder   *Reward
		matchEvents []events.Event
	)

	for _, m := range matches {
		registration, err := jobs.GetRegistration(ctx, m.JobID)
		if err != nil {
			if isNotFound(err) {
				return Reward{}, nil, ErrJobRegistrationNotFound
			}
			return Reward{}, nil, err
		}
		sched := registration.Schedule()

		now, err := s.now()
		if err != nil {
			return Reward{}, nil, err
		}
		if now >= registration.StartTime {
			return Reward{}, nil, ErrOverdueMatch
		}
		if len(m.Sources) != int(registration.Slots) {
			return Reward{}, nil, ErrIncorrectSourceCount
		}
		if err := s.assets.Validate(ctx, registration.RewardAsset); err != nil {
			return Reward{}, nil, fmt.Errorf("%w: %s: %v", ErrInvalidAssetID, registration.RewardAsset, err)
		}

		executionCount := sched.ExecutionCount()

		// Track the total fee across all slots to check it against the
		// job's total reward below.
		var totalFee uint64

		for slot, planned := range m.Sources {
			if registration.AllowOnlyVerifiedSources {
				verified, err := s.attestation.IsSourceVerified(ctx, planned.Source)
				if err != nil {
					return Reward{}, nil, err
				}
				if !verified {
					return Reward{}, nil, ErrUnverifiedSourceInMatch
				}
			}

			ad, err := ads.Get(ctx, planned.Source)
			if err != nil {
				if isNotFound(err) {
					return Reward{}, nil, ErrAdvertisementNotFound
				}
				return Reward{}, nil, err
			}

			pricing, err := ads.GetPricing(ctx, planned.Source, registration.RewardAsset)
			if err != nil {
				if isNotFound(err) {
					return Reward{}, nil, ErrAdvertisementPricingNotFound
				}
				return Reward{}, nil, err
			}

			if err := checkSchedulingWindow(pricing, registration, planned.StartDelay, now); err != nil {
				return Reward{}, nil, err
			}

			if ad.MaxMemory < registration.Memory {
				return Reward{}, nil, ErrMaxMemoryExceeded
			}

			// duration (ms) * quota >= network_requests (per second) * 1000,
			// saturating so that an overflowing demand always fails the check.
			supply, ok := checked.MulU64(registration.Duration, uint64(ad.NetworkRequestQuota))
			if !ok {
				supply = 0
			}
			demand, ok := checked.MulU64(uint64(registration.NetworkRequests), 1000)
			if !ok {
				demand = math.MaxUint64
			}
			if supply < demand {
				return Reward{}, nil, ErrNetworkRequestQuotaExceeded
			}

			capacity, err := capacityFor(ctx, ads, planned.Source)
			if err != nil {
				return Reward{}, nil, err
			}
			if capacity.Remaining <= 0 {
				return Reward{}, nil, ErrInsufficientStorageCapacity
			}

			if !registration.AllowedSources.Contains(planned.Source) {
				return Reward{}, nil, ErrSourceNotAllowed
			}
			if !ad.AllowedConsumers.Contains(registration.Consumer) {
				return Reward{}, nil, ErrConsumerNotAllowed
			}

			if err := s.fitsSchedule(ctx, tx, planned.Source, sched, planned.StartDelay); err != nil {
				return Reward{}, nil, err
			}

			fee, err := s.feePerExecution(registration, pricing)
			if err != nil {
				return Reward{}, nil, err
			}
			if fee > registration.RewardAmount {
				return Reward{}, nil, ErrInsufficientReward
			}

			slotFee, ok := checked.MulU64(fee, executionCount)
			if !ok {
				return Reward{}, nil, ErrCalculationOverflow
			}
			totalFee, ok = checked.AddU64(totalFee, slotFee)
			if !ok {
				return Reward{}, nil, ErrCalculationOverflow
			}

			// The same provider may appear only once per job: an existing
			// assignment for the pair aborts the whole call.
			if _, err := assignments.Get(ctx, planned.Source, m.JobID); err == nil {
				return Reward{}, nil, ErrDuplicateSourceInMatch
			} else if !isNotFound(err) {
				return Reward{}, nil, err
			}
			if err := assignments.Create(ctx, &models.Assignment{
				Provider:        planned.Source,
				JobID:           m.JobID,
				Slot:            uint8(slot),
				StartDelay:      planned.StartDelay,
				FeeAsset:        registration.RewardAsset,
				FeePerExecution: fee,
				SLATotal:        executionCount,
			}); err != nil {
				return Reward{}, nil, err
			}

			if err := ads.SetCapacity(ctx, planned.Source,
				checked.SaturatingSubI64(capacity.Remaining, int64(registration.Storage))); err != nil {
				return Reward{}, nil, err
			}
		}

		totalReward, err := s.totalRewardAmount(registration)
		if err != nil {
			return Reward{}, nil, err
		}
		diff, ok := checked.SubU64(totalReward, totalFee)
		if !ok {
			return Reward{}, nil, ErrInsufficientReward
		}

		if remainder == nil {
			remainder = &Reward{Asset: registration.RewardAsset, Amount: diff}
		} else {
			if remainder.Asset != registration.RewardAsset {
				return Reward{}, nil, ErrMultipleRewardAssetsInMatch
			}
			amount, ok := checked.AddU64(remainder.Amount, diff)
			if !ok {
				return Reward{}, nil, ErrCalculationOverflow
			}
			remainder.Amount = amount
		}

		status, err := jobs.GetStatus(ctx, m.JobID)
		if err != nil {
			if isNotFound(err) {
				return Reward{}, nil, severe(ErrJobStatusNotFound, map[string]interface{}{"job_id": m.JobID})
			}
			return Reward{}, nil, err
		}
		status.State = models.JobStateMatched
		if err := jobs.UpdateStatus(ctx, status); err != nil {
			return Reward{}, nil, err
		}

		matchEvents = append(matchEvents, events.Event{
			Type:     events.EventJobMatched,
			JobID:    m.JobID,
			Consumer: registration.Consumer,
		})
	}

	return *remainder, matchEvents, nil
}

// fitsSchedule checks the proposed schedule against every schedule
// already committed to the provider.
func (s *Service) fitsSchedule(ctx context.Context, tx *gorm.DB, provider string, sched schedule.Schedule, startDelay uint64) error {
	assignments := s.assignments.WithTx(tx)
	jobs := s.jobs.WithTx(tx)

	committed, err := assignments.ListByProvider(ctx, provider)
	if err != nil {
		return err
	}
	for _, assignment := range committed {
		other, err := jobs.GetRegistration(ctx, assignment.JobID)
		if err != nil {
			if isNotFound(err) {
				return ErrJobRegistrationNotFound
			}
			return err
		}
		if err := schedule.Fits(sched, startDelay, other.Schedule(), assignment.StartDelay); err != nil {
			switch {
			case errors.Is(err, schedule.ErrOverlap):
				return ErrScheduleOverlap
			case errors.Is(err, schedule.ErrOverflow):
				return ErrCalculationOverflow
			}
			return err
		}
	}
	return nil
}

// checkSchedulingWindow verifies that the job, including its start delay,
// ends within the provider's scheduling window.
func checkSchedulingWindow(pricing *models.PricingVariant, registration *models.JobRegistration, startDelay, now uint64) error {
	jobEnd, ok := checked.AddU64(registration.EndTime, startDelay)
	if !ok {
		return ErrCalculationOverflow
	}
	switch pricing.WindowKind {
	case models.SchedulingWindowEnd:
		if pricing.Window < jobEnd {
			return ErrSchedulingWindowExceeded
		}
	case models.SchedulingWindowDelta:
		deadline, ok := checked.AddU64(now, pricing.Window)
		if !ok {
			return ErrCalculationOverflow
		}
		if deadline < jobEnd {
			return ErrSchedulingWindowExceeded
		}
	default:
		return fmt.Errorf("invalid scheduling window kind: %d", pricing.WindowKind)
	}
	return nil
}

// feePerExecution computes a provider's fee for one execution of a job:
// fee_per_millisecond * duration + fee_per_storage_byte * storage + base fee.
func (s *Service) feePerExecution(registration *models.JobRegistration, pricing *models.PricingVariant) (uint64, error) {
	timeFee, ok := checked.MulU64(pricing.FeePerMillisecond, registration.Duration)
	if !ok {
		return 0, ErrCalculationOverflow
	}
	storageFee, ok := checked.MulU64(pricing.FeePerStorageByte, uint64(registration.Storage))
	if !ok {
		return 0, ErrCalculationOverflow
	}
	fee, ok := checked.AddU64(timeFee, storageFee)
	if !ok {
		return 0, ErrCalculationOverflow
	}
	fee, ok = checked.AddU64(fee, pricing.BaseFeePerExecution)
	if !ok {
		return 0, ErrCalculationOverflow
	}
	return fee, nil
}

// totalRewardAmount computes a job's total reward:
// reward per slot execution * slots * execution count.
func (s *Service) totalRewardAmount(registration *models.JobRegistration) (uint64, error) {
	total, ok := checked.MulU64(registration.RewardAmount, uint64(registration.Slots))
	if !ok {
		return 0, ErrCalculationOverflow
	}
	total, ok = checked.MulU64(total, registration.Schedule().ExecutionCount())
	if !ok {
		return 0, ErrCalculationOverflow
	}
	return total, nil
}
