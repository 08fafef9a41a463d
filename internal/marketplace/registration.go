package marketplace

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskmesh/marketplace/internal/db/models"
	"github.com/taskmesh/marketplace/internal/events"
	"github.com/taskmesh/marketplace/internal/schedule"
)

// JobRegistration is the input to RegisterJob.
type JobRegistration struct {
	Script   string            `json:"script"`
	Schedule schedule.Schedule `json:"schedule"`

	Slots           uint8  `json:"slots"`
	Memory          uint32 `json:"memory"`
	NetworkRequests uint32 `json:"network_requests"`
	Storage         uint32 `json:"storage"`

	Reward Reward `json:"reward"`

	AllowOnlyVerifiedSources bool               `json:"allow_only_verified_sources"`
	AllowedSources           models.AccountList `json:"allowed_sources,omitempty"`

	// InstantMatch optionally commits providers for all slots in the same
	// call, going through the full matching pipeline.
	InstantMatch []PlannedExecution `json:"instant_match,omitempty"`
}

// RegisterJob validates and stores a job registration for the consumer
// and returns its job ID. A consumer re-registering the same script
// overwrites the previous registration while its status is still open.
// The job's total reward is locked as the final, non-revertible step.
func (s *Service) RegisterJob(ctx context.Context, consumer string, reg JobRegistration) (string, error) {
	if reg.Schedule.Duration == 0 {
		return "", ErrJobRegistrationZeroDuration
	}
	executionCount := reg.Schedule.ExecutionCount()
	if executionCount > schedule.MaxExecutionsPerJob {
		return "", ErrJobRegistrationExceedsMaxExecutions
	}
	if executionCount == 0 {
		return "", ErrJobRegistrationZeroExecutions
	}
	if reg.Schedule.Duration >= reg.Schedule.Interval {
		return "", ErrJobRegistrationDurationExceedsInterval
	}
	now, err := s.now()
	if err != nil {
		return "", err
	}
	if reg.Schedule.StartTime < now {
		return "", ErrJobRegistrationStartInPast
	}
	if reg.Schedule.EndTime < reg.Schedule.StartTime {
		return "", ErrJobRegistrationEndBeforeStart
	}
	if reg.Slots == 0 {
		return "", ErrJobRegistrationZeroSlots
	}
	if reg.Slots > models.MaxSlots {
		return "", fmt.Errorf("%w: %d slots (max %d)", ErrLengthExceeded, reg.Slots, models.MaxSlots)
	}
	if reg.Reward.Amount == 0 {
		return "", ErrJobRegistrationZeroReward
	}
	if len(reg.AllowedSources) > models.MaxAllowedAccounts {
		return "", fmt.Errorf("%w: %d allowed sources (max %d)", ErrLengthExceeded, len(reg.AllowedSources), models.MaxAllowedAccounts)
	}

	var (
		jobID       string
		matchEvents []events.Event
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		jobs := s.jobs.WithTx(tx)

		registration := &models.JobRegistration{
			JobID:                    uuid.NewString(),
			Consumer:                 consumer,
			Script:                   reg.Script,
			StartTime:                reg.Schedule.StartTime,
			EndTime:                  reg.Schedule.EndTime,
			Duration:                 reg.Schedule.Duration,
			Interval:                 reg.Schedule.Interval,
			Slots:                    reg.Slots,
			Memory:                   reg.Memory,
			NetworkRequests:          reg.NetworkRequests,
			Storage:                  reg.Storage,
			RewardAsset:              reg.Reward.Asset,
			RewardAmount:             reg.Reward.Amount,
			AllowOnlyVerifiedSources: reg.AllowOnlyVerifiedSources,
			AllowedSources:           reg.AllowedSources,
		}

		existing, err := jobs.GetRegistrationByScript(ctx, consumer, reg.Script)
		switch {
		case err == nil:
			status, err := jobs.GetStatus(ctx, existing.JobID)
			if err != nil {
				if isNotFound(err) {
					return severe(ErrJobStatusNotFound, map[string]interface{}{"job_id": existing.JobID})
				}
				return err
			}
			if status.State != models.JobStateOpen {
				return ErrJobRegistrationUnmodifiable
			}
			// Overwrite in place, keeping the job ID stable.
			registration.ID = existing.ID
			registration.CreatedAt = existing.CreatedAt
			registration.JobID = existing.JobID
			if err := jobs.UpdateRegistration(ctx, registration); err != nil {
				return err
			}
		case isNotFound(err):
			if err := jobs.CreateRegistration(ctx, registration); err != nil {
				return err
			}
			if err := jobs.CreateStatus(ctx, &models.JobStatus{
				JobID: registration.JobID,
				State: models.JobStateOpen,
			}); err != nil {
				return err
			}
		default:
			return err
		}
		jobID = registration.JobID

		if len(reg.InstantMatch) > 0 {
			_, evs, err := s.processMatching(ctx, tx, []Match{{
				JobID:   registration.JobID,
				Sources: reg.InstantMatch,
			}})
			if err != nil {
				return err
			}
			matchEvents = evs
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	total, err := s.totalRewardAmount(&models.JobRegistration{
		StartTime:    reg.Schedule.StartTime,
		EndTime:      reg.Schedule.EndTime,
		Duration:     reg.Schedule.Duration,
		Interval:     reg.Schedule.Interval,
		Slots:        reg.Slots,
		RewardAmount: reg.Reward.Amount,
	})
	if err != nil {
		return "", err
	}

	// Lock only after all other steps succeeded: locking is not revertible.
	if err := s.rewards.LockReward(ctx, Reward{Asset: reg.Reward.Asset, Amount: total}, consumer); err != nil {
		return jobID, fmt.Errorf("%w: locking total reward: %v", ErrFailedToPay, err)
	}

	events.Publish(events.Event{Type: events.EventJobRegistered, JobID: jobID, Consumer: consumer})
	for _, ev := range matchEvents {
		events.Publish(ev)
	}
	return jobID, nil
}

// DeregisterJob removes a job while it is still open, or once it is
// overdue without having started.
func (s *Service) DeregisterJob(ctx context.Context, consumer, jobID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		jobs := s.jobs.WithTx(tx)

		registration, err := jobs.GetRegistration(ctx, jobID)
		if err != nil {
			if isNotFound(err) {
				return ErrJobRegistrationNotFound
			}
			return err
		}
		if registration.Consumer != consumer {
			return ErrJobRegistrationNotFound
		}

		status, err := jobs.GetStatus(ctx, jobID)
		if err != nil {
			if isNotFound(err) {
				return severe(ErrJobStatusNotFound, map[string]interface{}{"job_id": jobID})
			}
			return err
		}

		if status.State != models.JobStateOpen {
			now, err := s.now()
			if err != nil {
				return err
			}
			// Overdue jobs may always be deregistered.
			if now < registration.StartTime {
				return ErrJobRegistrationUnmodifiable
			}
		}

		if err := jobs.DeleteStatus(ctx, jobID); err != nil {
			return err
		}
		return jobs.DeleteRegistration(ctx, jobID)
	})
	if err != nil {
		return err
	}

	events.Publish(events.Event{Type: events.EventJobDeregistered, JobID: jobID, Consumer: consumer})
	return nil
}

// UpdateAllowedSources replaces a job's allowed-source whitelist while
// the job is still open.
func (s *Service) UpdateAllowedSources(ctx context.Context, consumer, jobID string, sources models.AccountList) error {
	if len(sources) > models.MaxAllowedAccounts {
		return fmt.Errorf("%w: %d allowed sources (max %d)", ErrLengthExceeded, len(sources), models.MaxAllowedAccounts)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		jobs := s.jobs.WithTx(tx)

		registration, err := jobs.GetRegistration(ctx, jobID)
		if err != nil {
			if isNotFound(err) {
				return ErrJobRegistrationNotFound
			}
			return err
		}
		if registration.Consumer != consumer {
			return ErrJobRegistrationNotFound
		}

		status, err := jobs.GetStatus(ctx, jobID)
		if err != nil {
			if isNotFound(err) {
				return severe(ErrJobStatusNotFound, map[string]interface{}{"job_id": jobID})
			}
			return err
		}
		if status.State != models.JobStateOpen {
			return ErrJobRegistrationUnmodifiable
		}

		registration.AllowedSources = sources
		return jobs.UpdateRegistration(ctx, registration)
	})
}
