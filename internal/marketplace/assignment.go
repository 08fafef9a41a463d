package marketplace

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/taskmesh/marketplace/internal/checked"
	"github.com/taskmesh/marketplace/internal/db/models"
	"github.com/taskmesh/marketplace/internal/events"
)

// AcknowledgeMatch confirms that the provider accepts its assignment for
// the job. Acknowledging an already acknowledged assignment is a no-op.
func (s *Service) AcknowledgeMatch(ctx context.Context, provider, jobID string) error {
	var changed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assignments := s.assignments.WithTx(tx)
		jobs := s.jobs.WithTx(tx)

		assignment, err := assignments.Get(ctx, provider, jobID)
		if err != nil {
			if isNotFound(err) {
				return ErrCannotAcknowledgeWhenNotMatched
			}
			return err
		}

		changed = !assignment.Acknowledged
		if !changed {
			return nil
		}
		assignment.Acknowledged = true
		if err := assignments.Update(ctx, assignment); err != nil {
			return err
		}

		status, err := jobs.GetStatus(ctx, jobID)
		if err != nil {
			if isNotFound(err) {
				return severe(ErrJobStatusNotFound, map[string]interface{}{"job_id": jobID})
			}
			return err
		}
		switch status.State {
		case models.JobStateMatched:
			status.State = models.JobStateAssigned
			status.Acknowledged = 1
		case models.JobStateAssigned:
			status.Acknowledged++
		default:
			return ErrCannotAcknowledgeWhenNotMatched
		}
		return jobs.UpdateStatus(ctx, status)
	})
	if err != nil {
		return err
	}

	if changed {
		events.Publish(events.Event{Type: events.EventJobAssigned, JobID: jobID, Provider: provider})
	}
	return nil
}

// Report records one execution of an acknowledged assignment. The report
// must arrive while [now, now+tolerance] overlaps an agreed execution.
// With last=true the assignment, the job's status and its registration
// are removed and the provider's capacity is restored. The provider's fee
// for the execution is paid as the final, non-revertible step.
func (s *Service) Report(ctx context.Context, provider, jobID string, last bool, result ExecutionResult) error {
	var fee Reward
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assignments := s.assignments.WithTx(tx)
		jobs := s.jobs.WithTx(tx)
		ads := s.ads.WithTx(tx)

		assignment, err := assignments.Get(ctx, provider, jobID)
		if err != nil {
			if isNotFound(err) {
				return ErrReportFromUnassignedSource
			}
			return err
		}
		if !assignment.Acknowledged {
			return ErrCannotReportWhenNotAcknowledged
		}
		if assignment.SLAMet >= assignment.SLATotal {
			return ErrMoreReportsThanExpected
		}
		assignment.SLAMet++
		if err := assignments.Update(ctx, assignment); err != nil {
			return err
		}
		fee = Reward{Asset: assignment.FeeAsset, Amount: assignment.FeePerExecution}

		registration, err := jobs.GetRegistration(ctx, jobID)
		if err != nil {
			if isNotFound(err) {
				return ErrJobRegistrationNotFound
			}
			return err
		}

		now, err := s.now()
		if err != nil {
			return err
		}
		nowMax, ok := checked.AddU64(now, s.tolerance)
		if !ok {
			return ErrCalculationOverflow
		}
		within, err := registration.Schedule().Overlaps(assignment.StartDelay, now, nowMax)
		if err != nil {
			return ErrCalculationOverflow
		}
		if !within {
			return ErrReportOutsideSchedule
		}

		if last {
			// The completed job leaves all storage points; the final SLA
			// survives only in the emitted events.
			if err := assignments.Delete(ctx, provider, jobID); err != nil {
				return err
			}
			if err := jobs.DeleteStatus(ctx, jobID); err != nil {
				return err
			}
			capacity, err := capacityFor(ctx, ads, provider)
			if err != nil {
				return err
			}
			if err := ads.SetCapacity(ctx, provider,
				checked.SaturatingAddI64(capacity.Remaining, int64(registration.Storage))); err != nil {
				return err
			}
			if err := jobs.DeleteRegistration(ctx, jobID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Pay only after all other steps succeeded: paying is not revertible.
	if err := s.rewards.PayReward(ctx, fee, provider); err != nil {
		return fmt.Errorf("%w: execution fee: %v", ErrFailedToPay, err)
	}

	if result.Success {
		events.Publish(events.Event{
			Type:          events.EventExecutionSuccess,
			JobID:         jobID,
			Provider:      provider,
			OperationHash: result.OperationHash,
		})
	} else {
		events.Publish(events.Event{
			Type:     events.EventExecutionFailure,
			JobID:    jobID,
			Provider: provider,
			Message:  result.Message,
		})
	}
	events.Publish(events.Event{Type: events.EventReported, JobID: jobID, Provider: provider})
	return nil
}
