// Package marketplace implements the matching, schedule-conflict-detection
// and assignment-lifecycle engine of the resource marketplace.
//
// Every public operation runs inside a single database transaction: all
// reads and validations happen against that transaction and either the
// whole call commits or nothing does. Non-revertible payouts (locking a
// job's reward, paying the matcher, paying a provider's fee) run strictly
// after the transaction commits; a payout failure at that point returns
// ErrFailedToPay and leaves the committed mutations in place.
package marketplace

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/taskmesh/marketplace/internal/db/models"
	"github.com/taskmesh/marketplace/internal/db/repos"
)

// DefaultReportTolerance is the delta by how much a report's `now` may be
// stale and still count as within schedule. Should be at least the worst
// case processing delay of a report.
const DefaultReportTolerance uint64 = 30_000

// Reward is an amount of one asset.
type Reward struct {
	Asset  string `json:"asset"`
	Amount uint64 `json:"amount"`
}

// RewardManager locks and pays tokens for job execution.
type RewardManager interface {
	// LockReward moves a job's total reward from the payer into escrow.
	LockReward(ctx context.Context, reward Reward, payer string) error
	// PayReward pays a provider's execution fee out of escrow.
	PayReward(ctx context.Context, reward Reward, payee string) error
	// PayMatcherReward pays the unspent part of a matched job's reward to
	// the matcher out of escrow.
	PayMatcherReward(ctx context.Context, reward Reward, payee string) error
}

// AssetValidator gates which reward assets are acceptable.
type AssetValidator interface {
	Validate(ctx context.Context, asset string) error
}

// AttestationVerifier answers whether a provider's attestation was accepted.
type AttestationVerifier interface {
	IsSourceVerified(ctx context.Context, source string) (bool, error)
}

// Clock yields the current time in milliseconds since the Unix epoch.
type Clock interface {
	Now() (uint64, error)
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns the current Unix time in milliseconds.
func (SystemClock) Now() (uint64, error) {
	ms := time.Now().UnixMilli()
	if ms < 0 {
		return 0, ErrFailedTimestamp
	}
	return uint64(ms), nil
}

// PlannedExecution proposes one provider for one slot, with an optional
// delay shifting the job's cadence for that provider.
type PlannedExecution struct {
	Source     string `json:"source"`
	StartDelay uint64 `json:"start_delay"`
}

// Match proposes providers for all slots of one job. The slot index is
// the position in Sources.
type Match struct {
	JobID   string             `json:"job_id"`
	Sources []PlannedExecution `json:"sources"`
}

// ExecutionResult reports the outcome of a single execution.
type ExecutionResult struct {
	Success       bool   `json:"success"`
	OperationHash string `json:"operation_hash,omitempty"`
	Message       string `json:"message,omitempty"`
}

// Service is the marketplace engine. All public operations are atomic;
// concurrent calls are serialized by the database transaction they run in.
type Service struct {
	db          *gorm.DB
	ads         *repos.AdvertisementRepository
	assignments *repos.AssignmentRepository
	jobs        *repos.JobRepository
	rewards     RewardManager
	assets      AssetValidator
	attestation AttestationVerifier
	clock       Clock
	tolerance   uint64
}

// Options configures a marketplace service.
type Options struct {
	Rewards     RewardManager
	Assets      AssetValidator
	Attestation AttestationVerifier
	Clock       Clock
	// ReportTolerance in milliseconds; DefaultReportTolerance when zero.
	ReportTolerance uint64
}

// NewService creates a marketplace service on top of the given database.
func NewService(db *gorm.DB, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.ReportTolerance == 0 {
		opts.ReportTolerance = DefaultReportTolerance
	}
	return &Service{
		db:          db,
		ads:         repos.NewAdvertisementRepository(db),
		assignments: repos.NewAssignmentRepository(db),
		jobs:        repos.NewJobRepository(db),
		rewards:     opts.Rewards,
		assets:      opts.Assets,
		attestation: opts.Attestation,
		clock:       opts.Clock,
		tolerance:   opts.ReportTolerance,
	}
}

// now returns the current marketplace time in milliseconds.
func (s *Service) now() (uint64, error) {
	return s.clock.Now()
}

// isNotFound reports whether a repository error means "no such row".
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// GetAssignment returns the assignment for a (provider, job) pair, if any.
func (s *Service) GetAssignment(ctx context.Context, provider, jobID string) (*models.Assignment, error) {
	assignment, err := s.assignments.Get(ctx, provider, jobID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrReportFromUnassignedSource
		}
		return nil, err
	}
	return assignment, nil
}

// ListAssignments returns all assignments of a job.
func (s *Service) ListAssignments(ctx context.Context, jobID string) ([]models.Assignment, error) {
	return s.assignments.ListByJob(ctx, jobID)
}

// GetAdvertisement returns a provider's advertisement restriction.
func (s *Service) GetAdvertisement(ctx context.Context, provider string) (*models.Advertisement, error) {
	ad, err := s.ads.Get(ctx, provider)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAdvertisementNotFound
		}
		return nil, err
	}
	return ad, nil
}

// GetJob returns a job's registration.
func (s *Service) GetJob(ctx context.Context, jobID string) (*models.JobRegistration, error) {
	registration, err := s.jobs.GetRegistration(ctx, jobID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrJobRegistrationNotFound
		}
		return nil, err
	}
	return registration, nil
}

// GetJobStatus returns a job's lifecycle status.
func (s *Service) GetJobStatus(ctx context.Context, jobID string) (*models.JobStatus, error) {
	status, err := s.jobs.GetStatus(ctx, jobID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrJobStatusNotFound
		}
		return nil, err
	}
	return status, nil
}

// ListJobs returns job registrations, optionally filtered by consumer.
func (s *Service) ListJobs(ctx context.Context, consumer string) ([]models.JobRegistration, error) {
	return s.jobs.ListRegistrations(ctx, consumer)
}
