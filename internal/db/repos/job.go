package repos

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/taskmesh/marketplace/internal/db/models"
)

// JobRepository provides access to job registrations and job statuses.
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new job repository instance.
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *JobRepository) WithTx(tx *gorm.DB) *JobRepository {
	return &JobRepository{db: tx}
}

// CreateRegistration stores a new job registration.
func (r *JobRepository) CreateRegistration(ctx context.Context, registration *models.JobRegistration) error {
	return r.db.WithContext(ctx).Create(registration).Error
}

// GetRegistration retrieves a job registration by job ID.
func (r *JobRepository) GetRegistration(ctx context.Context, jobID string) (*models.JobRegistration, error) {
	var registration models.JobRegistration
	err := r.db.WithContext(ctx).
		Where(&models.JobRegistration{JobID: jobID}).
		First(&registration).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	return &registration, nil
}

// GetRegistrationByScript retrieves a consumer's registration for one
// script. Jobs are keyed externally by job ID but a consumer registers at
// most one job per script.
func (r *JobRepository) GetRegistrationByScript(ctx context.Context, consumer, script string) (*models.JobRegistration, error) {
	var registration models.JobRegistration
	err := r.db.WithContext(ctx).
		Where(&models.JobRegistration{Consumer: consumer, Script: script}).
		First(&registration).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	return &registration, nil
}

// UpdateRegistration saves a mutated job registration.
func (r *JobRepository) UpdateRegistration(ctx context.Context, registration *models.JobRegistration) error {
	return r.db.WithContext(ctx).Save(registration).Error
}

// DeleteRegistration removes a job registration.
func (r *JobRepository) DeleteRegistration(ctx context.Context, jobID string) error {
	return r.db.WithContext(ctx).Unscoped().
		Where(&models.JobRegistration{JobID: jobID}).
		Delete(&models.JobRegistration{}).Error
}

// ListRegistrations returns registrations, optionally filtered by consumer.
func (r *JobRepository) ListRegistrations(ctx context.Context, consumer string) ([]models.JobRegistration, error) {
	var registrations []models.JobRegistration
	qry := r.db.WithContext(ctx)
	if consumer != "" {
		qry = qry.Where(&models.JobRegistration{Consumer: consumer})
	}
	if err := qry.Find(&registrations).Error; err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	return registrations, nil
}

// CreateStatus stores a new job status.
func (r *JobRepository) CreateStatus(ctx context.Context, status *models.JobStatus) error {
	return r.db.WithContext(ctx).Create(status).Error
}

// GetStatus retrieves the status of a job.
func (r *JobRepository) GetStatus(ctx context.Context, jobID string) (*models.JobStatus, error) {
	var status models.JobStatus
	err := r.db.WithContext(ctx).
		Where(&models.JobStatus{JobID: jobID}).
		First(&status).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get job status: %w", err)
	}
	return &status, nil
}

// UpdateStatus saves a mutated job status.
func (r *JobRepository) UpdateStatus(ctx context.Context, status *models.JobStatus) error {
	return r.db.WithContext(ctx).Save(status).Error
}

// DeleteStatus removes the status of a job.
func (r *JobRepository) DeleteStatus(ctx context.Context, jobID string) error {
	return r.db.WithContext(ctx).Unscoped().
		Where(&models.JobStatus{JobID: jobID}).
		Delete(&models.JobStatus{}).Error
}
