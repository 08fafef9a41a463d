package repos

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/taskmesh/marketplace/internal/db/models"
)

// AssignmentRepository provides access to committed provider-job pairings.
type AssignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository creates a new assignment repository instance.
func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *AssignmentRepository) WithTx(tx *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{db: tx}
}

// Create stores a new assignment. The unique (provider, job_id) index
// rejects duplicates at the store level as a backstop.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

// Get retrieves the assignment for a (provider, job) pair.
func (r *AssignmentRepository) Get(ctx context.Context, provider, jobID string) (*models.Assignment, error) {
	var assignment models.Assignment
	err := r.db.WithContext(ctx).
		Where(&models.Assignment{Provider: provider, JobID: jobID}).
		First(&assignment).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return &assignment, nil
}

// Update saves a mutated assignment.
func (r *AssignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Save(assignment).Error
}

// Delete removes the assignment for a (provider, job) pair.
func (r *AssignmentRepository) Delete(ctx context.Context, provider, jobID string) error {
	return r.db.WithContext(ctx).Unscoped().
		Where(&models.Assignment{Provider: provider, JobID: jobID}).
		Delete(&models.Assignment{}).Error
}

// ListByProvider returns all assignments currently committed to a provider.
func (r *AssignmentRepository) ListByProvider(ctx context.Context, provider string) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := r.db.WithContext(ctx).
		Where(&models.Assignment{Provider: provider}).
		Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return assignments, nil
}

// ExistsForProvider reports whether the provider has at least one
// assignment, matched or acknowledged.
func (r *AssignmentRepository) ExistsForProvider(ctx context.Context, provider string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Assignment{}).
		Where(&models.Assignment{Provider: provider}).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to count assignments: %w", err)
	}
	return count > 0, nil
}

// ListByJob returns all assignments referencing one job.
func (r *AssignmentRepository) ListByJob(ctx context.Context, jobID string) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := r.db.WithContext(ctx).
		Where(&models.Assignment{JobID: jobID}).
		Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return assignments, nil
}
