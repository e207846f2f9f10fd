package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/gridflow/gridflow/internal/infrastructure/storage/models"
)

// HousekeepingRepository defines the interface for housekeeping job bookkeeping
type HousekeepingRepository interface {
	// Create records the start of a housekeeping run
	Create(ctx context.Context, job *models.HousekeepingJobModel) error

	// Update persists a running job's progress or terminal state
	Update(ctx context.Context, job *models.HousekeepingJobModel) error

	// FindByID retrieves a housekeeping job by ID
	FindByID(ctx context.Context, id uuid.UUID) (*models.HousekeepingJobModel, error)

	// FindRecent retrieves the most recent housekeeping runs, newest first
	FindRecent(ctx context.Context, limit int) ([]*models.HousekeepingJobModel, error)

	// FindRunning retrieves jobs still in progress, to guard against overlapping runs
	FindRunning(ctx context.Context, jobType string) ([]*models.HousekeepingJobModel, error)
}
