package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/gridflow/gridflow/internal/domain/repository"
	"github.com/gridflow/gridflow/internal/infrastructure/storage/models"
	"github.com/uptrace/bun"
)

// Ensure HousekeepingRepository implements the interface
var _ repository.HousekeepingRepository = (*HousekeepingRepository)(nil)

// HousekeepingRepository implements repository.HousekeepingRepository using Bun ORM
type HousekeepingRepository struct {
	db *bun.DB
}

// NewHousekeepingRepository creates a new HousekeepingRepository
func NewHousekeepingRepository(db *bun.DB) *HousekeepingRepository {
	return &HousekeepingRepository{db: db}
}

// Create records the start of a housekeeping run
func (r *HousekeepingRepository) Create(ctx context.Context, job *models.HousekeepingJobModel) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	_, err := r.db.NewInsert().Model(job).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create housekeeping job: %w", err)
	}
	return nil
}

// Update persists a running job's progress or terminal state
func (r *HousekeepingRepository) Update(ctx context.Context, job *models.HousekeepingJobModel) error {
	_, err := r.db.NewUpdate().
		Model(job).
		Column("status", "archived_count", "deleted_count", "error", "completed_at").
		Where("id = ?", job.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update housekeeping job: %w", err)
	}
	return nil
}

// FindByID retrieves a housekeeping job by ID
func (r *HousekeepingRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.HousekeepingJobModel, error) {
	job := &models.HousekeepingJobModel{}
	err := r.db.NewSelect().
		Model(job).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("housekeeping job not found: %s", id)
		}
		return nil, fmt.Errorf("failed to find housekeeping job: %w", err)
	}
	return job, nil
}

// FindRecent retrieves the most recent housekeeping runs, newest first
func (r *HousekeepingRepository) FindRecent(ctx context.Context, limit int) ([]*models.HousekeepingJobModel, error) {
	var jobs []*models.HousekeepingJobModel
	err := r.db.NewSelect().
		Model(&jobs).
		Order("started_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find recent housekeeping jobs: %w", err)
	}
	return jobs, nil
}

// FindRunning retrieves jobs still in progress, to guard against overlapping runs
func (r *HousekeepingRepository) FindRunning(ctx context.Context, jobType string) ([]*models.HousekeepingJobModel, error) {
	var jobs []*models.HousekeepingJobModel
	err := r.db.NewSelect().
		Model(&jobs).
		Where("job_type = ? AND status = ?", jobType, "running").
		Order("started_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find running housekeeping jobs: %w", err)
	}
	return jobs, nil
}
