// Package housekeeping implements the scheduled sweep that archives or
// deletes terminal executions once they age past the configured retention
// period.
package housekeeping

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/gridflow/gridflow/internal/domain/repository"
	"github.com/gridflow/gridflow/internal/infrastructure/storage/models"
)

const jobType = "execution_retention"

// Config holds configuration for the housekeeping runner.
type Config struct {
	ExecutionRepo    repository.ExecutionRepository
	HousekeepingRepo repository.HousekeepingRepository

	// Schedule is a seconds-precision cron expression, e.g. "0 0 2 * * *".
	Schedule         string
	RetentionPeriod  time.Duration
	BatchSize        int
	ArchiveToHistory bool
}

// Runner registers one cron job that sweeps terminal executions older than
// RetentionPeriod, archiving or deleting them according to ArchiveToHistory.
// It refuses to start a run while one of the same job type is still in
// progress.
type Runner struct {
	executionRepo    repository.ExecutionRepository
	housekeepingRepo repository.HousekeepingRepository

	retentionPeriod  time.Duration
	batchSize        int
	archiveToHistory bool

	cron *cron.Cron
}

// NewRunner creates a new housekeeping runner. It does not start the cron
// job until Start is called.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.ExecutionRepo == nil {
		return nil, fmt.Errorf("execution repository is required")
	}
	if cfg.HousekeepingRepo == nil {
		return nil, fmt.Errorf("housekeeping repository is required")
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}
	retention := cfg.RetentionPeriod
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}
	schedule := cfg.Schedule
	if schedule == "" {
		schedule = "0 0 2 * * *"
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC))

	r := &Runner{
		executionRepo:    cfg.ExecutionRepo,
		housekeepingRepo: cfg.HousekeepingRepo,
		retentionPeriod:  retention,
		batchSize:        batchSize,
		archiveToHistory: cfg.ArchiveToHistory,
		cron:             c,
	}

	if _, err := c.AddFunc(schedule, r.runSweepLogged); err != nil {
		return nil, fmt.Errorf("failed to schedule housekeeping sweep: %w", err)
	}

	return r, nil
}

// Start begins the cron schedule.
func (r *Runner) Start() {
	r.cron.Start()
}

// Stop stops the cron schedule, waiting for an in-flight sweep to finish.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

// RunNow triggers a sweep immediately, outside the cron schedule, returning
// the completed job row. Intended for manual/admin invocation.
func (r *Runner) RunNow(ctx context.Context) (*models.HousekeepingJobModel, error) {
	return r.runSweep(ctx)
}

func (r *Runner) runSweepLogged() {
	if _, err := r.runSweep(context.Background()); err != nil {
		log.Printf("housekeeping: sweep failed: %v", err)
	}
}

func (r *Runner) runSweep(ctx context.Context) (*models.HousekeepingJobModel, error) {
	running, err := r.housekeepingRepo.FindRunning(ctx, jobType)
	if err != nil {
		return nil, fmt.Errorf("failed to check for an in-progress sweep: %w", err)
	}
	if len(running) > 0 {
		return nil, fmt.Errorf("housekeeping: a %s sweep is already running", jobType)
	}

	cutoff := time.Now().Add(-r.retentionPeriod)
	job := &models.HousekeepingJobModel{
		JobType:      jobType,
		Status:       "running",
		CutoffBefore: cutoff,
	}
	if err := r.housekeepingRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to record sweep start: %w", err)
	}

	archived, deleted, err := r.sweepBatches(ctx, cutoff)
	if err != nil {
		job.MarkFailed(err.Error())
		if updErr := r.housekeepingRepo.Update(ctx, job); updErr != nil {
			log.Printf("housekeeping: failed to record sweep failure: %v", updErr)
		}
		return job, err
	}

	job.MarkCompleted(archived, deleted)
	if err := r.housekeepingRepo.Update(ctx, job); err != nil {
		return job, fmt.Errorf("failed to record sweep completion: %w", err)
	}
	return job, nil
}

func (r *Runner) sweepBatches(ctx context.Context, cutoff time.Time) (archived, deleted int, err error) {
	for {
		batch, err := r.executionRepo.FindTerminalOlderThan(ctx, cutoff, r.batchSize)
		if err != nil {
			return archived, deleted, fmt.Errorf("failed to page terminal executions: %w", err)
		}
		if len(batch) == 0 {
			return archived, deleted, nil
		}

		ids := make([]uuid.UUID, len(batch))
		for i, em := range batch {
			ids[i] = em.ID
		}

		if r.archiveToHistory {
			n, err := r.executionRepo.ArchiveAndDelete(ctx, ids)
			if err != nil {
				return archived, deleted, fmt.Errorf("failed to archive batch: %w", err)
			}
			archived += n
		} else {
			n, err := r.executionRepo.DeleteByIDs(ctx, ids)
			if err != nil {
				return archived, deleted, fmt.Errorf("failed to delete batch: %w", err)
			}
			deleted += n
		}

		if len(batch) < r.batchSize {
			return archived, deleted, nil
		}
	}
}
