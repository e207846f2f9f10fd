package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// HousekeepingJobModel records one archival/deletion sweep run in the database.
type HousekeepingJobModel struct {
	bun.BaseModel `bun:"table:housekeeping_jobs,alias:hj"`

	ID            uuid.UUID  `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	JobType       string     `bun:"job_type,notnull" json:"job_type" validate:"required"`
	Status        string     `bun:"status,notnull,default:'running'" json:"status" validate:"required,oneof=running completed failed"`
	CutoffBefore  time.Time  `bun:"cutoff_before,notnull" json:"cutoff_before"`
	ArchivedCount int        `bun:"archived_count,notnull,default:0" json:"archived_count"`
	DeletedCount  int        `bun:"deleted_count,notnull,default:0" json:"deleted_count"`
	Error         string     `bun:"error" json:"error,omitempty"`
	StartedAt     time.Time  `bun:"started_at,notnull,default:current_timestamp" json:"started_at"`
	CompletedAt   *time.Time `bun:"completed_at" json:"completed_at,omitempty"`
}

// TableName returns the table name for HousekeepingJobModel.
func (HousekeepingJobModel) TableName() string {
	return "housekeeping_jobs"
}

// BeforeInsert hook to set defaults.
func (h *HousekeepingJobModel) BeforeInsert(ctx interface{}) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.StartedAt.IsZero() {
		h.StartedAt = time.Now()
	}
	return nil
}

// IsRunning reports whether this job row is still in flight.
func (h *HousekeepingJobModel) IsRunning() bool {
	return h.Status == "running"
}

// MarkCompleted finalizes a successful run.
func (h *HousekeepingJobModel) MarkCompleted(archived, deleted int) {
	now := time.Now()
	h.CompletedAt = &now
	h.Status = "completed"
	h.ArchivedCount = archived
	h.DeletedCount = deleted
}

// MarkFailed finalizes a failed run.
func (h *HousekeepingJobModel) MarkFailed(err string) {
	now := time.Now()
	h.CompletedAt = &now
	h.Status = "failed"
	h.Error = err
}
