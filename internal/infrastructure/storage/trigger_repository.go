package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gridflow/gridflow/internal/domain/repository"
	"github.com/gridflow/gridflow/internal/infrastructure/storage/models"
	"github.com/uptrace/bun"
)

// Ensure TriggerRepository implements the interface
var _ repository.TriggerRepository = (*TriggerRepository)(nil)

// TriggerRepository implements repository.TriggerRepository using Bun ORM
type TriggerRepository struct {
	db *bun.DB
}

// NewTriggerRepository creates a new TriggerRepository
func NewTriggerRepository(db *bun.DB) *TriggerRepository {
	return &TriggerRepository{db: db}
}

// Create creates a new trigger
func (r *TriggerRepository) Create(ctx context.Context, trigger *models.TriggerModel) error {
	if trigger.ID == uuid.Nil {
		trigger.ID = uuid.New()
	}
	_, err := r.db.NewInsert().Model(trigger).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create trigger: %w", err)
	}
	return nil
}

// Update updates an existing trigger
func (r *TriggerRepository) Update(ctx context.Context, trigger *models.TriggerModel) error {
	_, err := r.db.NewUpdate().
		Model(trigger).
		Column("type", "config", "enabled", "last_triggered_at", "updated_at").
		Where("id = ?", trigger.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update trigger: %w", err)
	}
	return nil
}

// Delete deletes a trigger
func (r *TriggerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*models.TriggerModel)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete trigger: %w", err)
	}
	return nil
}

// FindByID retrieves a trigger by ID
func (r *TriggerRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.TriggerModel, error) {
	trigger := &models.TriggerModel{}
	err := r.db.NewSelect().
		Model(trigger).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("trigger not found: %s", id)
		}
		return nil, fmt.Errorf("failed to find trigger: %w", err)
	}
	return trigger, nil
}

// FindByWorkflowID retrieves all triggers for a workflow
func (r *TriggerRepository) FindByWorkflowID(ctx context.Context, workflowID uuid.UUID) ([]*models.TriggerModel, error) {
	var triggers []*models.TriggerModel
	err := r.db.NewSelect().
		Model(&triggers).
		Where("workflow_id = ?", workflowID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find triggers by workflow ID: %w", err)
	}
	return triggers, nil
}

// FindByType retrieves triggers by type with pagination
func (r *TriggerRepository) FindByType(ctx context.Context, triggerType string, limit, offset int) ([]*models.TriggerModel, error) {
	var triggers []*models.TriggerModel
	err := r.db.NewSelect().
		Model(&triggers).
		Where("type = ?", triggerType).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find triggers by type: %w", err)
	}
	return triggers, nil
}

// FindAll retrieves all triggers with pagination
func (r *TriggerRepository) FindAll(ctx context.Context, limit, offset int) ([]*models.TriggerModel, error) {
	var triggers []*models.TriggerModel
	err := r.db.NewSelect().
		Model(&triggers).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find all triggers: %w", err)
	}
	return triggers, nil
}

// FindEnabled retrieves every enabled trigger, used to reload the trigger
// manager's scheduler, listener and webhook registry on startup.
func (r *TriggerRepository) FindEnabled(ctx context.Context) ([]*models.TriggerModel, error) {
	var triggers []*models.TriggerModel
	err := r.db.NewSelect().
		Model(&triggers).
		Where("enabled = true").
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find enabled triggers: %w", err)
	}
	return triggers, nil
}

// FindEnabledByType retrieves enabled triggers of a given type, used to
// reload the cron/interval schedule or the webhook/form registries at startup.
func (r *TriggerRepository) FindEnabledByType(ctx context.Context, triggerType string) ([]*models.TriggerModel, error) {
	var triggers []*models.TriggerModel
	err := r.db.NewSelect().
		Model(&triggers).
		Where("type = ? AND enabled = true", triggerType).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find enabled triggers by type: %w", err)
	}
	return triggers, nil
}

// Count returns the total count of triggers
func (r *TriggerRepository) Count(ctx context.Context) (int, error) {
	count, err := r.db.NewSelect().
		Model((*models.TriggerModel)(nil)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count triggers: %w", err)
	}
	return count, nil
}

// CountByWorkflowID returns the count of triggers for a workflow
func (r *TriggerRepository) CountByWorkflowID(ctx context.Context, workflowID uuid.UUID) (int, error) {
	count, err := r.db.NewSelect().
		Model((*models.TriggerModel)(nil)).
		Where("workflow_id = ?", workflowID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count triggers by workflow ID: %w", err)
	}
	return count, nil
}

// CountByType returns the count of triggers by type
func (r *TriggerRepository) CountByType(ctx context.Context, triggerType string) (int, error) {
	count, err := r.db.NewSelect().
		Model((*models.TriggerModel)(nil)).
		Where("type = ?", triggerType).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count triggers by type: %w", err)
	}
	return count, nil
}

// Enable marks a trigger enabled
func (r *TriggerRepository) Enable(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.NewUpdate().
		Model((*models.TriggerModel)(nil)).
		Set("enabled = ?", true).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to enable trigger: %w", err)
	}
	return nil
}

// Disable marks a trigger disabled
func (r *TriggerRepository) Disable(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.NewUpdate().
		Model((*models.TriggerModel)(nil)).
		Set("enabled = ?", false).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to disable trigger: %w", err)
	}
	return nil
}

// MarkTriggered updates the last-triggered timestamp
func (r *TriggerRepository) MarkTriggered(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.NewUpdate().
		Model((*models.TriggerModel)(nil)).
		Set("last_triggered_at = ?", time.Now()).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark trigger triggered: %w", err)
	}
	return nil
}
