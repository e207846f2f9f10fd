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

// Ensure WebhookRepository implements the interface
var _ repository.WebhookRepository = (*WebhookRepository)(nil)

// WebhookRepository implements repository.WebhookRepository using Bun ORM
type WebhookRepository struct {
	db *bun.DB
}

// NewWebhookRepository creates a new WebhookRepository
func NewWebhookRepository(db *bun.DB) *WebhookRepository {
	return &WebhookRepository{db: db}
}

// Create creates a new webhook
func (r *WebhookRepository) Create(ctx context.Context, webhook *models.WebhookModel) error {
	if webhook.ID == uuid.Nil {
		webhook.ID = uuid.New()
	}
	_, err := r.db.NewInsert().Model(webhook).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create webhook: %w", err)
	}
	return nil
}

// Update updates an existing webhook
func (r *WebhookRepository) Update(ctx context.Context, webhook *models.WebhookModel) error {
	_, err := r.db.NewUpdate().
		Model(webhook).
		Column("path", "method", "auth_type", "secret", "ip_whitelist", "enabled", "updated_at").
		Where("id = ?", webhook.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update webhook: %w", err)
	}
	return nil
}

// Delete deletes a webhook
func (r *WebhookRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*models.WebhookModel)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	return nil
}

// FindByID retrieves a webhook by ID
func (r *WebhookRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.WebhookModel, error) {
	webhook := &models.WebhookModel{}
	err := r.db.NewSelect().
		Model(webhook).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("webhook not found: %s", id)
		}
		return nil, fmt.Errorf("failed to find webhook: %w", err)
	}
	return webhook, nil
}

// FindByPathAndMethod retrieves the webhook registered for a path/method pair
func (r *WebhookRepository) FindByPathAndMethod(ctx context.Context, path, method string) (*models.WebhookModel, error) {
	webhook := &models.WebhookModel{}
	err := r.db.NewSelect().
		Model(webhook).
		Where("path = ? AND method = ?", path, method).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("webhook not found for %s %s", method, path)
		}
		return nil, fmt.Errorf("failed to find webhook: %w", err)
	}
	return webhook, nil
}

// FindByWorkflowID retrieves all webhooks for a workflow
func (r *WebhookRepository) FindByWorkflowID(ctx context.Context, workflowID uuid.UUID) ([]*models.WebhookModel, error) {
	var webhooks []*models.WebhookModel
	err := r.db.NewSelect().
		Model(&webhooks).
		Where("workflow_id = ?", workflowID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find webhooks by workflow ID: %w", err)
	}
	return webhooks, nil
}

// FindEnabled retrieves every enabled webhook, used to rebuild the HTTP
// route table on startup.
func (r *WebhookRepository) FindEnabled(ctx context.Context) ([]*models.WebhookModel, error) {
	var webhooks []*models.WebhookModel
	err := r.db.NewSelect().
		Model(&webhooks).
		Where("enabled = true").
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find enabled webhooks: %w", err)
	}
	return webhooks, nil
}
