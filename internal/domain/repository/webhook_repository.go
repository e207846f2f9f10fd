package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/gridflow/gridflow/internal/infrastructure/storage/models"
)

// WebhookRepository defines the interface for persisted webhook endpoint configuration
type WebhookRepository interface {
	// Create creates a new webhook
	Create(ctx context.Context, webhook *models.WebhookModel) error

	// Update updates an existing webhook
	Update(ctx context.Context, webhook *models.WebhookModel) error

	// Delete deletes a webhook
	Delete(ctx context.Context, id uuid.UUID) error

	// FindByID retrieves a webhook by ID
	FindByID(ctx context.Context, id uuid.UUID) (*models.WebhookModel, error)

	// FindByPathAndMethod retrieves the webhook registered for a path/method pair
	FindByPathAndMethod(ctx context.Context, path, method string) (*models.WebhookModel, error)

	// FindByWorkflowID retrieves all webhooks for a workflow
	FindByWorkflowID(ctx context.Context, workflowID uuid.UUID) ([]*models.WebhookModel, error)

	// FindEnabled retrieves every enabled webhook, used to rebuild the HTTP
	// route table on startup
	FindEnabled(ctx context.Context) ([]*models.WebhookModel, error)
}
