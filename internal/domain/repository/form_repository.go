package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/gridflow/gridflow/internal/infrastructure/storage/models"
)

// FormRepository defines the interface for form trigger and submission persistence
type FormRepository interface {
	// CreateForm creates a new form trigger
	CreateForm(ctx context.Context, form *models.FormTriggerModel) error

	// UpdateForm updates an existing form trigger
	UpdateForm(ctx context.Context, form *models.FormTriggerModel) error

	// DeleteForm deletes a form trigger
	DeleteForm(ctx context.Context, id uuid.UUID) error

	// FindFormByID retrieves a form trigger by ID
	FindFormByID(ctx context.Context, id uuid.UUID) (*models.FormTriggerModel, error)

	// FindFormByToken retrieves a form trigger by its public token
	FindFormByToken(ctx context.Context, token string) (*models.FormTriggerModel, error)

	// FindFormsByWorkflowID retrieves all form triggers for a workflow
	FindFormsByWorkflowID(ctx context.Context, workflowID uuid.UUID) ([]*models.FormTriggerModel, error)

	// CreateSubmission records a form submission
	CreateSubmission(ctx context.Context, submission *models.FormSubmissionModel) error

	// FindSubmissionsByFormID retrieves submissions for a form with pagination
	FindSubmissionsByFormID(ctx context.Context, formID uuid.UUID, limit, offset int) ([]*models.FormSubmissionModel, error)
}
