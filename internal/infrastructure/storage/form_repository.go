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

// Ensure FormRepository implements the interface
var _ repository.FormRepository = (*FormRepository)(nil)

// FormRepository implements repository.FormRepository using Bun ORM
type FormRepository struct {
	db *bun.DB
}

// NewFormRepository creates a new FormRepository
func NewFormRepository(db *bun.DB) *FormRepository {
	return &FormRepository{db: db}
}

// CreateForm creates a new form trigger
func (r *FormRepository) CreateForm(ctx context.Context, form *models.FormTriggerModel) error {
	if form.ID == uuid.Nil {
		form.ID = uuid.New()
	}
	_, err := r.db.NewInsert().Model(form).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create form: %w", err)
	}
	return nil
}

// UpdateForm updates an existing form trigger
func (r *FormRepository) UpdateForm(ctx context.Context, form *models.FormTriggerModel) error {
	_, err := r.db.NewUpdate().
		Model(form).
		Column("title", "schema", "enabled", "updated_at").
		Where("id = ?", form.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update form: %w", err)
	}
	return nil
}

// DeleteForm deletes a form trigger
func (r *FormRepository) DeleteForm(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*models.FormTriggerModel)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete form: %w", err)
	}
	return nil
}

// FindFormByID retrieves a form trigger by ID
func (r *FormRepository) FindFormByID(ctx context.Context, id uuid.UUID) (*models.FormTriggerModel, error) {
	form := &models.FormTriggerModel{}
	err := r.db.NewSelect().
		Model(form).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("form not found: %s", id)
		}
		return nil, fmt.Errorf("failed to find form: %w", err)
	}
	return form, nil
}

// FindFormByToken retrieves a form trigger by its public token
func (r *FormRepository) FindFormByToken(ctx context.Context, token string) (*models.FormTriggerModel, error) {
	form := &models.FormTriggerModel{}
	err := r.db.NewSelect().
		Model(form).
		Where("token = ?", token).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("form not found for token")
		}
		return nil, fmt.Errorf("failed to find form: %w", err)
	}
	return form, nil
}

// FindFormsByWorkflowID retrieves all form triggers for a workflow
func (r *FormRepository) FindFormsByWorkflowID(ctx context.Context, workflowID uuid.UUID) ([]*models.FormTriggerModel, error) {
	var forms []*models.FormTriggerModel
	err := r.db.NewSelect().
		Model(&forms).
		Where("workflow_id = ?", workflowID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find forms by workflow ID: %w", err)
	}
	return forms, nil
}

// CreateSubmission records a form submission
func (r *FormRepository) CreateSubmission(ctx context.Context, submission *models.FormSubmissionModel) error {
	if submission.ID == uuid.Nil {
		submission.ID = uuid.New()
	}
	_, err := r.db.NewInsert().Model(submission).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create form submission: %w", err)
	}
	return nil
}

// FindSubmissionsByFormID retrieves submissions for a form with pagination
func (r *FormRepository) FindSubmissionsByFormID(ctx context.Context, formID uuid.UUID, limit, offset int) ([]*models.FormSubmissionModel, error) {
	var submissions []*models.FormSubmissionModel
	err := r.db.NewSelect().
		Model(&submissions).
		Where("form_id = ?", formID).
		Order("submitted_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find form submissions: %w", err)
	}
	return submissions, nil
}
