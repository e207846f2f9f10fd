package trigger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gridflow/gridflow/internal/application/engine"
	"github.com/gridflow/gridflow/internal/application/observer"
	"github.com/gridflow/gridflow/internal/domain/repository"
	storagemodels "github.com/gridflow/gridflow/internal/infrastructure/storage/models"
	"github.com/gridflow/gridflow/pkg/models"
)

// FormRegistry serves the two form-driven entry points: a trigger form that
// starts a fresh execution, and an in-flow form that resumes one paused at
// a node waiting on human input. It is a sibling of WebhookRegistry,
// addressing forms by their public token the same way webhooks are
// addressed by their trigger ID.
type FormRegistry struct {
	formRepo        repository.FormRepository
	workflowRepo    repository.WorkflowRepository
	coordinator     *engine.Coordinator
	observerManager *observer.ObserverManager
}

// FormRegistryConfig holds configuration for FormRegistry.
type FormRegistryConfig struct {
	FormRepo        repository.FormRepository
	WorkflowRepo    repository.WorkflowRepository
	Coordinator     *engine.Coordinator
	ObserverManager *observer.ObserverManager
}

// NewFormRegistry creates a new form registry.
func NewFormRegistry(cfg FormRegistryConfig) *FormRegistry {
	return &FormRegistry{
		formRepo:        cfg.FormRepo,
		workflowRepo:    cfg.WorkflowRepo,
		coordinator:     cfg.Coordinator,
		observerManager: cfg.ObserverManager,
	}
}

// GetForm retrieves a form's public definition by token, refusing closed
// forms (disabled, expired, or at its submission cap) with ErrFormClosed.
func (r *FormRegistry) GetForm(ctx context.Context, token string) (*storagemodels.FormTriggerModel, error) {
	form, err := r.formRepo.FindFormByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrFormNotFound, token)
	}
	if !form.CanAcceptSubmission(time.Now()) {
		return nil, models.ErrFormClosed
	}
	return form, nil
}

// SubmitTriggerForm handles an anonymous submission to a start-of-flow
// form: it increments the submission counter, records a FormSubmission,
// and starts a new execution of the form's workflow.
func (r *FormRegistry) SubmitTriggerForm(ctx context.Context, token string, data map[string]interface{}, submittedBy string) (*models.Execution, error) {
	form, err := r.formRepo.FindFormByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrFormNotFound, token)
	}
	if form.IsResumeForm() {
		return nil, fmt.Errorf("form %s is an in-flow form, not a trigger form", token)
	}
	if !form.CanAcceptSubmission(time.Now()) {
		return nil, models.ErrFormClosed
	}

	execution, err := r.coordinator.StartExecution(ctx, form.WorkflowID.String(), data, &engine.ExecutionOptions{
		TriggerType: models.TriggerInputTypeForm,
		TriggerID:   form.ID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start execution: %w", err)
	}

	execUUID, _ := uuid.Parse(execution.ID)
	submission := &storagemodels.FormSubmissionModel{
		FormID:      form.ID,
		ExecutionID: &execUUID,
		Data:        storagemodels.JSONBMap(data),
		SubmittedBy: submittedBy,
	}
	if err := r.formRepo.CreateSubmission(ctx, submission); err != nil {
		return execution, fmt.Errorf("execution started but failed to record submission: %w", err)
	}

	form.SubmissionCount++
	if err := r.formRepo.UpdateForm(ctx, form); err != nil {
		return execution, fmt.Errorf("execution started but failed to update submission count: %w", err)
	}

	r.notify(ctx, observer.Event{
		Type:        observer.EventTypeFormSubmitted,
		ExecutionID: execution.ID,
		WorkflowID:  execution.WorkflowID,
		Timestamp:   time.Now(),
		Status:      string(execution.Status),
		Metadata:    map[string]any{"form_id": form.ID.String()},
	})

	return execution, nil
}

// SubmitResumeForm handles a submission to an in-flow form: it resolves the
// FormTrigger configured for (workflowID, nodeID), records a FormSubmission
// tied to the execution, and resumes it. Resubmitting after the execution
// has already advanced past that wait point fails with ErrAlreadyResolved.
func (r *FormRegistry) SubmitResumeForm(ctx context.Context, executionID, nodeID string, data map[string]interface{}, submittedBy string) (*models.Execution, error) {
	execUUID, err := uuid.Parse(executionID)
	if err != nil {
		return nil, fmt.Errorf("invalid execution ID: %w", err)
	}

	execution, err := r.coordinator.ResumeExecution(ctx, executionID, map[string]interface{}{
		"form_data": data,
	})
	if err != nil {
		if coordErr, ok := asCoordinatorError(err); ok && coordErr.Kind == models.ErrNotPaused {
			return nil, fmt.Errorf("%w: %s", models.ErrAlreadyResolved, executionID)
		}
		return nil, err
	}

	workflowUUID, err := uuid.Parse(execution.WorkflowID)
	if err == nil {
		if form := r.findFormForNode(ctx, workflowUUID, nodeID); form != nil {
			submission := &storagemodels.FormSubmissionModel{
				FormID:      form.ID,
				ExecutionID: &execUUID,
				Data:        storagemodels.JSONBMap(data),
				SubmittedBy: submittedBy,
			}
			if err := r.formRepo.CreateSubmission(ctx, submission); err != nil {
				return execution, fmt.Errorf("execution resumed but failed to record submission: %w", err)
			}
		}
	}

	r.notify(ctx, observer.Event{
		Type:        observer.EventTypeFormSubmitted,
		ExecutionID: execution.ID,
		WorkflowID:  execution.WorkflowID,
		Timestamp:   time.Now(),
		Status:      string(execution.Status),
		NodeID:      &nodeID,
	})

	return execution, nil
}

func (r *FormRegistry) findFormForNode(ctx context.Context, workflowID uuid.UUID, nodeID string) *storagemodels.FormTriggerModel {
	workflowModel, err := r.workflowRepo.FindByIDWithRelations(ctx, workflowID)
	if err != nil {
		return nil
	}
	var nodeUUID uuid.UUID
	found := false
	for _, nm := range workflowModel.Nodes {
		if nm.NodeID == nodeID {
			nodeUUID, found = nm.ID, true
			break
		}
	}
	if !found {
		return nil
	}

	forms, err := r.formRepo.FindFormsByWorkflowID(ctx, workflowID)
	if err != nil {
		return nil
	}
	for _, form := range forms {
		if form.NodeID != nil && *form.NodeID == nodeUUID {
			return form
		}
	}
	return nil
}

func (r *FormRegistry) notify(ctx context.Context, event observer.Event) {
	if r.observerManager == nil {
		return
	}
	r.observerManager.Notify(ctx, event)
}

func asCoordinatorError(err error) (*models.CoordinatorError, bool) {
	var coordErr *models.CoordinatorError
	ok := errors.As(err, &coordErr)
	return coordErr, ok
}
