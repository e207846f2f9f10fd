// Package approval implements the human-in-the-loop gate that suspends a
// workflow execution until a quorum of approvers has decided, or the gate
// expires.
package approval

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/gridflow/gridflow/internal/application/engine"
	"github.com/gridflow/gridflow/internal/application/observer"
	"github.com/gridflow/gridflow/internal/domain/repository"
	storagemodels "github.com/gridflow/gridflow/internal/infrastructure/storage/models"
	"github.com/gridflow/gridflow/pkg/models"
)

// Decision is the approve/reject action an approver records.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ServiceConfig holds the collaborators Service needs.
type ServiceConfig struct {
	ApprovalRepo    repository.ApprovalRepository
	WorkflowRepo    repository.WorkflowRepository
	Coordinator     *engine.Coordinator
	ObserverManager *observer.ObserverManager
	DefaultTimeout  time.Duration // used when a node omits its own timeout_seconds
}

// Service implements engine.PauseHandler for reason=approval pauses and
// exposes the approval-resolution path the REST API drives.
type Service struct {
	approvalRepo    repository.ApprovalRepository
	workflowRepo    repository.WorkflowRepository
	coordinator     *engine.Coordinator
	observerManager *observer.ObserverManager
	defaultTimeout  time.Duration
}

// NewService creates a new approval service.
func NewService(cfg ServiceConfig) *Service {
	timeout := cfg.DefaultTimeout
	if timeout <= 0 {
		timeout = 72 * time.Hour
	}
	return &Service{
		approvalRepo:    cfg.ApprovalRepo,
		workflowRepo:    cfg.WorkflowRepo,
		coordinator:     cfg.Coordinator,
		observerManager: cfg.ObserverManager,
		defaultTimeout:  timeout,
	}
}

// OnPause implements engine.PauseHandler. It ignores pauses whose reason is
// not the approval gate's, so it can be combined with other PauseHandlers
// via engine.FanoutPauseHandler.
func (s *Service) OnPause(ctx context.Context, execution *models.Execution, nodeID, reason, resumeCondition string) {
	if reason != models.PauseReasonApproval {
		return
	}
	if err := s.RequestApproval(ctx, execution, nodeID); err != nil {
		log.Printf("approval: failed to create gate for execution %s node %s: %v", execution.ID, nodeID, err)
	}
}

// RequestApproval creates the pending ExecutionApproval row for a paused
// node, reading the approver list/mode/timeout from the node's own config
// so the gate's shape is authored in the workflow, not hardcoded here.
func (s *Service) RequestApproval(ctx context.Context, execution *models.Execution, nodeID string) error {
	execUUID, err := uuid.Parse(execution.ID)
	if err != nil {
		return fmt.Errorf("invalid execution ID: %w", err)
	}
	workflowUUID, err := uuid.Parse(execution.WorkflowID)
	if err != nil {
		return fmt.Errorf("invalid workflow ID: %w", err)
	}

	workflowModel, err := s.workflowRepo.FindByIDWithRelations(ctx, workflowUUID)
	if err != nil {
		return fmt.Errorf("failed to load workflow: %w", err)
	}

	var nodeModel *storagemodels.NodeModel
	for _, nm := range workflowModel.Nodes {
		if nm.NodeID == nodeID {
			nodeModel = nm
			break
		}
	}
	if nodeModel == nil {
		return fmt.Errorf("node %s not found in workflow %s", nodeID, execution.WorkflowID)
	}

	if existing, err := s.approvalRepo.FindByExecutionAndNode(ctx, execUUID, nodeModel.ID); err == nil && existing != nil && existing.IsPending() {
		return nil // already gated, e.g. a duplicate pause notification
	}

	cfg := nodeModel.Config

	mode := models.ApprovalModeAny
	if m, ok := cfg["mode"].(string); ok && m != "" {
		mode = models.ApprovalMode(m)
	}

	var approvers storagemodels.StringArray
	if raw, ok := cfg["approvers"].([]interface{}); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				approvers = append(approvers, s)
			}
		}
	}
	if len(approvers) == 0 {
		return fmt.Errorf("approval node %s has no configured approvers", nodeID)
	}

	message, _ := cfg["message"].(string)

	timeout := s.defaultTimeout
	if secs, ok := cfg["timeout_seconds"]; ok {
		switch v := secs.(type) {
		case float64:
			timeout = time.Duration(v) * time.Second
		case int:
			timeout = time.Duration(v) * time.Second
		case int64:
			timeout = time.Duration(v) * time.Second
		}
	}
	var expiresAt *time.Time
	if timeout > 0 {
		t := time.Now().Add(timeout)
		expiresAt = &t
	}

	approval := &storagemodels.ExecutionApprovalModel{
		ExecutionID: execUUID,
		NodeID:      nodeModel.ID,
		Status:      string(models.ApprovalStatusPending),
		Mode:        string(mode),
		Approvers:   approvers,
		Message:     message,
		ExpiresAt:   expiresAt,
	}

	if err := s.approvalRepo.Create(ctx, approval); err != nil {
		return fmt.Errorf("failed to create approval gate: %w", err)
	}

	s.notify(ctx, observer.Event{
		Type:        observer.EventTypeApprovalRequested,
		ExecutionID: execution.ID,
		WorkflowID:  execution.WorkflowID,
		Timestamp:   time.Now(),
		Status:      string(models.ApprovalStatusPending),
		NodeID:      &nodeID,
		Message:     &message,
		Metadata: map[string]any{
			"approval_id": approval.ID.String(),
			"mode":        string(mode),
			"approvers":   []string(approvers),
		},
	})

	return nil
}

// RecordAction records one approver's decision and, if it resolves the
// quorum, transitions the gate and resumes the execution. A duplicate vote
// from the same user fails with models.ErrAlreadyActed.
func (s *Service) RecordAction(ctx context.Context, approvalID uuid.UUID, userID string, decision Decision, comment string) (*storagemodels.ExecutionApprovalModel, error) {
	approval, err := s.approvalRepo.FindByID(ctx, approvalID)
	if err != nil {
		return nil, fmt.Errorf("failed to load approval: %w", err)
	}
	if !approval.IsPending() {
		return nil, &models.CoordinatorError{ExecutionID: approval.ExecutionID.String(), NodeID: approval.NodeID.String(), Kind: models.ErrAlreadyTerminal}
	}

	for _, existing := range findActionsOrEmpty(ctx, s.approvalRepo, approvalID) {
		if existing.UserID == userID {
			return nil, &models.CoordinatorError{ExecutionID: approval.ExecutionID.String(), NodeID: approval.NodeID.String(), Kind: models.ErrAlreadyActed}
		}
	}

	action := &storagemodels.ApprovalActionModel{
		ApprovalID: approvalID,
		UserID:     userID,
		Decision:   string(decision),
		Comment:    comment,
	}
	if err := s.approvalRepo.RecordAction(ctx, action); err != nil {
		return nil, fmt.Errorf("failed to record action: %w", err)
	}

	switch decision {
	case DecisionApprove:
		approval.ApprovedCount++
	case DecisionReject:
		approval.RejectedCount++
	default:
		return nil, fmt.Errorf("invalid decision %q", decision)
	}

	domainApproval := approvalModelToDomain(approval)
	resolved := domainApproval.Resolve()
	if resolved == models.ApprovalStatusPending {
		if err := s.approvalRepo.UpdateStatus(ctx, approval); err != nil {
			return nil, fmt.Errorf("failed to update approval counters: %w", err)
		}
		return approval, nil
	}

	now := time.Now()
	approval.Status = string(resolved)
	approval.ResolvedAt = &now
	if err := s.approvalRepo.UpdateStatus(ctx, approval); err != nil {
		return nil, fmt.Errorf("failed to resolve approval: %w", err)
	}

	s.notify(ctx, observer.Event{
		Type:        observer.EventTypeApprovalResolved,
		ExecutionID: approval.ExecutionID.String(),
		Timestamp:   now,
		Status:      approval.Status,
		Metadata: map[string]any{
			"approval_id":    approval.ID.String(),
			"approved_count": approval.ApprovedCount,
			"rejected_count": approval.RejectedCount,
		},
	})

	s.resume(ctx, approval.ExecutionID.String(), resolved, approval)

	return approval, nil
}

// resolveExpired transitions a single pending approval to expired and
// resumes its execution with {decision: expired}. Used by the Sweeper.
func (s *Service) resolveExpired(ctx context.Context, approval *storagemodels.ExecutionApprovalModel) {
	now := time.Now()
	approval.Status = string(models.ApprovalStatusExpired)
	approval.ResolvedAt = &now
	if err := s.approvalRepo.UpdateStatus(ctx, approval); err != nil {
		log.Printf("approval: failed to expire gate %s: %v", approval.ID, err)
		return
	}

	s.notify(ctx, observer.Event{
		Type:        observer.EventTypeApprovalResolved,
		ExecutionID: approval.ExecutionID.String(),
		Timestamp:   now,
		Status:      string(models.ApprovalStatusExpired),
		Metadata:    map[string]any{"approval_id": approval.ID.String()},
	})

	s.resume(ctx, approval.ExecutionID.String(), models.ApprovalStatusExpired, approval)
}

func (s *Service) resume(ctx context.Context, executionID string, resolved models.ApprovalStatus, approval *storagemodels.ExecutionApprovalModel) {
	if s.coordinator == nil {
		return
	}
	resumeData := map[string]interface{}{
		"decision":       string(resolved),
		"approved_count": approval.ApprovedCount,
		"rejected_count": approval.RejectedCount,
	}
	if _, err := s.coordinator.ResumeExecution(ctx, executionID, resumeData); err != nil {
		log.Printf("approval: failed to resume execution %s: %v", executionID, err)
	}
}

func (s *Service) notify(ctx context.Context, event observer.Event) {
	if s.observerManager == nil {
		return
	}
	s.observerManager.Notify(ctx, event)
}

func findActionsOrEmpty(ctx context.Context, repo repository.ApprovalRepository, approvalID uuid.UUID) []*storagemodels.ApprovalActionModel {
	actions, err := repo.FindActionsByApprovalID(ctx, approvalID)
	if err != nil {
		return nil
	}
	return actions
}

func approvalModelToDomain(am *storagemodels.ExecutionApprovalModel) *models.ExecutionApproval {
	return &models.ExecutionApproval{
		ID:            am.ID.String(),
		ExecutionID:   am.ExecutionID.String(),
		NodeID:        am.NodeID.String(),
		Status:        models.ApprovalStatus(am.Status),
		Mode:          models.ApprovalMode(am.Mode),
		Approvers:     []string(am.Approvers),
		ApprovedCount: am.ApprovedCount,
		RejectedCount: am.RejectedCount,
		Message:       am.Message,
		ExpiresAt:     am.ExpiresAt,
		CreatedAt:     am.CreatedAt,
		ResolvedAt:    am.ResolvedAt,
	}
}
