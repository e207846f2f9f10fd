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

// Ensure ApprovalRepository implements the interface
var _ repository.ApprovalRepository = (*ApprovalRepository)(nil)

// ApprovalRepository implements repository.ApprovalRepository using Bun ORM
type ApprovalRepository struct {
	db *bun.DB
}

// NewApprovalRepository creates a new ApprovalRepository
func NewApprovalRepository(db *bun.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

// Create creates a new approval gate
func (r *ApprovalRepository) Create(ctx context.Context, approval *models.ExecutionApprovalModel) error {
	if approval.ID == uuid.Nil {
		approval.ID = uuid.New()
	}
	_, err := r.db.NewInsert().Model(approval).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create approval: %w", err)
	}
	return nil
}

// FindByID retrieves an approval gate by ID
func (r *ApprovalRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.ExecutionApprovalModel, error) {
	approval := &models.ExecutionApprovalModel{}
	err := r.db.NewSelect().
		Model(approval).
		Where("execution_approval.id = ?", id).
		Relation("Actions").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("approval not found: %s", id)
		}
		return nil, fmt.Errorf("failed to find approval: %w", err)
	}
	return approval, nil
}

// FindByExecutionAndNode retrieves the approval gate for a node within an execution
func (r *ApprovalRepository) FindByExecutionAndNode(ctx context.Context, executionID, nodeID uuid.UUID) (*models.ExecutionApprovalModel, error) {
	approval := &models.ExecutionApprovalModel{}
	err := r.db.NewSelect().
		Model(approval).
		Where("execution_id = ? AND node_id = ?", executionID, nodeID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("approval not found for execution %s node %s", executionID, nodeID)
		}
		return nil, fmt.Errorf("failed to find approval: %w", err)
	}
	return approval, nil
}

// FindPending retrieves all pending approval gates, for the expiry sweeper
func (r *ApprovalRepository) FindPending(ctx context.Context) ([]*models.ExecutionApprovalModel, error) {
	var approvals []*models.ExecutionApprovalModel
	err := r.db.NewSelect().
		Model(&approvals).
		Where("status = ?", "pending").
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find pending approvals: %w", err)
	}
	return approvals, nil
}

// FindExpiredPending retrieves pending gates whose ExpiresAt has passed
func (r *ApprovalRepository) FindExpiredPending(ctx context.Context) ([]*models.ExecutionApprovalModel, error) {
	var approvals []*models.ExecutionApprovalModel
	err := r.db.NewSelect().
		Model(&approvals).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < now()", "pending").
		Order("expires_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired approvals: %w", err)
	}
	return approvals, nil
}

// UpdateStatus transitions an approval gate's status and counters
func (r *ApprovalRepository) UpdateStatus(ctx context.Context, approval *models.ExecutionApprovalModel) error {
	_, err := r.db.NewUpdate().
		Model(approval).
		Column("status", "approved_count", "rejected_count", "resolved_at").
		Where("id = ?", approval.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update approval status: %w", err)
	}
	return nil
}

// RecordAction records an approver's decision, enforcing the unique
// (approval_id, user_id) constraint so a user cannot act twice.
func (r *ApprovalRepository) RecordAction(ctx context.Context, action *models.ApprovalActionModel) error {
	if action.ID == uuid.Nil {
		action.ID = uuid.New()
	}
	_, err := r.db.NewInsert().Model(action).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to record approval action: %w", err)
	}
	return nil
}

// FindActionsByApprovalID retrieves every recorded action for a gate
func (r *ApprovalRepository) FindActionsByApprovalID(ctx context.Context, approvalID uuid.UUID) ([]*models.ApprovalActionModel, error) {
	var actions []*models.ApprovalActionModel
	err := r.db.NewSelect().
		Model(&actions).
		Where("approval_id = ?", approvalID).
		Order("acted_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find approval actions: %w", err)
	}
	return actions, nil
}
