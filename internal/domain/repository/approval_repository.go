package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/gridflow/gridflow/internal/infrastructure/storage/models"
)

// ApprovalRepository defines the interface for execution approval gate persistence
type ApprovalRepository interface {
	// Create creates a new approval gate
	Create(ctx context.Context, approval *models.ExecutionApprovalModel) error

	// FindByID retrieves an approval gate by ID
	FindByID(ctx context.Context, id uuid.UUID) (*models.ExecutionApprovalModel, error)

	// FindByExecutionAndNode retrieves the approval gate for a node within an execution
	FindByExecutionAndNode(ctx context.Context, executionID, nodeID uuid.UUID) (*models.ExecutionApprovalModel, error)

	// FindPending retrieves all pending approval gates, for the expiry sweeper
	FindPending(ctx context.Context) ([]*models.ExecutionApprovalModel, error)

	// FindExpiredPending retrieves pending gates whose ExpiresAt has passed
	FindExpiredPending(ctx context.Context) ([]*models.ExecutionApprovalModel, error)

	// UpdateStatus transitions an approval gate's status and counters
	UpdateStatus(ctx context.Context, approval *models.ExecutionApprovalModel) error

	// RecordAction records an approver's decision, enforcing the unique
	// (approval_id, user_id) constraint so a user cannot act twice
	RecordAction(ctx context.Context, action *models.ApprovalActionModel) error

	// FindActionsByApprovalID retrieves every recorded action for a gate
	FindActionsByApprovalID(ctx context.Context, approvalID uuid.UUID) ([]*models.ApprovalActionModel, error)
}
