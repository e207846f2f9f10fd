package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/gridflow/gridflow/internal/infrastructure/storage/models"
)

// ExecutionStatistics summarizes executions over a time window, optionally
// scoped to a single workflow.
type ExecutionStatistics struct {
	TotalExecutions int
	CompletedCount  int
	FailedCount     int
	CancelledCount  int
	RunningCount    int
	PendingCount    int
	SuccessRate     float64
	FailureRate     float64
	AverageDuration *time.Duration
}

// ExecutionRepository defines the interface for execution persistence
type ExecutionRepository interface {
	// Create creates a new execution
	Create(ctx context.Context, execution *models.ExecutionModel) error

	// Update updates an existing execution and its node executions
	Update(ctx context.Context, execution *models.ExecutionModel) error

	// Delete deletes an execution and its node executions
	Delete(ctx context.Context, id uuid.UUID) error

	// FindByID retrieves an execution by ID
	FindByID(ctx context.Context, id uuid.UUID) (*models.ExecutionModel, error)

	// FindByIDWithRelations retrieves an execution with all its node executions
	FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*models.ExecutionModel, error)

	// FindByWorkflowID retrieves executions for a workflow with pagination
	FindByWorkflowID(ctx context.Context, workflowID uuid.UUID, limit, offset int) ([]*models.ExecutionModel, error)

	// FindByStatus retrieves executions by status with pagination
	FindByStatus(ctx context.Context, status string, limit, offset int) ([]*models.ExecutionModel, error)

	// FindAll retrieves all executions with pagination
	FindAll(ctx context.Context, limit, offset int) ([]*models.ExecutionModel, error)

	// FindRunning retrieves all running executions
	FindRunning(ctx context.Context) ([]*models.ExecutionModel, error)

	// Count returns the total count of executions
	Count(ctx context.Context) (int, error)

	// CountByWorkflowID returns the count of executions for a workflow
	CountByWorkflowID(ctx context.Context, workflowID uuid.UUID) (int, error)

	// CountByStatus returns the count of executions by status
	CountByStatus(ctx context.Context, status string) (int, error)

	// CreateNodeExecution creates a new node execution
	CreateNodeExecution(ctx context.Context, nodeExecution *models.NodeExecutionModel) error

	// UpdateNodeExecution updates an existing node execution
	UpdateNodeExecution(ctx context.Context, nodeExecution *models.NodeExecutionModel) error

	// DeleteNodeExecution deletes a node execution
	DeleteNodeExecution(ctx context.Context, id uuid.UUID) error

	// FindNodeExecutionByID retrieves a node execution by ID
	FindNodeExecutionByID(ctx context.Context, id uuid.UUID) (*models.NodeExecutionModel, error)

	// FindNodeExecutionsByExecutionID retrieves all node executions for an execution, ordered wave ASC then created_at ASC
	FindNodeExecutionsByExecutionID(ctx context.Context, executionID uuid.UUID) ([]*models.NodeExecutionModel, error)

	// FindNodeExecutionsByWave retrieves node executions by wave number
	FindNodeExecutionsByWave(ctx context.Context, executionID uuid.UUID, wave int) ([]*models.NodeExecutionModel, error)

	// FindNodeExecutionsByStatus retrieves node executions by status
	FindNodeExecutionsByStatus(ctx context.Context, executionID uuid.UUID, status string) ([]*models.NodeExecutionModel, error)

	// GetStatistics retrieves execution statistics over [from, to], optionally scoped to a workflow
	GetStatistics(ctx context.Context, workflowID *uuid.UUID, from, to time.Time) (*ExecutionStatistics, error)

	// CompareAndSetStatus atomically transitions an execution from expectedStatus
	// to newStatus, applying mutate to the in-memory model before the single
	// UPDATE ... WHERE id = ? AND status = ?. Returns ErrAlreadyTerminal-class
	// errors (via the caller checking RowsAffected) when the expected status no
	// longer holds, preventing two schedulers from racing the same transition.
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, expectedStatus, newStatus string, mutate func(*models.ExecutionModel)) error

	// UpsertNodeExecution inserts a node execution or updates it in place when
	// one already exists for (execution_id, node_id), keyed by the unique index
	// on NodeExecutionModel.
	UpsertNodeExecution(ctx context.Context, nodeExecution *models.NodeExecutionModel) error

	// FindTerminalOlderThan pages through executions in a terminal status
	// (completed, failed, cancelled) started before cutoff, oldest first, for
	// housekeeping archival/deletion.
	FindTerminalOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*models.ExecutionModel, error)

	// ArchiveAndDelete copies the given executions and their node executions
	// into the execution_history/node_execution_history tables, then deletes
	// them from the live tables, all in one transaction. Returns the number
	// of executions actually archived (rows already gone are skipped, not
	// an error).
	ArchiveAndDelete(ctx context.Context, ids []uuid.UUID) (int, error)

	// DeleteByIDs deletes the given executions and their node executions
	// without archiving them. Returns the number of executions deleted.
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int, error)
}
