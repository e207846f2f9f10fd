package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gridflow/gridflow/internal/application/observer"
	"github.com/gridflow/gridflow/internal/domain/repository"
	storagemodels "github.com/gridflow/gridflow/internal/infrastructure/storage/models"
	"github.com/gridflow/gridflow/pkg/executor"
	"github.com/gridflow/gridflow/pkg/models"
)

// PauseHandler is notified whenever a run suspends, so a subsystem such as
// approval gating or form collection can set up whatever external wait it
// needs before the run returns control to its caller.
type PauseHandler interface {
	OnPause(ctx context.Context, execution *models.Execution, nodeID, reason, resumeCondition string)
}

// FanoutPauseHandler dispatches a pause notification to every handler in
// the slice, so separate subsystems (approval gating, form collection) can
// each register independently instead of one of them having to know about
// the other's pause reasons.
type FanoutPauseHandler []PauseHandler

func (f FanoutPauseHandler) OnPause(ctx context.Context, execution *models.Execution, nodeID, reason, resumeCondition string) {
	for _, h := range f {
		if h != nil {
			h.OnPause(ctx, execution, nodeID, reason, resumeCondition)
		}
	}
}

// Coordinator runs workflow executions as durable, resumable state
// machines. Where ExecutionManager drives DAGExecutor.Execute synchronously
// from a single in-memory ExecutionState, Coordinator persists a
// NodeExecution row per dispatched node via UpsertNodeExecution and can
// suspend a run at a wave boundary when a handler returns a Pause result,
// resuming later from ResumeExecution without replaying completed work.
type Coordinator struct {
	executorManager executor.Manager
	workflowRepo    repository.WorkflowRepository
	executionRepo   repository.ExecutionRepository
	eventRepo       repository.EventRepository
	nodeExecutor    *NodeExecutor
	dagExecutor     *DAGExecutor
	observerManager *observer.ObserverManager

	workers chan struct{} // bounds concurrent runs; nil = unlimited

	mu          sync.Mutex
	cancelFuncs map[string]context.CancelFunc

	pauseHandler PauseHandler
}

// NewCoordinator creates a new execution coordinator. workerPoolSize bounds
// the number of executions run concurrently; 0 or negative means unlimited.
func NewCoordinator(
	executorManager executor.Manager,
	workflowRepo repository.WorkflowRepository,
	executionRepo repository.ExecutionRepository,
	eventRepo repository.EventRepository,
	observerManager *observer.ObserverManager,
	workerPoolSize int,
) *Coordinator {
	nodeExecutor := NewNodeExecutor(executorManager)
	dagExecutor := NewDAGExecutor(nodeExecutor, observerManager)

	var workers chan struct{}
	if workerPoolSize > 0 {
		workers = make(chan struct{}, workerPoolSize)
	}

	return &Coordinator{
		executorManager: executorManager,
		workflowRepo:    workflowRepo,
		executionRepo:   executionRepo,
		eventRepo:       eventRepo,
		nodeExecutor:    nodeExecutor,
		dagExecutor:     dagExecutor,
		observerManager: observerManager,
		workers:         workers,
		cancelFuncs:     make(map[string]context.CancelFunc),
	}
}

// SetPauseHandler registers the hook invoked whenever an execution pauses.
func (c *Coordinator) SetPauseHandler(h PauseHandler) {
	c.pauseHandler = h
}

func (c *Coordinator) notify(ctx context.Context, event observer.Event) {
	if c.observerManager == nil {
		return
	}
	c.observerManager.Notify(ctx, event)
}

// mergeVariables merges workflow and execution variables, with execution
// variables taking precedence.
func mergeVariables(workflowVars, executionVars map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(workflowVars)+len(executionVars))
	for k, v := range workflowVars {
		merged[k] = v
	}
	for k, v := range executionVars {
		merged[k] = v
	}
	return merged
}

// StartExecution creates a new execution in pending status, persists it,
// and schedules its first wave asynchronously. It returns as soon as the
// execution record exists; callers poll or observe events for completion.
func (c *Coordinator) StartExecution(
	ctx context.Context,
	workflowID string,
	input map[string]interface{},
	opts *ExecutionOptions,
) (*models.Execution, error) {
	if opts == nil {
		opts = DefaultExecutionOptions()
	}

	workflowUUID, err := uuid.Parse(workflowID)
	if err != nil {
		return nil, fmt.Errorf("invalid workflow ID: %w", err)
	}

	workflowModel, err := c.workflowRepo.FindByIDWithRelations(ctx, workflowUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow: %w", err)
	}
	workflow := WorkflowModelToDomain(workflowModel)

	execution := &models.Execution{
		ID:             uuid.New().String(),
		WorkflowID:     workflow.ID,
		WorkflowName:   workflow.Name,
		Status:         models.ExecutionStatusPending,
		Input:          input,
		Variables:      mergeVariables(workflow.Variables, opts.Variables),
		TriggerType:    opts.TriggerType,
		TriggeredBy:    opts.TriggerID,
		TriggerContext: opts.TriggerContext,
		RetryOf:        opts.RetryOf,
		RetryCount:     opts.RetryCount,
		MaxRetries:     opts.MaxRetries,
	}

	executionModel := ExecutionDomainToModel(execution)
	if err := c.executionRepo.Create(ctx, executionModel); err != nil {
		return nil, fmt.Errorf("failed to create execution: %w", err)
	}
	execution.ID = executionModel.ID.String()

	runCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancelFuncs[execution.ID] = cancel
	c.mu.Unlock()

	execState := NewExecutionState(execution.ID, workflow.ID, workflow, input, execution.Variables)

	go c.run(runCtx, execution.ID, workflowModel, workflow, execState, opts, 0)

	return execution, nil
}

// ResumeExecution rebuilds execution state from persisted node executions
// and resumes a paused run from the wave following the one that paused it.
func (c *Coordinator) ResumeExecution(ctx context.Context, executionID string, resumeData map[string]interface{}) (*models.Execution, error) {
	execUUID, err := uuid.Parse(executionID)
	if err != nil {
		return nil, fmt.Errorf("invalid execution ID: %w", err)
	}

	executionModel, err := c.executionRepo.FindByID(ctx, execUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to load execution: %w", err)
	}

	if !executionModel.IsPaused() || executionModel.WaitingNodeID == nil {
		return nil, &models.CoordinatorError{ExecutionID: executionID, Kind: models.ErrNotPaused}
	}

	workflowModel, err := c.workflowRepo.FindByIDWithRelations(ctx, executionModel.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow: %w", err)
	}
	workflow := WorkflowModelToDomain(workflowModel)

	_, uuidToLogical := nodeIDMaps(workflowModel)

	waitingNodeID, ok := uuidToLogical[executionModel.WaitingNodeID.String()]
	if !ok {
		return nil, &models.CoordinatorError{ExecutionID: executionID, Kind: models.ErrWaitMismatch, Err: fmt.Errorf("waiting node %s no longer exists in workflow", executionModel.WaitingNodeID)}
	}

	nodeExecutions, err := c.executionRepo.FindNodeExecutionsByExecutionID(ctx, execUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to load node executions: %w", err)
	}

	execState := NewExecutionState(executionID, workflow.ID, workflow, executionModel.InputData, executionModel.Variables)
	maxWave := 0
	for _, ne := range nodeExecutions {
		logicalID, ok := uuidToLogical[ne.NodeID.String()]
		if !ok {
			continue
		}
		if ne.Wave > maxWave {
			maxWave = ne.Wave
		}

		switch {
		case logicalID == waitingNodeID:
			execState.SetNodeStatus(logicalID, models.NodeExecutionStatusCompleted)
			execState.SetNodeOutput(logicalID, map[string]interface{}(resumeData))
		case ne.IsCompleted():
			execState.SetNodeStatus(logicalID, models.NodeExecutionStatusCompleted)
			execState.SetNodeOutput(logicalID, map[string]interface{}(ne.OutputData))
		case ne.IsSkipped():
			execState.SetNodeStatus(logicalID, models.NodeExecutionStatusSkipped)
		case ne.IsFailed():
			execState.SetNodeStatus(logicalID, models.NodeExecutionStatusFailed)
		}
	}

	err = c.executionRepo.CompareAndSetStatus(ctx, execUUID, "paused", "running", func(em *storagemodels.ExecutionModel) {
		em.MarkResumed()
	})
	if err != nil {
		return nil, &models.CoordinatorError{ExecutionID: executionID, Kind: models.ErrNotPaused, Err: err}
	}

	execution := ExecutionModelToDomain(executionModel)
	execution.Status = models.ExecutionStatusRunning

	c.notify(ctx, observer.Event{
		Type:        observer.EventTypeExecutionResumed,
		ExecutionID: executionID,
		WorkflowID:  workflow.ID,
		Timestamp:   time.Now(),
		Status:      string(execution.Status),
	})

	runCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancelFuncs[executionID] = cancel
	c.mu.Unlock()

	opts := DefaultExecutionOptions()

	go c.run(runCtx, executionID, workflowModel, workflow, execState, opts, maxWave+1)

	return execution, nil
}

// CancelExecution transitions a running or paused execution to cancelled
// and signals its in-flight goroutine (if any) via its cancel function.
func (c *Coordinator) CancelExecution(ctx context.Context, executionID, reason, cancelledBy string) (*models.Execution, error) {
	execUUID, err := uuid.Parse(executionID)
	if err != nil {
		return nil, fmt.Errorf("invalid execution ID: %w", err)
	}

	executionModel, err := c.executionRepo.FindByID(ctx, execUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to load execution: %w", err)
	}

	if executionModel.IsTerminal() {
		return nil, &models.CoordinatorError{ExecutionID: executionID, Kind: models.ErrAlreadyTerminal}
	}

	prevStatus := executionModel.Status
	err = c.executionRepo.CompareAndSetStatus(ctx, execUUID, prevStatus, "cancelled", func(em *storagemodels.ExecutionModel) {
		em.CancelReason = reason
		em.CancelledBy = cancelledBy
		em.MarkCancelled()
	})
	if err != nil {
		return nil, &models.CoordinatorError{ExecutionID: executionID, Kind: models.ErrAlreadyTerminal, Err: err}
	}

	c.mu.Lock()
	if cancel, ok := c.cancelFuncs[executionID]; ok {
		cancel()
		delete(c.cancelFuncs, executionID)
	}
	c.mu.Unlock()

	c.notify(ctx, observer.Event{
		Type:        observer.EventTypeExecutionCancelled,
		ExecutionID: executionID,
		WorkflowID:  executionModel.WorkflowID.String(),
		Timestamp:   time.Now(),
		Status:      "cancelled",
		Message:     ptrString(reason),
	})

	executionModel.CancelReason = reason
	executionModel.CancelledBy = cancelledBy
	executionModel.Status = "cancelled"
	return ExecutionModelToDomain(executionModel), nil
}

// RetryExecution starts a fresh execution chained to a failed or cancelled
// one via RetryOf, refusing once MaxRetries is exhausted.
func (c *Coordinator) RetryExecution(ctx context.Context, executionID string) (*models.Execution, error) {
	execUUID, err := uuid.Parse(executionID)
	if err != nil {
		return nil, fmt.Errorf("invalid execution ID: %w", err)
	}

	executionModel, err := c.executionRepo.FindByID(ctx, execUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to load execution: %w", err)
	}

	if !executionModel.CanRetry() {
		return nil, &models.CoordinatorError{
			ExecutionID: executionID,
			Kind:        models.ErrAlreadyTerminal,
			Err:         fmt.Errorf("execution is not eligible for retry (status=%s, retry_count=%d, max_retries=%d)", executionModel.Status, executionModel.RetryCount, executionModel.MaxRetries),
		}
	}

	opts := DefaultExecutionOptions()
	opts.TriggerType = models.TriggerInputTypeRetry
	opts.RetryOf = executionModel.ID.String()
	opts.RetryCount = executionModel.RetryCount + 1
	opts.MaxRetries = executionModel.MaxRetries

	return c.StartExecution(ctx, executionModel.WorkflowID.String(), executionModel.InputData, opts)
}

// pauseInfo describes a suspension surfaced by schedule.
type pauseInfo struct {
	nodeID          string
	waitingUUID     uuid.UUID
	reason          string
	resumeCondition string
}

// run drives a single execution from startWaveIdx to completion, pause, or
// cancellation, persisting the terminal transition via CompareAndSetStatus.
func (c *Coordinator) run(
	ctx context.Context,
	executionID string,
	workflowModel *storagemodels.WorkflowModel,
	workflow *models.Workflow,
	execState *ExecutionState,
	opts *ExecutionOptions,
	startWaveIdx int,
) {
	if c.workers != nil {
		c.workers <- struct{}{}
		defer func() { <-c.workers }()
	}

	execUUID, err := uuid.Parse(executionID)
	if err != nil {
		return
	}

	defer func() {
		c.mu.Lock()
		delete(c.cancelFuncs, executionID)
		c.mu.Unlock()
	}()

	if startWaveIdx == 0 {
		err := c.executionRepo.CompareAndSetStatus(ctx, execUUID, "pending", "running", func(em *storagemodels.ExecutionModel) {
			em.MarkStarted()
		})
		if err != nil {
			// Another caller already moved this execution out of pending.
			return
		}
		c.notify(ctx, observer.Event{
			Type:        observer.EventTypeExecutionStarted,
			ExecutionID: executionID,
			WorkflowID:  workflow.ID,
			Timestamp:   time.Now(),
			Status:      "running",
			Input:       execState.Input,
			Variables:   execState.Variables,
		})
	}

	pause, runErr := c.schedule(ctx, execUUID, workflowModel, execState, opts, startWaveIdx)
	if pause != nil {
		if waitingUUID, ok := logicalToNodeUUID(workflowModel, pause.nodeID); !ok {
			runErr = fmt.Errorf("node %s has no storage UUID", pause.nodeID)
			pause = nil
		} else {
			pause.waitingUUID = waitingUUID
		}
	}

	switch {
	case pause != nil:
		err := c.executionRepo.CompareAndSetStatus(ctx, execUUID, "running", "paused", func(em *storagemodels.ExecutionModel) {
			em.MarkPaused(pause.waitingUUID, pause.reason, pause.resumeCondition)
		})
		if err != nil {
			return
		}
		c.notify(ctx, observer.Event{
			Type:        observer.EventTypeExecutionPaused,
			ExecutionID: executionID,
			WorkflowID:  workflow.ID,
			Timestamp:   time.Now(),
			Status:      "paused",
			NodeID:      &pause.nodeID,
			Message:     ptrString(pause.reason),
		})
		if c.pauseHandler != nil {
			executionModel, err := c.executionRepo.FindByID(ctx, execUUID)
			if err == nil {
				c.pauseHandler.OnPause(ctx, ExecutionModelToDomain(executionModel), pause.nodeID, pause.reason, pause.resumeCondition)
			}
		}
		return

	case runErr != nil:
		if errors.Is(runErr, context.Canceled) {
			// CancelExecution already performed the terminal transition.
			return
		}
		_ = c.executionRepo.CompareAndSetStatus(ctx, execUUID, "running", "failed", func(em *storagemodels.ExecutionModel) {
			em.MarkFailed(runErr.Error())
		})
		c.notify(ctx, observer.Event{
			Type:        observer.EventTypeExecutionFailed,
			ExecutionID: executionID,
			WorkflowID:  workflow.ID,
			Timestamp:   time.Now(),
			Status:      "failed",
			Error:       runErr,
		})
		return

	default:
		output := finalOutput(execState)
		err := c.executionRepo.CompareAndSetStatus(ctx, execUUID, "running", "completed", func(model *storagemodels.ExecutionModel) {
			model.OutputData = storagemodels.JSONBMap(output)
			model.MarkCompleted()
		})
		if err != nil {
			return
		}
		c.notify(ctx, observer.Event{
			Type:        observer.EventTypeExecutionCompleted,
			ExecutionID: executionID,
			WorkflowID:  workflow.ID,
			Timestamp:   time.Now(),
			Status:      "completed",
			Output:      output,
		})
	}
}

// schedule runs waves startWaveIdx..N, persisting a NodeExecution row per
// dispatched node. It returns a non-nil pauseInfo if any node in a wave
// paused (the rest of that wave is allowed to finish first, mirroring
// DAGExecutor.executeWave's full-drain-then-check behavior), or an error if
// the DAG is invalid, the context is cancelled, or a node fails terminally.
func (c *Coordinator) schedule(
	ctx context.Context,
	execUUID uuid.UUID,
	workflowModel *storagemodels.WorkflowModel,
	execState *ExecutionState,
	opts *ExecutionOptions,
	startWaveIdx int,
) (*pauseInfo, error) {
	dag := buildDAG(execState.Workflow)
	waves, err := topologicalSort(dag)
	if err != nil {
		return nil, fmt.Errorf("DAG validation failed: %w", err)
	}

	for waveIdx := startWaveIdx; waveIdx < len(waves); waveIdx++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		pause, err := c.dispatchWave(ctx, execUUID, workflowModel, execState, waves[waveIdx], waveIdx, opts)
		if err != nil {
			return nil, err
		}
		if pause != nil {
			return pause, nil
		}
	}

	return nil, nil
}

// dispatchWave runs one wave of nodes, persisting each node's result and
// returning the first pause observed once the whole wave has drained.
func (c *Coordinator) dispatchWave(
	ctx context.Context,
	execUUID uuid.UUID,
	workflowModel *storagemodels.WorkflowModel,
	execState *ExecutionState,
	wave []*models.Node,
	waveIdx int,
	opts *ExecutionOptions,
) (*pauseInfo, error) {
	sorted := make([]*models.Node, len(wave))
	copy(sorted, wave)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	nodeCount := len(sorted)
	c.notify(ctx, observer.Event{
		Type:        observer.EventTypeWaveStarted,
		ExecutionID: execState.ExecutionID,
		WorkflowID:  execState.WorkflowID,
		Timestamp:   time.Now(),
		Status:      "running",
		WaveIndex:   &waveIdx,
		NodeCount:   &nodeCount,
	})

	maxParallelism := opts.MaxParallelism
	if maxParallelism <= 0 {
		maxParallelism = len(sorted)
		if maxParallelism == 0 {
			maxParallelism = 1
		}
	}
	semaphore := make(chan struct{}, maxParallelism)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	var pauses []*pauseInfo

	for _, node := range sorted {
		wg.Add(1)
		go func(n *models.Node) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				execState.SetNodeStatus(n.ID, models.NodeExecutionStatusSkipped)
				return
			default:
			}

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			shouldExec, skipReason := c.dagExecutor.shouldExecuteNode(execState, n)
			if !shouldExec {
				execState.SetNodeStatus(n.ID, models.NodeExecutionStatusSkipped)
				c.notify(ctx, observer.Event{
					Type:        observer.EventTypeNodeSkipped,
					ExecutionID: execState.ExecutionID,
					WorkflowID:  execState.WorkflowID,
					Timestamp:   time.Now(),
					Status:      "skipped",
					NodeID:      &n.ID,
					NodeName:    &n.Name,
					NodeType:    &n.Type,
					Message:     &skipReason,
				})
				return
			}

			pause, err := c.dispatchNode(ctx, execUUID, workflowModel, execState, n, waveIdx, opts)
			mu.Lock()
			defer mu.Unlock()
			if err != nil && firstErr == nil {
				firstErr = err
			}
			if pause != nil {
				pauses = append(pauses, pause)
			}
		}(node)
	}

	wg.Wait()

	waveStatus := "completed"
	if firstErr != nil {
		waveStatus = "completed_with_errors"
	}
	c.notify(ctx, observer.Event{
		Type:        observer.EventTypeWaveCompleted,
		ExecutionID: execState.ExecutionID,
		WorkflowID:  execState.WorkflowID,
		Timestamp:   time.Now(),
		Status:      waveStatus,
		WaveIndex:   &waveIdx,
	})

	if firstErr != nil {
		return nil, firstErr
	}
	if len(pauses) > 0 {
		return pauses[0], nil
	}
	return nil, nil
}

// dispatchNode resolves, executes and persists a single node, retrying
// retriable failures according to opts.RetryPolicy before giving up.
func (c *Coordinator) dispatchNode(
	ctx context.Context,
	execUUID uuid.UUID,
	workflowModel *storagemodels.WorkflowModel,
	execState *ExecutionState,
	node *models.Node,
	waveIdx int,
	opts *ExecutionOptions,
) (pause *pauseInfo, err error) {
	nodeUUID, ok := logicalToNodeUUID(workflowModel, node.ID)
	if !ok {
		return nil, fmt.Errorf("node %s has no storage UUID", node.ID)
	}

	parentNodes := getParentNodes(execState.Workflow, node)
	nodeCtx := PrepareNodeContext(execState, node, parentNodes, opts)

	startTime := time.Now()
	execState.SetNodeStartTime(node.ID, startTime)
	execState.SetNodeStatus(node.ID, models.NodeExecutionStatusRunning)

	nem := &storagemodels.NodeExecutionModel{
		ExecutionID: execUUID,
		NodeID:      nodeUUID,
		Wave:        waveIdx,
	}
	nem.MarkStarted()
	nem.StartedAt = &startTime
	_ = c.executionRepo.UpsertNodeExecution(ctx, nem)

	c.notify(ctx, observer.Event{
		Type:        observer.EventTypeNodeStarted,
		ExecutionID: execState.ExecutionID,
		WorkflowID:  execState.WorkflowID,
		Timestamp:   startTime,
		Status:      "running",
		NodeID:      &node.ID,
		NodeName:    &node.Name,
		NodeType:    &node.Type,
	})

	retryPolicy := opts.RetryPolicy
	if retryPolicy == nil {
		retryPolicy = NoRetryPolicy()
	}

	nodeTimeoutCtx := ctx
	if nodeTimeoutMs := getNodeTimeout(node); nodeTimeoutMs > 0 {
		var cancel context.CancelFunc
		nodeTimeoutCtx, cancel = context.WithTimeout(ctx, time.Duration(nodeTimeoutMs)*time.Millisecond)
		defer cancel()
	} else if opts.NodeTimeout > 0 {
		var cancel context.CancelFunc
		nodeTimeoutCtx, cancel = context.WithTimeout(ctx, opts.NodeTimeout)
		defer cancel()
	}

	var result executor.NodeResult
	var resolvedConfig map[string]interface{}
	attempt := 0
	for {
		result, resolvedConfig, err = c.safeExecuteDescribed(nodeTimeoutCtx, nodeCtx)
		if err == nil && result.Failure != nil && result.Failure.Retriable && attempt < retryPolicy.MaxAttempts-1 {
			attempt++
			delay := retryPolicy.GetDelay(attempt)
			nem.MarkRetrying()
			_ = c.executionRepo.UpsertNodeExecution(ctx, nem)
			c.notify(ctx, observer.Event{
				Type:        observer.EventTypeNodeRetrying,
				ExecutionID: execState.ExecutionID,
				WorkflowID:  execState.WorkflowID,
				Timestamp:   time.Now(),
				Status:      "retrying",
				NodeID:      &node.ID,
				NodeName:    &node.Name,
				NodeType:    &node.Type,
				RetryCount:  &attempt,
				Message:     ptrString(result.Failure.Message),
			})
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			continue
		}
		break
	}

	endTime := time.Now()
	duration := endTime.Sub(startTime).Milliseconds()
	execState.SetNodeEndTime(node.ID, endTime)
	nem.CompletedAt = &endTime
	nem.RetryCount = attempt

	if resolvedConfig != nil {
		execState.SetNodeResolvedConfig(node.ID, resolvedConfig)
		nem.ResolvedConfig = storagemodels.JSONBMap(resolvedConfig)
	}
	nem.Config = storagemodels.JSONBMap(node.Config)

	switch {
	case err != nil:
		execState.SetNodeStatus(node.ID, models.NodeExecutionStatusFailed)
		execState.SetNodeError(node.ID, err)
		nem.MarkFailed(err.Error())
		nem.ErrorKind = models.ErrHandlerCrash.Error()
		_ = c.executionRepo.UpsertNodeExecution(ctx, nem)
		c.notify(ctx, observer.Event{
			Type:        observer.EventTypeNodeFailed,
			ExecutionID: execState.ExecutionID,
			WorkflowID:  execState.WorkflowID,
			Timestamp:   endTime,
			Status:      "failed",
			NodeID:      &node.ID,
			NodeName:    &node.Name,
			NodeType:    &node.Type,
			Error:       err,
			DurationMs:  &duration,
		})
		return nil, fmt.Errorf("node %s failed: %w", node.ID, err)

	case result.Pause != nil:
		execState.SetNodeStatus(node.ID, models.NodeExecutionStatusPaused)
		nem.MarkPaused(storagemodels.JSONBMap(map[string]interface{}{
			"reason":           result.Pause.Reason,
			"resume_condition": result.Pause.ResumeCondition,
		}))
		_ = c.executionRepo.UpsertNodeExecution(ctx, nem)
		c.notify(ctx, observer.Event{
			Type:        observer.EventTypeNodePaused,
			ExecutionID: execState.ExecutionID,
			WorkflowID:  execState.WorkflowID,
			Timestamp:   endTime,
			Status:      "paused",
			NodeID:      &node.ID,
			NodeName:    &node.Name,
			NodeType:    &node.Type,
			Message:     ptrString(result.Pause.Reason),
		})
		return &pauseInfo{nodeID: node.ID, reason: result.Pause.Reason, resumeCondition: result.Pause.ResumeCondition}, nil

	case result.Failure != nil:
		execState.SetNodeStatus(node.ID, models.NodeExecutionStatusFailed)
		nodeErr := fmt.Errorf("%s", result.Failure.Message)
		execState.SetNodeError(node.ID, nodeErr)
		nem.MarkFailed(result.Failure.Message)
		nem.ErrorKind = result.Failure.ErrorKind
		if node.ErrorPolicy == models.ErrorPolicyContinue {
			execState.SetNodeOutput(node.ID, map[string]interface{}{})
			errorHandles := map[string]bool{ErrorHandleName: true}
			execState.SetNodeHandles(node.ID, errorHandles)
			nem.Handles = storagemodels.JSONBMap(boolMapToAny(errorHandles))
		}
		_ = c.executionRepo.UpsertNodeExecution(ctx, nem)
		c.notify(ctx, observer.Event{
			Type:        observer.EventTypeNodeFailed,
			ExecutionID: execState.ExecutionID,
			WorkflowID:  execState.WorkflowID,
			Timestamp:   endTime,
			Status:      "failed",
			NodeID:      &node.ID,
			NodeName:    &node.Name,
			NodeType:    &node.Type,
			Error:       nodeErr,
			DurationMs:  &duration,
		})
		if node.ErrorPolicy == models.ErrorPolicyContinue {
			return nil, nil
		}
		return nil, fmt.Errorf("node %s failed: %s", node.ID, result.Failure.Message)

	default:
		output := map[string]interface{}{}
		handles := map[string]bool(nil)
		if result.Success != nil {
			output = result.Success.Output
			handles = result.Success.Handles
		}
		execState.SetNodeStatus(node.ID, models.NodeExecutionStatusCompleted)
		execState.SetNodeOutput(node.ID, output)
		nem.MarkCompleted()
		nem.OutputData = storagemodels.JSONBMap(output)
		if handles != nil {
			nem.Handles = storagemodels.JSONBMap(boolMapToAny(handles))
		}
		_ = c.executionRepo.UpsertNodeExecution(ctx, nem)
		c.notify(ctx, observer.Event{
			Type:        observer.EventTypeNodeCompleted,
			ExecutionID: execState.ExecutionID,
			WorkflowID:  execState.WorkflowID,
			Timestamp:   endTime,
			Status:      "completed",
			NodeID:      &node.ID,
			NodeName:    &node.Name,
			NodeType:    &node.Type,
			Output:      output,
			DurationMs:  &duration,
		})
		return nil, nil
	}
}

// safeExecuteDescribed runs NodeExecutor.ExecuteDescribed with panic
// recovery, surfacing a HANDLER_CRASH failure result instead of letting a
// misbehaving handler take down the coordinator's goroutine.
func (c *Coordinator) safeExecuteDescribed(ctx context.Context, nodeCtx *NodeContext) (result executor.NodeResult, resolvedConfig map[string]interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", models.ErrHandlerCrash, r)
		}
	}()
	return c.nodeExecutor.ExecuteDescribed(ctx, nodeCtx)
}

// boolMapToAny widens a map[string]bool to map[string]interface{} for
// storage in a JSONBMap column.
func boolMapToAny(m map[string]bool) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// finalOutput collects output from leaf nodes (nodes with no outgoing
// edges), namespacing by node ID when more than one leaf produced output.
func finalOutput(execState *ExecutionState) map[string]interface{} {
	hasOutgoing := make(map[string]bool)
	for _, edge := range execState.Workflow.Edges {
		hasOutgoing[edge.From] = true
	}

	leaves := make([]*models.Node, 0)
	for _, node := range execState.Workflow.Nodes {
		if !hasOutgoing[node.ID] {
			leaves = append(leaves, node)
		}
	}

	if len(leaves) == 0 {
		return nil
	}

	if len(leaves) == 1 {
		if output, ok := execState.GetNodeOutput(leaves[0].ID); ok {
			if outputMap, ok := output.(map[string]interface{}); ok {
				return outputMap
			}
		}
		return nil
	}

	merged := make(map[string]interface{})
	for _, node := range leaves {
		if output, ok := execState.GetNodeOutput(node.ID); ok {
			merged[node.ID] = output
		}
	}
	return merged
}

// nodeIDMaps builds the logical-ID<->UUID mappings used to translate
// between the domain Node.ID (logical, stable across republishes of a
// workflow) and the storage NodeModel.ID (UUID, the foreign key on
// NodeExecutionModel).
func nodeIDMaps(workflowModel *storagemodels.WorkflowModel) (logicalToUUID, uuidToLogical map[string]string) {
	logicalToUUID = make(map[string]string, len(workflowModel.Nodes))
	uuidToLogical = make(map[string]string, len(workflowModel.Nodes))
	for _, nm := range workflowModel.Nodes {
		logicalToUUID[nm.NodeID] = nm.ID.String()
		uuidToLogical[nm.ID.String()] = nm.NodeID
	}
	return logicalToUUID, uuidToLogical
}

// logicalToNodeUUID resolves a single logical node ID to its storage UUID.
func logicalToNodeUUID(workflowModel *storagemodels.WorkflowModel, logicalID string) (uuid.UUID, bool) {
	for _, nm := range workflowModel.Nodes {
		if nm.NodeID == logicalID {
			return nm.ID, true
		}
	}
	return uuid.UUID{}, false
}
