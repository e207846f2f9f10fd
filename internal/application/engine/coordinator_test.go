package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gridflow/gridflow/internal/domain/repository"
	storagemodels "github.com/gridflow/gridflow/internal/infrastructure/storage/models"
	"github.com/gridflow/gridflow/pkg/executor"
	"github.com/gridflow/gridflow/pkg/models"
)

// stubWorkflowRepo serves a single fixed workflow for FindByIDWithRelations.
// Embedding the interface means any other method panics with a nil pointer
// dereference if a test exercises it, which is the point: these tests only
// drive the coordinator paths that touch workflow lookup.
type stubWorkflowRepo struct {
	repository.WorkflowRepository
	workflow *storagemodels.WorkflowModel
}

func (s *stubWorkflowRepo) FindByIDWithRelations(_ context.Context, id uuid.UUID) (*storagemodels.WorkflowModel, error) {
	if s.workflow == nil || s.workflow.ID != id {
		return nil, fmt.Errorf("workflow not found: %s", id)
	}
	return s.workflow, nil
}

// memExecutionRepo is an in-memory ExecutionRepository sufficient to drive
// Coordinator end to end without a database.
type memExecutionRepo struct {
	repository.ExecutionRepository

	mu             sync.Mutex
	executions     map[uuid.UUID]*storagemodels.ExecutionModel
	nodeExecutions map[uuid.UUID][]*storagemodels.NodeExecutionModel
	statusCh       chan string
}

func newMemExecutionRepo() *memExecutionRepo {
	return &memExecutionRepo{
		executions:     make(map[uuid.UUID]*storagemodels.ExecutionModel),
		nodeExecutions: make(map[uuid.UUID][]*storagemodels.NodeExecutionModel),
		statusCh:       make(chan string, 16),
	}
}

func (r *memExecutionRepo) seed(em *storagemodels.ExecutionModel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *em
	r.executions[em.ID] = &cp
}

func (r *memExecutionRepo) Create(_ context.Context, execution *storagemodels.ExecutionModel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if execution.ID == uuid.Nil {
		execution.ID = uuid.New()
	}
	cp := *execution
	r.executions[execution.ID] = &cp
	return nil
}

func (r *memExecutionRepo) FindByID(_ context.Context, id uuid.UUID) (*storagemodels.ExecutionModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	em, ok := r.executions[id]
	if !ok {
		return nil, fmt.Errorf("execution not found: %s", id)
	}
	cp := *em
	return &cp, nil
}

func (r *memExecutionRepo) CompareAndSetStatus(_ context.Context, id uuid.UUID, expectedStatus, newStatus string, mutate func(*storagemodels.ExecutionModel)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	em, ok := r.executions[id]
	if !ok {
		return fmt.Errorf("execution not found: %s", id)
	}
	if em.Status != expectedStatus {
		return fmt.Errorf("expected status %s, got %s", expectedStatus, em.Status)
	}
	mutate(em)
	em.Status = newStatus
	select {
	case r.statusCh <- newStatus:
	default:
	}
	return nil
}

func (r *memExecutionRepo) UpsertNodeExecution(_ context.Context, ne *storagemodels.NodeExecutionModel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.nodeExecutions[ne.ExecutionID]
	for i, existing := range list {
		if existing.NodeID == ne.NodeID {
			cp := *ne
			list[i] = &cp
			return nil
		}
	}
	cp := *ne
	r.nodeExecutions[ne.ExecutionID] = append(list, &cp)
	return nil
}

func (r *memExecutionRepo) FindNodeExecutionsByExecutionID(_ context.Context, executionID uuid.UUID) ([]*storagemodels.NodeExecutionModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*storagemodels.NodeExecutionModel, len(r.nodeExecutions[executionID]))
	copy(out, r.nodeExecutions[executionID])
	return out, nil
}

func (r *memExecutionRepo) waitForStatus(t *testing.T, want string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-r.statusCh:
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for execution status %q", want)
		}
	}
}

// scriptedExecutor returns results[n] on its nth call, repeating the last
// entry once exhausted, so a test can stage a failure-then-success sequence.
type scriptedExecutor struct {
	mu      sync.Mutex
	results []executor.NodeResult
	calls   int
}

func (s *scriptedExecutor) Execute(context.Context, map[string]any, any) (any, error) { return nil, nil }
func (s *scriptedExecutor) Validate(map[string]any) error                             { return nil }
func (s *scriptedExecutor) Descriptor() executor.Descriptor {
	return executor.Descriptor{Type: "scripted"}
}
func (s *scriptedExecutor) ConfigSchema() map[string]any { return nil }
func (s *scriptedExecutor) InterfaceDefinition() executor.InterfaceDefinition {
	return executor.InterfaceDefinition{}
}

func (s *scriptedExecutor) ExecuteNode(executor.NodeContext) executor.NodeResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.calls
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	s.calls++
	return s.results[idx]
}

// singleTypeManager serves one DescribedExecutor for one node type.
type singleTypeManager struct {
	executor.Manager
	nodeType string
	exec     executor.DescribedExecutor
}

func (m *singleTypeManager) Get(nodeType string) (executor.Executor, error) {
	if nodeType != m.nodeType {
		return nil, fmt.Errorf("no executor registered for %s", nodeType)
	}
	return m.exec, nil
}

func (m *singleTypeManager) Has(nodeType string) bool { return nodeType == m.nodeType }

func buildSingleNodeWorkflow(workflowID, nodeUUID uuid.UUID) (*storagemodels.WorkflowModel, *models.Workflow) {
	wm := &storagemodels.WorkflowModel{
		ID:     workflowID,
		Name:   "single-node",
		Status: "active",
		Nodes: []*storagemodels.NodeModel{
			{ID: nodeUUID, NodeID: "n1", WorkflowID: workflowID, Name: "Step 1", Type: "scripted"},
		},
	}
	workflow := WorkflowModelToDomain(wm)
	return wm, workflow
}

func TestCoordinator_StartExecution_RunsToCompletion(t *testing.T) {
	t.Parallel()

	workflowID := uuid.New()
	nodeUUID := uuid.New()
	wm, _ := buildSingleNodeWorkflow(workflowID, nodeUUID)

	scripted := &scriptedExecutor{results: []executor.NodeResult{
		executor.NewSuccessResult(map[string]any{"ok": true}, nil),
	}}
	mgr := &singleTypeManager{nodeType: "scripted", exec: scripted}

	execRepo := newMemExecutionRepo()
	wfRepo := &stubWorkflowRepo{workflow: wm}

	coord := NewCoordinator(mgr, wfRepo, execRepo, nil, nil, 0)

	exec, err := coord.StartExecution(context.Background(), workflowID.String(), map[string]any{"seed": 1}, nil)
	if err != nil {
		t.Fatalf("StartExecution: %v", err)
	}
	if exec.Status != models.ExecutionStatusPending {
		t.Fatalf("expected pending status immediately after start, got %s", exec.Status)
	}

	execRepo.waitForStatus(t, "running")
	execRepo.waitForStatus(t, "completed")

	execUUID, _ := uuid.Parse(exec.ID)
	final, err := execRepo.FindByID(context.Background(), execUUID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if final.Status != "completed" {
		t.Fatalf("expected completed, got %s", final.Status)
	}
	if final.OutputData["ok"] != true {
		t.Errorf("expected output to carry leaf node result, got %#v", final.OutputData)
	}

	nodeExecs, _ := execRepo.FindNodeExecutionsByExecutionID(context.Background(), execUUID)
	if len(nodeExecs) != 1 || nodeExecs[0].Status != "completed" {
		t.Fatalf("expected one completed node execution, got %#v", nodeExecs)
	}
}

func TestCoordinator_DispatchNode_PauseSuspendsExecution(t *testing.T) {
	t.Parallel()

	workflowID := uuid.New()
	nodeUUID := uuid.New()
	wm, workflow := buildSingleNodeWorkflow(workflowID, nodeUUID)

	scripted := &scriptedExecutor{results: []executor.NodeResult{
		executor.NewPauseResult("awaiting_approval", "approval.granted"),
	}}
	mgr := &singleTypeManager{nodeType: "scripted", exec: scripted}

	execRepo := newMemExecutionRepo()
	coord := NewCoordinator(mgr, &stubWorkflowRepo{workflow: wm}, execRepo, nil, nil, 0)

	execUUID := uuid.New()
	execState := NewExecutionState(execUUID.String(), workflow.ID, workflow, map[string]any{}, map[string]any{})

	pause, err := coord.dispatchNode(context.Background(), execUUID, wm, execState, workflow.Nodes[0], 0, DefaultExecutionOptions())
	if err != nil {
		t.Fatalf("dispatchNode returned error: %v", err)
	}
	if pause == nil {
		t.Fatal("expected a pauseInfo, got nil")
	}
	if pause.nodeID != "n1" || pause.reason != "awaiting_approval" || pause.resumeCondition != "approval.granted" {
		t.Errorf("unexpected pauseInfo: %#v", pause)
	}

	status, _ := execState.GetNodeStatus("n1")
	if status != models.NodeExecutionStatusPaused {
		t.Errorf("expected node status paused, got %s", status)
	}

	nodeExecs, _ := execRepo.FindNodeExecutionsByExecutionID(context.Background(), execUUID)
	if len(nodeExecs) != 1 || nodeExecs[0].Status != "paused" {
		t.Fatalf("expected persisted paused node execution, got %#v", nodeExecs)
	}
}

func TestCoordinator_DispatchNode_RetriesRetriableFailureThenSucceeds(t *testing.T) {
	t.Parallel()

	workflowID := uuid.New()
	nodeUUID := uuid.New()
	wm, workflow := buildSingleNodeWorkflow(workflowID, nodeUUID)

	scripted := &scriptedExecutor{results: []executor.NodeResult{
		executor.NewFailureResult("RATE_LIMITED", "try again", true),
		executor.NewSuccessResult(map[string]any{"ok": true}, nil),
	}}
	mgr := &singleTypeManager{nodeType: "scripted", exec: scripted}

	execRepo := newMemExecutionRepo()
	coord := NewCoordinator(mgr, &stubWorkflowRepo{workflow: wm}, execRepo, nil, nil, 0)

	execUUID := uuid.New()
	execState := NewExecutionState(execUUID.String(), workflow.ID, workflow, map[string]any{}, map[string]any{})

	opts := DefaultExecutionOptions()
	opts.RetryPolicy = &RetryPolicy{
		MaxAttempts:     3,
		InitialDelay:    time.Millisecond,
		MaxDelay:        5 * time.Millisecond,
		BackoffStrategy: BackoffConstant,
	}

	pause, err := coord.dispatchNode(context.Background(), execUUID, wm, execState, workflow.Nodes[0], 0, opts)
	if err != nil {
		t.Fatalf("dispatchNode returned error: %v", err)
	}
	if pause != nil {
		t.Fatalf("expected no pause, got %#v", pause)
	}

	status, _ := execState.GetNodeStatus("n1")
	if status != models.NodeExecutionStatusCompleted {
		t.Errorf("expected node to eventually complete, got %s", status)
	}
	if scripted.calls != 2 {
		t.Errorf("expected exactly one retry (2 calls), got %d", scripted.calls)
	}
}

func TestCoordinator_DispatchNode_StopPolicyReturnsErrorOnFailure(t *testing.T) {
	t.Parallel()

	workflowID := uuid.New()
	nodeUUID := uuid.New()
	wm, workflow := buildSingleNodeWorkflow(workflowID, nodeUUID)
	workflow.Nodes[0].ErrorPolicy = models.ErrorPolicyStop

	scripted := &scriptedExecutor{results: []executor.NodeResult{
		executor.NewFailureResult("BAD_INPUT", "boom", false),
	}}
	mgr := &singleTypeManager{nodeType: "scripted", exec: scripted}

	execRepo := newMemExecutionRepo()
	coord := NewCoordinator(mgr, &stubWorkflowRepo{workflow: wm}, execRepo, nil, nil, 0)

	execUUID := uuid.New()
	execState := NewExecutionState(execUUID.String(), workflow.ID, workflow, map[string]any{}, map[string]any{})

	pause, err := coord.dispatchNode(context.Background(), execUUID, wm, execState, workflow.Nodes[0], 0, DefaultExecutionOptions())
	if pause != nil {
		t.Fatalf("expected no pause, got %#v", pause)
	}
	if err == nil {
		t.Fatal("expected stop policy to surface a terminating error")
	}

	status, _ := execState.GetNodeStatus("n1")
	if status != models.NodeExecutionStatusFailed {
		t.Errorf("expected node status failed, got %s", status)
	}
}

func TestCoordinator_DispatchNode_ContinuePolicySwallowsFailure(t *testing.T) {
	t.Parallel()

	workflowID := uuid.New()
	nodeUUID := uuid.New()
	wm, workflow := buildSingleNodeWorkflow(workflowID, nodeUUID)
	workflow.Nodes[0].ErrorPolicy = models.ErrorPolicyContinue

	scripted := &scriptedExecutor{results: []executor.NodeResult{
		executor.NewFailureResult("BAD_INPUT", "boom", false),
	}}
	mgr := &singleTypeManager{nodeType: "scripted", exec: scripted}

	execRepo := newMemExecutionRepo()
	coord := NewCoordinator(mgr, &stubWorkflowRepo{workflow: wm}, execRepo, nil, nil, 0)

	execUUID := uuid.New()
	execState := NewExecutionState(execUUID.String(), workflow.ID, workflow, map[string]any{}, map[string]any{})

	pause, err := coord.dispatchNode(context.Background(), execUUID, wm, execState, workflow.Nodes[0], 0, DefaultExecutionOptions())
	if err != nil {
		t.Fatalf("expected continue policy to swallow the failure, got %v", err)
	}
	if pause != nil {
		t.Fatalf("expected no pause, got %#v", pause)
	}

	status, _ := execState.GetNodeStatus("n1")
	if status != models.NodeExecutionStatusFailed {
		t.Errorf("expected node status failed, got %s", status)
	}
	output, ok := execState.GetNodeOutput("n1")
	if !ok {
		t.Fatal("expected an empty output to be recorded for downstream nodes")
	}
	if out, ok := output.(map[string]interface{}); !ok || len(out) != 0 {
		t.Errorf("expected empty map output, got %#v", output)
	}
	handles, ok := execState.GetNodeHandles("n1")
	if !ok || !handles[ErrorHandleName] {
		t.Errorf("expected the error handle to be the sole live handle, got %#v", handles)
	}

	nodeExecs, _ := execRepo.FindNodeExecutionsByExecutionID(context.Background(), execUUID)
	if len(nodeExecs) != 1 || nodeExecs[0].Status != "failed" {
		t.Fatalf("expected persisted failed node execution, got %#v", nodeExecs)
	}
}

func TestDAGExecutor_ShouldExecuteNode_RoutesThroughErrorHandleOnContinuePolicyFailure(t *testing.T) {
	t.Parallel()

	workflow := &models.Workflow{
		ID: "wf1",
		Nodes: []*models.Node{
			{ID: "n1", Name: "Step 1", Type: "scripted", ErrorPolicy: models.ErrorPolicyContinue},
			{ID: "n2", Name: "Error Handler", Type: "scripted"},
			{ID: "n3", Name: "Normal Next", Type: "scripted"},
		},
		Edges: []*models.Edge{
			{ID: "e1", From: "n1", To: "n2", SourceHandle: ErrorHandleName},
			{ID: "e2", From: "n1", To: "n3"},
		},
	}

	execState := NewExecutionState("exec1", "wf1", workflow, map[string]any{}, map[string]any{})
	execState.SetNodeStatus("n1", models.NodeExecutionStatusFailed)
	execState.SetNodeHandles("n1", map[string]bool{ErrorHandleName: true})

	dag := NewDAGExecutor(nil, nil)

	shouldExec, _ := dag.shouldExecuteNode(execState, workflow.Nodes[1])
	if !shouldExec {
		t.Error("expected the error-handle edge to route after a continue-policy failure")
	}

	shouldExec, reason := dag.shouldExecuteNode(execState, workflow.Nodes[2])
	if shouldExec {
		t.Errorf("expected the plain edge from a failed node to stay dead, reason: %s", reason)
	}
}

func TestCoordinator_CancelExecution_RejectsTerminal(t *testing.T) {
	t.Parallel()

	execRepo := newMemExecutionRepo()
	coord := NewCoordinator(&singleTypeManager{}, &stubWorkflowRepo{}, execRepo, nil, nil, 0)

	execUUID := uuid.New()
	execRepo.seed(&storagemodels.ExecutionModel{ID: execUUID, WorkflowID: uuid.New(), Status: "completed"})

	_, err := coord.CancelExecution(context.Background(), execUUID.String(), "changed my mind", "user-1")
	if err == nil {
		t.Fatal("expected an error cancelling a terminal execution")
	}
	var coordErr *models.CoordinatorError
	if !asCoordinatorError(err, &coordErr) || coordErr.Kind != models.ErrAlreadyTerminal {
		t.Fatalf("expected ErrAlreadyTerminal, got %v", err)
	}
}

func TestCoordinator_ResumeExecution_RejectsWhenNotPaused(t *testing.T) {
	t.Parallel()

	execRepo := newMemExecutionRepo()
	coord := NewCoordinator(&singleTypeManager{}, &stubWorkflowRepo{}, execRepo, nil, nil, 0)

	execUUID := uuid.New()
	execRepo.seed(&storagemodels.ExecutionModel{ID: execUUID, WorkflowID: uuid.New(), Status: "running"})

	_, err := coord.ResumeExecution(context.Background(), execUUID.String(), map[string]any{})
	if err == nil {
		t.Fatal("expected an error resuming a non-paused execution")
	}
	var coordErr *models.CoordinatorError
	if !asCoordinatorError(err, &coordErr) || coordErr.Kind != models.ErrNotPaused {
		t.Fatalf("expected ErrNotPaused, got %v", err)
	}
}

func TestCoordinator_RetryExecution_ChainsRetryCount(t *testing.T) {
	t.Parallel()

	workflowID := uuid.New()
	nodeUUID := uuid.New()
	wm, _ := buildSingleNodeWorkflow(workflowID, nodeUUID)

	scripted := &scriptedExecutor{results: []executor.NodeResult{
		executor.NewSuccessResult(map[string]any{"ok": true}, nil),
	}}
	mgr := &singleTypeManager{nodeType: "scripted", exec: scripted}

	execRepo := newMemExecutionRepo()
	coord := NewCoordinator(mgr, &stubWorkflowRepo{workflow: wm}, execRepo, nil, nil, 0)

	failedID := uuid.New()
	execRepo.seed(&storagemodels.ExecutionModel{
		ID:         failedID,
		WorkflowID: workflowID,
		Status:     "failed",
		RetryCount: 0,
		MaxRetries: 2,
		InputData:  storagemodels.JSONBMap{"seed": 1},
	})

	retried, err := coord.RetryExecution(context.Background(), failedID.String())
	if err != nil {
		t.Fatalf("RetryExecution: %v", err)
	}
	if retried.RetryOf != failedID.String() {
		t.Errorf("expected RetryOf %s, got %s", failedID, retried.RetryOf)
	}
	if retried.RetryCount != 1 {
		t.Errorf("expected RetryCount 1, got %d", retried.RetryCount)
	}
	if retried.TriggerType != models.TriggerInputTypeRetry {
		t.Errorf("expected retry trigger type, got %s", retried.TriggerType)
	}

	execRepo.waitForStatus(t, "running")
	execRepo.waitForStatus(t, "completed")
}

func TestCoordinator_RetryExecution_RefusesWhenExhausted(t *testing.T) {
	t.Parallel()

	execRepo := newMemExecutionRepo()
	coord := NewCoordinator(&singleTypeManager{}, &stubWorkflowRepo{}, execRepo, nil, nil, 0)

	execUUID := uuid.New()
	execRepo.seed(&storagemodels.ExecutionModel{
		ID:         execUUID,
		WorkflowID: uuid.New(),
		Status:     "failed",
		RetryCount: 2,
		MaxRetries: 2,
	})

	_, err := coord.RetryExecution(context.Background(), execUUID.String())
	if err == nil {
		t.Fatal("expected an error retrying an exhausted execution")
	}
}

// asCoordinatorError unwraps err into a *models.CoordinatorError, the way a
// caller checking Kind in production code would.
func asCoordinatorError(err error, target **models.CoordinatorError) bool {
	ce, ok := err.(*models.CoordinatorError)
	if !ok {
		return false
	}
	*target = ce
	return true
}
