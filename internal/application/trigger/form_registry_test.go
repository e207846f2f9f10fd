package trigger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridflow/gridflow/internal/application/engine"
	"github.com/gridflow/gridflow/internal/domain/repository"
	storagemodels "github.com/gridflow/gridflow/internal/infrastructure/storage/models"
	"github.com/gridflow/gridflow/pkg/executor"
	"github.com/gridflow/gridflow/pkg/models"
)

// scriptedExecutor returns results[n] on its nth call, repeating the last
// entry once exhausted.
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
		return nil, assert.AnError
	}
	return m.exec, nil
}

func (m *singleTypeManager) Has(nodeType string) bool { return nodeType == m.nodeType }

// stubWorkflowRepo serves a single fixed workflow for FindByIDWithRelations.
type stubWorkflowRepo struct {
	repository.WorkflowRepository
	workflow *storagemodels.WorkflowModel
}

func (s *stubWorkflowRepo) FindByIDWithRelations(_ context.Context, id uuid.UUID) (*storagemodels.WorkflowModel, error) {
	if s.workflow == nil || s.workflow.ID != id {
		return nil, models.ErrWorkflowNotFound
	}
	return s.workflow, nil
}

// memExecutionRepo is a minimal in-memory repository.ExecutionRepository
// sufficient to drive Coordinator end to end without a database.
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
		return nil, models.ErrExecutionNotFound
	}
	cp := *em
	return &cp, nil
}

func (r *memExecutionRepo) CompareAndSetStatus(_ context.Context, id uuid.UUID, expectedStatus, newStatus string, mutate func(*storagemodels.ExecutionModel)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	em, ok := r.executions[id]
	if !ok {
		return models.ErrExecutionNotFound
	}
	if em.Status != expectedStatus {
		return models.ErrNotPaused
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
	return r.nodeExecutions[executionID], nil
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

// fakeFormRepo is an in-memory repository.FormRepository.
type fakeFormRepo struct {
	repository.FormRepository
	mu          sync.Mutex
	byToken     map[string]*storagemodels.FormTriggerModel
	submissions []*storagemodels.FormSubmissionModel
}

func newFakeFormRepo() *fakeFormRepo {
	return &fakeFormRepo{byToken: make(map[string]*storagemodels.FormTriggerModel)}
}

func (r *fakeFormRepo) FindFormByToken(_ context.Context, token string) (*storagemodels.FormTriggerModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byToken[token]
	if !ok {
		return nil, models.ErrFormNotFound
	}
	return f, nil
}

func (r *fakeFormRepo) FindFormsByWorkflowID(_ context.Context, workflowID uuid.UUID) ([]*storagemodels.FormTriggerModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*storagemodels.FormTriggerModel
	for _, f := range r.byToken {
		if f.WorkflowID == workflowID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *fakeFormRepo) UpdateForm(_ context.Context, form *storagemodels.FormTriggerModel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byToken[form.Token] = form
	return nil
}

func (r *fakeFormRepo) CreateSubmission(_ context.Context, submission *storagemodels.FormSubmissionModel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if submission.ID == uuid.Nil {
		submission.ID = uuid.New()
	}
	r.submissions = append(r.submissions, submission)
	return nil
}

func buildTriggerFormWorkflow(workflowID uuid.UUID) *storagemodels.WorkflowModel {
	return &storagemodels.WorkflowModel{
		ID:     workflowID,
		Name:   "intake",
		Status: "active",
		Nodes: []*storagemodels.NodeModel{
			{ID: uuid.New(), NodeID: "start", WorkflowID: workflowID, Name: "Start", Type: "scripted"},
		},
	}
}

func TestFormRegistry_GetForm(t *testing.T) {
	formRepo := newFakeFormRepo()
	past := time.Now().Add(-time.Hour)
	formRepo.byToken["expired"] = &storagemodels.FormTriggerModel{ID: uuid.New(), Token: "expired", Enabled: true, ExpiresAt: &past}
	formRepo.byToken["open"] = &storagemodels.FormTriggerModel{ID: uuid.New(), Token: "open", Enabled: true}

	reg := NewFormRegistry(FormRegistryConfig{FormRepo: formRepo})

	_, err := reg.GetForm(context.Background(), "missing")
	require.ErrorIs(t, err, models.ErrFormNotFound)

	_, err = reg.GetForm(context.Background(), "expired")
	require.ErrorIs(t, err, models.ErrFormClosed)

	form, err := reg.GetForm(context.Background(), "open")
	require.NoError(t, err)
	assert.Equal(t, "open", form.Token)
}

func TestFormRegistry_SubmitTriggerForm_StartsExecutionAndRecordsSubmission(t *testing.T) {
	workflowID := uuid.New()
	wm := buildTriggerFormWorkflow(workflowID)

	scripted := &scriptedExecutor{results: []executor.NodeResult{
		executor.NewSuccessResult(map[string]any{"ok": true}, nil),
	}}
	mgr := &singleTypeManager{nodeType: "scripted", exec: scripted}
	execRepo := newMemExecutionRepo()
	coord := engine.NewCoordinator(mgr, &stubWorkflowRepo{workflow: wm}, execRepo, nil, nil, 0)

	formRepo := newFakeFormRepo()
	formRepo.byToken["intake"] = &storagemodels.FormTriggerModel{
		ID: uuid.New(), WorkflowID: workflowID, Token: "intake", Enabled: true,
	}

	reg := NewFormRegistry(FormRegistryConfig{FormRepo: formRepo, Coordinator: coord})

	execution, err := reg.SubmitTriggerForm(context.Background(), "intake", map[string]interface{}{"name": "ada"}, "ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, execution)

	execRepo.waitForStatus(t, "completed")

	assert.Len(t, formRepo.submissions, 1)
	assert.Equal(t, "ada@example.com", formRepo.submissions[0].SubmittedBy)
	assert.Equal(t, 1, formRepo.byToken["intake"].SubmissionCount)
}

func TestFormRegistry_SubmitTriggerForm_RejectsResumeFormAndClosedForm(t *testing.T) {
	workflowID := uuid.New()
	nodeUUID := uuid.New()
	formRepo := newFakeFormRepo()
	formRepo.byToken["resume"] = &storagemodels.FormTriggerModel{
		ID: uuid.New(), WorkflowID: workflowID, NodeID: &nodeUUID, Token: "resume", Enabled: true,
	}
	formRepo.byToken["disabled"] = &storagemodels.FormTriggerModel{
		ID: uuid.New(), WorkflowID: workflowID, Token: "disabled", Enabled: false,
	}

	reg := NewFormRegistry(FormRegistryConfig{FormRepo: formRepo})

	_, err := reg.SubmitTriggerForm(context.Background(), "resume", nil, "")
	require.Error(t, err)

	_, err = reg.SubmitTriggerForm(context.Background(), "disabled", nil, "")
	require.ErrorIs(t, err, models.ErrFormClosed)
}

func TestFormRegistry_SubmitResumeForm_ResumesPausedExecutionAndRecordsSubmission(t *testing.T) {
	workflowID := uuid.New()
	nodeUUID := uuid.New()
	wm := &storagemodels.WorkflowModel{
		ID:     workflowID,
		Name:   "needs-input",
		Status: "active",
		Nodes: []*storagemodels.NodeModel{
			{ID: nodeUUID, NodeID: "collect", WorkflowID: workflowID, Name: "Collect", Type: "scripted"},
		},
	}

	scripted := &scriptedExecutor{results: []executor.NodeResult{
		executor.NewPauseResult(models.PauseReasonForm, ""),
		executor.NewSuccessResult(map[string]any{"ok": true}, nil),
	}}
	mgr := &singleTypeManager{nodeType: "scripted", exec: scripted}
	execRepo := newMemExecutionRepo()
	coord := engine.NewCoordinator(mgr, &stubWorkflowRepo{workflow: wm}, execRepo, nil, nil, 0)

	exec, err := coord.StartExecution(context.Background(), workflowID.String(), map[string]any{}, nil)
	require.NoError(t, err)
	execRepo.waitForStatus(t, "paused")

	formRepo := newFakeFormRepo()
	formRepo.byToken["collect-form"] = &storagemodels.FormTriggerModel{
		ID: uuid.New(), WorkflowID: workflowID, NodeID: &nodeUUID, Token: "collect-form", Enabled: true,
	}

	reg := NewFormRegistry(FormRegistryConfig{FormRepo: formRepo, WorkflowRepo: &stubWorkflowRepo{workflow: wm}, Coordinator: coord})

	resumed, err := reg.SubmitResumeForm(context.Background(), exec.ID, "collect", map[string]interface{}{"answer": 42}, "ada")
	require.NoError(t, err)
	require.NotNil(t, resumed)

	execRepo.waitForStatus(t, "completed")

	require.Len(t, formRepo.submissions, 1)
	assert.Equal(t, "ada", formRepo.submissions[0].SubmittedBy)
}

func TestFormRegistry_SubmitResumeForm_AlreadyResolved(t *testing.T) {
	workflowID := uuid.New()
	nodeUUID := uuid.New()
	wm := &storagemodels.WorkflowModel{
		ID:     workflowID,
		Status: "active",
		Nodes: []*storagemodels.NodeModel{
			{ID: nodeUUID, NodeID: "collect", WorkflowID: workflowID, Type: "scripted"},
		},
	}

	scripted := &scriptedExecutor{results: []executor.NodeResult{
		executor.NewSuccessResult(map[string]any{"ok": true}, nil),
	}}
	mgr := &singleTypeManager{nodeType: "scripted", exec: scripted}
	execRepo := newMemExecutionRepo()
	coord := engine.NewCoordinator(mgr, &stubWorkflowRepo{workflow: wm}, execRepo, nil, nil, 0)

	exec, err := coord.StartExecution(context.Background(), workflowID.String(), map[string]any{}, nil)
	require.NoError(t, err)
	execRepo.waitForStatus(t, "completed")

	reg := NewFormRegistry(FormRegistryConfig{FormRepo: newFakeFormRepo(), Coordinator: coord})

	_, err = reg.SubmitResumeForm(context.Background(), exec.ID, "collect", map[string]interface{}{}, "ada")
	require.ErrorIs(t, err, models.ErrAlreadyResolved)
}
