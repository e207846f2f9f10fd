package testutil

import (
	"github.com/google/uuid"

	storagemodels "github.com/gridflow/gridflow/internal/infrastructure/storage/models"
	pkgmodels "github.com/gridflow/gridflow/pkg/models"
)

// CreateSimpleWorkflow builds a minimal three-node domain workflow (a
// trigger, a transform, and a delay, wired start to finish) for handler and
// repository tests that just need a valid workflow to attach to.
func CreateSimpleWorkflow() *pkgmodels.Workflow {
	return &pkgmodels.Workflow{
		Name:        "test_workflow",
		Description: "Workflow fixture for tests",
		Version:     1,
		Status:      pkgmodels.WorkflowStatusDraft,
		Nodes: []*pkgmodels.Node{
			{ID: "start", Name: "Start", Type: "webhook", IsTrigger: true, Config: map[string]interface{}{}},
			{ID: "transform", Name: "Transform", Type: "transform", Config: map[string]interface{}{"mode": "passthrough"}},
			{ID: "delay", Name: "Delay", Type: "delay", Config: map[string]interface{}{"duration_seconds": 1}},
		},
		Edges: []*pkgmodels.Edge{
			{ID: "e1", From: "start", To: "transform"},
			{ID: "e2", From: "transform", To: "delay"},
		},
		Variables: map[string]interface{}{},
		Metadata:  map[string]interface{}{},
	}
}

// WorkflowDomainToModel converts a domain workflow fixture into a storage
// model ready for WorkflowRepository.Create, assigning it a fresh ID.
func WorkflowDomainToModel(w *pkgmodels.Workflow) *storagemodels.WorkflowModel {
	return storagemodels.WorkflowToStorage(w, uuid.New())
}
