// Package executor provides the executor interface and registry for node execution.
//
// Executors are responsible for executing individual nodes in a workflow.
// Each node type has a corresponding executor that implements the Executor interface.
//
// Built-in executors include:
//   - HTTP: Makes HTTP requests (GET, POST, PUT, DELETE)
//   - LLM: Integrates with LLM providers (OpenAI, Anthropic)
//   - Transform: Transforms data using expressions
//   - Conditional: Evaluates conditions and routes execution
//   - Merge: Combines outputs from multiple nodes
//
// Custom executors can be registered at runtime using the Manager.
package executor

import (
	"context"
	"fmt"
)

// Executor is the interface that all node executors must implement.
// It defines the contract for executing a node and validating its configuration.
type Executor interface {
	// Execute executes the node with the given configuration and input.
	// It returns the output data or an error if execution fails.
	Execute(ctx context.Context, config map[string]any, input any) (any, error)

	// Validate validates the node configuration.
	// It returns an error if the configuration is invalid.
	Validate(config map[string]any) error
}

// Descriptor is the metadata a handler reports about itself to the registry
// and to the flow editor.
type Descriptor struct {
	Type           string `json:"type"`
	DisplayName    string `json:"displayName"`
	Category       string `json:"category"`
	Icon           string `json:"icon,omitempty"`
	IsTrigger      bool   `json:"isTrigger"`
	SupportsAsync  bool   `json:"supportsAsync"`
	CredentialType string `json:"credentialType,omitempty"`
}

// PortSpec describes one input or output port in a handler's interface
// definition.
type PortSpec struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // "object" | "array" | scalar type name
	Cardinality string `json:"cardinality,omitempty"`
}

// InterfaceDefinition lists a handler's declared input and output ports.
type InterfaceDefinition struct {
	Inputs  []PortSpec `json:"inputs"`
	Outputs []PortSpec `json:"outputs"`
}

// NodeContext carries everything a handler needs to execute a single node.
type NodeContext struct {
	Context         context.Context
	ExecutionID     string
	NodeID          string
	NodeType        string
	Config          map[string]any
	InputData       map[string]any
	PreviousOutputs map[string]any
	GlobalContext   map[string]any
	UserID          string
	FlowID          string
}

// SuccessResult carries a completed node's output and the set of outgoing
// handles that are live, so the coordinator knows which edges to follow.
type SuccessResult struct {
	Output  map[string]any
	Handles map[string]bool
}

// PauseResult tells the coordinator to persist the execution as paused and
// wait for an external resume.
type PauseResult struct {
	Reason          string
	ResumeCondition string
}

// FailureResult reports that a node failed, and whether it is safe to retry.
type FailureResult struct {
	ErrorKind string
	Message   string
	Retriable bool
}

// NodeResult is the tagged-union return value of ExecuteNode. Exactly one
// of Success, Pause or Failure is non-nil.
type NodeResult struct {
	Success *SuccessResult
	Pause   *PauseResult
	Failure *FailureResult
}

// NewSuccessResult builds a NodeResult carrying a Success variant.
func NewSuccessResult(output map[string]any, handles map[string]bool) NodeResult {
	return NodeResult{Success: &SuccessResult{Output: output, Handles: handles}}
}

// NewPauseResult builds a NodeResult carrying a Pause variant.
func NewPauseResult(reason, resumeCondition string) NodeResult {
	return NodeResult{Pause: &PauseResult{Reason: reason, ResumeCondition: resumeCondition}}
}

// NewFailureResult builds a NodeResult carrying a Failure variant.
func NewFailureResult(errorKind, message string, retriable bool) NodeResult {
	return NodeResult{Failure: &FailureResult{ErrorKind: errorKind, Message: message, Retriable: retriable}}
}

// DescribedExecutor is implemented by handlers that expose the full
// NodeHandler Registry contract (descriptor, config schema, interface
// definition and the NodeContext-shaped ExecuteNode) on top of the base
// Executor interface.
type DescribedExecutor interface {
	Executor

	// Descriptor reports this handler's registry metadata.
	Descriptor() Descriptor

	// ConfigSchema returns a JSON-Schema-shaped mapping describing this
	// handler's configuration. Handlers that dispatch on (resource,
	// operation) set an "x-multi-operation" key with "resources" and
	// "operations" sub-maps.
	ConfigSchema() map[string]any

	// InterfaceDefinition reports this handler's input and output ports.
	InterfaceDefinition() InterfaceDefinition

	// ExecuteNode runs the handler against a fully resolved NodeContext,
	// returning a NodeResult instead of a bare (any, error) pair.
	ExecuteNode(nc NodeContext) NodeResult
}

// Manager manages the registration and retrieval of executors.
// It provides a central registry for all executor types.
type Manager interface {
	// Register registers an executor for a specific node type.
	// If an executor for the type already exists, it will be replaced.
	Register(nodeType string, executor Executor) error

	// Get retrieves an executor by node type.
	// Returns an error if the executor is not found.
	Get(nodeType string) (Executor, error)

	// Has checks if an executor is registered for the given node type.
	Has(nodeType string) bool

	// List returns a list of all registered executor types.
	List() []string

	// Unregister removes an executor for a specific node type.
	Unregister(nodeType string) error

	// FuzzyFind returns the registered node type nearest to the given type,
	// for UNKNOWN_NODE_TYPE error suggestions.
	FuzzyFind(nodeType string) (string, bool)
}

// ExecutorFunc is an adapter to allow the use of ordinary functions as Executors.
// If f is a function with the appropriate signature, ExecutorFunc(f) is an Executor
// that calls f.
type ExecutorFunc struct {
	ExecuteFn  func(ctx context.Context, config map[string]any, input any) (any, error)
	ValidateFn func(config map[string]any) error
}

// Execute calls the ExecuteFn function.
func (f *ExecutorFunc) Execute(ctx context.Context, config map[string]any, input any) (any, error) {
	return f.ExecuteFn(ctx, config, input)
}

// Validate calls the ValidateFn function.
func (f *ExecutorFunc) Validate(config map[string]any) error {
	if f.ValidateFn == nil {
		return nil
	}
	return f.ValidateFn(config)
}

// ExecutionContext provides additional context for executor execution.
type ExecutionContext struct {
	ExecutionID string
	NodeID      string
	WorkflowID  string
	Metadata    map[string]any
}

// NewExecutorFunc creates a new ExecutorFunc with the given functions.
func NewExecutorFunc(
	executeFn func(ctx context.Context, config map[string]any, input any) (any, error),
	validateFn func(config map[string]any) error,
) Executor {
	return &ExecutorFunc{
		ExecuteFn:  executeFn,
		ValidateFn: validateFn,
	}
}

// BaseExecutor provides common functionality for executors.
type BaseExecutor struct {
	NodeType string
}

// NewBaseExecutor creates a new BaseExecutor.
func NewBaseExecutor(nodeType string) *BaseExecutor {
	return &BaseExecutor{
		NodeType: nodeType,
	}
}

// ValidateRequired validates that required fields are present in the configuration.
func (b *BaseExecutor) ValidateRequired(config map[string]any, fields ...string) error {
	for _, field := range fields {
		if _, ok := config[field]; !ok {
			return fmt.Errorf("required field missing: %s", field)
		}
	}
	return nil
}

// GetString safely retrieves a string value from config.
func (b *BaseExecutor) GetString(config map[string]any, key string) (string, error) {
	val, ok := config[key]
	if !ok {
		return "", fmt.Errorf("field not found: %s", key)
	}

	str, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("field %s is not a string", key)
	}

	return str, nil
}

// GetStringDefault safely retrieves a string value from config with a default.
func (b *BaseExecutor) GetStringDefault(config map[string]any, key, defaultValue string) string {
	val, ok := config[key]
	if !ok {
		return defaultValue
	}

	str, ok := val.(string)
	if !ok {
		return defaultValue
	}

	return str
}

// GetInt safely retrieves an int value from config.
func (b *BaseExecutor) GetInt(config map[string]any, key string) (int, error) {
	val, ok := config[key]
	if !ok {
		return 0, fmt.Errorf("field not found: %s", key)
	}

	// Handle both float64 (from JSON) and int
	switch v := val.(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	default:
		return 0, fmt.Errorf("field %s is not a number", key)
	}
}

// GetIntDefault safely retrieves an int value from config with a default.
func (b *BaseExecutor) GetIntDefault(config map[string]any, key string, defaultValue int) int {
	val, ok := config[key]
	if !ok {
		return defaultValue
	}

	switch v := val.(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return defaultValue
	}
}

// GetBool safely retrieves a bool value from config.
func (b *BaseExecutor) GetBool(config map[string]any, key string) (bool, error) {
	val, ok := config[key]
	if !ok {
		return false, fmt.Errorf("field not found: %s", key)
	}

	boolVal, ok := val.(bool)
	if !ok {
		return false, fmt.Errorf("field %s is not a boolean", key)
	}

	return boolVal, nil
}

// GetBoolDefault safely retrieves a bool value from config with a default.
func (b *BaseExecutor) GetBoolDefault(config map[string]any, key string, defaultValue bool) bool {
	val, ok := config[key]
	if !ok {
		return defaultValue
	}

	boolVal, ok := val.(bool)
	if !ok {
		return defaultValue
	}

	return boolVal
}

// GetMap safely retrieves a map value from config.
func (b *BaseExecutor) GetMap(config map[string]any, key string) (map[string]any, error) {
	val, ok := config[key]
	if !ok {
		return nil, fmt.Errorf("field not found: %s", key)
	}

	m, ok := val.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("field %s is not a map", key)
	}

	return m, nil
}

// Descriptor provides a minimal default so handlers that only implement the
// legacy Execute/Validate pair don't have to describe themselves; handlers
// with richer metadata override this.
func (b *BaseExecutor) Descriptor() Descriptor {
	return Descriptor{
		Type:        b.NodeType,
		DisplayName: b.NodeType,
		Category:    "general",
	}
}

// ConfigSchema returns an empty schema by default.
func (b *BaseExecutor) ConfigSchema() map[string]any {
	return map[string]any{}
}

// InterfaceDefinition returns a single default input/output port by default.
func (b *BaseExecutor) InterfaceDefinition() InterfaceDefinition {
	return InterfaceDefinition{
		Inputs:  []PortSpec{{Name: "input", Type: "object"}},
		Outputs: []PortSpec{{Name: "output", Type: "object"}},
	}
}

// LegacyResultAdapter wraps an Executor's (any, error) Execute method into
// the NodeResult-shaped ExecuteNode contract, so built-in handlers written
// against the old signature keep working through the registry unchanged.
type LegacyResultAdapter struct {
	Executor
}

// NewLegacyResultAdapter wraps an existing Executor so it satisfies
// DescribedExecutor.
func NewLegacyResultAdapter(inner Executor) *LegacyResultAdapter {
	return &LegacyResultAdapter{Executor: inner}
}

// Descriptor delegates to the wrapped executor when it already describes
// itself, otherwise falls back to a type-only descriptor.
func (a *LegacyResultAdapter) Descriptor() Descriptor {
	if d, ok := a.Executor.(interface{ Descriptor() Descriptor }); ok {
		return d.Descriptor()
	}
	return Descriptor{}
}

// ConfigSchema delegates to the wrapped executor when available.
func (a *LegacyResultAdapter) ConfigSchema() map[string]any {
	if s, ok := a.Executor.(interface{ ConfigSchema() map[string]any }); ok {
		return s.ConfigSchema()
	}
	return map[string]any{}
}

// InterfaceDefinition delegates to the wrapped executor when available.
func (a *LegacyResultAdapter) InterfaceDefinition() InterfaceDefinition {
	if d, ok := a.Executor.(interface{ InterfaceDefinition() InterfaceDefinition }); ok {
		return d.InterfaceDefinition()
	}
	return InterfaceDefinition{}
}

// ExecuteNode calls the wrapped executor's legacy Execute and folds the
// result into a NodeResult. A returned error becomes a retriable Failure;
// a boolean output (the conditional executor's convention) becomes a
// Success whose Handles select the matching true/false edge; anything else
// becomes a plain Success with the value under an "output" key.
func (a *LegacyResultAdapter) ExecuteNode(nc NodeContext) (result NodeResult) {
	defer func() {
		if r := recover(); r != nil {
			result = NewFailureResult("HANDLER_CRASH", fmt.Sprintf("handler panicked: %v", r), false)
		}
	}()

	out, err := a.Executor.Execute(nc.Context, nc.Config, nc.InputData)
	if err != nil {
		return NewFailureResult("HANDLER_ERROR", err.Error(), true)
	}

	if boolOut, ok := out.(bool); ok {
		return NewSuccessResult(
			map[string]any{"result": boolOut},
			map[string]bool{"true": boolOut, "false": !boolOut},
		)
	}

	if mapOut, ok := out.(map[string]any); ok {
		return NewSuccessResult(mapOut, nil)
	}

	return NewSuccessResult(map[string]any{"output": out}, nil)
}

// OpFunc is one (resource, operation) dispatch target for a
// MultiOperationExecutor.
type OpFunc func(ctx context.Context, config map[string]any, input any) (any, error)

// MultiOperationExecutor is a base for handlers whose config schema
// declares "x-multi-operation": dispatch is keyed on config["resource"]
// and config["operation"] against a registered table of OpFuncs. The
// registry itself stays opaque to this dispatch; it only ever sees one
// Executor per node type.
type MultiOperationExecutor struct {
	*BaseExecutor
	ops map[string]map[string]OpFunc
}

// NewMultiOperationExecutor creates a MultiOperationExecutor for the given
// node type with an empty dispatch table.
func NewMultiOperationExecutor(nodeType string) *MultiOperationExecutor {
	return &MultiOperationExecutor{
		BaseExecutor: NewBaseExecutor(nodeType),
		ops:          make(map[string]map[string]OpFunc),
	}
}

// RegisterOperation adds a (resource, operation) dispatch target.
func (m *MultiOperationExecutor) RegisterOperation(resource, operation string, fn OpFunc) {
	if m.ops[resource] == nil {
		m.ops[resource] = make(map[string]OpFunc)
	}
	m.ops[resource][operation] = fn
}

// Execute resolves config["resource"]/config["operation"] against the
// dispatch table and invokes the matching OpFunc.
func (m *MultiOperationExecutor) Execute(ctx context.Context, config map[string]any, input any) (any, error) {
	resource, err := m.GetString(config, "resource")
	if err != nil {
		return nil, fmt.Errorf("resource is required: %w", err)
	}

	operation, err := m.GetString(config, "operation")
	if err != nil {
		return nil, fmt.Errorf("operation is required: %w", err)
	}

	operations, ok := m.ops[resource]
	if !ok {
		return nil, fmt.Errorf("unknown resource: %s", resource)
	}

	fn, ok := operations[operation]
	if !ok {
		return nil, fmt.Errorf("unknown operation %s for resource %s", operation, resource)
	}

	return fn(ctx, config, input)
}

// Validate confirms the declared resource/operation pair exists in the
// dispatch table.
func (m *MultiOperationExecutor) Validate(config map[string]any) error {
	resource, err := m.GetString(config, "resource")
	if err != nil {
		return fmt.Errorf("resource is required: %w", err)
	}

	operation, err := m.GetString(config, "operation")
	if err != nil {
		return fmt.Errorf("operation is required: %w", err)
	}

	operations, ok := m.ops[resource]
	if !ok {
		return fmt.Errorf("unknown resource: %s", resource)
	}

	if _, ok := operations[operation]; !ok {
		return fmt.Errorf("unknown operation %s for resource %s", operation, resource)
	}

	return nil
}
