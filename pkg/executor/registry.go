package executor

import (
	"fmt"
	"sync"

	"github.com/gridflow/gridflow/pkg/models"
)

// Registry implements the Manager interface with thread-safe executor registration.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]Executor
}

// NewRegistry creates a new executor registry.
func NewRegistry() *Registry {
	return &Registry{
		executors: make(map[string]Executor),
	}
}

// NewManager creates a new executor manager.
// Built-in executors should be registered separately using RegisterBuiltins function
// from pkg/executor/builtin package to avoid import cycles.
func NewManager() Manager {
	return NewRegistry()
}

// Register registers an executor for a specific node type.
func (r *Registry) Register(nodeType string, executor Executor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if nodeType == "" {
		return fmt.Errorf("node type cannot be empty")
	}

	if executor == nil {
		return fmt.Errorf("executor cannot be nil")
	}

	r.executors[nodeType] = executor
	return nil
}

// Get retrieves an executor by node type.
func (r *Registry) Get(nodeType string) (Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	executor, ok := r.executors[nodeType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrExecutorNotFound, nodeType)
	}

	return executor, nil
}

// Has checks if an executor is registered for the given node type.
func (r *Registry) Has(nodeType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.executors[nodeType]
	return ok
}

// List returns a list of all registered executor types.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.executors))
	for nodeType := range r.executors {
		types = append(types, nodeType)
	}

	return types
}

// Unregister removes an executor for a specific node type.
func (r *Registry) Unregister(nodeType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.executors[nodeType]; !ok {
		return fmt.Errorf("%w: %s", models.ErrExecutorNotFound, nodeType)
	}

	delete(r.executors, nodeType)
	return nil
}

// FuzzyFind returns the registered node type nearest to the given type by
// Levenshtein distance, for UNKNOWN_NODE_TYPE error suggestions. Returns
// false if the registry is empty.
func (r *Registry) FuzzyFind(nodeType string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best string
	bestDist := -1
	for candidate := range r.executors {
		dist := levenshtein(nodeType, candidate)
		if bestDist == -1 || dist < bestDist {
			bestDist = dist
			best = candidate
		}
	}

	if bestDist == -1 {
		return "", false
	}
	return best, true
}

// defaultRegistry is a process-wide registry used by the package-level
// Register/Get/Has/List/Unregister/FuzzyFind convenience functions, for
// callers that don't need to manage their own Manager instance.
var defaultRegistry = NewRegistry()

// Register registers an executor on the default registry.
func Register(nodeType string, exec Executor) error {
	return defaultRegistry.Register(nodeType, exec)
}

// Get retrieves an executor from the default registry.
func Get(nodeType string) (Executor, error) {
	return defaultRegistry.Get(nodeType)
}

// Has checks the default registry for a registered node type.
func Has(nodeType string) bool {
	return defaultRegistry.Has(nodeType)
}

// List returns all node types registered on the default registry.
func List() []string {
	return defaultRegistry.List()
}

// Unregister removes a node type from the default registry.
func Unregister(nodeType string) error {
	return defaultRegistry.Unregister(nodeType)
}

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			min := del
			if ins < min {
				min = ins
			}
			if sub < min {
				min = sub
			}
			curr[j] = min
		}
		prev, curr = curr, prev
	}

	return prev[lb]
}
