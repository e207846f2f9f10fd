package engine

// Source handle constants for conditional nodes
const (
	// SourceHandleTrue represents the "true" branch from a conditional node
	SourceHandleTrue = "true"

	// SourceHandleFalse represents the "false" branch from a conditional node
	SourceHandleFalse = "false"

	// ErrorHandleName is the outgoing handle a failed node routes through
	// when its ErrorPolicy is "continue" instead of "stop".
	ErrorHandleName = "error"
)

// Node types
const (
	// NodeTypeConditional represents a conditional/branching node
	NodeTypeConditional = "conditional"
)
