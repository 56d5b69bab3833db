package transform

import "fmt"

// TransformationError describes a structurally valid parse tree that cannot
// be mapped to the intermediate representation.
type TransformationError struct {
	Message  string
	NodeType string // AST node type that had no handler, when applicable
	Context  string
}

func (e *TransformationError) Error() string {
	msg := "transformation error: " + e.Message
	if e.NodeType != "" {
		msg += fmt.Sprintf(" (node %s)", e.NodeType)
	}
	if e.Context != "" {
		msg += fmt.Sprintf(" in %q", e.Context)
	}
	return msg
}
