package engine

import "fmt"

// ValidationError reports caller input that fails a precondition before the
// pipeline runs.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return "invalid input: " + e.Message
}

// ConfigurationError reports an invalid engine-level option combination.
type ConfigurationError struct {
	Key     string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("engine config %s: %s", e.Key, e.Message)
	}
	return "engine config: " + e.Message
}
