package dax

import "fmt"

// GenerationError reports an IR construct the generator cannot render.
type GenerationError struct {
	Message   string
	Construct string
}

func (e *GenerationError) Error() string {
	if e.Construct != "" {
		return fmt.Sprintf("dax generation: %s (construct %s)", e.Message, e.Construct)
	}
	return "dax generation: " + e.Message
}
