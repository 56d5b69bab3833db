package lint

import (
	"fmt"
	"time"
)

// Action records one rewrite a rule performed.
type Action struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Before      string `json:"before,omitempty"`
	After       string `json:"after,omitempty"`
}

// Report summarizes a lint pass.
type Report struct {
	Level         OptimizationLevel `json:"-"`
	LevelName     string            `json:"level"`
	StartedAt     time.Time         `json:"started_at"`
	FinishedAt    time.Time         `json:"finished_at"`
	Duration      time.Duration     `json:"duration"`
	OriginalSize  int               `json:"original_size"`
	OptimizedSize int               `json:"optimized_size"`
	SizeReduction float64           `json:"size_reduction_pct"`
	Actions       []Action          `json:"actions"`
	RulesApplied  []string          `json:"rules_applied"`
	Errors        []string          `json:"errors,omitempty"`
	Warnings      []string          `json:"warnings,omitempty"`
	Truncated     bool              `json:"truncated,omitempty"`
}

// LintError reports an internal failure of one rule. Rule failures are
// non-fatal for the pass; the rule's output is discarded.
type LintError struct {
	Rule    string
	Message string
}

func (e *LintError) Error() string {
	return fmt.Sprintf("lint rule %s: %s", e.Rule, e.Message)
}
