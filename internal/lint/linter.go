package lint

import (
	"fmt"
	"time"

	"mdx2dax/internal/mdx"
)

// Lint runs the configured rule set over a parsed query and returns the
// rewritten tree with a report of everything that changed. The input tree
// is never modified. A rule that panics is recorded in the report and its
// output discarded; linting continues with the remaining rules.
func Lint(q *mdx.Query, source string, cfg Config) (*mdx.Query, *Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if q == nil {
		return nil, nil, &LintError{Rule: "input", Message: "nil query"}
	}

	start := time.Now()
	report := &Report{
		Level:     cfg.Level,
		LevelName: cfg.Level.String(),
		StartedAt: start,
	}

	tree := mdx.CloneQuery(q)
	if source != "" {
		report.OriginalSize = len(source)
	} else {
		report.OriginalSize = len(mdx.FormatQuery(tree))
	}

	var deadline time.Time
	if cfg.MaxProcessingTime > 0 {
		deadline = start.Add(cfg.MaxProcessingTime)
	}

	for _, r := range rules {
		if !cfg.enabled(r.name, r.level) {
			continue
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			report.Truncated = true
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("processing time budget exceeded before rule %s; returning best tree so far", r.name))
			break
		}

		next, actions, err := applyRule(r, cfg, tree)
		if err != nil {
			report.Errors = append(report.Errors, err.Error())
			continue
		}
		tree = next
		report.RulesApplied = append(report.RulesApplied, r.name)
		report.Actions = append(report.Actions, actions...)
	}

	report.OptimizedSize = len(mdx.FormatQuery(tree))
	if report.OriginalSize > 0 {
		report.SizeReduction = 100 * float64(report.OriginalSize-report.OptimizedSize) /
			float64(report.OriginalSize)
	}

	tree, err := validateTree(tree, q, cfg, report)

	report.FinishedAt = time.Now()
	report.Duration = report.FinishedAt.Sub(report.StartedAt)
	return tree, report, err
}

// applyRule runs one rule, converting a panic into a LintError so a broken
// rule cannot abort the pass.
func applyRule(r rule, cfg Config, tree *mdx.Query) (out *mdx.Query, actions []Action, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out, actions = nil, nil
			err = &LintError{Rule: r.name, Message: fmt.Sprint(rec)}
		}
	}()
	out, actions = r.apply(cfg, tree)
	return out, actions, nil
}

// validateTree checks that the linted tree still parses. A failure either
// downgrades to a warning or reverts to the original tree, depending on
// configuration.
func validateTree(tree, original *mdx.Query, cfg Config, report *Report) (*mdx.Query, error) {
	_, err := mdx.Parse(mdx.FormatQuery(tree))
	if err == nil {
		return tree, nil
	}

	if cfg.SkipOnValidationError {
		report.Warnings = append(report.Warnings,
			"linted tree failed validation, output kept: "+err.Error())
		return tree, nil
	}

	lerr := &LintError{Rule: "validation", Message: "linted tree failed to re-parse: " + err.Error()}
	report.Errors = append(report.Errors, lerr.Error())
	return mdx.CloneQuery(original), lerr
}
