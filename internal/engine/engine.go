// Package engine orchestrates the conversion pipeline: parse, lint,
// transform, generate. Every call builds fresh pipeline state, so
// conversions are independent and safe to run concurrently.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"mdx2dax/internal/dax"
	"mdx2dax/internal/lint"
	"mdx2dax/internal/mdx"
	"mdx2dax/internal/query"
	"mdx2dax/internal/transform"
)

// Options configures one conversion.
type Options struct {
	Parser mdx.Options
	Lint   lint.Config
	DAX    dax.Options

	// SkipLint bypasses the linter entirely, leaving the parsed tree
	// untouched.
	SkipLint bool
}

// DefaultOptions returns the standard pipeline configuration.
func DefaultOptions() Options {
	return Options{
		Lint: lint.DefaultConfig(),
		DAX:  dax.DefaultOptions(),
	}
}

// Result is the outcome of one conversion.
type Result struct {
	// ID identifies the conversion for logging and API responses.
	ID string

	DAX        string
	Query      *query.Query
	LintReport *lint.Report

	// Warnings aggregates transform metadata warnings and DAX validation
	// advisories. Generation proceeds despite them.
	Warnings []string

	Duration time.Duration
}

// Convert runs the full pipeline over one MDX query. Parse and transform
// failures abort the call; lint rule failures and generation advisories are
// carried as warnings on the result.
func Convert(ctx context.Context, mdxText string, opts Options) (*Result, error) {
	start := time.Now()

	if strings.TrimSpace(mdxText) == "" {
		return nil, &ValidationError{Field: "query", Message: "query text is empty"}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tree, err := mdx.ParseWithOptions(mdxText, opts.Parser)
	if err != nil {
		return nil, err
	}

	result := &Result{ID: uuid.NewString()}

	if !opts.SkipLint && opts.Lint.Level != lint.LevelNone {
		linted, report, err := lint.Lint(tree, mdxText, opts.Lint)
		if err != nil {
			var cfgErr *lint.ConfigurationError
			if errors.As(err, &cfgErr) {
				return nil, err
			}
			// post-lint validation reverted; continue on the returned tree
			result.Warnings = append(result.Warnings, err.Error())
		}
		if linted != nil {
			tree = linted
		}
		result.LintReport = report
	}

	ir, err := transform.Transform(tree, mdxText)
	if err != nil {
		return nil, err
	}
	result.Query = ir
	result.Warnings = append(result.Warnings, ir.Metadata.Warnings...)
	result.Warnings = append(result.Warnings, dax.ValidateForDAX(ir)...)

	text, err := dax.NewGenerator(opts.DAX).Generate(ir)
	if err != nil {
		return nil, err
	}
	result.DAX = text
	result.Duration = time.Since(start)
	return result, nil
}

// BatchItem pairs one batch input with its outcome. Err is set instead of
// Result when that query failed; sibling queries are unaffected.
type BatchItem struct {
	Index  int
	Source string
	Result *Result
	Err    error
}

// ConvertBatch converts queries concurrently with bounded parallelism.
// Results come back in input order. Only context cancellation aborts the
// batch; individual query failures are recorded per item.
func ConvertBatch(ctx context.Context, queries []string, opts Options, maxParallel int) ([]BatchItem, error) {
	if maxParallel <= 0 {
		maxParallel = 4
	}

	items := make([]BatchItem, len(queries))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)

	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := Convert(ctx, q, opts)
			items[i] = BatchItem{Index: i, Source: q, Result: res, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return items, fmt.Errorf("batch conversion aborted: %w", err)
	}
	return items, nil
}
