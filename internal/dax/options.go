// Package dax renders the intermediate query representation as DAX text.
// Generation is best-effort: unsupported IR shapes are surfaced through
// ValidateForDAX as advisory strings so callers can decide whether to trust
// the output, while structurally unrenderable constructs fail with a
// GenerationError.
package dax

// Options controls DAX generation and formatting.
type Options struct {
	// UseSummarizeColumns selects SUMMARIZECOLUMNS for dimensional queries.
	// When false the generator falls back to SUMMARIZE over the cube table.
	UseSummarizeColumns bool

	// OptimizeFilters renders equality filters as boolean predicates passed
	// directly to CALCULATETABLE. When false each dimension filter is
	// wrapped in FILTER(ALL(Table), predicate).
	OptimizeFilters bool

	// IncludeComments prepends provenance and warning comment lines.
	IncludeComments bool

	// FormatOutput runs the formatter over the generated text.
	FormatOutput bool

	MaxLineLength int
	IndentSize    int
}

// DefaultOptions returns the generation defaults.
func DefaultOptions() Options {
	return Options{
		UseSummarizeColumns: true,
		OptimizeFilters:     true,
		MaxLineLength:       100,
		IndentSize:          4,
	}
}
