package dax

import (
	"fmt"
	"strconv"
	"strings"

	"mdx2dax/internal/query"
)

// Generator renders IR queries as DAX text according to its options.
// A Generator is stateless across calls and safe for concurrent use.
type Generator struct {
	opts Options
}

// NewGenerator returns a generator with the given options.
func NewGenerator(opts Options) *Generator {
	if opts.IndentSize <= 0 {
		opts.IndentSize = 4
	}
	if opts.MaxLineLength <= 0 {
		opts.MaxLineLength = 100
	}
	return &Generator{opts: opts}
}

// Generate renders a query with default options.
func Generate(q *query.Query) (string, error) {
	return NewGenerator(DefaultOptions()).Generate(q)
}

// Generate renders the query. The result is a complete DAX statement: an
// optional DEFINE block, the EVALUATE body, and any ORDER BY clause.
func (g *Generator) Generate(q *query.Query) (string, error) {
	if q == nil {
		return "", &GenerationError{Message: "nil query"}
	}

	var sections []string

	if g.opts.IncludeComments {
		sections = append(sections, g.headerComments(q)...)
	}

	define, err := g.defineBlock(q)
	if err != nil {
		return "", err
	}
	if define != "" {
		sections = append(sections, define)
	}

	body, err := g.tableExpression(q)
	if err != nil {
		return "", err
	}
	sections = append(sections, "EVALUATE\n"+body)

	orderBy, err := g.orderByClause(q)
	if err != nil {
		return "", err
	}
	if orderBy != "" {
		sections = append(sections, orderBy)
	}

	out := strings.Join(sections, "\n")
	if g.opts.FormatOutput {
		out = Format(out, g.opts.IndentSize)
	}
	return out, nil
}

func (g *Generator) headerComments(q *query.Query) []string {
	var lines []string
	if q.Metadata.SourceHash != "" {
		lines = append(lines, "-- source: "+q.Metadata.SourceHash)
	}
	for _, w := range q.Metadata.Warnings {
		lines = append(lines, "-- warning: "+w)
	}
	return lines
}

// defineBlock emits one MEASURE line per calculated measure. Named sets and
// non-measure calculated members have no DEFINE rendering and are reported
// by ValidateForDAX instead.
func (g *Generator) defineBlock(q *query.Query) (string, error) {
	var lines []string
	for _, c := range q.Calculations {
		if c.Type != query.CalcMeasure {
			continue
		}
		expr, err := ConvertExpr(c.Expression)
		if err != nil {
			return "", fmt.Errorf("calculated measure %q: %w", c.Name, err)
		}
		lines = append(lines, fmt.Sprintf("MEASURE %s[%s] = %s",
			quoteTable(q.Cube.Name), c.Name, expr))
	}
	if len(lines) == 0 {
		return "", nil
	}
	return "DEFINE\n" + strings.Join(lines, "\n"), nil
}

// tableExpression builds the EVALUATE body: the core projection wrapped by
// filter, non-empty, and limit layers from the inside out.
func (g *Generator) tableExpression(q *query.Query) (string, error) {
	body, err := g.projection(q)
	if err != nil {
		return "", err
	}

	body, err = g.applyFilters(q, body)
	if err != nil {
		return "", err
	}

	if q.NonEmpty && len(q.Measures) > 0 && len(q.Dimensions) > 0 {
		pred := fmt.Sprintf("NOT(ISBLANK([%s]))", q.Measures[0].Name)
		body = g.wrapCall("FILTER", []string{body, pred})
	}

	if q.Limit != nil && q.Limit.Count > 0 {
		body = g.wrapCall("TOPN", []string{strconv.Itoa(q.Limit.Count), body})
	}

	return body, nil
}

// projection renders the unfiltered result shape.
func (g *Generator) projection(q *query.Query) (string, error) {
	switch {
	case len(q.Measures) == 0 && len(q.Dimensions) == 0:
		return `ROW("Result", BLANK())`, nil

	case len(q.Dimensions) == 0:
		return g.measureOnly(q)

	default:
		return g.summarize(q)
	}
}

// measureOnly renders queries with measures but no grouping dimensions. A
// single unaliased base measure uses the table-constructor form; anything
// else goes through ROW.
func (g *Generator) measureOnly(q *query.Query) (string, error) {
	if len(q.Measures) == 1 {
		m := q.Measures[0]
		if m.Alias == "" && m.Aggregation != query.AggCustom {
			return "{ [" + m.Name + "] }", nil
		}
	}
	args := make([]string, 0, len(q.Measures)*2)
	for _, m := range q.Measures {
		args = append(args, quoteString(m.DisplayName()), "["+m.Name+"]")
	}
	return g.rowCall(args), nil
}

// rowCall renders ROW("Alias", expr, ...) pairing alias and expression on
// one line per measure.
func (g *Generator) rowCall(args []string) string {
	pairs := make([]string, 0, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		pairs = append(pairs, args[i]+", "+args[i+1])
	}
	return g.wrapCall("ROW", pairs)
}

// summarize renders the dimensional projection. SUMMARIZECOLUMNS takes the
// dimension columns directly; the SUMMARIZE fallback scans the cube table.
func (g *Generator) summarize(q *query.Query) (string, error) {
	var args []string
	if !g.opts.UseSummarizeColumns {
		args = append(args, quoteTable(q.Cube.Name))
	}
	for _, d := range q.Dimensions {
		args = append(args, columnRef(d.Table, d.Level))
	}
	for _, m := range q.Measures {
		args = append(args, quoteString(m.DisplayName())+", ["+m.Name+"]")
	}

	name := "SUMMARIZECOLUMNS"
	if !g.opts.UseSummarizeColumns {
		name = "SUMMARIZE"
	}
	return g.blockCall(name, args), nil
}

// applyFilters wraps the body in CALCULATETABLE for dimension filters and
// FILTER for measure filters.
func (g *Generator) applyFilters(q *query.Query, body string) (string, error) {
	var dimArgs []string
	var measurePreds []string

	for _, f := range q.Filters {
		switch flt := f.(type) {
		case *query.DimensionFilter:
			pred, err := g.dimensionPredicate(flt)
			if err != nil {
				return "", err
			}
			dimArgs = append(dimArgs, pred)
		case *query.MeasureFilter:
			measurePreds = append(measurePreds, fmt.Sprintf("[%s] %s %s",
				flt.Measure.Name, flt.Operator, formatValue(flt.Value)))
		default:
			return "", &GenerationError{
				Message:   "unknown filter type",
				Construct: fmt.Sprintf("%T", f),
			}
		}
	}

	if len(dimArgs) > 0 {
		body = g.blockCall("CALCULATETABLE", append([]string{body}, dimArgs...))
	}
	for _, pred := range measurePreds {
		body = g.wrapCall("FILTER", []string{body, pred})
	}
	return body, nil
}

// dimensionPredicate renders one dimension filter. With filter optimization
// a plain boolean predicate is passed to CALCULATETABLE; otherwise the
// predicate is wrapped in FILTER(ALL(Table), ...).
func (g *Generator) dimensionPredicate(f *query.DimensionFilter) (string, error) {
	col := columnRef(f.Dimension.Table, f.Dimension.Level)

	var pred string
	switch {
	case f.Operator == query.OpIn || len(f.Values) > 1:
		vals := make([]string, len(f.Values))
		for i, v := range f.Values {
			vals[i] = formatValue(v)
		}
		pred = col + " IN {" + strings.Join(vals, ", ") + "}"
	case len(f.Values) == 1:
		pred = fmt.Sprintf("%s %s %s", col, f.Operator, formatValue(f.Values[0]))
	default:
		return "", &GenerationError{
			Message:   "dimension filter has no values",
			Construct: "DimensionFilter",
		}
	}

	if !g.opts.OptimizeFilters {
		pred = fmt.Sprintf("FILTER(ALL(%s), %s)", quoteTable(f.Dimension.Table), pred)
	}
	return pred, nil
}

func (g *Generator) orderByClause(q *query.Query) (string, error) {
	if len(q.OrderBy) == 0 {
		return "", nil
	}
	items := make([]string, len(q.OrderBy))
	for i, o := range q.OrderBy {
		expr, err := ConvertExpr(o.Expr)
		if err != nil {
			return "", fmt.Errorf("order by item %d: %w", i+1, err)
		}
		if o.Descending {
			expr += " DESC"
		}
		items[i] = expr
	}
	return "ORDER BY " + strings.Join(items, ", "), nil
}

// wrapCall renders name(arg1, arg2, ...) on one line when it fits within
// the length limit, otherwise one argument per line.
func (g *Generator) wrapCall(name string, args []string) string {
	oneLine := name + "(" + strings.Join(args, ", ") + ")"
	if len(oneLine) <= g.opts.MaxLineLength && !strings.Contains(oneLine, "\n") {
		return oneLine
	}
	return g.blockCall(name, args)
}

// blockCall always renders one argument per line.
func (g *Generator) blockCall(name string, args []string) string {
	indent := strings.Repeat(" ", g.opts.IndentSize)
	lines := make([]string, len(args))
	for i, a := range args {
		suffix := ","
		if i == len(args)-1 {
			suffix = ""
		}
		lines[i] = indentLines(a, indent) + suffix
	}
	return name + "(\n" + strings.Join(lines, "\n") + "\n)"
}

// indentLines prefixes every line of s with the indent string.
func indentLines(s, indent string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = indent + l
	}
	return strings.Join(lines, "\n")
}

// formatValue renders a typed filter value as a DAX literal.
func formatValue(v any) string {
	switch x := v.(type) {
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case string:
		return quoteString(x)
	default:
		return quoteString(fmt.Sprint(x))
	}
}

// ValidateForDAX flags IR shapes whose DAX rendering is lossy or absent.
// Generation still proceeds; strict callers must check this list first.
func ValidateForDAX(q *query.Query) []string {
	if q == nil {
		return []string{"nil query"}
	}
	var warnings []string

	if q.Limit != nil && q.Limit.Offset != 0 {
		warnings = append(warnings,
			fmt.Sprintf("limit offset %d has no DAX equivalent and is not rendered", q.Limit.Offset))
	}

	for _, c := range q.Calculations {
		switch c.Type {
		case query.CalcSet:
			warnings = append(warnings,
				fmt.Sprintf("named set %q has no DEFINE rendering", c.Name))
		case query.CalcMember:
			warnings = append(warnings,
				fmt.Sprintf("calculated member %q is not a measure and is not rendered in DEFINE", c.Name))
		}
		warnings = append(warnings, ValidateExpr(c.Expression)...)
	}

	for _, d := range q.Dimensions {
		if d.IsCalculated {
			warnings = append(warnings,
				fmt.Sprintf("dimension %s membership is computed at runtime; static column projection may differ", d.Hierarchy))
		}
		if d.Ragged {
			warnings = append(warnings,
				fmt.Sprintf("hierarchy %s has ragged member paths; level snapping may drop intermediate members", d.Hierarchy))
		}
	}

	for _, o := range q.OrderBy {
		warnings = append(warnings, ValidateExpr(o.Expr)...)
	}

	return warnings
}
