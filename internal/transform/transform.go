package transform

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"mdx2dax/internal/mdx"
	"mdx2dax/internal/query"
)

// Transform lowers a parsed MDX query into the canonical intermediate
// representation. The source text, when provided, is hashed into the
// metadata and re-scanned for comment hints.
func Transform(q *mdx.Query, source string) (*query.Query, error) {
	start := time.Now()

	if q == nil || q.Select == nil {
		return nil, &TransformationError{Message: "query has no SELECT statement"}
	}

	out := &query.Query{}

	cube, err := transformCubeRef(q.Select.From)
	if err != nil {
		return nil, err
	}
	out.Cube = cube

	calcs, err := transformCalculations(q.With)
	if err != nil {
		return nil, err
	}
	out.Calculations = calcs

	if err := transformAxes(q.Select.Axes, out); err != nil {
		return nil, err
	}

	if q.Select.Where != nil {
		if err := transformSlicer(q.Select.Where, out); err != nil {
			return nil, err
		}
	}

	normalizeLevels(q, out)
	attachHints(q, source, out)
	finishMetadata(out, source, start)

	return out, nil
}

// transformCubeRef maps the FROM clause onto a cube reference. One part is
// the cube name, two parts are schema.cube, three or more are
// database.schema.cube.
func transformCubeRef(from *mdx.CubeRef) (query.CubeRef, error) {
	if from == nil || len(from.Parts) == 0 {
		return query.CubeRef{}, &TransformationError{
			Message:  "query has no FROM clause",
			NodeType: "SelectStmt",
		}
	}
	parts := from.Parts
	switch len(parts) {
	case 1:
		return query.CubeRef{Name: parts[0]}, nil
	case 2:
		return query.CubeRef{Schema: parts[0], Name: parts[1]}, nil
	default:
		return query.CubeRef{
			Database: parts[0],
			Schema:   strings.Join(parts[1:len(parts)-1], "."),
			Name:     parts[len(parts)-1],
		}, nil
	}
}

// transformCalculations lowers WITH-clause definitions. Calculated measures
// are recognized by a [Measures] prefix on the definition name.
func transformCalculations(with *mdx.WithClause) ([]query.Calculation, error) {
	if with == nil {
		return nil, nil
	}
	calcs := make([]query.Calculation, 0, len(with.Defs))
	for _, def := range with.Defs {
		names := def.Name.NameSegments()
		if len(names) == 0 {
			return nil, &TransformationError{
				Message:  "calculated definition has no name",
				NodeType: "WithDef",
			}
		}
		name := names[len(names)-1]

		typ := query.CalcMember
		switch {
		case def.Kind == mdx.DefSet:
			typ = query.CalcSet
		case strings.EqualFold(names[0], "Measures"):
			typ = query.CalcMeasure
		}

		expr, err := transformExpression(def.Expr)
		if err != nil {
			return nil, fmt.Errorf("calculation %q: %w", name, err)
		}
		calcs = append(calcs, query.Calculation{Name: name, Type: typ, Expression: expr})
	}
	return calcs, nil
}

// dimAccum merges repeated references to the same hierarchy across axes
// while preserving first-appearance order.
type dimAccum struct {
	order []string
	byKey map[string]*query.Dimension
}

func newDimAccum() *dimAccum {
	return &dimAccum{byKey: make(map[string]*query.Dimension)}
}

func (a *dimAccum) add(d query.Dimension) {
	key := strings.ToLower(d.Hierarchy)
	existing, ok := a.byKey[key]
	if !ok {
		a.order = append(a.order, key)
		a.byKey[key] = &d
		return
	}
	mergeSelection(existing, d)
	if d.IsCalculated {
		existing.IsCalculated = true
	}
}

// mergeSelection folds a later reference into an existing dimension. A
// specific or children selection always beats ALL; two specific selections
// union their members first-seen.
func mergeSelection(dst *query.Dimension, src query.Dimension) {
	switch {
	case src.Selection.Kind == query.SelectAll:
		return
	case dst.Selection.Kind == query.SelectAll:
		dst.Selection = src.Selection
	case dst.Selection.Kind == query.SelectSpecific && src.Selection.Kind == query.SelectSpecific:
		seen := make(map[string]bool, len(dst.Selection.Members))
		for _, m := range dst.Selection.Members {
			seen[strings.ToLower(m)] = true
		}
		for _, m := range src.Selection.Members {
			if !seen[strings.ToLower(m)] {
				dst.Selection.Members = append(dst.Selection.Members, m)
				seen[strings.ToLower(m)] = true
			}
		}
	}
}

func (a *dimAccum) list() []query.Dimension {
	dims := make([]query.Dimension, 0, len(a.order))
	for _, key := range a.order {
		dims = append(dims, *a.byKey[key])
	}
	return dims
}

// transformAxes flattens each axis set and classifies members into measures
// and dimensions. Measures deduplicate by name, dimensions by hierarchy.
func transformAxes(axes []*mdx.AxisSpec, out *query.Query) error {
	dims := newDimAccum()
	seenMeasures := make(map[string]bool)

	for _, axis := range axes {
		if axis.NonEmpty {
			out.NonEmpty = true
		}

		fs := Flatten(axis.Set)
		calcAxis := fs.IsCalculated || !CanFlattenToSimpleList(axis.Set)

		for _, m := range fs.Members {
			names := m.NameSegments()
			if len(names) == 0 {
				continue
			}
			if strings.EqualFold(names[0], "Measures") {
				addMeasure(out, seenMeasures, names)
				continue
			}
			dims.add(axisDimension(m, names, calcAxis))
		}

		if len(fs.Members) == 0 && fs.Operation == OpCrossjoin {
			out.AddWarning("axis set flattened to no members")
		}

		collectOrderAndLimit(axis.Set, fs, out)
	}

	out.Dimensions = dims.list()
	return nil
}

// addMeasure appends a measure, wiring a WITH-clause expression when the
// name matches a calculated measure.
func addMeasure(out *query.Query, seen map[string]bool, names []string) {
	name := names[len(names)-1]
	key := strings.ToLower(name)
	if seen[key] {
		return
	}
	seen[key] = true

	m := query.Measure{Name: name, Aggregation: inferAggregation(name)}
	for _, c := range out.Calculations {
		if c.Type == query.CalcMeasure && strings.EqualFold(c.Name, name) {
			m.Aggregation = query.AggCustom
			m.Expression = c.Expression
			break
		}
	}
	out.Measures = append(out.Measures, m)
}

// inferAggregation guesses the aggregation kind from the measure name.
// Unrecognized names default to SUM.
func inferAggregation(name string) query.AggregationType {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "distinct"):
		return query.AggDistinctCount
	case strings.Contains(n, "count"):
		return query.AggCount
	case strings.Contains(n, "avg"), strings.Contains(n, "average"):
		return query.AggAvg
	case strings.Contains(n, "min"):
		return query.AggMin
	case strings.Contains(n, "max"):
		return query.AggMax
	default:
		return query.AggSum
	}
}

// axisDimension builds one dimension from a member path on an axis. The
// level is a hint only; normalizeLevels snaps every dimension to the deepest
// level seen for its hierarchy.
func axisDimension(m *mdx.MemberExpr, names []string, calcAxis bool) query.Dimension {
	hierarchy := names[0]
	level := ""
	if len(names) > 1 {
		level = names[1]
	}

	sel := query.MemberSelection{Kind: query.SelectAll}
	switch {
	case m.HasSuffix(mdx.SegChildren):
		sel = query.MemberSelection{Kind: query.SelectChildren, Parent: names[len(names)-1]}
	case m.HasSuffix(mdx.SegMembers):
		// whole level, selection stays ALL
	default:
		if leaf, ok := leafMemberValue(m); ok {
			sel = query.MemberSelection{Kind: query.SelectSpecific, Members: []string{leaf}}
		}
	}

	return query.Dimension{
		Table:        hierarchy,
		Hierarchy:    hierarchy,
		Level:        level,
		Selection:    sel,
		IsCalculated: calcAxis,
	}
}

// collectOrderAndLimit pulls ORDER and TOPCOUNT specifications out of an
// axis set. Order expressions translate structurally; everything else was
// already recorded by the flattener.
func collectOrderAndLimit(set mdx.Expr, fs FlattenedSet, out *query.Query) {
	if fs.LimitApplied > 0 && out.Limit == nil {
		out.Limit = &query.Limit{Count: fs.LimitApplied}
	}
	if fs.OrderApplied == "" {
		return
	}
	mdx.Walk(set, func(e mdx.Expr) bool {
		call, ok := e.(*mdx.FuncCall)
		if !ok || !strings.EqualFold(call.Name, "ORDER") || len(call.Args) < 2 {
			return true
		}
		expr, err := transformExpression(call.Args[1])
		if err != nil {
			out.AddWarning("order expression could not be translated: " + err.Error())
			return false
		}
		desc := false
		if len(call.Args) >= 3 {
			if lit, ok := call.Args[2].(*mdx.Literal); ok {
				d := strings.ToUpper(lit.Value)
				desc = d == "DESC" || d == "BDESC"
			}
			if m, ok := call.Args[2].(*mdx.MemberExpr); ok {
				names := m.NameSegments()
				if len(names) == 1 {
					d := strings.ToUpper(names[0])
					desc = d == "DESC" || d == "BDESC"
				}
			}
		}
		out.OrderBy = append(out.OrderBy, query.OrderItem{Expr: expr, Descending: desc})
		return false
	})
}

// transformSlicer lowers the WHERE clause into one equality filter per
// member reference. Key values are typed int, then float, then string.
func transformSlicer(where mdx.Expr, out *query.Query) error {
	members := mdx.CollectMembers(where)
	if len(members) == 0 {
		return &TransformationError{
			Message:  "WHERE clause contains no member references",
			NodeType: fmt.Sprintf("%T", where),
		}
	}

	for _, m := range members {
		names := m.NameSegments()
		if len(names) == 0 {
			continue
		}
		if strings.EqualFold(names[0], "Measures") {
			out.AddWarning("measure reference in WHERE clause ignored: " +
				mdx.FormatExpr(m))
			continue
		}

		value, ok := slicerValue(m, names)
		if !ok {
			out.AddWarning("WHERE member has no value to filter on: " +
				mdx.FormatExpr(m))
			continue
		}

		level := ""
		if len(names) > 1 {
			level = names[1]
		}
		out.Filters = append(out.Filters, &query.DimensionFilter{
			Dimension: query.Dimension{
				Table:     names[0],
				Hierarchy: names[0],
				Level:     level,
			},
			Operator: query.OpEquals,
			Values:   []any{value},
		})
	}
	return nil
}

// slicerValue extracts the filter value from a slicer member. Key segments
// are typed; plain leaf names stay strings.
func slicerValue(m *mdx.MemberExpr, names []string) (any, bool) {
	if key, ok := m.KeySegment(); ok {
		return typeKeyValue(key), true
	}
	if len(names) >= 3 {
		return names[len(names)-1], true
	}
	return nil, false
}

// typeKeyValue parses a key reference value as int64, then float64, then
// falls back to the raw string.
func typeKeyValue(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// normalizeLevels runs the hierarchy normalizer over the source tree and
// snaps every dimension and dimension filter to the deepest level referenced
// for its hierarchy.
func normalizeLevels(src *mdx.Query, out *query.Query) {
	norm := NewNormalizer(src)

	for i := range out.Dimensions {
		d := &out.Dimensions[i]
		if deepest := norm.DeepestLevel(d.Hierarchy); deepest != "" {
			d.Level = deepest
		}
		if d.Level == "" {
			d.Level = "All"
		}
		d.Ragged = norm.IsRagged(d.Hierarchy)
	}

	for _, f := range out.Filters {
		df, ok := f.(*query.DimensionFilter)
		if !ok {
			continue
		}
		if deepest := norm.DeepestLevel(df.Dimension.Hierarchy); deepest != "" {
			df.Dimension.Level = deepest
		}
		df.Dimension.Ragged = norm.IsRagged(df.Dimension.Hierarchy)
	}

	out.Metadata.HierarchyDepth = norm.MaxDepth()
}

// attachHints surfaces warning and error level comment hints into the query
// metadata so they survive into generation and explanation.
func attachHints(src *mdx.Query, source string, out *query.Query) {
	for _, h := range ExtractHints(src, source) {
		switch h.Severity {
		case SeverityError:
			out.Metadata.Errors = append(out.Metadata.Errors,
				fmt.Sprintf("hint(%s): %s", h.Type, h.Message))
		case SeverityWarning:
			out.AddWarning(fmt.Sprintf("hint(%s): %s", h.Type, h.Message))
		}
	}
}

// finishMetadata stamps timing, hashing, and derived score fields.
func finishMetadata(out *query.Query, source string, start time.Time) {
	out.Metadata.CreatedAt = start
	out.Metadata.TransformDuration = time.Since(start)
	if source != "" {
		sum := md5.Sum([]byte(source))
		out.Metadata.SourceHash = hex.EncodeToString(sum[:])
	}
	out.Metadata.ComplexityScore = complexityScore(out)
	out.Metadata.EstimatedRows = estimateRows(out)

	if len(out.Measures) == 0 {
		out.AddWarning("query defines no measures")
	}
}

// complexityScore is a coarse size signal used by the explainer and for
// batch scheduling. Dimensions and filters weigh more than measures.
func complexityScore(q *query.Query) int {
	score := len(q.Measures) + 2*len(q.Dimensions) + 2*len(q.Filters) + 3*len(q.Calculations)
	if q.Limit != nil {
		score++
	}
	score += len(q.OrderBy)
	for _, d := range q.Dimensions {
		if d.IsCalculated {
			score += 2
		}
	}
	return score
}

// estimateRows gives a rough cardinality guess. Specific selections bound
// the row count exactly; open selections assume a default fanout per
// dimension.
func estimateRows(q *query.Query) int {
	if len(q.Dimensions) == 0 {
		return 1
	}
	const defaultFanout = 100
	rows := 1
	for _, d := range q.Dimensions {
		switch d.Selection.Kind {
		case query.SelectSpecific:
			rows *= len(d.Selection.Members)
		default:
			rows *= defaultFanout
		}
	}
	if q.Limit != nil && q.Limit.Count > 0 && q.Limit.Count < rows {
		rows = q.Limit.Count
	}
	return rows
}
