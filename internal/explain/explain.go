// Package explain renders a human-readable description of a transformed
// query. The explainer works on the IR only; it never re-parses MDX.
package explain

import (
	"encoding/json"
	"fmt"
	"strings"

	"mdx2dax/internal/dax"
	"mdx2dax/internal/query"
)

// Format selects the output rendering.
type Format int

const (
	FormatSQL Format = iota
	FormatNatural
	FormatJSON
	FormatMarkdown
)

// ParseFormat maps a format name onto a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "sql", "sql-like", "":
		return FormatSQL, nil
	case "natural", "text":
		return FormatNatural, nil
	case "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return FormatSQL, fmt.Errorf("unknown explanation format %q", s)
	}
}

// DetailLevel controls how much of the query each format describes.
type DetailLevel int

const (
	DetailBasic    DetailLevel = iota // projection shape only
	DetailStandard                    // plus filters, calculations, ordering
	DetailFull                        // plus metadata and warnings
)

// Config controls explanation output.
type Config struct {
	Format          Format
	Detail          DetailLevel
	IncludeDAX      bool
	IncludeMetadata bool
}

// Explain describes the query in the configured format.
func Explain(q *query.Query, cfg Config) (string, error) {
	if q == nil {
		return "", fmt.Errorf("explain: nil query")
	}
	switch cfg.Format {
	case FormatJSON:
		return explainJSON(q, cfg)
	case FormatNatural:
		return explainNatural(q, cfg), nil
	case FormatMarkdown:
		return explainMarkdown(q, cfg)
	default:
		return explainSQL(q, cfg), nil
	}
}

func measureNames(q *query.Query) []string {
	names := make([]string, len(q.Measures))
	for i, m := range q.Measures {
		names[i] = m.DisplayName()
	}
	return names
}

func dimensionColumns(q *query.Query) []string {
	cols := make([]string, len(q.Dimensions))
	for i, d := range q.Dimensions {
		cols[i] = d.Table + "." + d.Level
	}
	return cols
}

func filterText(f query.Filter) string {
	switch flt := f.(type) {
	case *query.DimensionFilter:
		vals := make([]string, len(flt.Values))
		for i, v := range flt.Values {
			vals[i] = fmt.Sprint(v)
		}
		return fmt.Sprintf("%s.%s %s %s",
			flt.Dimension.Table, flt.Dimension.Level, flt.Operator, strings.Join(vals, ", "))
	case *query.MeasureFilter:
		return fmt.Sprintf("%s %s %v", flt.Measure.Name, flt.Operator, flt.Value)
	default:
		return fmt.Sprintf("%T", f)
	}
}

// explainSQL renders the query as pseudo-SQL, the closest mental model for
// readers coming from relational tooling.
func explainSQL(q *query.Query, cfg Config) string {
	var b strings.Builder

	cols := append(dimensionColumns(q), measureNames(q)...)
	if len(cols) == 0 {
		cols = []string{"(empty result)"}
	}
	b.WriteString("SELECT " + strings.Join(cols, ", "))
	b.WriteString("\nFROM " + q.Cube.Name)

	if cfg.Detail >= DetailStandard {
		if len(q.Filters) > 0 {
			preds := make([]string, len(q.Filters))
			for i, f := range q.Filters {
				preds[i] = filterText(f)
			}
			b.WriteString("\nWHERE " + strings.Join(preds, " AND "))
		}
		if len(q.Dimensions) > 0 {
			b.WriteString("\nGROUP BY " + strings.Join(dimensionColumns(q), ", "))
		}
		if len(q.OrderBy) > 0 {
			b.WriteString("\nORDER BY " + orderText(q))
		}
		if q.Limit != nil {
			b.WriteString(fmt.Sprintf("\nLIMIT %d", q.Limit.Count))
		}
	}

	appendExtras(&b, q, cfg, "-- ")
	return b.String()
}

func orderText(q *query.Query) string {
	items := make([]string, len(q.OrderBy))
	for i, o := range q.OrderBy {
		text, err := dax.ConvertExpr(o.Expr)
		if err != nil {
			text = "(unrenderable)"
		}
		if o.Descending {
			text += " DESC"
		}
		items[i] = text
	}
	return strings.Join(items, ", ")
}

// explainNatural renders prose sentences.
func explainNatural(q *query.Query, cfg Config) string {
	var b strings.Builder

	switch {
	case len(q.Measures) == 0 && len(q.Dimensions) == 0:
		b.WriteString(fmt.Sprintf("This query returns an empty placeholder row from the %s cube.", q.Cube.Name))
	case len(q.Dimensions) == 0:
		b.WriteString(fmt.Sprintf("This query returns %s from the %s cube as a single row.",
			listWords(measureNames(q)), q.Cube.Name))
	default:
		b.WriteString(fmt.Sprintf("This query summarizes %s by %s from the %s cube.",
			listWords(measureNames(q)), listWords(dimensionColumns(q)), q.Cube.Name))
	}

	if cfg.Detail >= DetailStandard {
		for _, f := range q.Filters {
			b.WriteString(" Results are restricted to " + filterText(f) + ".")
		}
		for _, c := range q.Calculations {
			b.WriteString(fmt.Sprintf(" %s is calculated at query time.", c.Name))
		}
		if q.Limit != nil {
			b.WriteString(fmt.Sprintf(" Output is capped at %d rows.", q.Limit.Count))
		}
		if q.NonEmpty {
			b.WriteString(" Rows with no data are excluded.")
		}
	}

	appendExtras(&b, q, cfg, "")
	return b.String()
}

// listWords joins names with commas and a final "and".
func listWords(items []string) string {
	switch len(items) {
	case 0:
		return "nothing"
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}

type jsonExplanation struct {
	Cube         string          `json:"cube"`
	Measures     []string        `json:"measures"`
	Dimensions   []string        `json:"dimensions"`
	Filters      []string        `json:"filters,omitempty"`
	Calculations []string        `json:"calculations,omitempty"`
	Limit        *query.Limit    `json:"limit,omitempty"`
	NonEmpty     bool            `json:"non_empty,omitempty"`
	Metadata     *query.Metadata `json:"metadata,omitempty"`
	DAX          string          `json:"dax,omitempty"`
}

func explainJSON(q *query.Query, cfg Config) (string, error) {
	out := jsonExplanation{
		Cube:       q.Cube.Name,
		Measures:   measureNames(q),
		Dimensions: dimensionColumns(q),
		NonEmpty:   q.NonEmpty,
	}
	if cfg.Detail >= DetailStandard {
		for _, f := range q.Filters {
			out.Filters = append(out.Filters, filterText(f))
		}
		for _, c := range q.Calculations {
			out.Calculations = append(out.Calculations, c.Name)
		}
		out.Limit = q.Limit
	}
	if cfg.IncludeMetadata && cfg.Detail >= DetailFull {
		meta := q.Metadata
		out.Metadata = &meta
	}
	if cfg.IncludeDAX {
		text, err := dax.Generate(q)
		if err != nil {
			return "", fmt.Errorf("explain: %w", err)
		}
		out.DAX = text
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("explain: %w", err)
	}
	return string(data), nil
}

func explainMarkdown(q *query.Query, cfg Config) (string, error) {
	var b strings.Builder
	b.WriteString("# Query Explanation\n\n")
	b.WriteString("**Cube:** " + q.Cube.Name + "\n\n")

	if len(q.Measures) > 0 {
		b.WriteString("## Measures\n\n")
		for _, m := range q.Measures {
			line := "- " + m.DisplayName()
			if m.Aggregation == query.AggCustom {
				line += " (calculated)"
			} else {
				line += " (" + m.Aggregation.String() + ")"
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}

	if len(q.Dimensions) > 0 {
		b.WriteString("## Dimensions\n\n")
		for _, d := range q.Dimensions {
			line := fmt.Sprintf("- %s.%s", d.Table, d.Level)
			switch d.Selection.Kind {
			case query.SelectSpecific:
				line += " = " + strings.Join(d.Selection.Members, ", ")
			case query.SelectChildren:
				line += " (children of " + d.Selection.Parent + ")"
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}

	if cfg.Detail >= DetailStandard && len(q.Filters) > 0 {
		b.WriteString("## Filters\n\n")
		for _, f := range q.Filters {
			b.WriteString("- " + filterText(f) + "\n")
		}
		b.WriteString("\n")
	}

	if cfg.Detail >= DetailStandard && len(q.Calculations) > 0 {
		b.WriteString("## Calculations\n\n")
		for _, c := range q.Calculations {
			text, err := dax.ConvertExpr(c.Expression)
			if err != nil {
				text = "(unrenderable)"
			}
			b.WriteString(fmt.Sprintf("- %s = `%s`\n", c.Name, text))
		}
		b.WriteString("\n")
	}

	if cfg.IncludeMetadata && cfg.Detail >= DetailFull {
		b.WriteString("## Metadata\n\n")
		b.WriteString(fmt.Sprintf("- Complexity score: %d\n", q.Metadata.ComplexityScore))
		b.WriteString(fmt.Sprintf("- Hierarchy depth: %d\n", q.Metadata.HierarchyDepth))
		b.WriteString(fmt.Sprintf("- Estimated rows: %d\n", q.Metadata.EstimatedRows))
		for _, w := range q.Metadata.Warnings {
			b.WriteString("- Warning: " + w + "\n")
		}
		b.WriteString("\n")
	}

	if cfg.IncludeDAX {
		text, err := dax.Generate(q)
		if err != nil {
			return "", fmt.Errorf("explain: %w", err)
		}
		b.WriteString("## Generated DAX\n\n```dax\n" + text + "\n```\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n", nil
}

// appendExtras adds the DAX and metadata sections shared by the plain-text
// formats, prefixing each line with the format's comment marker.
func appendExtras(b *strings.Builder, q *query.Query, cfg Config, prefix string) {
	if cfg.IncludeMetadata && cfg.Detail >= DetailFull {
		b.WriteString(fmt.Sprintf("\n%scomplexity=%d depth=%d estimated_rows=%d",
			prefix, q.Metadata.ComplexityScore, q.Metadata.HierarchyDepth, q.Metadata.EstimatedRows))
		for _, w := range q.Metadata.Warnings {
			b.WriteString("\n" + prefix + "warning: " + w)
		}
	}
	if cfg.IncludeDAX {
		if text, err := dax.Generate(q); err == nil {
			b.WriteString("\n\n" + prefix + "equivalent DAX:\n" + text)
		}
	}
}
