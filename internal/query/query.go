// Package query defines the intermediate representation produced by the MDX
// transformer and consumed by the DAX generator and the explainer.
package query

import "time"

// CubeRef identifies the data source. Name is mandatory; Schema and Database
// are optional qualifiers from [Db].[Schema].[Cube] forms.
type CubeRef struct {
	Name     string
	Schema   string
	Database string
}

// AggregationType classifies how a measure aggregates.
type AggregationType int

const (
	AggSum AggregationType = iota
	AggCount
	AggAvg
	AggMin
	AggMax
	AggDistinctCount
	AggCustom // calculated measures with an explicit expression
)

// String returns the aggregation name.
func (a AggregationType) String() string {
	switch a {
	case AggSum:
		return "SUM"
	case AggCount:
		return "COUNT"
	case AggAvg:
		return "AVG"
	case AggMin:
		return "MIN"
	case AggMax:
		return "MAX"
	case AggDistinctCount:
		return "DISTINCT_COUNT"
	case AggCustom:
		return "CUSTOM"
	default:
		return "UNKNOWN"
	}
}

// Measure is one output measure. Order within Query.Measures is significant:
// it maps to output column order.
type Measure struct {
	Name        string
	Aggregation AggregationType
	Alias       string     // optional output alias
	Expression  Expression // non-nil for calculated measures
}

// DisplayName returns the alias when set, otherwise the measure name.
func (m Measure) DisplayName() string {
	if m.Alias != "" {
		return m.Alias
	}
	return m.Name
}

// SelectionKind classifies a dimension's member selection.
type SelectionKind int

const (
	SelectAll SelectionKind = iota
	SelectChildren
	SelectSpecific
)

// MemberSelection describes which members of a dimension level participate.
type MemberSelection struct {
	Kind    SelectionKind
	Parent  string   // parent member for SelectChildren
	Members []string // specific members for SelectSpecific
}

// Dimension is one grouping dimension. Level is always the deepest level
// referenced for the hierarchy in the whole query; the hierarchy normalizer
// enforces this.
type Dimension struct {
	Table        string // dimension table name
	Hierarchy    string // hierarchy name (often equal to Table)
	Level        string // deepest referenced level
	Selection    MemberSelection
	IsCalculated bool // true when membership cannot be statically enumerated
	Ragged       bool // true when the hierarchy's member paths vary in depth
}

// FilterOperator enumerates filter comparison operators.
type FilterOperator int

const (
	OpEquals FilterOperator = iota
	OpNotEquals
	OpIn
	OpGreaterThan
	OpGreaterOrEqual
	OpLessThan
	OpLessOrEqual
)

// String returns the DAX-compatible operator text.
func (o FilterOperator) String() string {
	switch o {
	case OpEquals:
		return "="
	case OpNotEquals:
		return "<>"
	case OpIn:
		return "IN"
	case OpGreaterThan:
		return ">"
	case OpGreaterOrEqual:
		return ">="
	case OpLessThan:
		return "<"
	case OpLessOrEqual:
		return "<="
	default:
		return "="
	}
}

// Filter is the tagged union over dimension and measure filters.
type Filter interface {
	filterNode()
}

// DimensionFilter restricts a dimension level to specific values. Values are
// typed: int64, float64, or string, in order of parse preference.
type DimensionFilter struct {
	Dimension Dimension
	Operator  FilterOperator
	Values    []any
}

func (*DimensionFilter) filterNode() {}

// MeasureFilter restricts results by a measure comparison.
type MeasureFilter struct {
	Measure  Measure
	Operator FilterOperator
	Value    any
}

func (*MeasureFilter) filterNode() {}

// CalculationType classifies WITH-clause definitions.
type CalculationType int

const (
	CalcMeasure CalculationType = iota
	CalcMember
	CalcSet
)

// Calculation is a query-scoped calculated measure, member, or named set.
type Calculation struct {
	Name       string
	Type       CalculationType
	Expression Expression
}

// OrderItem is one sort key.
type OrderItem struct {
	Expr       Expression
	Descending bool
}

// Limit caps the result rows. Offset has no native DAX equivalent and is
// flagged by validation rather than rendered.
type Limit struct {
	Count  int
	Offset int
}

// Metadata carries non-semantic bookkeeping about a transformed query.
// Warnings and Errors are append-only.
type Metadata struct {
	ComplexityScore   int
	HierarchyDepth    int
	EstimatedRows     int
	Warnings          []string
	Errors            []string
	CreatedAt         time.Time
	TransformDuration time.Duration
	SourceHash        string
}

// Query is the canonical intermediate representation between MDX parsing and
// DAX generation. All lists preserve first-appearance order from the source.
type Query struct {
	Cube         CubeRef
	Measures     []Measure
	Dimensions   []Dimension
	Filters      []Filter
	Calculations []Calculation
	OrderBy      []OrderItem
	Limit        *Limit
	NonEmpty     bool // at least one axis carried NON EMPTY
	Metadata     Metadata
}

// AddWarning appends a warning to the query metadata.
func (q *Query) AddWarning(msg string) {
	q.Metadata.Warnings = append(q.Metadata.Warnings, msg)
}
