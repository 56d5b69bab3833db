package mdx

// Node is the base interface for all AST nodes.
type Node interface {
	node()
}

// Expr is a marker interface for expression nodes. Set expressions, member
// expressions, and scalar expressions share one Expr hierarchy: MDX does not
// distinguish them syntactically until semantic analysis.
type Expr interface {
	Node
	exprNode()
}

// Query is the root node: an optional WITH clause plus a SELECT statement.
type Query struct {
	With     *WithClause
	Select   *SelectStmt
	Comments []Comment // source comments in order of appearance
}

func (*Query) node() {}

// WithClause holds the ordered WITH MEMBER / WITH SET definitions.
type WithClause struct {
	Defs []*WithDef
}

func (*WithClause) node() {}

// WithDefKind distinguishes MEMBER and SET definitions.
type WithDefKind int

const (
	DefMember WithDefKind = iota
	DefSet
)

// WithDef is a single MEMBER name AS expr or SET name AS expr definition.
type WithDef struct {
	Kind WithDefKind
	Name *MemberExpr // definition target, e.g. [Measures].[Average Price]
	Expr Expr
}

func (*WithDef) node() {}

// SelectStmt is the SELECT ... ON axis, ... FROM cube [WHERE slicer] form.
type SelectStmt struct {
	Axes  []*AxisSpec
	From  *CubeRef
	Where Expr // member or tuple expression, nil when absent
}

func (*SelectStmt) node() {}

// AxisSpec is one axis specification: [NON EMPTY] set_expr ON axis.
type AxisSpec struct {
	NonEmpty bool
	Set      Expr
	Axis     AxisRef
}

func (*AxisSpec) node() {}

// AxisRef identifies an axis by resolved ordinal. Name preserves the source
// spelling (COLUMNS, ROWS, a number, or AXIS(n)) for diagnostics.
type AxisRef struct {
	Number int
	Name   string
}

// CubeRef is the FROM target: one or more dot-separated segments, e.g.
// [Db].[Schema].[Cube], [Schema].[Cube], or a bare Cube.
type CubeRef struct {
	Parts []string
}

func (*CubeRef) node() {}

// Name returns the last (cube) segment.
func (c *CubeRef) Name() string {
	if len(c.Parts) == 0 {
		return ""
	}
	return c.Parts[len(c.Parts)-1]
}
