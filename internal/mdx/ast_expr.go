package mdx

// === Expression Nodes ===

// SetLiteral represents a braced set: {expr, expr, ...}.
type SetLiteral struct {
	Items []Expr
}

func (*SetLiteral) node()     {}
func (*SetLiteral) exprNode() {}

// TupleExpr represents a parenthesized tuple of two or more members:
// ([Date].[2023], [Product].[Bikes]).
type TupleExpr struct {
	Items []Expr
}

func (*TupleExpr) node()     {}
func (*TupleExpr) exprNode() {}

// ParenExpr represents a parenthesized expression with a single element.
type ParenExpr struct {
	Expr Expr
}

func (*ParenExpr) node()     {}
func (*ParenExpr) exprNode() {}

// SegmentKind classifies a member-path segment.
type SegmentKind int

const (
	SegName     SegmentKind = iota // plain name segment
	SegKey                         // &[key] segment
	SegMembers                     // .MEMBERS
	SegChildren                    // .CHILDREN
)

// MemberSegment is one dot-separated segment of a member expression.
type MemberSegment struct {
	Kind   SegmentKind
	Name   string // empty for SegMembers/SegChildren
	Quoted bool   // true when the segment was [bracketed]
}

// MemberExpr represents a dotted member path such as
// [Measures].[Sales Amount] or [Date].[Calendar Year].&[2023] or
// [Product].[Category].MEMBERS.
type MemberExpr struct {
	Segments []MemberSegment
}

func (*MemberExpr) node()     {}
func (*MemberExpr) exprNode() {}

// NameSegments returns the plain and key segment names in order, excluding
// MEMBERS/CHILDREN suffixes.
func (m *MemberExpr) NameSegments() []string {
	var names []string
	for _, s := range m.Segments {
		if s.Kind == SegName || s.Kind == SegKey {
			names = append(names, s.Name)
		}
	}
	return names
}

// HasSuffix reports whether the path ends in the given suffix kind
// (SegMembers or SegChildren).
func (m *MemberExpr) HasSuffix(kind SegmentKind) bool {
	n := len(m.Segments)
	return n > 0 && m.Segments[n-1].Kind == kind
}

// KeySegment returns the last key segment value and true when the path ends
// in a key reference (&[value]).
func (m *MemberExpr) KeySegment() (string, bool) {
	n := len(m.Segments)
	if n > 0 && m.Segments[n-1].Kind == SegKey {
		return m.Segments[n-1].Name, true
	}
	return "", false
}

// FuncCall represents a function call: CROSSJOIN(a, b), FILTER(set, pred), ...
// Name is stored in the original case.
type FuncCall struct {
	Name string
	Args []Expr
}

func (*FuncCall) node()     {}
func (*FuncCall) exprNode() {}

// BinaryExpr represents a binary expression (left op right). The operator is
// the lexer token type; set operators (UNION/INTERSECT/EXCEPT) appear here in
// their infix form.
type BinaryExpr struct {
	Left  Expr
	Op    TokenType
	Right Expr
}

func (*BinaryExpr) node()     {}
func (*BinaryExpr) exprNode() {}

// UnaryExpr represents a unary expression (NOT x, -x, +x).
type UnaryExpr struct {
	Op   TokenType
	Expr Expr
}

func (*UnaryExpr) node()     {}
func (*UnaryExpr) exprNode() {}

// LiteralType represents the type of a literal.
type LiteralType int

const (
	LiteralNumber LiteralType = iota
	LiteralString
	LiteralBool
)

// Literal represents a literal value.
type Literal struct {
	Type  LiteralType
	Value string
}

func (*Literal) node()     {}
func (*Literal) exprNode() {}

// WhenClause represents a WHEN clause in a CASE expression.
type WhenClause struct {
	Condition Expr
	Result    Expr
}

// CaseExpr represents a CASE expression (simple or searched).
type CaseExpr struct {
	Operand Expr // nil for searched CASE
	Whens   []WhenClause
	Else    Expr
}

func (*CaseExpr) node()     {}
func (*CaseExpr) exprNode() {}
