package query

// Expression is the tagged union used inside calculations and filters.
// Expressions are immutable trees owned by the Calculation or Filter that
// references them; nodes are never shared across IR values.
type Expression interface {
	exprNode()
}

// ConstantKind classifies constant values.
type ConstantKind int

const (
	ConstString ConstantKind = iota
	ConstNumber
	ConstBool
)

// Constant is a literal value. Value keeps the source text; Kind drives
// rendering (string quoting, TRUE/FALSE).
type Constant struct {
	Kind  ConstantKind
	Value string
}

func (*Constant) exprNode() {}

// MeasureRef references a measure by name.
type MeasureRef struct {
	Name string
}

func (*MeasureRef) exprNode() {}

// MemberRef references a dimension member. Member is empty for whole-level
// references (rendered as a column).
type MemberRef struct {
	Dimension string
	Hierarchy string
	Member    string
}

func (*MemberRef) exprNode() {}

// BinaryOp is left op right. Operator text is preserved verbatim from the
// source; the converter maps it to DAX.
type BinaryOp struct {
	Left     Expression
	Operator string
	Right    Expression
}

func (*BinaryOp) exprNode() {}

// FunctionType is a coarse function category from a fixed name lookup.
type FunctionType int

const (
	FuncMath FunctionType = iota // default for unrecognized names
	FuncAggregate
	FuncLogical
	FuncSet
	FuncString
	FuncTime
)

// FunctionCall is a positional call. Name keeps the original casing.
type FunctionCall struct {
	Type FunctionType
	Name string
	Args []Expression
}

func (*FunctionCall) exprNode() {}

// IifExpr is the MDX IIF(condition, then, else) conditional.
type IifExpr struct {
	Condition Expression
	Then      Expression
	Else      Expression
}

func (*IifExpr) exprNode() {}

// CaseWhen is one WHEN/THEN branch.
type CaseWhen struct {
	When Expression
	Then Expression
}

// CaseExpr is a CASE expression, mapped to DAX SWITCH.
type CaseExpr struct {
	Operand Expression // nil for searched CASE
	Whens   []CaseWhen
	Else    Expression
}

func (*CaseExpr) exprNode() {}
