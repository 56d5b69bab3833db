package transform

import (
	"strconv"
	"strings"

	"mdx2dax/internal/mdx"
	"mdx2dax/internal/query"
)

// SetOperation tags the dominant operation of a flattened set expression.
type SetOperation int

const (
	OpMembers SetOperation = iota
	OpChildren
	OpCrossjoin
	OpUnion
	OpIntersect
	OpExcept
	OpFilter
	OpTopCount
	OpOrder
	OpRange
)

// String returns the operation name.
func (o SetOperation) String() string {
	switch o {
	case OpMembers:
		return "MEMBERS"
	case OpChildren:
		return "CHILDREN"
	case OpCrossjoin:
		return "CROSSJOIN"
	case OpUnion:
		return "UNION"
	case OpIntersect:
		return "INTERSECT"
	case OpExcept:
		return "EXCEPT"
	case OpFilter:
		return "FILTER"
	case OpTopCount:
		return "TOPCOUNT"
	case OpOrder:
		return "ORDER"
	case OpRange:
		return "RANGE"
	default:
		return "MEMBERS"
	}
}

// FlattenedSet is the result of evaluating a set expression into a flat
// member list plus operation metadata. It is consumed immediately by the
// transformer to populate dimension selections and axis contents.
type FlattenedSet struct {
	Members        []*mdx.MemberExpr // resolved member references, first-seen order
	Operation      SetOperation
	IsCalculated   bool     // true when membership cannot be statically enumerated
	FiltersApplied []string // predicate text for FILTER-class operations
	OrderApplied   string   // sort spec text for ORDER-class operations
	LimitApplied   int      // row cap for TOPCOUNT-class operations
}

// MemberNames returns the formatted text of each member, in order.
func (fs *FlattenedSet) MemberNames() []string {
	names := make([]string, len(fs.Members))
	for i, m := range fs.Members {
		names[i] = mdx.FormatExpr(m)
	}
	return names
}

// Flatten evaluates a set expression into a FlattenedSet. Set-algebra
// operations (UNION, INTERSECT, EXCEPT, CROSSJOIN) are applied over member
// identity; FILTER/TOPCOUNT-class operations keep base membership and mark
// the result calculated.
func Flatten(e mdx.Expr) FlattenedSet {
	switch expr := e.(type) {
	case nil:
		return FlattenedSet{}

	case *mdx.SetLiteral:
		return flattenUnion(expr.Items, OpMembers)

	case *mdx.TupleExpr:
		return flattenUnion(expr.Items, OpMembers)

	case *mdx.ParenExpr:
		return Flatten(expr.Expr)

	case *mdx.MemberExpr:
		return flattenMember(expr)

	case *mdx.FuncCall:
		return flattenFunc(expr)

	case *mdx.BinaryExpr:
		return flattenBinary(expr)

	default:
		// Scalar expressions have no set membership.
		return FlattenedSet{Operation: OpMembers, IsCalculated: true}
	}
}

func flattenMember(m *mdx.MemberExpr) FlattenedSet {
	switch {
	case m.HasSuffix(mdx.SegMembers):
		// Whole-level reference: membership is ALL, but the path itself is
		// kept so callers can recover the hierarchy and level.
		return FlattenedSet{Operation: OpMembers, Members: []*mdx.MemberExpr{m}}
	case m.HasSuffix(mdx.SegChildren):
		return FlattenedSet{Operation: OpChildren, Members: []*mdx.MemberExpr{m}}
	default:
		return FlattenedSet{Operation: OpMembers, Members: []*mdx.MemberExpr{m}}
	}
}

func flattenFunc(call *mdx.FuncCall) FlattenedSet {
	name := strings.ToUpper(call.Name)
	switch name {
	case "CROSSJOIN":
		fs := flattenUnion(call.Args, OpCrossjoin)
		return fs

	case "UNION":
		return flattenUnion(call.Args, OpUnion)

	case "INTERSECT":
		if len(call.Args) < 2 {
			return flattenUnion(call.Args, OpIntersect)
		}
		return intersect(Flatten(call.Args[0]), Flatten(call.Args[1]))

	case "EXCEPT":
		if len(call.Args) < 2 {
			return flattenUnion(call.Args, OpExcept)
		}
		return except(Flatten(call.Args[0]), Flatten(call.Args[1]))

	case "FILTER":
		var fs FlattenedSet
		if len(call.Args) > 0 {
			fs = Flatten(call.Args[0])
		}
		fs.Operation = OpFilter
		fs.IsCalculated = true
		if len(call.Args) > 1 {
			fs.FiltersApplied = append(fs.FiltersApplied, mdx.FormatExpr(call.Args[1]))
		}
		return fs

	case "TOPCOUNT", "BOTTOMCOUNT", "HEAD", "TAIL", "TOPPERCENT", "BOTTOMPERCENT":
		var fs FlattenedSet
		if len(call.Args) > 0 {
			fs = Flatten(call.Args[0])
		}
		fs.Operation = OpTopCount
		fs.IsCalculated = true
		if len(call.Args) > 1 {
			if lit, ok := call.Args[1].(*mdx.Literal); ok && lit.Type == mdx.LiteralNumber {
				if n, err := strconv.Atoi(lit.Value); err == nil {
					fs.LimitApplied = n
				}
			}
		}
		return fs

	case "ORDER":
		var fs FlattenedSet
		if len(call.Args) > 0 {
			fs = Flatten(call.Args[0])
		}
		fs.Operation = OpOrder
		fs.IsCalculated = true
		if len(call.Args) > 1 {
			parts := make([]string, 0, len(call.Args)-1)
			for _, a := range call.Args[1:] {
				parts = append(parts, mdx.FormatExpr(a))
			}
			fs.OrderApplied = strings.Join(parts, ", ")
		}
		return fs

	default:
		// Unknown set functions cannot be statically enumerated: keep base
		// membership from set-shaped arguments and mark calculated.
		fs := flattenUnion(call.Args, OpMembers)
		fs.IsCalculated = true
		return fs
	}
}

func flattenBinary(b *mdx.BinaryExpr) FlattenedSet {
	switch b.Op {
	case mdx.TOKEN_UNION:
		return flattenUnion([]mdx.Expr{b.Left, b.Right}, OpUnion)
	case mdx.TOKEN_INTERSECT:
		return intersect(Flatten(b.Left), Flatten(b.Right))
	case mdx.TOKEN_EXCEPT:
		return except(Flatten(b.Left), Flatten(b.Right))
	case mdx.TOKEN_STAR:
		// a * b in set position is shorthand for CROSSJOIN(a, b).
		return flattenUnion([]mdx.Expr{b.Left, b.Right}, OpCrossjoin)
	case mdx.TOKEN_COLON:
		// A member range cannot be statically enumerated; keep the two
		// endpoints as base membership.
		fs := flattenUnion([]mdx.Expr{b.Left, b.Right}, OpRange)
		fs.IsCalculated = true
		return fs
	default:
		return FlattenedSet{Operation: OpMembers, IsCalculated: true}
	}
}

// flattenUnion unions the flattened membership of the inputs, deduplicating
// by member text with first-seen order preserved.
func flattenUnion(items []mdx.Expr, op SetOperation) FlattenedSet {
	out := FlattenedSet{Operation: op}
	seen := make(map[string]bool)
	for _, it := range items {
		fs := Flatten(it)
		out.IsCalculated = out.IsCalculated || fs.IsCalculated
		out.FiltersApplied = append(out.FiltersApplied, fs.FiltersApplied...)
		if fs.LimitApplied > 0 && out.LimitApplied == 0 {
			out.LimitApplied = fs.LimitApplied
		}
		if fs.OrderApplied != "" && out.OrderApplied == "" {
			out.OrderApplied = fs.OrderApplied
		}
		for _, m := range fs.Members {
			key := mdx.FormatExpr(m)
			if !seen[key] {
				seen[key] = true
				out.Members = append(out.Members, m)
			}
		}
	}
	return out
}

// intersect keeps A's members present in B, preserving A's order.
func intersect(a, b FlattenedSet) FlattenedSet {
	out := FlattenedSet{
		Operation:    OpIntersect,
		IsCalculated: a.IsCalculated || b.IsCalculated,
	}
	inB := make(map[string]bool)
	for _, m := range b.Members {
		inB[mdx.FormatExpr(m)] = true
	}
	for _, m := range a.Members {
		if inB[mdx.FormatExpr(m)] {
			out.Members = append(out.Members, m)
		}
	}
	return out
}

// except keeps A's members absent from B, preserving A's order.
func except(a, b FlattenedSet) FlattenedSet {
	out := FlattenedSet{
		Operation:    OpExcept,
		IsCalculated: a.IsCalculated || b.IsCalculated,
	}
	inB := make(map[string]bool)
	for _, m := range b.Members {
		inB[mdx.FormatExpr(m)] = true
	}
	for _, m := range a.Members {
		if !inB[mdx.FormatExpr(m)] {
			out.Members = append(out.Members, m)
		}
	}
	return out
}

// calculatedSetFunctions lists set operations whose membership cannot be
// rendered as a static list.
var calculatedSetFunctions = map[string]bool{
	"FILTER":        true,
	"TOPCOUNT":      true,
	"BOTTOMCOUNT":   true,
	"TOPPERCENT":    true,
	"BOTTOMPERCENT": true,
	"HEAD":          true,
	"TAIL":          true,
	"ORDER":         true,
}

// CanFlattenToSimpleList reports whether the subtree contains no FILTER,
// TOPCOUNT, or ORDER-class operation anywhere within it, meaning membership
// can be rendered as a static list.
func CanFlattenToSimpleList(e mdx.Expr) bool {
	simple := true
	mdx.Walk(e, func(x mdx.Expr) bool {
		switch n := x.(type) {
		case *mdx.FuncCall:
			if calculatedSetFunctions[strings.ToUpper(n.Name)] {
				simple = false
				return false
			}
		case *mdx.BinaryExpr:
			if n.Op == mdx.TOKEN_COLON {
				simple = false
				return false
			}
		}
		return true
	})
	return simple
}

// ExtractMemberSelection maps a set expression directly to the IR member
// selection: ALL for whole-level references, CHILDREN for .CHILDREN paths,
// SPECIFIC for enumerable member lists.
func ExtractMemberSelection(e mdx.Expr) query.MemberSelection {
	fs := Flatten(e)
	switch fs.Operation {
	case OpChildren:
		parent := ""
		if len(fs.Members) > 0 {
			names := fs.Members[0].NameSegments()
			if len(names) > 0 {
				parent = names[len(names)-1]
			}
		}
		return query.MemberSelection{Kind: query.SelectChildren, Parent: parent}
	default:
		var members []string
		for _, m := range fs.Members {
			if v, ok := leafMemberValue(m); ok {
				members = append(members, v)
			}
		}
		if len(members) == 0 {
			return query.MemberSelection{Kind: query.SelectAll}
		}
		return query.MemberSelection{Kind: query.SelectSpecific, Members: members}
	}
}

// leafMemberValue extracts the concrete member value from a path: the key
// segment when present, otherwise the third-or-deeper name segment. Paths of
// one or two segments reference a hierarchy or level, not a member.
func leafMemberValue(m *mdx.MemberExpr) (string, bool) {
	if v, ok := m.KeySegment(); ok {
		return v, true
	}
	names := m.NameSegments()
	if len(names) >= 3 {
		return names[len(names)-1], true
	}
	return "", false
}
