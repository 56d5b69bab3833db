package transform

import (
	"fmt"
	"strings"

	"mdx2dax/internal/mdx"
	"mdx2dax/internal/query"
)

// functionTypes is the fixed name-to-category lookup for function calls.
// Unrecognized names fall back to the MATH category.
var functionTypes = map[string]query.FunctionType{
	"sum":           query.FuncAggregate,
	"count":         query.FuncAggregate,
	"avg":           query.FuncAggregate,
	"min":           query.FuncAggregate,
	"max":           query.FuncAggregate,
	"distinctcount": query.FuncAggregate,
	"aggregate":     query.FuncAggregate,
	"median":        query.FuncAggregate,
	"stddev":        query.FuncAggregate,
	"var":           query.FuncAggregate,

	"iif":      query.FuncLogical,
	"isempty":  query.FuncLogical,
	"coalesce": query.FuncLogical,
	"not":      query.FuncLogical,

	"crossjoin": query.FuncSet,
	"union":     query.FuncSet,
	"intersect": query.FuncSet,
	"except":    query.FuncSet,
	"filter":    query.FuncSet,
	"topcount":  query.FuncSet,
	"members":   query.FuncSet,
	"children":  query.FuncSet,
	"order":     query.FuncSet,
	"head":      query.FuncSet,
	"tail":      query.FuncSet,

	"format": query.FuncString,
	"left":   query.FuncString,
	"right":  query.FuncString,
	"ucase":  query.FuncString,
	"lcase":  query.FuncString,
	"trim":   query.FuncString,
	"len":    query.FuncString,

	"ytd":            query.FuncTime,
	"qtd":            query.FuncTime,
	"mtd":            query.FuncTime,
	"wtd":            query.FuncTime,
	"parallelperiod": query.FuncTime,
	"periodstodate":  query.FuncTime,
	"lastperiods":    query.FuncTime,
}

// lookupFunctionType returns the category for a function name, defaulting
// to MATH.
func lookupFunctionType(name string) query.FunctionType {
	if t, ok := functionTypes[strings.ToLower(name)]; ok {
		return t
	}
	return query.FuncMath
}

// transformExpression recursively converts an MDX expression tree into an IR
// expression. Operator text is preserved verbatim; precedence is whatever the
// parse tree already encodes.
func transformExpression(e mdx.Expr) (query.Expression, error) {
	switch expr := e.(type) {
	case nil:
		return nil, &TransformationError{Message: "missing expression"}

	case *mdx.Literal:
		return transformLiteral(expr), nil

	case *mdx.MemberExpr:
		ref := transformMemberRef(expr)
		if expr.HasSuffix(mdx.SegMembers) {
			// A .MEMBERS path in scalar position names the member set,
			// not a single member value.
			return &query.FunctionCall{
				Type: query.FuncSet,
				Name: "MEMBERS",
				Args: []query.Expression{ref},
			}, nil
		}
		return ref, nil

	case *mdx.ParenExpr:
		return transformExpression(expr.Expr)

	case *mdx.BinaryExpr:
		left, err := transformExpression(expr.Left)
		if err != nil {
			return nil, err
		}
		right, err := transformExpression(expr.Right)
		if err != nil {
			return nil, err
		}
		return &query.BinaryOp{Left: left, Operator: expr.Op.String(), Right: right}, nil

	case *mdx.UnaryExpr:
		inner, err := transformExpression(expr.Expr)
		if err != nil {
			return nil, err
		}
		switch expr.Op {
		case mdx.TOKEN_MINUS:
			return &query.BinaryOp{
				Left:     &query.Constant{Kind: query.ConstNumber, Value: "-1"},
				Operator: "*",
				Right:    inner,
			}, nil
		case mdx.TOKEN_NOT:
			return &query.FunctionCall{Type: query.FuncLogical, Name: "NOT", Args: []query.Expression{inner}}, nil
		default:
			return inner, nil
		}

	case *mdx.FuncCall:
		return transformFuncCall(expr)

	case *mdx.CaseExpr:
		return transformCase(expr)

	case *mdx.SetLiteral:
		args, err := transformExprList(expr.Items)
		if err != nil {
			return nil, err
		}
		return &query.FunctionCall{Type: query.FuncSet, Name: "SET", Args: args}, nil

	case *mdx.TupleExpr:
		args, err := transformExprList(expr.Items)
		if err != nil {
			return nil, err
		}
		return &query.FunctionCall{Type: query.FuncSet, Name: "TUPLE", Args: args}, nil

	default:
		return nil, &TransformationError{
			Message:  "no handler for expression",
			NodeType: fmt.Sprintf("%T", e),
		}
	}
}

func transformLiteral(lit *mdx.Literal) query.Expression {
	kind := query.ConstNumber
	switch lit.Type {
	case mdx.LiteralString:
		kind = query.ConstString
	case mdx.LiteralBool:
		kind = query.ConstBool
	}
	return &query.Constant{Kind: kind, Value: lit.Value}
}

// transformMemberRef maps a dotted path to a measure or member reference.
// Bare single identifiers and paths under [Measures] produce measure
// references.
func transformMemberRef(m *mdx.MemberExpr) query.Expression {
	names := m.NameSegments()
	switch {
	case len(names) == 0:
		return &query.Constant{Kind: query.ConstString, Value: ""}
	case len(names) == 1:
		return &query.MeasureRef{Name: names[0]}
	case strings.EqualFold(names[0], "Measures"):
		return &query.MeasureRef{Name: names[len(names)-1]}
	default:
		ref := &query.MemberRef{Hierarchy: names[0], Dimension: names[1]}
		if len(names) > 2 {
			ref.Member = names[len(names)-1]
		}
		if v, ok := m.KeySegment(); ok {
			ref.Member = v
		}
		return ref
	}
}

func transformFuncCall(call *mdx.FuncCall) (query.Expression, error) {
	args, err := transformExprList(call.Args)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(call.Name, "IIF") && len(args) == 3 {
		return &query.IifExpr{Condition: args[0], Then: args[1], Else: args[2]}, nil
	}

	return &query.FunctionCall{
		Type: lookupFunctionType(call.Name),
		Name: call.Name,
		Args: args,
	}, nil
}

func transformCase(c *mdx.CaseExpr) (query.Expression, error) {
	out := &query.CaseExpr{}
	var err error

	if c.Operand != nil {
		out.Operand, err = transformExpression(c.Operand)
		if err != nil {
			return nil, err
		}
	}
	for _, w := range c.Whens {
		when, err := transformExpression(w.Condition)
		if err != nil {
			return nil, err
		}
		then, err := transformExpression(w.Result)
		if err != nil {
			return nil, err
		}
		out.Whens = append(out.Whens, query.CaseWhen{When: when, Then: then})
	}
	if c.Else != nil {
		out.Else, err = transformExpression(c.Else)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func transformExprList(items []mdx.Expr) ([]query.Expression, error) {
	out := make([]query.Expression, 0, len(items))
	for _, it := range items {
		e, err := transformExpression(it)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
