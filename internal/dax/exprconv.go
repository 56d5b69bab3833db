package dax

import (
	"fmt"
	"strings"

	"mdx2dax/internal/query"
)

// functionMap translates recognized MDX function names to their DAX
// equivalents. Unlisted names pass through verbatim with converted
// arguments.
var functionMap = map[string]string{
	"SUM":           "SUM",
	"AVG":           "AVERAGE",
	"AVERAGE":       "AVERAGE",
	"COUNT":         "COUNT",
	"DISTINCTCOUNT": "DISTINCTCOUNT",
	"MIN":           "MIN",
	"MAX":           "MAX",
	"ABS":           "ABS",
	"ROUND":         "ROUND",
	"FORMAT":        "FORMAT",
	"NOT":           "NOT",
	"ISBLANK":       "ISBLANK",
}

// unsupportedFunctions lists names that parse cleanly but have no reliable
// DAX counterpart; ValidateExpr flags them.
var unsupportedFunctions = map[string]string{
	"STDDEV": "statistical function STDDEV is not guaranteed supported in DAX",
	"STDEV":  "statistical function STDEV is not guaranteed supported in DAX",
	"VAR":    "statistical function VAR is not guaranteed supported in DAX",
	"VARP":   "statistical function VARP is not guaranteed supported in DAX",
	"MEDIAN": "statistical function MEDIAN is not guaranteed supported in DAX",
}

// ConvertExpr renders an IR expression as DAX text. Division always becomes
// DIVIDE; CROSSJOIN in scalar position becomes an explanatory comment token
// instead of invalid DAX.
func ConvertExpr(e query.Expression) (string, error) {
	switch n := e.(type) {
	case *query.Constant:
		return convertConstant(n), nil

	case *query.MeasureRef:
		return "[" + n.Name + "]", nil

	case *query.MemberRef:
		if n.Member != "" {
			return quoteString(n.Member), nil
		}
		return columnRef(n.Hierarchy, n.Dimension), nil

	case *query.BinaryOp:
		return convertBinary(n)

	case *query.FunctionCall:
		return convertCall(n)

	case *query.IifExpr:
		cond, err := ConvertExpr(n.Condition)
		if err != nil {
			return "", err
		}
		then, err := ConvertExpr(n.Then)
		if err != nil {
			return "", err
		}
		els, err := ConvertExpr(n.Else)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("IF(%s, %s, %s)", cond, then, els), nil

	case *query.CaseExpr:
		return convertCase(n)

	case nil:
		return "", &GenerationError{Message: "nil expression"}

	default:
		return "", &GenerationError{
			Message:   "expression has no DAX rendering",
			Construct: fmt.Sprintf("%T", e),
		}
	}
}

func convertConstant(c *query.Constant) string {
	switch c.Kind {
	case query.ConstString:
		return quoteString(c.Value)
	case query.ConstBool:
		if strings.EqualFold(c.Value, "true") {
			return "TRUE"
		}
		return "FALSE"
	default:
		return c.Value
	}
}

func convertBinary(b *query.BinaryOp) (string, error) {
	left, err := ConvertExpr(b.Left)
	if err != nil {
		return "", err
	}
	right, err := ConvertExpr(b.Right)
	if err != nil {
		return "", err
	}

	switch strings.ToUpper(b.Operator) {
	case "/":
		return fmt.Sprintf("DIVIDE(%s, %s)", left, right), nil
	case "AND":
		return fmt.Sprintf("(%s && %s)", left, right), nil
	case "OR":
		return fmt.Sprintf("(%s || %s)", left, right), nil
	default:
		return fmt.Sprintf("(%s %s %s)", left, b.Operator, right), nil
	}
}

func convertCall(call *query.FunctionCall) (string, error) {
	upper := strings.ToUpper(call.Name)

	switch upper {
	case "IIF":
		if len(call.Args) != 3 {
			return "", &GenerationError{
				Message:   fmt.Sprintf("IIF expects 3 arguments, got %d", len(call.Args)),
				Construct: "FunctionCall",
			}
		}
		args, err := convertArgs(call.Args)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("IF(%s, %s, %s)", args[0], args[1], args[2]), nil

	case "COALESCE":
		return convertCoalesce(call.Args)

	case "MEMBERS":
		if len(call.Args) == 1 {
			arg, err := ConvertExpr(call.Args[0])
			if err != nil {
				return "", err
			}
			return "VALUES(" + arg + ")", nil
		}

	case "CROSSJOIN":
		// No scalar-position equivalent; emit a comment token so the output
		// stays syntactically harmless.
		return "-- CROSSJOIN has no scalar DAX equivalent", nil
	}

	name := upper
	if mapped, ok := functionMap[upper]; ok {
		name = mapped
	} else {
		name = call.Name
	}
	args, err := convertArgs(call.Args)
	if err != nil {
		return "", err
	}
	return name + "(" + strings.Join(args, ", ") + ")", nil
}

// convertCoalesce nests IF(ISBLANK(a), rest, a) chains; the final argument
// is returned as-is.
func convertCoalesce(args []query.Expression) (string, error) {
	if len(args) == 0 {
		return "", &GenerationError{Message: "COALESCE requires at least one argument"}
	}
	last, err := ConvertExpr(args[len(args)-1])
	if err != nil {
		return "", err
	}
	out := last
	for i := len(args) - 2; i >= 0; i-- {
		cur, err := ConvertExpr(args[i])
		if err != nil {
			return "", err
		}
		out = fmt.Sprintf("IF(ISBLANK(%s), %s, %s)", cur, out, cur)
	}
	return out, nil
}

func convertCase(c *query.CaseExpr) (string, error) {
	var parts []string

	if c.Operand != nil {
		operand, err := ConvertExpr(c.Operand)
		if err != nil {
			return "", err
		}
		parts = append(parts, operand)
	} else {
		parts = append(parts, "TRUE()")
	}

	for _, w := range c.Whens {
		when, err := ConvertExpr(w.When)
		if err != nil {
			return "", err
		}
		then, err := ConvertExpr(w.Then)
		if err != nil {
			return "", err
		}
		parts = append(parts, when, then)
	}

	if c.Else != nil {
		els, err := ConvertExpr(c.Else)
		if err != nil {
			return "", err
		}
		parts = append(parts, els)
	}

	return "SWITCH(" + strings.Join(parts, ", ") + ")", nil
}

func convertArgs(args []query.Expression) ([]string, error) {
	out := make([]string, len(args))
	for i, a := range args {
		s, err := ConvertExpr(a)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// ValidateExpr walks an expression and collects non-fatal semantic warnings
// about constructs whose DAX translation is lossy or unreliable.
func ValidateExpr(e query.Expression) []string {
	var warnings []string
	walkExpr(e, func(n query.Expression) {
		switch x := n.(type) {
		case *query.BinaryOp:
			if x.Operator == "%" {
				warnings = append(warnings, "modulo operator has no direct DAX infix form; use MOD()")
			}
		case *query.FunctionCall:
			upper := strings.ToUpper(x.Name)
			if msg, ok := unsupportedFunctions[upper]; ok {
				warnings = append(warnings, msg)
			}
			if upper == "CROSSJOIN" {
				warnings = append(warnings, "CROSSJOIN in scalar position was rendered as a comment")
			}
			if _, ok := functionMap[upper]; !ok {
				switch upper {
				case "IIF", "COALESCE", "MEMBERS", "CROSSJOIN", "SET", "TUPLE":
				default:
					if _, bad := unsupportedFunctions[upper]; !bad {
						warnings = append(warnings,
							fmt.Sprintf("function %s passed through unverified", x.Name))
					}
				}
			}
		}
	})
	return warnings
}

// walkExpr visits every node in the expression tree.
func walkExpr(e query.Expression, fn func(query.Expression)) {
	if e == nil {
		return
	}
	fn(e)
	switch n := e.(type) {
	case *query.BinaryOp:
		walkExpr(n.Left, fn)
		walkExpr(n.Right, fn)
	case *query.FunctionCall:
		for _, a := range n.Args {
			walkExpr(a, fn)
		}
	case *query.IifExpr:
		walkExpr(n.Condition, fn)
		walkExpr(n.Then, fn)
		walkExpr(n.Else, fn)
	case *query.CaseExpr:
		walkExpr(n.Operand, fn)
		for _, w := range n.Whens {
			walkExpr(w.When, fn)
			walkExpr(w.Then, fn)
		}
		walkExpr(n.Else, fn)
	}
}

// quoteString renders a DAX string literal, doubling embedded quotes.
func quoteString(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// columnRef renders a Table[Column] reference, quoting the table name when
// it contains spaces or collides with a DAX keyword.
func columnRef(table, column string) string {
	return quoteTable(table) + "[" + column + "]"
}

// daxKeywords holds names that must be quoted when used as table names.
var daxKeywords = map[string]bool{
	"DATE": true, "TIME": true, "YEAR": true, "MONTH": true, "DAY": true,
	"QUARTER": true, "CALENDAR": true, "VALUES": true, "ALL": true,
	"FILTER": true, "SWITCH": true, "TRUE": true, "FALSE": true,
	"NOT": true, "IN": true, "ORDER": true, "BY": true, "MEASURE": true,
	"DEFINE": true, "EVALUATE": true, "RETURN": true, "VAR": true,
	"CURRENCY": true, "RANK": true,
}

func quoteTable(name string) string {
	if name == "" {
		return name
	}
	if strings.ContainsAny(name, " \t") || daxKeywords[strings.ToUpper(name)] {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name
}
