package mdx

import (
	"strings"
)

// FormatQuery formats a query AST back to compact MDX text. The output is
// flat (single spaces between clauses) and bracket-quotes member segments
// that were bracketed in the source.
func FormatQuery(q *Query) string {
	f := &formatter{}
	f.formatQuery(q)
	return strings.TrimSpace(f.buf.String())
}

// FormatExpr formats an expression AST back to compact MDX text.
func FormatExpr(e Expr) string {
	f := &formatter{}
	f.formatExpr(e)
	return strings.TrimSpace(f.buf.String())
}

// formatter is a simple MDX string builder. No indentation.
type formatter struct {
	buf strings.Builder
}

func (f *formatter) write(s string) {
	f.buf.WriteString(s)
}

// commaSep writes items separated by ", ".
func (f *formatter) commaSep(n int, fn func(i int)) {
	for i := 0; i < n; i++ {
		if i > 0 {
			f.write(", ")
		}
		fn(i)
	}
}

func (f *formatter) formatQuery(q *Query) {
	if q == nil {
		return
	}
	if q.With != nil && len(q.With.Defs) > 0 {
		f.write("WITH ")
		for i, d := range q.With.Defs {
			if i > 0 {
				f.write(" ")
			}
			if d.Kind == DefMember {
				f.write("MEMBER ")
			} else {
				f.write("SET ")
			}
			f.formatExpr(d.Name)
			f.write(" AS ")
			f.formatExpr(d.Expr)
		}
		f.write(" ")
	}
	f.formatSelect(q.Select)
}

func (f *formatter) formatSelect(s *SelectStmt) {
	if s == nil {
		return
	}
	f.write("SELECT ")
	f.commaSep(len(s.Axes), func(i int) {
		a := s.Axes[i]
		if a.NonEmpty {
			f.write("NON EMPTY ")
		}
		f.formatExpr(a.Set)
		f.write(" ON ")
		f.write(a.Axis.Name)
	})
	f.write(" FROM ")
	if s.From != nil {
		f.commaFreeCubeRef(s.From)
	}
	if s.Where != nil {
		f.write(" WHERE ")
		f.formatExpr(s.Where)
	}
}

func (f *formatter) commaFreeCubeRef(c *CubeRef) {
	for i, part := range c.Parts {
		if i > 0 {
			f.write(".")
		}
		f.write("[" + escapeBracket(part) + "]")
	}
}

// formatExpr dispatches expression formatting by type.
func (f *formatter) formatExpr(e Expr) {
	switch expr := e.(type) {
	case nil:
		return
	case *SetLiteral:
		f.write("{")
		f.commaSep(len(expr.Items), func(i int) { f.formatExpr(expr.Items[i]) })
		f.write("}")
	case *TupleExpr:
		f.write("(")
		f.commaSep(len(expr.Items), func(i int) { f.formatExpr(expr.Items[i]) })
		f.write(")")
	case *ParenExpr:
		f.write("(")
		f.formatExpr(expr.Expr)
		f.write(")")
	case *MemberExpr:
		f.formatMember(expr)
	case *FuncCall:
		f.write(expr.Name)
		f.write("(")
		f.commaSep(len(expr.Args), func(i int) { f.formatExpr(expr.Args[i]) })
		f.write(")")
	case *BinaryExpr:
		f.formatExpr(expr.Left)
		f.write(" " + expr.Op.String() + " ")
		f.formatExpr(expr.Right)
	case *UnaryExpr:
		if expr.Op == TOKEN_NOT {
			f.write("NOT ")
		} else {
			f.write(expr.Op.String())
		}
		f.formatExpr(expr.Expr)
	case *Literal:
		f.formatLiteral(expr)
	case *CaseExpr:
		f.write("CASE")
		if expr.Operand != nil {
			f.write(" ")
			f.formatExpr(expr.Operand)
		}
		for _, w := range expr.Whens {
			f.write(" WHEN ")
			f.formatExpr(w.Condition)
			f.write(" THEN ")
			f.formatExpr(w.Result)
		}
		if expr.Else != nil {
			f.write(" ELSE ")
			f.formatExpr(expr.Else)
		}
		f.write(" END")
	}
}

func (f *formatter) formatMember(m *MemberExpr) {
	for i, s := range m.Segments {
		if i > 0 {
			f.write(".")
		}
		switch s.Kind {
		case SegMembers:
			f.write("MEMBERS")
		case SegChildren:
			f.write("CHILDREN")
		case SegKey:
			f.write("&[" + escapeBracket(s.Name) + "]")
		default:
			if s.Quoted || strings.ContainsAny(s.Name, " .&") {
				f.write("[" + escapeBracket(s.Name) + "]")
			} else {
				f.write(s.Name)
			}
		}
	}
}

func (f *formatter) formatLiteral(lit *Literal) {
	switch lit.Type {
	case LiteralString:
		f.write(`"` + strings.ReplaceAll(lit.Value, `"`, `""`) + `"`)
	case LiteralBool:
		f.write(strings.ToUpper(lit.Value))
	default:
		f.write(lit.Value)
	}
}

// escapeBracket escapes right brackets inside a bracketed name by doubling.
func escapeBracket(s string) string {
	return strings.ReplaceAll(s, "]", "]]")
}
