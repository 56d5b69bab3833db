package mdx

// Deep-copy helpers. The linter never mutates its input tree: it clones the
// query and substitutes rewritten subtrees in the copy.

// CloneQuery returns a deep copy of the query.
func CloneQuery(q *Query) *Query {
	if q == nil {
		return nil
	}
	out := &Query{
		With:   cloneWith(q.With),
		Select: cloneSelect(q.Select),
	}
	if q.Comments != nil {
		out.Comments = append([]Comment(nil), q.Comments...)
	}
	return out
}

func cloneWith(w *WithClause) *WithClause {
	if w == nil {
		return nil
	}
	out := &WithClause{Defs: make([]*WithDef, len(w.Defs))}
	for i, d := range w.Defs {
		out.Defs[i] = &WithDef{
			Kind: d.Kind,
			Name: cloneMember(d.Name),
			Expr: CloneExpr(d.Expr),
		}
	}
	return out
}

func cloneSelect(s *SelectStmt) *SelectStmt {
	if s == nil {
		return nil
	}
	out := &SelectStmt{Where: CloneExpr(s.Where)}
	for _, a := range s.Axes {
		out.Axes = append(out.Axes, &AxisSpec{
			NonEmpty: a.NonEmpty,
			Set:      CloneExpr(a.Set),
			Axis:     a.Axis,
		})
	}
	if s.From != nil {
		out.From = &CubeRef{Parts: append([]string(nil), s.From.Parts...)}
	}
	return out
}

func cloneMember(m *MemberExpr) *MemberExpr {
	if m == nil {
		return nil
	}
	return &MemberExpr{Segments: append([]MemberSegment(nil), m.Segments...)}
}

// CloneExpr returns a deep copy of an expression tree.
func CloneExpr(e Expr) Expr {
	switch expr := e.(type) {
	case nil:
		return nil
	case *SetLiteral:
		return &SetLiteral{Items: cloneExprs(expr.Items)}
	case *TupleExpr:
		return &TupleExpr{Items: cloneExprs(expr.Items)}
	case *ParenExpr:
		return &ParenExpr{Expr: CloneExpr(expr.Expr)}
	case *MemberExpr:
		return cloneMember(expr)
	case *FuncCall:
		return &FuncCall{Name: expr.Name, Args: cloneExprs(expr.Args)}
	case *BinaryExpr:
		return &BinaryExpr{Left: CloneExpr(expr.Left), Op: expr.Op, Right: CloneExpr(expr.Right)}
	case *UnaryExpr:
		return &UnaryExpr{Op: expr.Op, Expr: CloneExpr(expr.Expr)}
	case *Literal:
		lit := *expr
		return &lit
	case *CaseExpr:
		out := &CaseExpr{Operand: CloneExpr(expr.Operand), Else: CloneExpr(expr.Else)}
		for _, w := range expr.Whens {
			out.Whens = append(out.Whens, WhenClause{
				Condition: CloneExpr(w.Condition),
				Result:    CloneExpr(w.Result),
			})
		}
		return out
	default:
		return e
	}
}

func cloneExprs(items []Expr) []Expr {
	if items == nil {
		return nil
	}
	out := make([]Expr, len(items))
	for i, it := range items {
		out[i] = CloneExpr(it)
	}
	return out
}
