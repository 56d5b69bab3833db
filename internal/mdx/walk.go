package mdx

// Walk traverses an expression tree depth-first, calling fn for each node.
// If fn returns false for a node, its children are not visited.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch expr := e.(type) {
	case *SetLiteral:
		for _, it := range expr.Items {
			Walk(it, fn)
		}
	case *TupleExpr:
		for _, it := range expr.Items {
			Walk(it, fn)
		}
	case *ParenExpr:
		Walk(expr.Expr, fn)
	case *FuncCall:
		for _, a := range expr.Args {
			Walk(a, fn)
		}
	case *BinaryExpr:
		Walk(expr.Left, fn)
		Walk(expr.Right, fn)
	case *UnaryExpr:
		Walk(expr.Expr, fn)
	case *CaseExpr:
		Walk(expr.Operand, fn)
		for _, w := range expr.Whens {
			Walk(w.Condition, fn)
			Walk(w.Result, fn)
		}
		Walk(expr.Else, fn)
	}
}

// WalkQuery visits every expression in the query: WITH definition bodies,
// axis sets, and the WHERE slicer.
func WalkQuery(q *Query, fn func(Expr) bool) {
	if q == nil {
		return
	}
	if q.With != nil {
		for _, d := range q.With.Defs {
			Walk(d.Name, fn)
			Walk(d.Expr, fn)
		}
	}
	if q.Select != nil {
		for _, a := range q.Select.Axes {
			Walk(a.Set, fn)
		}
		Walk(q.Select.Where, fn)
	}
}

// CollectMembers returns every member expression in the subtree, in
// depth-first order.
func CollectMembers(e Expr) []*MemberExpr {
	var out []*MemberExpr
	Walk(e, func(x Expr) bool {
		if m, ok := x.(*MemberExpr); ok {
			out = append(out, m)
		}
		return true
	})
	return out
}

// RewriteExpr rebuilds an expression tree bottom-up, replacing each node with
// the result of fn applied to a shallow-rebuilt copy. The input tree is never
// mutated. fn receives each rebuilt node and returns its replacement.
func RewriteExpr(e Expr, fn func(Expr) Expr) Expr {
	if e == nil {
		return nil
	}
	var rebuilt Expr
	switch expr := e.(type) {
	case *SetLiteral:
		out := &SetLiteral{Items: make([]Expr, len(expr.Items))}
		for i, it := range expr.Items {
			out.Items[i] = RewriteExpr(it, fn)
		}
		rebuilt = out
	case *TupleExpr:
		out := &TupleExpr{Items: make([]Expr, len(expr.Items))}
		for i, it := range expr.Items {
			out.Items[i] = RewriteExpr(it, fn)
		}
		rebuilt = out
	case *ParenExpr:
		rebuilt = &ParenExpr{Expr: RewriteExpr(expr.Expr, fn)}
	case *FuncCall:
		out := &FuncCall{Name: expr.Name, Args: make([]Expr, len(expr.Args))}
		for i, a := range expr.Args {
			out.Args[i] = RewriteExpr(a, fn)
		}
		rebuilt = out
	case *BinaryExpr:
		rebuilt = &BinaryExpr{
			Left:  RewriteExpr(expr.Left, fn),
			Op:    expr.Op,
			Right: RewriteExpr(expr.Right, fn),
		}
	case *UnaryExpr:
		rebuilt = &UnaryExpr{Op: expr.Op, Expr: RewriteExpr(expr.Expr, fn)}
	case *CaseExpr:
		out := &CaseExpr{
			Operand: RewriteExpr(expr.Operand, fn),
			Else:    RewriteExpr(expr.Else, fn),
		}
		for _, w := range expr.Whens {
			out.Whens = append(out.Whens, WhenClause{
				Condition: RewriteExpr(w.Condition, fn),
				Result:    RewriteExpr(w.Result, fn),
			})
		}
		rebuilt = out
	default:
		rebuilt = CloneExpr(e)
	}
	return fn(rebuilt)
}
