package lint

import (
	"fmt"
	"strconv"
	"strings"

	"mdx2dax/internal/mdx"
)

// rule is one independently toggleable rewrite. apply receives a tree it
// may not mutate and returns the rewritten tree plus the actions taken.
type rule struct {
	name  string
	level OptimizationLevel
	apply func(cfg Config, q *mdx.Query) (*mdx.Query, []Action)
}

// rules run in declaration order. Conservative rules first keeps the
// moderate and aggressive folds working on already-normalized trees;
// reference normalization precedes duplicate removal so casing variants
// of one member collapse in a single pass.
var rules = []rule{
	{"parentheses_cleaner", LevelConservative, parenthesesCleaner},
	{"crossjoin_optimizer", LevelConservative, crossjoinOptimizer},
	{"normalize_member_references", LevelConservative, normalizeMemberReferences},
	{"duplicate_remover", LevelConservative, duplicateRemover},
	{"optimize_calculated_members", LevelModerate, optimizeCalculatedMembers},
	{"simplify_function_calls", LevelModerate, simplifyFunctionCalls},
	{"function_optimizer", LevelAggressive, functionOptimizer},
	{"inline_simple_expressions", LevelAggressive, inlineSimpleExpressions},
}

func knownRule(name string) bool {
	for _, r := range rules {
		if r.name == name {
			return true
		}
	}
	return false
}

// rewriteQuery applies fn bottom-up to every expression position in the
// query, sharing untouched nodes with the input.
func rewriteQuery(q *mdx.Query, fn func(mdx.Expr) mdx.Expr) *mdx.Query {
	out := *q

	if q.With != nil {
		with := &mdx.WithClause{Defs: make([]*mdx.WithDef, len(q.With.Defs))}
		for i, def := range q.With.Defs {
			d := *def
			d.Expr = mdx.RewriteExpr(def.Expr, fn)
			with.Defs[i] = &d
		}
		out.With = with
	}

	if q.Select != nil {
		sel := *q.Select
		sel.Axes = make([]*mdx.AxisSpec, len(q.Select.Axes))
		for i, axis := range q.Select.Axes {
			a := *axis
			a.Set = mdx.RewriteExpr(axis.Set, fn)
			sel.Axes[i] = &a
		}
		if q.Select.Where != nil {
			sel.Where = mdx.RewriteExpr(q.Select.Where, fn)
		}
		out.Select = &sel
	}

	return &out
}

// parenthesesCleaner drops parenthesized wrappers whose removal cannot
// change precedence: parens around literals, member paths, function calls,
// and other parens. Parens around binary and unary operations stay.
func parenthesesCleaner(_ Config, q *mdx.Query) (*mdx.Query, []Action) {
	var actions []Action
	out := rewriteQuery(q, func(e mdx.Expr) mdx.Expr {
		p, ok := e.(*mdx.ParenExpr)
		if !ok {
			return e
		}
		switch p.Expr.(type) {
		case *mdx.Literal, *mdx.MemberExpr, *mdx.FuncCall, *mdx.ParenExpr:
			actions = append(actions, Action{
				Type:        "remove_parentheses",
				Description: "removed redundant parentheses",
				Before:      mdx.FormatExpr(p),
				After:       mdx.FormatExpr(p.Expr),
			})
			return p.Expr
		}
		return e
	})
	return out, actions
}

// crossjoinDepth counts the deepest chain of nested CROSSJOIN calls rooted
// at call.
func crossjoinDepth(call *mdx.FuncCall) int {
	depth := 1
	for _, arg := range call.Args {
		if inner, ok := arg.(*mdx.FuncCall); ok && strings.EqualFold(inner.Name, "CROSSJOIN") {
			if d := 1 + crossjoinDepth(inner); d > depth {
				depth = d
			}
		}
	}
	return depth
}

// collectCrossjoinArgs flattens a crossjoin chain into its leaf arguments
// in source order.
func collectCrossjoinArgs(call *mdx.FuncCall) []mdx.Expr {
	var args []mdx.Expr
	for _, arg := range call.Args {
		if inner, ok := arg.(*mdx.FuncCall); ok && strings.EqualFold(inner.Name, "CROSSJOIN") {
			args = append(args, collectCrossjoinArgs(inner)...)
			continue
		}
		args = append(args, arg)
	}
	return args
}

// crossjoinOptimizer flattens crossjoin chains nested deeper than the
// configured limit into a single multi-argument call.
func crossjoinOptimizer(cfg Config, q *mdx.Query) (*mdx.Query, []Action) {
	var actions []Action
	out := rewriteQuery(q, func(e mdx.Expr) mdx.Expr {
		call, ok := e.(*mdx.FuncCall)
		if !ok || !strings.EqualFold(call.Name, "CROSSJOIN") {
			return e
		}
		if crossjoinDepth(call) <= cfg.MaxCrossjoinDepth {
			return e
		}
		flat := &mdx.FuncCall{Name: call.Name, Args: collectCrossjoinArgs(call)}
		actions = append(actions, Action{
			Type:        "flatten_crossjoin",
			Description: fmt.Sprintf("flattened crossjoin chain into %d-argument call", len(flat.Args)),
			Before:      mdx.FormatExpr(call),
			After:       mdx.FormatExpr(flat),
		})
		return flat
	})
	return out, actions
}

// duplicateRemover removes syntactically identical repeated items from set
// literals, keeping the first occurrence.
func duplicateRemover(_ Config, q *mdx.Query) (*mdx.Query, []Action) {
	var actions []Action
	out := rewriteQuery(q, func(e mdx.Expr) mdx.Expr {
		set, ok := e.(*mdx.SetLiteral)
		if !ok {
			return e
		}
		seen := make(map[string]bool, len(set.Items))
		kept := make([]mdx.Expr, 0, len(set.Items))
		for _, item := range set.Items {
			key := mdx.FormatExpr(item)
			if seen[key] {
				continue
			}
			seen[key] = true
			kept = append(kept, item)
		}
		if len(kept) == len(set.Items) {
			return e
		}
		deduped := &mdx.SetLiteral{Items: kept}
		actions = append(actions, Action{
			Type:        "remove_duplicates",
			Description: fmt.Sprintf("removed %d duplicate set member(s)", len(set.Items)-len(kept)),
			Before:      mdx.FormatExpr(set),
			After:       mdx.FormatExpr(deduped),
		})
		return deduped
	})
	return out, actions
}

// normalizeMemberReferences rewrites member paths that differ from an
// earlier occurrence only in casing to the first-seen spelling.
func normalizeMemberReferences(_ Config, q *mdx.Query) (*mdx.Query, []Action) {
	canonical := make(map[string]*mdx.MemberExpr)
	mdx.WalkQuery(q, func(e mdx.Expr) bool {
		if m, ok := e.(*mdx.MemberExpr); ok {
			key := strings.ToLower(mdx.FormatExpr(m))
			if _, seen := canonical[key]; !seen {
				canonical[key] = m
			}
		}
		return true
	})

	var actions []Action
	changed := make(map[string]bool)
	out := rewriteQuery(q, func(e mdx.Expr) mdx.Expr {
		m, ok := e.(*mdx.MemberExpr)
		if !ok {
			return e
		}
		text := mdx.FormatExpr(m)
		first, seen := canonical[strings.ToLower(text)]
		if !seen {
			return e
		}
		firstText := mdx.FormatExpr(first)
		if firstText == text {
			return e
		}
		if !changed[text] {
			changed[text] = true
			actions = append(actions, Action{
				Type:        "normalize_member_reference",
				Description: "unified member reference spelling",
				Before:      text,
				After:       firstText,
			})
		}
		return mdx.CloneExpr(first)
	})
	return out, actions
}

// foldNumeric folds a binary operation over two numeric literals. Division
// by zero and non-finite results are left alone.
func foldNumeric(b *mdx.BinaryExpr) (mdx.Expr, bool) {
	left, lok := b.Left.(*mdx.Literal)
	right, rok := b.Right.(*mdx.Literal)
	if !lok || !rok || left.Type != mdx.LiteralNumber || right.Type != mdx.LiteralNumber {
		return nil, false
	}
	l, err1 := strconv.ParseFloat(left.Value, 64)
	r, err2 := strconv.ParseFloat(right.Value, 64)
	if err1 != nil || err2 != nil {
		return nil, false
	}

	var v float64
	switch b.Op {
	case mdx.TOKEN_PLUS:
		v = l + r
	case mdx.TOKEN_MINUS:
		v = l - r
	case mdx.TOKEN_STAR:
		v = l * r
	case mdx.TOKEN_SLASH:
		if r == 0 {
			return nil, false
		}
		v = l / r
	default:
		return nil, false
	}
	return &mdx.Literal{Type: mdx.LiteralNumber, Value: strconv.FormatFloat(v, 'g', -1, 64)}, true
}

// optimizeCalculatedMembers constant-folds numeric arithmetic inside WITH
// clause definition bodies.
func optimizeCalculatedMembers(_ Config, q *mdx.Query) (*mdx.Query, []Action) {
	if q.With == nil {
		return q, nil
	}
	var actions []Action

	out := *q
	with := &mdx.WithClause{Defs: make([]*mdx.WithDef, len(q.With.Defs))}
	for i, def := range q.With.Defs {
		d := *def
		d.Expr = mdx.RewriteExpr(def.Expr, func(e mdx.Expr) mdx.Expr {
			b, ok := e.(*mdx.BinaryExpr)
			if !ok {
				return e
			}
			folded, ok := foldNumeric(b)
			if !ok {
				return e
			}
			actions = append(actions, Action{
				Type:        "fold_constant",
				Description: "folded constant arithmetic in calculated definition",
				Before:      mdx.FormatExpr(b),
				After:       mdx.FormatExpr(folded),
			})
			return folded
		})
		with.Defs[i] = &d
	}
	out.With = with
	return &out, actions
}

// idempotentFunctions can collapse when every argument is the same literal.
var idempotentFunctions = map[string]bool{
	"MAX":      true,
	"MIN":      true,
	"COALESCE": true,
}

// simplifyFunctionCalls collapses calls to idempotent functions whose
// arguments are identical literals down to the single argument.
func simplifyFunctionCalls(_ Config, q *mdx.Query) (*mdx.Query, []Action) {
	var actions []Action
	out := rewriteQuery(q, func(e mdx.Expr) mdx.Expr {
		call, ok := e.(*mdx.FuncCall)
		if !ok || len(call.Args) < 2 || !idempotentFunctions[strings.ToUpper(call.Name)] {
			return e
		}
		first, ok := call.Args[0].(*mdx.Literal)
		if !ok {
			return e
		}
		firstText := mdx.FormatExpr(first)
		for _, arg := range call.Args[1:] {
			lit, ok := arg.(*mdx.Literal)
			if !ok || mdx.FormatExpr(lit) != firstText {
				return e
			}
		}
		actions = append(actions, Action{
			Type:        "simplify_function_call",
			Description: "collapsed call with identical literal arguments",
			Before:      mdx.FormatExpr(call),
			After:       firstText,
		})
		return call.Args[0]
	})
	return out, actions
}

// functionOptimizer resolves conditionals with constant conditions:
// IIF over a boolean literal picks its branch, and double negation drops.
func functionOptimizer(_ Config, q *mdx.Query) (*mdx.Query, []Action) {
	var actions []Action
	out := rewriteQuery(q, func(e mdx.Expr) mdx.Expr {
		switch n := e.(type) {
		case *mdx.FuncCall:
			if !strings.EqualFold(n.Name, "IIF") || len(n.Args) != 3 {
				return e
			}
			cond, ok := n.Args[0].(*mdx.Literal)
			if !ok || cond.Type != mdx.LiteralBool {
				return e
			}
			branch := n.Args[2]
			if strings.EqualFold(cond.Value, "true") {
				branch = n.Args[1]
			}
			actions = append(actions, Action{
				Type:        "resolve_conditional",
				Description: "resolved IIF with constant condition",
				Before:      mdx.FormatExpr(n),
				After:       mdx.FormatExpr(branch),
			})
			return branch

		case *mdx.UnaryExpr:
			if n.Op != mdx.TOKEN_NOT {
				return e
			}
			inner, ok := n.Expr.(*mdx.UnaryExpr)
			if !ok || inner.Op != mdx.TOKEN_NOT {
				return e
			}
			actions = append(actions, Action{
				Type:        "remove_double_negation",
				Description: "removed double negation",
				Before:      mdx.FormatExpr(n),
				After:       mdx.FormatExpr(inner.Expr),
			})
			return inner.Expr
		}
		return e
	})
	return out, actions
}

// inlineSimpleExpressions substitutes references to literal-valued WITH
// definitions inside other definition bodies. Axis sets are left alone:
// a literal is not a valid set element.
func inlineSimpleExpressions(_ Config, q *mdx.Query) (*mdx.Query, []Action) {
	if q.With == nil || len(q.With.Defs) < 2 {
		return q, nil
	}

	literals := make(map[string]*mdx.Literal)
	for _, def := range q.With.Defs {
		if lit, ok := def.Expr.(*mdx.Literal); ok {
			literals[strings.ToLower(mdx.FormatExpr(def.Name))] = lit
		}
	}
	if len(literals) == 0 {
		return q, nil
	}

	var actions []Action
	out := *q
	with := &mdx.WithClause{Defs: make([]*mdx.WithDef, len(q.With.Defs))}
	for i, def := range q.With.Defs {
		d := *def
		selfKey := strings.ToLower(mdx.FormatExpr(def.Name))
		d.Expr = mdx.RewriteExpr(def.Expr, func(e mdx.Expr) mdx.Expr {
			m, ok := e.(*mdx.MemberExpr)
			if !ok {
				return e
			}
			key := strings.ToLower(mdx.FormatExpr(m))
			lit, found := literals[key]
			if !found || key == selfKey {
				return e
			}
			replacement := mdx.CloneExpr(lit)
			actions = append(actions, Action{
				Type:        "inline_expression",
				Description: "inlined literal-valued definition",
				Before:      mdx.FormatExpr(m),
				After:       mdx.FormatExpr(replacement),
			})
			return replacement
		})
		with.Defs[i] = &d
	}
	out.With = with
	return &out, actions
}
