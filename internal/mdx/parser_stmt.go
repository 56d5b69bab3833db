package mdx

import (
	"fmt"
	"strconv"
)

// parseQuery parses [with_clause] select_statement.
func (p *Parser) parseQuery() *Query {
	q := &Query{}

	if p.check(TOKEN_WITH) {
		q.With = p.parseWithClause()
	}

	if !p.check(TOKEN_SELECT) {
		p.addError(fmt.Sprintf("expected SELECT, got %s", p.token.Type))
		return q
	}
	q.Select = p.parseSelectStatement()
	return q
}

// parseWithClause parses WITH (MEMBER name AS expr | SET name AS expr)+.
func (p *Parser) parseWithClause() *WithClause {
	p.nextToken() // consume WITH
	w := &WithClause{}

	for !p.aborted() {
		var kind WithDefKind
		switch p.token.Type {
		case TOKEN_MEMBER:
			kind = DefMember
		case TOKEN_SET:
			kind = DefSet
		default:
			if len(w.Defs) == 0 {
				p.addError(fmt.Sprintf("expected MEMBER or SET after WITH, got %s", p.token.Type))
			}
			return w
		}
		p.nextToken()

		def := &WithDef{Kind: kind}
		def.Name = p.parseMemberPath()
		if def.Name == nil {
			p.addError("expected definition name after MEMBER/SET")
			return w
		}
		p.expect(TOKEN_AS)

		// The RHS may be quoted in legacy MDX: MEMBER x AS 'expr'. A quoted
		// body is re-parsed as an expression.
		if p.check(TOKEN_STRING) && !p.checkPeek(TOKEN_STRING) && looksLikeExpression(p.token.Literal) {
			inner, err := ParseExpr(p.token.Literal)
			if err == nil {
				def.Expr = inner
				p.nextToken()
			} else {
				def.Expr = p.parseExpression()
			}
		} else {
			def.Expr = p.parseExpression()
		}
		w.Defs = append(w.Defs, def)
	}
	return w
}

// parseSelectStatement parses
// SELECT axis_spec (',' axis_spec)* FROM cube_ref [WHERE where_expr].
func (p *Parser) parseSelectStatement() *SelectStmt {
	p.nextToken() // consume SELECT
	sel := &SelectStmt{}

	for !p.aborted() {
		axis := p.parseAxisSpec()
		if axis == nil {
			break
		}
		sel.Axes = append(sel.Axes, axis)
		if !p.match(TOKEN_COMMA) {
			break
		}
	}

	if !p.check(TOKEN_FROM) {
		p.addError(fmt.Sprintf("expected FROM, got %s", p.token.Type))
		return sel
	}
	p.nextToken()
	sel.From = p.parseCubeRef()

	if p.match(TOKEN_WHERE) {
		sel.Where = p.parseWhereExpr()
	}

	return sel
}

// parseAxisSpec parses [NON EMPTY] set_expr ON (axis_name | axis_number | AXIS(n)).
func (p *Parser) parseAxisSpec() *AxisSpec {
	axis := &AxisSpec{}

	if p.check(TOKEN_NON) {
		p.nextToken()
		p.expect(TOKEN_EMPTY)
		axis.NonEmpty = true
	}

	axis.Set = p.parseExpression()
	if axis.Set == nil {
		return nil
	}

	if !p.expect(TOKEN_ON) {
		return nil
	}

	ref, ok := p.parseAxisRef()
	if !ok {
		return nil
	}
	axis.Axis = ref
	return axis
}

// axisNames holds the ordinals with MDX names; higher axes format as AXIS(n).
var axisNames = [...]string{"COLUMNS", "ROWS", "PAGES", "SECTIONS", "CHAPTERS"}

func axisName(n int) string {
	if n < len(axisNames) {
		return axisNames[n]
	}
	return fmt.Sprintf("AXIS(%d)", n)
}

// parseAxisRef resolves COLUMNS/ROWS/PAGES/SECTIONS/CHAPTERS, a bare axis
// number, or AXIS(n) to an axis ordinal. Numeric spellings canonicalize to
// the axis name, so ON 0 and ON COLUMNS parse identically.
func (p *Parser) parseAxisRef() (AxisRef, bool) {
	switch p.token.Type {
	case TOKEN_COLUMNS:
		p.nextToken()
		return AxisRef{Number: 0, Name: "COLUMNS"}, true
	case TOKEN_ROWS:
		p.nextToken()
		return AxisRef{Number: 1, Name: "ROWS"}, true
	case TOKEN_PAGES:
		p.nextToken()
		return AxisRef{Number: 2, Name: "PAGES"}, true
	case TOKEN_SECTIONS:
		p.nextToken()
		return AxisRef{Number: 3, Name: "SECTIONS"}, true
	case TOKEN_CHAPTERS:
		p.nextToken()
		return AxisRef{Number: 4, Name: "CHAPTERS"}, true
	case TOKEN_NUMBER:
		n, err := strconv.Atoi(p.token.Literal)
		if err != nil || n < 0 {
			p.addError(fmt.Sprintf("invalid axis number %q", p.token.Literal))
			return AxisRef{}, false
		}
		p.nextToken()
		return AxisRef{Number: n, Name: axisName(n)}, true
	case TOKEN_AXIS:
		p.nextToken()
		if !p.expect(TOKEN_LPAREN) {
			return AxisRef{}, false
		}
		if !p.check(TOKEN_NUMBER) {
			p.addError("expected axis number inside AXIS(...)")
			return AxisRef{}, false
		}
		n, err := strconv.Atoi(p.token.Literal)
		if err != nil || n < 0 {
			p.addError(fmt.Sprintf("invalid axis number %q", p.token.Literal))
			return AxisRef{}, false
		}
		p.nextToken()
		if !p.expect(TOKEN_RPAREN) {
			return AxisRef{}, false
		}
		return AxisRef{Number: n, Name: axisName(n)}, true
	default:
		p.addError(fmt.Sprintf("expected axis name or number after ON, got %s", p.token.Type))
		return AxisRef{}, false
	}
}

// parseCubeRef parses the FROM target: dot-separated bracketed or bare
// segments, e.g. [Db].[Schema].[Cube] or plain Cube.
func (p *Parser) parseCubeRef() *CubeRef {
	ref := &CubeRef{}
	for {
		switch p.token.Type {
		case TOKEN_BRACKET_NAME, TOKEN_IDENT:
			ref.Parts = append(ref.Parts, p.token.Literal)
			p.nextToken()
		default:
			p.addError(fmt.Sprintf("expected cube name in FROM clause, got %s", p.token.Type))
			return ref
		}
		if !p.match(TOKEN_DOT) {
			break
		}
	}
	return ref
}

// parseWhereExpr parses the WHERE slicer. The grammar restricts WHERE to a
// single member expression or a tuple of member expressions; logical
// connectives and comparison operators are rejected here.
func (p *Parser) parseWhereExpr() Expr {
	if p.check(TOKEN_LPAREN) {
		p.nextToken()
		tuple := &TupleExpr{}
		for !p.aborted() {
			m := p.parseMemberPath()
			if m == nil {
				p.addError("expected member expression in WHERE tuple")
				return tuple
			}
			tuple.Items = append(tuple.Items, m)
			if !p.match(TOKEN_COMMA) {
				break
			}
		}
		p.expect(TOKEN_RPAREN)
		p.rejectWhereConnective()
		if len(tuple.Items) == 1 {
			return &ParenExpr{Expr: tuple.Items[0]}
		}
		return tuple
	}

	m := p.parseMemberPath()
	if m == nil {
		p.addError("expected member or tuple expression in WHERE clause")
		return nil
	}
	p.rejectWhereConnective()
	return m
}

// rejectWhereConnective produces a targeted error when WHERE is followed by
// a logical or comparison operator, which the grammar does not support.
func (p *Parser) rejectWhereConnective() {
	switch p.token.Type {
	case TOKEN_AND, TOKEN_OR, TOKEN_NOT, TOKEN_EQ, TOKEN_NE,
		TOKEN_LT, TOKEN_GT, TOKEN_LE, TOKEN_GE:
		p.addError(fmt.Sprintf(
			"operator %s is not supported in WHERE: the slicer accepts only member or tuple expressions", p.token.Type))
	}
}

// looksLikeExpression reports whether a quoted WITH body is plausibly an MDX
// expression rather than a plain string constant.
func looksLikeExpression(s string) bool {
	for _, ch := range s {
		switch ch {
		case '[', '(', '+', '-', '*', '/':
			return true
		}
	}
	return false
}
