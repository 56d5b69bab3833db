package mdx

import (
	"fmt"
	"strings"
)

// Expression parsing using a Pratt parser (precedence climbing).

// ParseExpr parses a standalone MDX expression, such as a calculated member
// body. The full input must be consumed.
func ParseExpr(input string) (Expr, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &ParseError{Message: "empty expression"}
	}

	p := NewParser(input, Options{})
	expr := p.parseExpression()
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	if p.token.Type != TOKEN_EOF {
		return nil, p.errorAt(p.token, fmt.Sprintf("unexpected token after expression: %q", p.token.Literal))
	}
	return expr, nil
}

// parseExpression parses an expression using precedence climbing.
func (p *Parser) parseExpression() Expr {
	return p.parseExpressionWithPrecedence(PrecedenceNone + 1)
}

// parseExpressionWithPrecedence implements Pratt parsing.
func (p *Parser) parseExpressionWithPrecedence(minPrecedence int) Expr {
	left := p.parsePrefixExpr()
	if left == nil {
		return nil
	}

	for !p.aborted() {
		prec := p.getInfixPrecedence()
		if prec < minPrecedence {
			break
		}
		left = p.parseInfixExpr(left, prec)
		if left == nil {
			break
		}
	}

	return left
}

// parsePrefixExpr parses prefix expressions (unary operators and primaries).
func (p *Parser) parsePrefixExpr() Expr {
	switch p.token.Type {
	case TOKEN_NOT:
		p.nextToken()
		return &UnaryExpr{Op: TOKEN_NOT, Expr: p.parseExpressionWithPrecedence(PrecedenceNot)}
	case TOKEN_MINUS:
		p.nextToken()
		return &UnaryExpr{Op: TOKEN_MINUS, Expr: p.parseExpressionWithPrecedence(PrecedenceUnary)}
	case TOKEN_PLUS:
		p.nextToken()
		return &UnaryExpr{Op: TOKEN_PLUS, Expr: p.parseExpressionWithPrecedence(PrecedenceUnary)}
	default:
		return p.parsePrimary()
	}
}

// getInfixPrecedence returns the precedence of the current token as an infix
// operator, or PrecedenceNone when it is not one.
func (p *Parser) getInfixPrecedence() int {
	switch p.token.Type {
	case TOKEN_UNION, TOKEN_INTERSECT, TOKEN_EXCEPT:
		return PrecedenceSetOp
	case TOKEN_OR:
		return PrecedenceOr
	case TOKEN_AND:
		return PrecedenceAnd
	case TOKEN_EQ, TOKEN_NE, TOKEN_LT, TOKEN_GT, TOKEN_LE, TOKEN_GE:
		return PrecedenceComparison
	case TOKEN_COLON:
		return PrecedenceRange
	case TOKEN_PLUS, TOKEN_MINUS:
		return PrecedenceAddition
	case TOKEN_STAR, TOKEN_SLASH:
		return PrecedenceMultiply
	default:
		return PrecedenceNone
	}
}

// parseInfixExpr parses an infix expression given the left operand.
func (p *Parser) parseInfixExpr(left Expr, prec int) Expr {
	op := p.token.Type
	p.nextToken()
	right := p.parseExpressionWithPrecedence(prec + 1)
	return &BinaryExpr{Left: left, Op: op, Right: right}
}

// parsePrimary parses primary expressions: set literals, parenthesized
// expressions and tuples, member paths, function calls, literals, and CASE.
func (p *Parser) parsePrimary() Expr {
	switch p.token.Type {
	case TOKEN_LBRACE:
		return p.parseSetLiteral()

	case TOKEN_LPAREN:
		return p.parseParenOrTuple()

	case TOKEN_NUMBER:
		lit := &Literal{Type: LiteralNumber, Value: p.token.Literal}
		p.nextToken()
		return lit

	case TOKEN_STRING:
		lit := &Literal{Type: LiteralString, Value: p.token.Literal}
		p.nextToken()
		return lit

	case TOKEN_CASE:
		return p.parseCaseExpr()

	case TOKEN_BRACKET_NAME:
		return p.parseMemberPath()

	case TOKEN_UNION, TOKEN_INTERSECT, TOKEN_EXCEPT:
		// Function-call form of the set operators: UNION(a, b).
		if p.checkPeek(TOKEN_LPAREN) {
			name := p.token.Type.String()
			p.nextToken()
			return p.parseFuncCall(name)
		}
		p.addError(fmt.Sprintf("unexpected %s", p.token.Type))
		return nil

	case TOKEN_IDENT:
		if strings.EqualFold(p.token.Literal, "true") || strings.EqualFold(p.token.Literal, "false") {
			lit := &Literal{Type: LiteralBool, Value: strings.ToUpper(p.token.Literal)}
			p.nextToken()
			return lit
		}
		if p.checkPeek(TOKEN_LPAREN) {
			name := p.token.Literal
			p.nextToken()
			return p.parseFuncCall(name)
		}
		return p.parseMemberPath()

	default:
		p.addError(fmt.Sprintf("unexpected token %s in expression", p.token.Type))
		return nil
	}
}

// parseSetLiteral parses {expr, expr, ...}. Empty sets are allowed.
func (p *Parser) parseSetLiteral() Expr {
	p.nextToken() // consume {
	set := &SetLiteral{}

	if p.match(TOKEN_RBRACE) {
		return set
	}

	for !p.aborted() {
		item := p.parseExpression()
		if item == nil {
			break
		}
		set.Items = append(set.Items, item)
		if !p.match(TOKEN_COMMA) {
			break
		}
	}
	p.expect(TOKEN_RBRACE)
	return set
}

// parseParenOrTuple parses a parenthesized expression. A single element
// yields ParenExpr; two or more comma-separated elements yield TupleExpr.
func (p *Parser) parseParenOrTuple() Expr {
	p.nextToken() // consume (

	var items []Expr
	for !p.aborted() {
		item := p.parseExpression()
		if item == nil {
			break
		}
		items = append(items, item)
		if !p.match(TOKEN_COMMA) {
			break
		}
	}
	p.expect(TOKEN_RPAREN)

	switch len(items) {
	case 0:
		p.addError("empty parenthesized expression")
		return nil
	case 1:
		return &ParenExpr{Expr: items[0]}
	default:
		return &TupleExpr{Items: items}
	}
}

// parseFuncCall parses the argument list of name(...). The name token has
// already been consumed; the current token is the opening parenthesis.
func (p *Parser) parseFuncCall(name string) Expr {
	p.nextToken() // consume (
	call := &FuncCall{Name: name}

	if p.match(TOKEN_RPAREN) {
		return call
	}

	for !p.aborted() {
		arg := p.parseExpression()
		if arg == nil {
			break
		}
		call.Args = append(call.Args, arg)
		if !p.match(TOKEN_COMMA) {
			break
		}
	}
	p.expect(TOKEN_RPAREN)
	return call
}

// parseMemberPath parses a dotted member path:
// bracketed_name ('.' tail)* where tail is a bracketed name, a bare name,
// '&' key reference, MEMBERS, or CHILDREN.
func (p *Parser) parseMemberPath() *MemberExpr {
	m := &MemberExpr{}

	switch p.token.Type {
	case TOKEN_BRACKET_NAME:
		m.Segments = append(m.Segments, MemberSegment{Kind: SegName, Name: p.token.Literal, Quoted: true})
	case TOKEN_IDENT:
		m.Segments = append(m.Segments, MemberSegment{Kind: SegName, Name: p.token.Literal})
	default:
		p.addError(fmt.Sprintf("expected member name, got %s", p.token.Type))
		return nil
	}
	p.nextToken()

	for p.match(TOKEN_DOT) {
		switch p.token.Type {
		case TOKEN_BRACKET_NAME:
			m.Segments = append(m.Segments, MemberSegment{Kind: SegName, Name: p.token.Literal, Quoted: true})
			p.nextToken()
		case TOKEN_AMP:
			p.nextToken()
			switch p.token.Type {
			case TOKEN_BRACKET_NAME:
				m.Segments = append(m.Segments, MemberSegment{Kind: SegKey, Name: p.token.Literal, Quoted: true})
			case TOKEN_IDENT, TOKEN_NUMBER:
				m.Segments = append(m.Segments, MemberSegment{Kind: SegKey, Name: p.token.Literal})
			default:
				p.addError(fmt.Sprintf("expected key value after '&', got %s", p.token.Type))
				return m
			}
			p.nextToken()
		case TOKEN_IDENT:
			switch {
			case strings.EqualFold(p.token.Literal, "MEMBERS"):
				m.Segments = append(m.Segments, MemberSegment{Kind: SegMembers})
			case strings.EqualFold(p.token.Literal, "CHILDREN"):
				m.Segments = append(m.Segments, MemberSegment{Kind: SegChildren})
			default:
				m.Segments = append(m.Segments, MemberSegment{Kind: SegName, Name: p.token.Literal})
			}
			p.nextToken()
		case TOKEN_NUMBER:
			// Bare numeric segment, e.g. Date.Year.2023.
			m.Segments = append(m.Segments, MemberSegment{Kind: SegName, Name: p.token.Literal})
			p.nextToken()
		default:
			p.addError(fmt.Sprintf("expected member segment after '.', got %s", p.token.Type))
			return m
		}
	}
	return m
}

// parseCaseExpr parses CASE [operand] WHEN cond THEN result ... [ELSE r] END.
func (p *Parser) parseCaseExpr() Expr {
	p.nextToken() // consume CASE
	c := &CaseExpr{}

	if !p.check(TOKEN_WHEN) {
		c.Operand = p.parseExpression()
	}

	for p.match(TOKEN_WHEN) {
		var w WhenClause
		w.Condition = p.parseExpression()
		p.expect(TOKEN_THEN)
		w.Result = p.parseExpression()
		c.Whens = append(c.Whens, w)
	}

	if len(c.Whens) == 0 {
		p.addError("CASE expression requires at least one WHEN clause")
	}

	if p.match(TOKEN_ELSE) {
		c.Else = p.parseExpression()
	}
	p.expect(TOKEN_END)
	return c
}
