package mdx

import (
	"fmt"
	"strings"
)

// Parser parses MDX into an AST.
type Parser struct {
	lexer  *Lexer
	input  string // original input for error snippets
	token  Token  // current token
	peek   Token  // lookahead token
	errors []*ParseError
	strict bool
	maxErr int
}

// Options controls parser behavior.
type Options struct {
	// Strict rejects constructs the grammar tolerates only loosely
	// (bare unbracketed member paths outside FROM).
	Strict bool
	// MaxErrors caps how many errors are collected before parsing aborts.
	// Zero means the default of 10.
	MaxErrors int
}

// NewParser creates a new parser for the given MDX input.
func NewParser(input string, opts Options) *Parser {
	maxErr := opts.MaxErrors
	if maxErr <= 0 {
		maxErr = 10
	}
	p := &Parser{
		lexer:  NewLexer(input),
		input:  input,
		strict: opts.Strict,
		maxErr: maxErr,
	}
	// Initialize two-token lookahead
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses the MDX text and returns the query AST.
// Empty or whitespace-only input is an error, never an empty tree.
func Parse(input string) (*Query, error) {
	return ParseWithOptions(input, Options{})
}

// ParseWithOptions parses with explicit parser options.
func ParseWithOptions(input string, opts Options) (*Query, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &ParseError{Message: "empty query"}
	}

	p := NewParser(input, opts)
	q := p.parseQuery()
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}

	if p.token.Type != TOKEN_EOF {
		return nil, p.errorAt(p.token, fmt.Sprintf("unexpected trailing input: %q", p.token.Literal))
	}

	q.Comments = p.lexer.Comments()
	return q, nil
}

// === Token Helpers ===

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.token = p.peek
	p.peek = p.lexer.NextToken()
}

// check returns true if the current token is of the given type.
func (p *Parser) check(t TokenType) bool {
	return p.token.Type == t
}

// checkPeek returns true if the peek token is of the given type.
func (p *Parser) checkPeek(t TokenType) bool {
	return p.peek.Type == t
}

// match consumes the current token if it matches and returns true.
func (p *Parser) match(t TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

// matchSoftKeyword consumes the current token if it's an identifier matching
// the given soft keyword (case-insensitive).
func (p *Parser) matchSoftKeyword(keyword string) bool {
	if p.check(TOKEN_IDENT) && strings.EqualFold(p.token.Literal, keyword) {
		p.nextToken()
		return true
	}
	return false
}

// expect consumes the current token if it matches, otherwise records an error.
func (p *Parser) expect(t TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	p.addError(fmt.Sprintf("unexpected token %s, expected %s", p.token.Type, t))
	return false
}

// addError records a parse error at the current token.
func (p *Parser) addError(msg string) {
	if len(p.errors) >= p.maxErr {
		return
	}
	p.errors = append(p.errors, p.errorAt(p.token, msg))
}

// errorAt builds a ParseError positioned at the given token.
func (p *Parser) errorAt(tok Token, msg string) *ParseError {
	return &ParseError{
		Message: msg,
		Line:    tok.Line,
		Col:     tok.Col,
		Context: snippet(p.input, tok.Line),
	}
}

// aborted reports whether error collection hit the cap.
func (p *Parser) aborted() bool {
	return len(p.errors) >= p.maxErr
}
