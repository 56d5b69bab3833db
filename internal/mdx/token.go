// Package mdx provides an MDX (MultiDimensional eXpressions) lexer, parser,
// AST, and formatter.
//
// The parser understands the SELECT/FROM/WHERE query form with axis
// specifications (ON COLUMNS, ON ROWS, ON AXIS(n)), WITH MEMBER/SET
// calculated definitions, set literals of arbitrary nesting depth, tuple
// expressions, member paths with key references ([Date].[Year].&[2023]),
// and the usual set functions (CROSSJOIN, UNION, FILTER, TOPCOUNT, ...).
//
// Known grammar limitations: WHERE takes only member or tuple expressions,
// so logical connectives and comparison operators inside WHERE are rejected.
// Block comments are not matched recursively; the first */ closes the
// comment.
package mdx

import "fmt"

// TokenType represents the type of a lexical token.
type TokenType int

// TOKEN_EOF and friends enumerate all token types produced by the lexer.
const (
	TOKEN_EOF     TokenType = iota // end of input
	TOKEN_ILLEGAL                  // unexpected character

	TOKEN_IDENT        // bare identifier
	TOKEN_BRACKET_NAME // [bracketed name]
	TOKEN_NUMBER       // 123, 45.67, 1e10
	TOKEN_STRING       // "hello" or 'hello'

	TOKEN_PLUS   // +
	TOKEN_MINUS  // -
	TOKEN_STAR   // *
	TOKEN_SLASH  // /
	TOKEN_EQ     // =
	TOKEN_NE     // <>
	TOKEN_LT     // <
	TOKEN_GT     // >
	TOKEN_LE     // <=
	TOKEN_GE     // >=
	TOKEN_DOT    // .
	TOKEN_COMMA  // ,
	TOKEN_LPAREN // (
	TOKEN_RPAREN // )
	TOKEN_LBRACE // {
	TOKEN_RBRACE // }
	TOKEN_AMP    // & (key reference)
	TOKEN_COLON  // : (member range)

	// TOKEN_SELECT and below are MDX keywords.
	TOKEN_SELECT
	TOKEN_FROM
	TOKEN_WHERE
	TOKEN_ON
	TOKEN_WITH
	TOKEN_MEMBER
	TOKEN_SET
	TOKEN_AS
	TOKEN_NON
	TOKEN_EMPTY
	TOKEN_AXIS
	TOKEN_COLUMNS
	TOKEN_ROWS
	TOKEN_PAGES
	TOKEN_SECTIONS
	TOKEN_CHAPTERS
	TOKEN_CASE
	TOKEN_WHEN
	TOKEN_THEN
	TOKEN_ELSE
	TOKEN_END
	TOKEN_AND
	TOKEN_OR
	TOKEN_NOT
	TOKEN_UNION
	TOKEN_INTERSECT
	TOKEN_EXCEPT
)

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", int(t))
}

// tokenNames maps token types to their string representations.
var tokenNames = map[TokenType]string{
	TOKEN_EOF:          "EOF",
	TOKEN_ILLEGAL:      "ILLEGAL",
	TOKEN_IDENT:        "IDENT",
	TOKEN_BRACKET_NAME: "BRACKET_NAME",
	TOKEN_NUMBER:       "NUMBER",
	TOKEN_STRING:       "STRING",

	TOKEN_PLUS:   "+",
	TOKEN_MINUS:  "-",
	TOKEN_STAR:   "*",
	TOKEN_SLASH:  "/",
	TOKEN_EQ:     "=",
	TOKEN_NE:     "<>",
	TOKEN_LT:     "<",
	TOKEN_GT:     ">",
	TOKEN_LE:     "<=",
	TOKEN_GE:     ">=",
	TOKEN_DOT:    ".",
	TOKEN_COMMA:  ",",
	TOKEN_LPAREN: "(",
	TOKEN_RPAREN: ")",
	TOKEN_LBRACE: "{",
	TOKEN_RBRACE: "}",
	TOKEN_AMP:    "&",
	TOKEN_COLON:  ":",

	TOKEN_SELECT:    "SELECT",
	TOKEN_FROM:      "FROM",
	TOKEN_WHERE:     "WHERE",
	TOKEN_ON:        "ON",
	TOKEN_WITH:      "WITH",
	TOKEN_MEMBER:    "MEMBER",
	TOKEN_SET:       "SET",
	TOKEN_AS:        "AS",
	TOKEN_NON:       "NON",
	TOKEN_EMPTY:     "EMPTY",
	TOKEN_AXIS:      "AXIS",
	TOKEN_COLUMNS:   "COLUMNS",
	TOKEN_ROWS:      "ROWS",
	TOKEN_PAGES:     "PAGES",
	TOKEN_SECTIONS:  "SECTIONS",
	TOKEN_CHAPTERS:  "CHAPTERS",
	TOKEN_CASE:      "CASE",
	TOKEN_WHEN:      "WHEN",
	TOKEN_THEN:      "THEN",
	TOKEN_ELSE:      "ELSE",
	TOKEN_END:       "END",
	TOKEN_AND:       "AND",
	TOKEN_OR:        "OR",
	TOKEN_NOT:       "NOT",
	TOKEN_UNION:     "UNION",
	TOKEN_INTERSECT: "INTERSECT",
	TOKEN_EXCEPT:    "EXCEPT",
}

// keywords maps lowercase keyword strings to their token types.
var keywords = map[string]TokenType{
	"select":    TOKEN_SELECT,
	"from":      TOKEN_FROM,
	"where":     TOKEN_WHERE,
	"on":        TOKEN_ON,
	"with":      TOKEN_WITH,
	"member":    TOKEN_MEMBER,
	"set":       TOKEN_SET,
	"as":        TOKEN_AS,
	"non":       TOKEN_NON,
	"empty":     TOKEN_EMPTY,
	"axis":      TOKEN_AXIS,
	"columns":   TOKEN_COLUMNS,
	"rows":      TOKEN_ROWS,
	"pages":     TOKEN_PAGES,
	"sections":  TOKEN_SECTIONS,
	"chapters":  TOKEN_CHAPTERS,
	"case":      TOKEN_CASE,
	"when":      TOKEN_WHEN,
	"then":      TOKEN_THEN,
	"else":      TOKEN_ELSE,
	"end":       TOKEN_END,
	"and":       TOKEN_AND,
	"or":        TOKEN_OR,
	"not":       TOKEN_NOT,
	"union":     TOKEN_UNION,
	"intersect": TOKEN_INTERSECT,
	"except":    TOKEN_EXCEPT,
}

// lookupKeyword returns the token type for the given lowercase identifier.
// Returns TOKEN_IDENT if it's not a keyword.
func lookupKeyword(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return TOKEN_IDENT
}

// Token represents a lexical token with its literal value and source position.
type Token struct {
	Type    TokenType
	Literal string
	Line    int // 1-based line number
	Col     int // 1-based column number
}

// Precedence constants for operator precedence parsing (Pratt parser).
const (
	PrecedenceNone       = 0
	PrecedenceSetOp      = 1 // UNION, INTERSECT, EXCEPT (infix set algebra)
	PrecedenceOr         = 2
	PrecedenceAnd        = 3
	PrecedenceNot        = 4
	PrecedenceComparison = 5 // =, <>, <, >, <=, >=
	PrecedenceRange      = 6 // : (member range)
	PrecedenceAddition   = 7 // +, -
	PrecedenceMultiply   = 8 // *, /
	PrecedenceUnary      = 9 // -, +, NOT (prefix)
)
