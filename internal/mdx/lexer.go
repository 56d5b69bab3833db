package mdx

import (
	"strings"
	"unicode"
)

// Comment is a source comment captured by the lexer. Comments are trivia for
// parsing purposes but are retained for hint extraction.
type Comment struct {
	Text  string // comment body without the delimiters
	Line  int    // 1-based line of the opening delimiter
	Block bool   // true for /* */ comments, false for line comments
}

// Lexer tokenizes MDX input.
type Lexer struct {
	input    string
	pos      int  // current position in input
	readPos  int  // reading position (after current char)
	ch       byte // current char under examination
	line     int
	col      int
	comments []Comment
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1, col: 0}
	l.readChar()
	return l
}

// Comments returns all comments seen so far, in source order.
func (l *Lexer) Comments() []Comment {
	return l.comments
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0 // NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
	l.col++
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	tok := Token{Line: l.line, Col: l.col}

	switch l.ch {
	case 0:
		tok.Type = TOKEN_EOF
		tok.Literal = ""
		return tok
	case '+':
		tok.Type, tok.Literal = TOKEN_PLUS, "+"
	case '-':
		tok.Type, tok.Literal = TOKEN_MINUS, "-"
	case '*':
		tok.Type, tok.Literal = TOKEN_STAR, "*"
	case '/':
		tok.Type, tok.Literal = TOKEN_SLASH, "/"
	case '=':
		tok.Type, tok.Literal = TOKEN_EQ, "="
	case '<':
		switch l.peekChar() {
		case '=':
			l.readChar()
			tok.Type, tok.Literal = TOKEN_LE, "<="
		case '>':
			l.readChar()
			tok.Type, tok.Literal = TOKEN_NE, "<>"
		default:
			tok.Type, tok.Literal = TOKEN_LT, "<"
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type, tok.Literal = TOKEN_GE, ">="
		} else {
			tok.Type, tok.Literal = TOKEN_GT, ">"
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type, tok.Literal = TOKEN_NE, "!="
		} else {
			tok.Type, tok.Literal = TOKEN_ILLEGAL, string(l.ch)
		}
	case '.':
		tok.Type, tok.Literal = TOKEN_DOT, "."
	case ',':
		tok.Type, tok.Literal = TOKEN_COMMA, ","
	case ';':
		// A trailing semicolon is tolerated as a statement terminator; a
		// semicolon followed by more input is not (no multi-statement MDX).
		l.readChar()
		l.skipWhitespaceAndComments()
		if l.ch == 0 {
			tok.Type, tok.Literal = TOKEN_EOF, ""
		} else {
			tok.Type, tok.Literal = TOKEN_ILLEGAL, ";"
		}
		return tok
	case '(':
		tok.Type, tok.Literal = TOKEN_LPAREN, "("
	case ')':
		tok.Type, tok.Literal = TOKEN_RPAREN, ")"
	case '{':
		tok.Type, tok.Literal = TOKEN_LBRACE, "{"
	case '}':
		tok.Type, tok.Literal = TOKEN_RBRACE, "}"
	case '&':
		tok.Type, tok.Literal = TOKEN_AMP, "&"
	case ':':
		tok.Type, tok.Literal = TOKEN_COLON, ":"
	case '[':
		tok.Type = TOKEN_BRACKET_NAME
		tok.Literal = l.readBracketName()
		return tok
	case '\'':
		tok.Type = TOKEN_STRING
		tok.Literal = l.readString('\'')
		return tok
	case '"':
		tok.Type = TOKEN_STRING
		tok.Literal = l.readString('"')
		return tok
	default:
		switch {
		case isLetter(l.ch) || l.ch == '_':
			literal := l.readIdentifier()
			tok.Literal = literal
			tok.Type = lookupKeyword(strings.ToLower(literal))
			return tok
		case isDigit(l.ch):
			tok.Type = TOKEN_NUMBER
			tok.Literal = l.readNumber()
			return tok
		default:
			tok.Type, tok.Literal = TOKEN_ILLEGAL, string(l.ch)
		}
	}

	l.readChar()
	return tok
}

// skipWhitespaceAndComments skips whitespace and MDX comments, recording
// comment bodies for later hint extraction. Supported comment forms are
// /* ... */, // ..., and -- ....
//
// Block comments do not nest: the first */ closes the comment regardless of
// any /* opened inside it.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}
		// Line comment (-- ... or // ...)
		if (l.ch == '-' && l.peekChar() == '-') || (l.ch == '/' && l.peekChar() == '/') {
			line := l.line
			l.readChar()
			l.readChar()
			start := l.pos
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			l.comments = append(l.comments, Comment{
				Text: strings.TrimSpace(l.input[start:l.pos]),
				Line: line,
			})
			continue
		}
		// Block comment (/* ... */)
		if l.ch == '/' && l.peekChar() == '*' {
			line := l.line
			l.readChar() // skip /
			l.readChar() // skip *
			start := l.pos
			end := len(l.input)
			for l.ch != 0 {
				if l.ch == '*' && l.peekChar() == '/' {
					end = l.pos
					l.readChar() // skip *
					l.readChar() // skip /
					break
				}
				l.readChar()
			}
			if end > len(l.input) {
				end = len(l.input)
			}
			l.comments = append(l.comments, Comment{
				Text:  strings.TrimSpace(l.input[start:end]),
				Line:  line,
				Block: true,
			})
			continue
		}
		break
	}
}

// readBracketName reads a [bracketed name]. A doubled ]] escapes a literal
// right bracket inside the name.
func (l *Lexer) readBracketName() string {
	l.readChar() // skip opening bracket
	var result strings.Builder
	for l.ch != 0 {
		if l.ch == ']' {
			if l.peekChar() == ']' {
				result.WriteByte(']')
				l.readChar()
				l.readChar()
			} else {
				l.readChar() // skip closing bracket
				break
			}
		} else {
			result.WriteByte(l.ch)
			l.readChar()
		}
	}
	return result.String()
}

// readString reads a quoted string literal delimited by quote. A doubled
// delimiter escapes an embedded quote.
func (l *Lexer) readString(quote byte) string {
	l.readChar() // skip opening quote
	var result strings.Builder
	for l.ch != 0 {
		if l.ch == quote {
			if l.peekChar() == quote {
				result.WriteByte(quote)
				l.readChar()
				l.readChar()
			} else {
				l.readChar() // skip closing quote
				break
			}
		} else {
			result.WriteByte(l.ch)
			l.readChar()
		}
	}
	return result.String()
}

// readIdentifier reads an unquoted identifier.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads a numeric literal (integer, decimal, or scientific).
func (l *Lexer) readNumber() string {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // skip .
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[start:l.pos]
}

func isLetter(ch byte) bool {
	return unicode.IsLetter(rune(ch))
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
