package dax

import "strings"

// formatMaxLine is the line budget the formatter uses when deciding whether
// to break a call across lines.
const formatMaxLine = 100

// Format reflows DAX text: newlines before top-level keywords, one argument
// per line for calls that would overflow the line budget, indentation by
// paren depth. Only whitespace changes; token content including string and
// bracket interiors is preserved verbatim. Format is idempotent because the
// output depends only on the token sequence, which formatting never changes.
func Format(dax string, indentSize int) string {
	if indentSize <= 0 {
		indentSize = 4
	}
	toks := tokenizeDAX(dax)
	if len(toks) == 0 {
		return ""
	}
	p := &printer{toks: toks, indentSize: indentSize}
	return p.print()
}

type daxTokenKind int

const (
	tokWord daxTokenKind = iota
	tokString
	tokBracket
	tokQuoted // 'Table Name'
	tokOp
	tokComma
	tokOpenParen
	tokCloseParen
	tokOpenBrace
	tokCloseBrace
	tokComment
)

type daxToken struct {
	kind daxTokenKind
	text string

	// adjacent records that a bracket token touched the previous byte in
	// the source, distinguishing Table[Column] from BY [Column].
	adjacent bool
}

// tokenizeDAX splits DAX text into layout units, honoring string, bracket,
// and quoted-identifier boundaries including their doubled-character
// escapes.
func tokenizeDAX(s string) []daxToken {
	var toks []daxToken
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c == '"':
			toks = append(toks, daxToken{kind: tokString, text: scanDelimited(s, &i, '"')})

		case c == '\'':
			toks = append(toks, daxToken{kind: tokQuoted, text: scanDelimited(s, &i, '\'')})

		case c == '[':
			adjacent := i > 0 && (s[i-1] == '\'' || s[i-1] == ']' || isIdentByte(s[i-1]))
			toks = append(toks, daxToken{kind: tokBracket, text: scanBracket(s, &i), adjacent: adjacent})

		case c == '-' && i+1 < len(s) && s[i+1] == '-',
			c == '/' && i+1 < len(s) && s[i+1] == '/':
			start := i
			for i < len(s) && s[i] != '\n' {
				i++
			}
			toks = append(toks, daxToken{kind: tokComment, text: strings.TrimRight(s[start:i], " \t")})

		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			start := i
			i += 2
			for i+1 < len(s) && !(s[i] == '*' && s[i+1] == '/') {
				i++
			}
			if i+1 < len(s) {
				i += 2
			} else {
				i = len(s)
			}
			toks = append(toks, daxToken{kind: tokComment, text: s[start:i]})

		case c == '(':
			toks = append(toks, daxToken{kind: tokOpenParen, text: "("})
			i++
		case c == ')':
			toks = append(toks, daxToken{kind: tokCloseParen, text: ")"})
			i++
		case c == '{':
			toks = append(toks, daxToken{kind: tokOpenBrace, text: "{"})
			i++
		case c == '}':
			toks = append(toks, daxToken{kind: tokCloseBrace, text: "}"})
			i++
		case c == ',':
			toks = append(toks, daxToken{kind: tokComma, text: ","})
			i++

		case isOpByte(c):
			start := i
			i++
			for i < len(s) && isOpByte(s[i]) {
				i++
			}
			toks = append(toks, daxToken{kind: tokOp, text: s[start:i]})

		default:
			start := i
			for i < len(s) && !isDelimiterByte(s[i]) {
				i++
			}
			if i == start {
				i++ // skip a byte we cannot classify
				continue
			}
			toks = append(toks, daxToken{kind: tokWord, text: s[start:i]})
		}
	}
	return toks
}

// scanDelimited reads a delimited literal where the delimiter escapes
// itself by doubling. Interior content, including newlines, is kept
// verbatim.
func scanDelimited(s string, i *int, delim byte) string {
	start := *i
	*i++
	for *i < len(s) {
		if s[*i] == delim {
			if *i+1 < len(s) && s[*i+1] == delim {
				*i += 2
				continue
			}
			*i++
			break
		}
		*i++
	}
	return s[start:*i]
}

// scanBracket reads a [...] identifier; ]] escapes a closing bracket.
func scanBracket(s string, i *int) string {
	start := *i
	*i++
	for *i < len(s) {
		if s[*i] == ']' {
			if *i+1 < len(s) && s[*i+1] == ']' {
				*i += 2
				continue
			}
			*i++
			break
		}
		*i++
	}
	return s[start:*i]
}

func isOpByte(c byte) bool {
	switch c {
	case '=', '<', '>', '+', '-', '*', '/', '&', '|', '^', '%':
		return true
	}
	return false
}

func isDelimiterByte(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '(', ')', '{', '}', ',', '"', '\'', '[':
		return true
	}
	return isOpByte(c)
}

// lineKeywords begin a new line when seen outside parentheses.
var lineKeywords = map[string]bool{
	"DEFINE":   true,
	"EVALUATE": true,
	"MEASURE":  true,
	"ORDER":    true,
	"VAR":      true,
	"RETURN":   true,
}

// breakAfter keywords also push the following tokens onto a fresh line.
var breakAfter = map[string]bool{
	"DEFINE":   true,
	"EVALUATE": true,
}

type printer struct {
	toks       []daxToken
	indentSize int

	out  strings.Builder
	line strings.Builder

	// broken stacks whether each currently open paren was split across
	// lines; indent is the count of broken parens.
	broken []bool
	indent int
}

func (p *printer) print() string {
	split := p.splitDecisions()

	for i, t := range p.toks {
		switch t.kind {
		case tokComment:
			p.flush()
			p.line.WriteString(t.text)
			p.flush()

		case tokWord:
			upper := strings.ToUpper(t.text)
			if lineKeywords[upper] && len(p.broken) == 0 && p.line.Len() > 0 {
				p.flush()
			}
			p.writeSpaced(t.text)
			if breakAfter[upper] && len(p.broken) == 0 {
				p.flush()
			}

		case tokOpenParen:
			p.line.WriteString("(")
			p.broken = append(p.broken, split[i])
			if split[i] {
				p.flush()
				p.indent++
			}

		case tokCloseParen:
			wasBroken := false
			if n := len(p.broken); n > 0 {
				wasBroken = p.broken[n-1]
				p.broken = p.broken[:n-1]
			}
			if wasBroken {
				p.flush()
				p.indent--
			}
			p.line.WriteString(")")

		case tokComma:
			p.line.WriteString(",")
			if n := len(p.broken); n > 0 && p.broken[n-1] {
				p.flush()
			} else {
				p.line.WriteString(" ")
			}

		case tokBracket:
			p.writeBracket(t)

		case tokOpenBrace:
			p.writeSpaced("{")
		case tokCloseBrace:
			p.line.WriteString(" }")

		case tokOp:
			p.line.WriteString(" " + t.text)

		default:
			p.writeSpaced(t.text)
		}
	}
	p.flush()
	return strings.Trim(p.out.String(), "\n")
}

// writeSpaced appends a token with a single separating space when the line
// already ends in token content.
func (p *printer) writeSpaced(text string) {
	if p.line.Len() > 0 {
		last := p.line.String()[p.line.Len()-1]
		if last != '(' && last != ' ' {
			p.line.WriteString(" ")
		}
	}
	p.line.WriteString(text)
}

// writeBracket joins a [...] reference tightly to a preceding identifier or
// quoted table name only when the source had no whitespace between them, so
// Table[Column] and 'Table'[Column] stay intact while BY [Column] keeps its
// space.
func (p *printer) writeBracket(t daxToken) {
	if t.adjacent && p.line.Len() > 0 {
		last := p.line.String()[p.line.Len()-1]
		if last == '\'' || last == ']' || isIdentByte(last) {
			p.line.WriteString(t.text)
			return
		}
	}
	p.writeSpaced(t.text)
}

func isIdentByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

func (p *printer) flush() {
	text := strings.TrimRight(p.line.String(), " \t")
	p.line.Reset()
	if text == "" {
		return
	}
	p.out.WriteString(strings.Repeat(" ", p.indent*p.indentSize))
	p.out.WriteString(text)
	p.out.WriteString("\n")
}

// splitDecisions marks each open paren whose inline rendering would exceed
// the line budget. The decision depends only on token content, so repeated
// formatting reaches a fixed point.
func (p *printer) splitDecisions() []bool {
	split := make([]bool, len(p.toks))
	var stack []int

	for i, t := range p.toks {
		switch t.kind {
		case tokOpenParen:
			stack = append(stack, i)
		case tokCloseParen:
			if len(stack) == 0 {
				continue
			}
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			inline := 0
			for j := open; j <= i; j++ {
				inline += len(p.toks[j].text) + 1
				if p.toks[j].kind == tokComment {
					inline += formatMaxLine // comments force a split
				}
			}
			if inline > formatMaxLine {
				split[open] = true
			}
		}
	}
	return split
}
