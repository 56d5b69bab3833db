package mdx

import (
	"fmt"
	"strings"
)

// ParseError describes a failure to parse MDX text. Line and Col are 1-based
// and zero when no position is available. Context carries a short snippet of
// the offending source line.
type ParseError struct {
	Message string
	Line    int
	Col     int
	Context string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error at line %d, column %d: %s", e.Line, e.Col, e.Message)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

// snippet extracts a trimmed context string around the given line of input.
func snippet(input string, line int) string {
	if line <= 0 {
		return ""
	}
	lines := strings.Split(input, "\n")
	if line > len(lines) {
		return ""
	}
	s := strings.TrimSpace(lines[line-1])
	const max = 60
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}
