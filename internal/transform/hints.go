package transform

import (
	"strings"

	"mdx2dax/internal/mdx"
)

// HintType classifies a structured comment hint.
type HintType int

const (
	HintPerformance HintType = iota
	HintCaching
	HintIndex
	HintAggregation
	HintFilterPushDown
	HintMaterialization
	HintParallel
	HintMemory
	HintCustom // catch-all, including TODO/FIXME/HACK/BUG/IMPORTANT markers
)

// String returns the hint type name.
func (h HintType) String() string {
	switch h {
	case HintPerformance:
		return "PERFORMANCE"
	case HintCaching:
		return "CACHING"
	case HintIndex:
		return "INDEX"
	case HintAggregation:
		return "AGGREGATION"
	case HintFilterPushDown:
		return "FILTER_PUSH_DOWN"
	case HintMaterialization:
		return "MATERIALIZATION"
	case HintParallel:
		return "PARALLEL"
	case HintMemory:
		return "MEMORY"
	default:
		return "CUSTOM"
	}
}

// Severity grades a hint.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "ERROR"
	case SeverityWarning:
		return "WARNING"
	default:
		return "INFO"
	}
}

// CommentHint is one structured hint extracted from a source comment.
type CommentHint struct {
	Type     HintType
	Message  string // comment text with the triggering keyword preamble stripped
	Line     int    // 1-based, zero when unknown
	Context  string // truncated comment text
	Severity Severity
}

// hintKeywords maps trigger keywords to hint types, checked in order so the
// more specific phrases win.
var hintKeywords = []struct {
	keyword string
	typ     HintType
}{
	{"filter push", HintFilterPushDown},
	{"pushdown", HintFilterPushDown},
	{"push down", HintFilterPushDown},
	{"performance", HintPerformance},
	{"optimize", HintPerformance},
	{"slow", HintPerformance},
	{"caching", HintCaching},
	{"cache", HintCaching},
	{"index", HintIndex},
	{"aggregation", HintAggregation},
	{"aggregate", HintAggregation},
	{"rollup", HintAggregation},
	{"materialization", HintMaterialization},
	{"materialize", HintMaterialization},
	{"parallel", HintParallel},
	{"memory", HintMemory},
	{"todo", HintCustom},
	{"fixme", HintCustom},
	{"hack", HintCustom},
	{"bug", HintCustom},
	{"important", HintCustom},
}

// metadataKeys is the fixed vocabulary recognized by ExtractQueryMetadata.
var metadataKeys = map[string]string{
	"author":      "author",
	"created":     "created",
	"purpose":     "purpose",
	"data source": "data source",
	"datasource":  "data source",
	"frequency":   "frequency",
}

// ExtractHints scans the query's comment tokens and, when source text is
// supplied, re-scans the raw text for comment spans the lexer may have
// discarded. Identical (type, message) pairs are deduplicated.
func ExtractHints(q *mdx.Query, sourceText string) []CommentHint {
	comments := collectComments(q, sourceText)

	var hints []CommentHint
	seen := make(map[string]bool)
	for _, c := range comments {
		hint, ok := classifyComment(c)
		if !ok {
			continue
		}
		key := hint.Type.String() + "\x00" + hint.Message
		if seen[key] {
			continue
		}
		seen[key] = true
		hints = append(hints, hint)
	}
	return hints
}

// ExtractQueryMetadata looks for "key: value" lines inside block comments
// matching a small fixed vocabulary and returns them merged across all
// matching comments.
func ExtractQueryMetadata(q *mdx.Query, sourceText string) map[string]string {
	meta := make(map[string]string)
	for _, c := range collectComments(q, sourceText) {
		if !c.Block {
			continue
		}
		for _, line := range strings.Split(c.Text, "\n") {
			line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "*"))
			idx := strings.Index(line, ":")
			if idx <= 0 {
				continue
			}
			key := strings.ToLower(strings.TrimSpace(line[:idx]))
			if canonical, ok := metadataKeys[key]; ok {
				meta[canonical] = strings.TrimSpace(line[idx+1:])
			}
		}
	}
	return meta
}

// collectComments merges tree comments with a direct re-scan of the source
// text, deduplicating by text.
func collectComments(q *mdx.Query, sourceText string) []mdx.Comment {
	var comments []mdx.Comment
	if q != nil {
		comments = append(comments, q.Comments...)
	}
	if sourceText != "" {
		seen := make(map[string]bool, len(comments))
		for _, c := range comments {
			seen[c.Text] = true
		}
		for _, c := range scanComments(sourceText) {
			if !seen[c.Text] {
				seen[c.Text] = true
				comments = append(comments, c)
			}
		}
	}
	return comments
}

// scanComments extracts /* */, //, and -- comment spans directly from text.
// Block comments close at the first */ regardless of nesting.
func scanComments(text string) []mdx.Comment {
	var out []mdx.Comment
	line := 1
	for i := 0; i < len(text); i++ {
		switch {
		case text[i] == '\n':
			line++
		case text[i] == '/' && i+1 < len(text) && text[i+1] == '*':
			start := i + 2
			end := strings.Index(text[start:], "*/")
			body := ""
			if end < 0 {
				body = text[start:]
				i = len(text)
			} else {
				body = text[start : start+end]
				i = start + end + 1
			}
			out = append(out, mdx.Comment{Text: strings.TrimSpace(body), Line: line, Block: true})
			line += strings.Count(body, "\n")
		case (text[i] == '/' && i+1 < len(text) && text[i+1] == '/') ||
			(text[i] == '-' && i+1 < len(text) && text[i+1] == '-'):
			start := i + 2
			end := strings.IndexByte(text[start:], '\n')
			body := ""
			if end < 0 {
				body = text[start:]
				i = len(text)
			} else {
				body = text[start : start+end]
				i = start + end - 1
			}
			out = append(out, mdx.Comment{Text: strings.TrimSpace(body), Line: line})
		}
	}
	return out
}

// classifyComment pattern-matches a comment into a hint. Comments with no
// recognizable keyword produce no hint.
func classifyComment(c mdx.Comment) (CommentHint, bool) {
	lower := strings.ToLower(c.Text)

	for _, hk := range hintKeywords {
		idx := strings.Index(lower, hk.keyword)
		if idx < 0 {
			continue
		}
		msg := stripKeywordPrefix(c.Text, idx, len(hk.keyword))
		return CommentHint{
			Type:     hk.typ,
			Message:  msg,
			Line:     c.Line,
			Context:  truncate(c.Text, 50),
			Severity: severityOf(lower),
		}, true
	}
	return CommentHint{}, false
}

// stripKeywordPrefix removes the triggering keyword and any separator
// punctuation that follows it, when the keyword leads the comment.
func stripKeywordPrefix(text string, idx, keyLen int) string {
	if idx > 2 { // keyword not at the front: keep the whole text
		return strings.TrimSpace(text)
	}
	rest := strings.TrimSpace(text[idx+keyLen:])
	rest = strings.TrimLeft(rest, ":-– ")
	if rest == "" {
		return strings.TrimSpace(text)
	}
	return rest
}

func severityOf(lower string) Severity {
	switch {
	case strings.Contains(lower, "error") || strings.Contains(lower, "critical"):
		return SeverityError
	case strings.Contains(lower, "warning") || strings.Contains(lower, "issue"):
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
