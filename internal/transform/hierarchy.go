package transform

import (
	"regexp"
	"sort"
	"strings"

	"mdx2dax/internal/mdx"
	"mdx2dax/internal/query"
)

// DefaultHierarchy is the fallback hierarchy for member references whose
// owning hierarchy cannot be inferred from the dotted-path pattern.
const DefaultHierarchy = "DefaultHierarchy"

// HierarchyMapping is the per-hierarchy working state built from all member
// references seen in one query. It is discarded once dimensions are final.
type HierarchyMapping struct {
	Table         string
	Hierarchy     string
	Levels        []string       // ordered level names, shallowest first
	LevelOrdinals map[string]int // level name -> ordinal (0 = shallowest)
	DeepestLevel  string
	Ragged        bool
	MemberPaths   map[string][]string // member leaf value -> full path segments
}

// Normalizer infers and normalizes dimension-table, hierarchy, and level
// names from the member references in a parsed query.
type Normalizer struct {
	mappings map[string]*HierarchyMapping
}

var (
	yearPattern    = regexp.MustCompile(`^\d{4}$`)
	quarterPattern = regexp.MustCompile(`(?i)^Q[1-4]$`)
)

var monthNames = map[string]bool{
	"january": true, "february": true, "march": true, "april": true,
	"may": true, "june": true, "july": true, "august": true,
	"september": true, "october": true, "november": true, "december": true,
	"jan": true, "feb": true, "mar": true, "apr": true, "jun": true,
	"jul": true, "aug": true, "sep": true, "oct": true, "nov": true, "dec": true,
}

// levelSpecificity ranks common level names from generic to specific; higher
// is deeper. Used when explicit ordinals are not available for every level.
var levelSpecificity = map[string]int{
	"all":         0,
	"year":        1,
	"semester":    2,
	"quarter":     2,
	"month":       3,
	"week":        4,
	"day":         5,
	"date":        5,
	"country":     1,
	"region":      2,
	"state":       2,
	"city":        3,
	"category":    1,
	"subcategory": 2,
	"product":     3,
}

// NewNormalizer builds hierarchy mappings from every member reference in the
// query, excluding measure references.
func NewNormalizer(q *mdx.Query) *Normalizer {
	n := &Normalizer{mappings: make(map[string]*HierarchyMapping)}
	mdx.WalkQuery(q, func(e mdx.Expr) bool {
		if m, ok := e.(*mdx.MemberExpr); ok {
			n.observe(m)
			return false // member path segments carry no nested expressions
		}
		return true
	})
	n.finalize()
	return n
}

// observe records one member reference into its hierarchy's mapping.
func (n *Normalizer) observe(m *mdx.MemberExpr) {
	names := m.NameSegments()
	if len(names) == 0 || strings.EqualFold(names[0], "Measures") {
		return
	}

	hierarchy := inferHierarchy(names)
	mapping, ok := n.mappings[hierarchy]
	if !ok {
		mapping = &HierarchyMapping{
			Table:         hierarchy,
			Hierarchy:     hierarchy,
			LevelOrdinals: make(map[string]int),
			MemberPaths:   make(map[string][]string),
		}
		n.mappings[hierarchy] = mapping
	}

	// Segment 1 (when present) names the level at ordinal 0, unless it is
	// itself a member value ([Date].[2023]), in which case the level is
	// inferred from the value shape. Deeper segments are member values,
	// except known level nouns ([Product].[Category].[Subcategory]), which
	// register deeper levels with explicit ordinals.
	for i := 1; i < len(names); i++ {
		seg := names[i]
		switch {
		case i == 1 && !isMemberValue(seg):
			mapping.addLevel(seg, 0)
		case i == 1:
			mapping.addLevel(inferLevelForValue(seg, names), 0)
		case !isMemberValue(seg) && isLevelNoun(seg):
			mapping.addLevel(seg, i-1)
		}
	}

	if len(names) > 1 {
		leaf := names[len(names)-1]
		mapping.MemberPaths[leaf] = names
	}
}

// addLevel registers a level at the given ordinal, keeping the first-seen
// ordinal for repeated levels.
func (hm *HierarchyMapping) addLevel(level string, ordinal int) {
	key := strings.ToLower(level)
	for _, l := range hm.Levels {
		if strings.EqualFold(l, level) {
			if ordinal > hm.LevelOrdinals[key] {
				hm.LevelOrdinals[key] = ordinal
			}
			return
		}
	}
	hm.Levels = append(hm.Levels, level)
	hm.LevelOrdinals[key] = ordinal
}

// finalize computes deepest levels and ragged flags for every hierarchy.
func (n *Normalizer) finalize() {
	for _, hm := range n.mappings {
		hm.DeepestLevel = hm.computeDeepest()
		hm.Ragged = hm.computeRagged()
		sort.SliceStable(hm.Levels, func(i, j int) bool {
			return hm.LevelOrdinals[strings.ToLower(hm.Levels[i])] <
				hm.LevelOrdinals[strings.ToLower(hm.Levels[j])]
		})
	}
}

// computeDeepest prefers explicit ordinals when every level has one;
// otherwise falls back to the structural specificity heuristic.
func (hm *HierarchyMapping) computeDeepest() string {
	if len(hm.Levels) == 0 {
		return "All"
	}

	deepest := hm.Levels[0]
	best := hm.LevelOrdinals[strings.ToLower(deepest)]
	for _, l := range hm.Levels[1:] {
		ord := hm.LevelOrdinals[strings.ToLower(l)]
		if ord > best {
			deepest, best = l, ord
			continue
		}
		if ord == best && specificity(l) > specificity(deepest) {
			deepest = l
		}
	}
	return deepest
}

// computeRagged reports whether observed member paths reach different depths.
func (hm *HierarchyMapping) computeRagged() bool {
	depth := -1
	for _, path := range hm.MemberPaths {
		if depth == -1 {
			depth = len(path)
			continue
		}
		if len(path) != depth {
			return true
		}
	}
	return false
}

// isLevelNoun reports whether a segment is a recognized level name.
func isLevelNoun(s string) bool {
	_, ok := levelSpecificity[strings.ToLower(s)]
	return ok
}

func specificity(level string) int {
	if s, ok := levelSpecificity[strings.ToLower(level)]; ok {
		return s
	}
	return 0
}

// Mapping returns the mapping for a hierarchy, or nil when the hierarchy was
// never referenced.
func (n *Normalizer) Mapping(hierarchy string) *HierarchyMapping {
	return n.mappings[hierarchy]
}

// Mappings returns all hierarchy mappings keyed by hierarchy name.
func (n *Normalizer) Mappings() map[string]*HierarchyMapping {
	return n.mappings
}

// DeepestLevel returns the deepest level referenced for the hierarchy.
// Unknown hierarchies report "All".
func (n *Normalizer) DeepestLevel(hierarchy string) string {
	if hm, ok := n.mappings[hierarchy]; ok {
		return hm.DeepestLevel
	}
	return "All"
}

// IsRedundantLevel reports whether the level is not the deepest level for
// its hierarchy; callers drop redundant intermediate level specifications.
func (n *Normalizer) IsRedundantLevel(hierarchy, level string) bool {
	hm, ok := n.mappings[hierarchy]
	if !ok {
		return false
	}
	return !strings.EqualFold(level, hm.DeepestLevel)
}

// IsRagged reports whether the hierarchy's member paths vary in depth.
func (n *Normalizer) IsRagged(hierarchy string) bool {
	if hm, ok := n.mappings[hierarchy]; ok {
		return hm.Ragged
	}
	return false
}

// MaxDepth returns the greatest level count across all hierarchies.
func (n *Normalizer) MaxDepth() int {
	max := 0
	for _, hm := range n.mappings {
		if len(hm.Levels) > max {
			max = len(hm.Levels)
		}
	}
	return max
}

// NormalizedDimension builds a Dimension snapped to the hierarchy's deepest
// level. An empty member list classifies the selection as ALL; a nonempty
// list as SPECIFIC.
func (n *Normalizer) NormalizedDimension(hierarchy, levelHint string, members []string) query.Dimension {
	level := levelHint
	if hm, ok := n.mappings[hierarchy]; ok {
		level = hm.DeepestLevel
	}
	if level == "" {
		level = "All"
	}

	sel := query.MemberSelection{Kind: query.SelectAll}
	if len(members) > 0 {
		sel = query.MemberSelection{Kind: query.SelectSpecific, Members: members}
	}

	return query.Dimension{
		Table:     hierarchy,
		Hierarchy: hierarchy,
		Level:     level,
		Selection: sel,
		Ragged:    n.IsRagged(hierarchy),
	}
}

// inferHierarchy infers the owning hierarchy from the dotted path. The first
// segment is the hierarchy unless it itself looks like a member value, in
// which case no pattern matches and the fallback name is used.
func inferHierarchy(names []string) string {
	if len(names) > 0 && !isMemberValue(names[0]) {
		return names[0]
	}
	return DefaultHierarchy
}

// isMemberValue reports whether a segment looks like a member value rather
// than a hierarchy or level name.
func isMemberValue(s string) bool {
	return yearPattern.MatchString(s) ||
		quarterPattern.MatchString(s) ||
		monthNames[strings.ToLower(s)]
}

// inferLevelForValue infers a level name from the shape of a member value:
// a four-digit token is a Year, Q1-Q4 a Quarter, a month name a Month.
// Anything else names a generic level from its context (the preceding
// segment) or falls back to "All".
func inferLevelForValue(value string, path []string) string {
	switch {
	case yearPattern.MatchString(value):
		return "Year"
	case quarterPattern.MatchString(value):
		return "Quarter"
	case monthNames[strings.ToLower(value)]:
		return "Month"
	}
	// Generic level named from context: the preceding path segment when it
	// is not itself a value.
	for i := len(path) - 1; i > 0; i-- {
		if path[i] == value && !isMemberValue(path[i-1]) {
			return path[i-1]
		}
	}
	if len(path) > 1 {
		return path[1]
	}
	return "All"
}
