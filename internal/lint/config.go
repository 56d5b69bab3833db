// Package lint applies safe, semantics-preserving rewrites to parsed MDX
// trees before transformation. The linter never mutates its input; every
// rule is a pure tree to tree rewrite that records what it changed.
package lint

import (
	"fmt"
	"time"
)

// OptimizationLevel selects which rule set runs. Each level is a strict
// superset of the previous one.
type OptimizationLevel int

const (
	LevelNone OptimizationLevel = iota
	LevelConservative
	LevelModerate
	LevelAggressive
)

// String returns the level name.
func (l OptimizationLevel) String() string {
	switch l {
	case LevelNone:
		return "NONE"
	case LevelConservative:
		return "CONSERVATIVE"
	case LevelModerate:
		return "MODERATE"
	case LevelAggressive:
		return "AGGRESSIVE"
	default:
		return fmt.Sprintf("OptimizationLevel(%d)", int(l))
	}
}

// ParseLevel parses a level name, case-sensitively matching the String
// forms.
func ParseLevel(s string) (OptimizationLevel, error) {
	switch s {
	case "NONE", "none":
		return LevelNone, nil
	case "CONSERVATIVE", "conservative":
		return LevelConservative, nil
	case "MODERATE", "moderate":
		return LevelModerate, nil
	case "AGGRESSIVE", "aggressive":
		return LevelAggressive, nil
	default:
		return LevelNone, &ConfigurationError{
			Key:     "optimization_level",
			Message: fmt.Sprintf("unknown level %q", s),
		}
	}
}

// Config controls the linter. Rules maps rule names to explicit overrides:
// true force-enables a rule outside its level, false disables it within its
// level.
type Config struct {
	Level OptimizationLevel

	Rules map[string]bool

	// MaxCrossjoinDepth is the nesting depth above which crossjoin chains
	// are flattened.
	MaxCrossjoinDepth int

	// MaxProcessingTime bounds the whole lint pass. Zero means unbounded.
	// The budget is polled between rules; when exceeded the best tree so
	// far is returned with a truncation note.
	MaxProcessingTime time.Duration

	// SkipOnValidationError downgrades post-lint tree validity failures to
	// warnings instead of reverting to the original tree.
	SkipOnValidationError bool
}

// DefaultConfig returns a conservative configuration.
func DefaultConfig() Config {
	return Config{
		Level:             LevelConservative,
		MaxCrossjoinDepth: 2,
	}
}

// ConfigurationError reports an invalid option combination.
type ConfigurationError struct {
	Key     string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("lint config %s: %s", e.Key, e.Message)
	}
	return "lint config: " + e.Message
}

// Validate checks the configuration for contradictions. Force-enabling
// rules at level NONE is rejected: NONE promises no rewrites run.
func (c Config) Validate() error {
	if c.Level == LevelNone {
		for name, enabled := range c.Rules {
			if enabled {
				return &ConfigurationError{
					Key:     "rules",
					Message: fmt.Sprintf("rule %q force-enabled at optimization level NONE", name),
				}
			}
		}
	}
	if c.MaxCrossjoinDepth < 0 {
		return &ConfigurationError{
			Key:     "max_crossjoin_depth",
			Message: "must be non-negative",
		}
	}
	if c.MaxProcessingTime < 0 {
		return &ConfigurationError{
			Key:     "max_processing_time",
			Message: "must be non-negative",
		}
	}
	for name := range c.Rules {
		if !knownRule(name) {
			return &ConfigurationError{
				Key:     "rules",
				Message: fmt.Sprintf("unknown rule %q", name),
			}
		}
	}
	return nil
}

// enabled reports whether a rule runs under this configuration.
func (c Config) enabled(name string, ruleLevel OptimizationLevel) bool {
	if override, ok := c.Rules[name]; ok {
		return override
	}
	return c.Level >= ruleLevel && c.Level != LevelNone
}
