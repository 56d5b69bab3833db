package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"mdx2dax/internal/engine"
	"mdx2dax/internal/lint"
)

// OptionsFile is the YAML shape accepted by --options.
type OptionsFile struct {
	OptimizationLevel string          `yaml:"optimization-level,omitempty"`
	Rules             map[string]bool `yaml:"rules,omitempty"`
	MaxCrossjoinDepth int             `yaml:"max-crossjoin-depth,omitempty"`
	SkipLint          bool            `yaml:"skip-lint,omitempty"`

	FormatOutput  bool `yaml:"format-output,omitempty"`
	MaxLineLength int  `yaml:"max-line-length,omitempty"`
	IndentSize    int  `yaml:"indent-size,omitempty"`

	MaxParallel int `yaml:"max-parallel,omitempty"`
}

// loadOptions builds engine options from the --options file merged over the
// defaults. A missing flag value returns plain defaults.
func loadOptions(path string) (engine.Options, *OptionsFile, error) {
	opts := engine.DefaultOptions()
	if path == "" {
		return opts, &OptionsFile{}, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		return opts, nil, fmt.Errorf("read options file: %w", err)
	}
	var file OptionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return opts, nil, fmt.Errorf("parse options file: %w", err)
	}

	if file.OptimizationLevel != "" {
		level, err := lint.ParseLevel(file.OptimizationLevel)
		if err != nil {
			return opts, nil, err
		}
		opts.Lint.Level = level
	}
	if file.Rules != nil {
		opts.Lint.Rules = file.Rules
	}
	if file.MaxCrossjoinDepth > 0 {
		opts.Lint.MaxCrossjoinDepth = file.MaxCrossjoinDepth
	}
	opts.SkipLint = file.SkipLint

	opts.DAX.FormatOutput = file.FormatOutput
	if file.MaxLineLength > 0 {
		opts.DAX.MaxLineLength = file.MaxLineLength
	}
	if file.IndentSize > 0 {
		opts.DAX.IndentSize = file.IndentSize
	}

	if err := opts.Lint.Validate(); err != nil {
		return opts, nil, err
	}
	return opts, &file, nil
}
