package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"mdx2dax/internal/engine"
	"mdx2dax/internal/lint"
)

func newConvertCmd() *cobra.Command {
	var (
		file        string
		level       string
		skipLint    bool
		format      bool
		showReport  bool
		batchDir    string
		maxParallel int
	)

	cmd := &cobra.Command{
		Use:   "convert [query]",
		Short: "Convert an MDX query to DAX",
		Long: "Converts MDX to DAX. The query comes from the argument, --file, or stdin.\n" +
			"With --batch-dir every *.mdx file in the directory is converted in parallel.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			optionsFile, _ := cmd.Root().PersistentFlags().GetString("options")
			opts, fileOpts, err := loadOptions(optionsFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("optimization-level") {
				parsed, err := lint.ParseLevel(level)
				if err != nil {
					return err
				}
				opts.Lint.Level = parsed
			}
			if cmd.Flags().Changed("skip-lint") {
				opts.SkipLint = skipLint
			}
			if cmd.Flags().Changed("format") {
				opts.DAX.FormatOutput = format
			}

			if batchDir != "" {
				if maxParallel == 0 {
					maxParallel = fileOpts.MaxParallel
				}
				return runBatch(cmd, batchDir, opts, maxParallel)
			}

			query, err := readQuery(cmd, args, file)
			if err != nil {
				return err
			}

			result, err := engine.Convert(cmd.Context(), query, opts)
			if err != nil {
				return err
			}
			return printConvertResult(cmd, result, showReport)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "read the MDX query from a file")
	cmd.Flags().StringVar(&level, "optimization-level", "CONSERVATIVE", "lint level: NONE, CONSERVATIVE, MODERATE, AGGRESSIVE")
	cmd.Flags().BoolVar(&skipLint, "skip-lint", false, "bypass the linter")
	cmd.Flags().BoolVar(&format, "format", false, "run the DAX formatter over the output")
	cmd.Flags().BoolVar(&showReport, "report", false, "include the lint report in the output")
	cmd.Flags().StringVar(&batchDir, "batch-dir", "", "convert every *.mdx file in a directory")
	cmd.Flags().IntVar(&maxParallel, "max-parallel", 0, "parallelism for batch conversion (default 4)")

	return cmd
}

func printConvertResult(cmd *cobra.Command, result *engine.Result, showReport bool) error {
	out := cmd.OutOrStdout()
	if jsonOutput(cmd) {
		payload := map[string]any{
			"id":       result.ID,
			"dax":      result.DAX,
			"warnings": result.Warnings,
		}
		if showReport {
			payload["report"] = result.LintReport
		}
		return printJSON(out, payload)
	}

	fmt.Fprintln(out, result.DAX)
	for _, w := range result.Warnings {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: "+w)
	}
	if showReport && result.LintReport != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "lint: %d action(s), %d rule(s) applied\n",
			len(result.LintReport.Actions), len(result.LintReport.RulesApplied))
	}
	return nil
}

// runBatch converts every .mdx file in a directory, writing one .dax file
// next to each input.
func runBatch(cmd *cobra.Command, dir string, opts engine.Options, maxParallel int) error {
	paths, err := filepath.Glob(filepath.Join(dir, "*.mdx"))
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no .mdx files in %s", dir)
	}

	queries := make([]string, len(paths))
	for i, p := range paths {
		data, err := os.ReadFile(p) //nolint:gosec // paths come from the glob above
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		queries[i] = string(data)
	}

	items, err := engine.ConvertBatch(cmd.Context(), queries, opts, maxParallel)
	if err != nil {
		return err
	}

	failed := 0
	for i, item := range items {
		if item.Err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", paths[i], item.Err)
			continue
		}
		target := strings.TrimSuffix(paths[i], ".mdx") + ".dax"
		if err := os.WriteFile(target, []byte(item.Result.DAX+"\n"), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", target, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", paths[i], target)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d queries failed", failed, len(items))
	}
	return nil
}
