package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"mdx2dax/internal/lint"
	"mdx2dax/internal/mdx"
)

func newLintCmd() *cobra.Command {
	var (
		file  string
		level string
	)

	cmd := &cobra.Command{
		Use:   "lint [query]",
		Short: "Lint an MDX query and print the normalized form",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			optionsFile, _ := cmd.Root().PersistentFlags().GetString("options")
			opts, _, err := loadOptions(optionsFile)
			if err != nil {
				return err
			}
			cfg := opts.Lint
			if cmd.Flags().Changed("optimization-level") {
				parsed, err := lint.ParseLevel(level)
				if err != nil {
					return err
				}
				cfg.Level = parsed
			}

			query, err := readQuery(cmd, args, file)
			if err != nil {
				return err
			}

			tree, err := mdx.Parse(query)
			if err != nil {
				return err
			}
			linted, report, err := lint.Lint(tree, query, cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput(cmd) {
				return printJSON(out, map[string]any{
					"mdx":    mdx.FormatQuery(linted),
					"report": report,
				})
			}

			fmt.Fprintln(out, mdx.FormatQuery(linted))
			fmt.Fprintf(cmd.ErrOrStderr(), "level=%s actions=%d reduction=%.1f%%\n",
				report.LevelName, len(report.Actions), report.SizeReduction)
			for _, a := range report.Actions {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", a.Type, a.Description)
			}
			for _, e := range report.Errors {
				fmt.Fprintln(cmd.ErrOrStderr(), "error: "+e)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "read the MDX query from a file")
	cmd.Flags().StringVar(&level, "optimization-level", "CONSERVATIVE", "lint level: NONE, CONSERVATIVE, MODERATE, AGGRESSIVE")

	return cmd
}
