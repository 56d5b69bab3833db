package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"mdx2dax/internal/engine"
	"mdx2dax/internal/explain"
)

func newExplainCmd() *cobra.Command {
	var (
		file            string
		format          string
		detail          int
		includeDAX      bool
		includeMetadata bool
	)

	cmd := &cobra.Command{
		Use:   "explain [query]",
		Short: "Explain what an MDX query computes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			optionsFile, _ := cmd.Root().PersistentFlags().GetString("options")
			opts, _, err := loadOptions(optionsFile)
			if err != nil {
				return err
			}

			parsedFormat, err := explain.ParseFormat(format)
			if err != nil {
				return err
			}

			query, err := readQuery(cmd, args, file)
			if err != nil {
				return err
			}

			result, err := engine.Convert(cmd.Context(), query, opts)
			if err != nil {
				return err
			}

			text, err := explain.Explain(result.Query, explain.Config{
				Format:          parsedFormat,
				Detail:          explain.DetailLevel(detail),
				IncludeDAX:      includeDAX,
				IncludeMetadata: includeMetadata,
			})
			if err != nil {
				return err
			}

			if jsonOutput(cmd) && parsedFormat != explain.FormatJSON {
				return printJSON(cmd.OutOrStdout(), map[string]string{"explanation": text})
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "read the MDX query from a file")
	cmd.Flags().StringVar(&format, "format", "sql", "explanation format: sql, natural, json, markdown")
	cmd.Flags().IntVar(&detail, "detail", 1, "detail level: 0 basic, 1 standard, 2 full")
	cmd.Flags().BoolVar(&includeDAX, "include-dax", false, "include the generated DAX")
	cmd.Flags().BoolVar(&includeMetadata, "include-metadata", false, "include transform metadata")

	return cmd
}
