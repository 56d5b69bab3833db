// Package cli implements the mdx2dax command line interface: convert, lint,
// and explain commands over the core conversion pipeline.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			_ = json.NewEncoder(os.Stdout).Encode(map[string]any{
				"error": err.Error(),
			})
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var (
		output      string
		optionsFile string
	)

	rootCmd := &cobra.Command{
		Use:           "mdx2dax",
		Short:         "MDX to DAX translator",
		Long:          "Translates multidimensional MDX queries into tabular DAX queries.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "text", "output format: text or json")
	rootCmd.PersistentFlags().StringVar(&optionsFile, "options", "", "path to a YAML options file")

	rootCmd.AddCommand(newConvertCmd())
	rootCmd.AddCommand(newLintCmd())
	rootCmd.AddCommand(newExplainCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mdx2dax %s (%s)\n", version, commit)
		},
	}
}

// readQuery loads the MDX text for a command: from the positional argument,
// from the --file flag, or from stdin when the argument is "-" or absent.
func readQuery(cmd *cobra.Command, args []string, file string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file) //nolint:gosec // path is caller-controlled
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		return string(data), nil
	}
	if len(args) > 0 && args[0] != "-" {
		return args[0], nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("no query supplied: pass it as an argument, via --file, or on stdin")
	}
	return string(data), nil
}

// jsonOutput reports whether the global --output flag selects JSON.
func jsonOutput(cmd *cobra.Command) bool {
	output, _ := cmd.Root().PersistentFlags().GetString("output")
	return output == "json"
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
