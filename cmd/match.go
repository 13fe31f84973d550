package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/nodepat/internal"
	tt "github.com/gnolang/nodepat/internal/types"
	"github.com/gnolang/nodepat/lint"
)

const (
	matchRule    = "match"
	matchMessage = "{{.Kind}}{{range $i, $c := .Captures}} ${{$i}}={{$c}}{{end}}"
)

var matchParams []string

var matchCmd = &cobra.Command{
	Use:   "match PATTERN [paths...]",
	Short: "Print every node matching a pattern",
	Long: `Print every node matching PATTERN in the given files or directories
(the current directory by default). Each match is printed with its position,
a description of the node and its captures. Exits with status 1 when
nothing matches.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		paths := args[1:]
		if len(paths) == 0 {
			paths = []string{"."}
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		n, err := runMatch(ctx, logger, args[0], matchParams, paths, cmd.OutOrStdout())
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
			os.Exit(2)
		}
		if n == 0 {
			os.Exit(1)
		}
	},
}

func init() {
	matchCmd.Flags().StringArrayVarP(&matchParams, "param", "p", nil, "Pattern parameter as a literal (:sym, 1, \"s\", nil), once per %N")
}

// runMatch runs src as a one-rule engine over paths and prints the matches.
// It returns how many matches were found.
func runMatch(ctx context.Context, logger *zap.Logger, src string, params, paths []string, out io.Writer) (int, error) {
	engine, err := internal.NewEngine(map[string]tt.ConfigRule{
		matchRule: {
			Pattern:  src,
			Message:  matchMessage,
			Severity: tt.SeverityInfo,
			Params:   params,
		},
	}, internal.WithFs(fs), internal.WithLogger(logger))
	if err != nil {
		return 0, err
	}

	issues, err := lint.ProcessFiles(ctx, logger, fs, engine, paths, lint.ProcessFile)
	if err != nil {
		return 0, err
	}
	for _, issue := range issues {
		fmt.Fprintf(out, "%s:%d:%d: %s\n", issue.Filename, issue.Start.Line, issue.Start.Column, issue.Message)
	}
	return len(issues), nil
}
