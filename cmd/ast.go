package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/nodepat/goast"
)

var astCmd = &cobra.Command{
	Use:   "ast FILE",
	Short: "Print the pattern view of a Go file",
	Long: `Print a Go file the way patterns see it: every node as an
s-expression of its type tag and children.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runAST(cmd.OutOrStdout(), args[0]); err != nil {
			logger.Fatal("Failed to print the syntax tree", zap.String("file", args[0]), zap.Error(err))
		}
	},
}

func runAST(out io.Writer, filename string) error {
	root, err := parseFile(filename)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, root)
	return err
}

func parseFile(filename string) (*goast.Node, error) {
	src, err := afero.ReadFile(fs, filename)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	root, _, err := goast.ParseSource(filename, src)
	if err != nil {
		return nil, fmt.Errorf("error parsing file: %w", err)
	}
	return root, nil
}
