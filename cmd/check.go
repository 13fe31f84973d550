package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gnolang/nodepat/pattern"
)

var checkCmd = &cobra.Command{
	Use:   "check PATTERN...",
	Short: "Compile patterns and print their structure",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if !runCheck(cmd.OutOrStdout(), args) {
			os.Exit(1)
		}
	},
}

// runCheck compiles every pattern and reports whether all of them compiled.
func runCheck(out io.Writer, sources []string) bool {
	ok := true
	for _, src := range sources {
		p, err := pattern.Compile(src)
		if err != nil {
			ok = false
			fmt.Fprintf(out, "%s\n  error: %v\n", src, err)

			var perr *pattern.Error
			if errors.As(err, &perr) && perr.Pos >= 0 {
				fmt.Fprintf(out, "  %s\n  %s^\n", src, strings.Repeat(" ", perr.Pos))
			}
			continue
		}

		fmt.Fprintf(out, "%s\n", src)
		fmt.Fprintf(out, "  ast:      %s\n", p.AST())
		fmt.Fprintf(out, "  captures: %d\n", p.NumCaptures())
		fmt.Fprintf(out, "  params:   %d\n", p.NumParams())
	}
	return ok
}
