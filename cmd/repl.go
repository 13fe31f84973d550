package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/nodepat/goast"
	"github.com/gnolang/nodepat/internal"
	"github.com/gnolang/nodepat/pattern"
)

const replHelp = `Enter a pattern to search the loaded file, or one of:
  :load FILE       load a Go file
  :params LIT...   set the values of %1, %2, ... (no argument clears them)
  :ast             print the loaded file as an s-expression
  :help            show this help
  :quit            leave (or <ctrl>D)`

var replCmd = &cobra.Command{
	Use:   "repl [file]",
	Short: "Try patterns interactively against a Go file",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		x := newExplorer(cmd.OutOrStdout())
		if len(args) == 1 {
			x.Eval(":load " + args[0])
		}

		rl, err := readline.NewEx(&readline.Config{
			Prompt:          "nodepat> ",
			InterruptPrompt: "^C",
			EOFPrompt:       "exit",
			Stdout:          cmd.OutOrStdout(),
		})
		if err != nil {
			logger.Fatal("Failed to start the line editor", zap.Error(err))
		}
		defer rl.Close()

		x.info.Println("Quit with <ctrl>D, :help lists the commands")
		for {
			line, err := rl.Readline()
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if err != nil { // io.EOF
				break
			}
			if x.Eval(line) {
				break
			}
		}
	},
}

// explorer is the state of an interactive session.
type explorer struct {
	out   io.Writer
	info  *pterm.PrefixPrinter
	fail  *pterm.PrefixPrinter
	cache *pattern.Cache
	env   *pattern.Env

	file   string
	root   *goast.Node
	params []any
}

func newExplorer(out io.Writer) *explorer {
	return &explorer{
		out:   out,
		info:  pterm.Info.WithWriter(out),
		fail:  pterm.Error.WithWriter(out),
		cache: pattern.NewCache(),
		env:   &pattern.Env{},
	}
}

// Eval runs one input line. It returns true when the session should end.
func (x *explorer) Eval(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	var err error
	command, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch command {
	case ":quit", ":q":
		return true
	case ":help":
		fmt.Fprintln(x.out, replHelp)
	case ":load":
		err = x.load(rest)
	case ":params":
		err = x.setParams(rest)
	case ":ast":
		err = x.printAST()
	default:
		err = x.search(line)
	}
	if err != nil {
		x.fail.Println(err.Error())
	}
	return false
}

func (x *explorer) load(filename string) error {
	if filename == "" {
		return errors.New("usage: :load FILE")
	}
	root, err := parseFile(filename)
	if err != nil {
		return err
	}
	x.file, x.root = filename, root
	x.info.Printfln("loaded %s", filename)
	return nil
}

func (x *explorer) setParams(text string) error {
	var params []any
	for _, field := range strings.Fields(text) {
		v, err := pattern.ParseLiteral(field)
		if err != nil {
			return fmt.Errorf("param %q: %w", field, err)
		}
		params = append(params, v)
	}
	x.params = params
	x.info.Printfln("%d param(s) set", len(params))
	return nil
}

func (x *explorer) printAST() error {
	if x.root == nil {
		return errors.New("no file loaded, use :load FILE")
	}
	fmt.Fprintln(x.out, x.root)
	return nil
}

func (x *explorer) search(src string) error {
	if x.root == nil {
		return errors.New("no file loaded, use :load FILE")
	}
	p, err := x.cache.Compile(src)
	if err != nil {
		return err
	}
	if p.NumParams() != len(x.params) {
		return fmt.Errorf("%w: pattern takes %d, %d set with :params", pattern.ErrParamCount, p.NumParams(), len(x.params))
	}

	count := 0
	for res, err := range p.Search(x.env, x.root, x.params...) {
		if err != nil {
			return err
		}
		count++
		node := res.Node().(*goast.Node)
		pos := node.Pos()
		x.info.Printfln("%s:%d:%d %s", x.file, pos.Line, pos.Column, node.Describe())
		fmt.Fprintf(x.out, "    %s\n", node.Source())
		for i, c := range res.Captures() {
			fmt.Fprintf(x.out, "    $%d = %s\n", i, internal.DisplayValue(c))
		}
	}
	x.info.Printfln("%d match(es)", count)
	return nil
}
