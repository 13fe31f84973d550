package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/nodepat/formatter"
	"github.com/gnolang/nodepat/internal"
	tt "github.com/gnolang/nodepat/internal/types"
	"github.com/gnolang/nodepat/lint"
)

var (
	ignoreRules    string
	ignorePaths    string
	lintJsonOutput bool
	outPath        string
	watchMode      bool
	cacheDir       string
)

var lintCmd = &cobra.Command{
	Use:   "lint [paths...]",
	Short: "Run the configured pattern rules",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println("error: Please provide file or directory paths")
			os.Exit(1)
		}

		engine, err := newEngine(logger, fs, cfgFile, cacheDir)
		if err != nil {
			logger.Fatal("Failed to initialize lint engine", zap.Error(err))
		}
		applyIgnores(engine, ignoreRules, ignorePaths)

		if watchMode {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := runWatch(ctx, logger, engine, args, cmd.OutOrStdout()); err != nil {
				logger.Fatal("Watch mode failed", zap.Error(err))
			}
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		found, err := runNormalLintProcess(ctx, logger, engine, args, cmd.OutOrStdout(), lintJsonOutput, outPath)
		if err != nil {
			logger.Error("Error processing files", zap.Error(err))
			os.Exit(1)
		}
		if found {
			os.Exit(1)
		}
	},
}

func init() {
	lintCmd.Flags().StringVar(&ignoreRules, "ignore", "", "Comma-separated list of rules to ignore")
	lintCmd.Flags().StringVar(&ignorePaths, "ignore-paths", "", "Comma-separated list of paths to ignore")
	lintCmd.Flags().BoolVar(&lintJsonOutput, "json", false, "Output issues in JSON format")
	lintCmd.Flags().StringVarP(&outPath, "output", "o", "", "Output path (when using JSON)")
	lintCmd.Flags().BoolVar(&watchMode, "watch", false, "Re-lint files as they change")
	lintCmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Directory for cached results (disabled when empty)")
}

// loadConfig reads the rule configuration. A missing default configuration
// file falls back to the built-in rules.
func loadConfig(logger *zap.Logger, fs afero.Fs, path string) (lint.Config, error) {
	config, err := lint.LoadConfig(fs, path)
	if err != nil && errors.Is(err, iofs.ErrNotExist) && path == lint.DefaultConfigFile {
		logger.Info("No configuration file, using the default rules", zap.String("path", path))
		return lint.DefaultConfig(), nil
	}
	return config, err
}

func newEngine(logger *zap.Logger, fs afero.Fs, configPath, cacheDir string) (*internal.Engine, error) {
	config, err := loadConfig(logger, fs, configPath)
	if err != nil {
		return nil, err
	}

	opts := []internal.Option{internal.WithFs(fs), internal.WithLogger(logger)}
	if cacheDir != "" {
		cache, err := internal.NewCache(fs, cacheDir, config.Rules)
		if err != nil {
			return nil, fmt.Errorf("opening cache: %w", err)
		}
		opts = append(opts, internal.WithCache(cache))
	}
	return internal.NewEngine(config.Rules, opts...)
}

func applyIgnores(engine lint.LintEngine, rules, paths string) {
	for _, rule := range splitList(rules) {
		engine.IgnoreRule(rule)
	}
	for _, path := range splitList(paths) {
		engine.IgnorePath(path)
	}
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// runNormalLintProcess lints paths and prints the issues. It reports whether
// any issue was found.
func runNormalLintProcess(
	ctx context.Context,
	logger *zap.Logger,
	engine lint.LintEngine,
	paths []string,
	out io.Writer,
	isJson bool,
	jsonOutput string,
) (bool, error) {
	issues, err := lint.ProcessFiles(ctx, logger, fs, engine, paths, lint.ProcessFile)
	if err != nil {
		return false, err
	}

	if err := printIssues(logger, out, issues, isJson, jsonOutput); err != nil {
		return false, err
	}
	return len(issues) > 0, nil
}

func printIssues(logger *zap.Logger, out io.Writer, issues []tt.Issue, isJson bool, jsonOutput string) error {
	issuesByFile := make(map[string][]tt.Issue)
	for _, issue := range issues {
		issuesByFile[issue.Filename] = append(issuesByFile[issue.Filename], issue)
	}

	if isJson {
		d, err := json.Marshal(issuesByFile)
		if err != nil {
			return fmt.Errorf("marshalling issues to JSON: %w", err)
		}
		if jsonOutput == "" {
			_, err = fmt.Fprintln(out, string(d))
			return err
		}
		if err := afero.WriteFile(fs, jsonOutput, d, 0o644); err != nil {
			return fmt.Errorf("writing JSON output file: %w", err)
		}
		return nil
	}

	sortedFiles := make([]string, 0, len(issuesByFile))
	for filename := range issuesByFile {
		sortedFiles = append(sortedFiles, filename)
	}
	sort.Strings(sortedFiles)

	for _, filename := range sortedFiles {
		fmt.Fprint(out, formatter.GenerateFormattedIssue(issuesByFile[filename], readSource(logger, filename)))
	}
	return nil
}

// readSource returns nil when the file can't be read, which makes the
// formatter print issues without a snippet.
func readSource(logger *zap.Logger, filename string) *internal.SourceCode {
	if filename == "" {
		return nil
	}
	source, err := internal.ReadSourceCode(fs, filename)
	if err != nil {
		logger.Error("Error reading source file", zap.String("file", filename), zap.Error(err))
		return nil
	}
	return source
}

// runWatch reports issues of changed files until ctx is done.
func runWatch(ctx context.Context, logger *zap.Logger, engine *internal.Engine, paths []string, out io.Writer) error {
	var mu sync.Mutex
	engine.OnReport(func(filename string, issues []tt.Issue, err error) {
		if err != nil {
			logger.Error("Error linting file", zap.String("file", filename), zap.Error(err))
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if len(issues) == 0 {
			fmt.Fprintf(out, "%s: no issues\n", filename)
			return
		}
		fmt.Fprint(out, formatter.GenerateFormattedIssue(issues, readSource(logger, filename)))
	})

	dirs, err := watchDirs(paths)
	if err != nil {
		return err
	}
	if err := engine.StartWatching(dirs...); err != nil {
		return err
	}
	logger.Info("Watching for changes", zap.Strings("dirs", dirs))

	<-ctx.Done()
	return engine.StopWatching()
}

// watchDirs maps every path to the directory to watch for it.
func watchDirs(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var dirs []string
	for _, path := range paths {
		info, err := fs.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing %s: %w", path, err)
		}
		dir := path
		if !info.IsDir() {
			dir = filepath.Dir(path)
		}
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs, nil
}
