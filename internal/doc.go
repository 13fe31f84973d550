// Package internal provides the pattern-rule lint engine behind the nodepat
// command.
//
// Key components:
//
// Engine: compiles the configured rules once through a registry and runs
// them over Go files. Every file is parsed with go/parser, converted with
// goast and searched by all rules concurrently. Matches become Issues whose
// messages are rendered from text/template, then //nolint scopes are
// applied and the result is sorted by position.
//
// Cache: keeps the issues of each file keyed by its content hash and a
// fingerprint of the rule set, persisted through afero.
//
// Watch mode: StartWatching re-lints files as they are written.
//
// SourceCode: the lines of a file, used by the formatter for snippets.
//
// Usage:
//
//	engine, err := internal.NewEngine(config.Rules, internal.WithLogger(logger))
//	if err != nil {
//	    // handle error
//	}
//
//	issues, err := engine.Run("path/to/file.go")
//	if err != nil {
//	    // handle error
//	}
//
//	for _, issue := range issues {
//	    fmt.Printf("%s: %s at %s\n", issue.Rule, issue.Message, issue.Start)
//	}
//
// This package is intended for internal use within the linting tool and should not be
// imported by external packages.
package internal
