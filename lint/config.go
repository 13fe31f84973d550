package lint

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	tt "github.com/gnolang/nodepat/internal/types"
)

// DefaultConfigFile is the configuration file looked up by the CLI.
const DefaultConfigFile = ".nodepat.yaml"

// Config represents the overall configuration with a name and a set of
// pattern rules keyed by rule name.
type Config struct {
	Name  string                   `yaml:"name"`
	Rules map[string]tt.ConfigRule `yaml:"rules"`
}

// LoadConfig reads and validates a configuration file.
func LoadConfig(fs afero.Fs, path string) (Config, error) {
	var config Config

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return config, fmt.Errorf("reading configuration: %w", err)
	}
	config, err = ParseConfig(data)
	if err != nil {
		return config, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

// ParseConfig decodes a configuration. Unknown keys are rejected so that a
// misspelled rule field does not go unnoticed.
func ParseConfig(data []byte) (Config, error) {
	var config Config

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil {
		if errors.Is(err, io.EOF) {
			return config, errors.New("empty configuration")
		}
		return config, err
	}

	for name, rule := range config.Rules {
		if rule.Pattern == "" {
			return config, fmt.Errorf("rule %q: missing pattern", name)
		}
	}
	return config, nil
}

// SaveConfig writes config as YAML.
func SaveConfig(fs afero.Fs, path string, config Config) error {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}
	return afero.WriteFile(fs, path, buf.Bytes(), 0o644)
}

// DefaultConfig is the configuration written by "nodepat init".
func DefaultConfig() Config {
	return Config{
		Name: "nodepat",
		Rules: map[string]tt.ConfigRule{
			"print-call": {
				Pattern:    "(CallExpr (SelectorExpr (Ident :fmt) (Ident ${:Print :Println :Printf})) ...)",
				Message:    "avoid fmt.{{index .Captures 0}} in library code",
				Severity:   tt.SeverityWarning,
				Suggestion: "use a structured logger",
			},
			"self-assignment": {
				Pattern:  "(AssignStmt (List (Ident _x)) := (List (Ident _x)))",
				Message:  "{{.Node}} assigns a variable to itself",
				Category: "correctness",
			},
			"simplify-slice-range": {
				Pattern:  "(SliceExpr _x _ (CallExpr (Ident :len) (List _x)) nil _)",
				Message:  "unnecessary use of len() in {{.Node}}, can be simplified",
				Category: "style",
				Severity: tt.SeverityWarning,
				Note:     "slicing to the end of a slice already implies its length",
			},
			"empty-if": {
				Pattern:  "(IfStmt _ _ (BlockStmt (List)) nil)",
				Message:  "empty if block",
				Severity: tt.SeverityInfo,
			},
			"panic-call": {
				Pattern:  "(CallExpr (Ident :panic) ...)",
				Message:  "{{.Kind}} to panic",
				Severity: tt.SeverityOff,
				Note:     "enable to flag every panic",
			},
		},
	}
}
