package types

import (
	"fmt"
	"go/token"
	"strings"
)

// Issue represents a lint issue found in the code base.
type Issue struct {
	Rule       string
	Category   string
	Filename   string
	Message    string
	Suggestion string
	Note       string
	Severity   Severity
	Start      token.Position
	End        token.Position
}

// Severity is the level a rule reports its issues at.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
	SeverityOff
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "ERROR"
	case SeverityWarning:
		return "WARNING"
	case SeverityInfo:
		return "INFO"
	case SeverityOff:
		return "OFF"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// ParseSeverity parses a severity name, case insensitively. The empty
// string means error.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "error":
		return SeverityError, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "info":
		return SeverityInfo, nil
	case "off":
		return SeverityOff, nil
	}
	return SeverityError, fmt.Errorf("unknown severity %q", s)
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(s.String())), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	v, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ConfigRule is one pattern rule of the configuration file.
type ConfigRule struct {
	// Pattern is the node pattern source. Required.
	Pattern string `yaml:"pattern"`
	// Message is a text/template rendered with .Rule, .Captures, .Node and
	// .Value. Defaults to the rule name.
	Message    string   `yaml:"message,omitempty"`
	Category   string   `yaml:"category,omitempty"`
	Severity   Severity `yaml:"severity,omitempty"`
	Suggestion string   `yaml:"suggestion,omitempty"`
	Note       string   `yaml:"note,omitempty"`
	// Params are pattern literals (:sym, 1, "s", nil) bound to %1, %2, ...
	Params []string `yaml:"params,omitempty,flow"`
}
