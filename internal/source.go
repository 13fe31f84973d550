package internal

import (
	"strings"

	"github.com/spf13/afero"
)

// SourceCode stores the content of a source code file.
type SourceCode struct {
	Lines []string
}

// ReadSourceCode reads the content of a file and returns it as a `SourceCode` struct.
func ReadSourceCode(fs afero.Fs, filename string) (*SourceCode, error) {
	content, err := afero.ReadFile(fs, filename)
	if err != nil {
		return nil, err
	}
	return NewSourceCode(content), nil
}

func NewSourceCode(content []byte) *SourceCode {
	return &SourceCode{Lines: strings.Split(string(content), "\n")}
}

// Line returns the 1-based line n, or "" when it is out of range.
func (s *SourceCode) Line(n int) string {
	if s == nil || n < 1 || n > len(s.Lines) {
		return ""
	}
	return s.Lines[n-1]
}
