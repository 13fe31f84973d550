package formatter

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"unicode"

	"github.com/fatih/color"

	"github.com/gnolang/nodepat/internal"
	tt "github.com/gnolang/nodepat/internal/types"
)

const (
	tabWidth = 8

	// maxSnippetLines bounds the source shown for issues spanning many
	// lines, such as a whole function.
	maxSnippetLines = 6
)

var (
	errorStyle      = color.New(color.FgRed, color.Bold)
	warningStyle    = color.New(color.FgHiYellow, color.Bold)
	infoStyle       = color.New(color.FgHiCyan, color.Bold)
	ruleStyle       = color.New(color.FgYellow, color.Bold)
	fileStyle       = color.New(color.FgCyan, color.Bold)
	lineStyle       = color.New(color.FgHiBlue, color.Bold)
	messageStyle    = color.New(color.FgRed, color.Bold)
	suggestionStyle = color.New(color.FgGreen, color.Bold)
)

// issueFormatter is the interface that wraps the IssueTemplate method.
// Implementations of this interface are responsible for formatting specific types of lint issues.
type issueFormatter interface {
	IssueTemplate() string
}

// getIssueFormatter returns the formatter for an issue: with a source
// snippet when its lines are available, without one otherwise.
func getIssueFormatter(issue tt.Issue, snippet *internal.SourceCode) issueFormatter {
	if snippet == nil || !isValidLineRange(issue.Start.Line, issue.End.Line, snippet.Lines) {
		return &MessageOnlyFormatter{}
	}
	return &GeneralIssueFormatter{}
}

var funcMap = template.FuncMap{
	"header":  header,
	"snippet": codeSnippet,
	"message": message,
	"help":    help,
	"note":    note,
}

// GenerateFormattedIssue formats a slice of issues into a human-readable string.
// It uses the appropriate formatter for each issue.
func GenerateFormattedIssue(issues []tt.Issue, snippet *internal.SourceCode) string {
	var builder strings.Builder
	for _, issue := range issues {
		formatter := getIssueFormatter(issue, snippet)
		builder.WriteString(buildIssue(issue, snippet, formatter))
	}
	return builder.String()
}

/***** Issue Formatter Builder *****/

type IssueData struct {
	Category        string
	Severity        string
	Rule            string
	Filename        string
	Padding         string
	StartLine       int
	StartColumn     int
	EndLine         int
	EndColumn       int
	MaxLineNumWidth int
	Message         string
	Suggestion      string
	Note            string
	SnippetLines    []string
	CommonIndent    string
}

func buildIssue(issue tt.Issue, snippet *internal.SourceCode, formatter issueFormatter) string {
	startLine, endLine := issue.Start.Line, issue.End.Line
	shownEnd := min(endLine, startLine+maxSnippetLines-1)
	maxLineNumWidth := calculateMaxLineNumWidth(max(shownEnd, startLine))

	var (
		lines        []string
		commonIndent string
	)
	if snippet != nil {
		lines = snippet.Lines
		if isValidLineRange(startLine, shownEnd, lines) {
			commonIndent = findCommonIndent(lines[startLine-1 : shownEnd])
		}
	}

	data := IssueData{
		Severity:        issue.Severity.String(),
		Category:        issue.Category,
		Rule:            issue.Rule,
		Filename:        issue.Filename,
		StartLine:       startLine,
		StartColumn:     issue.Start.Column,
		EndLine:         endLine,
		EndColumn:       issue.End.Column,
		Message:         issue.Message,
		Suggestion:      issue.Suggestion,
		Note:            issue.Note,
		MaxLineNumWidth: maxLineNumWidth,
		Padding:         strings.Repeat(" ", maxLineNumWidth+1),
		CommonIndent:    commonIndent,
		SnippetLines:    lines,
	}

	tmpl, err := template.New("issue").Funcs(funcMap).Parse(formatter.IssueTemplate())
	if err != nil {
		return fmt.Sprintf("Error formatting issue: %v", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Sprintf("Error formatting issue: %v", err)
	}
	return buf.String()
}

// utils functions used in the text templates

// header renders "warning[category]: rule" and the location line.
func header(d IssueData) string {
	var label string
	var style *color.Color
	switch d.Severity {
	case "WARNING":
		label, style = "warning", warningStyle
	case "INFO":
		label, style = "info", infoStyle
	default:
		label, style = "error", errorStyle
	}
	if d.Category != "" {
		label += "[" + d.Category + "]"
	}

	out := style.Sprintf("%s: ", label)
	out += ruleStyle.Sprintf("%s\n", d.Rule)

	filename := d.Filename
	if filename == "" {
		filename = "<source>"
	}
	out += lineStyle.Sprintf("%s--> ", strings.Repeat(" ", d.MaxLineNumWidth))
	out += fileStyle.Sprintf("%s:%d:%d", filename, d.StartLine, d.StartColumn)
	return out + "\n"
}

// codeSnippet renders the source lines of the issue with the first line
// underlined from the start column to the end column, or to the end of the
// line when the issue spans several lines.
func codeSnippet(d IssueData) string {
	out := lineStyle.Sprintf("%s|\n", d.Padding)

	shownEnd := min(d.EndLine, d.StartLine+maxSnippetLines-1)
	for i := d.StartLine; i <= shownEnd; i++ {
		line := strings.TrimPrefix(d.SnippetLines[i-1], d.CommonIndent)
		out += lineStyle.Sprintf("%*d | ", d.MaxLineNumWidth, i) + line + "\n"
		if i == d.StartLine {
			out += underline(d)
		}
	}
	if shownEnd < d.EndLine {
		out += lineStyle.Sprintf("%s| ...\n", d.Padding)
	}
	return out
}

func underline(d IssueData) string {
	line := d.SnippetLines[d.StartLine-1]
	indentWidth := calculateVisualColumn(d.CommonIndent, len(d.CommonIndent)+1)

	start := max(calculateVisualColumn(line, d.StartColumn)-indentWidth, 0)
	endColumn := d.EndColumn
	if d.EndLine != d.StartLine {
		endColumn = len(line) + 1
	}
	end := calculateVisualColumn(line, endColumn) - indentWidth
	length := max(end-start, 1)

	return lineStyle.Sprintf("%s| ", d.Padding) +
		strings.Repeat(" ", start) +
		messageStyle.Sprintf("%s", strings.Repeat("~", length)) + "\n"
}

func message(d IssueData) string {
	return lineStyle.Sprintf("%s= ", d.Padding) + messageStyle.Sprintf("%s", d.Message) + "\n"
}

func help(d IssueData) string {
	if d.Suggestion == "" {
		return ""
	}
	return lineStyle.Sprintf("%s= ", d.Padding) + suggestionStyle.Sprint("help: ") + d.Suggestion + "\n"
}

func note(d IssueData) string {
	if d.Note == "" {
		return ""
	}
	return lineStyle.Sprintf("%s= ", d.Padding) + suggestionStyle.Sprint("note: ") + d.Note + "\n"
}

func isValidLineRange(startLine int, endLine int, snippetLines []string) bool {
	return startLine > 0 &&
		endLine > 0 &&
		startLine <= endLine &&
		startLine <= len(snippetLines) &&
		endLine <= len(snippetLines)
}

func calculateMaxLineNumWidth(endLine int) int {
	return len(fmt.Sprintf("%d", endLine))
}

// calculateVisualColumn calculates the visual column position
// in a string. taking into account tab characters.
func calculateVisualColumn(line string, column int) int {
	if column < 0 {
		return 0
	}
	visualColumn := 0
	for i, ch := range line {
		if i+1 == column {
			break
		}
		if ch == '\t' {
			visualColumn += tabWidth - (visualColumn % tabWidth)
		} else {
			visualColumn++
		}
	}
	return visualColumn
}

// findCommonIndent finds the common indent in the code snippet.
func findCommonIndent(lines []string) string {
	var common []rune
	found := false
	for _, line := range lines {
		trimmed := strings.TrimLeftFunc(line, unicode.IsSpace)
		if trimmed == "" {
			continue
		}
		indent := []rune(line[:len(line)-len(trimmed)])
		if !found {
			common, found = indent, true
			continue
		}
		common = commonPrefix(common, indent)
		if len(common) == 0 {
			break
		}
	}
	return string(common)
}

// commonPrefix finds the common prefix of two strings.
func commonPrefix(a, b []rune) []rune {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[:i]
		}
	}
	return a[:n]
}
