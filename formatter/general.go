package formatter

type GeneralIssueFormatter struct{}

func (f *GeneralIssueFormatter) IssueTemplate() string {
	return `{{header . -}}
{{snippet . -}}
{{message . -}}
{{help . -}}
{{note .}}
`
}

// MessageOnlyFormatter is used when the source lines of an issue are not
// available.
type MessageOnlyFormatter struct{}

func (f *MessageOnlyFormatter) IssueTemplate() string {
	return `{{header . -}}
{{message . -}}
{{help . -}}
{{note .}}
`
}
