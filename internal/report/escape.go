package report

import "strings"

// EscapeCell makes text safe inside a Markdown table cell.
// Pipes are escaped and line breaks collapse to spaces.
func EscapeCell(text string) string {
	if text == "" {
		return ""
	}

	var result strings.Builder
	result.Grow(len(text) + 8)

	for _, r := range text {
		switch r {
		case '|':
			result.WriteString(`\|`)
		case '\r':
		case '\n', '\t':
			result.WriteRune(' ')
		default:
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// Inline collapses runs of whitespace, line breaks included, to single spaces so
// free text stays inside one list item or heading.
func Inline(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
