package table

import (
	"strings"
)

// Markdown renders the table as a pipe table. This is the textual form
// that gets embedded into LLM prompts.
func (t *Table) Markdown() string {
	var sb strings.Builder

	writeRow := func(cells []string) {
		sb.WriteString("|")
		for _, c := range cells {
			c = strings.ReplaceAll(c, "|", "&#124;")
			if c == "" {
				c = " "
			}
			sb.WriteString(" " + c + " |")
		}
		sb.WriteString("\n")
	}

	writeRow(t.Header)
	sb.WriteString("|")
	for range t.Header {
		sb.WriteString(" --- |")
	}
	sb.WriteString("\n")

	for _, r := range t.Rows {
		writeRow(r)
	}
	return sb.String()
}
