package catalog

import (
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// PlainText converts HTML-formatted descriptions to markdown. Text without
// markup, or markup that fails to convert, is returned trimmed.
func PlainText(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "<") || !strings.Contains(s, ">") {
		return s
	}

	md, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(md)
}
