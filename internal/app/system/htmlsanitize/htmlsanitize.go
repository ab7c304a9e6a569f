// Package htmlsanitize cleans user-supplied text before it is placed in
// notification titles and descriptions.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// maxLen caps a single sanitized fragment, in runes.
const maxLen = 200

var strict = bluemonday.StrictPolicy()

// PlainText strips all markup from s, unescapes entities bluemonday produced,
// collapses whitespace, and truncates to a display-safe length.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	out := html.UnescapeString(strict.Sanitize(s))
	out = strings.Join(strings.Fields(out), " ")
	if r := []rune(out); len(r) > maxLen {
		out = string(r[:maxLen-1]) + "…"
	}
	return out
}

// OrDefault returns PlainText(s), or def when nothing printable remains.
func OrDefault(s, def string) string {
	if out := PlainText(s); out != "" {
		return out
	}
	return def
}
