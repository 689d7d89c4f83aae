// Package sanitize strips markup from user-generated text before it is stored.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Text removes every HTML element from s and returns the remaining plain text, trimmed.
// Entities are decoded again so "Tom & Jerry" round-trips; the result is plain text and
// must still be escaped by whatever renders it as HTML.
func Text(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// List applies Text to every entry and drops entries that end up empty.
func List(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if cleaned := Text(item); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}
