// Package sanitize cleans user supplied strings before they are stored.
package sanitize

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

const maxTextPasses = 8

var (
	strict = bluemonday.StrictPolicy()
	ugc    = bluemonday.UGCPolicy()
)

// Text strips all markup and returns plain text with entities decoded, so
// "Yin & Yang" is stored as typed. Decoding repeats until the result is
// stable, which keeps entity-encoded tags from surviving as markup.
func Text(s string) string {
	out := s
	for i := 0; i < maxTextPasses; i++ {
		next := html.UnescapeString(strict.Sanitize(out))
		if next == out {
			return next
		}
		out = next
	}
	return strict.Sanitize(out)
}

// HTML keeps the formatting subset of user generated markup.
func HTML(s string) string {
	return ugc.Sanitize(s)
}
