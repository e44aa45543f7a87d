package search

import (
	"regexp"
	"strings"
)

var (
	ampersandRe = regexp.MustCompile(`\s*&\s*`)
	punctRe     = regexp.MustCompile(`[:',]`)
	separatorRe = regexp.MustCompile(`[.\s_\-\(\)\[\]!]+`)
)

// Sanitize normalizes a free-text query for consistent matching: lowercase,
// trimmed, "&" spelled out as "and", punctuation stripped, runs of
// separators collapsed to single spaces.
func Sanitize(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))
	q = ampersandRe.ReplaceAllString(q, " and ")
	q = punctRe.ReplaceAllString(q, "")
	q = separatorRe.ReplaceAllString(q, " ")
	return strings.TrimSpace(q)
}
