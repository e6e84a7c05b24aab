package util

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	tagPattern   = regexp.MustCompile(`<[^>]+>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// StripHTML removes tags, unescapes entities and collapses whitespace.
func StripHTML(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return CollapseSpace(s)
}

// CollapseSpace replaces whitespace runs with a single space and trims the ends.
func CollapseSpace(s string) string {
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}

// Truncate cuts s to at most max runes and appends "..." when it did cut.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:max])) + "..."
}
