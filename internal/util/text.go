package util

import (
	"regexp"
	"strings"
)

var (
	whitespace   = regexp.MustCompile(`\s+`)
	tldSuffix    = regexp.MustCompile(`\.com$|\.org$|\.net$|\.co\.uk$|\.co$|\.news$`)
	leadingThe   = regexp.MustCompile(`^the\s+`)
	nonAlnumRune = regexp.MustCompile(`[^a-z0-9]`)
)

// NormalizeWhitespace trims and collapses whitespace to single spaces.
func NormalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// NormalizeSource turns an outlet name into its comparison key:
// lowercase, no trailing TLD, no leading "the ", only [a-z0-9].
// "The New York Times", "new york times.com" and "NewYorkTimes" share a key.
func NormalizeSource(raw string) string {
	if raw == "" {
		return ""
	}
	name := strings.ToLower(raw)
	name = tldSuffix.ReplaceAllString(name, "")
	name = leadingThe.ReplaceAllString(name, "")
	return nonAlnumRune.ReplaceAllString(name, "")
}
