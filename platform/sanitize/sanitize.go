// Package sanitize provides text sanitization utilities.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// htmlTagRegex matches HTML tags
	htmlTagRegex = regexp.MustCompile(`<[^>]*>`)
	// spaceRunRegex matches runs of whitespace
	spaceRunRegex = regexp.MustCompile(`\s+`)
	// underscoreRunRegex matches repeated underscores left after filtering
	underscoreRunRegex = regexp.MustCompile(`_+`)
)

// StripHTML removes all HTML tags from a string, making it safe for text-only display.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = strings.ReplaceAll(result, "&lt;", "<")
	result = strings.ReplaceAll(result, "&gt;", ">")
	result = strings.ReplaceAll(result, "&amp;", "&")
	result = strings.ReplaceAll(result, "&quot;", "\"")
	result = strings.ReplaceAll(result, "&#39;", "'")
	// Re-strip after entity decode to catch encoded tags
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Text strips HTML and collapses whitespace. Use for free text coming from
// prospects or operators before it is stored or sent to the model.
func Text(s string) string {
	return strings.TrimSpace(spaceRunRegex.ReplaceAllString(StripHTML(s), " "))
}

// Slug lowercases s, turns whitespace runs into underscores and drops
// everything outside [a-z0-9_-]. "Home Automation" becomes "home_automation".
func Slug(s string) string {
	lowered := strings.ToLower(strings.TrimSpace(s))
	lowered = spaceRunRegex.ReplaceAllString(lowered, "_")

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case r == '_' || r == '-':
			b.WriteRune(r)
		case r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		}
	}
	return strings.Trim(underscoreRunRegex.ReplaceAllString(b.String(), "_"), "_")
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
