package utils

import (
	"html"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	// lineBreakRegexp matches <br>, <br/>, <br /> in any casing
	lineBreakRegexp = regexp.MustCompile(`(?i)<\s*br\s*/?\s*>`)
	// htmlTagRegexp matches any remaining markup tag
	htmlTagRegexp = regexp.MustCompile(`<[^>]*>`)
	// spaceRegexp collapses runs of spaces and tabs left behind by stripped tags
	spaceRegexp = regexp.MustCompile(`[ \t]+`)
)

// StripHTML turns vendor HTML into plain text: entities are decoded,
// line-break tags become newlines and every remaining tag is dropped.
// It is a pure text routine — no document or DOM is ever built.
func StripHTML(s string) string {
	s = html.UnescapeString(s)
	s = lineBreakRegexp.ReplaceAllString(s, "\n")
	s = htmlTagRegexp.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\r\n", "\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRegexp.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// FirstNonEmptyLine returns the first line of s with visible content.
func FirstNonEmptyLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// TruncateEllipsis caps s at max runes, appending "…" when it was cut.
func TruncateEllipsis(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max])) + "…"
}

// NormalizeLabel prepares a taxonomy label for comparison: lowercase,
// Unicode-decomposed with combining marks removed, trimmed. "Locação" and
// "locacao" normalize to the same string.
func NormalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return spaceRegexp.ReplaceAllString(b.String(), " ")
}

// ParseFloatOrZero parses a vendor numeric string, tolerating currency noise
// and decimal commas. Unparsable input yields 0 — a product decision: feeds
// routinely carry blank or junk numerics and one bad number must never sink
// the item.
func ParseFloatOrZero(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := strings.ReplaceAll(b.String(), ",", ".")
	// "1.234.56" style leftovers: keep only the last dot as the decimal mark
	if strings.Count(cleaned, ".") > 1 {
		last := strings.LastIndex(cleaned, ".")
		cleaned = strings.ReplaceAll(cleaned[:last], ".", "") + cleaned[last:]
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseIntOrZero parses an integer field with the same fallback-to-zero rule.
func ParseIntOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return int(ParseFloatOrZero(s))
	}
	return n
}

// SplitCamelCase inserts a space before each internal capital letter:
// "ArCondicionado" → "Ar Condicionado". Consecutive capitals stay together
// so acronyms like "TVACabo" read as "TVA Cabo" rather than "T V A Cabo".
func SplitCamelCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && !unicode.IsUpper(runes[i-1]) {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}
