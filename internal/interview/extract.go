package interview

import (
	"regexp"
	"strings"
)

var fencedJSONRe = regexp.MustCompile("(?is)```json\\s*(\\{.*?\\})\\s*```")

// ExtractJSONObject pulls a JSON object out of a noisy model reply. A fenced
// ```json block wins; otherwise the first balanced {...} span is returned,
// skipping braces that appear inside quoted strings. When nothing usable is
// found the empty object "{}" is returned so callers can parse
// unconditionally.
func ExtractJSONObject(text string) string {
	if strings.TrimSpace(text) == "" {
		return "{}"
	}

	if m := fencedJSONRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}

	start := strings.IndexByte(text, '{')
	for start != -1 {
		if span, ok := balancedSpan(text, start); ok {
			return span
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next == -1 {
			break
		}
		start += 1 + next
	}

	return "{}"
}

// balancedSpan scans forward from an opening brace and returns the span up to
// the matching closing brace, tracking string literals and escapes.
func balancedSpan(text string, start int) (string, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}

	return "", false
}
