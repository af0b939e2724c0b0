// Package jsonx extracts JSON payloads from free-form LLM responses.
package jsonx

import "strings"

// ExtractObject returns the first balanced, brace-delimited JSON object
// found in text, or "" if none exists. It tolerates surrounding prose and
// markdown code fences, and is aware of string literals and escapes so
// braces inside strings do not affect balancing.
func ExtractObject(text string) string {
	text = stripFences(text)

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}

	return ""
}

// stripFences removes a leading ```json or ``` markdown fence pair.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	for _, fence := range []string{"```json", "```"} {
		if strings.HasPrefix(text, fence) {
			text = strings.TrimPrefix(text, fence)
			if idx := strings.LastIndex(text, "```"); idx >= 0 {
				text = text[:idx]
			}
			return strings.TrimSpace(text)
		}
	}
	return text
}
