package llm

import (
	"encoding/json"
	"strings"
)

// ParseObject extracts a JSON object of type T from raw model output.
//
// It tries, in order: the outermost {...} span, then the whole trimmed
// text (code fences stripped). On any failure the caller-supplied
// fallback is returned unmodified. This is the single point that absorbs
// model non-determinism: it never returns an error and never panics.
func ParseObject[T any](raw string, fallback T) T {
	s := stripFences(strings.TrimSpace(raw))
	if s == "" || s == "null" {
		return fallback
	}

	if i := strings.Index(s, "{"); i >= 0 {
		if j := strings.LastIndex(s, "}"); j > i {
			var v T
			if err := json.Unmarshal([]byte(s[i:j+1]), &v); err == nil {
				return v
			}
		}
	}

	var v T
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return fallback
}

// stripFences removes a surrounding markdown code fence, which chat models
// add even when told to return bare JSON.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	start, end := 0, len(lines)
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if start == 0 {
				start = i + 1
			} else {
				end = i
				break
			}
		}
	}
	if start > 0 && end > start {
		return strings.TrimSpace(strings.Join(lines[start:end], "\n"))
	}
	return s
}
