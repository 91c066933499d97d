// extract.go - Best-effort JSON extraction from Gemini free-text replies

package analysis

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Gemini frequently wraps its JSON reply in a fenced block, sometimes with
// prose around it, and sometimes returns no JSON at all.
var fencedJSONRe = regexp.MustCompile("(?s)```(?:json|JSON)\\s*\\n(.*?)\\n\\s*```")

// ExtractJSON pulls a candidate JSON object out of raw model output.
// Attempts, first success wins:
//  1. contents of a fenced code block labeled json
//  2. the substring from the first '{' to the last '}' inclusive
//  3. the whole text as-is
//
// A false return means no attempt produced a JSON object. This is an expected
// outcome, not an error: the caller substitutes a conservative default
// analysis so the request still yields a persisted record.
func ExtractJSON(text string) (map[string]interface{}, bool) {
	if m := fencedJSONRe.FindStringSubmatch(text); m != nil {
		if obj, ok := tryParse(m[1]); ok {
			return obj, true
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		if obj, ok := tryParse(text[start : end+1]); ok {
			return obj, true
		}
	}

	return tryParse(text)
}

func tryParse(s string) (map[string]interface{}, bool) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &obj); err != nil {
		return nil, false
	}
	return obj, true
}
