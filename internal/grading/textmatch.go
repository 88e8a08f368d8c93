package grading

import (
	"encoding/json"
	"strings"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// normalize is the comparison form for every textual answer: trimmed and
// lower-cased. Inner whitespace and punctuation are significant.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// splitKey turns a comma-separated answer key into normalized tokens,
// dropping empty ones.
func splitKey(key string) []string {
	parts := strings.Split(key, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if n := normalize(p); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func decodeScalar(answer json.RawMessage) (string, bool) {
	var s quiz.FlexString
	if err := json.Unmarshal(answer, &s); err != nil {
		return "", false
	}
	return string(s), true
}

func decodeStrings(answer json.RawMessage) ([]string, bool) {
	var arr []quiz.FlexString
	if err := json.Unmarshal(answer, &arr); err != nil || arr == nil {
		return nil, false
	}
	out := make([]string, len(arr))
	for i, s := range arr {
		out[i] = normalize(string(s))
	}
	return out, true
}
