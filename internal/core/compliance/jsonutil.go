package compliance

import (
	"regexp"
	"strings"
)

var (
	fencedObjectPattern  = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSONObject locates a JSON object inside free model text: a fenced
// ```json block first, then the outermost braces. It returns "" when the text
// holds no object. The result is cleaned of trailing commas but not validated.
func ExtractJSONObject(raw string) string {
	if matches := fencedObjectPattern.FindStringSubmatch(raw); len(matches) > 1 {
		return trailingCommaPattern.ReplaceAllString(matches[1], "$1")
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ""
	}
	return trailingCommaPattern.ReplaceAllString(raw[start:end+1], "$1")
}
