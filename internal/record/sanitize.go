package record

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var textPolicy = bluemonday.StrictPolicy()

// SanitizeText strips markup from submitted text while keeping plain
// characters such as "&" readable
func SanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

// SanitizeValues returns a copy of values with every string, including
// strings inside lists, sanitised
func SanitizeValues(values map[string]any) map[string]any {
	if values == nil {
		return nil
	}
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = sanitizeAny(v)
	}
	return out
}

func sanitizeAny(v any) any {
	switch x := v.(type) {
	case string:
		return SanitizeText(x)
	case []string:
		list := make([]string, len(x))
		for i, s := range x {
			list[i] = SanitizeText(s)
		}
		return list
	case []any:
		list := make([]any, len(x))
		for i, item := range x {
			list[i] = sanitizeAny(item)
		}
		return list
	}
	return v
}
