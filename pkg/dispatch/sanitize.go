package dispatch

import "strings"

// sensitiveKeyMarkers are the case-insensitive substrings that mark an
// argument key as sensitive (spec §4.7's sanitization rule). Redaction is
// fail-closed and applied structurally, key by key, rather than by regex
// sweep over serialized content.
var sensitiveKeyMarkers = []string{"password", "api_key", "token", "secret", "credential", "auth", "key"}

const (
	redactedPlaceholder = "[REDACTED]"
	maxStringLength     = 500
	truncationSuffix    = "...[truncated]"
)

// Sanitize recursively redacts sensitive keys and truncates long strings
// throughout args, without mutating the input.
func Sanitize(args map[string]any) map[string]any {
	return sanitizeMap(args)
}

func sanitizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if isSensitiveKey(k) {
			out[k] = redactedPlaceholder
			continue
		}
		out[k] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return sanitizeMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = sanitizeValue(item)
		}
		return out
	case string:
		return truncate(val)
	default:
		return v
	}
}

func truncate(s string) string {
	if len(s) <= maxStringLength {
		return s
	}
	return s[:maxStringLength] + truncationSuffix
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range sensitiveKeyMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
