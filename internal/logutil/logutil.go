package logutil

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// IsSensitiveLogField returns true when a key likely contains sensitive data.
func IsSensitiveLogField(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	normalized = strings.ReplaceAll(normalized, "-", "")
	normalized = strings.ReplaceAll(normalized, "_", "")

	switch {
	case normalized == "authorization":
		return true
	case strings.Contains(normalized, "token"):
		return true
	case strings.Contains(normalized, "secret"):
		return true
	case strings.Contains(normalized, "password"):
		return true
	case strings.Contains(normalized, "cookie"):
		return true
	case strings.Contains(normalized, "session"):
		return true
	default:
		return false
	}
}

// RedactValue redacts a value when the key looks sensitive.
func RedactValue(key, value string) string {
	if IsSensitiveLogField(key) {
		return "[REDACTED]"
	}
	return value
}

// FormatFormForLog returns stable, redacted form text for logs. Long values
// are truncated to maxChars.
func FormatFormForLog(form url.Values, maxChars int) string {
	if len(form) == 0 {
		return "{}"
	}

	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		values := form[k]
		if len(values) == 0 {
			parts = append(parts, fmt.Sprintf("%s=<empty>", k))
			continue
		}
		redacted := make([]string, len(values))
		for i, v := range values {
			redacted[i] = TruncateForLog(RedactValue(k, v), maxChars)
		}
		parts = append(parts, fmt.Sprintf("%s=%q", k, strings.Join(redacted, ", ")))
	}
	return strings.Join(parts, "; ")
}

// TruncateForLog returns a single-line truncated preview for unstructured values.
func TruncateForLog(value string, maxChars int) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	normalized := strings.ReplaceAll(trimmed, "\n", "\\n")
	runes := []rune(normalized)
	if maxChars <= 0 || len(runes) <= maxChars {
		return normalized
	}
	return string(runes[:maxChars]) + "... [truncated]"
}
