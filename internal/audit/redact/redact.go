// Package redact scrubs sensitive fields from JSON-like structures before
// they are persisted in audit records.
package redact

import "strings"

// Sentinel replaces the value of every redacted field. Applying redaction to
// already-redacted data is a no-op: the sentinel is a scalar, so it passes
// through unchanged on subsequent passes.
const Sentinel = "[REDACTED]"

// Values returns a copy of v with every field whose lowercased key contains
// one of the configured substrings replaced by the sentinel. Matched values
// are not recursed into; unmatched maps and slices are. Scalars pass through
// unchanged, and the input is never mutated.
//
// Input is assumed to be acyclic JSON-like data (maps, slices, scalars).
func Values(v any, sensitive []string) any {
	if len(sensitive) == 0 {
		return v
	}

	lowered := make([]string, len(sensitive))
	for i, s := range sensitive {
		lowered[i] = strings.ToLower(s)
	}
	return redactValue(v, lowered)
}

// Map is a convenience wrapper for the common map payload case, preserving
// the concrete map type for callers.
func Map(m map[string]any, sensitive []string) map[string]any {
	if m == nil || len(sensitive) == 0 {
		return m
	}
	redacted, _ := Values(m, sensitive).(map[string]any)
	return redacted
}

func redactValue(v any, lowered []string) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for key, inner := range val {
			if matches(key, lowered) {
				out[key] = Sentinel
				continue
			}
			out[key] = redactValue(inner, lowered)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = redactValue(inner, lowered)
		}
		return out
	default:
		return v
	}
}

func matches(key string, lowered []string) bool {
	lowerKey := strings.ToLower(key)
	for _, substr := range lowered {
		if strings.Contains(lowerKey, substr) {
			return true
		}
	}
	return false
}
