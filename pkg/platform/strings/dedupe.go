// Package strings holds small string-slice helpers shared across services.
package strings

import "strings"

// DedupeAndTrimLower lowercases and trims every element, dropping empties
// and duplicates. Order of first occurrence is preserved. Used to normalize
// signer email lists before they go on the wire.
func DedupeAndTrimLower(values []string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		normalized := strings.ToLower(strings.TrimSpace(v))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		result = append(result, normalized)
	}
	return result
}
