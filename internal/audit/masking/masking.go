// Package masking redacts secrets before they land in audit metadata.
package masking

import "strings"

const maskToken = "****"

// MaskSecret redacts a token while keeping a short suffix so entries stay
// correlatable.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) <= 4 {
		return maskToken
	}
	return maskToken + trimmed[len(trimmed)-4:]
}

// MaskTokens returns a copy of the metadata with token-bearing keys masked.
// Other values pass through untouched.
func MaskTokens(input map[string]any) map[string]any {
	if len(input) == 0 {
		return nil
	}

	out := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		if str, ok := value.(string); ok && sensitiveKey(trimmedKey) {
			out[trimmedKey] = MaskSecret(str)
			continue
		}
		out[trimmedKey] = value
	}
	return out
}

func sensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	return strings.Contains(lower, "token") || strings.Contains(lower, "secret") || strings.Contains(lower, "password")
}
