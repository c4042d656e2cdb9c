package validators

import "strings"

// SanitizeString collapses runs of whitespace and caps the result at maxLen
// runes. Names like "Oficina  do   João" arrive from free-text form fields.
func SanitizeString(input string, maxLen int) string {
	collapsed := strings.Join(strings.Fields(input), " ")
	if maxLen <= 0 {
		return collapsed
	}
	runes := []rune(collapsed)
	if len(runes) > maxLen {
		return strings.TrimSpace(string(runes[:maxLen]))
	}
	return collapsed
}
