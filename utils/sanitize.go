package utils

import (
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

const maxDisplayNameRunes = 64

// SanitizeDisplayName strips all markup and trims the result to the column width.
func SanitizeDisplayName(input string) string {
	clean := strings.TrimSpace(strictPolicy.Sanitize(input))
	if utf8.RuneCountInString(clean) <= maxDisplayNameRunes {
		return clean
	}
	return string([]rune(clean)[:maxDisplayNameRunes])
}
