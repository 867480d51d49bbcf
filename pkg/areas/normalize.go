package areas

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// FoldCode case-folds an authority or measure code for case-insensitive
// comparison (e.g. "W06000023" -> "w06000023", "Pop" -> "pop").
func FoldCode(code string) string {
	return cases.Fold().String(strings.TrimSpace(code))
}

// NormalizeLang validates a three-letter language code and returns it in lowercase.
func NormalizeLang(lang string) (string, error) {
	if len(lang) != 3 {
		return "", fmt.Errorf("language code %q must be three alphabetical letters only: %w", lang, ErrInvalidFormat)
	}
	for i := 0; i < len(lang); i++ {
		c := lang[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return "", fmt.Errorf("language code %q must be three alphabetical letters only: %w", lang, ErrInvalidFormat)
		}
	}
	return strings.ToLower(lang), nil
}
