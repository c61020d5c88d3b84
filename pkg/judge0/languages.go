package judge0

import (
	"fmt"
	"strings"
)

// languageIDs maps the platform's language names onto the judge's fixed
// language identifiers.
var languageIDs = map[string]int{
	"cpp":        54,
	"java":       62,
	"javascript": 63,
	"python":     71,
}

// LanguageID resolves a declared language name to the judge's identifier.
// Matching is case-insensitive; an unknown language wraps ErrUnsupportedLanguage.
func LanguageID(language string) (int, error) {
	id, ok := languageIDs[strings.ToLower(strings.TrimSpace(language))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}
	return id, nil
}

// SupportedLanguages lists the language names accepted by LanguageID.
func SupportedLanguages() []string {
	names := make([]string, 0, len(languageIDs))
	for name := range languageIDs {
		names = append(names, name)
	}
	return names
}
