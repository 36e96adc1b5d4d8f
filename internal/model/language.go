package model

import (
	"fmt"
	"strings"
)

// Language is a content language understood by the classifiers.
type Language string

const (
	LanguageFR Language = "fr"
	LanguageEN Language = "en"
	LanguageDE Language = "de"
	LanguageNL Language = "nl"

	// LanguageAll marks custom patterns that apply to every language.
	LanguageAll Language = "all"
)

// Languages lists the detectable languages.
var Languages = []Language{LanguageFR, LanguageEN, LanguageDE, LanguageNL}

// ParseLanguage validates a detectable language code.
func ParseLanguage(s string) (Language, error) {
	l := Language(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Languages {
		if l == known {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: unsupported language %q (must be fr, en, de or nl)", ErrValidation, s)
}

// ParsePatternLanguage is ParseLanguage that also accepts "all".
func ParsePatternLanguage(s string) (Language, error) {
	if Language(strings.ToLower(strings.TrimSpace(s))) == LanguageAll {
		return LanguageAll, nil
	}
	return ParseLanguage(s)
}
