// Package langdetect guesses the language of short video titles and
// descriptions by counting common function words.
package langdetect

import (
	"strings"
	"unicode"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
)

// markers are whole-word tokens typical of each language. Some tokens are
// shared (Dutch "de" and "en" also appear in French text) and count for
// every language that lists them.
var markers = map[model.Language][]string{
	model.LanguageFR: {
		"le", "la", "les", "des", "un", "une", "comment", "pour", "avec",
		"notre", "nos", "votre", "du", "et", "dans", "sur", "au", "aux",
		"ce", "cette", "est",
	},
	model.LanguageDE: {
		"der", "die", "das", "und", "mit", "eine", "ein", "wie",
		"ist", "im", "zum", "zur", "für", "unser", "unsere",
	},
	model.LanguageNL: {
		"de", "het", "een", "hoe", "met", "en",
		"van", "naar", "voor", "onze", "ons", "je", "jouw",
	},
	model.LanguageEN: {
		"the", "and", "to", "of", "for", "with", "your", "our", "how",
		"in", "is", "a",
	},
}

// order is the tie-break order: on equal scores the earlier language wins.
var order = []model.Language{model.LanguageFR, model.LanguageDE, model.LanguageNL, model.LanguageEN}

var markerSets = func() map[model.Language]map[string]struct{} {
	sets := make(map[model.Language]map[string]struct{}, len(markers))
	for lang, words := range markers {
		set := make(map[string]struct{}, len(words))
		for _, w := range words {
			set[w] = struct{}{}
		}
		sets[lang] = set
	}
	return sets
}()

// Detect returns the most likely language of text. Empty text, or text
// without any marker, is English.
func Detect(text string) model.Language {
	scores := Scores(text)

	best := model.LanguageEN
	bestScore := 0
	for _, lang := range order {
		if scores[lang] > bestScore {
			best = lang
			bestScore = scores[lang]
		}
	}
	return best
}

// Scores counts marker occurrences per language.
func Scores(text string) map[model.Language]int {
	scores := make(map[model.Language]int, len(order))
	for _, tok := range Tokens(text) {
		for lang, set := range markerSets {
			if _, ok := set[tok]; ok {
				scores[lang]++
			}
		}
	}
	return scores
}

// IsFunctionWord reports whether tok is a marker word of any language.
func IsFunctionWord(tok string) bool {
	for _, set := range markerSets {
		if _, ok := set[tok]; ok {
			return true
		}
	}
	return false
}

// Tokens splits text into lower-cased words. Apostrophes split words, so
// "l'hôtel" yields "l" and "hôtel".
func Tokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
