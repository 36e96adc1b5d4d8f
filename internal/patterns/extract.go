package patterns

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/langdetect"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
)

// Candidate weights assigned by Extract.
const (
	WeightPhrase  = 1.0
	WeightHint    = 2.0
	WeightContext = 1.5
	WeightLeading = 3.0
)

const (
	contextRadius = 30 // bytes either side of a hint match
	minPhraseLen  = 5
	maxPhraseLen  = 50
)

// hints are words that strongly suggest a category. The English list
// applies to every language.
var hints = map[model.Category]map[model.Language][]string{
	model.CategoryHero: {
		model.LanguageEN: {"new", "launch", "exclusive", "premier", "announce", "reveal", "big", "special"},
		model.LanguageFR: {"nouveau", "lancement", "exclusif", "première", "annonce", "révélation", "grand", "spécial"},
		model.LanguageDE: {"neu", "start", "exklusiv", "premiere", "ankündigung", "enthüllung", "groß", "besonders"},
		model.LanguageNL: {"nieuw", "lancering", "exclusief", "première", "aankondiging", "onthulling", "groot", "speciaal"},
	},
	model.CategoryHelp: {
		model.LanguageEN: {"how", "guide", "tutorial", "solve", "fix", "problem", "help", "tip", "advice"},
		model.LanguageFR: {"comment", "guide", "tutoriel", "résoudre", "réparer", "problème", "aide", "astuce", "conseil"},
		model.LanguageDE: {"wie", "anleitung", "lösen", "reparieren", "problem", "hilfe", "tipp", "ratschlag"},
		model.LanguageNL: {"hoe", "gids", "oplossen", "repareren", "probleem", "hulp", "tip", "advies"},
	},
	model.CategoryHub: {
		model.LanguageEN: {"episode", "series", "weekly", "discover", "explore", "tour", "visit", "experience"},
		model.LanguageFR: {"épisode", "série", "hebdomadaire", "découvrir", "explorer", "tour", "visite", "expérience"},
		model.LanguageDE: {"folge", "serie", "wöchentlich", "entdecken", "erkunden", "rundgang", "besuch", "erlebnis"},
		model.LanguageNL: {"aflevering", "serie", "wekelijks", "ontdekken", "verkennen", "rondleiding", "bezoek", "beleving"},
	},
}

// Hints returns the hint keywords of category for lang.
func Hints(category model.Category, lang model.Language) []string {
	byLang := hints[category]
	seen := make(map[string]struct{})
	var out []string
	for _, list := range [][]string{byLang[model.LanguageEN], byLang[lang]} {
		for _, w := range list {
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			out = append(out, w)
		}
	}
	return out
}

// Extract derives learnable phrases from a corrected item's text. Each
// phrase keeps the highest weight any rule gave it; the result is ordered
// by weight, then by first appearance.
func Extract(text string, category model.Category, lang model.Language) []Weighted {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return nil
	}

	c := newCollector()

	tokens := langdetect.Tokens(lower)
	for n := 2; n <= 3; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			first, last := tokens[i], tokens[i+n-1]
			if isStopToken(first) || isStopToken(last) {
				continue
			}
			phrase := strings.Join(tokens[i:i+n], " ")
			if utf8.RuneCountInString(phrase) > minPhraseLen {
				c.add(phrase, WeightPhrase)
			}
		}
	}

	for _, kw := range Hints(category, lang) {
		locs := Matches(kw, lower)
		if len(locs) == 0 {
			continue
		}
		c.add(kw, WeightHint)
		for _, loc := range locs {
			phrase := contextPhrase(lower, loc)
			if n := utf8.RuneCountInString(phrase); n > minPhraseLen && n < maxPhraseLen && phrase != kw {
				c.add(phrase, WeightContext)
			}
		}
		if locs[0][0] == 0 {
			c.add(kw, WeightLeading)
		}
	}

	return c.result()
}

func isStopToken(tok string) bool {
	return utf8.RuneCountInString(tok) < 2 || langdetect.IsFunctionWord(tok)
}

// contextPhrase returns the sentence fragment around a match, clipped to
// contextRadius bytes on either side without cutting words in half.
func contextPhrase(lower string, loc []int) string {
	start := max(0, loc[0]-contextRadius)
	end := min(len(lower), loc[1]+contextRadius)
	for start > 0 && !utf8.RuneStart(lower[start]) {
		start--
	}
	for end < len(lower) && !utf8.RuneStart(lower[end]) {
		end++
	}

	if start > 0 && isWordRune(lastRune(lower[:start])) {
		if i := strings.IndexFunc(lower[start:loc[0]], notWordRune); i >= 0 {
			start += i
		} else {
			start = loc[0]
		}
	}
	if end < len(lower) && isWordRune(firstRune(lower[end:])) {
		if i := strings.LastIndexFunc(lower[loc[1]:end], notWordRune); i >= 0 {
			end = loc[1] + i
		} else {
			end = loc[1]
		}
	}

	if i := strings.LastIndexAny(lower[start:loc[0]], ".!?"); i >= 0 {
		start += i + 1
	}
	if i := strings.IndexAny(lower[loc[1]:end], ".!?"); i >= 0 {
		end = loc[1] + i
	}
	return model.NormalizePatternText(lower[start:end])
}

func notWordRune(r rune) bool { return !isWordRune(r) }

type collector struct {
	weight map[string]float64
	order  map[string]int
}

func newCollector() *collector {
	return &collector{weight: make(map[string]float64), order: make(map[string]int)}
}

func (c *collector) add(phrase string, w float64) {
	phrase = model.NormalizePatternText(phrase)
	if phrase == "" {
		return
	}
	if _, ok := c.order[phrase]; !ok {
		c.order[phrase] = len(c.order)
	}
	if w > c.weight[phrase] {
		c.weight[phrase] = w
	}
}

func (c *collector) result() []Weighted {
	out := make([]Weighted, 0, len(c.weight))
	for p, w := range c.weight {
		out = append(out, Weighted{Text: p, Weight: w, Source: model.PatternLearned})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return c.order[out[i].Text] < c.order[out[j].Text]
	})
	return out
}
