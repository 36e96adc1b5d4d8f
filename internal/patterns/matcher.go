package patterns

import (
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
)

// Weighted is a phrase with the weight each of its matches contributes.
type Weighted struct {
	Text   string              `json:"pattern"`
	Weight float64             `json:"weight"`
	Source model.PatternSource `json:"source"`
}

// separator is what a whitespace run inside a pattern may match in text.
const separator = `[\s\-._]+`

var compiled sync.Map // normalized pattern -> *regexp.Regexp

func compile(pattern string) *regexp.Regexp {
	if re, ok := compiled.Load(pattern); ok {
		return re.(*regexp.Regexp)
	}
	words := strings.Fields(pattern)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	re := regexp.MustCompile(strings.Join(words, separator))
	actual, _ := compiled.LoadOrStore(pattern, re)
	return actual.(*regexp.Regexp)
}

// Matches returns the byte offsets, within strings.ToLower(text), of
// whole-phrase matches of pattern. A letter or digit directly touching
// either end of a candidate disqualifies it.
func Matches(pattern, text string) [][]int {
	pattern = model.NormalizePatternText(pattern)
	if pattern == "" || text == "" {
		return nil
	}
	lower := strings.ToLower(text)
	var out [][]int
	for _, loc := range compile(pattern).FindAllStringIndex(lower, -1) {
		if isWordRune(lastRune(lower[:loc[0]])) || isWordRune(firstRune(lower[loc[1]:])) {
			continue
		}
		out = append(out, loc)
	}
	return out
}

// Count is the number of whole-phrase matches of pattern in text.
func Count(pattern, text string) int {
	return len(Matches(pattern, text))
}

// Score sums matches times weight over a pattern list.
func Score(text string, list []Weighted) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	var score float64
	for _, p := range list {
		if n := Count(p.Text, text); n > 0 {
			score += float64(n) * p.Weight
		}
	}
	return score
}

func isWordRune(r rune) bool {
	return r != utf8.RuneError && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

func lastRune(s string) rune {
	if s == "" {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeLastRuneInString(s)
	return r
}

func firstRune(s string) rune {
	if s == "" {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r
}
