package patterns

import (
	"testing"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
)

func TestCount(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		text    string
		want    int
	}{
		{"simple word", "guide", "Le guide du parc", 1},
		{"case insensitive", "GUIDE", "guide GUIDE Guide", 3},
		{"no partial word", "tour", "detour tourisme", 0},
		{"no digit touching", "tip", "tip1 2tip tip", 1},
		{"space matches hyphen", "how to", "How-to: cottages", 1},
		{"space matches dot and underscore", "center parcs", "center.parcs center_parcs", 2},
		{"space matches whitespace run", "aqua mundo", "aqua   mundo", 1},
		{"accented boundary", "nouveau", "nouveauté et nouveau", 1},
		{"regex characters quoted", "q&a", "Live Q&A session", 1},
		{"dot in pattern is literal", "a.b", "axb", 0},
		{"empty text", "guide", "", 0},
		{"empty pattern", "  ", "guide", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Count(tt.pattern, tt.text); got != tt.want {
				t.Errorf("Count(%q, %q) = %d, want %d", tt.pattern, tt.text, got, tt.want)
			}
		})
	}
}

func TestScore(t *testing.T) {
	list := []Weighted{
		{Text: "how", Weight: 1},
		{Text: "how to", Weight: 2},
		{Text: "book", Weight: 1},
	}
	if got := Score("How to book a cottage", list); got != 4 {
		t.Errorf("Score = %v, want 4", got)
	}
	if got := Score("   ", list); got != 0 {
		t.Errorf("Score(blank) = %v, want 0", got)
	}
}

func TestCompileCache(t *testing.T) {
	a := compile("center parcs")
	b := compile("center parcs")
	if a != b {
		t.Error("compile should return the cached regexp for the same pattern")
	}
}

func TestDefaults_Shape(t *testing.T) {
	for _, lang := range model.Languages {
		d := Defaults(lang)
		for _, cat := range model.Categories {
			n := len(d[cat])
			if n < 30 || n > 50 {
				t.Errorf("defaults[%s][%s] has %d phrases, want 30-50", lang, cat, n)
			}
			for _, w := range d[cat] {
				if w.Weight != float64(model.WordCount(w.Text)) {
					t.Errorf("default %q weight = %v, want word count", w.Text, w.Weight)
				}
				if w.Text != model.NormalizePatternText(w.Text) {
					t.Errorf("default %q is not normalized", w.Text)
				}
			}
		}
	}
}

func TestDefaults_UnknownLanguageFallsBackToFrench(t *testing.T) {
	got := Defaults("xx")[model.CategoryHero]
	want := Defaults(model.LanguageFR)[model.CategoryHero]
	if len(got) != len(want) || got[0].Text != want[0].Text {
		t.Error("unknown language should use the French vocabulary")
	}
}

func TestDefaults_ReturnsCopy(t *testing.T) {
	d := Defaults(model.LanguageEN)
	d[model.CategoryHelp] = append(d[model.CategoryHelp], Weighted{Text: "zzz", Weight: 1})
	for _, w := range Defaults(model.LanguageEN)[model.CategoryHelp] {
		if w.Text == "zzz" {
			t.Fatal("mutating the returned map leaked into the defaults")
		}
	}
}
