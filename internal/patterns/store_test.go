package patterns

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
)

// memRepo is an in-memory Repo keyed by the (text, category, language)
// unique triple.
type memRepo struct {
	rows     []model.Pattern
	readErr  error
	writeErr error
}

func (r *memRepo) find(text string, cat model.Category, lang model.Language) int {
	for i, p := range r.rows {
		if p.Text == text && p.Category == cat && p.Language == lang {
			return i
		}
	}
	return -1
}

func (r *memRepo) ListPatterns(_ context.Context, lang model.Language) ([]model.Pattern, error) {
	if r.readErr != nil {
		return nil, r.readErr
	}
	var out []model.Pattern
	for _, p := range r.rows {
		if lang == "" || p.Language == lang || p.Language == model.LanguageAll {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memRepo) InsertPattern(_ context.Context, p model.Pattern) (bool, error) {
	if r.writeErr != nil {
		return false, r.writeErr
	}
	if r.find(p.Text, p.Category, p.Language) >= 0 {
		return false, nil
	}
	r.rows = append(r.rows, p)
	return true, nil
}

func (r *memRepo) ReinforcePattern(_ context.Context, p model.Pattern, delta float64) error {
	if r.writeErr != nil {
		return r.writeErr
	}
	if i := r.find(p.Text, p.Category, p.Language); i >= 0 {
		r.rows[i].Weight += delta
		r.rows[i].ReinforcementCount++
		return nil
	}
	p.ReinforcementCount = 1
	r.rows = append(r.rows, p)
	return nil
}

func (r *memRepo) DeletePattern(_ context.Context, cat model.Category, text string, lang model.Language) (bool, error) {
	if r.writeErr != nil {
		return false, r.writeErr
	}
	i := r.find(text, cat, lang)
	if i < 0 {
		return false, nil
	}
	r.rows = append(r.rows[:i], r.rows[i+1:]...)
	return true, nil
}

func contains(list []Weighted, text string) (Weighted, bool) {
	for _, w := range list {
		if w.Text == text {
			return w, true
		}
	}
	return Weighted{}, false
}

func TestStore_PatternsMergesStoredRows(t *testing.T) {
	repo := &memRepo{rows: []model.Pattern{
		{Text: "mega glijbaan", Category: model.CategoryHero, Language: model.LanguageAll, Source: model.PatternCustom, Weight: 2},
		{Text: "nouveau", Category: model.CategoryHero, Language: model.LanguageFR, Source: model.PatternLearned, Weight: 2.5},
		{Text: "new slide", Category: model.CategoryHero, Language: model.LanguageEN, Source: model.PatternLearned, Weight: 1},
	}}
	s := NewStore(repo, zerolog.Nop())

	got := s.Patterns(context.Background(), model.LanguageFR)[model.CategoryHero]
	if _, ok := contains(got, "mega glijbaan"); !ok {
		t.Error("custom pattern for all languages missing")
	}
	if w, ok := contains(got, "nouveau"); !ok {
		t.Error("default nouveau missing")
	} else if w.Source != model.PatternDefault {
		t.Errorf("first nouveau should be the default, got %s", w.Source)
	}
	var learned float64
	for _, w := range got {
		if w.Text == "nouveau" && w.Source == model.PatternLearned {
			learned = w.Weight
		}
	}
	if learned != 2.5 {
		t.Errorf("learned nouveau weight = %v, want 2.5", learned)
	}
	if _, ok := contains(got, "new slide"); ok {
		t.Error("English learned pattern leaked into French")
	}
}

func TestStore_ReadFailureFallsBackToDefaults(t *testing.T) {
	s := NewStore(&memRepo{readErr: errors.New("connection refused")}, zerolog.Nop())
	got := s.Patterns(context.Background(), model.LanguageEN)
	want := Defaults(model.LanguageEN)
	for _, cat := range model.Categories {
		if len(got[cat]) != len(want[cat]) {
			t.Errorf("%s: got %d patterns, want %d defaults", cat, len(got[cat]), len(want[cat]))
		}
	}
}

func TestStore_AddCustom(t *testing.T) {
	repo := &memRepo{}
	s := NewStore(repo, zerolog.Nop())
	ctx := context.Background()

	inserted, err := s.AddCustom(ctx, model.CategoryHub, "  Aqua   Mundo Tour ", model.LanguageAll)
	if err != nil || !inserted {
		t.Fatalf("AddCustom = %v, %v; want true, nil", inserted, err)
	}
	if repo.rows[0].Text != "aqua mundo tour" || repo.rows[0].Weight != 3 {
		t.Errorf("stored %+v, want normalized text with weight 3", repo.rows[0])
	}

	inserted, err = s.AddCustom(ctx, model.CategoryHub, "aqua mundo tour", model.LanguageAll)
	if err != nil || inserted {
		t.Errorf("second AddCustom = %v, %v; want false, nil", inserted, err)
	}
}

func TestStore_Validation(t *testing.T) {
	s := NewStore(&memRepo{}, zerolog.Nop())
	ctx := context.Background()

	tests := []struct {
		name string
		cat  model.Category
		text string
		lang model.Language
	}{
		{"bad category", "villain", "boo", model.LanguageEN},
		{"uncategorized", model.CategoryUncategorized, "boo", model.LanguageEN},
		{"bad language", model.CategoryHero, "boo", "es"},
		{"empty text", model.CategoryHero, "   ", model.LanguageEN},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AddCustom(ctx, tt.cat, tt.text, tt.lang)
			if !errors.Is(err, model.ErrValidation) {
				t.Errorf("AddCustom error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestStore_ReinforceLearned(t *testing.T) {
	repo := &memRepo{}
	s := NewStore(repo, zerolog.Nop())
	ctx := context.Background()

	if err := s.ReinforceLearned(ctx, model.CategoryHero, "Nouveau", model.LanguageFR, 2); err != nil {
		t.Fatal(err)
	}
	if err := s.ReinforceLearned(ctx, model.CategoryHero, "nouveau", model.LanguageFR, 1); err != nil {
		t.Fatal(err)
	}
	if len(repo.rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(repo.rows))
	}
	row := repo.rows[0]
	if row.Weight != 3 || row.ReinforcementCount != 2 || row.Source != model.PatternLearned {
		t.Errorf("row = %+v, want weight 3, count 2, learned", row)
	}

	if err := s.ReinforceLearned(ctx, model.CategoryHero, "x y", model.LanguageAll, 1); !errors.Is(err, model.ErrValidation) {
		t.Errorf("learned patterns must have a concrete language, got %v", err)
	}
	if err := s.ReinforceLearned(ctx, model.CategoryHero, "x y", model.LanguageFR, 0); !errors.Is(err, model.ErrValidation) {
		t.Errorf("zero delta error = %v, want ErrValidation", err)
	}
}

func TestStore_ReinforcedCustomPatternGainsWeight(t *testing.T) {
	repo := &memRepo{}
	s := NewStore(repo, zerolog.Nop())
	ctx := context.Background()

	if _, err := s.AddCustom(ctx, model.CategoryHub, "aqua dome", model.LanguageEN); err != nil {
		t.Fatal(err)
	}
	before, ok := contains(s.Patterns(ctx, model.LanguageEN)[model.CategoryHub], "aqua dome")
	if !ok || before.Weight != 2 {
		t.Fatalf("custom pattern = %+v, %v, want weight 2", before, ok)
	}

	if err := s.ReinforceLearned(ctx, model.CategoryHub, "aqua dome", model.LanguageEN, 1.5); err != nil {
		t.Fatal(err)
	}
	after, ok := contains(s.Patterns(ctx, model.LanguageEN)[model.CategoryHub], "aqua dome")
	if !ok || after.Weight != 3.5 {
		t.Errorf("reinforced custom pattern = %+v, %v, want weight 3.5", after, ok)
	}
}

func TestStore_WriteFailureIsPatternStoreError(t *testing.T) {
	s := NewStore(&memRepo{writeErr: errors.New("disk full")}, zerolog.Nop())
	err := s.ReinforceLearned(context.Background(), model.CategoryHelp, "how to", model.LanguageEN, 1)
	if !errors.Is(err, model.ErrPatternStore) {
		t.Errorf("error = %v, want ErrPatternStore", err)
	}
}

func TestStore_Remove(t *testing.T) {
	repo := &memRepo{}
	s := NewStore(repo, zerolog.Nop())
	ctx := context.Background()

	_, _ = s.AddCustom(ctx, model.CategoryHelp, "faq live", model.LanguageEN)
	removed, err := s.Remove(ctx, model.CategoryHelp, "FAQ live", model.LanguageEN)
	if err != nil || !removed {
		t.Fatalf("Remove = %v, %v; want true, nil", removed, err)
	}
	removed, err = s.Remove(ctx, model.CategoryHelp, "faq live", model.LanguageEN)
	if err != nil || removed {
		t.Errorf("second Remove = %v, %v; want false, nil", removed, err)
	}
}

func TestStore_NilRepo(t *testing.T) {
	s := NewStore(nil, zerolog.Nop())
	if got := s.Patterns(context.Background(), model.LanguageEN); len(got[model.CategoryHelp]) == 0 {
		t.Error("nil repo should still serve defaults")
	}
	if _, err := s.AddCustom(context.Background(), model.CategoryHelp, "x", model.LanguageEN); !errors.Is(err, model.ErrPatternStore) {
		t.Errorf("AddCustom without repo = %v, want ErrPatternStore", err)
	}
	list, err := s.List(context.Background(), model.LanguageEN, true)
	if err != nil || len(list) == 0 {
		t.Errorf("List with defaults = %d rows, %v", len(list), err)
	}
}
