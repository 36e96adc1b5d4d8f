// Package patterns holds the keyword vocabulary: built-in defaults per
// language plus custom and learned phrases persisted in the database.
package patterns

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
)

// Repo persists custom and learned patterns.
type Repo interface {
	// ListPatterns returns stored rows whose language is lang or "all".
	// An empty lang returns every row.
	ListPatterns(ctx context.Context, lang model.Language) ([]model.Pattern, error)
	InsertPattern(ctx context.Context, p model.Pattern) (bool, error)
	ReinforcePattern(ctx context.Context, p model.Pattern, delta float64) error
	DeletePattern(ctx context.Context, category model.Category, text string, lang model.Language) (bool, error)
}

// Store merges the default vocabulary with stored patterns. A nil repo
// makes it a defaults-only store.
type Store struct {
	repo Repo
	log  zerolog.Logger
}

func NewStore(repo Repo, logger zerolog.Logger) *Store {
	return &Store{repo: repo, log: logger.With().Str("component", "patterns").Logger()}
}

// Patterns returns every phrase that votes for a category in lang. Read
// failures degrade to the defaults.
func (s *Store) Patterns(ctx context.Context, lang model.Language) map[model.Category][]Weighted {
	out := Defaults(lang)
	if s.repo == nil {
		return out
	}
	rows, err := s.repo.ListPatterns(ctx, lang)
	if err != nil {
		s.log.Warn().Err(err).Str("language", string(lang)).Msg("pattern store read failed, using defaults")
		return out
	}
	for _, p := range rows {
		if p.Source == model.PatternLearned && p.Language != lang {
			continue
		}
		// custom rows weigh their word count until a correction reinforces them
		w := p.Weight
		if (p.Source == model.PatternCustom && p.ReinforcementCount == 0) || w <= 0 {
			w = float64(model.WordCount(p.Text))
		}
		out[p.Category] = append(out[p.Category], Weighted{Text: p.Text, Weight: w, Source: p.Source})
	}
	return out
}

// AddCustom stores an admin phrase. It reports false when the phrase was
// already present.
func (s *Store) AddCustom(ctx context.Context, category model.Category, text string, lang model.Language) (bool, error) {
	p, err := s.validate(category, text, lang, true)
	if err != nil {
		return false, err
	}
	p.Source = model.PatternCustom
	p.Weight = float64(model.WordCount(p.Text))

	inserted, err := s.repo.InsertPattern(ctx, p)
	if err != nil {
		return false, fmt.Errorf("%w: insert %q: %v", model.ErrPatternStore, p.Text, err)
	}
	s.log.Info().Str("pattern", p.Text).Str("category", string(category)).
		Str("language", string(lang)).Bool("inserted", inserted).Msg("custom pattern added")
	return inserted, nil
}

// ReinforceLearned inserts a learned phrase with weight delta, or adds
// delta to an existing one and bumps its reinforcement count.
func (s *Store) ReinforceLearned(ctx context.Context, category model.Category, text string, lang model.Language, delta float64) error {
	p, err := s.validate(category, text, lang, false)
	if err != nil {
		return err
	}
	if delta <= 0 {
		return fmt.Errorf("%w: reinforcement delta must be positive", model.ErrValidation)
	}
	p.Source = model.PatternLearned
	p.Weight = delta

	if err := s.repo.ReinforcePattern(ctx, p, delta); err != nil {
		return fmt.Errorf("%w: reinforce %q: %v", model.ErrPatternStore, p.Text, err)
	}
	return nil
}

// Remove deletes a stored phrase. Defaults cannot be removed.
func (s *Store) Remove(ctx context.Context, category model.Category, text string, lang model.Language) (bool, error) {
	p, err := s.validate(category, text, lang, true)
	if err != nil {
		return false, err
	}
	removed, err := s.repo.DeletePattern(ctx, p.Category, p.Text, p.Language)
	if err != nil {
		return false, fmt.Errorf("%w: delete %q: %v", model.ErrPatternStore, p.Text, err)
	}
	return removed, nil
}

// List returns stored rows for lang (all rows when lang is empty),
// optionally preceded by the defaults.
func (s *Store) List(ctx context.Context, lang model.Language, includeDefaults bool) ([]model.Pattern, error) {
	var out []model.Pattern
	if includeDefaults {
		langs := model.Languages
		if lang != "" && lang != model.LanguageAll {
			langs = []model.Language{lang}
		}
		for _, l := range langs {
			out = append(out, DefaultPatterns(l)...)
		}
	}
	if s.repo == nil {
		return out, nil
	}
	rows, err := s.repo.ListPatterns(ctx, lang)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", model.ErrPatternStore, err)
	}
	return append(out, rows...), nil
}

func (s *Store) validate(category model.Category, text string, lang model.Language, allowAll bool) (model.Pattern, error) {
	if s.repo == nil {
		return model.Pattern{}, fmt.Errorf("%w: no pattern repository configured", model.ErrPatternStore)
	}
	if _, err := model.ParseCategory(string(category)); err != nil {
		return model.Pattern{}, err
	}
	parse := model.ParseLanguage
	if allowAll {
		parse = model.ParsePatternLanguage
	}
	l, err := parse(string(lang))
	if err != nil {
		return model.Pattern{}, err
	}
	norm := model.NormalizePatternText(text)
	if norm == "" {
		return model.Pattern{}, fmt.Errorf("%w: pattern text is empty", model.ErrValidation)
	}
	if len(norm) > 200 {
		return model.Pattern{}, fmt.Errorf("%w: pattern text longer than 200 bytes", model.ErrValidation)
	}
	return model.Pattern{Text: norm, Category: category, Language: l}, nil
}
