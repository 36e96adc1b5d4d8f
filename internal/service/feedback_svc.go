package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/langdetect"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/metrics"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/patterns"
)

// PatternLearner stores phrases learned from corrections.
type PatternLearner interface {
	ReinforceLearned(ctx context.Context, category model.Category, text string, lang model.Language, delta float64) error
}

// ExemplarSink receives corrected texts as semantic exemplars.
type ExemplarSink interface {
	AddExemplar(ctx context.Context, text string, category model.Category, lang model.Language) error
}

// FeedbackService records human decisions and learns from corrections.
type FeedbackService struct {
	store       Store
	resolver    *Resolver
	propagation *PropagationService
	learner     PatternLearner
	exemplars   ExemplarSink
	log         zerolog.Logger
}

func NewFeedbackService(store Store, resolver *Resolver, propagation *PropagationService, learner PatternLearner, exemplars ExemplarSink, logger zerolog.Logger) *FeedbackService {
	return &FeedbackService{
		store:       store,
		resolver:    resolver,
		propagation: propagation,
		learner:     learner,
		exemplars:   exemplars,
		log:         logger.With().Str("component", "feedback").Logger(),
	}
}

// SubmitFeedback marks the target by hand, then on a correction teaches
// the pattern store and the semantic prototypes. The mark is committed
// before any learning, so a failing pattern write still leaves the human
// label in place. Playlists are then propagated with human authority.
func (f *FeedbackService) SubmitFeedback(ctx context.Context, t model.Target, corrected model.Category, typ model.FeedbackType, notes string) (model.FeedbackResult, error) {
	res := model.FeedbackResult{Target: t, FeedbackType: typ}

	cat, err := model.ParseCategory(string(corrected))
	if err != nil {
		res.Message = err.Error()
		return res, err
	}
	if typ == "" {
		typ = model.FeedbackCorrection
	}
	if typ, err = model.ParseFeedbackType(string(typ)); err != nil {
		res.Message = err.Error()
		return res, err
	}
	res.FeedbackType = typ

	it, err := f.store.GetItem(ctx, t)
	if err != nil {
		res.Message = err.Error()
		return res, err
	}
	if _, err := f.resolver.mark(ctx, t, cat, notes, typ); err != nil {
		res.Message = err.Error()
		return res, err
	}

	if typ == model.FeedbackCorrection {
		if err := f.learn(ctx, it, cat, &res); err != nil {
			res.Message = "human label recorded, learning failed"
			res.LearningError = err.Error()
			return res, err
		}
	}

	if t.Type == model.TargetPlaylist && f.propagation != nil {
		if _, err := f.propagation.AutoLink(ctx, t.ID); err != nil {
			f.log.Warn().Err(err).Str("target", t.String()).Msg("auto-link failed")
		}
		pr, err := f.propagation.Propagate(ctx, t.ID, true)
		if err != nil {
			res.Message = "human label recorded, propagation failed"
			return res, err
		}
		res.VideosUpdated = pr.Updated
	}

	res.Success = true
	res.Message = fmt.Sprintf("%s recorded as %s (%s)", t, cat, typ)
	return res, nil
}

// learn reinforces every candidate phrase of the item's text and feeds
// the text to the semantic tier.
func (f *FeedbackService) learn(ctx context.Context, it model.Item, cat model.Category, res *model.FeedbackResult) error {
	text := it.Text()
	lang := langdetect.Detect(text)
	res.Language = lang

	if f.learner != nil {
		for _, c := range patterns.Extract(text, cat, lang) {
			if err := f.learner.ReinforceLearned(ctx, cat, c.Text, lang, c.Weight); err != nil {
				return err
			}
			res.PatternsLearned++
		}
		metrics.PatternsLearned.Add(float64(res.PatternsLearned))
	}

	if f.exemplars != nil && text != "" {
		err := f.exemplars.AddExemplar(ctx, text, cat, lang)
		switch {
		case err == nil:
			res.ExemplarAdded = true
		case errors.Is(err, model.ErrExternalUnavailable):
			// stored, embedded on the next prototype rebuild
			res.ExemplarAdded = true
			f.log.Warn().Err(err).Str("target", it.Target.String()).Msg("exemplar stored without embedding")
		default:
			f.log.Warn().Err(err).Str("target", it.Target.String()).Msg("exemplar not stored")
		}
	}

	f.log.Info().Str("target", it.Target.String()).Str("category", string(cat)).
		Str("language", string(lang)).Int("patterns", res.PatternsLearned).
		Bool("exemplar", res.ExemplarAdded).Msg("learned from correction")
	return nil
}
