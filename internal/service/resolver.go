package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/classifier"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/langdetect"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/metrics"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
)

// DefaultSemanticThreshold is the confidence at which the semantic tier
// becomes authoritative.
const DefaultSemanticThreshold = 60

// SemanticTier is the embedding-based classifier.
type SemanticTier interface {
	Classify(ctx context.Context, title, description string) classifier.SemanticResult
}

// KeywordTier is the pattern-based classifier.
type KeywordTier interface {
	Classify(ctx context.Context, title, description string, lang model.Language) classifier.KeywordResult
}

// PlaylistFollowUp runs after a playlist is labelled by hand.
type PlaylistFollowUp interface {
	AfterHumanMark(ctx context.Context, playlistID int64) (linked, updated int, err error)
}

// Resolver decides an item's category under the priority lattice
// human > semantic > keyword > none, and is the only writer of the
// classification columns.
type Resolver struct {
	store     Store
	semantic  SemanticTier
	keyword   KeywordTier
	cache     ClassificationCache
	threshold int
	followUp  PlaylistFollowUp
	log       zerolog.Logger
	now       func() time.Time
}

// NewResolver builds a resolver. semantic may be nil; cache may be nil.
func NewResolver(store Store, semantic SemanticTier, keyword KeywordTier, cache ClassificationCache, threshold int, logger zerolog.Logger) *Resolver {
	if threshold <= 0 {
		threshold = DefaultSemanticThreshold
	}
	return &Resolver{
		store:     store,
		semantic:  semantic,
		keyword:   keyword,
		cache:     cacheOrNoop(cache),
		threshold: threshold,
		log:       logger.With().Str("component", "resolver").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// OnHumanPlaylist registers what runs after a playlist is marked by hand
// (auto-linking and propagation).
func (r *Resolver) OnHumanPlaylist(f PlaylistFollowUp) { r.followUp = f }

// verdict is what the automatic tiers make of a text.
type verdict struct {
	state    model.ClassificationState
	lang     model.Language
	semantic classifier.SemanticResult
	keyword  classifier.KeywordResult
}

// evaluate runs both automatic tiers. Semantic wins when it is confident
// enough, keyword otherwise, and uncategorized when both abstain.
func (r *Resolver) evaluate(ctx context.Context, title, description string) verdict {
	v := verdict{
		state: model.DefaultState(),
		lang:  langdetect.Detect(strings.TrimSpace(title + " " + description)),
	}
	if r.semantic != nil {
		v.semantic = r.semantic.Classify(ctx, title, description)
	} else {
		v.semantic = classifier.SemanticResult{Category: model.CategoryUncategorized, Abstained: true, Reason: classifier.ReasonDisabled}
	}
	v.keyword = r.keyword.Classify(ctx, title, description, v.lang)

	switch {
	case !v.semantic.Abstained && v.semantic.Confidence >= r.threshold:
		v.state = model.ClassificationState{
			Category:   v.semantic.Category,
			Source:     model.SourceSemantic,
			Confidence: v.semantic.Confidence,
		}
	case !v.keyword.Abstained:
		v.state = model.ClassificationState{
			Category:   v.keyword.Category,
			Source:     model.SourceKeyword,
			Confidence: v.keyword.Confidence,
		}
	}
	return v
}

func sameState(a, b model.ClassificationState) bool {
	a, b = a.Normalize(), b.Normalize()
	return a.Category == b.Category && a.Source == b.Source &&
		a.HumanValidated == b.HumanValidated && a.Confidence == b.Confidence
}

// Get returns the stored classification of a target.
func (r *Resolver) Get(ctx context.Context, t model.Target) (model.Resolution, error) {
	if res, ok := r.cache.GetClassification(ctx, t); ok {
		return res, nil
	}
	it, err := r.store.GetItem(ctx, t)
	if err != nil {
		return model.Resolution{}, err
	}
	res := model.ResolutionFromState(t, it.State)
	if err := r.cache.SetClassification(ctx, res); err != nil {
		r.log.Warn().Err(err).Str("target", t.String()).Msg("cache write failed")
	}
	return res, nil
}

// IsHumanProtected reports whether the target was labelled by hand.
func (r *Resolver) IsHumanProtected(ctx context.Context, t model.Target) (bool, error) {
	it, err := r.store.GetItem(ctx, t)
	if err != nil {
		return false, err
	}
	return it.State.Source == model.SourceHuman, nil
}

// GetPriority answers "what is this item right now". Stored human and
// semantic results are returned as they are; anything weaker is
// recomputed and persisted when the fresh result is at least as strong.
func (r *Resolver) GetPriority(ctx context.Context, t model.Target) (model.Resolution, error) {
	it, err := r.store.GetItem(ctx, t)
	if err != nil {
		return model.Resolution{}, err
	}
	switch it.State.Priority() {
	case model.PriorityHuman, model.PrioritySemantic:
		return model.ResolutionFromState(t, it.State), nil
	}
	v := r.evaluate(ctx, it.Title, it.Description)
	res, err := r.apply(ctx, r.store, it, v, false)
	if err == nil && res.Persisted {
		r.cache.Invalidate(ctx, t)
	}
	return res, err
}

// ClassifyWithHierarchy recomputes a target. Human-validated rows are
// returned untouched even when forced; a result weaker than the stored
// one is only written when force is set.
func (r *Resolver) ClassifyWithHierarchy(ctx context.Context, t model.Target, force bool) (model.Resolution, error) {
	res, err := r.classify(ctx, r.store, t, force)
	if err == nil && res.Persisted {
		r.cache.Invalidate(ctx, t)
	}
	return res, err
}

// classify and apply never touch the cache: items may be a transaction
// and the caller invalidates once the write is committed.
func (r *Resolver) classify(ctx context.Context, items Items, t model.Target, force bool) (model.Resolution, error) {
	it, err := items.GetItem(ctx, t)
	if err != nil {
		return model.Resolution{}, err
	}
	if it.State.HumanValidated {
		res := model.ResolutionFromState(t, it.State)
		res.Protected = true
		return res, nil
	}
	v := r.evaluate(ctx, it.Title, it.Description)
	return r.apply(ctx, items, it, v, force)
}

// apply persists a fresh verdict when the lattice allows it.
func (r *Resolver) apply(ctx context.Context, items Items, it model.Item, v verdict, force bool) (model.Resolution, error) {
	t, stored, fresh := it.Target, it.State, v.state

	keep := func(protected bool) model.Resolution {
		res := model.ResolutionFromState(t, stored)
		res.Language = v.lang
		res.Protected = res.Protected || protected
		return res
	}

	if sameState(stored, fresh) {
		return keep(false), nil
	}
	if stored.HumanValidated {
		return keep(true), nil
	}
	if !force && !fresh.Priority().AtLeast(stored.Priority()) {
		r.log.Debug().Str("target", t.String()).
			Str("stored", stored.Priority().String()).Str("fresh", fresh.Priority().String()).
			Msg("weaker result not persisted")
		return keep(false), nil
	}

	now := r.now()
	fresh.Date = &now
	ok, err := items.UpdateAuto(ctx, t, fresh)
	if err != nil {
		return model.Resolution{}, fmt.Errorf("write classification for %s: %w", t, err)
	}
	if !ok {
		// a human mark landed between read and write
		cur, err := items.GetItem(ctx, t)
		if err != nil {
			return model.Resolution{}, err
		}
		stored = cur.State
		return keep(true), nil
	}
	metrics.Classifications.WithLabelValues(fresh.Priority().String(), string(fresh.Category)).Inc()

	r.log.Debug().Str("target", t.String()).Str("category", string(fresh.Category)).
		Str("source", string(fresh.Source)).Int("confidence", fresh.Confidence).
		Str("language", string(v.lang)).Msg("classification stored")

	res := model.ResolutionFromState(t, fresh)
	res.Language = v.lang
	res.Persisted = true
	return res, nil
}

// MarkHuman labels a target by hand. This is the only path that sets
// source=human. A human-labelled playlist is then linked and propagated.
func (r *Resolver) MarkHuman(ctx context.Context, t model.Target, category model.Category, notes string) (model.MarkResult, error) {
	res, err := r.mark(ctx, t, category, notes, "")
	if err != nil {
		return res, err
	}
	if t.Type != model.TargetPlaylist || r.followUp == nil {
		return res, nil
	}
	res.VideosLinked, res.VideosUpdated, err = r.followUp.AfterHumanMark(ctx, t.ID)
	if err != nil {
		res.Success = false
		res.Message = fmt.Sprintf("%s; propagation failed: %v", res.Message, err)
		return res, err
	}
	res.Message = fmt.Sprintf("%s; %d videos updated", res.Message, res.VideosUpdated)
	return res, nil
}

func (r *Resolver) mark(ctx context.Context, t model.Target, category model.Category, notes string, typ model.FeedbackType) (model.MarkResult, error) {
	cat, err := model.ParseCategory(string(category))
	if err != nil {
		return model.MarkResult{Target: t, Message: err.Error()}, err
	}

	prev, fb, err := r.store.MarkHuman(ctx, model.HumanMark{
		Target:   t,
		Category: cat,
		Notes:    notes,
		Type:     typ,
		At:       r.now(),
	})
	if err != nil {
		return model.MarkResult{Target: t, Message: err.Error()}, fmt.Errorf("mark %s as %s: %w", t, cat, err)
	}
	r.cache.Invalidate(ctx, t)
	metrics.Classifications.WithLabelValues(model.PriorityHuman.String(), string(cat)).Inc()
	metrics.Feedback.WithLabelValues(string(fb.Type)).Inc()

	r.log.Info().Str("target", t.String()).Str("category", string(cat)).
		Str("previous", string(prev.Category)).Str("previous_source", string(prev.Source)).
		Str("feedback_type", string(fb.Type)).Msg("human classification recorded")

	return model.MarkResult{
		Success:          true,
		Message:          fmt.Sprintf("%s marked as %s", t, cat),
		Target:           t,
		Category:         cat,
		PreviousCategory: prev.Category,
		PreviousSource:   prev.Source,
		FeedbackType:     fb.Type,
	}, nil
}

type propagationOutcome int

const (
	propagatedUpdated propagationOutcome = iota
	propagatedUnchanged
	propagatedProtected
	propagatedWeaker
	propagatedMissing
)

// propagateTo applies a playlist's resolution to one member video.
func (r *Resolver) propagateTo(ctx context.Context, items Items, videoID int64, pl model.Resolution, forceHuman bool) (propagationOutcome, error) {
	it, err := items.GetItem(ctx, model.VideoTarget(videoID))
	if errors.Is(err, model.ErrNotFound) {
		return propagatedMissing, nil
	}
	if err != nil {
		return 0, err
	}
	if it.State.Source == model.SourceHuman {
		return propagatedProtected, nil
	}

	humanAuthority := forceHuman && pl.PriorityLevel == model.PriorityHuman
	if !humanAuthority && !pl.PriorityLevel.AtLeast(it.State.Priority()) {
		return propagatedWeaker, nil
	}

	next := model.ClassificationState{
		Category:       pl.Category,
		Source:         model.PropagatedFrom(pl.Source),
		HumanValidated: humanAuthority,
		Confidence:     pl.Confidence,
	}
	if humanAuthority {
		next.Confidence = 100
	}
	if sameState(it.State, next) {
		return propagatedUnchanged, nil
	}

	now := r.now()
	next.Date = &now
	ok, err := items.UpdatePropagated(ctx, videoID, next)
	if err != nil {
		return 0, err
	}
	if !ok {
		return propagatedProtected, nil
	}
	return propagatedUpdated, nil
}

// resetAuto clears a non-human label so it can be recomputed or
// re-propagated.
func (r *Resolver) resetAuto(ctx context.Context, t model.Target) (bool, error) {
	ok, err := r.store.UpdateAuto(ctx, t, model.DefaultState())
	if err == nil && ok {
		r.cache.Invalidate(ctx, t)
	}
	return ok, err
}

// Preview shows what the automatic tiers decide for a text, without
// touching storage.
func (r *Resolver) Preview(ctx context.Context, title, description string) model.PreviewResult {
	v := r.evaluate(ctx, title, description)

	out := model.PreviewResult{
		Language: v.lang,
		Semantic: model.TierVerdict{
			Category:   v.semantic.Category,
			Source:     model.SourceSemantic,
			Confidence: v.semantic.Confidence,
			Abstained:  v.semantic.Abstained,
			Reason:     v.semantic.Reason,
		},
		Keyword: model.TierVerdict{
			Category:   v.keyword.Category,
			Source:     model.SourceKeyword,
			Confidence: v.keyword.Confidence,
			Abstained:  v.keyword.Abstained,
		},
		Winner: model.TierVerdict{
			Category:   v.state.Category,
			Source:     v.state.Source,
			Confidence: v.state.Confidence,
			Abstained:  v.state.Source == model.SourceNone,
		},
		Similarity: v.semantic.Similarities,
	}
	if !v.semantic.Abstained && v.semantic.Confidence < r.threshold {
		out.Semantic.Reason = fmt.Sprintf("below threshold %d", r.threshold)
	}
	return out
}
