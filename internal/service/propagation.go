package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/metrics"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
)

// PlaylistLister lists the YouTube video ids of a playlist. Failures come
// back as an empty list.
type PlaylistLister interface {
	ListPlaylistVideoIDs(ctx context.Context, playlistID string) []string
}

// PropagationService pushes playlist labels down to member videos.
type PropagationService struct {
	store    Store
	resolver *Resolver
	lister   PlaylistLister
	cache    ClassificationCache
	log      zerolog.Logger
}

func NewPropagationService(store Store, resolver *Resolver, lister PlaylistLister, cache ClassificationCache, logger zerolog.Logger) *PropagationService {
	return &PropagationService{
		store:    store,
		resolver: resolver,
		lister:   lister,
		cache:    cacheOrNoop(cache),
		log:      logger.With().Str("component", "propagation").Logger(),
	}
}

// Propagate applies a playlist's category to its member videos in one
// transaction. Directly human-labelled videos are never touched; other
// videos only take the label from an equal or stronger playlist, unless
// forceHumanAuthority is set and the playlist was labelled by hand.
func (p *PropagationService) Propagate(ctx context.Context, playlistID int64, forceHumanAuthority bool) (model.PropagationResult, error) {
	res := model.PropagationResult{PlaylistID: playlistID}

	pl, err := p.resolver.GetPriority(ctx, model.PlaylistTarget(playlistID))
	if err != nil {
		res.Message = err.Error()
		return res, err
	}
	res.Category, res.Source = pl.Category, pl.Source
	if pl.Category == model.CategoryUncategorized {
		res.Success = true
		res.Message = "playlist is uncategorized, nothing to propagate"
		return res, nil
	}

	var counts model.PropagationResult
	var updated []model.Target
	err = p.store.InTx(ctx, func(tx Items) error {
		counts, updated = model.PropagationResult{}, nil

		ids, err := tx.PlaylistVideoIDs(ctx, playlistID)
		if err != nil {
			return err
		}
		counts.Total = len(ids)
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := p.resolver.propagateTo(ctx, tx, id, pl, forceHumanAuthority)
			if err != nil {
				return fmt.Errorf("video %d: %w", id, err)
			}
			switch out {
			case propagatedUpdated:
				counts.Updated++
				updated = append(updated, model.VideoTarget(id))
			case propagatedUnchanged:
				counts.Unchanged++
			case propagatedProtected:
				counts.SkippedProtected++
			case propagatedWeaker:
				counts.SkippedWeaker++
			}
		}
		return nil
	})
	if err != nil {
		res.Message = fmt.Sprintf("propagation rolled back: %v", err)
		return res, fmt.Errorf("propagate playlist %d: %w", playlistID, err)
	}

	p.cache.Invalidate(ctx, updated...)
	metrics.PropagationUpdates.WithLabelValues("updated").Add(float64(counts.Updated))
	metrics.PropagationUpdates.WithLabelValues("protected").Add(float64(counts.SkippedProtected))
	metrics.PropagationUpdates.WithLabelValues("weaker").Add(float64(counts.SkippedWeaker))

	res.Total = counts.Total
	res.Updated = counts.Updated
	res.Unchanged = counts.Unchanged
	res.SkippedProtected = counts.SkippedProtected
	res.SkippedWeaker = counts.SkippedWeaker
	res.Success = true
	res.Message = fmt.Sprintf("%d of %d videos updated (%d protected, %d weaker)",
		res.Updated, res.Total, res.SkippedProtected, res.SkippedWeaker)

	p.log.Info().Int64("playlist_id", playlistID).Str("category", string(pl.Category)).
		Str("source", string(pl.Source)).Bool("force_human", forceHumanAuthority).
		Int("updated", res.Updated).Int("total", res.Total).
		Int("skipped_protected", res.SkippedProtected).Int("skipped_weaker", res.SkippedWeaker).
		Msg("playlist propagated")
	return res, nil
}

// AutoLink fills an empty playlist's member set from YouTube. It returns
// the number of links written; a playlist that already has links, or an
// unreachable listing, yields 0.
func (p *PropagationService) AutoLink(ctx context.Context, playlistID int64) (int, error) {
	existing, err := p.store.PlaylistVideoIDs(ctx, playlistID)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	it, err := p.store.GetItem(ctx, model.PlaylistTarget(playlistID))
	if err != nil {
		return 0, err
	}
	if p.lister == nil || it.ExternalID == "" {
		p.log.Warn().Int64("playlist_id", playlistID).Msg("no playlist lister, propagating over existing links")
		return 0, nil
	}

	ytIDs := p.lister.ListPlaylistVideoIDs(ctx, it.ExternalID)
	if len(ytIDs) == 0 {
		// Stale or empty links are kept and propagation still runs.
		p.log.Warn().Int64("playlist_id", playlistID).Str("youtube_playlist", it.ExternalID).
			Msg("playlist listing returned no videos, propagating over existing links")
		return 0, nil
	}
	local, err := p.store.ResolveVideoIDs(ctx, ytIDs)
	if err != nil {
		return 0, err
	}
	if len(local) == 0 {
		p.log.Info().Int64("playlist_id", playlistID).Int("listed", len(ytIDs)).
			Msg("none of the listed videos are imported")
		return 0, nil
	}
	n, err := p.store.ReplacePlaylistLinks(ctx, playlistID, local)
	if err != nil {
		return 0, fmt.Errorf("link playlist %d: %w", playlistID, err)
	}
	p.log.Info().Int64("playlist_id", playlistID).Int("listed", len(ytIDs)).Int("linked", n).
		Msg("playlist auto-linked")
	return n, nil
}

// AfterHumanMark links a freshly human-labelled playlist and propagates it
// with human authority.
func (p *PropagationService) AfterHumanMark(ctx context.Context, playlistID int64) (int, int, error) {
	linked, err := p.AutoLink(ctx, playlistID)
	if err != nil {
		p.log.Warn().Err(err).Int64("playlist_id", playlistID).Msg("auto-link failed")
	}
	res, err := p.Propagate(ctx, playlistID, true)
	return linked, res.Updated, err
}
