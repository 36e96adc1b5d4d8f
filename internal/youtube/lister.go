// Package youtube lists playlist members so a human-labelled playlist can
// be linked to the videos already imported for its competitor.
package youtube

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds one playlist listing.
const DefaultTimeout = 20 * time.Second

// PlaylistClient is the slice of *youtube.Client the lister needs.
type PlaylistClient interface {
	GetPlaylistContext(ctx context.Context, url string) (*youtube.Playlist, error)
}

// Lister resolves a YouTube playlist id to its video ids.
type Lister struct {
	client  PlaylistClient
	timeout time.Duration
	log     zerolog.Logger
}

// NewLister builds a lister on a kkdai/youtube web client.
func NewLister(timeout time.Duration, logger zerolog.Logger) *Lister {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return NewListerWithClient(&youtube.Client{HTTPClient: &http.Client{Timeout: timeout}}, timeout, logger)
}

func NewListerWithClient(client PlaylistClient, timeout time.Duration, logger zerolog.Logger) *Lister {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Lister{
		client:  client,
		timeout: timeout,
		log:     logger.With().Str("component", "youtube").Logger(),
	}
}

// PlaylistURL turns a bare playlist id into a watchable URL. URLs are
// returned unchanged.
func PlaylistURL(playlistID string) string {
	id := strings.TrimSpace(playlistID)
	if strings.Contains(id, "://") {
		return id
	}
	return "https://www.youtube.com/playlist?list=" + id
}

// ListPlaylistVideoIDs returns the playlist's video ids in playlist order,
// without duplicates. Any failure is logged and yields an empty list.
func (l *Lister) ListPlaylistVideoIDs(ctx context.Context, playlistID string) []string {
	if strings.TrimSpace(playlistID) == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	start := time.Now()
	pl, err := l.client.GetPlaylistContext(ctx, PlaylistURL(playlistID))
	if err != nil {
		l.log.Warn().Err(err).Str("playlist", playlistID).Msg("playlist listing failed")
		return nil
	}
	if pl == nil {
		return nil
	}

	seen := make(map[string]struct{}, len(pl.Videos))
	ids := make([]string, 0, len(pl.Videos))
	for _, e := range pl.Videos {
		if e == nil || e.ID == "" {
			continue
		}
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		ids = append(ids, e.ID)
	}
	l.log.Debug().Str("playlist", playlistID).Int("videos", len(ids)).
		Dur("elapsed", time.Since(start)).Msg("playlist listed")
	return ids
}
