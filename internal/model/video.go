package model

import "time"

// DefaultShortsThreshold is the duration at or below which a video is a Short.
const DefaultShortsThreshold = 60

// Competitor is a tracked YouTube channel.
type Competitor struct {
	ID         int64  `json:"id"`
	ChannelID  string `json:"channelId"`
	ChannelURL string `json:"channelUrl"`
	Name       string `json:"name"`
	Language   string `json:"language,omitempty"`
	Country    string `json:"country,omitempty"`
}

// Video is a competitor video with its classification state.
type Video struct {
	ID              int64      `json:"id"`
	CompetitorID    int64      `json:"competitorId"`
	VideoID         string     `json:"videoId"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	PublishedAt     *time.Time `json:"publishedAt,omitempty"`
	DurationSeconds int        `json:"durationSeconds"`
	ViewCount       int64      `json:"viewCount"`
	IsShort         bool       `json:"isShort"`
	ClassificationState
}

// IsShortFor reports whether a duration makes a video a Short under the
// given threshold in seconds. A zero duration counts as short.
func IsShortFor(durationSeconds, threshold int) bool {
	if threshold <= 0 {
		threshold = DefaultShortsThreshold
	}
	return durationSeconds <= threshold
}

// Playlist is a competitor playlist with its classification state.
// HumanVerified mirrors IsHumanValidated.
type Playlist struct {
	ID            int64  `json:"id"`
	CompetitorID  int64  `json:"competitorId"`
	PlaylistID    string `json:"playlistId"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	HumanVerified bool   `json:"humanVerified"`
	ClassificationState
}

// PlaylistVideo links a playlist to one of its member videos.
type PlaylistVideo struct {
	PlaylistID int64 `json:"playlistId"`
	VideoID    int64 `json:"videoId"`
}
