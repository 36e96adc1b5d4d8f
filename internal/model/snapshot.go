package model

import "time"

// HumanMark asks for a target to be labelled by hand. An empty Type is
// derived from the stored label: validation when it already matches,
// correction otherwise.
type HumanMark struct {
	Target   Target
	Category Category
	Notes    string
	Type     FeedbackType
	At       time.Time
}

// StoredVideo is the slice of a video row the integrity checks look at.
type StoredVideo struct {
	ID              int64
	DurationSeconds int
	IsShort         bool
	State           ClassificationState
}

// StoredPlaylist is the slice of a playlist row the integrity checks look at.
type StoredPlaylist struct {
	ID    int64
	State ClassificationState
}

// Snapshot is a consistent read of everything verify_integrity inspects.
type Snapshot struct {
	Videos    []StoredVideo
	Playlists []StoredPlaylist
	Links     []PlaylistVideo
	Patterns  []Pattern
}

// SourceRow counts the rows of one target type decided by one source.
type SourceRow struct {
	Type           TargetType
	Source         Source
	Count          int
	HumanValidated int
}
