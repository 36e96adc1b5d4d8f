package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Category is one of the strategic content categories.
type Category string

const (
	CategoryHero          Category = "hero"
	CategoryHub           Category = "hub"
	CategoryHelp          Category = "help"
	CategoryUncategorized Category = "uncategorized"
)

// Categories lists the assignable categories in tie-break order: when two
// categories score the same, the one listed first wins.
var Categories = []Category{CategoryHelp, CategoryHub, CategoryHero}

// ParseCategory validates an assignable category (hero, hub or help).
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case CategoryHero, CategoryHub, CategoryHelp:
		return c, nil
	}
	return "", fmt.Errorf("%w: invalid category %q (must be hero, hub or help)", ErrValidation, s)
}

// Source records which authority decided an item's category.
type Source string

const (
	SourceHuman              Source = "human"
	SourceSemantic           Source = "semantic"
	SourceKeyword            Source = "keyword"
	SourcePropagatedHuman    Source = "propagated_from_human_playlist"
	SourcePropagatedSemantic Source = "propagated_from_semantic_playlist"
	SourcePropagatedKeyword  Source = "propagated_from_keyword_playlist"
	SourceNone               Source = "none"
)

// PropagatedFrom returns the source a video receives when a playlist
// classified by s is propagated onto it.
func PropagatedFrom(s Source) Source {
	switch s.Priority() {
	case PriorityHuman:
		return SourcePropagatedHuman
	case PrioritySemantic:
		return SourcePropagatedSemantic
	case PriorityKeyword:
		return SourcePropagatedKeyword
	}
	return SourceNone
}

// IsPropagated reports whether s was inherited from a playlist.
func (s Source) IsPropagated() bool {
	switch s {
	case SourcePropagatedHuman, SourcePropagatedSemantic, SourcePropagatedKeyword:
		return true
	}
	return false
}

// Priority maps a source onto its authority tier. Propagated sources carry
// the tier of the playlist they came from.
func (s Source) Priority() Priority {
	switch s {
	case SourceHuman, SourcePropagatedHuman:
		return PriorityHuman
	case SourceSemantic, SourcePropagatedSemantic:
		return PrioritySemantic
	case SourceKeyword, SourcePropagatedKeyword:
		return PriorityKeyword
	}
	return PriorityNone
}

// Priority is an authority tier. Lower non-zero values carry more
// authority; PriorityNone is weaker than every tier.
type Priority int

const (
	PriorityNone     Priority = 0
	PriorityHuman    Priority = 1
	PrioritySemantic Priority = 2
	PriorityKeyword  Priority = 3
)

func (p Priority) rank() int {
	if p == PriorityNone {
		return 4
	}
	return int(p)
}

// AtLeast reports whether p carries equal or higher authority than other.
func (p Priority) AtLeast(other Priority) bool {
	return p.rank() <= other.rank()
}

// Stronger reports whether p carries strictly higher authority than other.
func (p Priority) Stronger(other Priority) bool {
	return p.rank() < other.rank()
}

func (p Priority) String() string {
	switch p {
	case PriorityHuman:
		return "human"
	case PrioritySemantic:
		return "semantic"
	case PriorityKeyword:
		return "keyword"
	}
	return "none"
}

// TargetType distinguishes videos from playlists.
type TargetType string

const (
	TargetVideo    TargetType = "video"
	TargetPlaylist TargetType = "playlist"
)

// Target identifies a classifiable row by its local primary key.
type Target struct {
	Type TargetType `json:"type"`
	ID   int64      `json:"id"`
}

func VideoTarget(id int64) Target    { return Target{Type: TargetVideo, ID: id} }
func PlaylistTarget(id int64) Target { return Target{Type: TargetPlaylist, ID: id} }

func (t Target) String() string {
	return string(t.Type) + ":" + strconv.FormatInt(t.ID, 10)
}

// ParseTarget parses the "video:42" form used in notifications and the CLI.
func ParseTarget(s string) (Target, error) {
	kind, id, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Target{}, fmt.Errorf("%w: target %q must look like video:<id> or playlist:<id>", ErrValidation, s)
	}
	tt, err := ParseTargetType(kind)
	if err != nil {
		return Target{}, err
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return Target{}, fmt.Errorf("%w: invalid target id %q", ErrValidation, id)
	}
	return Target{Type: tt, ID: n}, nil
}

// ParseTargetType validates a target type name.
func ParseTargetType(s string) (TargetType, error) {
	switch TargetType(strings.ToLower(strings.TrimSpace(s))) {
	case TargetVideo:
		return TargetVideo, nil
	case TargetPlaylist:
		return TargetPlaylist, nil
	}
	return "", fmt.Errorf("%w: invalid target type %q", ErrValidation, s)
}

// ClassificationState is the set of classification columns shared by
// videos and playlists.
type ClassificationState struct {
	Category       Category   `json:"category"`
	Source         Source     `json:"classificationSource"`
	HumanValidated bool       `json:"isHumanValidated"`
	Confidence     int        `json:"classificationConfidence"`
	Date           *time.Time `json:"classificationDate,omitempty"`
}

// DefaultState is the state of a freshly imported item.
func DefaultState() ClassificationState {
	return ClassificationState{Category: CategoryUncategorized, Source: SourceNone}
}

// Normalize fills missing values with the defaults.
func (s ClassificationState) Normalize() ClassificationState {
	if s.Category == "" {
		s.Category = CategoryUncategorized
	}
	if s.Source == "" {
		s.Source = SourceNone
	}
	return s
}

// Priority returns the tier of the stored state.
func (s ClassificationState) Priority() Priority {
	if s.HumanValidated {
		return PriorityHuman
	}
	if s.Category == CategoryUncategorized {
		return PriorityNone
	}
	return s.Source.Priority()
}

// Item is a classifiable row together with the text used to classify it.
type Item struct {
	Target       Target
	ExternalID   string
	CompetitorID int64
	Title        string
	Description  string
	State        ClassificationState
}

// Text is the combined text classifiers look at.
func (it Item) Text() string {
	return strings.TrimSpace(it.Title + " " + it.Description)
}

// Resolution is the outcome of resolving an item's category.
type Resolution struct {
	Target        Target     `json:"target"`
	Category      Category   `json:"category"`
	Source        Source     `json:"source"`
	Confidence    int        `json:"confidence"`
	PriorityLevel Priority   `json:"priorityLevel"`
	Language      Language   `json:"language,omitempty"`
	Date          *time.Time `json:"date,omitempty"`
	Protected     bool       `json:"protected"`
	Persisted     bool       `json:"persisted"`
}

// ResolutionFromState builds a resolution describing stored state.
func ResolutionFromState(t Target, s ClassificationState) Resolution {
	s = s.Normalize()
	return Resolution{
		Target:        t,
		Category:      s.Category,
		Source:        s.Source,
		Confidence:    s.Confidence,
		PriorityLevel: s.Priority(),
		Date:          s.Date,
		Protected:     s.Source == SourceHuman,
	}
}
