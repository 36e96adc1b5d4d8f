package model

import (
	"fmt"
	"strings"
	"time"
)

// FeedbackType classifies a human feedback event.
type FeedbackType string

const (
	FeedbackCorrection FeedbackType = "correction"
	FeedbackValidation FeedbackType = "validation"
	FeedbackUncertain  FeedbackType = "uncertain"
)

// ParseFeedbackType validates a feedback type, defaulting to correction.
func ParseFeedbackType(s string) (FeedbackType, error) {
	switch FeedbackType(strings.ToLower(strings.TrimSpace(s))) {
	case "", FeedbackCorrection:
		return FeedbackCorrection, nil
	case FeedbackValidation:
		return FeedbackValidation, nil
	case FeedbackUncertain:
		return FeedbackUncertain, nil
	}
	return "", fmt.Errorf("%w: invalid feedback type %q", ErrValidation, s)
}

// Feedback is an append-only record of a human decision.
type Feedback struct {
	ID                 int64        `json:"id,omitempty"`
	Target             Target       `json:"target"`
	OriginalCategory   Category     `json:"originalCategory"`
	CorrectedCategory  Category     `json:"correctedCategory"`
	OriginalConfidence int          `json:"originalConfidence"`
	Type               FeedbackType `json:"feedbackType"`
	UserNotes          string       `json:"userNotes,omitempty"`
	CreatedAt          time.Time    `json:"createdAt"`
}

// SemanticExemplar is a labelled text feeding a semantic prototype.
type SemanticExemplar struct {
	ID        int64     `json:"id,omitempty"`
	Category  Category  `json:"category"`
	Language  Language  `json:"language"`
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	Embedding []float32 `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// DeriveFeedbackType is validation when a human label confirms the stored
// one and correction otherwise.
func DeriveFeedbackType(previous, next Category) FeedbackType {
	if previous == next {
		return FeedbackValidation
	}
	return FeedbackCorrection
}
