package model

import (
	"strings"
	"time"
)

// PatternSource says where a keyword pattern came from.
type PatternSource string

const (
	PatternDefault PatternSource = "default"
	PatternCustom  PatternSource = "custom"
	PatternLearned PatternSource = "learned"
)

// Pattern is a keyword phrase that votes for a category.
type Pattern struct {
	ID                 int64         `json:"id,omitempty"`
	Text               string        `json:"pattern"`
	Category           Category      `json:"category"`
	Language           Language      `json:"language"`
	Source             PatternSource `json:"source"`
	Weight             float64       `json:"weight"`
	ReinforcementCount int           `json:"reinforcementCount"`
	LastReinforced     *time.Time    `json:"lastReinforced,omitempty"`
}

// NormalizePatternText lower-cases a pattern and collapses inner
// whitespace so equivalent phrases share one store row.
func NormalizePatternText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// WordCount is the intrinsic weight of a phrase.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
