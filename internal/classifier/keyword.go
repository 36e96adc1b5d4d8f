// Package classifier holds the two automatic tiers: phrase matching
// against the pattern store and embedding similarity to category
// prototypes.
package classifier

import (
	"context"
	"math"
	"strings"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/langdetect"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/patterns"
)

// DefaultTitleWeight multiplies title matches relative to description ones.
const DefaultTitleWeight = 2.0

// PatternSource supplies the phrases voting for each category.
type PatternSource interface {
	Patterns(ctx context.Context, lang model.Language) map[model.Category][]patterns.Weighted
}

// KeywordResult is the keyword tier's verdict.
type KeywordResult struct {
	Category   model.Category             `json:"category"`
	Language   model.Language             `json:"language"`
	Confidence int                        `json:"confidence"`
	Scores     map[model.Category]float64 `json:"scores"`
	Abstained  bool                       `json:"abstained"`
}

type Keyword struct {
	patterns    PatternSource
	titleWeight float64
}

func NewKeyword(p PatternSource, titleWeight float64) *Keyword {
	if titleWeight <= 0 {
		titleWeight = DefaultTitleWeight
	}
	return &Keyword{patterns: p, titleWeight: titleWeight}
}

// Classify scores title and description against the patterns of lang, or
// of the detected language when lang is empty.
func (k *Keyword) Classify(ctx context.Context, title, description string, lang model.Language) KeywordResult {
	if lang == "" {
		lang = langdetect.Detect(title + " " + description)
	}
	res := KeywordResult{
		Category:  model.CategoryUncategorized,
		Language:  lang,
		Scores:    make(map[model.Category]float64, len(model.Categories)),
		Abstained: true,
	}
	if strings.TrimSpace(title) == "" && strings.TrimSpace(description) == "" {
		return res
	}

	byCat := k.patterns.Patterns(ctx, lang)
	best := 0.0
	for _, cat := range model.Categories {
		score := patterns.Score(title, byCat[cat])*k.titleWeight + patterns.Score(description, byCat[cat])
		res.Scores[cat] = score
		if score > best {
			best = score
			res.Category = cat
		}
	}
	if best <= 0 {
		return res
	}
	res.Abstained = false
	res.Confidence = keywordConfidence(best)
	return res
}

func keywordConfidence(score float64) int {
	c := int(math.Round(score))
	return min(max(c, 1), 100)
}
