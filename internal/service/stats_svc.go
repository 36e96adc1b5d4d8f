package service

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
)

// PatternLister lists stored patterns.
type PatternLister interface {
	List(ctx context.Context, lang model.Language, includeDefaults bool) ([]model.Pattern, error)
}

// ExemplarCounter counts stored human exemplars per category.
type ExemplarCounter interface {
	CountExemplars(ctx context.Context) (map[model.Category]int, error)
}

// StatsService reports how items were classified and how well the
// automatic tiers agree with humans.
type StatsService struct {
	store     Store
	patterns  PatternLister
	exemplars ExemplarCounter
}

func NewStatsService(store Store, patterns PatternLister, exemplars ExemplarCounter) *StatsService {
	return &StatsService{store: store, patterns: patterns, exemplars: exemplars}
}

// ClassificationStats counts rows per source for videos and playlists,
// strongest tier first.
func (s *StatsService) ClassificationStats(ctx context.Context) (model.ClassificationStats, error) {
	rows, err := s.store.ClassificationCounts(ctx)
	if err != nil {
		return model.ClassificationStats{}, fmt.Errorf("classification counts: %w", err)
	}
	out := model.ClassificationStats{Videos: []model.SourceCount{}, Playlists: []model.SourceCount{}}
	for _, r := range rows {
		sc := model.SourceCount{
			Source:         r.Source,
			Count:          r.Count,
			HumanValidated: r.HumanValidated,
			PriorityLevel:  r.Source.Priority(),
		}
		if r.Type == model.TargetPlaylist {
			out.Playlists = append(out.Playlists, sc)
		} else {
			out.Videos = append(out.Videos, sc)
		}
	}
	for _, list := range [][]model.SourceCount{out.Videos, out.Playlists} {
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].PriorityLevel != list[j].PriorityLevel {
				return list[i].PriorityLevel.Stronger(list[j].PriorityLevel)
			}
			return list[i].Count > list[j].Count
		})
	}
	return out, nil
}

// LearningStats summarises the feedback log. Accuracy is the share of
// feedback where the stored label was already right.
func (s *StatsService) LearningStats(ctx context.Context) (model.LearningStats, error) {
	fb, err := s.store.ListFeedback(ctx)
	if err != nil {
		return model.LearningStats{}, fmt.Errorf("list feedback: %w", err)
	}
	out := summarizeFeedback(fb)

	if s.patterns != nil {
		stored, err := s.patterns.List(ctx, "", false)
		if err != nil {
			return out, err
		}
		for _, p := range stored {
			switch p.Source {
			case model.PatternLearned:
				out.LearnedPatterns++
			case model.PatternCustom:
				out.CustomPatterns++
			}
		}
	}
	if s.exemplars != nil {
		if out.HumanExemplars, err = s.exemplars.CountExemplars(ctx); err != nil {
			return out, err
		}
	}
	return out, nil
}

func summarizeFeedback(fb []model.Feedback) model.LearningStats {
	out := model.LearningStats{ByCategory: []model.CategoryAccuracy{}}
	per := make(map[model.Category]*model.CategoryAccuracy)
	correct := 0
	for _, f := range fb {
		out.TotalFeedback++
		switch f.Type {
		case model.FeedbackCorrection:
			out.Corrections++
		case model.FeedbackValidation:
			out.Validations++
		}
		c := per[f.CorrectedCategory]
		if c == nil {
			c = &model.CategoryAccuracy{Category: f.CorrectedCategory}
			per[f.CorrectedCategory] = c
		}
		c.Count++
		if f.OriginalCategory == f.CorrectedCategory {
			c.Correct++
			correct++
		}
	}
	if out.TotalFeedback > 0 {
		out.Accuracy = percent(correct, out.TotalFeedback)
	}
	for _, cat := range model.Categories {
		if c := per[cat]; c != nil {
			c.Accuracy = percent(c.Correct, c.Count)
			out.ByCategory = append(out.ByCategory, *c)
		}
	}
	return out
}

func percent(n, total int) float64 {
	return math.Round(float64(n)/float64(total)*1000) / 10
}
