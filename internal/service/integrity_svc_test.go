package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
)

func issueIDs(issues []model.IntegrityIssue, code model.IssueCode) []int64 {
	var out []int64
	for _, is := range issues {
		if is.Code == code {
			out = append(out, is.IDs...)
		}
	}
	return out
}

func TestCheckIntegrity(t *testing.T) {
	hub := auto(model.CategoryHub, model.SourceSemantic, 80)
	healthy := model.Snapshot{
		Videos: []model.StoredVideo{
			{ID: 1, DurationSeconds: 300, State: human(model.CategoryHero)},
			{ID: 2, DurationSeconds: 40, IsShort: true, State: auto(model.CategoryHub, model.SourcePropagatedSemantic, 80)},
			{ID: 3, DurationSeconds: 0, IsShort: true, State: model.DefaultState()},
		},
		Playlists: []model.StoredPlaylist{{ID: 10, State: hub}},
		Links:     []model.PlaylistVideo{{PlaylistID: 10, VideoID: 2}},
		Patterns: []model.Pattern{
			{ID: 1, Text: "grand opening", Category: model.CategoryHero, Language: model.LanguageEN},
			{ID: 2, Text: "grand opening", Category: model.CategoryHero, Language: model.LanguageFR},
		},
	}

	tests := []struct {
		name   string
		mutate func(s *model.Snapshot)
		code   model.IssueCode
		want   []int64
	}{
		{"human source without flag", func(s *model.Snapshot) {
			s.Videos[0].State.HumanValidated = false
		}, model.IssueHumanFlagMismatch, []int64{1}},
		{"flag without human source", func(s *model.Snapshot) {
			s.Playlists[0].State.HumanValidated = true
		}, model.IssueHumanFlagMismatch, []int64{10}},
		{"human confidence below 100", func(s *model.Snapshot) {
			s.Videos[0].State.Confidence = 90
		}, model.IssueHumanConfidence, []int64{1}},
		{"propagated label nobody explains", func(s *model.Snapshot) {
			s.Playlists[0].State.Category = model.CategoryHelp
		}, model.IssuePropagationMismatch, []int64{2}},
		{"propagated tier does not match playlist", func(s *model.Snapshot) {
			s.Playlists[0].State.Source = model.SourceKeyword
		}, model.IssuePropagationMismatch, []int64{2}},
		{"duplicate pattern", func(s *model.Snapshot) {
			s.Patterns = append(s.Patterns, model.Pattern{ID: 7, Text: "Grand  Opening", Category: model.CategoryHero, Language: model.LanguageEN})
		}, model.IssueDuplicatePattern, []int64{1, 7}},
		{"link to missing video", func(s *model.Snapshot) {
			s.Links = append(s.Links, model.PlaylistVideo{PlaylistID: 10, VideoID: 99})
		}, model.IssueOrphanLink, []int64{10}},
		{"short flag disagrees with duration", func(s *model.Snapshot) {
			s.Videos[0].IsShort = true
			s.Videos[1].IsShort = false
		}, model.IssueShortFlag, []int64{1, 2}},
		{"zero duration not flagged short", func(s *model.Snapshot) {
			s.Videos[2].IsShort = false
		}, model.IssueShortFlag, []int64{3}},
		{"threshold boundary", func(s *model.Snapshot) {
			s.Videos[1].DurationSeconds = 60
			s.Videos[0].DurationSeconds = 61
		}, model.IssueShortFlag, nil},
	}

	if issues := CheckIntegrity(healthy, 60); len(issues) != 0 {
		t.Fatalf("healthy snapshot reported %+v", issues)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := healthy
			snap.Videos = append([]model.StoredVideo(nil), healthy.Videos...)
			snap.Playlists = append([]model.StoredPlaylist(nil), healthy.Playlists...)
			snap.Links = append([]model.PlaylistVideo(nil), healthy.Links...)
			snap.Patterns = append([]model.Pattern(nil), healthy.Patterns...)
			tt.mutate(&snap)

			issues := CheckIntegrity(snap, 60)
			if got := issueIDs(issues, tt.code); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("%s ids = %v, want %v (all issues %+v)", tt.code, got, tt.want, issues)
			}
		})
	}
}

// corruptStore builds the damaged database used by the repair tests.
func corruptStore(st *testStack) {
	s := st.store
	s.addVideo(1, 1, "yt1", "v1", model.ClassificationState{
		Category: model.CategoryHero, Source: model.SourceHuman, HumanValidated: true, Confidence: 80,
	})
	s.addVideo(2, 1, "yt2", "v2", model.DefaultState())
	s.setDuration(2, 45, false)
	s.addVideo(3, 1, "yt3", "v3", auto(model.CategoryHub, model.SourcePropagatedSemantic, 70))
	s.addPlaylist(5, 1, "PL5", "p5", model.DefaultState())
	s.addPlaylist(6, 1, "PL6", "p6", auto(model.CategoryHelp, model.SourceSemantic, 75))
	s.link(5, 99)
	s.link(6, 3)

	st.patternRepo.add(model.Pattern{Text: "village vacances", Category: model.CategoryHub, Language: model.LanguageFR, Source: model.PatternLearned, Weight: 2, ReinforcementCount: 1})
	st.patternRepo.add(model.Pattern{Text: "village  vacances", Category: model.CategoryHub, Language: model.LanguageFR, Source: model.PatternLearned, Weight: 1, ReinforcementCount: 1})
}

func newIntegrity(st *testStack) *IntegrityService {
	return NewIntegrityService(st.store, st.patternRepo, st.resolver, st.propagation, 60, zerolog.Nop())
}

func TestIntegrity_VerifyReportsEveryIssue(t *testing.T) {
	st := newTestStack(t)
	corruptStore(st)

	report, err := newIntegrity(st).VerifyIntegrity(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.IsHealthy {
		t.Fatal("corrupted store reported healthy")
	}
	for code, want := range map[model.IssueCode][]int64{
		model.IssueHumanConfidence:     {1},
		model.IssueShortFlag:           {2},
		model.IssueOrphanLink:          {5},
		model.IssueDuplicatePattern:    {1, 2},
		model.IssuePropagationMismatch: {3},
	} {
		if got := issueIDs(report.Issues, code); !reflect.DeepEqual(got, want) {
			t.Errorf("%s ids = %v, want %v", code, got, want)
		}
	}
}

func TestIntegrity_AutoFixSafe(t *testing.T) {
	st := newTestStack(t)
	corruptStore(st)
	ctx := context.Background()

	res, err := newIntegrity(st).AutoFix(ctx, model.FixSafe)
	if err != nil {
		t.Fatalf("AutoFix: %v", err)
	}
	want := map[model.IssueCode]int{
		model.IssueHumanConfidence:  1,
		model.IssueDuplicatePattern: 1,
		model.IssueOrphanLink:       1,
		model.IssueShortFlag:        1,
	}
	if !reflect.DeepEqual(res.Fixed, want) {
		t.Errorf("fixed = %v, want %v", res.Fixed, want)
	}
	if len(res.Remaining.Issues) != 1 || res.Remaining.Issues[0].Code != model.IssuePropagationMismatch {
		t.Errorf("remaining = %+v, want only P1", res.Remaining.Issues)
	}

	if got := st.store.state(model.VideoTarget(1)); got.Confidence != 100 || got.Category != model.CategoryHero {
		t.Errorf("video 1 = %+v, want human hero at 100", got)
	}
	p, ok := st.patternRepo.get("village vacances", model.CategoryHub, model.LanguageFR)
	if !ok || p.Weight != 3 || p.ReinforcementCount != 2 {
		t.Errorf("merged pattern = %+v, %v", p, ok)
	}
}

func TestIntegrity_AutoFixInvalidatesRepairedRows(t *testing.T) {
	cache := &recordingCache{}
	st := newTestStack(t, withCache(cache))
	corruptStore(st)

	if _, err := newIntegrity(st).AutoFix(context.Background(), model.FixSafe); err != nil {
		t.Fatalf("AutoFix: %v", err)
	}
	for _, tgt := range []model.Target{model.VideoTarget(1), model.VideoTarget(2)} {
		if !cache.has(tgt) {
			t.Errorf("%s not invalidated, got %v", tgt, cache.invalidated)
		}
	}
	if cache.has(model.VideoTarget(3)) {
		t.Errorf("untouched video 3 invalidated")
	}
}

func TestIntegrity_AutoFixFullRepropagates(t *testing.T) {
	st := newTestStack(t)
	corruptStore(st)
	ctx := context.Background()

	res, err := newIntegrity(st).AutoFix(ctx, model.FixFull)
	if err != nil {
		t.Fatalf("AutoFix: %v", err)
	}
	if !res.Remaining.IsHealthy {
		t.Errorf("remaining issues: %+v", res.Remaining.Issues)
	}
	if res.Fixed[model.IssuePropagationMismatch] != 1 {
		t.Errorf("P1 fixed = %d, want 1", res.Fixed[model.IssuePropagationMismatch])
	}
	want := auto(model.CategoryHelp, model.SourcePropagatedSemantic, 75)
	if got := st.store.state(model.VideoTarget(3)); got != want {
		t.Errorf("video 3 = %+v, want %+v", got, want)
	}
}

func TestIntegrity_HumanFlagMismatchIsNotAutoFixed(t *testing.T) {
	st := newTestStack(t)
	bad := model.ClassificationState{Category: model.CategoryHub, Source: model.SourceKeyword, HumanValidated: true, Confidence: 4}
	st.store.addVideo(1, 1, "yt1", "v1", bad)

	res, err := newIntegrity(st).AutoFix(context.Background(), model.FixFull)
	if err != nil {
		t.Fatal(err)
	}
	if got := issueIDs(res.Remaining.Issues, model.IssueHumanFlagMismatch); !reflect.DeepEqual(got, []int64{1}) {
		t.Errorf("remaining H1 = %v, want [1]", got)
	}
	if got := st.store.state(model.VideoTarget(1)); got != bad {
		t.Errorf("validated row changed to %+v", got)
	}
}

func TestIntegrity_AutoFixRejectsUnknownLevel(t *testing.T) {
	st := newTestStack(t)
	if _, err := newIntegrity(st).AutoFix(context.Background(), "aggressive"); !errors.Is(err, model.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}
