package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/metrics"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
)

// PatternMaintainer is the pattern storage used by integrity repair.
type PatternMaintainer interface {
	ListPatterns(ctx context.Context, lang model.Language) ([]model.Pattern, error)
	MergePatterns(ctx context.Context, keep int64, drop []int64) error
}

var issueCodes = []model.IssueCode{
	model.IssueHumanFlagMismatch,
	model.IssueHumanConfidence,
	model.IssuePropagationMismatch,
	model.IssueDuplicatePattern,
	model.IssueOrphanLink,
	model.IssueShortFlag,
}

// IntegrityService verifies and repairs the classification invariants.
type IntegrityService struct {
	store           Store
	patterns        PatternMaintainer
	resolver        *Resolver
	propagation     *PropagationService
	shortsThreshold int
	log             zerolog.Logger
}

func NewIntegrityService(store Store, patterns PatternMaintainer, resolver *Resolver, propagation *PropagationService, shortsThreshold int, logger zerolog.Logger) *IntegrityService {
	if shortsThreshold <= 0 {
		shortsThreshold = model.DefaultShortsThreshold
	}
	return &IntegrityService{
		store:           store,
		patterns:        patterns,
		resolver:        resolver,
		propagation:     propagation,
		shortsThreshold: shortsThreshold,
		log:             logger.With().Str("component", "integrity").Logger(),
	}
}

func (s *IntegrityService) snapshot(ctx context.Context) (model.Snapshot, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return snap, fmt.Errorf("read snapshot: %w", err)
	}
	if s.patterns != nil {
		if snap.Patterns, err = s.patterns.ListPatterns(ctx, ""); err != nil {
			return snap, fmt.Errorf("read patterns: %w", err)
		}
	}
	return snap, nil
}

// VerifyIntegrity runs every check. Issues are always logged and exported
// as gauges.
func (s *IntegrityService) VerifyIntegrity(ctx context.Context) (model.IntegrityReport, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return model.IntegrityReport{Message: err.Error()}, err
	}
	issues := CheckIntegrity(snap, s.shortsThreshold)

	for _, code := range issueCodes {
		metrics.IntegrityIssues.WithLabelValues(string(code)).Set(0)
	}
	for _, is := range issues {
		metrics.IntegrityIssues.WithLabelValues(string(is.Code)).Add(float64(len(is.IDs)))
		s.log.Error().Str("code", string(is.Code)).Str("severity", string(is.Severity)).
			Str("table", is.Table).Int("rows", len(is.IDs)).Ints64("ids", is.IDs).
			Msg(is.Description)
	}

	report := model.IntegrityReport{
		Success:   true,
		IsHealthy: len(issues) == 0,
		Issues:    issues,
		CheckedAt: time.Now().UTC(),
	}
	if report.IsHealthy {
		report.Message = "no integrity issues"
	} else {
		report.Message = fmt.Sprintf("%d integrity issues found", len(issues))
	}
	return report, nil
}

// AutoFix repairs what it safely can. FixSafe covers H2, D1, O1 and S1;
// FixFull also re-propagates playlists behind non-human P1 mismatches.
// Human-validated rows are never changed beyond the H2 confidence fix.
func (s *IntegrityService) AutoFix(ctx context.Context, level model.FixLevel) (model.FixResult, error) {
	if level == "" {
		level = model.FixSafe
	}
	res := model.FixResult{Level: level, Fixed: make(map[model.IssueCode]int)}
	if level != model.FixSafe && level != model.FixFull {
		err := fmt.Errorf("%w: fix level %q (must be safe or full)", model.ErrValidation, level)
		res.Message = err.Error()
		return res, err
	}

	snap, err := s.snapshot(ctx)
	if err != nil {
		res.Message = err.Error()
		return res, err
	}

	if err := s.fixHumanConfidence(ctx, snap, res.Fixed); err != nil {
		return s.fixFailed(res, model.IssueHumanConfidence, err)
	}
	if err := s.fixDuplicatePatterns(ctx, snap, res.Fixed); err != nil {
		return s.fixFailed(res, model.IssueDuplicatePattern, err)
	}
	if n, err := s.store.DeleteLinks(ctx, orphanLinks(snap)); err != nil {
		return s.fixFailed(res, model.IssueOrphanLink, err)
	} else if n > 0 {
		res.Fixed[model.IssueOrphanLink] = n
	}
	if ids := shortFlagMismatches(snap, s.shortsThreshold); len(ids) > 0 {
		n, err := s.store.SyncShortFlags(ctx, ids, s.shortsThreshold)
		if err != nil {
			return s.fixFailed(res, model.IssueShortFlag, err)
		}
		s.invalidate(ctx, model.TargetVideo, ids)
		res.Fixed[model.IssueShortFlag] = n
	}
	if level == model.FixFull {
		if err := s.fixPropagation(ctx, snap, res.Fixed); err != nil {
			return s.fixFailed(res, model.IssuePropagationMismatch, err)
		}
	}

	res.Remaining, err = s.VerifyIntegrity(ctx)
	if err != nil {
		res.Message = err.Error()
		return res, err
	}
	res.Success = true
	total := 0
	for _, n := range res.Fixed {
		total += n
	}
	res.Message = fmt.Sprintf("%d rows repaired, %d issues remaining", total, len(res.Remaining.Issues))
	s.log.Info().Str("level", string(level)).Int("repaired", total).
		Int("remaining", len(res.Remaining.Issues)).Msg("integrity auto-fix complete")
	return res, nil
}

func (s *IntegrityService) fixFailed(res model.FixResult, code model.IssueCode, err error) (model.FixResult, error) {
	err = fmt.Errorf("fix %s: %w", code, err)
	res.Message = err.Error()
	return res, err
}

func (s *IntegrityService) fixHumanConfidence(ctx context.Context, snap model.Snapshot, fixed map[model.IssueCode]int) error {
	var videos, playlists []int64
	for _, v := range snap.Videos {
		if humanConfidenceWrong(v.State) {
			videos = append(videos, v.ID)
		}
	}
	for _, p := range snap.Playlists {
		if humanConfidenceWrong(p.State) {
			playlists = append(playlists, p.ID)
		}
	}
	for _, batch := range []struct {
		t   model.TargetType
		ids []int64
	}{{model.TargetVideo, videos}, {model.TargetPlaylist, playlists}} {
		if len(batch.ids) == 0 {
			continue
		}
		n, err := s.store.FixHumanConfidence(ctx, batch.t, batch.ids)
		if err != nil {
			return err
		}
		s.invalidate(ctx, batch.t, batch.ids)
		fixed[model.IssueHumanConfidence] += n
	}
	return nil
}

// invalidate drops cached classifications of repaired rows.
func (s *IntegrityService) invalidate(ctx context.Context, typ model.TargetType, ids []int64) {
	if s.resolver == nil || len(ids) == 0 {
		return
	}
	targets := make([]model.Target, len(ids))
	for i, id := range ids {
		targets[i] = model.Target{Type: typ, ID: id}
	}
	s.resolver.cache.Invalidate(ctx, targets...)
}

func (s *IntegrityService) fixDuplicatePatterns(ctx context.Context, snap model.Snapshot, fixed map[model.IssueCode]int) error {
	groups := duplicatePatternGroups(snap.Patterns)
	if len(groups) == 0 {
		return nil
	}
	if s.patterns == nil {
		return fmt.Errorf("%w: no pattern repository configured", model.ErrPatternStore)
	}
	for _, ids := range groups {
		if err := s.patterns.MergePatterns(ctx, ids[0], ids[1:]); err != nil {
			return err
		}
		fixed[model.IssueDuplicatePattern] += len(ids) - 1
	}
	return nil
}

// fixPropagation clears each non-human mismatched video and propagates
// its playlists again.
func (s *IntegrityService) fixPropagation(ctx context.Context, snap model.Snapshot, fixed map[model.IssueCode]int) error {
	if s.propagation == nil || s.resolver == nil {
		return nil
	}
	owners := videoOwners(snap)
	replay := make(map[int64]bool)
	for _, v := range propagationMismatches(snap) {
		if v.State.HumanValidated {
			continue
		}
		ok, err := s.resolver.resetAuto(ctx, model.VideoTarget(v.ID))
		if err != nil {
			return err
		}
		if ok {
			fixed[model.IssuePropagationMismatch]++
		}
		for _, pl := range owners[v.ID] {
			replay[pl.ID] = true
		}
	}

	ids := make([]int64, 0, len(replay))
	for id := range replay {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if _, err := s.propagation.Propagate(ctx, id, false); err != nil {
			return err
		}
	}
	return nil
}

// CheckIntegrity runs every check over a snapshot.
func CheckIntegrity(snap model.Snapshot, shortsThreshold int) []model.IntegrityIssue {
	var issues []model.IntegrityIssue
	add := func(is model.IntegrityIssue) {
		if len(is.IDs) > 0 {
			issues = append(issues, is)
		}
	}

	var videoFlag, playlistFlag, videoConf, playlistConf []int64
	for _, v := range snap.Videos {
		if humanFlagWrong(v.State) {
			videoFlag = append(videoFlag, v.ID)
		}
		if humanConfidenceWrong(v.State) {
			videoConf = append(videoConf, v.ID)
		}
	}
	for _, p := range snap.Playlists {
		if humanFlagWrong(p.State) {
			playlistFlag = append(playlistFlag, p.ID)
		}
		if humanConfidenceWrong(p.State) {
			playlistConf = append(playlistConf, p.ID)
		}
	}
	const flagDesc = "is_human_validated disagrees with classification_source"
	const confDesc = "human classification without confidence 100"
	add(model.IntegrityIssue{Code: model.IssueHumanFlagMismatch, Severity: model.SeverityCritical, Table: "video", Description: flagDesc, IDs: videoFlag})
	add(model.IntegrityIssue{Code: model.IssueHumanFlagMismatch, Severity: model.SeverityCritical, Table: "playlist", Description: flagDesc, IDs: playlistFlag})
	add(model.IntegrityIssue{Code: model.IssueHumanConfidence, Severity: model.SeverityHigh, Table: "video", Description: confDesc, IDs: videoConf, AutoFixable: true})
	add(model.IntegrityIssue{Code: model.IssueHumanConfidence, Severity: model.SeverityHigh, Table: "playlist", Description: confDesc, IDs: playlistConf, AutoFixable: true})

	var mismatched []int64
	fixable := false
	for _, v := range propagationMismatches(snap) {
		mismatched = append(mismatched, v.ID)
		fixable = fixable || !v.State.HumanValidated
	}
	add(model.IntegrityIssue{
		Code:        model.IssuePropagationMismatch,
		Severity:    model.SeverityMedium,
		Table:       "video",
		Description: "propagated label does not match any owning playlist",
		IDs:         mismatched,
		AutoFixable: fixable,
	})

	var dup []int64
	for _, ids := range duplicatePatternGroups(snap.Patterns) {
		dup = append(dup, ids...)
	}
	add(model.IntegrityIssue{
		Code:        model.IssueDuplicatePattern,
		Severity:    model.SeverityLow,
		Table:       "pattern",
		Description: "several rows for one (pattern, category, language)",
		IDs:         dup,
		AutoFixable: true,
	})

	orphanPlaylists := make(map[int64]bool)
	for _, l := range orphanLinks(snap) {
		orphanPlaylists[l.PlaylistID] = true
	}
	add(model.IntegrityIssue{
		Code:        model.IssueOrphanLink,
		Severity:    model.SeverityMedium,
		Table:       "playlist_video",
		Description: "links to a missing playlist or video (ids are playlist ids)",
		IDs:         sortedKeys(orphanPlaylists),
		AutoFixable: true,
	})

	add(model.IntegrityIssue{
		Code:        model.IssueShortFlag,
		Severity:    model.SeverityLow,
		Table:       "video",
		Description: fmt.Sprintf("is_short inconsistent with duration (threshold %ds)", shortsThreshold),
		IDs:         shortFlagMismatches(snap, shortsThreshold),
		AutoFixable: true,
	})
	return issues
}

func humanFlagWrong(st model.ClassificationState) bool {
	if st.Source == model.SourceHuman {
		return !st.HumanValidated
	}
	return st.HumanValidated && st.Source != model.SourcePropagatedHuman
}

func humanConfidenceWrong(st model.ClassificationState) bool {
	return st.Source == model.SourceHuman && st.Confidence != 100
}

func videoOwners(snap model.Snapshot) map[int64][]model.StoredPlaylist {
	byID := make(map[int64]model.StoredPlaylist, len(snap.Playlists))
	for _, p := range snap.Playlists {
		byID[p.ID] = p
	}
	owners := make(map[int64][]model.StoredPlaylist)
	for _, l := range snap.Links {
		if p, ok := byID[l.PlaylistID]; ok {
			owners[l.VideoID] = append(owners[l.VideoID], p)
		}
	}
	return owners
}

// propagationMismatches lists propagated videos that no owning playlist
// explains: none has the same category with a matching source tier.
func propagationMismatches(snap model.Snapshot) []model.StoredVideo {
	owners := videoOwners(snap)
	var out []model.StoredVideo
	for _, v := range snap.Videos {
		if !v.State.Source.IsPropagated() {
			continue
		}
		explained := false
		for _, p := range owners[v.ID] {
			if p.State.Category == v.State.Category && model.PropagatedFrom(p.State.Source) == v.State.Source {
				explained = true
				break
			}
		}
		if !explained {
			out = append(out, v)
		}
	}
	return out
}

// duplicatePatternGroups returns ids per duplicated triple, lowest first.
func duplicatePatternGroups(list []model.Pattern) [][]int64 {
	type key struct {
		text string
		cat  model.Category
		lang model.Language
	}
	groups := make(map[key][]int64)
	var order []key
	for _, p := range list {
		k := key{model.NormalizePatternText(p.Text), p.Category, p.Language}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], p.ID)
	}
	var out [][]int64
	for _, k := range order {
		ids := groups[k]
		if len(ids) < 2 {
			continue
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		out = append(out, ids)
	}
	return out
}

func orphanLinks(snap model.Snapshot) []model.PlaylistVideo {
	videos := make(map[int64]bool, len(snap.Videos))
	for _, v := range snap.Videos {
		videos[v.ID] = true
	}
	playlists := make(map[int64]bool, len(snap.Playlists))
	for _, p := range snap.Playlists {
		playlists[p.ID] = true
	}
	var out []model.PlaylistVideo
	for _, l := range snap.Links {
		if !videos[l.VideoID] || !playlists[l.PlaylistID] {
			out = append(out, l)
		}
	}
	return out
}

func shortFlagMismatches(snap model.Snapshot, threshold int) []int64 {
	var out []int64
	for _, v := range snap.Videos {
		if v.IsShort != model.IsShortFor(v.DurationSeconds, threshold) {
			out = append(out, v.ID)
		}
	}
	return out
}

func sortedKeys(m map[int64]bool) []int64 {
	out := make([]int64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
