package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/classifier"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/patterns"
)

type memRow struct {
	item     model.Item
	duration int
	isShort  bool
}

// memStore is an in-memory Store with the same write guards as the
// PostgreSQL repository. Transactions are serialized and roll back by
// restoring a copy taken at the start.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	rows      map[model.Target]*memRow
	links     map[int64][]int64
	feedback  []model.Feedback
	nextFB    int64
	failVideo int64

	// beforeAutoWrite runs ahead of the guard check in UpdateAuto.
	beforeAutoWrite func(t model.Target)
}

func newMemStore() *memStore {
	return &memStore{
		rows:  make(map[model.Target]*memRow),
		links: make(map[int64][]int64),
	}
}

// addVideo stores a regular-length video; use setDuration for Shorts.
func (s *memStore) addVideo(id, competitor int64, ytID, title string, st model.ClassificationState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := model.VideoTarget(id)
	s.rows[t] = &memRow{
		item:     model.Item{Target: t, ExternalID: ytID, CompetitorID: competitor, Title: title, State: st.Normalize()},
		duration: 300,
	}
}

func (s *memStore) addPlaylist(id, competitor int64, ytID, name string, st model.ClassificationState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := model.PlaylistTarget(id)
	s.rows[t] = &memRow{item: model.Item{Target: t, ExternalID: ytID, CompetitorID: competitor, Title: name, State: st.Normalize()}}
}

func (s *memStore) setDuration(id int64, seconds int, isShort bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.rows[model.VideoTarget(id)]
	r.duration, r.isShort = seconds, isShort
}

func (s *memStore) link(playlistID int64, videoIDs ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[playlistID] = append(s.links[playlistID], videoIDs...)
}

func (s *memStore) state(t model.Target) model.ClassificationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[t]
	if !ok {
		return model.ClassificationState{}
	}
	st := r.item.State
	st.Date = nil
	return st
}

func (s *memStore) GetItem(_ context.Context, t model.Target) (model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[t]
	if !ok {
		return model.Item{}, fmt.Errorf("%w: %s", model.ErrNotFound, t)
	}
	return r.item, nil
}

func (s *memStore) UpdateAuto(_ context.Context, t model.Target, st model.ClassificationState) (bool, error) {
	if s.beforeAutoWrite != nil {
		s.beforeAutoWrite(t)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[t]
	if !ok || r.item.State.HumanValidated {
		return false, nil
	}
	r.item.State = st.Normalize()
	return true, nil
}

func (s *memStore) UpdatePropagated(_ context.Context, videoID int64, st model.ClassificationState) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if videoID == s.failVideo {
		return false, errors.New("connection reset")
	}
	r, ok := s.rows[model.VideoTarget(videoID)]
	if !ok || r.item.State.Source == model.SourceHuman {
		return false, nil
	}
	r.item.State = st
	return true, nil
}

func (s *memStore) MarkHuman(_ context.Context, m model.HumanMark) (model.ClassificationState, model.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[m.Target]
	if !ok {
		return model.ClassificationState{}, model.Feedback{}, fmt.Errorf("%w: %s", model.ErrNotFound, m.Target)
	}
	prev := r.item.State
	at := m.At
	r.item.State = model.ClassificationState{
		Category:       m.Category,
		Source:         model.SourceHuman,
		HumanValidated: true,
		Confidence:     100,
		Date:           &at,
	}
	typ := m.Type
	if typ == "" {
		typ = model.DeriveFeedbackType(prev.Category, m.Category)
	}
	s.nextFB++
	fb := model.Feedback{
		ID:                 s.nextFB,
		Target:             m.Target,
		OriginalCategory:   prev.Category,
		CorrectedCategory:  m.Category,
		OriginalConfidence: prev.Confidence,
		Type:               typ,
		UserNotes:          m.Notes,
		CreatedAt:          at,
	}
	s.feedback = append(s.feedback, fb)
	return prev, fb, nil
}

func (s *memStore) PlaylistVideoIDs(_ context.Context, playlistID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.links[playlistID]...), nil
}

func (s *memStore) ReplacePlaylistLinks(_ context.Context, playlistID int64, videoIDs []int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[int64]bool)
	var ids []int64
	for _, id := range videoIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	s.links[playlistID] = ids
	return len(ids), nil
}

func (s *memStore) ResolveVideoIDs(_ context.Context, youtubeIDs []string) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int64
	for _, yt := range youtubeIDs {
		for t, r := range s.rows {
			if t.Type == model.TargetVideo && r.item.ExternalID == yt {
				out = append(out, t.ID)
			}
		}
	}
	return out, nil
}

func (s *memStore) CompetitorIDs(_ context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[int64]bool)
	for _, r := range s.rows {
		seen[r.item.CompetitorID] = true
	}
	return sortedKeys(seen), nil
}

func (s *memStore) CompetitorTargets(_ context.Context, competitorID int64) ([]model.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Target
	for t, r := range s.rows {
		if r.item.CompetitorID == competitorID {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: competitor %d", model.ErrNotFound, competitorID)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type == model.TargetPlaylist
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *memStore) Snapshot(_ context.Context) (model.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var snap model.Snapshot
	for t, r := range s.rows {
		if t.Type == model.TargetVideo {
			snap.Videos = append(snap.Videos, model.StoredVideo{ID: t.ID, DurationSeconds: r.duration, IsShort: r.isShort, State: r.item.State})
		} else {
			snap.Playlists = append(snap.Playlists, model.StoredPlaylist{ID: t.ID, State: r.item.State})
		}
	}
	sort.Slice(snap.Videos, func(i, j int) bool { return snap.Videos[i].ID < snap.Videos[j].ID })
	sort.Slice(snap.Playlists, func(i, j int) bool { return snap.Playlists[i].ID < snap.Playlists[j].ID })
	pls := make(map[int64]bool)
	for pl := range s.links {
		pls[pl] = true
	}
	for _, pl := range sortedKeys(pls) {
		for _, v := range s.links[pl] {
			snap.Links = append(snap.Links, model.PlaylistVideo{PlaylistID: pl, VideoID: v})
		}
	}
	return snap, nil
}

func (s *memStore) FixHumanConfidence(_ context.Context, tt model.TargetType, ids []int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range ids {
		r, ok := s.rows[model.Target{Type: tt, ID: id}]
		if ok && r.item.State.Source == model.SourceHuman && r.item.State.Confidence != 100 {
			r.item.State.Confidence = 100
			n++
		}
	}
	return n, nil
}

func (s *memStore) DeleteLinks(_ context.Context, links []model.PlaylistVideo) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range links {
		ids := s.links[l.PlaylistID]
		for i, v := range ids {
			if v == l.VideoID {
				s.links[l.PlaylistID] = append(ids[:i:i], ids[i+1:]...)
				n++
				break
			}
		}
	}
	return n, nil
}

func (s *memStore) SyncShortFlags(_ context.Context, ids []int64, threshold int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range ids {
		r, ok := s.rows[model.VideoTarget(id)]
		if !ok {
			continue
		}
		if want := model.IsShortFor(r.duration, threshold); r.isShort != want {
			r.isShort = want
			n++
		}
	}
	return n, nil
}

func (s *memStore) ClassificationCounts(_ context.Context) ([]model.SourceRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	type key struct {
		tt  model.TargetType
		src model.Source
	}
	agg := make(map[key]*model.SourceRow)
	var order []key
	for t, r := range s.rows {
		k := key{t.Type, r.item.State.Source}
		row := agg[k]
		if row == nil {
			row = &model.SourceRow{Type: t.Type, Source: k.src}
			agg[k] = row
			order = append(order, k)
		}
		row.Count++
		if r.item.State.HumanValidated {
			row.HumanValidated++
		}
	}
	out := make([]model.SourceRow, 0, len(order))
	for _, k := range order {
		out = append(out, *agg[k])
	}
	return out, nil
}

func (s *memStore) ListFeedback(_ context.Context) ([]model.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Feedback(nil), s.feedback...), nil
}

func (s *memStore) InTx(ctx context.Context, fn func(Items) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	rows := make(map[model.Target]*memRow, len(s.rows))
	for t, r := range s.rows {
		c := *r
		rows[t] = &c
	}
	links := make(map[int64][]int64, len(s.links))
	for pl, ids := range s.links {
		links[pl] = append([]int64(nil), ids...)
	}
	fbLen, nextFB := len(s.feedback), s.nextFB
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.rows, s.links = rows, links
		s.feedback, s.nextFB = s.feedback[:fbLen], nextFB
		s.mu.Unlock()
		return err
	}
	return nil
}

// memPatterns is an in-memory pattern repository with ids, usable both by
// the pattern store and by integrity repair.
type memPatterns struct {
	mu       sync.Mutex
	rows     []model.Pattern
	nextID   int64
	writeErr error
}

func (r *memPatterns) find(text string, cat model.Category, lang model.Language) int {
	for i, p := range r.rows {
		if p.Text == text && p.Category == cat && p.Language == lang {
			return i
		}
	}
	return -1
}

func (r *memPatterns) add(p model.Pattern) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p.ID = r.nextID
	r.rows = append(r.rows, p)
	return p.ID
}

func (r *memPatterns) get(text string, cat model.Category, lang model.Language) (model.Pattern, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.find(text, cat, lang); i >= 0 {
		return r.rows[i], true
	}
	return model.Pattern{}, false
}

func (r *memPatterns) ListPatterns(_ context.Context, lang model.Language) ([]model.Pattern, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Pattern
	for _, p := range r.rows {
		if lang == "" || p.Language == lang || p.Language == model.LanguageAll {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memPatterns) InsertPattern(_ context.Context, p model.Pattern) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return false, r.writeErr
	}
	if r.find(p.Text, p.Category, p.Language) >= 0 {
		return false, nil
	}
	r.nextID++
	p.ID = r.nextID
	r.rows = append(r.rows, p)
	return true, nil
}

func (r *memPatterns) ReinforcePattern(_ context.Context, p model.Pattern, delta float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return r.writeErr
	}
	if i := r.find(p.Text, p.Category, p.Language); i >= 0 {
		r.rows[i].Weight += delta
		r.rows[i].ReinforcementCount++
		return nil
	}
	r.nextID++
	p.ID = r.nextID
	p.ReinforcementCount = 1
	r.rows = append(r.rows, p)
	return nil
}

func (r *memPatterns) DeletePattern(_ context.Context, cat model.Category, text string, lang model.Language) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.find(text, cat, lang)
	if i < 0 {
		return false, nil
	}
	r.rows = append(r.rows[:i], r.rows[i+1:]...)
	return true, nil
}

func (r *memPatterns) MergePatterns(_ context.Context, keep int64, drop []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	gone := make(map[int64]bool, len(drop))
	for _, id := range drop {
		gone[id] = true
	}
	var w float64
	var n int
	kept := r.rows[:0]
	for _, p := range r.rows {
		if gone[p.ID] {
			w += p.Weight
			n += p.ReinforcementCount
			continue
		}
		kept = append(kept, p)
	}
	r.rows = kept
	for i := range r.rows {
		if r.rows[i].ID == keep {
			r.rows[i].Text = model.NormalizePatternText(r.rows[i].Text)
			r.rows[i].Weight += w
			r.rows[i].ReinforcementCount += n
		}
	}
	return nil
}

// stubSemantic returns a fixed verdict.
type stubSemantic struct {
	res classifier.SemanticResult
}

func (s stubSemantic) Classify(context.Context, string, string) classifier.SemanticResult {
	return s.res
}

func semanticSays(cat model.Category, confidence int) stubSemantic {
	return stubSemantic{res: classifier.SemanticResult{Category: cat, Confidence: confidence}}
}

// stubKeyword gives one category to any non-empty text.
type stubKeyword struct {
	category   model.Category
	confidence int
}

func (k stubKeyword) Classify(_ context.Context, title, description string, lang model.Language) classifier.KeywordResult {
	if title == "" && description == "" {
		return classifier.KeywordResult{Category: model.CategoryUncategorized, Language: lang, Abstained: true}
	}
	return classifier.KeywordResult{Category: k.category, Language: lang, Confidence: k.confidence}
}

type fakeLister struct {
	ids   map[string][]string
	calls int
}

func (l *fakeLister) ListPlaylistVideoIDs(_ context.Context, playlistID string) []string {
	l.calls++
	return l.ids[playlistID]
}

type recordingSink struct {
	texts []string
	err   error
}

func (s *recordingSink) AddExemplar(_ context.Context, text string, _ model.Category, _ model.Language) error {
	s.texts = append(s.texts, text)
	return s.err
}

// testStack wires the engine over in-memory storage.
// recordingCache never hits and records every invalidation, noting the
// ones issued while a memStore transaction was still open.
type recordingCache struct {
	store *memStore

	mu          sync.Mutex
	invalidated []model.Target
	duringTx    int
}

func (c *recordingCache) GetClassification(context.Context, model.Target) (model.Resolution, bool) {
	return model.Resolution{}, false
}

func (c *recordingCache) SetClassification(context.Context, model.Resolution) error { return nil }

func (c *recordingCache) Invalidate(_ context.Context, targets ...model.Target) {
	inTx := false
	if c.store != nil {
		if c.store.txMu.TryLock() {
			c.store.txMu.Unlock()
		} else {
			inTx = true
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, targets...)
	if inTx {
		c.duringTx++
	}
}

func (c *recordingCache) has(t model.Target) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, got := range c.invalidated {
		if got == t {
			return true
		}
	}
	return false
}

type testStack struct {
	store       *memStore
	patternRepo *memPatterns
	patterns    *patterns.Store
	resolver    *Resolver
	propagation *PropagationService
	feedback    *FeedbackService
}

type stackOption func(*stackConfig)

type stackConfig struct {
	semantic  SemanticTier
	keyword   KeywordTier
	lister    PlaylistLister
	exemplars ExemplarSink
	cache     *recordingCache
}

func withSemantic(s SemanticTier) stackOption  { return func(c *stackConfig) { c.semantic = s } }
func withKeyword(k KeywordTier) stackOption    { return func(c *stackConfig) { c.keyword = k } }
func withLister(l PlaylistLister) stackOption  { return func(c *stackConfig) { c.lister = l } }
func withExemplars(e ExemplarSink) stackOption { return func(c *stackConfig) { c.exemplars = e } }
func withCache(rc *recordingCache) stackOption { return func(c *stackConfig) { c.cache = rc } }

func newTestStack(t *testing.T, opts ...stackOption) *testStack {
	t.Helper()
	var cfg stackConfig
	for _, o := range opts {
		o(&cfg)
	}
	log := zerolog.Nop()
	st := &testStack{store: newMemStore(), patternRepo: &memPatterns{}}
	st.patterns = patterns.NewStore(st.patternRepo, log)
	kw := cfg.keyword
	if kw == nil {
		kw = classifier.NewKeyword(st.patterns, 0)
	}
	var cache ClassificationCache
	if cfg.cache != nil {
		cfg.cache.store = st.store
		cache = cfg.cache
	}
	st.resolver = NewResolver(st.store, cfg.semantic, kw, cache, 0, log)
	st.propagation = NewPropagationService(st.store, st.resolver, cfg.lister, cache, log)
	st.resolver.OnHumanPlaylist(st.propagation)
	st.feedback = NewFeedbackService(st.store, st.resolver, st.propagation, st.patterns, cfg.exemplars, log)
	return st
}

func human(cat model.Category) model.ClassificationState {
	return model.ClassificationState{Category: cat, Source: model.SourceHuman, HumanValidated: true, Confidence: 100}
}

func auto(cat model.Category, src model.Source, confidence int) model.ClassificationState {
	return model.ClassificationState{Category: cat, Source: src, Confidence: confidence}
}
