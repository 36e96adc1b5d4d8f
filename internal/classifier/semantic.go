package classifier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/metrics"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
)

// Semantic abstention reasons.
const (
	ReasonDisabled    = "disabled"
	ReasonEmptyText   = "empty_text"
	ReasonTimeout     = "timeout"
	ReasonUnavailable = "unavailable"
	ReasonNotReady    = "not_ready"
)

// Cosine similarities are remapped linearly from [simFloor, simCeil] onto
// confidence [0, 100].
const (
	simFloor = 0.2
	simCeil  = 0.8

	DefaultEmbeddingTimeout = 5 * time.Second
	reloadBackoff           = 30 * time.Second
	embedBatch              = 64
)

// Embedder turns texts into vectors, one per input, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ExemplarRepo persists human exemplars and their cached vectors.
type ExemplarRepo interface {
	ListExemplars(ctx context.Context) ([]model.SemanticExemplar, error)
	InsertExemplar(ctx context.Context, e model.SemanticExemplar) (int64, error)
	SetExemplarEmbedding(ctx context.Context, id int64, embedding []float32) error
}

// SemanticResult is the semantic tier's verdict.
type SemanticResult struct {
	Category     model.Category             `json:"category"`
	Confidence   int                        `json:"confidence"`
	Similarities map[model.Category]float64 `json:"similarities,omitempty"`
	Abstained    bool                       `json:"abstained"`
	Reason       string                     `json:"reason,omitempty"`
}

func abstain(reason string) SemanticResult {
	metrics.SemanticAbstentions.WithLabelValues(reason).Inc()
	return SemanticResult{Category: model.CategoryUncategorized, Abstained: true, Reason: reason}
}

// ExemplarMatch is one exemplar and its similarity to a text.
type ExemplarMatch struct {
	Text       string         `json:"text"`
	Language   model.Language `json:"language"`
	Similarity float64        `json:"similarity"`
}

// Explanation lists the closest exemplars per category.
type Explanation struct {
	Result    SemanticResult                     `json:"result"`
	Top       map[model.Category][]ExemplarMatch `json:"topMatches"`
	Reasoning string                             `json:"reasoning"`
}

type exemplar struct {
	id       int64
	text     string
	category model.Category
	language model.Language
	vec      []float32
}

type prototype struct {
	sum   []float64
	count int
}

func (p *prototype) add(v []float32) {
	if p.sum == nil {
		p.sum = make([]float64, len(v))
	}
	if len(v) != len(p.sum) {
		return
	}
	for i, x := range v {
		p.sum[i] += float64(x)
	}
	p.count++
}

// Semantic compares texts with per-category prototypes, each the mean
// embedding of that category's exemplars.
type Semantic struct {
	embedder Embedder
	repo     ExemplarRepo
	timeout  time.Duration
	log      zerolog.Logger
	enabled  atomic.Bool

	mu         sync.RWMutex
	exemplars  []exemplar
	prototypes map[model.Category]*prototype
	dim        int
	ready      bool
	lastLoad   time.Time
}

// NewSemantic builds a classifier. repo may be nil, in which case human
// exemplars live only in memory.
func NewSemantic(embedder Embedder, repo ExemplarRepo, enabled bool, timeout time.Duration, logger zerolog.Logger) *Semantic {
	if timeout <= 0 {
		timeout = DefaultEmbeddingTimeout
	}
	s := &Semantic{
		embedder: embedder,
		repo:     repo,
		timeout:  timeout,
		log:      logger.With().Str("component", "semantic").Logger(),
	}
	s.enabled.Store(enabled && embedder != nil)
	return s
}

func (s *Semantic) Enabled() bool { return s.enabled.Load() }

// SetEnabled switches the tier on or off at runtime.
func (s *Semantic) SetEnabled(v bool) { s.enabled.Store(v && s.embedder != nil) }

// Ready reports whether prototypes have been built.
func (s *Semantic) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Load embeds the default and stored exemplars and rebuilds every
// prototype. Stored exemplars missing a vector get one written back.
func (s *Semantic) Load(ctx context.Context) error {
	if s.embedder == nil {
		return fmt.Errorf("%w: no embedding backend configured", model.ErrExternalUnavailable)
	}
	s.mu.Lock()
	s.lastLoad = time.Now()
	s.mu.Unlock()

	all := defaultExemplars()
	if s.repo != nil {
		stored, err := s.repo.ListExemplars(ctx)
		if err != nil {
			return fmt.Errorf("load exemplars: %w", err)
		}
		for _, e := range stored {
			all = append(all, exemplar{id: e.ID, text: e.Text, category: e.Category, language: e.Language, vec: e.Embedding})
		}
	} else {
		s.mu.RLock()
		for _, e := range s.exemplars {
			if e.id < 0 {
				all = append(all, e)
			}
		}
		s.mu.RUnlock()
	}

	// Defaults are always embedded fresh; their dimension is the reference.
	var missing []int
	for i := range all {
		if all[i].id == 0 {
			all[i].vec = nil
		}
		if all[i].vec == nil {
			missing = append(missing, i)
		}
	}
	if err := s.embedInto(ctx, all, missing); err != nil {
		return err
	}
	dim := len(all[0].vec)

	var stale []int
	for i := range all {
		if len(all[i].vec) != dim {
			stale = append(stale, i)
		}
	}
	if err := s.embedInto(ctx, all, stale); err != nil {
		return err
	}

	if s.repo != nil {
		for _, i := range append(missing, stale...) {
			if all[i].id > 0 {
				if err := s.repo.SetExemplarEmbedding(ctx, all[i].id, all[i].vec); err != nil {
					s.log.Warn().Err(err).Int64("exemplar_id", all[i].id).Msg("failed to cache exemplar embedding")
				}
			}
		}
	}

	protos := make(map[model.Category]*prototype, len(model.Categories))
	for _, cat := range model.Categories {
		protos[cat] = &prototype{}
	}
	for _, e := range all {
		if p, ok := protos[e.category]; ok {
			p.add(e.vec)
		}
	}

	s.mu.Lock()
	s.exemplars = all
	s.prototypes = protos
	s.dim = dim
	s.ready = true
	s.mu.Unlock()

	s.log.Info().Int("exemplars", len(all)).Int("dimension", dim).Msg("semantic prototypes built")
	return nil
}

func (s *Semantic) embedInto(ctx context.Context, all []exemplar, idx []int) error {
	for start := 0; start < len(idx); start += embedBatch {
		end := min(start+embedBatch, len(idx))
		texts := make([]string, 0, end-start)
		for _, i := range idx[start:end] {
			texts = append(texts, all[i].text)
		}
		vecs, err := s.embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed exemplars: %w", err)
		}
		for j, i := range idx[start:end] {
			all[i].vec = vecs[j]
		}
	}
	return nil
}

func (s *Semantic) embed(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	vecs, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: embedder returned %d vectors for %d texts", model.ErrExternalUnavailable, len(vecs), len(texts))
	}
	return vecs, nil
}

// ensureReady builds prototypes on first use, retrying a failed build at
// most once per reloadBackoff.
func (s *Semantic) ensureReady(ctx context.Context) bool {
	s.mu.RLock()
	ready, last := s.ready, s.lastLoad
	s.mu.RUnlock()
	if ready {
		return true
	}
	if !last.IsZero() && time.Since(last) < reloadBackoff {
		return false
	}
	if err := s.Load(ctx); err != nil {
		s.log.Warn().Err(err).Msg("semantic prototypes unavailable")
		return false
	}
	return true
}

// Classify returns the closest category. It never fails: every problem
// becomes an abstention with a reason.
func (s *Semantic) Classify(ctx context.Context, title, description string) SemanticResult {
	if !s.Enabled() {
		return abstain(ReasonDisabled)
	}
	text := strings.TrimSpace(title + " " + description)
	if text == "" {
		return abstain(ReasonEmptyText)
	}
	if !s.ensureReady(ctx) {
		return abstain(ReasonNotReady)
	}

	vec, reason := s.embedOne(ctx, text)
	if reason != "" {
		return abstain(reason)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.score(vec)
}

func (s *Semantic) embedOne(ctx context.Context, text string) ([]float32, string) {
	vecs, err := s.embed(ctx, []string{text})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.log.Warn().Dur("timeout", s.timeout).Msg("embedding timed out")
			return nil, ReasonTimeout
		}
		s.log.Warn().Err(err).Msg("embedding backend unavailable")
		return nil, ReasonUnavailable
	}
	return vecs[0], ""
}

// score must be called with s.mu held.
func (s *Semantic) score(vec []float32) SemanticResult {
	res := SemanticResult{
		Category:     model.CategoryUncategorized,
		Similarities: make(map[model.Category]float64, len(model.Categories)),
	}
	best := math.Inf(-1)
	for _, cat := range model.Categories {
		p := s.prototypes[cat]
		if p == nil || p.count == 0 {
			continue
		}
		sim := cosine64(vec, p.sum)
		res.Similarities[cat] = sim
		if sim > best {
			best = sim
			res.Category = cat
		}
	}
	if res.Category == model.CategoryUncategorized {
		return abstain(ReasonNotReady)
	}
	res.Confidence = semanticConfidence(best)
	return res
}

// AddExemplar records a human-labelled text and folds its embedding into
// the category prototype. The exemplar is kept even when embedding fails;
// the next Load picks it up.
func (s *Semantic) AddExemplar(ctx context.Context, text string, category model.Category, lang model.Language) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: exemplar text is empty", model.ErrValidation)
	}
	if _, err := model.ParseCategory(string(category)); err != nil {
		return err
	}

	ex := exemplar{text: text, category: category, language: lang}
	if s.repo != nil {
		id, err := s.repo.InsertExemplar(ctx, model.SemanticExemplar{
			Category: category,
			Language: lang,
			Text:     text,
			Source:   "human",
		})
		if err != nil {
			return fmt.Errorf("store exemplar: %w", err)
		}
		ex.id = id
	} else {
		ex.id = -1
	}

	if !s.Enabled() || !s.Ready() {
		if s.repo == nil {
			s.mu.Lock()
			s.exemplars = append(s.exemplars, ex)
			s.mu.Unlock()
		}
		return nil
	}

	vecs, err := s.embed(ctx, []string{text})
	if err != nil {
		if s.repo == nil {
			s.mu.Lock()
			s.exemplars = append(s.exemplars, ex)
			s.mu.Unlock()
		}
		return fmt.Errorf("%w: embed exemplar: %v", model.ErrExternalUnavailable, err)
	}
	ex.vec = vecs[0]

	s.mu.Lock()
	s.exemplars = append(s.exemplars, ex)
	if p := s.prototypes[category]; p != nil && len(ex.vec) == s.dim {
		p.add(ex.vec)
	}
	s.mu.Unlock()

	if ex.id > 0 {
		if err := s.repo.SetExemplarEmbedding(ctx, ex.id, ex.vec); err != nil {
			s.log.Warn().Err(err).Int64("exemplar_id", ex.id).Msg("failed to cache exemplar embedding")
		}
	}
	s.log.Info().Str("category", string(category)).Str("language", string(lang)).Msg("exemplar added")
	return nil
}

// PrototypeSize is the number of exemplars behind a category prototype.
func (s *Semantic) PrototypeSize(category model.Category) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p := s.prototypes[category]; p != nil {
		return p.count
	}
	return 0
}

// Explain classifies text and lists the three closest exemplars per
// category.
func (s *Semantic) Explain(ctx context.Context, title, description string) (Explanation, error) {
	if !s.Enabled() {
		return Explanation{}, fmt.Errorf("%w: semantic classification is disabled", model.ErrExternalUnavailable)
	}
	text := strings.TrimSpace(title + " " + description)
	if text == "" {
		return Explanation{}, fmt.Errorf("%w: nothing to explain", model.ErrValidation)
	}
	if !s.ensureReady(ctx) {
		return Explanation{}, fmt.Errorf("%w: prototypes not ready", model.ErrExternalUnavailable)
	}
	vec, reason := s.embedOne(ctx, text)
	if reason != "" {
		return Explanation{}, fmt.Errorf("%w: embedding %s", model.ErrExternalUnavailable, reason)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	exp := Explanation{Result: s.score(vec), Top: make(map[model.Category][]ExemplarMatch)}
	for _, e := range s.exemplars {
		if len(e.vec) == 0 {
			continue
		}
		exp.Top[e.category] = append(exp.Top[e.category], ExemplarMatch{
			Text:       e.text,
			Language:   e.language,
			Similarity: cosine32(vec, e.vec),
		})
	}
	for cat, list := range exp.Top {
		sort.SliceStable(list, func(i, j int) bool { return list[i].Similarity > list[j].Similarity })
		if len(list) > 3 {
			list = list[:3]
		}
		exp.Top[cat] = list
	}
	if top := exp.Top[exp.Result.Category]; len(top) > 0 {
		exp.Reasoning = fmt.Sprintf("classified as %s: closest to %q (similarity %.3f)",
			exp.Result.Category, top[0].Text, top[0].Similarity)
	}
	return exp, nil
}

func semanticConfidence(sim float64) int {
	c := (sim - simFloor) / (simCeil - simFloor) * 100
	return min(max(int(math.Round(c)), 0), 100)
}

func cosine64(a []float32, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x := float64(a[i])
		dot += x * b[i]
		na += x * x
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func cosine32(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
