package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
)

const (
	DefaultBulkConcurrency = 4
	DefaultBulkBatchSize   = 50
	finishedJobRetention   = time.Hour
)

type job struct {
	status    model.JobStatus
	cancelled atomic.Bool
	done      chan struct{}
}

// BulkService reclassifies whole competitors in the background. Each
// competitor is one task on a bounded pool; its items are written in
// batch transactions and a cancel takes effect between items.
type BulkService struct {
	store       Store
	resolver    *Resolver
	concurrency int
	batchSize   int
	log         zerolog.Logger

	base     context.Context
	shutdown context.CancelFunc
	wg       sync.WaitGroup

	mu   sync.Mutex
	jobs map[string]*job
}

func NewBulkService(store Store, resolver *Resolver, concurrency, batchSize int, logger zerolog.Logger) *BulkService {
	if concurrency <= 0 {
		concurrency = DefaultBulkConcurrency
	}
	if batchSize <= 0 {
		batchSize = DefaultBulkBatchSize
	}
	base, cancel := context.WithCancel(context.Background())
	return &BulkService{
		store:       store,
		resolver:    resolver,
		concurrency: concurrency,
		batchSize:   batchSize,
		log:         logger.With().Str("component", "bulk").Logger(),
		base:        base,
		shutdown:    cancel,
		jobs:        make(map[string]*job),
	}
}

// Start queues a reclassification of one competitor, or of every
// competitor when competitorID is 0.
func (b *BulkService) Start(competitorID int64, force bool) (model.JobStatus, error) {
	if competitorID < 0 {
		return model.JobStatus{}, fmt.Errorf("%w: invalid competitor id %d", model.ErrValidation, competitorID)
	}
	if b.base.Err() != nil {
		return model.JobStatus{}, errors.New("bulk service is shutting down")
	}

	j := &job{
		status: model.JobStatus{
			ID:           uuid.NewString(),
			CompetitorID: competitorID,
			Force:        force,
			State:        model.JobQueued,
		},
		done: make(chan struct{}),
	}

	b.mu.Lock()
	b.pruneLocked()
	b.jobs[j.status.ID] = j
	st := j.status
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer close(j.done)
		b.run(b.base, j)
	}()

	b.log.Info().Str("job_id", st.ID).Int64("competitor_id", competitorID).Bool("force", force).Msg("bulk reclassification queued")
	return st, nil
}

// Get returns a job's status.
func (b *BulkService) Get(id string) (model.JobStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	j, ok := b.jobs[id]
	if !ok {
		return model.JobStatus{}, fmt.Errorf("%w: job %s", model.ErrNotFound, id)
	}
	return j.status, nil
}

// Cancel asks a job to stop after the item in progress. Writes already
// committed stay in place.
func (b *BulkService) Cancel(id string) (model.JobStatus, error) {
	b.mu.Lock()
	j, ok := b.jobs[id]
	b.mu.Unlock()
	if !ok {
		return model.JobStatus{}, fmt.Errorf("%w: job %s", model.ErrNotFound, id)
	}
	j.cancelled.Store(true)
	b.log.Info().Str("job_id", id).Msg("bulk reclassification cancel requested")
	return b.Get(id)
}

// Wait blocks until the job finishes or ctx ends.
func (b *BulkService) Wait(ctx context.Context, id string) (model.JobStatus, error) {
	b.mu.Lock()
	j, ok := b.jobs[id]
	b.mu.Unlock()
	if !ok {
		return model.JobStatus{}, fmt.Errorf("%w: job %s", model.ErrNotFound, id)
	}
	select {
	case <-j.done:
	case <-ctx.Done():
		return b.Get(id)
	}
	return b.Get(id)
}

// Shutdown cancels running jobs and waits for them to stop.
func (b *BulkService) Shutdown() {
	b.mu.Lock()
	for _, j := range b.jobs {
		j.cancelled.Store(true)
	}
	b.mu.Unlock()
	b.shutdown()
	b.wg.Wait()
}

func (b *BulkService) update(j *job, fn func(*model.JobStatus)) {
	b.mu.Lock()
	fn(&j.status)
	b.mu.Unlock()
}

func (b *BulkService) pruneLocked() {
	for id, j := range b.jobs {
		if j.status.FinishedAt != nil && time.Since(*j.status.FinishedAt) > finishedJobRetention {
			delete(b.jobs, id)
		}
	}
}

func (b *BulkService) run(ctx context.Context, j *job) {
	now := time.Now().UTC()
	b.update(j, func(s *model.JobStatus) {
		s.State = model.JobRunning
		s.StartedAt = &now
	})

	err := b.runAll(ctx, j)

	end := time.Now().UTC()
	b.update(j, func(s *model.JobStatus) {
		s.FinishedAt = &end
		switch {
		case err != nil:
			s.State = model.JobFailed
			s.Error = err.Error()
		case j.cancelled.Load():
			s.State = model.JobCancelled
		default:
			s.State = model.JobDone
		}
	})

	st, _ := b.Get(j.status.ID)
	ev := b.log.Info()
	if err != nil {
		ev = b.log.Error().Err(err)
	}
	ev.Str("job_id", st.ID).Str("state", string(st.State)).
		Int("total", st.Counters.Total).Int("classified", st.Counters.Classified).
		Int("unchanged", st.Counters.Unchanged).Int("protected", st.Counters.Protected).
		Int("failed", st.Counters.Failed).Dur("elapsed", end.Sub(now)).
		Msg("bulk reclassification finished")
}

func (b *BulkService) runAll(ctx context.Context, j *job) error {
	competitors := []int64{j.status.CompetitorID}
	if j.status.CompetitorID == 0 {
		ids, err := b.store.CompetitorIDs(ctx)
		if err != nil {
			return fmt.Errorf("list competitors: %w", err)
		}
		competitors = ids
	}

	var g errgroup.Group
	g.SetLimit(b.concurrency)
	for _, cid := range competitors {
		if j.cancelled.Load() {
			break
		}
		g.Go(func() error {
			return b.runCompetitor(ctx, j, cid)
		})
	}
	return g.Wait()
}

func (b *BulkService) runCompetitor(ctx context.Context, j *job, competitorID int64) error {
	targets, err := b.store.CompetitorTargets(ctx, competitorID)
	if err != nil {
		return fmt.Errorf("competitor %d: %w", competitorID, err)
	}
	b.update(j, func(s *model.JobStatus) { s.Counters.Total += len(targets) })

	for start := 0; start < len(targets); start += b.batchSize {
		if j.cancelled.Load() || ctx.Err() != nil {
			return nil
		}
		batch := targets[start:min(start+b.batchSize, len(targets))]

		var c model.BulkCounters
		var written []model.Target
		err := b.store.InTx(ctx, func(tx Items) error {
			c = model.BulkCounters{}
			written = written[:0]
			for _, t := range batch {
				if j.cancelled.Load() {
					return nil
				}
				res, err := b.resolver.classify(ctx, tx, t, j.status.Force)
				switch {
				case errors.Is(err, model.ErrNotFound):
					c.Failed++
				case err != nil:
					return err
				case res.Protected:
					c.Protected++
				case res.Persisted:
					c.Classified++
					written = append(written, t)
				default:
					c.Unchanged++
				}
			}
			return nil
		})
		if err != nil {
			b.log.Warn().Err(err).Int64("competitor_id", competitorID).Int("batch", len(batch)).
				Msg("batch rolled back")
			c = model.BulkCounters{Failed: len(batch)}
		} else {
			b.resolver.cache.Invalidate(ctx, written...)
		}
		b.update(j, func(s *model.JobStatus) {
			s.Counters.Classified += c.Classified
			s.Counters.Unchanged += c.Unchanged
			s.Counters.Protected += c.Protected
			s.Counters.Failed += c.Failed
		})
	}
	return nil
}
