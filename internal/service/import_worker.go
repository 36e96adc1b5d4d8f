package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
)

// ImportChannel is the NOTIFY channel fed by the insert triggers.
const ImportChannel = "classification_queue"

// Classifier classifies one target.
type Classifier interface {
	ClassifyWithHierarchy(ctx context.Context, t model.Target, force bool) (model.Resolution, error)
}

// ImportWorker listens for PostgreSQL NOTIFY on classification_queue and
// classifies newly imported videos and playlists in batches. Payloads look
// like "video:42" or "playlist:7".
type ImportWorker struct {
	pool     *pgxpool.Pool
	resolver Classifier
	batch    time.Duration
	log      zerolog.Logger

	pending *pendingSet
}

func NewImportWorker(pool *pgxpool.Pool, resolver Classifier, batch time.Duration, logger zerolog.Logger) *ImportWorker {
	if batch <= 0 {
		batch = 5 * time.Second
	}
	return &ImportWorker{
		pool:     pool,
		resolver: resolver,
		batch:    batch,
		log:      logger.With().Str("component", "import_worker").Logger(),
		pending:  newPendingSet(),
	}
}

// Start listens until ctx is cancelled, reconnecting on errors.
func (w *ImportWorker) Start(ctx context.Context) {
	w.log.Info().Dur("batch_window", w.batch).Msg("starting")

	for {
		if err := w.listenLoop(ctx); err != nil {
			if ctx.Err() != nil {
				w.log.Info().Msg("stopping (context cancelled)")
				return
			}
			w.log.Warn().Err(err).Msg("listen error, reconnecting in 5s")
			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
				w.log.Info().Msg("stopping (context cancelled)")
				return
			}
		}
	}
}

// listenLoop acquires a dedicated connection, LISTENs on the queue and
// collects notifications for the flush loop.
func (w *ImportWorker) listenLoop(ctx context.Context) error {
	conn, err := w.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+ImportChannel); err != nil {
		return err
	}
	w.log.Info().Str("channel", ImportChannel).Msg("listening")

	flushCtx, flushCancel := context.WithCancel(ctx)
	defer flushCancel()
	go w.flushLoop(flushCtx)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		w.Enqueue(n.Payload)
	}
}

// Enqueue adds a notification payload to the pending batch. Malformed
// payloads are logged and dropped.
func (w *ImportWorker) Enqueue(payload string) {
	t, err := model.ParseTarget(payload)
	if err != nil {
		w.log.Warn().Err(err).Str("payload", payload).Msg("ignoring notification")
		return
	}
	w.pending.add(t)
}

func (w *ImportWorker) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(w.batch)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.Flush(ctx)
		case <-ctx.Done():
			// final flush with a fresh deadline
			fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			w.Flush(fctx)
			cancel()
			return
		}
	}
}

// Flush classifies every pending target once.
func (w *ImportWorker) Flush(ctx context.Context) int {
	batch := w.pending.drain()
	if len(batch) == 0 {
		return 0
	}

	classified := 0
	for _, t := range batch {
		if _, err := w.resolver.ClassifyWithHierarchy(ctx, t, false); err != nil {
			w.log.Warn().Err(err).Str("target", t.String()).Msg("classify error")
			continue
		}
		classified++
	}
	w.log.Info().Int("classified", classified).Int("notifications", len(batch)).Msg("batch complete")
	return classified
}
