package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
)

// IntegrityChecker runs the consistency checks and repairs.
type IntegrityChecker interface {
	VerifyIntegrity(ctx context.Context) (model.IntegrityReport, error)
	AutoFix(ctx context.Context, level model.FixLevel) (model.FixResult, error)
}

// IntegrityWorker periodically verifies the classification invariants and,
// when a fix level is configured, repairs what it can.
type IntegrityWorker struct {
	checker  IntegrityChecker
	interval time.Duration
	fixLevel model.FixLevel
	log      zerolog.Logger
	stopCh   chan struct{}
}

// NewIntegrityWorker creates a worker that ticks every interval. An empty
// fixLevel only reports.
func NewIntegrityWorker(checker IntegrityChecker, interval time.Duration, fixLevel model.FixLevel, logger zerolog.Logger) *IntegrityWorker {
	return &IntegrityWorker{
		checker:  checker,
		interval: interval,
		fixLevel: fixLevel,
		log:      logger.With().Str("component", "integrity_worker").Logger(),
		stopCh:   make(chan struct{}),
	}
}

// Start runs one tick immediately, then every interval.
func (w *IntegrityWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Str("fix_level", string(w.fixLevel)).Msg("starting")

	w.tick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.tick(ctx)
		case <-ctx.Done():
			w.log.Info().Msg("stopping (context cancelled)")
			return
		case <-w.stopCh:
			w.log.Info().Msg("stopping (stop signal)")
			return
		}
	}
}

// Stop signals the worker to stop.
func (w *IntegrityWorker) Stop() {
	close(w.stopCh)
}

func (w *IntegrityWorker) tick(ctx context.Context) {
	start := time.Now()

	if w.fixLevel != "" {
		res, err := w.checker.AutoFix(ctx, w.fixLevel)
		if err != nil {
			w.log.Error().Err(err).Msg("auto-fix failed")
			return
		}
		w.log.Info().Str("result", res.Message).Dur("elapsed", time.Since(start)).Msg("tick complete")
		return
	}

	report, err := w.checker.VerifyIntegrity(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("verify failed")
		return
	}
	w.log.Info().Bool("healthy", report.IsHealthy).Int("issues", len(report.Issues)).
		Dur("elapsed", time.Since(start)).Msg("tick complete")
}
