package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
)

type countingChecker struct {
	verifies atomic.Int32
	fixes    atomic.Int32
}

func (c *countingChecker) VerifyIntegrity(context.Context) (model.IntegrityReport, error) {
	c.verifies.Add(1)
	return model.IntegrityReport{Success: true, IsHealthy: true}, nil
}

func (c *countingChecker) AutoFix(context.Context, model.FixLevel) (model.FixResult, error) {
	c.fixes.Add(1)
	return model.FixResult{Success: true}, nil
}

func TestIntegrityWorker_TicksUntilStopped(t *testing.T) {
	tests := []struct {
		name      string
		level     model.FixLevel
		wantFixes bool
	}{
		{"report only", "", false},
		{"safe repair", model.FixSafe, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &countingChecker{}
			w := NewIntegrityWorker(c, time.Hour, tt.level, zerolog.Nop())

			done := make(chan struct{})
			go func() {
				w.Start(context.Background())
				close(done)
			}()
			time.Sleep(50 * time.Millisecond)
			w.Stop()

			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("worker did not stop")
			}
			if tt.wantFixes && (c.fixes.Load() != 1 || c.verifies.Load() != 0) {
				t.Errorf("fixes=%d verifies=%d, want 1/0", c.fixes.Load(), c.verifies.Load())
			}
			if !tt.wantFixes && (c.verifies.Load() != 1 || c.fixes.Load() != 0) {
				t.Errorf("verifies=%d fixes=%d, want 1/0", c.verifies.Load(), c.fixes.Load())
			}
		})
	}
}
