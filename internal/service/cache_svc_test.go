package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
)

func TestCacheService_DisabledIsNoop(t *testing.T) {
	ctx := context.Background()
	for name, c := range map[string]*CacheService{
		"nil":     nil,
		"no url":  NewCacheService("", zerolog.Nop()),
		"bad url": NewCacheService("::not-a-url", zerolog.Nop()),
	} {
		t.Run(name, func(t *testing.T) {
			if c.Client() != nil {
				t.Error("Client() != nil")
			}
			if err := c.SetClassification(ctx, model.Resolution{Target: model.VideoTarget(1)}); err != nil {
				t.Errorf("SetClassification: %v", err)
			}
			if _, ok := c.GetClassification(ctx, model.VideoTarget(1)); ok {
				t.Error("GetClassification hit on a disabled cache")
			}
			c.Invalidate(ctx, model.VideoTarget(1))
			if err := c.Close(); err != nil {
				t.Errorf("Close: %v", err)
			}
		})
	}
}

func TestClassificationKey(t *testing.T) {
	if got := classificationKey(model.PlaylistTarget(12)); got != "classification:playlist:12" {
		t.Errorf("key = %q", got)
	}
}
