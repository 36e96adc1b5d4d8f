package handler

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
)

// StatsReader aggregates classification and learning statistics.
type StatsReader interface {
	ClassificationStats(ctx context.Context) (model.ClassificationStats, error)
	LearningStats(ctx context.Context) (model.LearningStats, error)
}

type StatsHandler struct {
	svc StatsReader
}

func NewStatsHandler(svc StatsReader) *StatsHandler {
	return &StatsHandler{svc: svc}
}

// Classification handles GET /api/stats/classification
func (h *StatsHandler) Classification(c fiber.Ctx) error {
	stats, err := h.svc.ClassificationStats(c.Context())
	if err != nil {
		return respondError(c, err, "Failed to retrieve stats")
	}
	return c.JSON(stats)
}

// Learning handles GET /api/stats/learning
func (h *StatsHandler) Learning(c fiber.Ctx) error {
	stats, err := h.svc.LearningStats(c.Context())
	if err != nil {
		return respondError(c, err, "Failed to retrieve stats")
	}
	return c.JSON(stats)
}
