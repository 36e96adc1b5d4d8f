package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/middleware"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
)

// Jobs runs bulk reclassifications in the background.
type Jobs interface {
	Start(competitorID int64, force bool) (model.JobStatus, error)
	Get(id string) (model.JobStatus, error)
	Cancel(id string) (model.JobStatus, error)
}

type JobHandler struct {
	jobs Jobs
}

func NewJobHandler(jobs Jobs) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// Reclassify handles POST /api/competitors/:id/reclassify?force=
// The id "all" reclassifies every competitor.
func (h *JobHandler) Reclassify(c fiber.Ctx) error {
	var competitorID int64
	if c.Params("id") != "all" {
		id, errMsg := middleware.ValidateID(c.Params("id"))
		if errMsg != "" {
			return invalidID(c, errMsg)
		}
		competitorID = id
	}

	st, err := h.jobs.Start(competitorID, fiber.Query[bool](c, "force"))
	if err != nil {
		return respondError(c, err, "Failed to start reclassification")
	}
	return c.Status(fiber.StatusAccepted).JSON(st)
}

// Get handles GET /api/jobs/:id
func (h *JobHandler) Get(c fiber.Ctx) error {
	id, errMsg := middleware.ValidateJobID(c.Params("id"))
	if errMsg != "" {
		return invalidID(c, errMsg)
	}
	st, err := h.jobs.Get(id)
	if err != nil {
		return respondError(c, err, "Failed to load job")
	}
	return c.JSON(st)
}

// Cancel handles DELETE /api/jobs/:id
func (h *JobHandler) Cancel(c fiber.Ctx) error {
	id, errMsg := middleware.ValidateJobID(c.Params("id"))
	if errMsg != "" {
		return invalidID(c, errMsg)
	}
	st, err := h.jobs.Cancel(id)
	if err != nil {
		return respondError(c, err, "Failed to cancel job")
	}
	return c.JSON(st)
}
