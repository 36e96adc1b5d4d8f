package handler

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/middleware"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
)

// Classifier is the resolver surface used by the HTTP layer.
type Classifier interface {
	ClassifyWithHierarchy(ctx context.Context, t model.Target, force bool) (model.Resolution, error)
	Get(ctx context.Context, t model.Target) (model.Resolution, error)
	MarkHuman(ctx context.Context, t model.Target, category model.Category, notes string) (model.MarkResult, error)
	Preview(ctx context.Context, title, description string) model.PreviewResult
}

// Propagator pushes a playlist's label onto its videos.
type Propagator interface {
	Propagate(ctx context.Context, playlistID int64, forceHumanAuthority bool) (model.PropagationResult, error)
}

type ClassificationHandler struct {
	resolver    Classifier
	propagation Propagator
}

func NewClassificationHandler(resolver Classifier, propagation Propagator) *ClassificationHandler {
	return &ClassificationHandler{resolver: resolver, propagation: propagation}
}

type markRequest struct {
	Category string `json:"category"`
	Notes    string `json:"notes"`
}

type previewRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type classifyResponse struct {
	Success bool `json:"success"`
	model.Resolution
}

// Classify handles POST /api/{videos,playlists}/:id/classify?force=
func (h *ClassificationHandler) Classify(tt model.TargetType) fiber.Handler {
	return func(c fiber.Ctx) error {
		id, errMsg := middleware.ValidateID(c.Params("id"))
		if errMsg != "" {
			return invalidID(c, errMsg)
		}
		force := fiber.Query[bool](c, "force")

		res, err := h.resolver.ClassifyWithHierarchy(c.Context(), model.Target{Type: tt, ID: id}, force)
		if err != nil {
			return respondError(c, err, "Failed to classify "+string(tt))
		}
		return c.JSON(classifyResponse{Success: true, Resolution: res})
	}
}

// Get handles GET /api/{videos,playlists}/:id/classification
func (h *ClassificationHandler) Get(tt model.TargetType) fiber.Handler {
	return func(c fiber.Ctx) error {
		id, errMsg := middleware.ValidateID(c.Params("id"))
		if errMsg != "" {
			return invalidID(c, errMsg)
		}
		res, err := h.resolver.Get(c.Context(), model.Target{Type: tt, ID: id})
		if err != nil {
			return respondError(c, err, "Failed to load classification")
		}
		return c.JSON(classifyResponse{Success: true, Resolution: res})
	}
}

// MarkHuman handles POST /api/{videos,playlists}/:id/human
func (h *ClassificationHandler) MarkHuman(tt model.TargetType) fiber.Handler {
	return func(c fiber.Ctx) error {
		id, errMsg := middleware.ValidateID(c.Params("id"))
		if errMsg != "" {
			return invalidID(c, errMsg)
		}
		var req markRequest
		if err := c.Bind().JSON(&req); err != nil {
			return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		}
		cat, errMsg := middleware.ValidateCategory(req.Category)
		if errMsg != "" {
			return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_CATEGORY", errMsg)
		}

		res, err := h.resolver.MarkHuman(c.Context(), model.Target{Type: tt, ID: id}, cat, middleware.ValidateNotes(req.Notes))
		if err != nil {
			return respondError(c, err, "Failed to record human classification")
		}
		return c.JSON(res)
	}
}

// Propagate handles POST /api/playlists/:id/propagate?forceHuman=
func (h *ClassificationHandler) Propagate(c fiber.Ctx) error {
	id, errMsg := middleware.ValidateID(c.Params("id"))
	if errMsg != "" {
		return invalidID(c, errMsg)
	}
	res, err := h.propagation.Propagate(c.Context(), id, fiber.Query[bool](c, "forceHuman"))
	if err != nil {
		return respondError(c, err, "Failed to propagate playlist")
	}
	return c.JSON(res)
}

// Preview handles POST /api/preview
func (h *ClassificationHandler) Preview(c fiber.Ctx) error {
	var req previewRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}
	if _, errMsg := middleware.ValidatePreviewText(req.Title + " " + req.Description); errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	return c.JSON(h.resolver.Preview(c.Context(), strings.TrimSpace(req.Title), strings.TrimSpace(req.Description)))
}
