package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/middleware"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
)

// PatternAdmin lists and edits keyword patterns.
type PatternAdmin interface {
	List(ctx context.Context, lang model.Language, includeDefaults bool) ([]model.Pattern, error)
	AddCustom(ctx context.Context, category model.Category, text string, lang model.Language) (bool, error)
	Remove(ctx context.Context, category model.Category, text string, lang model.Language) (bool, error)
}

type PatternHandler struct {
	store PatternAdmin
}

func NewPatternHandler(store PatternAdmin) *PatternHandler {
	return &PatternHandler{store: store}
}

type patternRequest struct {
	Pattern  string `json:"pattern"`
	Category string `json:"category"`
	Language string `json:"language"`
}

// List handles GET /api/patterns?language=&defaults=
func (h *PatternHandler) List(c fiber.Ctx) error {
	var lang model.Language
	if raw := fiber.Query[string](c, "language"); raw != "" {
		l, errMsg := middleware.ValidatePatternLanguage(raw)
		if errMsg != "" {
			return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_LANGUAGE", errMsg)
		}
		lang = l
	}

	list, err := h.store.List(c.Context(), lang, fiber.Query[bool](c, "defaults"))
	if err != nil {
		return respondError(c, err, "Failed to list patterns")
	}
	if list == nil {
		list = []model.Pattern{}
	}
	return c.JSON(fiber.Map{"patterns": list, "count": len(list)})
}

// Add handles POST /api/patterns
func (h *PatternHandler) Add(c fiber.Ctx) error {
	p, err := parsePattern(c)
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", err.Error())
	}
	added, err := h.store.AddCustom(c.Context(), p.Category, p.Text, p.Language)
	if err != nil {
		return respondError(c, err, "Failed to add pattern")
	}

	p.Source = model.PatternCustom
	p.Weight = float64(model.WordCount(p.Text))
	res := model.PatternResult{Success: true, Pattern: p, Changed: added, Message: "pattern added"}
	status := fiber.StatusCreated
	if !added {
		res.Message = "pattern already present"
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(res)
}

// Remove handles DELETE /api/patterns
func (h *PatternHandler) Remove(c fiber.Ctx) error {
	p, err := parsePattern(c)
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", err.Error())
	}
	removed, err := h.store.Remove(c.Context(), p.Category, p.Text, p.Language)
	if err != nil {
		return respondError(c, err, "Failed to remove pattern")
	}
	if !removed {
		return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Pattern not found")
	}
	return c.JSON(model.PatternResult{Success: true, Pattern: p, Changed: true, Message: "pattern removed"})
}

func parsePattern(c fiber.Ctx) (model.Pattern, error) {
	var req patternRequest
	if err := c.Bind().JSON(&req); err != nil {
		return model.Pattern{}, errors.New("invalid request body")
	}
	text, errMsg := middleware.ValidatePatternText(req.Pattern)
	if errMsg != "" {
		return model.Pattern{}, errors.New(errMsg)
	}
	cat, errMsg := middleware.ValidateCategory(req.Category)
	if errMsg != "" {
		return model.Pattern{}, errors.New(errMsg)
	}
	lang, errMsg := middleware.ValidatePatternLanguage(req.Language)
	if errMsg != "" {
		return model.Pattern{}, errors.New(errMsg)
	}
	return model.Pattern{Text: text, Category: cat, Language: lang}, nil
}
