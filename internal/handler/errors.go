package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/middleware"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
)

// respondError maps service errors onto the API error envelope. Messages of
// client-facing sentinels are returned as-is; anything else is logged and
// replaced by fallback.
func respondError(c fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, model.ErrValidation):
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", err.Error())
	case errors.Is(err, model.ErrHumanProtected):
		return middleware.ErrorResponse(c, fiber.StatusConflict, "HUMAN_PROTECTED", err.Error())
	case errors.Is(err, model.ErrExternalUnavailable):
		return middleware.ErrorResponse(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", fallback)
	case errors.Is(err, model.ErrPatternStore):
		middleware.Logger.Error().Err(err).Str("path", c.Path()).Msg("pattern store failure")
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "PATTERN_STORE_ERROR", fallback)
	}
	middleware.Logger.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", fallback)
}

func invalidID(c fiber.Ctx, msg string) error {
	return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_ID", msg)
}
