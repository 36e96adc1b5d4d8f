package handler

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
)

// IntegrityChecker verifies and repairs classification consistency.
type IntegrityChecker interface {
	VerifyIntegrity(ctx context.Context) (model.IntegrityReport, error)
	AutoFix(ctx context.Context, level model.FixLevel) (model.FixResult, error)
}

type IntegrityHandler struct {
	svc IntegrityChecker
}

func NewIntegrityHandler(svc IntegrityChecker) *IntegrityHandler {
	return &IntegrityHandler{svc: svc}
}

// Check handles GET /api/integrity
func (h *IntegrityHandler) Check(c fiber.Ctx) error {
	rep, err := h.svc.VerifyIntegrity(c.Context())
	if err != nil {
		return respondError(c, err, "Failed to verify integrity")
	}
	return c.JSON(rep)
}

// Fix handles POST /api/integrity/fix?level=safe|full
func (h *IntegrityHandler) Fix(c fiber.Ctx) error {
	level := model.FixLevel(fiber.Query[string](c, "level", string(model.FixSafe)))
	res, err := h.svc.AutoFix(c.Context(), level)
	if err != nil {
		return respondError(c, err, "Failed to repair integrity issues")
	}
	return c.JSON(res)
}
