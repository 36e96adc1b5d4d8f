package handler

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/middleware"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
)

// FeedbackSubmitter records a human decision and learns from it.
type FeedbackSubmitter interface {
	SubmitFeedback(ctx context.Context, t model.Target, corrected model.Category, typ model.FeedbackType, notes string) (model.FeedbackResult, error)
}

type FeedbackHandler struct {
	svc FeedbackSubmitter
}

func NewFeedbackHandler(svc FeedbackSubmitter) *FeedbackHandler {
	return &FeedbackHandler{svc: svc}
}

type feedbackRequest struct {
	TargetType        string `json:"targetType"`
	TargetID          int64  `json:"targetId"`
	CorrectedCategory string `json:"correctedCategory"`
	FeedbackType      string `json:"feedbackType"`
	Notes             string `json:"notes"`
}

// Submit handles POST /api/feedback
func (h *FeedbackHandler) Submit(c fiber.Ctx) error {
	var req feedbackRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	tt, err := model.ParseTargetType(req.TargetType)
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", "targetType must be video or playlist")
	}
	if req.TargetID <= 0 {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", "targetId must be a positive integer")
	}
	cat, errMsg := middleware.ValidateCategory(req.CorrectedCategory)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_CATEGORY", errMsg)
	}

	res, err := h.svc.SubmitFeedback(c.Context(), model.Target{Type: tt, ID: req.TargetID}, cat,
		model.FeedbackType(req.FeedbackType), middleware.ValidateNotes(req.Notes))
	if err != nil {
		msg := res.Message
		if msg == "" {
			msg = "Failed to submit feedback"
		}
		return respondError(c, err, msg)
	}
	return c.JSON(res)
}
