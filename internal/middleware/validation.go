package middleware

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v3"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
)

// Field length limits for request input.
const (
	MaxPatternLen  = 200
	MaxNotesLen    = 1000
	MaxPreviewLen  = 5000
	MaxJobIDLen    = 36
	maxIDDigits    = 19
	minPatternRune = 2
)

// ErrorResponse is a helper that returns a standard API error response.
func ErrorResponse(c fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// ValidateID parses a positive database id from a path segment.
func ValidateID(raw string) (int64, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, "id is required"
	}
	if len(raw) > maxIDDigits {
		return 0, "id is too long"
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, "id must be a positive integer"
	}
	return id, ""
}

// ValidateCategory checks an assignable category (hero, hub or help).
func ValidateCategory(s string) (model.Category, string) {
	c, err := model.ParseCategory(s)
	if err != nil {
		return "", "category must be hero, hub or help"
	}
	return c, ""
}

// ValidatePatternLanguage checks a pattern language; empty means "all".
func ValidatePatternLanguage(s string) (model.Language, string) {
	if strings.TrimSpace(s) == "" {
		return model.LanguageAll, ""
	}
	l, err := model.ParsePatternLanguage(s)
	if err != nil {
		return "", "language must be fr, en, de, nl or all"
	}
	return l, ""
}

// ValidatePatternText normalizes a pattern phrase and enforces length.
func ValidatePatternText(s string) (string, string) {
	p := model.NormalizePatternText(s)
	if utf8.RuneCountInString(p) < minPatternRune {
		return "", "pattern must be at least 2 characters"
	}
	if utf8.RuneCountInString(p) > MaxPatternLen {
		return "", "pattern must be at most 200 characters"
	}
	return p, ""
}

// ValidateJobID checks a bulk job id.
func ValidateJobID(s string) (string, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "jobId is required"
	}
	if len(s) > MaxJobIDLen {
		return "", "jobId must be at most 36 characters"
	}
	return s, ""
}

// ValidatePreviewText trims preview input and rejects empty or oversized text.
func ValidatePreviewText(s string) (string, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "text is required"
	}
	if utf8.RuneCountInString(s) > MaxPreviewLen {
		return "", "text must be at most 5000 characters"
	}
	return s, ""
}

// ValidateNotes trims and truncates free-form notes.
func ValidateNotes(notes string) string {
	notes = strings.TrimSpace(notes)
	if utf8.RuneCountInString(notes) > MaxNotesLen {
		notes = string([]rune(notes)[:MaxNotesLen])
	}
	return notes
}
