package model

import "errors"

var (
	// ErrNotFound is returned when a target id is unknown.
	ErrNotFound = errors.New("not found")
	// ErrValidation is returned for bad categories, languages or ids.
	ErrValidation = errors.New("validation error")
	// ErrHumanProtected is returned when an explicit automatic write hits a
	// human-validated row.
	ErrHumanProtected = errors.New("human protected")
	// ErrPatternStore wraps storage failures on pattern writes.
	ErrPatternStore = errors.New("pattern store error")
	// ErrExternalUnavailable marks a degraded external collaborator
	// (YouTube listing, embedding backend).
	ErrExternalUnavailable = errors.New("external service unavailable")
)
