package services

import "errors"

// Service error kinds. Handlers map these onto HTTP statuses; anything
// not wrapped in one of them is treated as an internal failure the
// caller may retry.
var (
	// ErrValidation marks malformed input: empty blocks, non-positive
	// steps, missing ids. Never retried.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks absent group/plan/block/user state.
	ErrNotFound = errors.New("not found")

	// ErrOverlapRejected marks a plan application that lost overlap
	// resolution to an earlier-starting plan.
	ErrOverlapRejected = errors.New("plan overlap rejected")
)
