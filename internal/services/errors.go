// Package services defines the catalog pipelines: category and paint
// aggregation, best-variant resolution and asset rebuilding.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

// Pipeline errors.
var (
	// ErrNoEligibleCandidate is returned by the resolver when no candidate of a
	// paintindex carries a UV type marker.
	ErrNoEligibleCandidate = errors.New("no eligible candidate")

	// ErrEmptyUpstream marks an upstream query that returned no records. It is
	// reported as a successful "no data" outcome, never as a failure.
	ErrEmptyUpstream = errors.New("upstream returned no records")

	// ErrInvalidRequest is returned when a command input fails validation.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrTransform is returned when an asset cannot be decoded or re-encoded.
	ErrTransform = errors.New("asset transform failed")

	// ErrStore wraps persistence failures.
	ErrStore = errors.New("store unavailable")
)

// Lookup errors.
var (
	// ErrCategoryNotFound indicates that no category exists for a defindex.
	ErrCategoryNotFound = errors.New("category not found")

	// ErrPaintNotFound indicates that no paint exists for a uuid.
	ErrPaintNotFound = errors.New("paint not found")
)
