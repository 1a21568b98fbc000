// Package domain holds the sentinel errors of the prices feature.
package domain

import "errors"

var (
	// ErrFatalSource is returned by a fetcher when retrying cannot help
	// (bad request, page layout changed, no table).
	ErrFatalSource = errors.New("source unavailable")

	// ErrInvalidObservation is returned when an observation breaks a store invariant.
	ErrInvalidObservation = errors.New("invalid price observation")

	// ErrNotFound is returned when no observation exists for the requested instrument.
	ErrNotFound = errors.New("price observation not found")
)
