// Package domain holds the sentinel errors of the indicators feature.
package domain

import "errors"

// ErrNoHistory is returned when an instrument has no persisted observations up to the requested date.
var ErrNoHistory = errors.New("no price history")

// ErrInvalidRange is returned when a query's end date precedes its start date.
var ErrInvalidRange = errors.New("invalid date range")
