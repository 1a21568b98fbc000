// Package domain holds the sentinel errors of the alerts feature.
package domain

import "errors"

// ErrNotFound is returned when no alert exists for the requested id.
var ErrNotFound = errors.New("alert not found")

// ErrAlreadyResolved is returned when resolving an alert twice.
var ErrAlreadyResolved = errors.New("alert already resolved")
