// Package domain holds the sentinel errors of the instruments feature.
package domain

import "errors"

// ErrNotFound is returned when no instrument exists for the requested code.
var ErrNotFound = errors.New("instrument not found")
