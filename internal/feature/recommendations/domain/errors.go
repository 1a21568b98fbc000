// Package domain holds the sentinel errors of the recommendations feature.
package domain

import "errors"

// ErrInvalidSignal is returned when a signal filter names an unknown class.
var ErrInvalidSignal = errors.New("invalid signal filter")
