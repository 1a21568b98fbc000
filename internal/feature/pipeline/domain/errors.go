package domain

import "errors"

// ErrNotFound is returned when no run has been recorded yet.
var ErrNotFound = errors.New("run not found")

// ErrRunInProgress is returned when a run is requested while another is still executing.
var ErrRunInProgress = errors.New("run already in progress")
