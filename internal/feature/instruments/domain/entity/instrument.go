// Package entity defines the domain models for the instruments feature.
package entity

import "time"

// Instrument is a listed security tracked by the pipeline.
// Instruments are never hard-deleted; Deactivate clears IsActive instead.
type Instrument struct {
	Code        string // NGX ticker, e.g. "DANGCEM"
	Name        string
	Sector      string
	Exchange    string
	IsActive    bool
	FirstSeenAt time.Time
	UpdatedAt   time.Time
}

// SyncResult counts what an instrument upsert changed.
type SyncResult struct {
	Created   int
	Updated   int
	Unchanged int
}
