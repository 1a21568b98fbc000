// Package entity defines the domain models for the prices feature.
package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// QualityTier classifies how trustworthy and complete a price record is.
type QualityTier string

const (
	QualityGood       QualityTier = "GOOD"
	QualityIncomplete QualityTier = "INCOMPLETE"
	QualitySuspicious QualityTier = "SUSPICIOUS"
	QualityPoor       QualityTier = "POOR" // close missing or not positive; never persisted
)

// DefaultExchange is the only exchange the NGX source reports.
const DefaultExchange = "NGX"

// RawRecord is one row as scraped from the source, before any parsing.
type RawRecord struct {
	Code      string
	Name      string
	Sector    string
	Exchange  string
	Close     string // e.g. "₦1,234.56"
	DailyPct  string // e.g. "-8.5%"
	YTDPct    string // e.g. "+1,354.00%"
	MarketCap string // free-form label, e.g. "1.2T"
}

// Quote is a parsed record. Numeric fields are null when the raw token was missing or unparseable.
type Quote struct {
	Code      string
	Name      string
	Sector    string
	Exchange  string
	Date      time.Time
	Close     decimal.NullDecimal
	DailyPct  decimal.NullDecimal
	YTDPct    decimal.NullDecimal
	MarketCap string
	Source    string

	Quality     QualityTier
	QualityNote string
}

// PriceObservation is the persisted daily close of one instrument.
type PriceObservation struct {
	Code      string
	Date      time.Time
	Close     decimal.Decimal
	DailyPct  decimal.NullDecimal
	YTDPct    decimal.NullDecimal
	MarketCap string
	Source    string
	Quality   QualityTier
	Complete  bool
	UpdatedAt time.Time
}

// BatchFailure describes one bulk-upsert batch that was rolled back.
// Start and End are the half-open record range [Start, End) of the input slice.
type BatchFailure struct {
	Index int
	Start int
	End   int
	Err   error
}

func (f BatchFailure) Error() string {
	return fmt.Sprintf("batch %d (records %d-%d): %v", f.Index+1, f.Start, f.End-1, f.Err)
}

func (f BatchFailure) Unwrap() error { return f.Err }

// BulkUpsertResult reports how many rows were committed and which batches failed.
type BulkUpsertResult struct {
	Loaded int
	Failed []BatchFailure
}
