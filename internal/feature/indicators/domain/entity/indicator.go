// Package entity defines the domain models for the indicators feature.
package entity

import "time"

// Cross classifies the SMA20/SMA50 relationship change between two snapshots.
type Cross string

const (
	CrossBullish Cross = "BULLISH"
	CrossBearish Cross = "BEARISH"
	CrossNeutral Cross = "NEUTRAL"
)

// Lookbacks are the minimum number of observations each field needs.
const (
	LookbackSMAShort   = 20
	LookbackSMALong    = 50
	LookbackRSI        = 14
	LookbackMACD       = 26
	LookbackMACDSignal = 35
	LookbackVolatility = 30
	LookbackBollinger  = 20
)

// Snapshot holds the indicators computed for one instrument on one date.
// A nil field means its lookback was not met.
type Snapshot struct {
	Code  string
	Date  time.Time
	Close float64

	SMA20 *float64
	SMA50 *float64
	RSI14 *float64

	MACDLine   *float64
	MACDSignal *float64
	MACDHist   *float64

	Volatility30 *float64 // annualized

	BBUpper  *float64
	BBMiddle *float64
	BBLower  *float64

	Cross        Cross
	Observations int
}

// MAState is the SMA20 versus SMA50 regime of a snapshot.
type MAState int

const (
	MAStateUnknown MAState = iota // either average missing, or equal
	MAStateGolden                 // SMA20 above SMA50
	MAStateDeath                  // SMA20 below SMA50
)

func (s Snapshot) MAState() MAState {
	if s.SMA20 == nil || s.SMA50 == nil {
		return MAStateUnknown
	}
	switch {
	case *s.SMA20 > *s.SMA50:
		return MAStateGolden
	case *s.SMA20 < *s.SMA50:
		return MAStateDeath
	}
	return MAStateUnknown
}
