// Package entity defines the domain models for the recommendations feature.
package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Signal is the recommendation class.
type Signal string

const (
	SignalStrongBuy  Signal = "STRONG_BUY"
	SignalBuy        Signal = "BUY"
	SignalHold       Signal = "HOLD"
	SignalSell       Signal = "SELL"
	SignalStrongSell Signal = "STRONG_SELL"
)

func (s Signal) IsBuy() bool  { return s == SignalBuy || s == SignalStrongBuy }
func (s Signal) IsSell() bool { return s == SignalSell || s == SignalStrongSell }

// ParseSignal accepts any letter case and surrounding spaces.
func ParseSignal(s string) (Signal, error) {
	sig := Signal(strings.ToUpper(strings.TrimSpace(s)))
	switch sig {
	case SignalStrongBuy, SignalBuy, SignalHold, SignalSell, SignalStrongSell:
		return sig, nil
	}
	return "", fmt.Errorf("unknown signal %q", s)
}

type Risk string

const (
	RiskLow    Risk = "LOW"
	RiskMedium Risk = "MEDIUM"
	RiskHigh   Risk = "HIGH"
)

type Outcome string

const (
	OutcomeOngoing   Outcome = "ONGOING"
	OutcomeHitTarget Outcome = "HIT_TARGET"
	OutcomeHitStop   Outcome = "HIT_STOP"
	OutcomeExpired   Outcome = "EXPIRED"
)

type ScoreCategory string

const (
	CategoryExcellent ScoreCategory = "EXCELLENT"
	CategoryGood      ScoreCategory = "GOOD"
	CategoryFair      ScoreCategory = "FAIR"
	CategoryPoor      ScoreCategory = "POOR"
	CategoryVeryPoor  ScoreCategory = "VERY_POOR"
)

// CategoryOf buckets a composite score.
func CategoryOf(total float64) ScoreCategory {
	switch {
	case total >= 80:
		return CategoryExcellent
	case total >= 60:
		return CategoryGood
	case total >= 40:
		return CategoryFair
	case total >= 20:
		return CategoryPoor
	}
	return CategoryVeryPoor
}

// Score is the composite score and its components, each in [0, 100].
type Score struct {
	Total      float64
	Technical  float64
	Momentum   float64
	Volatility float64
	Trend      float64
	Volume     float64
	Category   ScoreCategory
}

// Recommendation is the signal issued for one instrument on one date.
// TargetPrice and StopLoss are null for HOLD.
type Recommendation struct {
	ID           uint
	Code         string
	Date         time.Time
	Signal       Signal
	Confidence   float64
	Score        Score
	CurrentPrice decimal.Decimal
	TargetPrice  decimal.NullDecimal
	StopLoss     decimal.NullDecimal
	Risk         Risk
	Reasons      []string

	Outcome     Outcome
	OutcomeDate *time.Time
	ExpiresOn   time.Time
}
