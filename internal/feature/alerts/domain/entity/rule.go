// Package entity defines the domain models for the alerts feature.
package entity

import (
	"errors"
	"fmt"
)

// Severity is the urgency of a triggered alert.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	}
	return false
}

// RuleKind names one of the closed set of alert checks.
type RuleKind string

const (
	KindPriceMovement   RuleKind = "PRICE_MOVEMENT"
	KindMACrossover     RuleKind = "MA_CROSSOVER"
	KindMomentumExtreme RuleKind = "MOMENTUM_EXTREME"
	KindVolatilitySpike RuleKind = "VOLATILITY_SPIKE"
	KindVolumeSpike     RuleKind = "VOLUME_SPIKE"
)

// ErrInvalidRule is returned when stored rule configuration cannot be decoded.
var ErrInvalidRule = errors.New("invalid alert rule")

// RuleParams is implemented only by the parameter types in this package.
type RuleParams interface {
	Kind() RuleKind
	Validate() error
	sealed()
}

// PriceMovement fires on the absolute daily percent change.
type PriceMovement struct {
	WarningPct  float64
	CriticalPct float64
}

// MACrossover fires on an SMA20/SMA50 cross.
type MACrossover struct{}

// MomentumExtreme fires when RSI reaches either band.
type MomentumExtreme struct {
	Oversold   float64
	Overbought float64
}

// VolatilitySpike fires when volatility exceeds Multiple times its trailing average.
type VolatilitySpike struct {
	Multiple float64
	Severity Severity
}

// VolumeSpike fires when the latest volume exceeds Multiple times the Lookback average.
// The NGX source carries no volume, so this only fires once a volume history is supplied.
type VolumeSpike struct {
	Multiple float64
	Lookback int
	Severity Severity
}

func (PriceMovement) Kind() RuleKind   { return KindPriceMovement }
func (MACrossover) Kind() RuleKind     { return KindMACrossover }
func (MomentumExtreme) Kind() RuleKind { return KindMomentumExtreme }
func (VolatilitySpike) Kind() RuleKind { return KindVolatilitySpike }
func (VolumeSpike) Kind() RuleKind     { return KindVolumeSpike }

func (PriceMovement) sealed()   {}
func (MACrossover) sealed()     {}
func (MomentumExtreme) sealed() {}
func (VolatilitySpike) sealed() {}
func (VolumeSpike) sealed()     {}

func (p PriceMovement) Validate() error {
	if p.WarningPct <= 0 || p.CriticalPct < p.WarningPct {
		return fmt.Errorf("%w: price movement needs 0 < warning <= critical, got %g/%g", ErrInvalidRule, p.WarningPct, p.CriticalPct)
	}
	return nil
}

func (MACrossover) Validate() error { return nil }

func (p MomentumExtreme) Validate() error {
	if p.Oversold < 0 || p.Overbought > 100 || p.Oversold >= p.Overbought {
		return fmt.Errorf("%w: momentum needs 0 <= oversold < overbought <= 100, got %g/%g", ErrInvalidRule, p.Oversold, p.Overbought)
	}
	return nil
}

func (p VolatilitySpike) Validate() error {
	if p.Multiple <= 0 {
		return fmt.Errorf("%w: volatility multiple must be positive, got %g", ErrInvalidRule, p.Multiple)
	}
	if !p.Severity.Valid() {
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidRule, p.Severity)
	}
	return nil
}

func (p VolumeSpike) Validate() error {
	if p.Multiple <= 0 || p.Lookback < 1 {
		return fmt.Errorf("%w: volume spike needs multiple > 0 and lookback >= 1, got %g/%d", ErrInvalidRule, p.Multiple, p.Lookback)
	}
	if !p.Severity.Valid() {
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidRule, p.Severity)
	}
	return nil
}

// Rule is a named, decoded alert rule.
type Rule struct {
	Name   string
	Active bool
	Params RuleParams
}

// RuleRecord is the stored shape of a rule: a kind plus two untyped thresholds.
type RuleRecord struct {
	Name      string
	Kind      RuleKind
	Primary   float64
	Secondary float64
	Severity  Severity
	Active    bool
}

// Decode maps the stored thresholds onto the typed parameters of the rule kind.
//
//	PRICE_MOVEMENT    primary=warning %, secondary=critical %
//	MOMENTUM_EXTREME  primary=oversold, secondary=overbought
//	VOLATILITY_SPIKE  primary=multiple, severity
//	VOLUME_SPIKE      primary=multiple, secondary=lookback, severity
func (r RuleRecord) Decode() (Rule, error) {
	var p RuleParams
	switch r.Kind {
	case KindPriceMovement:
		p = PriceMovement{WarningPct: r.Primary, CriticalPct: r.Secondary}
	case KindMACrossover:
		p = MACrossover{}
	case KindMomentumExtreme:
		p = MomentumExtreme{Oversold: r.Primary, Overbought: r.Secondary}
	case KindVolatilitySpike:
		p = VolatilitySpike{Multiple: r.Primary, Severity: r.Severity}
	case KindVolumeSpike:
		p = VolumeSpike{Multiple: r.Primary, Lookback: int(r.Secondary), Severity: r.Severity}
	default:
		return Rule{}, fmt.Errorf("%w: %s: unknown kind %q", ErrInvalidRule, r.Name, r.Kind)
	}
	if err := p.Validate(); err != nil {
		return Rule{}, fmt.Errorf("%s: %w", r.Name, err)
	}
	return Rule{Name: r.Name, Active: r.Active, Params: p}, nil
}

// Encode is the inverse of Decode.
func (r Rule) Encode() RuleRecord {
	rec := RuleRecord{Name: r.Name, Active: r.Active}
	switch p := r.Params.(type) {
	case PriceMovement:
		rec.Kind, rec.Primary, rec.Secondary = p.Kind(), p.WarningPct, p.CriticalPct
	case MACrossover:
		rec.Kind = p.Kind()
	case MomentumExtreme:
		rec.Kind, rec.Primary, rec.Secondary = p.Kind(), p.Oversold, p.Overbought
	case VolatilitySpike:
		rec.Kind, rec.Primary, rec.Severity = p.Kind(), p.Multiple, p.Severity
	case VolumeSpike:
		rec.Kind, rec.Primary, rec.Secondary, rec.Severity = p.Kind(), p.Multiple, float64(p.Lookback), p.Severity
	}
	return rec
}

// DefaultRules is the rule set seeded into an empty store.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "Daily_Change", Active: true, Params: PriceMovement{WarningPct: 4, CriticalPct: 8}},
		{Name: "MA_Crossover", Active: true, Params: MACrossover{}},
		{Name: "RSI_Extreme", Active: true, Params: MomentumExtreme{Oversold: 30, Overbought: 70}},
		{Name: "Volatility_Spike", Active: true, Params: VolatilitySpike{Multiple: 2, Severity: SeverityWarning}},
		{Name: "Volume_Surge", Active: false, Params: VolumeSpike{Multiple: 2.5, Lookback: 20, Severity: SeverityInfo}},
	}
}
