package usecase

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"ngx_pipeline/internal/feature/alerts/domain/entity"
	indentity "ngx_pipeline/internal/feature/indicators/domain/entity"
)

// Input is everything the rule checks may look at for one instrument on one date.
// Nil fields are missing inputs; rules that need them skip quietly.
type Input struct {
	Code     string
	Date     time.Time
	DailyPct *float64

	Current *indentity.Snapshot
	Prior   *indentity.Snapshot

	// TrailingVolatility is the average annualized volatility of recent prior snapshots.
	TrailingVolatility *float64

	// Volumes is ascending with the evaluation date last. Empty for the NGX source.
	Volumes []float64
}

// Skip records a rule that was not evaluated.
type Skip struct {
	Rule   string
	Reason string
}

// Evaluation is the outcome of running a rule set over one Input.
type Evaluation struct {
	Alerts  []entity.Alert
	Skipped []Skip
}

type checkFunc func(in Input, rule entity.Rule) (entity.Alert, bool)

var checks = map[entity.RuleKind]checkFunc{
	entity.KindPriceMovement:   checkPriceMovement,
	entity.KindMACrossover:     checkMACrossover,
	entity.KindMomentumExtreme: checkMomentumExtreme,
	entity.KindVolatilitySpike: checkVolatilitySpike,
	entity.KindVolumeSpike:     checkVolumeSpike,
}

// Evaluate runs every rule against in and returns triggered alerts in rule order.
// Inactive, malformed and unknown rules are reported in Skipped and never stop the others.
func Evaluate(in Input, rules []entity.Rule) Evaluation {
	var ev Evaluation
	for _, r := range rules {
		if !r.Active {
			ev.Skipped = append(ev.Skipped, Skip{Rule: r.Name, Reason: "inactive"})
			continue
		}
		if r.Params == nil {
			ev.Skipped = append(ev.Skipped, Skip{Rule: r.Name, Reason: "no parameters"})
			continue
		}
		if err := r.Params.Validate(); err != nil {
			ev.Skipped = append(ev.Skipped, Skip{Rule: r.Name, Reason: err.Error()})
			continue
		}
		check, ok := checks[r.Params.Kind()]
		if !ok {
			ev.Skipped = append(ev.Skipped, Skip{Rule: r.Name, Reason: "unknown kind " + string(r.Params.Kind())})
			continue
		}
		a, fired := check(in, r)
		if !fired {
			continue
		}
		a.Code = in.Code
		a.RuleName = r.Name
		a.Kind = r.Params.Kind()
		a.Date = in.Date
		ev.Alerts = append(ev.Alerts, a)
	}
	return ev
}

func formatThreshold(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func checkPriceMovement(in Input, rule entity.Rule) (entity.Alert, bool) {
	p, ok := rule.Params.(entity.PriceMovement)
	if !ok {
		return entity.Alert{}, false
	}
	if in.DailyPct == nil {
		return entity.Alert{}, false
	}
	pct := *in.DailyPct
	mag := math.Abs(pct)

	var sev entity.Severity
	var threshold float64
	switch {
	case mag >= p.CriticalPct:
		sev, threshold = entity.SeverityCritical, p.CriticalPct
	case mag >= p.WarningPct:
		sev, threshold = entity.SeverityWarning, p.WarningPct
	default:
		return entity.Alert{}, false
	}
	direction := "increased"
	if pct < 0 {
		direction = "decreased"
	}
	return entity.Alert{
		Severity:     sev,
		TriggerValue: pct,
		Threshold:    threshold,
		Message:      fmt.Sprintf("%s %s by %.2f%% (threshold: %s%%)", in.Code, direction, mag, formatThreshold(threshold)),
	}, true
}

func crossOf(in Input) indentity.Cross {
	if in.Current == nil {
		return indentity.CrossNeutral
	}
	if in.Current.Cross != "" {
		return in.Current.Cross
	}
	if in.Prior == nil {
		return indentity.CrossNeutral
	}
	prev, cur := in.Prior.MAState(), in.Current.MAState()
	switch {
	case prev == indentity.MAStateDeath && cur == indentity.MAStateGolden:
		return indentity.CrossBullish
	case prev == indentity.MAStateGolden && cur == indentity.MAStateDeath:
		return indentity.CrossBearish
	}
	return indentity.CrossNeutral
}

func checkMACrossover(in Input, _ entity.Rule) (entity.Alert, bool) {
	if in.Current == nil || in.Current.SMA20 == nil || in.Current.SMA50 == nil {
		return entity.Alert{}, false
	}
	gap := *in.Current.SMA20 - *in.Current.SMA50
	switch crossOf(in) {
	case indentity.CrossBullish:
		return entity.Alert{
			Severity:     entity.SeverityInfo,
			TriggerValue: gap,
			Message:      in.Code + ": Bullish crossover detected (Golden Cross)",
		}, true
	case indentity.CrossBearish:
		return entity.Alert{
			Severity:     entity.SeverityWarning,
			TriggerValue: gap,
			Message:      in.Code + ": Bearish crossover detected (Death Cross)",
		}, true
	}
	return entity.Alert{}, false
}

func checkMomentumExtreme(in Input, rule entity.Rule) (entity.Alert, bool) {
	p, ok := rule.Params.(entity.MomentumExtreme)
	if !ok {
		return entity.Alert{}, false
	}
	if in.Current == nil || in.Current.RSI14 == nil {
		return entity.Alert{}, false
	}
	rsi := *in.Current.RSI14
	switch {
	case rsi <= p.Oversold:
		return entity.Alert{
			Severity:     entity.SeverityInfo,
			TriggerValue: rsi,
			Threshold:    p.Oversold,
			Message:      fmt.Sprintf("%s: RSI oversold at %.2f (threshold: %s)", in.Code, rsi, formatThreshold(p.Oversold)),
		}, true
	case rsi >= p.Overbought:
		return entity.Alert{
			Severity:     entity.SeverityWarning,
			TriggerValue: rsi,
			Threshold:    p.Overbought,
			Message:      fmt.Sprintf("%s: RSI overbought at %.2f (threshold: %s)", in.Code, rsi, formatThreshold(p.Overbought)),
		}, true
	}
	return entity.Alert{}, false
}

func checkVolatilitySpike(in Input, rule entity.Rule) (entity.Alert, bool) {
	p, ok := rule.Params.(entity.VolatilitySpike)
	if !ok {
		return entity.Alert{}, false
	}
	if in.Current == nil || in.Current.Volatility30 == nil || in.TrailingVolatility == nil || *in.TrailingVolatility <= 0 {
		return entity.Alert{}, false
	}
	vol := *in.Current.Volatility30
	limit := p.Multiple * *in.TrailingVolatility
	if vol <= limit {
		return entity.Alert{}, false
	}
	return entity.Alert{
		Severity:     p.Severity,
		TriggerValue: vol,
		Threshold:    limit,
		Message: fmt.Sprintf("%s: High volatility detected at %.2f%% (threshold: %sx average %.2f%%)",
			in.Code, vol*100, formatThreshold(p.Multiple), *in.TrailingVolatility*100),
	}, true
}

func checkVolumeSpike(in Input, rule entity.Rule) (entity.Alert, bool) {
	p, ok := rule.Params.(entity.VolumeSpike)
	if !ok {
		return entity.Alert{}, false
	}
	if len(in.Volumes) < p.Lookback+1 {
		return entity.Alert{}, false
	}
	latest := in.Volumes[len(in.Volumes)-1]
	window := in.Volumes[len(in.Volumes)-1-p.Lookback : len(in.Volumes)-1]
	var sum float64
	for _, v := range window {
		sum += v
	}
	avg := sum / float64(len(window))
	if avg <= 0 || latest < avg*p.Multiple {
		return entity.Alert{}, false
	}
	return entity.Alert{
		Severity:     p.Severity,
		TriggerValue: latest,
		Threshold:    avg * p.Multiple,
		Message:      fmt.Sprintf("%s: Volume spike detected - %.0f (%.1fx average)", in.Code, latest, latest/avg),
	}, true
}
