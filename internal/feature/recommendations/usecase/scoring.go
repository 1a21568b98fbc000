package usecase

import (
	"math"

	indentity "ngx_pipeline/internal/feature/indicators/domain/entity"
	"ngx_pipeline/internal/feature/recommendations/domain/entity"
)

const (
	weightTechnical  = 0.30
	weightMomentum   = 0.25
	weightVolatility = 0.20
	weightTrend      = 0.15
	weightVolume     = 0.10

	neutralScore    = 50
	tradingDays     = 252
	maxPersistence  = 15
	lowVolDailyPct  = 2.0
	highVolDailyPct = 7.0
)

// ScoreCandidate computes the composite score for c.
func ScoreCandidate(c Candidate) entity.Score {
	s := entity.Score{
		Technical:  technicalScore(c.Current),
		Momentum:   momentumScore(c.Price, c.Current.SMA20, c.Current.SMA50),
		Volatility: volatilityScore(c.Current.Volatility30),
		Trend:      trendScore(c.Current, Persistence(c.Current, c.Prior)),
		Volume:     neutralScore,
	}
	total := weightTechnical*s.Technical +
		weightMomentum*s.Momentum +
		weightVolatility*s.Volatility +
		weightTrend*s.Trend +
		weightVolume*s.Volume
	s.Total = round2(clamp(total, 0, 100))
	s.Category = entity.CategoryOf(s.Total)
	return s
}

// DailyVolatilityPct converts annualized volatility to a daily percent.
func DailyVolatilityPct(annualized *float64) *float64 {
	if annualized == nil {
		return nil
	}
	d := *annualized / math.Sqrt(tradingDays) * 100
	return &d
}

func technicalScore(s indentity.Snapshot) float64 {
	var parts []float64
	if s.RSI14 != nil {
		parts = append(parts, rsiBandScore(*s.RSI14))
	}
	if s.MACDLine != nil && s.MACDHist != nil {
		parts = append(parts, macdScore(*s.MACDLine, *s.MACDHist))
	}
	return mean(parts)
}

func rsiBandScore(r float64) float64 {
	switch {
	case r >= 40 && r <= 60:
		return 100
	case (r >= 30 && r < 40) || (r > 60 && r <= 70):
		return 80
	case (r >= 20 && r < 30) || (r > 70 && r <= 80):
		return 60
	case r < 20:
		return 40
	}
	return 20
}

func macdScore(line, hist float64) float64 {
	switch {
	case hist > 0 && line > 0:
		return 100
	case hist > 0:
		return 80
	case hist < 0 && line < 0:
		return 20
	case hist < 0:
		return 40
	}
	return 60
}

func momentumScore(price float64, mas ...*float64) float64 {
	var parts []float64
	for _, ma := range mas {
		if ma == nil || *ma == 0 {
			continue
		}
		d := (price - *ma) / *ma * 100
		if d > 0 {
			parts = append(parts, math.Min(100, 70+3*d))
		} else {
			parts = append(parts, math.Max(20, 50+2*d))
		}
	}
	return mean(parts)
}

func volatilityScore(annualized *float64) float64 {
	daily := DailyVolatilityPct(annualized)
	if daily == nil {
		return neutralScore
	}
	switch {
	case *daily <= lowVolDailyPct:
		return 100
	case *daily >= highVolDailyPct:
		return 20
	}
	return 100 - (*daily-lowVolDailyPct)/(highVolDailyPct-lowVolDailyPct)*80
}

func trendScore(s indentity.Snapshot, persistence int) float64 {
	p := float64(min(persistence, maxPersistence))
	switch s.MAState() {
	case indentity.MAStateGolden:
		return 70 + 2*p
	case indentity.MAStateDeath:
		return 30 - 2*p
	}
	return neutralScore
}

// Persistence counts the consecutive most recent prior snapshots sharing current's MA state.
func Persistence(current indentity.Snapshot, prior []indentity.Snapshot) int {
	state := current.MAState()
	if state == indentity.MAStateUnknown {
		return 0
	}
	n := 0
	for i := len(prior) - 1; i >= 0; i-- {
		if prior[i].MAState() != state {
			break
		}
		n++
	}
	return n
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return neutralScore
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
