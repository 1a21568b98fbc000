package usecase

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"ngx_pipeline/internal/feature/recommendations/domain/entity"
	"ngx_pipeline/internal/shared/tradedate"
)

// AdvisorConfig filters and ages recommendations.
type AdvisorConfig struct {
	MinScore      float64
	MinConfidence float64
	HorizonDays   int
}

// DefaultAdvisorConfig returns MinScore 40, MinConfidence 0.5 and a 30 day horizon.
func DefaultAdvisorConfig() AdvisorConfig {
	return AdvisorConfig{MinScore: 40, MinConfidence: 0.5, HorizonDays: 30}
}

// Exclusion explains why a candidate produced no recommendation.
type Exclusion struct {
	Code   string
	Reason string
}

var targetMove = map[entity.Signal]float64{
	entity.SignalStrongBuy:  0.15,
	entity.SignalBuy:        0.10,
	entity.SignalSell:       -0.10,
	entity.SignalStrongSell: -0.15,
}

// Advisor assembles scored, filtered and ranked recommendations.
type Advisor struct {
	cfg AdvisorConfig
}

func NewAdvisor(cfg AdvisorConfig) *Advisor {
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = DefaultAdvisorConfig().HorizonDays
	}
	return &Advisor{cfg: cfg}
}

// Assess builds the recommendation for one candidate. The reason is set when ok is false.
func (a *Advisor) Assess(c Candidate) (rec entity.Recommendation, ok bool, reason string) {
	s := c.Current
	switch {
	case s.SMA20 == nil:
		return rec, false, "missing SMA20"
	case s.RSI14 == nil:
		return rec, false, "missing RSI14"
	case s.MACDLine == nil || s.MACDSignal == nil:
		return rec, false, "missing MACD"
	case c.Price <= 0:
		return rec, false, "missing price"
	}

	votes := Votes(c)
	signal, confidence := Aggregate(votes)
	score := ScoreCandidate(c)

	if score.Total < a.cfg.MinScore {
		return rec, false, fmt.Sprintf("score %.2f below %.2f", score.Total, a.cfg.MinScore)
	}
	if confidence < a.cfg.MinConfidence {
		return rec, false, fmt.Sprintf("confidence %.2f below %.2f", confidence, a.cfg.MinConfidence)
	}

	daily := DailyVolatilityPct(s.Volatility30)
	// unknown volatility is treated as moderate, never as low
	lowVol := daily != nil && *daily < 2.5

	date := tradedate.Normalize(c.Date)
	rec = entity.Recommendation{
		Code:         c.Code,
		Date:         date,
		Signal:       signal,
		Confidence:   round2(confidence),
		Score:        score,
		CurrentPrice: decimal.NewFromFloat(c.Price).Round(2),
		Risk:         assessRisk(daily, lowVol, confidence, score.Total, *s.RSI14),
		Reasons:      buildReasons(votes, score),
		Outcome:      entity.OutcomeOngoing,
		ExpiresOn:    date.AddDate(0, 0, a.cfg.HorizonDays),
	}

	if move, ok := targetMove[signal]; ok {
		buffer := 0.07
		if lowVol && confidence >= 0.7 {
			buffer = 0.05
		}
		stop := 1 - buffer
		if signal.IsSell() {
			stop = 1 + buffer
		}
		rec.TargetPrice = decimal.NewNullDecimal(decimal.NewFromFloat(c.Price * (1 + move)).Round(2))
		rec.StopLoss = decimal.NewNullDecimal(decimal.NewFromFloat(c.Price * stop).Round(2))
	}
	return rec, true, ""
}

// Rank assesses every candidate and orders the kept ones by score, confidence, then code.
func (a *Advisor) Rank(cs []Candidate) ([]entity.Recommendation, []Exclusion) {
	var recs []entity.Recommendation
	var excluded []Exclusion
	for _, c := range cs {
		rec, ok, reason := a.Assess(c)
		if !ok {
			excluded = append(excluded, Exclusion{Code: c.Code, Reason: reason})
			continue
		}
		recs = append(recs, rec)
	}
	SortRecommendations(recs)
	return recs, excluded
}

// SortRecommendations orders by score descending, confidence descending, code ascending.
func SortRecommendations(recs []entity.Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Score.Total != recs[j].Score.Total {
			return recs[i].Score.Total > recs[j].Score.Total
		}
		if recs[i].Confidence != recs[j].Confidence {
			return recs[i].Confidence > recs[j].Confidence
		}
		return recs[i].Code < recs[j].Code
	})
}

func assessRisk(daily *float64, lowVol bool, confidence, score, rsi float64) entity.Risk {
	if (daily != nil && *daily > 5) || confidence < 0.3 || score < 25 || rsi < 20 || rsi > 80 {
		return entity.RiskHigh
	}
	if lowVol && confidence >= 0.7 && score >= 70 {
		return entity.RiskLow
	}
	return entity.RiskMedium
}

func buildReasons(votes []Vote, score entity.Score) []string {
	var reasons []string
	for _, v := range votes {
		if v.Reason != "" {
			reasons = append(reasons, v.Reason)
		}
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "Mixed signals")
	}
	switch score.Category {
	case entity.CategoryExcellent:
		reasons = append(reasons, fmt.Sprintf("Excellent overall score (%.0f/100)", score.Total))
	case entity.CategoryGood:
		reasons = append(reasons, fmt.Sprintf("Good overall score (%.0f/100)", score.Total))
	}
	if score.Momentum >= 80 {
		reasons = append(reasons, "Strong price momentum")
	}
	if score.Volatility >= 85 {
		reasons = append(reasons, "Low volatility - stable investment")
	}
	if score.Trend >= 80 {
		reasons = append(reasons, "Strong upward trend")
	}
	return reasons
}
