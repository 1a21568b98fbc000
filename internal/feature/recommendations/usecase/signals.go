package usecase

import (
	"fmt"
	"time"

	indentity "ngx_pipeline/internal/feature/indicators/domain/entity"
	"ngx_pipeline/internal/feature/recommendations/domain/entity"
)

// Candidate is one instrument's latest indicators plus the history the scorer needs.
type Candidate struct {
	Code    string
	Date    time.Time
	Price   float64
	Current indentity.Snapshot
	// Prior holds snapshots before Current, ascending.
	Prior []indentity.Snapshot
	// VolumeRatio is latest volume over its trailing average; nil when the source has no volume.
	VolumeRatio *float64
}

// Vote is one sub-signal's weighted opinion.
type Vote struct {
	Source string
	Signal entity.Signal
	Weight float64
	Reason string
}

// Votes collects the sub-signals available for c. Indicators that are missing cast no vote.
func Votes(c Candidate) []Vote {
	var votes []Vote
	if v, ok := rsiVote(c.Current.RSI14); ok {
		votes = append(votes, v)
	}
	if v, ok := macdVote(c.Current.MACDLine, c.Current.MACDHist); ok {
		votes = append(votes, v)
	}
	if v, ok := maVote(c.Price, c.Current.SMA20, c.Current.SMA50); ok {
		votes = append(votes, v)
	}
	if v, ok := volumeVote(c.VolumeRatio); ok {
		votes = append(votes, v)
	}
	return votes
}

func rsiVote(rsi *float64) (Vote, bool) {
	if rsi == nil {
		return Vote{}, false
	}
	r := *rsi
	v := Vote{Source: "rsi"}
	switch {
	case r <= 20:
		v.Signal, v.Weight, v.Reason = entity.SignalStrongBuy, 1.5, fmt.Sprintf("RSI %.1f - Strongly oversold", r)
	case r <= 30:
		v.Signal, v.Weight, v.Reason = entity.SignalBuy, 1.0, fmt.Sprintf("RSI %.1f - Oversold", r)
	case r >= 80:
		v.Signal, v.Weight, v.Reason = entity.SignalStrongSell, 1.5, fmt.Sprintf("RSI %.1f - Strongly overbought", r)
	case r >= 70:
		v.Signal, v.Weight, v.Reason = entity.SignalSell, 1.0, fmt.Sprintf("RSI %.1f - Overbought", r)
	default:
		v.Signal, v.Weight = entity.SignalHold, 0.5
	}
	return v, true
}

func macdVote(line, hist *float64) (Vote, bool) {
	if line == nil || hist == nil {
		return Vote{}, false
	}
	l, h := *line, *hist
	v := Vote{Source: "macd"}
	switch {
	case h > 0 && l > 0:
		v.Signal, v.Weight, v.Reason = entity.SignalStrongBuy, 1.2, fmt.Sprintf("MACD bullish crossover (%.2f)", l)
	case h > 0:
		v.Signal, v.Weight, v.Reason = entity.SignalBuy, 0.8, fmt.Sprintf("MACD above signal (%.2f)", l)
	case h < 0 && l < 0:
		v.Signal, v.Weight, v.Reason = entity.SignalStrongSell, 1.2, fmt.Sprintf("MACD bearish crossover (%.2f)", l)
	case h < 0:
		v.Signal, v.Weight, v.Reason = entity.SignalSell, 0.8, fmt.Sprintf("MACD below signal (%.2f)", l)
	default:
		v.Signal, v.Weight = entity.SignalHold, 0.3
	}
	return v, true
}

func maVote(price float64, sma20, sma50 *float64) (Vote, bool) {
	if sma20 == nil {
		return Vote{}, false
	}
	v := Vote{Source: "ma"}
	if sma50 != nil && *sma20 != *sma50 {
		if *sma20 > *sma50 {
			v.Signal, v.Weight, v.Reason = entity.SignalStrongBuy, 1.3, fmt.Sprintf("Golden Cross - SMA20 (%.2f) > SMA50 (%.2f)", *sma20, *sma50)
		} else {
			v.Signal, v.Weight, v.Reason = entity.SignalStrongSell, 1.3, fmt.Sprintf("Death Cross - SMA20 (%.2f) < SMA50 (%.2f)", *sma20, *sma50)
		}
		return v, true
	}
	if *sma20 == 0 {
		return Vote{}, false
	}
	diff := (price - *sma20) / *sma20 * 100
	switch {
	case diff > 5:
		v.Signal, v.Weight, v.Reason = entity.SignalBuy, 0.7, fmt.Sprintf("Price (%.2f) > SMA20 (%.2f)", price, *sma20)
	case diff < -5:
		v.Signal, v.Weight, v.Reason = entity.SignalSell, 0.7, fmt.Sprintf("Price (%.2f) < SMA20 (%.2f)", price, *sma20)
	default:
		v.Signal, v.Weight = entity.SignalHold, 0.5
	}
	return v, true
}

func volumeVote(ratio *float64) (Vote, bool) {
	if ratio == nil {
		return Vote{}, false
	}
	r := *ratio
	switch {
	case r > 2.0:
		return Vote{Source: "volume", Signal: entity.SignalBuy, Weight: 0.6, Reason: fmt.Sprintf("High volume support (%.1fx average)", r)}, true
	case r > 1.5:
		return Vote{Source: "volume", Signal: entity.SignalBuy, Weight: 0.4, Reason: fmt.Sprintf("High volume support (%.1fx average)", r)}, true
	case r < 0.5:
		return Vote{Source: "volume", Signal: entity.SignalHold, Weight: 0.2}, true
	}
	return Vote{}, false
}

// Aggregate combines votes into one signal and a confidence in [0.1, 0.95].
func Aggregate(votes []Vote) (entity.Signal, float64) {
	var total float64
	share := map[entity.Signal]float64{}
	for _, v := range votes {
		share[v.Signal] += v.Weight
		total += v.Weight
	}
	if total <= 0 {
		return entity.SignalHold, 0.5
	}
	for k := range share {
		share[k] /= total
	}

	buy := share[entity.SignalStrongBuy] + share[entity.SignalBuy]
	sell := share[entity.SignalStrongSell] + share[entity.SignalSell]
	hold := share[entity.SignalHold]

	pick := func(buySide bool) entity.Signal {
		if buySide {
			if share[entity.SignalStrongBuy] >= share[entity.SignalBuy] {
				return entity.SignalStrongBuy
			}
			return entity.SignalBuy
		}
		if share[entity.SignalStrongSell] >= share[entity.SignalSell] {
			return entity.SignalStrongSell
		}
		return entity.SignalSell
	}

	var sig entity.Signal
	var conf float64
	switch {
	case buy > 0.3 && sell > 0.3:
		buySide := buy >= sell
		sig = towardHold(pick(buySide))
		conf = max(buy, sell) * 0.6
	case hold > 0.5:
		sig, conf = entity.SignalHold, hold
	case buy > sell:
		sig, conf = pick(true), buy
	case sell > buy:
		sig, conf = pick(false), sell
	default:
		sig, conf = entity.SignalHold, hold
	}
	return sig, clamp(conf, 0.1, 0.95)
}

// towardHold steps a class one notch toward HOLD.
func towardHold(s entity.Signal) entity.Signal {
	switch s {
	case entity.SignalStrongBuy:
		return entity.SignalBuy
	case entity.SignalStrongSell:
		return entity.SignalSell
	}
	return entity.SignalHold
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
