package usecase

import (
	"math"
	"time"

	"ngx_pipeline/internal/feature/indicators/domain/entity"
)

// tradingDays annualizes daily volatility.
const tradingDays = 252

const (
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
	bbWidth    = 2.0
)

// Point is one close of an ascending price series.
type Point struct {
	Date  time.Time
	Close float64
}

func ptr(v float64) *float64 { return &v }

// SMA returns the mean of the last n closes, or nil with fewer than n.
func SMA(closes []float64, n int) *float64 {
	if n <= 0 || len(closes) < n {
		return nil
	}
	var sum float64
	for _, c := range closes[len(closes)-n:] {
		sum += c
	}
	return ptr(sum / float64(n))
}

// RSI uses the simple average gain and loss over the close-to-close changes
// inside the trailing n observations. A zero average loss yields 100 even when
// the average gain is zero too.
func RSI(closes []float64, n int) *float64 {
	if n < 2 || len(closes) < n {
		return nil
	}
	window := closes[len(closes)-n:]
	var gain, loss float64
	for i := 1; i < len(window); i++ {
		d := window[i] - window[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	changes := float64(len(window) - 1)
	avgGain, avgLoss := gain/changes, loss/changes

	if avgLoss == 0 {
		return ptr(100)
	}
	if avgGain == 0 {
		return ptr(0)
	}
	rs := avgGain / avgLoss
	return ptr(clamp(100-100/(1+rs), 0, 100))
}

// EMA returns the exponential moving average series of values, seeded with
// the first value, with alpha = 2/(n+1).
func EMA(values []float64, n int) []float64 {
	if len(values) == 0 || n <= 0 {
		return nil
	}
	alpha := 2 / float64(n+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// MACDResult holds the 12/26/9 MACD at the last point.
type MACDResult struct {
	Line   *float64
	Signal *float64
	Hist   *float64
}

// MACD needs 26 closes for the line and 35 for the signal and histogram.
// The signal is the EMA9 of the line series starting where EMA26 has a full window.
func MACD(closes []float64) MACDResult {
	var r MACDResult
	if len(closes) < entity.LookbackMACD {
		return r
	}
	fast := EMA(closes, macdFast)
	slow := EMA(closes, macdSlow)

	start := macdSlow - 1
	lines := make([]float64, 0, len(closes)-start)
	for i := start; i < len(closes); i++ {
		lines = append(lines, fast[i]-slow[i])
	}
	line := lines[len(lines)-1]
	r.Line = ptr(line)

	if len(closes) < entity.LookbackMACDSignal {
		return r
	}
	sig := EMA(lines, macdSignal)
	signal := sig[len(sig)-1]
	r.Signal = ptr(signal)
	r.Hist = ptr(line - signal)
	return r
}

// Volatility is the sample standard deviation of daily fractional returns
// inside the trailing n observations, annualized by sqrt(252).
func Volatility(closes []float64, n int) *float64 {
	if n < 3 || len(closes) < n {
		return nil
	}
	window := closes[len(closes)-n:]
	returns := make([]float64, 0, n-1)
	for i := 1; i < len(window); i++ {
		if window[i-1] <= 0 {
			return nil
		}
		returns = append(returns, window[i]/window[i-1]-1)
	}
	sd, ok := sampleStdDev(returns)
	if !ok {
		return nil
	}
	return ptr(sd * math.Sqrt(tradingDays))
}

// BollingerResult holds the bands at the last point.
type BollingerResult struct {
	Upper  *float64
	Middle *float64
	Lower  *float64
}

// Bollinger returns SMA(n) plus and minus k sample standard deviations.
func Bollinger(closes []float64, n int, k float64) BollingerResult {
	mid := SMA(closes, n)
	if mid == nil {
		return BollingerResult{}
	}
	sd, ok := sampleStdDev(closes[len(closes)-n:])
	if !ok {
		return BollingerResult{}
	}
	return BollingerResult{
		Upper:  ptr(*mid + k*sd),
		Middle: mid,
		Lower:  ptr(*mid - k*sd),
	}
}

// ClassifyCross compares the short/long averages of two consecutive snapshots.
func ClassifyCross(prevShort, prevLong, curShort, curLong *float64) entity.Cross {
	if prevShort == nil || prevLong == nil || curShort == nil || curLong == nil {
		return entity.CrossNeutral
	}
	switch {
	case *prevShort <= *prevLong && *curShort > *curLong:
		return entity.CrossBullish
	case *prevShort >= *prevLong && *curShort < *curLong:
		return entity.CrossBearish
	}
	return entity.CrossNeutral
}

// Compute returns the snapshot at the last point of history and the snapshot
// of history[:len-1]. prior is nil when history has fewer than two points;
// ok is false when history is empty.
func Compute(code string, history []Point) (current entity.Snapshot, prior *entity.Snapshot, ok bool) {
	if len(history) == 0 {
		return entity.Snapshot{}, nil, false
	}
	closes := make([]float64, len(history))
	for i, p := range history {
		closes[i] = p.Close
	}

	current = snapshotAt(code, history[len(history)-1].Date, closes)
	if len(history) >= 2 {
		p := snapshotAt(code, history[len(history)-2].Date, closes[:len(closes)-1])
		p.Cross = entity.CrossNeutral
		prior = &p
		current.Cross = ClassifyCross(p.SMA20, p.SMA50, current.SMA20, current.SMA50)
	}
	return current, prior, true
}

func snapshotAt(code string, date time.Time, closes []float64) entity.Snapshot {
	macd := MACD(closes)
	bb := Bollinger(closes, entity.LookbackBollinger, bbWidth)
	return entity.Snapshot{
		Code:         code,
		Date:         date,
		Close:        closes[len(closes)-1],
		SMA20:        SMA(closes, entity.LookbackSMAShort),
		SMA50:        SMA(closes, entity.LookbackSMALong),
		RSI14:        RSI(closes, entity.LookbackRSI),
		MACDLine:     macd.Line,
		MACDSignal:   macd.Signal,
		MACDHist:     macd.Hist,
		Volatility30: Volatility(closes, entity.LookbackVolatility),
		BBUpper:      bb.Upper,
		BBMiddle:     bb.Middle,
		BBLower:      bb.Lower,
		Cross:        entity.CrossNeutral,
		Observations: len(closes),
	}
}

func sampleStdDev(xs []float64) (float64, bool) {
	if len(xs) < 2 {
		return 0, false
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1)), true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
