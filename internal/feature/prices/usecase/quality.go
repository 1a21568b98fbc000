package usecase

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"ngx_pipeline/internal/feature/prices/domain/entity"
	"ngx_pipeline/internal/shared/tradedate"
)

// QualityInput は品質判定の対象となる4つのフィールドです。
type QualityInput struct {
	Close     decimal.NullDecimal
	DailyPct  decimal.NullDecimal
	YTDPct    decimal.NullDecimal
	MarketCap string
}

// QualityBounds は SUSPICIOUS 判定の閾値です。0 の場合その判定は無効です。
type QualityBounds struct {
	MaxAbsDailyPct   float64
	MaxDayOverDayPct float64
}

// Classification は品質区分と監査用のメッセージです。
type Classification struct {
	Tier    entity.QualityTier
	Message string
	Missing []string
}

var hundred = decimal.NewFromInt(100)

// ClassifyQuality はレコードを品質区分に分類します。
// 全ての入力の組み合わせに対してちょうど1つの区分を返し、panic しません。
func ClassifyQuality(in QualityInput, prior *decimal.Decimal, b QualityBounds) Classification {
	if !in.Close.Valid {
		return Classification{Tier: entity.QualityPoor, Message: "close price missing", Missing: []string{"close"}}
	}
	if !in.Close.Decimal.IsPositive() {
		return Classification{
			Tier:    entity.QualityPoor,
			Message: fmt.Sprintf("close price must be positive, got %s", in.Close.Decimal.String()),
		}
	}

	if b.MaxAbsDailyPct > 0 && in.DailyPct.Valid {
		limit := decimal.NewFromFloat(b.MaxAbsDailyPct)
		if in.DailyPct.Decimal.Abs().GreaterThan(limit) {
			return Classification{
				Tier:    entity.QualitySuspicious,
				Message: fmt.Sprintf("daily change %s%% exceeds %s%%", in.DailyPct.Decimal.StringFixed(2), limit.String()),
			}
		}
	}
	if b.MaxDayOverDayPct > 0 && prior != nil && prior.IsPositive() {
		move := in.Close.Decimal.Sub(*prior).Abs().Div(*prior).Mul(hundred)
		limit := decimal.NewFromFloat(b.MaxDayOverDayPct)
		if move.GreaterThan(limit) {
			return Classification{
				Tier: entity.QualitySuspicious,
				Message: fmt.Sprintf("close moved %s%% from prior %s, exceeds %s%%",
					move.StringFixed(2), prior.String(), limit.String()),
			}
		}
	}

	var missing []string
	if !in.DailyPct.Valid {
		missing = append(missing, "daily_pct")
	}
	if !in.YTDPct.Valid {
		missing = append(missing, "ytd_pct")
	}
	if in.MarketCap == "" {
		missing = append(missing, "market_cap")
	}
	if len(missing) == 0 {
		return Classification{Tier: entity.QualityGood}
	}
	return Classification{
		Tier:    entity.QualityIncomplete,
		Message: "missing " + strings.Join(missing, ", "),
		Missing: missing,
	}
}

// ValidationResult は Validator.Validate の結果です。
type ValidationResult struct {
	// Accepted は永続化対象のレコード（POOR 以外）です。
	Accepted []entity.Quote
	Rejected []entity.Quote
	Counts   map[entity.QualityTier]int
	Warnings []string
	Errors   []string
}

// Validator はレコードの一括監査を行います。
type Validator struct {
	bounds    QualityBounds
	exchanges map[string]struct{}
	sectors   map[string]struct{}
}

// NewValidator は Validator を生成します。
// validExchanges が空の場合は NGX のみを有効とします。knownSectors が空の場合は業種チェックを行いません。
func NewValidator(bounds QualityBounds, validExchanges, knownSectors []string) *Validator {
	if len(validExchanges) == 0 {
		validExchanges = []string{entity.DefaultExchange}
	}
	v := &Validator{
		bounds:    bounds,
		exchanges: make(map[string]struct{}, len(validExchanges)),
		sectors:   make(map[string]struct{}, len(knownSectors)),
	}
	for _, e := range validExchanges {
		v.exchanges[strings.ToUpper(strings.TrimSpace(e))] = struct{}{}
	}
	for _, s := range knownSectors {
		v.sectors[s] = struct{}{}
	}
	return v
}

// Validate は各レコードに品質区分を設定し、監査結果を返します。
// priors は前営業日以前の終値で、SUSPICIOUS 判定にのみ使用されます。
func (v *Validator) Validate(quotes []entity.Quote, priors map[string]decimal.Decimal) ValidationResult {
	res := ValidationResult{
		Accepted: make([]entity.Quote, 0, len(quotes)),
		Counts:   make(map[entity.QualityTier]int, 4),
	}
	seen := make(map[string]struct{}, len(quotes))

	for i, q := range quotes {
		if q.Code == "" {
			res.Errors = append(res.Errors, fmt.Sprintf("record %d: empty instrument code", i))
			res.Rejected = append(res.Rejected, q)
			continue
		}
		if _, ok := v.exchanges[q.Exchange]; !ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: unknown exchange %q", q.Code, q.Exchange))
		}
		if len(v.sectors) > 0 {
			if _, ok := v.sectors[q.Sector]; !ok {
				res.Warnings = append(res.Warnings, fmt.Sprintf("%s: unknown sector %q", q.Code, q.Sector))
			}
		}
		key := q.Code + "|" + tradedate.Format(q.Date)
		if _, dup := seen[key]; dup {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: duplicate record for %s", q.Code, tradedate.Format(q.Date)))
		}
		seen[key] = struct{}{}

		var prior *decimal.Decimal
		if p, ok := priors[q.Code]; ok {
			prior = &p
		}
		c := ClassifyQuality(QualityInput{
			Close:     q.Close,
			DailyPct:  q.DailyPct,
			YTDPct:    q.YTDPct,
			MarketCap: q.MarketCap,
		}, prior, v.bounds)
		q.Quality = c.Tier
		q.QualityNote = c.Message
		res.Counts[c.Tier]++

		switch c.Tier {
		case entity.QualityPoor:
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: rejected, %s", q.Code, c.Message))
			res.Rejected = append(res.Rejected, q)
		case entity.QualitySuspicious:
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: suspicious, %s", q.Code, c.Message))
			res.Accepted = append(res.Accepted, q)
		default:
			res.Accepted = append(res.Accepted, q)
		}
	}
	return res
}
