package usecase

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ngx_pipeline/internal/feature/prices/domain/entity"
)

// TestClassifyQuality_Totality は全てのフィールド有無の組み合わせに対して区分がちょうど1つ返ることを検証します。
func TestClassifyQuality_Totality(t *testing.T) {
	t.Parallel()

	valid := []entity.QualityTier{entity.QualityGood, entity.QualityIncomplete, entity.QualityPoor, entity.QualitySuspicious}

	for mask := 0; mask < 16; mask++ {
		for _, closeValue := range []string{"100", "0", "-3"} {
			in := QualityInput{}
			if mask&1 != 0 {
				in.Close = decimal.NewNullDecimal(decimal.RequireFromString(closeValue))
			}
			if mask&2 != 0 {
				in.DailyPct = decimal.NewNullDecimal(decimal.NewFromInt(1))
			}
			if mask&4 != 0 {
				in.YTDPct = decimal.NewNullDecimal(decimal.NewFromInt(5))
			}
			if mask&8 != 0 {
				in.MarketCap = "1.2T"
			}

			var c Classification
			require.NotPanics(t, func() { c = ClassifyQuality(in, nil, QualityBounds{}) })
			assert.Contains(t, valid, c.Tier)

			switch {
			case mask&1 == 0 || closeValue != "100":
				assert.Equal(t, entity.QualityPoor, c.Tier, "mask=%04b close=%s", mask, closeValue)
				assert.NotEmpty(t, c.Message)
			case mask == 15:
				assert.Equal(t, entity.QualityGood, c.Tier)
			default:
				assert.Equal(t, entity.QualityIncomplete, c.Tier, "mask=%04b", mask)
			}
		}
	}
}

func TestClassifyQuality(t *testing.T) {
	t.Parallel()

	nd := func(s string) decimal.NullDecimal { return decimal.NewNullDecimal(decimal.RequireFromString(s)) }
	prior := decimal.NewFromInt(100)

	tests := []struct {
		name     string
		in       QualityInput
		prior    *decimal.Decimal
		bounds   QualityBounds
		wantTier entity.QualityTier
		wantMsg  string
	}{
		{
			name:     "scenario: daily change missing is incomplete",
			in:       QualityInput{Close: ParsePrice("₦100.00"), YTDPct: ParsePercent("+5.00%"), MarketCap: "1.2T"},
			wantTier: entity.QualityIncomplete,
			wantMsg:  "daily_pct",
		},
		{
			name:     "poor: negative close names the value",
			in:       QualityInput{Close: nd("-1.5")},
			wantTier: entity.QualityPoor,
			wantMsg:  "-1.5",
		},
		{
			name:     "good: bounds disabled by default",
			in:       QualityInput{Close: nd("100"), DailyPct: nd("250"), YTDPct: nd("1"), MarketCap: "x"},
			prior:    &prior,
			wantTier: entity.QualityGood,
		},
		{
			name:     "suspicious: daily change over bound",
			in:       QualityInput{Close: nd("100"), DailyPct: nd("-120"), YTDPct: nd("1"), MarketCap: "x"},
			bounds:   QualityBounds{MaxAbsDailyPct: 100},
			wantTier: entity.QualitySuspicious,
			wantMsg:  "-120.00%",
		},
		{
			name:     "suspicious: jump versus prior close",
			in:       QualityInput{Close: nd("300"), DailyPct: nd("10"), YTDPct: nd("1"), MarketCap: "x"},
			prior:    &prior,
			bounds:   QualityBounds{MaxDayOverDayPct: 50},
			wantTier: entity.QualitySuspicious,
			wantMsg:  "200.00%",
		},
		{
			name:     "good: move within day-over-day bound",
			in:       QualityInput{Close: nd("110"), DailyPct: nd("10"), YTDPct: nd("1"), MarketCap: "x"},
			prior:    &prior,
			bounds:   QualityBounds{MaxDayOverDayPct: 50},
			wantTier: entity.QualityGood,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := ClassifyQuality(tt.in, tt.prior, tt.bounds)
			assert.Equal(t, tt.wantTier, c.Tier)
			if tt.wantMsg != "" {
				assert.Contains(t, c.Message, tt.wantMsg)
			}
		})
	}
}

// TestValidator_Validate は監査結果の件数・警告・エラーを検証します。
func TestValidator_Validate(t *testing.T) {
	t.Parallel()

	d := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	quote := func(code, exchange, sector, close string) entity.Quote {
		return entity.Quote{
			Code: code, Exchange: exchange, Sector: sector, Date: d,
			Close: ParsePrice(close), DailyPct: ParsePercent("1%"), YTDPct: ParsePercent("2%"), MarketCap: "1B",
		}
	}

	v := NewValidator(QualityBounds{}, nil, []string{"Banking", "Industrial Goods"})
	res := v.Validate([]entity.Quote{
		quote("GTCO", "NGX", "Banking", "50"),
		quote("", "NGX", "Banking", "10"),
		quote("DANGCEM", "LSE", "Industrial Goods", "300"),
		quote("ZENITH", "NGX", "Unknown", "30"),
		quote("BAD", "NGX", "Banking", "-"),
		quote("GTCO", "NGX", "Banking", "51"),
	}, nil)

	assert.Len(t, res.Accepted, 4)
	assert.Len(t, res.Rejected, 2)
	assert.Equal(t, 4, res.Counts[entity.QualityGood])
	assert.Equal(t, 1, res.Counts[entity.QualityPoor])
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "empty instrument code")

	joined := ""
	for _, w := range res.Warnings {
		joined += w + "\n"
	}
	assert.Contains(t, joined, `DANGCEM: unknown exchange "LSE"`)
	assert.Contains(t, joined, `ZENITH: unknown sector "Unknown"`)
	assert.Contains(t, joined, "BAD: rejected, close price missing")
	assert.Contains(t, joined, "GTCO: duplicate record for 2024-03-15")

	for _, q := range res.Accepted {
		assert.NotEmpty(t, q.Quality)
	}
}

func TestValidator_ValidateUsesPriors(t *testing.T) {
	t.Parallel()

	d := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	v := NewValidator(QualityBounds{MaxDayOverDayPct: 40}, []string{"ngx"}, nil)
	res := v.Validate([]entity.Quote{
		{Code: "OANDO", Exchange: "NGX", Date: d, Close: ParsePrice("20"), YTDPct: ParsePercent("1%"), MarketCap: "1B"},
	}, map[string]decimal.Decimal{"OANDO": decimal.NewFromInt(10)})

	require.Len(t, res.Accepted, 1)
	assert.Equal(t, entity.QualitySuspicious, res.Accepted[0].Quality)
	assert.Equal(t, 1, res.Counts[entity.QualitySuspicious])
	assert.Len(t, res.Warnings, 1)
}
