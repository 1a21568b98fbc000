package usecase

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ngx_pipeline/internal/feature/prices/domain/entity"
)

// TestParsePercent は変化率文字列が符号を保持したまま解析されることを検証します。
func TestParsePercent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		in    string
		want  string
		valid bool
	}{
		{name: "success: multi-comma positive", in: "+1,354.00%", want: "1354", valid: true},
		{name: "success: negative", in: "-8.5%", want: "-8.5", valid: true},
		{name: "success: no sign", in: "3.25%", want: "3.25", valid: true},
		{name: "success: surrounding whitespace", in: "  +0.10 % ", want: "0.1", valid: true},
		{name: "success: zero", in: "0.00%", want: "0", valid: true},
		{name: "null: empty", in: "", valid: false},
		{name: "null: dash", in: "-", valid: false},
		{name: "null: double dash", in: "--", valid: false},
		{name: "null: N/A", in: "N/A", valid: false},
		{name: "null: None", in: "None", valid: false},
		{name: "null: nan", in: "NaN", valid: false},
		{name: "null: garbage", in: "up a lot", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ParsePercent(tt.in)
			require.Equal(t, tt.valid, got.Valid)
			if tt.valid {
				assert.True(t, decimal.RequireFromString(tt.want).Equal(got.Decimal), "got %s", got.Decimal)
			}
		})
	}
}

// TestParsePrice は通貨記号と桁区切りを除去して価格が解析されることを検証します。
func TestParsePrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		in    string
		want  string
		valid bool
	}{
		{name: "success: naira sign", in: "₦1,234.56", want: "1234.56", valid: true},
		{name: "success: NGN prefix", in: "NGN 2,000", want: "2000", valid: true},
		{name: "success: plain", in: "100.00", want: "100", valid: true},
		{name: "success: negative kept for the validator", in: "-5.00", want: "-5", valid: true},
		{name: "null: only currency", in: "₦", valid: false},
		{name: "null: dash", in: "-", valid: false},
		{name: "null: garbage", in: "₦abc", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ParsePrice(tt.in)
			require.Equal(t, tt.valid, got.Valid)
			if tt.valid {
				assert.True(t, decimal.RequireFromString(tt.want).Equal(got.Decimal), "got %s", got.Decimal)
			}
		})
	}
}

func TestNormalizers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "DANGCEM", NormalizeCode("  dangcem "))
	assert.Equal(t, "UBA.PREF", NormalizeCode("uba.pref*"))
	assert.Equal(t, "MTNN", NormalizeCode("MTN-N"))
	assert.Equal(t, "Dangote Cement Plc", NormalizeName("  DANGOTE   CEMENT plc "))
	assert.Equal(t, "", NormalizeName("   "))
	assert.Equal(t, UnknownSector, NormalizeSector(""))
	assert.Equal(t, UnknownSector, NormalizeSector("N/A"))
	assert.Equal(t, "Industrial Goods", NormalizeSector(" Industrial  Goods "))
	assert.Equal(t, "", NormalizeMarketCap("--"))
	assert.Equal(t, "1.2T", NormalizeMarketCap(" 1.2T "))
}

// TestParseRecord は生レコードが正規化された Quote に変換されることを検証します。
func TestParseRecord(t *testing.T) {
	t.Parallel()

	asOf := time.Date(2024, 3, 15, 16, 30, 0, 0, time.UTC)
	q := ParseRecord(entity.RawRecord{
		Code:      "dangcem",
		Name:      "DANGOTE CEMENT PLC",
		Sector:    "",
		Close:     "₦100.00",
		DailyPct:  "",
		YTDPct:    "+5.00%",
		MarketCap: "1.2T",
	}, asOf, "ngx")

	assert.Equal(t, "DANGCEM", q.Code)
	assert.Equal(t, "Dangote Cement Plc", q.Name)
	assert.Equal(t, UnknownSector, q.Sector)
	assert.Equal(t, entity.DefaultExchange, q.Exchange)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), q.Date)
	assert.True(t, q.Close.Valid)
	assert.False(t, q.DailyPct.Valid)
	assert.True(t, q.YTDPct.Valid)
	assert.Equal(t, "ngx", q.Source)
	assert.Empty(t, q.Quality)
}

// TestDeduplicate は同一キーの最後のレコードが最初の出現位置に残ることを検証します。
func TestDeduplicate(t *testing.T) {
	t.Parallel()

	d := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	in := []entity.Quote{
		{Code: "A", Date: d, MarketCap: "first"},
		{Code: "B", Date: d},
		{Code: "A", Date: d, MarketCap: "last"},
		{Code: "A", Date: d.AddDate(0, 0, -1)},
	}

	out, removed := Deduplicate(in)

	require.Len(t, out, 3)
	assert.Equal(t, 1, removed)
	assert.Equal(t, "A", out[0].Code)
	assert.Equal(t, "last", out[0].MarketCap)
	assert.Equal(t, "B", out[1].Code)
	assert.Equal(t, d.AddDate(0, 0, -1), out[2].Date)
}

func TestToObservation(t *testing.T) {
	t.Parallel()

	d := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		quote        entity.Quote
		wantOK       bool
		wantComplete bool
	}{
		{
			name: "success: complete quote",
			quote: entity.Quote{
				Code: "MTNN", Date: d, Close: ParsePrice("200"), DailyPct: ParsePercent("1%"),
				YTDPct: ParsePercent("2%"), MarketCap: "4T", Quality: entity.QualityGood,
			},
			wantOK:       true,
			wantComplete: true,
		},
		{
			name:         "success: incomplete quote",
			quote:        entity.Quote{Code: "MTNN", Date: d, Close: ParsePrice("200"), Quality: entity.QualityIncomplete},
			wantOK:       true,
			wantComplete: false,
		},
		{
			name:   "error: missing close",
			quote:  entity.Quote{Code: "MTNN", Date: d},
			wantOK: false,
		},
		{
			name:   "error: zero close",
			quote:  entity.Quote{Code: "MTNN", Date: d, Close: ParsePrice("0")},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			obs, ok := ToObservation(tt.quote)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantComplete, obs.Complete)
				assert.Equal(t, tt.quote.Quality, obs.Quality)
				assert.Equal(t, d, obs.Date)
			}
		})
	}
}

func TestToInstrument(t *testing.T) {
	t.Parallel()

	inst := ToInstrument(entity.Quote{Code: "GTCO", Name: "Guaranty Trust Holding Co", Sector: "Banking", Exchange: "NGX"})
	assert.Equal(t, "GTCO", inst.Code)
	assert.Equal(t, "Banking", inst.Sector)
	assert.True(t, inst.IsActive)
}
