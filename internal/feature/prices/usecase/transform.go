package usecase

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	instrumententity "ngx_pipeline/internal/feature/instruments/domain/entity"
	"ngx_pipeline/internal/feature/prices/domain/entity"
	"ngx_pipeline/internal/shared/tradedate"
)

// UnknownSector は業種が空の場合に使用される値です。
const UnknownSector = "Unknown"

var (
	codeDisallowed = regexp.MustCompile(`[^A-Z0-9.]`)
	spaces         = regexp.MustCompile(`\s+`)

	priceReplacer   = strings.NewReplacer("₦", "", "NGN", "", ",", "", " ", "", "\u00a0", "", "\t", "")
	percentReplacer = strings.NewReplacer("%", "", ",", "", " ", "", "\u00a0", "", "\t", "")
)

// nullTokens はソースが欠損値として使用する文字列です（大文字小文字は区別しません）。
var nullTokens = []string{"", "-", "--", "N/A", "None", "nan"}

func isNullToken(s string) bool {
	s = strings.TrimSpace(s)
	for _, tok := range nullTokens {
		if strings.EqualFold(s, tok) {
			return true
		}
	}
	return false
}

// ParsePrice は "₦1,234.56" のような価格文字列を decimal に変換します。
// 欠損値や解析できない文字列の場合は無効な NullDecimal を返します。
func ParsePrice(s string) decimal.NullDecimal {
	if isNullToken(s) {
		return decimal.NullDecimal{}
	}
	cleaned := priceReplacer.Replace(strings.TrimSpace(s))
	return parseDecimal(cleaned)
}

// ParsePercent は "+1,354.00%" や "-8.5%" のような変化率文字列を decimal に変換します。
// 符号は保持されます。
func ParsePercent(s string) decimal.NullDecimal {
	if isNullToken(s) {
		return decimal.NullDecimal{}
	}
	cleaned := percentReplacer.Replace(strings.TrimSpace(s))
	cleaned = strings.TrimPrefix(cleaned, "+")
	return parseDecimal(cleaned)
}

func parseDecimal(s string) decimal.NullDecimal {
	if isNullToken(s) {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// NormalizeCode は銘柄コードを大文字化し、英数字とドット以外を除去します。
func NormalizeCode(s string) string {
	return codeDisallowed.ReplaceAllString(strings.ToUpper(strings.TrimSpace(s)), "")
}

// NormalizeName は空白を詰めてタイトルケースに変換します。
func NormalizeName(s string) string {
	s = spaces.ReplaceAllString(strings.TrimSpace(s), " ")
	if s == "" {
		return ""
	}
	// Caser はゴルーチン間で共有できないため都度生成します。
	return cases.Title(language.English).String(s)
}

// NormalizeSector は空の業種を UnknownSector に置き換えます。
func NormalizeSector(s string) string {
	s = spaces.ReplaceAllString(strings.TrimSpace(s), " ")
	if isNullToken(s) {
		return UnknownSector
	}
	return s
}

// NormalizeMarketCap は欠損値を空文字に置き換えます。
func NormalizeMarketCap(s string) string {
	if isNullToken(s) {
		return ""
	}
	return strings.TrimSpace(s)
}

// ParseRecord は生レコードを正規化・解析し、asOf の日付を持つ Quote を返します。
// 品質区分はまだ設定されません（Validator が設定します）。
func ParseRecord(raw entity.RawRecord, asOf time.Time, source string) entity.Quote {
	exchange := strings.ToUpper(strings.TrimSpace(raw.Exchange))
	if exchange == "" {
		exchange = entity.DefaultExchange
	}
	return entity.Quote{
		Code:      NormalizeCode(raw.Code),
		Name:      NormalizeName(raw.Name),
		Sector:    NormalizeSector(raw.Sector),
		Exchange:  exchange,
		Date:      tradedate.Normalize(asOf),
		Close:     ParsePrice(raw.Close),
		DailyPct:  ParsePercent(raw.DailyPct),
		YTDPct:    ParsePercent(raw.YTDPct),
		MarketCap: NormalizeMarketCap(raw.MarketCap),
		Source:    source,
	}
}

type quoteKey struct {
	code string
	date time.Time
}

// Deduplicate は (code, date) ごとに最後のレコードを残します。
// 出力順は各キーが最初に出現した位置に従います。
func Deduplicate(quotes []entity.Quote) ([]entity.Quote, int) {
	pos := make(map[quoteKey]int, len(quotes))
	out := make([]entity.Quote, 0, len(quotes))
	for _, q := range quotes {
		k := quoteKey{code: q.Code, date: tradedate.Normalize(q.Date)}
		if i, ok := pos[k]; ok {
			out[i] = q
			continue
		}
		pos[k] = len(out)
		out = append(out, q)
	}
	return out, len(quotes) - len(out)
}

// ToObservation は Quote を永続化用の PriceObservation に変換します。
// 終値が無い、または正でない場合は false を返します。
func ToObservation(q entity.Quote) (entity.PriceObservation, bool) {
	if !q.Close.Valid || !q.Close.Decimal.IsPositive() {
		return entity.PriceObservation{}, false
	}
	return entity.PriceObservation{
		Code:      q.Code,
		Date:      tradedate.Normalize(q.Date),
		Close:     q.Close.Decimal,
		DailyPct:  q.DailyPct,
		YTDPct:    q.YTDPct,
		MarketCap: q.MarketCap,
		Source:    q.Source,
		Quality:   q.Quality,
		Complete:  q.DailyPct.Valid && q.YTDPct.Valid && q.MarketCap != "",
	}, true
}

// ToInstrument は Quote から銘柄マスタのレコードを作成します。
func ToInstrument(q entity.Quote) instrumententity.Instrument {
	return instrumententity.Instrument{
		Code:     q.Code,
		Name:     q.Name,
		Sector:   q.Sector,
		Exchange: q.Exchange,
		IsActive: true,
	}
}
