package dto

// PriceResponse は日次終値のレスポンスDTOです。
type PriceResponse struct {
	Code      string  `json:"code"`                 // 銘柄コード
	Date      string  `json:"date"`                 // 観測日 (YYYY-MM-DD)
	Close     string  `json:"close"`                // 終値
	DailyPct  *string `json:"daily_pct,omitempty"`  // 前日比（%）
	YTDPct    *string `json:"ytd_pct,omitempty"`    // 年初来（%）
	MarketCap string  `json:"market_cap,omitempty"` // 時価総額ラベル
	Source    string  `json:"source"`               // 取得元
	Quality   string  `json:"quality"`              // 品質ティア
	Complete  bool    `json:"complete"`             // 全項目が揃っているか
}
