package dto

// SnapshotResponse は指標スナップショットのレスポンスDTOです。lookback未達の項目はnullになります。
type SnapshotResponse struct {
	Code         string   `json:"code"`
	Date         string   `json:"date"`
	Close        float64  `json:"close"`
	SMA20        *float64 `json:"sma_20"`
	SMA50        *float64 `json:"sma_50"`
	RSI14        *float64 `json:"rsi_14"`
	MACDLine     *float64 `json:"macd_line"`
	MACDSignal   *float64 `json:"macd_signal"`
	MACDHist     *float64 `json:"macd_hist"`
	Volatility30 *float64 `json:"volatility_30"`
	BBUpper      *float64 `json:"bb_upper"`
	BBMiddle     *float64 `json:"bb_middle"`
	BBLower      *float64 `json:"bb_lower"`
	Cross        string   `json:"cross"`
	Observations int      `json:"observations"`
}
