package dto

// ScoreBreakdown はスコアの内訳です。
type ScoreBreakdown struct {
	Technical  float64 `json:"technical"`
	Momentum   float64 `json:"momentum"`
	Volatility float64 `json:"volatility"`
	Trend      float64 `json:"trend"`
	Volume     float64 `json:"volume"`
}

// RecommendationResponse は推奨のレスポンスDTOです。価格は文字列で返します。
type RecommendationResponse struct {
	Code         string         `json:"code"`
	Date         string         `json:"date"`
	Signal       string         `json:"signal"`
	Confidence   float64        `json:"confidence"`
	Score        float64        `json:"score"`
	Category     string         `json:"category"`
	Breakdown    ScoreBreakdown `json:"breakdown"`
	CurrentPrice string         `json:"current_price"`
	TargetPrice  *string        `json:"target_price"`
	StopLoss     *string        `json:"stop_loss"`
	Risk         string         `json:"risk"`
	Reasons      []string       `json:"reasons"`
	Outcome      string         `json:"outcome"`
	ExpiresOn    string         `json:"expires_on"`
}
