// Package handler はrecommendationsフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"ngx_pipeline/internal/api"
	"ngx_pipeline/internal/feature/recommendations/domain"
	"ngx_pipeline/internal/feature/recommendations/domain/entity"
	"ngx_pipeline/internal/feature/recommendations/transport/http/dto"
	"ngx_pipeline/internal/shared/tradedate"
)

const maxLimit = 100

// RecommendationsUsecase は推奨照会のユースケースインターフェースです。
type RecommendationsUsecase interface {
	TopPicks(ctx context.Context, signals []entity.Signal, limit int) ([]entity.Recommendation, error)
}

// RecommendationHandler は推奨のHTTPリクエストを処理します。
type RecommendationHandler struct {
	uc RecommendationsUsecase
}

// NewRecommendationHandler は新しい RecommendationHandler を作成します。
func NewRecommendationHandler(uc RecommendationsUsecase) *RecommendationHandler {
	return &RecommendationHandler{uc: uc}
}

// Top は直近日の上位推奨を返します。
//
// エンドポイント例:
// GET /recommendations/top?signal=BUY,STRONG_BUY&limit=5
func (h *RecommendationHandler) Top(c *gin.Context) {
	var signals []entity.Signal
	if raw := c.Query("signal"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			s, err := entity.ParseSignal(part)
			if err != nil {
				c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: domain.ErrInvalidSignal.Error() + ": " + err.Error()})
				return
			}
			signals = append(signals, s)
		}
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxLimit {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "limit must be between 1 and 100"})
			return
		}
		limit = n
	}

	recs, err := h.uc.TopPicks(c.Request.Context(), signals, limit)
	if err != nil {
		c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: err.Error()})
		return
	}
	out := make([]dto.RecommendationResponse, 0, len(recs))
	for _, r := range recs {
		out = append(out, toResponse(r))
	}
	c.JSON(http.StatusOK, out)
}

func nullString(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.StringFixed(2)
	return &s
}

func toResponse(r entity.Recommendation) dto.RecommendationResponse {
	reasons := r.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	return dto.RecommendationResponse{
		Code:       r.Code,
		Date:       tradedate.Format(r.Date),
		Signal:     string(r.Signal),
		Confidence: r.Confidence,
		Score:      r.Score.Total,
		Category:   string(r.Score.Category),
		Breakdown: dto.ScoreBreakdown{
			Technical:  r.Score.Technical,
			Momentum:   r.Score.Momentum,
			Volatility: r.Score.Volatility,
			Trend:      r.Score.Trend,
			Volume:     r.Score.Volume,
		},
		CurrentPrice: r.CurrentPrice.StringFixed(2),
		TargetPrice:  nullString(r.TargetPrice),
		StopLoss:     nullString(r.StopLoss),
		Risk:         string(r.Risk),
		Reasons:      reasons,
		Outcome:      string(r.Outcome),
		ExpiresOn:    tradedate.Format(r.ExpiresOn),
	}
}
