// Package handler はindicatorsフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ngx_pipeline/internal/api"
	"ngx_pipeline/internal/feature/indicators/domain"
	"ngx_pipeline/internal/feature/indicators/domain/entity"
	"ngx_pipeline/internal/feature/indicators/transport/http/dto"
	"ngx_pipeline/internal/shared/tradedate"
)

// IndicatorsUsecase は指標照会のユースケースインターフェースです。
type IndicatorsUsecase interface {
	History(ctx context.Context, code string, from, to time.Time) ([]entity.Snapshot, error)
}

// IndicatorHandler は指標スナップショットのHTTPリクエストを処理します。
type IndicatorHandler struct {
	uc IndicatorsUsecase
}

// NewIndicatorHandler は新しい IndicatorHandler を作成します。
func NewIndicatorHandler(uc IndicatorsUsecase) *IndicatorHandler {
	return &IndicatorHandler{uc: uc}
}

// History は期間内のスナップショットを返します。
//
// エンドポイント例:
// GET /indicators/:code?from=2024-01-01&to=2024-03-15
func (h *IndicatorHandler) History(c *gin.Context) {
	from, ok := dateQuery(c, "from")
	if !ok {
		return
	}
	to, ok := dateQuery(c, "to")
	if !ok {
		return
	}

	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))
	snaps, err := h.uc.History(c.Request.Context(), code, from, to)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRange) {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: err.Error()})
		return
	}

	out := make([]dto.SnapshotResponse, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, dto.SnapshotResponse{
			Code:         s.Code,
			Date:         tradedate.Format(s.Date),
			Close:        s.Close,
			SMA20:        s.SMA20,
			SMA50:        s.SMA50,
			RSI14:        s.RSI14,
			MACDLine:     s.MACDLine,
			MACDSignal:   s.MACDSignal,
			MACDHist:     s.MACDHist,
			Volatility30: s.Volatility30,
			BBUpper:      s.BBUpper,
			BBMiddle:     s.BBMiddle,
			BBLower:      s.BBLower,
			Cross:        string(s.Cross),
			Observations: s.Observations,
		})
	}
	c.JSON(http.StatusOK, out)
}

// dateQuery parses an optional YYYY-MM-DD query parameter and writes a 400 on failure.
func dateQuery(c *gin.Context, key string) (time.Time, bool) {
	s := c.Query(key)
	if s == "" {
		return time.Time{}, true
	}
	d, err := tradedate.Parse(s)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: key + " must be YYYY-MM-DD"})
		return time.Time{}, false
	}
	return d, true
}
