// Package handler はpricesフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"ngx_pipeline/internal/api"
	"ngx_pipeline/internal/feature/prices/domain"
	"ngx_pipeline/internal/feature/prices/domain/entity"
	"ngx_pipeline/internal/feature/prices/transport/http/dto"
	"ngx_pipeline/internal/shared/tradedate"
)

// PricesUsecase は価格照会のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type PricesUsecase interface {
	Latest(ctx context.Context) ([]entity.PriceObservation, error)
	LatestByCode(ctx context.Context, code string) (entity.PriceObservation, error)
	History(ctx context.Context, code string, end time.Time, n int) ([]entity.PriceObservation, error)
}

// PricesHandler は価格データのHTTPリクエストを処理します。
type PricesHandler struct {
	uc PricesUsecase
}

// NewPricesHandler は指定されたusecaseでPricesHandlerの新しいインスタンスを生成します。
func NewPricesHandler(uc PricesUsecase) *PricesHandler {
	return &PricesHandler{uc: uc}
}

// Latest は銘柄ごとの最新終値を返します。
//
// エンドポイント例:
// GET /prices/latest
func (h *PricesHandler) Latest(c *gin.Context) {
	rows, err := h.uc.Latest(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, toResponses(rows))
}

// LatestByCode は指定銘柄の最新終値を返します。
//
// エンドポイント例:
// GET /prices/:code
func (h *PricesHandler) LatestByCode(c *gin.Context) {
	row, err := h.uc.LatestByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(row))
}

// History は終値履歴を日付の昇順で返します。
//
// エンドポイント例:
// GET /prices/:code/history?end=2024-03-15&n=30
func (h *PricesHandler) History(c *gin.Context) {
	var end time.Time
	if s := c.Query("end"); s != "" {
		d, err := tradedate.Parse(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "end must be YYYY-MM-DD"})
			return
		}
		end = d
	}
	// 未指定や不正値は0となり、usecase側でデフォルト件数に変換される
	n, _ := strconv.Atoi(c.Query("n"))

	rows, err := h.uc.History(c.Request.Context(), c.Param("code"), end, n)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponses(rows))
}

func writeError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: err.Error()})
}

func toResponses(rows []entity.PriceObservation) []dto.PriceResponse {
	out := make([]dto.PriceResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, toResponse(r))
	}
	return out
}

func toResponse(r entity.PriceObservation) dto.PriceResponse {
	return dto.PriceResponse{
		Code:      r.Code,
		Date:      tradedate.Format(r.Date),
		Close:     r.Close.String(),
		DailyPct:  optional(r.DailyPct),
		YTDPct:    optional(r.YTDPct),
		MarketCap: r.MarketCap,
		Source:    r.Source,
		Quality:   string(r.Quality),
		Complete:  r.Complete,
	}
}

func optional(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}
