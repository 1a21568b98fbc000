// Package handler はinstrumentsフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ngx_pipeline/internal/api"
	"ngx_pipeline/internal/feature/instruments/domain"
	"ngx_pipeline/internal/feature/instruments/domain/entity"
	"ngx_pipeline/internal/feature/instruments/transport/http/dto"
)

// InstrumentsUsecase は銘柄マスタに関するユースケースのインターフェースです。
type InstrumentsUsecase interface {
	ListActive(ctx context.Context) ([]entity.Instrument, error)
	Deactivate(ctx context.Context, code string) error
}

// InstrumentHandler は銘柄マスタに関するHTTPリクエストを処理します。
type InstrumentHandler struct {
	uc InstrumentsUsecase
}

// NewInstrumentHandler は新しい InstrumentHandler を作成します。
func NewInstrumentHandler(uc InstrumentsUsecase) *InstrumentHandler {
	return &InstrumentHandler{uc: uc}
}

// List は有効な銘柄の一覧を返します。
// Usecaseでエラーが発生した場合は500 Internal Server Errorを返します。
func (h *InstrumentHandler) List(c *gin.Context) {
	list, err := h.uc.ListActive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: err.Error()})
		return
	}
	out := make([]dto.InstrumentItem, 0, len(list))
	for _, in := range list {
		out = append(out, dto.InstrumentItem{Code: in.Code, Name: in.Name, Sector: in.Sector, Exchange: in.Exchange})
	}
	c.JSON(http.StatusOK, out)
}

// Deactivate は銘柄を無効化します。以降の実行では指標・アラート・推奨の対象外になり、
// 再び相場表に現れた時点で有効に戻ります。
//
// エンドポイント例:
// POST /instruments/OANDO/deactivate
func (h *InstrumentHandler) Deactivate(c *gin.Context) {
	if err := h.uc.Deactivate(c.Request.Context(), c.Param("code")); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
