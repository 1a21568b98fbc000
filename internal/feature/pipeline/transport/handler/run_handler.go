// Package handler はpipelineフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ngx_pipeline/internal/api"
	"ngx_pipeline/internal/feature/pipeline/domain"
	"ngx_pipeline/internal/feature/pipeline/domain/entity"
	"ngx_pipeline/internal/feature/pipeline/transport/http/dto"
	"ngx_pipeline/internal/shared/tradedate"
)

// RunUsecase はパイプライン実行のユースケースインターフェースです。
type RunUsecase interface {
	Trigger(ctx context.Context, asOf time.Time) (entity.RunResult, error)
	LatestRun(ctx context.Context) (entity.RunResult, error)
}

// RunHandler はパイプライン実行のHTTPリクエストを処理します。
type RunHandler struct {
	uc  RunUsecase
	now func() time.Time
}

// NewRunHandler は新しい RunHandler を作成します。
func NewRunHandler(uc RunUsecase) *RunHandler {
	return &RunHandler{uc: uc, now: time.Now}
}

// Latest は最後に保存された実行結果を返します。
//
// エンドポイント例:
// GET /runs/latest
func (h *RunHandler) Latest(c *gin.Context) {
	r, err := h.uc.LatestRun(c.Request.Context())
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.NewRunResponse(r))
}

// Trigger はパイプラインを同期的に実行し、結果を返します。
// 実行が FAILED でもレスポンスは 200 で、状態は本文の status で判断します。
//
// エンドポイント例:
// POST /runs {"date":"2026-03-02"}
func (h *RunHandler) Trigger(c *gin.Context) {
	var req dto.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid request body"})
		return
	}

	asOf := tradedate.Today(h.now())
	if d := strings.TrimSpace(req.Date); d != "" {
		parsed, err := tradedate.Parse(d)
		if err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "date must be YYYY-MM-DD"})
			return
		}
		asOf = parsed
	}

	r, err := h.uc.Trigger(c.Request.Context(), asOf)
	switch {
	case errors.Is(err, domain.ErrRunInProgress):
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.NewRunResponse(r))
}
