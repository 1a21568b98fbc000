// Package handler はalertsフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ngx_pipeline/internal/api"
	"ngx_pipeline/internal/feature/alerts/domain"
	"ngx_pipeline/internal/feature/alerts/domain/entity"
	"ngx_pipeline/internal/feature/alerts/transport/http/dto"
	"ngx_pipeline/internal/shared/tradedate"
)

// AlertsUsecase はアラート照会・解決のユースケースインターフェースです。
type AlertsUsecase interface {
	ListActive(ctx context.Context, code string) ([]entity.Alert, error)
	Resolve(ctx context.Context, id uint, notes string) (entity.Alert, error)
}

// AlertHandler はアラートのHTTPリクエストを処理します。
type AlertHandler struct {
	uc AlertsUsecase
}

// NewAlertHandler は新しい AlertHandler を作成します。
func NewAlertHandler(uc AlertsUsecase) *AlertHandler {
	return &AlertHandler{uc: uc}
}

// List は未解決のアラートを返します。
//
// エンドポイント例:
// GET /alerts?code=DANGCEM
func (h *AlertHandler) List(c *gin.Context) {
	code := strings.ToUpper(strings.TrimSpace(c.Query("code")))
	alerts, err := h.uc.ListActive(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: err.Error()})
		return
	}
	out := make([]dto.AlertResponse, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, toResponse(a))
	}
	c.JSON(http.StatusOK, out)
}

// Resolve はアラートを解決済みにします。ボディの notes は省略できます。
//
// エンドポイント例:
// POST /alerts/42/resolve {"notes":"checked with broker"}
func (h *AlertHandler) Resolve(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "id must be a positive integer"})
		return
	}
	var req dto.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid request body"})
		return
	}

	a, err := h.uc.Resolve(c.Request.Context(), uint(id), strings.TrimSpace(req.Notes))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: err.Error()})
		return
	case errors.Is(err, domain.ErrAlreadyResolved):
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, toResponse(a))
}

func toResponse(a entity.Alert) dto.AlertResponse {
	r := dto.AlertResponse{
		ID:                   a.ID,
		Code:                 a.Code,
		Rule:                 a.RuleName,
		Kind:                 string(a.Kind),
		Date:                 tradedate.Format(a.Date),
		Severity:             string(a.Severity),
		TriggerValue:         a.TriggerValue,
		Threshold:            a.Threshold,
		Message:              a.Message,
		Resolved:             a.Resolved,
		ResolutionNotes:      a.ResolutionNotes,
		NotificationSent:     a.NotificationSent,
		NotificationChannels: a.NotificationChannels,
	}
	if a.ResolvedAt != nil {
		s := a.ResolvedAt.UTC().Format(time.RFC3339)
		r.ResolvedAt = &s
	}
	return r
}
