package dto

import (
	"time"

	"ngx_pipeline/internal/feature/pipeline/domain/entity"
	"ngx_pipeline/internal/shared/tradedate"
)

// StageResponse は1ステージ分の結果です。
type StageResponse struct {
	Name       string         `json:"name"`
	Status     string         `json:"status"`
	DurationMS int64          `json:"duration_ms"`
	Counts     map[string]int `json:"counts,omitempty"`
	Errors     []string       `json:"errors,omitempty"`
}

// RunResponse はパイプライン実行結果のレスポンスDTOです。CLIの出力にも使います。
type RunResponse struct {
	RunID      string          `json:"run_id"`
	AsOf       string          `json:"as_of"`
	StartedAt  string          `json:"started_at"`
	DurationMS int64           `json:"duration_ms"`
	Status     string          `json:"status"`
	Stages     []StageResponse `json:"stages"`
	Counts     map[string]int  `json:"counts"`
	Errors     []string        `json:"errors"`
	Warnings   []string        `json:"warnings"`
}

// RunRequest は POST /runs のリクエストボディです。date を省略すると当日（ラゴス時間）になります。
type RunRequest struct {
	Date string `json:"date"`
}

// NewRunResponse は実行結果をレスポンスDTOに変換します。
func NewRunResponse(r entity.RunResult) RunResponse {
	out := RunResponse{
		RunID:      r.RunID,
		AsOf:       tradedate.Format(r.AsOf),
		StartedAt:  r.StartedAt.UTC().Format(time.RFC3339),
		DurationMS: r.Duration.Milliseconds(),
		Status:     string(r.Status),
		Stages:     make([]StageResponse, 0, len(r.Stages)),
		Counts:     r.Counts,
		Errors:     r.Errors,
		Warnings:   r.Warnings,
	}
	for _, s := range r.Stages {
		out.Stages = append(out.Stages, StageResponse{
			Name:       s.Name,
			Status:     string(s.Status),
			DurationMS: s.Duration.Milliseconds(),
			Counts:     s.Counts,
			Errors:     s.Errors,
		})
	}
	if out.Counts == nil {
		out.Counts = map[string]int{}
	}
	if out.Errors == nil {
		out.Errors = []string{}
	}
	if out.Warnings == nil {
		out.Warnings = []string{}
	}
	return out
}
