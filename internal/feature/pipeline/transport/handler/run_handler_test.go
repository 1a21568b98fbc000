package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"ngx_pipeline/internal/feature/pipeline/domain"
	"ngx_pipeline/internal/feature/pipeline/domain/entity"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type mockRunUsecase struct {
	TriggerFunc   func(ctx context.Context, asOf time.Time) (entity.RunResult, error)
	LatestRunFunc func(ctx context.Context) (entity.RunResult, error)
}

func (m *mockRunUsecase) Trigger(ctx context.Context, asOf time.Time) (entity.RunResult, error) {
	return m.TriggerFunc(ctx, asOf)
}

func (m *mockRunUsecase) LatestRun(ctx context.Context) (entity.RunResult, error) {
	return m.LatestRunFunc(ctx)
}

var runDay = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func sampleRun() entity.RunResult {
	return entity.RunResult{
		RunID:     "3f1c",
		AsOf:      runDay,
		StartedAt: runDay.Add(14*time.Hour + 30*time.Minute),
		Duration:  2 * time.Second,
		Status:    entity.StatusSuccess,
		Stages:    []entity.StageReport{{Name: entity.StageFetch, Status: entity.StageOK, Duration: time.Second, Counts: map[string]int{"fetched": 3}}},
		Counts:    map[string]int{"fetched": 3},
	}
}

const sampleRunJSON = `{"run_id":"3f1c","as_of":"2026-03-02","started_at":"2026-03-02T14:30:00Z","duration_ms":2000,
	"status":"SUCCESS","stages":[{"name":"fetch","status":"ok","duration_ms":1000,"counts":{"fetched":3}}],
	"counts":{"fetched":3},"errors":[],"warnings":[]}`

func TestRunHandler_Latest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		mockLatest     func(ctx context.Context) (entity.RunResult, error)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "success: latest run",
			mockLatest:     func(ctx context.Context) (entity.RunResult, error) { return sampleRun(), nil },
			expectedStatus: http.StatusOK,
			expectedBody:   sampleRunJSON,
		},
		{
			name:           "error: nothing recorded",
			mockLatest:     func(ctx context.Context) (entity.RunResult, error) { return entity.RunResult{}, domain.ErrNotFound },
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"error":"run not found"}`,
		},
		{
			name:           "error: store failure",
			mockLatest:     func(ctx context.Context) (entity.RunResult, error) { return entity.RunResult{}, errors.New("db down") },
			expectedStatus: http.StatusBadGateway,
			expectedBody:   `{"error":"db down"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewRunHandler(&mockRunUsecase{LatestRunFunc: tt.mockLatest})
			r := gin.New()
			r.GET("/runs/latest", h.Latest)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/runs/latest", nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}
}

func TestRunHandler_Trigger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		body           string
		mockTrigger    func(ctx context.Context, asOf time.Time) (entity.RunResult, error)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "success: explicit date",
			body: `{"date":"2026-03-02"}`,
			mockTrigger: func(ctx context.Context, asOf time.Time) (entity.RunResult, error) {
				if !asOf.Equal(runDay) {
					return entity.RunResult{}, errors.New("unexpected date " + asOf.String())
				}
				return sampleRun(), nil
			},
			expectedStatus: http.StatusOK,
			expectedBody:   sampleRunJSON,
		},
		{
			name: "success: empty body defaults to the Lagos date",
			mockTrigger: func(ctx context.Context, asOf time.Time) (entity.RunResult, error) {
				// 23:30 UTC は翌日 00:30 WAT です。
				if !asOf.Equal(runDay.AddDate(0, 0, 1)) {
					return entity.RunResult{}, errors.New("unexpected date " + asOf.String())
				}
				return sampleRun(), nil
			},
			expectedStatus: http.StatusOK,
			expectedBody:   sampleRunJSON,
		},
		{
			name:           "error: malformed date",
			body:           `{"date":"02/03/2026"}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"date must be YYYY-MM-DD"}`,
		},
		{
			name:           "error: malformed body",
			body:           `{"date":`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"invalid request body"}`,
		},
		{
			name: "error: run already in progress",
			body: `{}`,
			mockTrigger: func(ctx context.Context, asOf time.Time) (entity.RunResult, error) {
				return entity.RunResult{}, domain.ErrRunInProgress
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `{"error":"run already in progress"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewRunHandler(&mockRunUsecase{TriggerFunc: tt.mockTrigger})
			h.now = func() time.Time { return runDay.Add(23*time.Hour + 30*time.Minute) }
			r := gin.New()
			r.POST("/runs", h.Trigger)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}
}
