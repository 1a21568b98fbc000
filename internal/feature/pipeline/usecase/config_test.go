package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ngx_pipeline/internal/feature/pipeline/domain/entity"
	"ngx_pipeline/internal/platform/config"
)

func TestConfigFrom(t *testing.T) {
	t.Parallel()

	pc := config.PipelineConfig{
		Stages:            config.StagesConfig{Fetch: true, LoadPrices: true, Notify: false},
		BatchSize:         25,
		Workers:           8,
		HistoryDepth:      120,
		Codes:             []string{" dangcem ", "", "mtnn"},
		MaxReportedIssues: 10,
		Quality:           config.QualityConfig{MaxAbsDailyPct: 100, ValidExchanges: []string{"ngx", " "}},
	}

	got := ConfigFrom(pc, "ngx")

	assert.Equal(t, []string{"DANGCEM", "MTNN"}, got.Codes)
	assert.Equal(t, []string{"NGX"}, got.ValidExchanges)
	assert.Equal(t, 100.0, got.Quality.MaxAbsDailyPct)
	assert.Equal(t, 25, got.BatchSize)
	assert.True(t, got.enabled(entity.StageFetch))
	assert.True(t, got.enabled(entity.StageLoadPrices))
	assert.False(t, got.enabled(entity.StageNotify))
	assert.False(t, got.enabled("unknown"))
}

func TestAllStages(t *testing.T) {
	t.Parallel()

	cfg := Config{Stages: AllStages()}
	for _, name := range entity.StageNames {
		assert.True(t, cfg.enabled(name), name)
	}
}
