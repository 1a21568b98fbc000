package adapters

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ngx_pipeline/internal/feature/recommendations/domain/entity"
)

// setupTestDB はテスト用のインメモリSQLiteデータベースを準備します。
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err, "failed to initialize test database")
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&RecommendationModel{}), "failed to migrate table")
	return db
}

var (
	day1 = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	day2 = time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
)

func rec(code string, date time.Time, sig entity.Signal, score, conf float64) entity.Recommendation {
	r := entity.Recommendation{
		Code:         code,
		Date:         date,
		Signal:       sig,
		Confidence:   conf,
		Score:        entity.Score{Total: score, Technical: 80, Momentum: 70, Volatility: 60, Trend: 50, Volume: 50, Category: entity.CategoryOf(score)},
		CurrentPrice: decimal.RequireFromString("100.00"),
		Risk:         entity.RiskMedium,
		Reasons:      []string{"RSI 28.0 - Oversold", "Good overall score (65/100)"},
		Outcome:      entity.OutcomeOngoing,
		ExpiresOn:    date.AddDate(0, 0, 30),
	}
	if sig != entity.SignalHold {
		r.TargetPrice = decimal.NewNullDecimal(decimal.RequireFromString("110.00"))
		r.StopLoss = decimal.NewNullDecimal(decimal.RequireFromString("93.00"))
	}
	return r
}

// TestRecommendationGorm_Upsert は同じ (code, date) の再保存で行が増えず、値が更新されることを検証します。
func TestRecommendationGorm_Upsert(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewRecommendationRepository(db)
	ctx := context.Background()

	saved, err := repo.Upsert(ctx, []entity.Recommendation{rec("DANGCEM", day1, entity.SignalBuy, 65, 0.6), rec("MTNN", day1, entity.SignalHold, 55, 0.55)})
	require.NoError(t, err)
	require.Len(t, saved, 2)
	for _, r := range saved {
		assert.NotZero(t, r.ID)
	}

	again, err := repo.Upsert(ctx, []entity.Recommendation{rec("DANGCEM", day1, entity.SignalStrongBuy, 85, 0.8)})
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, entity.SignalStrongBuy, again[0].Signal)
	assert.Equal(t, 85.0, again[0].Score.Total)
	assert.Equal(t, []string{"RSI 28.0 - Oversold", "Good overall score (65/100)"}, again[0].Reasons)
	assert.True(t, again[0].TargetPrice.Decimal.Equal(decimal.RequireFromString("110")))

	var count int64
	require.NoError(t, db.Model(&RecommendationModel{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	var hold RecommendationModel
	require.NoError(t, db.Where("code = ?", "MTNN").First(&hold).Error)
	assert.False(t, hold.TargetPrice.Valid)
	assert.False(t, hold.StopLoss.Valid)
}

func TestRecommendationGorm_Top(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewRecommendationRepository(db)
	ctx := context.Background()

	got, err := repo.Top(ctx, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, got, "empty table")

	_, err = repo.Upsert(ctx, []entity.Recommendation{rec("OLD", day1, entity.SignalBuy, 99, 0.9)})
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, []entity.Recommendation{
		rec("B", day2, entity.SignalBuy, 70, 0.6),
		rec("A", day2, entity.SignalBuy, 70, 0.6),
		rec("C", day2, entity.SignalStrongBuy, 80, 0.5),
		rec("D", day2, entity.SignalSell, 90, 0.7),
	})
	require.NoError(t, err)

	got, err = repo.Top(ctx, []entity.Signal{entity.SignalBuy, entity.SignalStrongBuy}, 10)
	require.NoError(t, err)
	codes := make([]string, 0, len(got))
	for _, r := range got {
		codes = append(codes, r.Code)
	}
	assert.Equal(t, []string{"C", "A", "B"}, codes, "latest date only, ranked, filtered")

	got, err = repo.Top(ctx, nil, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "D", got[0].Code)
}

func TestRecommendationGorm_Outcomes(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewRecommendationRepository(db)
	ctx := context.Background()

	saved, err := repo.Upsert(ctx, []entity.Recommendation{rec("DANGCEM", day1, entity.SignalBuy, 65, 0.6), rec("MTNN", day1, entity.SignalBuy, 60, 0.6)})
	require.NoError(t, err)

	var target uint
	for _, r := range saved {
		if r.Code == "DANGCEM" {
			target = r.ID
		}
	}
	require.NoError(t, repo.SetOutcome(ctx, target, entity.OutcomeHitTarget, day2.Add(10*time.Hour)))

	ongoing, err := repo.Ongoing(ctx)
	require.NoError(t, err)
	require.Len(t, ongoing, 1)
	assert.Equal(t, "MTNN", ongoing[0].Code)

	// a same-day re-run does not reopen a closed recommendation
	_, err = repo.Upsert(ctx, []entity.Recommendation{rec("DANGCEM", day1, entity.SignalBuy, 66, 0.6)})
	require.NoError(t, err)
	var m RecommendationModel
	require.NoError(t, db.First(&m, target).Error)
	assert.Equal(t, string(entity.OutcomeHitTarget), m.Outcome)
	require.NotNil(t, m.OutcomeDate)
	assert.Equal(t, day2, m.OutcomeDate.UTC())
}
