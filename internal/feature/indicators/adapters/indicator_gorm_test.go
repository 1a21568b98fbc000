package adapters

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ngx_pipeline/internal/feature/indicators/domain/entity"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err, "failed to initialize test database")
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&IndicatorSnapshotModel{}))
	return db
}

func f(v float64) *float64 { return &v }

func day(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }

func snap(code string, d int, vol *float64) entity.Snapshot {
	return entity.Snapshot{Code: code, Date: day(d), Close: 100, Volatility30: vol, Cross: entity.CrossNeutral, Observations: d}
}

// TestSnapshotGorm_Upsert は同じ (code, date) への再登録が上書きになることを検証します。
func TestSnapshotGorm_Upsert(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewSnapshotRepository(db)
	ctx := context.Background()

	first := snap("DANGCEM", 15, nil)
	require.NoError(t, repo.Upsert(ctx, first))

	second := first
	second.SMA20 = f(101.5)
	second.Cross = entity.CrossBullish
	require.NoError(t, repo.Upsert(ctx, second))

	var count int64
	require.NoError(t, db.Model(&IndicatorSnapshotModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	got, err := repo.Range(ctx, "DANGCEM", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].SMA20)
	assert.Equal(t, 101.5, *got[0].SMA20)
	assert.Nil(t, got[0].RSI14)
	assert.Equal(t, entity.CrossBullish, got[0].Cross)
	assert.Equal(t, day(15), got[0].Date)
}

// TestSnapshotGorm_RangeAndBefore は期間指定と直前N件の取得を検証します。
func TestSnapshotGorm_RangeAndBefore(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewSnapshotRepository(db)
	ctx := context.Background()

	for d := 10; d <= 15; d++ {
		require.NoError(t, repo.Upsert(ctx, snap("MTNN", d, f(float64(d)/100))))
	}
	require.NoError(t, repo.Upsert(ctx, snap("OTHER", 12, nil)))

	tests := []struct {
		name      string
		call      func() ([]entity.Snapshot, error)
		wantDates []time.Time
	}{
		{"success: closed range", func() ([]entity.Snapshot, error) { return repo.Range(ctx, "MTNN", day(11), day(13)) }, []time.Time{day(11), day(12), day(13)}},
		{"success: open start", func() ([]entity.Snapshot, error) { return repo.Range(ctx, "MTNN", time.Time{}, day(10)) }, []time.Time{day(10)}},
		{"success: before is exclusive and ascending", func() ([]entity.Snapshot, error) { return repo.Before(ctx, "MTNN", day(14), 2) }, []time.Time{day(12), day(13)}},
		{"success: before with n <= 0", func() ([]entity.Snapshot, error) { return repo.Before(ctx, "MTNN", day(14), 0) }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.call()
			require.NoError(t, err)
			var dates []time.Time
			for _, s := range got {
				dates = append(dates, s.Date)
			}
			assert.Equal(t, tt.wantDates, dates)
		})
	}
}
