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

	"ngx_pipeline/internal/feature/instruments/domain"
	"ngx_pipeline/internal/feature/instruments/domain/entity"
)

// setupTestDB はテスト用のインメモリSQLiteデータベースを準備します。
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err, "failed to initialize test database")
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&InstrumentModel{}), "failed to migrate table")
	return db
}

func inst(code, name, sector string) entity.Instrument {
	return entity.Instrument{Code: code, Name: name, Sector: sector, Exchange: "NGX", IsActive: true}
}

// TestNewInstrumentRepository はコンストラクタが正しくインスタンスを生成することを検証します。
func TestNewInstrumentRepository(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewInstrumentRepository(db)

	assert.NotNil(t, repo)
	assert.NotNil(t, repo.db)
}

// TestInstrumentGorm_Sync は作成・更新・変更なしの判定をテーブル駆動テストで検証します。
func TestInstrumentGorm_Sync(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		setupFunc    func(t *testing.T, repo *instrumentGorm)
		input        []entity.Instrument
		expected     entity.SyncResult
		validateFunc func(t *testing.T, db *gorm.DB)
	}{
		{
			name:     "success: first sighting creates rows",
			input:    []entity.Instrument{inst("DANGCEM", "Dangote Cement", "Industrial Goods"), inst("MTNN", "Mtn Nigeria", "ICT")},
			expected: entity.SyncResult{Created: 2},
			validateFunc: func(t *testing.T, db *gorm.DB) {
				var m InstrumentModel
				require.NoError(t, db.Where("code = ?", "MTNN").First(&m).Error)
				assert.True(t, m.IsActive)
				assert.False(t, m.FirstSeenAt.IsZero())
			},
		},
		{
			name: "success: unchanged rows are not rewritten",
			setupFunc: func(t *testing.T, repo *instrumentGorm) {
				_, err := repo.Sync(context.Background(), []entity.Instrument{inst("DANGCEM", "Dangote Cement", "Industrial Goods")})
				require.NoError(t, err)
			},
			input:    []entity.Instrument{inst("DANGCEM", "Dangote Cement", "Industrial Goods")},
			expected: entity.SyncResult{Unchanged: 1},
		},
		{
			name: "success: sector change updates and keeps first seen",
			setupFunc: func(t *testing.T, repo *instrumentGorm) {
				_, err := repo.Sync(context.Background(), []entity.Instrument{inst("MTNN", "Mtn Nigeria", "Unknown")})
				require.NoError(t, err)
			},
			input:    []entity.Instrument{inst("MTNN", "Mtn Nigeria", "ICT"), inst("ZENITHBA", "Zenith Bank", "Banking")},
			expected: entity.SyncResult{Created: 1, Updated: 1},
			validateFunc: func(t *testing.T, db *gorm.DB) {
				var m InstrumentModel
				require.NoError(t, db.Where("code = ?", "MTNN").First(&m).Error)
				assert.Equal(t, "ICT", m.Sector)
				assert.True(t, m.FirstSeenAt.Equal(time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)))
			},
		},
		{
			name: "success: deactivated instrument is reactivated on sighting",
			setupFunc: func(t *testing.T, repo *instrumentGorm) {
				_, err := repo.Sync(context.Background(), []entity.Instrument{inst("OANDO", "Oando", "Oil And Gas")})
				require.NoError(t, err)
				require.NoError(t, repo.Deactivate(context.Background(), "OANDO"))
			},
			input:    []entity.Instrument{inst("OANDO", "Oando", "Oil And Gas")},
			expected: entity.SyncResult{Updated: 1},
			validateFunc: func(t *testing.T, db *gorm.DB) {
				var m InstrumentModel
				require.NoError(t, db.Where("code = ?", "OANDO").First(&m).Error)
				assert.True(t, m.IsActive)
			},
		},
		{
			name:     "success: empty input is a no-op",
			input:    nil,
			expected: entity.SyncResult{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			db := setupTestDB(t)
			repo := NewInstrumentRepository(db)
			repo.now = func() time.Time { return time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC) }
			if tt.setupFunc != nil {
				tt.setupFunc(t, repo)
			}
			repo.now = func() time.Time { return time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC) }

			got, err := repo.Sync(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
			if tt.validateFunc != nil {
				tt.validateFunc(t, db)
			}
		})
	}
}

// TestInstrumentGorm_ListActive は無効銘柄を除外しコード順に返すことを検証します。
func TestInstrumentGorm_ListActive(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewInstrumentRepository(db)
	ctx := context.Background()

	_, err := repo.Sync(ctx, []entity.Instrument{
		inst("ZENITHBA", "Zenith Bank", "Banking"),
		inst("DANGCEM", "Dangote Cement", "Industrial Goods"),
		inst("GTCO", "Gtco", "Banking"),
	})
	require.NoError(t, err)
	require.NoError(t, repo.Deactivate(ctx, "GTCO"))

	list, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "DANGCEM", list[0].Code)
	assert.Equal(t, "ZENITHBA", list[1].Code)

	codes, err := repo.ListActiveCodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"DANGCEM", "ZENITHBA"}, codes)

	sectors, err := repo.KnownSectors(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Banking", "Industrial Goods"}, sectors)
}

// TestInstrumentGorm_Deactivate は存在しない銘柄でErrNotFoundを返すことを検証します。
func TestInstrumentGorm_Deactivate(t *testing.T) {
	t.Parallel()

	repo := NewInstrumentRepository(setupTestDB(t))

	err := repo.Deactivate(context.Background(), "NOPE")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
