package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ngx_pipeline/internal/feature/prices/domain/entity"
)

// mockPriceRepository はテスト用のPriceRepositoryモック実装です。
type mockPriceRepository struct {
	historyFn      func(ctx context.Context, code string, end time.Time, n int) ([]entity.PriceObservation, error)
	latestFn       func(ctx context.Context) ([]entity.PriceObservation, error)
	latestByCodeFn func(ctx context.Context, code string) (entity.PriceObservation, error)
	bulkUpsertFn   func(ctx context.Context, obs []entity.PriceObservation, batchSize int) entity.BulkUpsertResult
	upsertFn       func(ctx context.Context, obs entity.PriceObservation) error
	calls          int
}

func (m *mockPriceRepository) Upsert(ctx context.Context, obs entity.PriceObservation) error {
	m.calls++
	if m.upsertFn != nil {
		return m.upsertFn(ctx, obs)
	}
	return nil
}

func (m *mockPriceRepository) BulkUpsert(ctx context.Context, obs []entity.PriceObservation, batchSize int) entity.BulkUpsertResult {
	m.calls++
	if m.bulkUpsertFn != nil {
		return m.bulkUpsertFn(ctx, obs, batchSize)
	}
	return entity.BulkUpsertResult{Loaded: len(obs)}
}

func (m *mockPriceRepository) History(ctx context.Context, code string, end time.Time, n int) ([]entity.PriceObservation, error) {
	m.calls++
	if m.historyFn != nil {
		return m.historyFn(ctx, code, end, n)
	}
	return nil, nil
}

func (m *mockPriceRepository) Latest(ctx context.Context) ([]entity.PriceObservation, error) {
	m.calls++
	if m.latestFn != nil {
		return m.latestFn(ctx)
	}
	return nil, nil
}

func (m *mockPriceRepository) LatestByCode(ctx context.Context, code string) (entity.PriceObservation, error) {
	m.calls++
	if m.latestByCodeFn != nil {
		return m.latestByCodeFn(ctx, code)
	}
	return entity.PriceObservation{}, nil
}

func (m *mockPriceRepository) ClosesAsOf(ctx context.Context, date time.Time) (map[string]decimal.Decimal, error) {
	m.calls++
	return map[string]decimal.Decimal{}, nil
}

func (m *mockPriceRepository) PriorCloses(ctx context.Context, codes []string, before time.Time) (map[string]decimal.Decimal, error) {
	m.calls++
	return map[string]decimal.Decimal{}, nil
}

var testDate = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func sampleLatest() []entity.PriceObservation {
	return []entity.PriceObservation{
		{Code: "DANGCEM", Date: testDate, Close: decimal.RequireFromString("300.5"), Quality: entity.QualityGood},
		{Code: "MTNN", Date: testDate, Close: decimal.NewFromInt(210), Quality: entity.QualityIncomplete},
	}
}

// TestNewCachingPriceRepository_Defaults はデフォルト値（TTLとnamespace）が正しく設定されることを検証します。
func TestNewCachingPriceRepository_Defaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name              string
		ttl               time.Duration
		namespace         string
		expectedTTL       time.Duration
		expectedNamespace string
	}{
		{"default values when zero/empty", 0, "", 5 * time.Minute, "prices"},
		{"negative ttl uses default", -time.Minute, "", 5 * time.Minute, "prices"},
		{"custom values preserved", 10 * time.Minute, "custom", 10 * time.Minute, "custom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			repo := NewCachingPriceRepository(nil, tt.ttl, &mockPriceRepository{}, tt.namespace)
			assert.Equal(t, tt.expectedTTL, repo.ttl)
			assert.Equal(t, tt.expectedNamespace, repo.namespace)
		})
	}
}

// TestCachingPriceRepository_Latest_NilRedis はRedisがnilの場合にキャッシュをバイパスすることを検証します。
func TestCachingPriceRepository_Latest_NilRedis(t *testing.T) {
	t.Parallel()

	inner := &mockPriceRepository{latestFn: func(ctx context.Context) ([]entity.PriceObservation, error) {
		return sampleLatest(), nil
	}}
	repo := NewCachingPriceRepository(nil, time.Minute, inner, "")

	got, err := repo.Latest(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 1, inner.calls)
}

// TestCachingPriceRepository_Latest_CacheHit はキャッシュヒット時に内部リポジトリを呼ばないことを検証します。
func TestCachingPriceRepository_Latest_CacheHit(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	cached, _ := json.Marshal(sampleLatest())
	mock.ExpectGet("prices:latest").SetVal(string(cached))

	inner := &mockPriceRepository{}
	repo := NewCachingPriceRepository(rdb, 5*time.Minute, inner, "prices")

	got, err := repo.Latest(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, decimal.RequireFromString("300.5").Equal(got[0].Close))
	assert.Equal(t, 0, inner.calls, "inner repository should not be called on cache hit")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestCachingPriceRepository_History_CacheMiss はキャッシュミス時にDBから取得してキャッシュに保存することを検証します。
func TestCachingPriceRepository_History_CacheMiss(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	history := sampleLatest()[:1]
	expected, _ := json.Marshal(history)

	mock.ExpectGet("prices:history:DANGCEM:2024-03-15:30").RedisNil()
	mock.ExpectSet("prices:history:DANGCEM:2024-03-15:30", expected, 5*time.Minute).SetVal("OK")

	inner := &mockPriceRepository{historyFn: func(ctx context.Context, code string, end time.Time, n int) ([]entity.PriceObservation, error) {
		return history, nil
	}}
	repo := NewCachingPriceRepository(rdb, 5*time.Minute, inner, "prices")

	got, err := repo.History(context.Background(), "DANGCEM", testDate, 30)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, inner.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestCachingPriceRepository_LatestByCode_InnerError は内部リポジトリのエラーが伝播しキャッシュされないことを検証します。
func TestCachingPriceRepository_LatestByCode_InnerError(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	expectedErr := errors.New("database error")
	mock.ExpectGet("prices:latest:MTNN").RedisNil()

	inner := &mockPriceRepository{latestByCodeFn: func(ctx context.Context, code string) (entity.PriceObservation, error) {
		return entity.PriceObservation{}, expectedErr
	}}
	repo := NewCachingPriceRepository(rdb, 5*time.Minute, inner, "prices")

	_, err := repo.LatestByCode(context.Background(), "MTNN")
	assert.ErrorIs(t, err, expectedErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestCachingPriceRepository_Latest_CorruptedCache は破損したキャッシュを削除してDBにフォールバックすることを検証します。
func TestCachingPriceRepository_Latest_CorruptedCache(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	latest := sampleLatest()
	expected, _ := json.Marshal(latest)

	mock.ExpectGet("prices:latest").SetVal("invalid json")
	mock.ExpectDel("prices:latest").SetVal(1)
	mock.ExpectSet("prices:latest", expected, 5*time.Minute).SetVal("OK")

	inner := &mockPriceRepository{latestFn: func(ctx context.Context) ([]entity.PriceObservation, error) {
		return latest, nil
	}}
	repo := NewCachingPriceRepository(rdb, 5*time.Minute, inner, "prices")

	got, err := repo.Latest(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestCachingPriceRepository_BulkUpsert_Invalidation は登録後に最新値と該当銘柄の履歴キャッシュが一度ずつ無効化されることを検証します。
func TestCachingPriceRepository_BulkUpsert_Invalidation(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	mock.ExpectScan(0, "prices:latest*", 200).SetVal([]string{"prices:latest", "prices:latest:MTNN"}, 0)
	mock.ExpectDel("prices:latest", "prices:latest:MTNN").SetVal(2)
	mock.ExpectScan(0, "prices:history:DANGCEM:*", 200).SetVal([]string{"prices:history:DANGCEM:2024-03-15:30"}, 0)
	mock.ExpectDel("prices:history:DANGCEM:2024-03-15:30").SetVal(1)
	mock.ExpectScan(0, "prices:history:MTNN:*", 200).SetVal([]string{}, 0)

	inner := &mockPriceRepository{}
	repo := NewCachingPriceRepository(rdb, 5*time.Minute, inner, "prices")

	obs := append(sampleLatest(), entity.PriceObservation{Code: "DANGCEM", Date: testDate.AddDate(0, 0, -1)})
	res := repo.BulkUpsert(context.Background(), obs, 50)

	assert.Equal(t, 3, res.Loaded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestCachingPriceRepository_BulkUpsert_NothingLoaded は何も登録されなかった場合にキャッシュを触らないことを検証します。
func TestCachingPriceRepository_BulkUpsert_NothingLoaded(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	inner := &mockPriceRepository{bulkUpsertFn: func(ctx context.Context, obs []entity.PriceObservation, batchSize int) entity.BulkUpsertResult {
		return entity.BulkUpsertResult{Failed: []entity.BatchFailure{{Index: 0, Start: 0, End: len(obs), Err: errors.New("boom")}}}
	}}
	repo := NewCachingPriceRepository(rdb, 5*time.Minute, inner, "prices")

	res := repo.BulkUpsert(context.Background(), sampleLatest(), 50)
	assert.Len(t, res.Failed, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestCachingPriceRepository_Upsert_InnerError は登録失敗時にエラーが伝播されることを検証します。
func TestCachingPriceRepository_Upsert_InnerError(t *testing.T) {
	t.Parallel()

	expectedErr := errors.New("upsert error")
	inner := &mockPriceRepository{upsertFn: func(ctx context.Context, obs entity.PriceObservation) error {
		return expectedErr
	}}
	repo := NewCachingPriceRepository(nil, time.Minute, inner, "")

	err := repo.Upsert(context.Background(), sampleLatest()[0])
	assert.ErrorIs(t, err, expectedErr)
}

// TestSafe はsafe関数がRedisキーで問題となる文字を正しくエスケープすることを検証します。
func TestSafe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected string
	}{
		{"DANGCEM", "DANGCEM"},
		{"UBA PREF", "UBA_PREF"},
		{"key:value", "key_value"},
		{"a*", "a_"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, safe(tt.input))
		})
	}
}

// TestCachingPriceRepository_DailyRefreshCapsTTL は次回の日次ロードを越えるTTLが切り詰められることを検証します。
func TestCachingPriceRepository_DailyRefreshCapsTTL(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	latest := sampleLatest()
	expected, _ := json.Marshal(latest)

	// 15:00 UTC の10分後に更新されるため、TTLは15分ではなく10分になります。
	mock.ExpectGet("prices:latest").RedisNil()
	mock.ExpectSet("prices:latest", expected, 10*time.Minute).SetVal("OK")

	inner := &mockPriceRepository{latestFn: func(ctx context.Context) ([]entity.PriceObservation, error) {
		return latest, nil
	}}
	repo := NewCachingPriceRepository(rdb, 15*time.Minute, inner, "prices").WithDailyRefresh(time.UTC, 15, 10)
	repo.now = func() time.Time { return time.Date(2024, 3, 15, 15, 0, 0, 0, time.UTC) }

	_, err := repo.Latest(context.Background())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
