// Package usecase は銘柄マスタ（instruments）のビジネスロジックを実装します。
package usecase

import (
	"context"
	"fmt"
	"strings"

	"ngx_pipeline/internal/feature/instruments/domain/entity"
	"ngx_pipeline/internal/platform/logger"
)

// InstrumentRepository は銘柄マスタの永続化層を抽象化します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type InstrumentRepository interface {
	Sync(ctx context.Context, instruments []entity.Instrument) (entity.SyncResult, error)
	ListActive(ctx context.Context) ([]entity.Instrument, error)
	ListActiveCodes(ctx context.Context) ([]string, error)
	KnownSectors(ctx context.Context) ([]string, error)
	Deactivate(ctx context.Context, code string) error
}

// InstrumentsUsecase は銘柄マスタの同期と照会を提供します。
type InstrumentsUsecase struct {
	repo InstrumentRepository
	log  *logger.Logger
}

// NewInstrumentsUsecase は指定されたリポジトリでInstrumentsUsecaseを生成します。
func NewInstrumentsUsecase(repo InstrumentRepository, log *logger.Logger) *InstrumentsUsecase {
	return &InstrumentsUsecase{repo: repo, log: log}
}

// Sync は取り込んだ銘柄を登録・更新します。
// 初見の銘柄は作成し、名称またはセクターが変わった銘柄のみ更新します。
// 同じコードが複数回渡された場合は最後のものを採用します。
func (u *InstrumentsUsecase) Sync(ctx context.Context, instruments []entity.Instrument) (entity.SyncResult, error) {
	if len(instruments) == 0 {
		return entity.SyncResult{}, nil
	}

	seen := make(map[string]int, len(instruments))
	uniq := make([]entity.Instrument, 0, len(instruments))
	for _, in := range instruments {
		if in.Code == "" {
			continue
		}
		if i, ok := seen[in.Code]; ok {
			uniq[i] = in
			continue
		}
		seen[in.Code] = len(uniq)
		uniq = append(uniq, in)
	}

	res, err := u.repo.Sync(ctx, uniq)
	if err != nil {
		return entity.SyncResult{}, fmt.Errorf("sync instruments: %w", err)
	}
	u.log.Info("instruments synced",
		logger.Int("created", res.Created),
		logger.Int("updated", res.Updated),
		logger.Int("unchanged", res.Unchanged))
	return res, nil
}

// ListActive は有効な銘柄をコード順に返します。
func (u *InstrumentsUsecase) ListActive(ctx context.Context) ([]entity.Instrument, error) {
	return u.repo.ListActive(ctx)
}

// ActiveCodes は有効な銘柄のコードのみを返します。
func (u *InstrumentsUsecase) ActiveCodes(ctx context.Context) ([]string, error) {
	return u.repo.ListActiveCodes(ctx)
}

// KnownSectors は登録済みのセクター名を返します。品質検証の未知セクター警告に使います。
func (u *InstrumentsUsecase) KnownSectors(ctx context.Context) ([]string, error) {
	return u.repo.KnownSectors(ctx)
}

// Deactivate は銘柄を無効化します。物理削除は行いません。
func (u *InstrumentsUsecase) Deactivate(ctx context.Context, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if err := u.repo.Deactivate(ctx, code); err != nil {
		return fmt.Errorf("deactivate %s: %w", code, err)
	}
	u.log.Info("instrument deactivated", logger.String("code", code))
	return nil
}
