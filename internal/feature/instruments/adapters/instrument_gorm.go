// Package adapters はinstrumentsフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"ngx_pipeline/internal/feature/instruments/domain"
	"ngx_pipeline/internal/feature/instruments/domain/entity"
	"ngx_pipeline/internal/feature/instruments/usecase"
)

// InstrumentModel は instruments テーブルの行です。
type InstrumentModel struct {
	ID          uint      `gorm:"primaryKey"`
	Code        string    `gorm:"size:20;not null;uniqueIndex"`
	Name        string    `gorm:"size:255;not null"`
	Sector      string    `gorm:"size:100;not null"`
	Exchange    string    `gorm:"size:20;not null"`
	IsActive    bool      `gorm:"not null;index"`
	FirstSeenAt time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (InstrumentModel) TableName() string { return "instruments" }

func (m InstrumentModel) toEntity() entity.Instrument {
	return entity.Instrument{
		Code:        m.Code,
		Name:        m.Name,
		Sector:      m.Sector,
		Exchange:    m.Exchange,
		IsActive:    m.IsActive,
		FirstSeenAt: m.FirstSeenAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// instrumentGorm はInstrumentRepositoryインターフェースのgorm実装です。
type instrumentGorm struct {
	db  *gorm.DB
	now func() time.Time
}

var _ usecase.InstrumentRepository = (*instrumentGorm)(nil)

// NewInstrumentRepository は指定されたDB接続でinstrumentGormリポジトリの新しいインスタンスを生成します。
func NewInstrumentRepository(db *gorm.DB) *instrumentGorm {
	return &instrumentGorm{db: db, now: time.Now}
}

// Sync は既存行を読み込み、差分のある銘柄だけを1トランザクションで作成・更新します。
// 再登場した無効銘柄は有効に戻します。
func (r *instrumentGorm) Sync(ctx context.Context, instruments []entity.Instrument) (entity.SyncResult, error) {
	var res entity.SyncResult
	if len(instruments) == 0 {
		return res, nil
	}

	codes := make([]string, 0, len(instruments))
	for _, in := range instruments {
		codes = append(codes, in.Code)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []InstrumentModel
		if err := tx.Where("code IN ?", codes).Find(&existing).Error; err != nil {
			return err
		}
		byCode := make(map[string]InstrumentModel, len(existing))
		for _, m := range existing {
			byCode[m.Code] = m
		}

		now := r.now().UTC()
		for _, in := range instruments {
			cur, ok := byCode[in.Code]
			if !ok {
				m := InstrumentModel{
					Code:        in.Code,
					Name:        in.Name,
					Sector:      in.Sector,
					Exchange:    in.Exchange,
					IsActive:    true,
					FirstSeenAt: now,
				}
				if err := tx.Create(&m).Error; err != nil {
					return fmt.Errorf("create %s: %w", in.Code, err)
				}
				res.Created++
				continue
			}

			if cur.Name == in.Name && cur.Sector == in.Sector && cur.IsActive {
				res.Unchanged++
				continue
			}
			if err := tx.Model(&InstrumentModel{}).Where("id = ?", cur.ID).Updates(map[string]any{
				"name":       in.Name,
				"sector":     in.Sector,
				"is_active":  true,
				"updated_at": now,
			}).Error; err != nil {
				return fmt.Errorf("update %s: %w", in.Code, err)
			}
			res.Updated++
		}
		return nil
	})
	if err != nil {
		return entity.SyncResult{}, err
	}
	return res, nil
}

// ListActive はコード順にすべてのアクティブな銘柄を返します。
func (r *instrumentGorm) ListActive(ctx context.Context) ([]entity.Instrument, error) {
	var rows []InstrumentModel
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("code ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.Instrument, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toEntity())
	}
	return out, nil
}

// ListActiveCodes はコード順にアクティブな銘柄のコードのみを返します。
func (r *instrumentGorm) ListActiveCodes(ctx context.Context) ([]string, error) {
	var codes []string
	if err := r.db.WithContext(ctx).
		Model(&InstrumentModel{}).
		Where("is_active = ?", true).
		Order("code ASC").
		Pluck("code", &codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}

// KnownSectors は登録済みのセクター名を重複なしで返します。
func (r *instrumentGorm) KnownSectors(ctx context.Context) ([]string, error) {
	var sectors []string
	if err := r.db.WithContext(ctx).
		Model(&InstrumentModel{}).
		Distinct("sector").
		Order("sector ASC").
		Pluck("sector", &sectors).Error; err != nil {
		return nil, err
	}
	return sectors, nil
}

// Deactivate は is_active を false にします。該当行がない場合は domain.ErrNotFound を返します。
func (r *instrumentGorm) Deactivate(ctx context.Context, code string) error {
	tx := r.db.WithContext(ctx).
		Model(&InstrumentModel{}).
		Where("code = ?", code).
		Updates(map[string]any{"is_active": false, "updated_at": r.now().UTC()})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
