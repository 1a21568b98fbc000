// Package adapters はpipelineフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"ngx_pipeline/internal/feature/pipeline/domain"
	"ngx_pipeline/internal/feature/pipeline/domain/entity"
	"ngx_pipeline/internal/feature/pipeline/usecase"
)

// PipelineRunModel は pipeline_runs テーブルの行です。
type PipelineRunModel struct {
	ID         uint      `gorm:"primaryKey"`
	RunID      string    `gorm:"size:36;not null;uniqueIndex"`
	AsOf       time.Time `gorm:"not null;index"`
	StartedAt  time.Time `gorm:"not null;index"`
	DurationMS int64     `gorm:"not null"`
	Status     string    `gorm:"size:10;not null"`
	Stages     datatypes.JSON
	Counts     datatypes.JSON
	Errors     datatypes.JSON
	Warnings   datatypes.JSON
	CreatedAt  time.Time
}

func (PipelineRunModel) TableName() string { return "pipeline_runs" }

func toModel(r entity.RunResult) (PipelineRunModel, error) {
	m := PipelineRunModel{
		RunID:      r.RunID,
		AsOf:       r.AsOf,
		StartedAt:  r.StartedAt,
		DurationMS: r.Duration.Milliseconds(),
		Status:     string(r.Status),
	}
	var err error
	if m.Stages, err = json.Marshal(r.Stages); err != nil {
		return m, fmt.Errorf("encode stages: %w", err)
	}
	if m.Counts, err = json.Marshal(r.Counts); err != nil {
		return m, fmt.Errorf("encode counts: %w", err)
	}
	if m.Errors, err = json.Marshal(r.Errors); err != nil {
		return m, fmt.Errorf("encode errors: %w", err)
	}
	if m.Warnings, err = json.Marshal(r.Warnings); err != nil {
		return m, fmt.Errorf("encode warnings: %w", err)
	}
	return m, nil
}

func (m PipelineRunModel) toEntity() (entity.RunResult, error) {
	r := entity.RunResult{
		RunID:     m.RunID,
		AsOf:      m.AsOf.UTC(),
		StartedAt: m.StartedAt.UTC(),
		Duration:  time.Duration(m.DurationMS) * time.Millisecond,
		Status:    entity.Status(m.Status),
	}
	for _, f := range []struct {
		raw datatypes.JSON
		dst any
	}{
		{m.Stages, &r.Stages},
		{m.Counts, &r.Counts},
		{m.Errors, &r.Errors},
		{m.Warnings, &r.Warnings},
	} {
		if len(f.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return entity.RunResult{}, fmt.Errorf("decode run %s: %w", m.RunID, err)
		}
	}
	return r, nil
}

// runGorm はRunRepositoryインターフェースのgorm実装です。
type runGorm struct {
	db *gorm.DB
}

var _ usecase.RunRepository = (*runGorm)(nil)

// NewRunRepository は指定されたDB接続でrunGormリポジトリの新しいインスタンスを生成します。
func NewRunRepository(db *gorm.DB) *runGorm {
	return &runGorm{db: db}
}

// Save は実行結果を1行として保存します。
func (r *runGorm) Save(ctx context.Context, run entity.RunResult) error {
	m, err := toModel(run)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&m).Error
}

// Latest は開始時刻が最も新しい実行結果を返します。1件もない場合は domain.ErrNotFound を返します。
func (r *runGorm) Latest(ctx context.Context) (entity.RunResult, error) {
	var m PipelineRunModel
	err := r.db.WithContext(ctx).Order("started_at DESC").Order("id DESC").First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.RunResult{}, domain.ErrNotFound
	}
	if err != nil {
		return entity.RunResult{}, err
	}
	return m.toEntity()
}
