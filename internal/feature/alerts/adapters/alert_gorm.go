// Package adapters はalertsフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ngx_pipeline/internal/feature/alerts/domain"
	"ngx_pipeline/internal/feature/alerts/domain/entity"
	"ngx_pipeline/internal/feature/alerts/usecase"
	"ngx_pipeline/internal/shared/tradedate"
)

// AlertRuleModel は alert_rules テーブルの行です。
type AlertRuleModel struct {
	ID        uint    `gorm:"primaryKey"`
	Name      string  `gorm:"size:100;not null;uniqueIndex"`
	Kind      string  `gorm:"size:30;not null"`
	Primary   float64 `gorm:"column:primary_threshold;not null"`
	Secondary float64 `gorm:"column:secondary_threshold;not null"`
	Severity  string  `gorm:"size:10"`
	Active    bool    `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (AlertRuleModel) TableName() string { return "alert_rules" }

// AlertEventModel は alert_events テーブルの行です。
type AlertEventModel struct {
	ID                   uint       `gorm:"primaryKey"`
	Code                 string     `gorm:"size:20;not null;uniqueIndex:alert_code_rule_date,priority:1"`
	RuleName             string     `gorm:"size:100;not null;uniqueIndex:alert_code_rule_date,priority:2"`
	Date                 time.Time  `gorm:"not null;uniqueIndex:alert_code_rule_date,priority:3"`
	Kind                 string     `gorm:"size:30;not null"`
	Severity             string     `gorm:"size:10;not null;index"`
	TriggerValue         float64    `gorm:"not null"`
	Threshold            float64    `gorm:"not null"`
	Message              string     `gorm:"type:text;not null"`
	Resolved             bool       `gorm:"not null;index"`
	ResolvedAt           *time.Time
	ResolutionNotes      string `gorm:"type:text"`
	NotificationSent     bool   `gorm:"not null"`
	NotificationChannels string `gorm:"size:255"`
	CreatedAt            time.Time
}

func (AlertEventModel) TableName() string { return "alert_events" }

func eventFromEntity(a entity.Alert) AlertEventModel {
	return AlertEventModel{
		Code:         a.Code,
		RuleName:     a.RuleName,
		Date:         tradedate.Normalize(a.Date),
		Kind:         string(a.Kind),
		Severity:     string(a.Severity),
		TriggerValue: a.TriggerValue,
		Threshold:    a.Threshold,
		Message:      a.Message,
	}
}

func (m AlertEventModel) toEntity() entity.Alert {
	var channels []string
	if m.NotificationChannels != "" {
		channels = strings.Split(m.NotificationChannels, ",")
	}
	return entity.Alert{
		ID:                   m.ID,
		Code:                 m.Code,
		RuleName:             m.RuleName,
		Kind:                 entity.RuleKind(m.Kind),
		Date:                 tradedate.Normalize(m.Date),
		Severity:             entity.Severity(m.Severity),
		TriggerValue:         m.TriggerValue,
		Threshold:            m.Threshold,
		Message:              m.Message,
		Resolved:             m.Resolved,
		ResolvedAt:           m.ResolvedAt,
		ResolutionNotes:      m.ResolutionNotes,
		NotificationSent:     m.NotificationSent,
		NotificationChannels: channels,
		CreatedAt:            m.CreatedAt,
	}
}

// ruleGorm はRuleRepositoryインターフェースのgorm実装です。
type ruleGorm struct {
	db *gorm.DB
}

var _ usecase.RuleRepository = (*ruleGorm)(nil)

// NewRuleRepository は指定されたDB接続でruleGormリポジトリの新しいインスタンスを生成します。
func NewRuleRepository(db *gorm.DB) *ruleGorm {
	return &ruleGorm{db: db}
}

// ListRules は名前順にすべてのルールを返します。無効なルールも含みます。
func (r *ruleGorm) ListRules(ctx context.Context) ([]entity.RuleRecord, error) {
	var rows []AlertRuleModel
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.RuleRecord, 0, len(rows))
	for _, m := range rows {
		out = append(out, entity.RuleRecord{
			Name:      m.Name,
			Kind:      entity.RuleKind(m.Kind),
			Primary:   m.Primary,
			Secondary: m.Secondary,
			Severity:  entity.Severity(m.Severity),
			Active:    m.Active,
		})
	}
	return out, nil
}

// SaveRules は未登録の名前のルールだけを挿入します。既存のルールは変更しません。
func (r *ruleGorm) SaveRules(ctx context.Context, rules []entity.RuleRecord) (int, error) {
	inserted := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rec := range rules {
			m := AlertRuleModel{
				Name:      rec.Name,
				Kind:      string(rec.Kind),
				Primary:   rec.Primary,
				Secondary: rec.Secondary,
				Severity:  string(rec.Severity),
				Active:    rec.Active,
			}
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoNothing: true,
			}).Create(&m)
			if res.Error != nil {
				return fmt.Errorf("save rule %s: %w", rec.Name, res.Error)
			}
			inserted += int(res.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// alertGorm はAlertRepositoryインターフェースのgorm実装です。
type alertGorm struct {
	db *gorm.DB
}

var _ usecase.AlertRepository = (*alertGorm)(nil)

// NewAlertRepository は指定されたDB接続でalertGormリポジトリの新しいインスタンスを生成します。
func NewAlertRepository(db *gorm.DB) *alertGorm {
	return &alertGorm{db: db}
}

// SaveNew は (code, rule_name, date) が衝突する行を無視して挿入し、実際に挿入された行だけを返します。
func (r *alertGorm) SaveNew(ctx context.Context, alerts []entity.Alert) ([]entity.Alert, error) {
	var saved []entity.Alert
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, a := range alerts {
			m := eventFromEntity(a)
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "code"}, {Name: "rule_name"}, {Name: "date"}},
				DoNothing: true,
			}).Create(&m)
			if res.Error != nil {
				return fmt.Errorf("save alert %s/%s: %w", a.Code, a.RuleName, res.Error)
			}
			if res.RowsAffected == 0 {
				continue
			}
			saved = append(saved, m.toEntity())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// ListActive は未解決のアラートを新しい日付順に返します。code が空なら全銘柄が対象です。
func (r *alertGorm) ListActive(ctx context.Context, code string) ([]entity.Alert, error) {
	q := r.db.WithContext(ctx).Where("resolved = ?", false)
	if code != "" {
		q = q.Where("code = ?", code)
	}
	var rows []AlertEventModel
	if err := q.Order("date DESC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.Alert, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toEntity())
	}
	return out, nil
}

// Resolve はアラートを解決済みにして更新後の値を返します。
// 行がない場合は domain.ErrNotFound、解決済みの場合は domain.ErrAlreadyResolved を返します。
func (r *alertGorm) Resolve(ctx context.Context, id uint, notes string, at time.Time) (entity.Alert, error) {
	var m AlertEventModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&m, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if m.Resolved {
			return domain.ErrAlreadyResolved
		}
		if err := tx.Model(&m).Updates(map[string]any{
			"resolved":         true,
			"resolved_at":      at,
			"resolution_notes": notes,
		}).Error; err != nil {
			return err
		}
		m.Resolved, m.ResolvedAt, m.ResolutionNotes = true, &at, notes
		return nil
	})
	if err != nil {
		return entity.Alert{}, err
	}
	return m.toEntity(), nil
}

// MarkNotified は指定したアラートを通知済みにし、送信チャネルを記録します。
func (r *alertGorm) MarkNotified(ctx context.Context, ids []uint, channels []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&AlertEventModel{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"notification_sent":     true,
			"notification_channels": strings.Join(channels, ","),
		}).Error
}
