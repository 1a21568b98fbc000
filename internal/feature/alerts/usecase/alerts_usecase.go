// Package usecase はアラートルールの評価、保存、通知を実装します。
package usecase

import (
	"context"
	"fmt"
	"slices"
	"time"

	"ngx_pipeline/internal/feature/alerts/domain"
	"ngx_pipeline/internal/feature/alerts/domain/entity"
	"ngx_pipeline/internal/platform/logger"
	"ngx_pipeline/internal/shared/tradedate"
)

// RuleRepository はアラートルール設定の永続化層を抽象化します。
type RuleRepository interface {
	ListRules(ctx context.Context) ([]entity.RuleRecord, error)
	// SaveRules inserts rules whose name is not yet stored and returns how many were inserted.
	SaveRules(ctx context.Context, rules []entity.RuleRecord) (int, error)
}

// AlertRepository はアラートイベントの永続化層を抽象化します。
type AlertRepository interface {
	// SaveNew inserts alerts, ignoring (code, rule name, date) duplicates,
	// and returns only the rows actually inserted with their IDs set.
	SaveNew(ctx context.Context, alerts []entity.Alert) ([]entity.Alert, error)
	ListActive(ctx context.Context, code string) ([]entity.Alert, error)
	Resolve(ctx context.Context, id uint, notes string, at time.Time) (entity.Alert, error)
	MarkNotified(ctx context.Context, ids []uint, channels []string) error
}

// Notifier はアラート通知の送信先を抽象化します。送信はベストエフォートです。
type Notifier interface {
	Notify(ctx context.Context, msg entity.Message) []entity.Delivery
}

// NotifyResult は Notify の結果です。
type NotifyResult struct {
	Messages int
	Notified int
	Channels []string
	Warnings []string
}

// AlertsUsecase はアラートの評価と管理を提供します。
type AlertsUsecase struct {
	rules    RuleRepository
	events   AlertRepository
	notifier Notifier
	log      *logger.Logger
	now      func() time.Time
}

// NewAlertsUsecase はAlertsUsecaseを生成します。notifier が nil の場合 Notify は何もしません。
func NewAlertsUsecase(rules RuleRepository, events AlertRepository, notifier Notifier, log *logger.Logger) *AlertsUsecase {
	return &AlertsUsecase{rules: rules, events: events, notifier: notifier, log: log, now: time.Now}
}

// LoadRules は保存済みのルールをデコードして返します。
// デコードできない行は設定エラーとして警告ログを出し、結果から除外します。
func (u *AlertsUsecase) LoadRules(ctx context.Context) ([]entity.Rule, error) {
	records, err := u.rules.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	rules := make([]entity.Rule, 0, len(records))
	for _, rec := range records {
		r, err := rec.Decode()
		if err != nil {
			u.log.Warn("alert rule skipped", logger.String("rule", rec.Name), logger.Error(err))
			continue
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// EvaluateInstrument はルールを評価し、新規に発生したアラートだけを保存して返します。
// 同じ (銘柄, ルール, 日付) で再評価しても重複したアラートは返りません。
func (u *AlertsUsecase) EvaluateInstrument(ctx context.Context, in Input, rules []entity.Rule) ([]entity.Alert, error) {
	in.Date = tradedate.Normalize(in.Date)
	ev := Evaluate(in, rules)
	for _, s := range ev.Skipped {
		u.log.Debug("alert rule not evaluated",
			logger.String("code", in.Code),
			logger.String("rule", s.Rule),
			logger.String("reason", s.Reason))
	}
	if len(ev.Alerts) == 0 {
		return nil, nil
	}
	saved, err := u.events.SaveNew(ctx, ev.Alerts)
	if err != nil {
		return nil, fmt.Errorf("save alerts %s: %w", in.Code, err)
	}
	if dup := len(ev.Alerts) - len(saved); dup > 0 {
		u.log.Debug("duplicate alerts ignored", logger.String("code", in.Code), logger.Int("count", dup))
	}
	return saved, nil
}

// Notify は CRITICAL のアラートを個別に、全アラートを日次ダイジェストとして送信し、
// 1チャネル以上に届いたアラートを通知済みにします。失敗は警告として返し、エラーにはしません。
func (u *AlertsUsecase) Notify(ctx context.Context, alerts []entity.Alert, date time.Time) NotifyResult {
	var res NotifyResult
	if u.notifier == nil || len(alerts) == 0 {
		return res
	}

	delivered := map[string]bool{}
	send := func(msg entity.Message) bool {
		res.Messages++
		ok := false
		for _, d := range u.notifier.Notify(ctx, msg) {
			if d.Err != nil {
				res.Warnings = append(res.Warnings, fmt.Sprintf("notify %s via %s: %v", msg.Subject, d.Channel, d.Err))
				continue
			}
			delivered[d.Channel] = true
			ok = true
		}
		return ok
	}

	notified := map[uint]bool{}
	for _, a := range alerts {
		if a.Severity == entity.SeverityCritical && send(FormatAlert(a)) {
			notified[a.ID] = true
		}
	}
	if send(FormatDigest(alerts, date)) {
		for _, a := range alerts {
			notified[a.ID] = true
		}
	}

	for ch := range delivered {
		res.Channels = append(res.Channels, ch)
	}
	slices.Sort(res.Channels)
	ids := make([]uint, 0, len(notified))
	for _, a := range alerts {
		if notified[a.ID] && a.ID != 0 {
			ids = append(ids, a.ID)
		}
	}
	res.Notified = len(ids)
	if len(ids) > 0 {
		if err := u.events.MarkNotified(ctx, ids, res.Channels); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("mark notified: %v", err))
		}
	}
	for _, w := range res.Warnings {
		u.log.Warn("alert notification", logger.String("detail", w))
	}
	return res
}

// ListActive は未解決のアラートを返します。code が空なら全銘柄が対象です。
func (u *AlertsUsecase) ListActive(ctx context.Context, code string) ([]entity.Alert, error) {
	return u.events.ListActive(ctx, code)
}

// Resolve はアラートを解決済みにします。存在しない場合は domain.ErrNotFound を返します。
func (u *AlertsUsecase) Resolve(ctx context.Context, id uint, notes string) (entity.Alert, error) {
	if id == 0 {
		return entity.Alert{}, domain.ErrNotFound
	}
	return u.events.Resolve(ctx, id, notes, u.now().UTC())
}

// SeedDefaultRules は未登録の既定ルールを保存し、追加した件数を返します。
func (u *AlertsUsecase) SeedDefaultRules(ctx context.Context) (int, error) {
	defaults := entity.DefaultRules()
	records := make([]entity.RuleRecord, len(defaults))
	for i, r := range defaults {
		records[i] = r.Encode()
	}
	n, err := u.rules.SaveRules(ctx, records)
	if err != nil {
		return 0, fmt.Errorf("seed rules: %w", err)
	}
	if n > 0 {
		u.log.Info("default alert rules seeded", logger.Int("count", n))
	}
	return n, nil
}
