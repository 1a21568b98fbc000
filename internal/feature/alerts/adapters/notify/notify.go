// Package notify はアラート通知チャネルの実装を提供します。
// いずれも usecase.Notifier を満たし、送信結果をチャネルごとの Delivery として返します。
package notify

import (
	"context"
	"encoding/json"
	"errors"

	"ngx_pipeline/internal/feature/alerts/domain/entity"
	"ngx_pipeline/internal/feature/alerts/usecase"
	"ngx_pipeline/internal/shared/tradedate"
)

// payload is the JSON body published on the redis and kafka channels.
type payload struct {
	Subject  string         `json:"subject"`
	Severity string         `json:"severity"`
	Body     string         `json:"body"`
	Alerts   []alertPayload `json:"alerts"`
}

type alertPayload struct {
	ID           uint    `json:"id,omitempty"`
	Code         string  `json:"code"`
	Rule         string  `json:"rule"`
	Kind         string  `json:"kind"`
	Date         string  `json:"date"`
	Severity     string  `json:"severity"`
	TriggerValue float64 `json:"trigger_value"`
	Threshold    float64 `json:"threshold"`
	Message      string  `json:"message"`
}

func encode(msg entity.Message) ([]byte, error) {
	p := payload{
		Subject:  msg.Subject,
		Severity: string(msg.Severity),
		Body:     msg.Body,
		Alerts:   make([]alertPayload, 0, len(msg.Alerts)),
	}
	for _, a := range msg.Alerts {
		p.Alerts = append(p.Alerts, alertPayload{
			ID:           a.ID,
			Code:         a.Code,
			Rule:         a.RuleName,
			Kind:         string(a.Kind),
			Date:         tradedate.Format(a.Date),
			Severity:     string(a.Severity),
			TriggerValue: a.TriggerValue,
			Threshold:    a.Threshold,
			Message:      a.Message,
		})
	}
	return json.Marshal(p)
}

// Multi は複数のチャネルへ順に送信します。1つのチャネルの失敗は他に影響しません。
type Multi struct {
	notifiers []usecase.Notifier
}

var _ usecase.Notifier = (*Multi)(nil)

func NewMulti(notifiers ...usecase.Notifier) *Multi {
	return &Multi{notifiers: notifiers}
}

func (m *Multi) Notify(ctx context.Context, msg entity.Message) []entity.Delivery {
	var out []entity.Delivery
	for _, n := range m.notifiers {
		out = append(out, n.Notify(ctx, msg)...)
	}
	return out
}

// Len returns the number of configured channels.
func (m *Multi) Len() int { return len(m.notifiers) }

// Close closes every channel that holds a connection.
func (m *Multi) Close() error {
	var errs []error
	for _, n := range m.notifiers {
		if c, ok := n.(interface{ Close() error }); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
