package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"ngx_pipeline/internal/feature/alerts/domain/entity"
	"ngx_pipeline/internal/feature/alerts/usecase"
	"ngx_pipeline/internal/shared/ratelimiter"
)

const ChannelSlack = "slack"

var severityColor = map[entity.Severity]string{
	entity.SeverityCritical: "#FF0000",
	entity.SeverityWarning:  "#FFA500",
	entity.SeverityInfo:     "#00FF00",
}

type slackAttachment struct {
	Color    string   `json:"color"`
	Title    string   `json:"title,omitempty"`
	Text     string   `json:"text"`
	MrkdwnIn []string `json:"mrkdwn_in"`
}

type slackPayload struct {
	Attachments []slackAttachment `json:"attachments"`
}

// SlackNotifier は Incoming Webhook へ投稿します。
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
	limiter    ratelimiter.Limiter
}

var _ usecase.Notifier = (*SlackNotifier)(nil)

// NewSlackNotifier はSlackNotifierを生成します。limiter が nil の場合は制限なしです。
func NewSlackNotifier(webhookURL string, client *http.Client, limiter ratelimiter.Limiter) *SlackNotifier {
	if client == nil {
		client = http.DefaultClient
	}
	if limiter == nil {
		limiter = ratelimiter.Unlimited{}
	}
	return &SlackNotifier{webhookURL: webhookURL, client: client, limiter: limiter}
}

func (n *SlackNotifier) Notify(ctx context.Context, msg entity.Message) []entity.Delivery {
	return []entity.Delivery{{Channel: ChannelSlack, Err: n.send(ctx, msg)}}
}

func (n *SlackNotifier) send(ctx context.Context, msg entity.Message) error {
	color, ok := severityColor[msg.Severity]
	if !ok {
		color = "#808080"
	}
	body, err := json.Marshal(slackPayload{Attachments: []slackAttachment{{
		Color:    color,
		Title:    msg.Subject,
		Text:     msg.Body,
		MrkdwnIn: []string{"text"},
	}}})
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack webhook: status %d: %s", resp.StatusCode, bytes.TrimSpace(b))
	}
	return nil
}
