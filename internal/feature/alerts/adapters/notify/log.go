package notify

import (
	"context"

	"ngx_pipeline/internal/feature/alerts/domain/entity"
	"ngx_pipeline/internal/feature/alerts/usecase"
	"ngx_pipeline/internal/platform/logger"
)

const ChannelLog = "log"

// LogNotifier は通知をログに書き出します。
type LogNotifier struct {
	log *logger.Logger
}

var _ usecase.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, msg entity.Message) []entity.Delivery {
	n.log.Info("alert notification",
		logger.String("subject", msg.Subject),
		logger.String("severity", string(msg.Severity)),
		logger.Int("alerts", len(msg.Alerts)))
	return []entity.Delivery{{Channel: ChannelLog}}
}
