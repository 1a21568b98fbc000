package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"ngx_pipeline/internal/feature/alerts/domain/entity"
	"ngx_pipeline/internal/feature/alerts/usecase"
)

const ChannelKafka = "kafka"

// MessageWriter は kafka.Writer のうち送信に使う部分です。
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier は通知をKafkaトピックへ書き込みます。キーは重大度です。
type KafkaNotifier struct {
	writer MessageWriter
	topic  string
	now    func() time.Time
}

var _ usecase.Notifier = (*KafkaNotifier)(nil)

// NewKafkaWriter は brokers 宛ての同期 kafka.Writer を生成します。
func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		BatchTimeout: 100 * time.Millisecond,
	}
}

func NewKafkaNotifier(w MessageWriter, topic string) *KafkaNotifier {
	return &KafkaNotifier{writer: w, topic: topic, now: time.Now}
}

func (n *KafkaNotifier) Notify(ctx context.Context, msg entity.Message) []entity.Delivery {
	return []entity.Delivery{{Channel: ChannelKafka, Err: n.write(ctx, msg)}}
}

func (n *KafkaNotifier) write(ctx context.Context, msg entity.Message) error {
	b, err := encode(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	err = n.writer.WriteMessages(ctx, kafka.Message{
		Topic: n.topic,
		Key:   []byte(msg.Severity),
		Value: b,
		Time:  n.now(),
	})
	if err != nil {
		return fmt.Errorf("kafka write %s: %w", n.topic, err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
