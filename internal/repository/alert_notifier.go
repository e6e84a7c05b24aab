package repository

import (
	"context"
	"fmt"

	"FinAlert/internal/domain/models"
)

// Publisher is the keyed publish call of pkg/kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// KafkaAlertNotifier publishes every persisted alert to a topic keyed by symbol.
type KafkaAlertNotifier struct {
	pub   Publisher
	topic string
}

func NewKafkaAlertNotifier(pub Publisher, topic string) *KafkaAlertNotifier {
	return &KafkaAlertNotifier{pub: pub, topic: topic}
}

func (n *KafkaAlertNotifier) Notify(ctx context.Context, a models.GeneratedAlert) error {
	if err := n.pub.Publish(ctx, n.topic, []byte(a.Symbol), a); err != nil {
		return fmt.Errorf("publish alert %s: %w", a.ID, err)
	}
	return nil
}
