package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// MessagePublisher publishes ledger events to the primary topic. The outbox
// poller is the only caller; keying is by jar so per-jar order holds.
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// DeadLetterPublisher parks messages that exhausted their publish retries
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
