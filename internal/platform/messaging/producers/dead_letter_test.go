package producers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockKafkaWriter is defined in ledger_event_test.go

func newDLQTestProducer(writer KafkaWriter) *DLQProducer {
	return &DLQProducer{
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
		writer: writer,
		topic:  "ledger_events_dlq",
	}
}

func TestDLQProducer_PublishToDLQ(t *testing.T) {
	ctx := context.Background()

	t.Run("WrapsOriginalMessage", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := newDLQTestProducer(mockWriter)

		key := "jar-uuid"
		original := []byte(`{"kind":"contribution.completed"}`)
		reason := "max publish attempts reached"

		mockWriter.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
			if len(msgs) != 1 || string(msgs[0].Key) != key {
				return false
			}
			var envelope dlqEnvelope
			if err := json.Unmarshal(msgs[0].Value, &envelope); err != nil {
				return false
			}
			return envelope.OriginalKey == key &&
				envelope.OriginalValue == string(original) &&
				envelope.DLQReason == reason &&
				envelope.Timestamp != ""
		})).Return(nil).Once()

		err := producer.PublishToDLQ(ctx, key, original, reason)
		require.NoError(t, err)
		mockWriter.AssertExpectations(t)
	})

	t.Run("WriterFailurePropagates", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := newDLQTestProducer(mockWriter)

		writerErr := errors.New("broker unavailable")
		mockWriter.On("WriteMessages", ctx, mock.AnythingOfType("[]kafka.Message")).Return(writerErr).Once()

		err := producer.PublishToDLQ(ctx, "key", []byte("payload"), "reason")
		require.Error(t, err)
		assert.Contains(t, err.Error(), writerErr.Error())
	})

	t.Run("DisabledProducerRefusesToDrop", func(t *testing.T) {
		producer := newDLQTestProducer(nil)

		err := producer.PublishToDLQ(ctx, "key", []byte("payload"), "reason")
		require.Error(t, err)
		assert.Equal(t, "DLQ producer not initialized", err.Error())
	})
}

func TestDLQProducer_Close(t *testing.T) {
	t.Run("ClosesWriter", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := newDLQTestProducer(mockWriter)

		mockWriter.On("Close").Return(nil).Once()
		require.NoError(t, producer.Close())
		mockWriter.AssertExpectations(t)
	})

	t.Run("CloseFailurePropagates", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := newDLQTestProducer(mockWriter)

		closeErr := errors.New("close failed")
		mockWriter.On("Close").Return(closeErr).Once()

		err := producer.Close()
		require.Error(t, err)
		assert.Contains(t, err.Error(), closeErr.Error())
	})

	t.Run("DisabledProducerCloseIsNoOp", func(t *testing.T) {
		producer := newDLQTestProducer(nil)
		require.NoError(t, producer.Close())
	})
}
