package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/susubox-payments-backend/internal/config"
	"github.com/susubox-payments-backend/internal/domain/event"
	"github.com/susubox-payments-backend/internal/domain/shared"
	"github.com/susubox-payments-backend/internal/platform/messaging/producers"
)

// Poller drains pending ledger events to Kafka
type Poller struct {
	events           event.Repository
	publisher        producers.MessagePublisher
	dlqPublisher     producers.DeadLetterPublisher
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(
	cfg *config.OutboxConfig,
	events event.Repository,
	publisher producers.MessagePublisher,
	dlqPublisher producers.DeadLetterPublisher,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		events:           events,
		publisher:        publisher,
		dlqPublisher:     dlqPublisher,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start begins polling until context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting outbox poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox poller stopping due to context cancellation.")
			return
		case <-ticker.C:
			if err := p.processPendingEvents(ctx); err != nil {
				p.logger.Error("Error during batch processing of pending ledger events", "error", err)
			}
		}
	}
}

func (p *Poller) processPendingEvents(ctx context.Context) error {
	events, err := p.events.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending ledger events: %w", err)
	}

	if len(events) == 0 {
		return nil
	}

	p.logger.Debug("Fetched pending ledger events", "count", len(events))

	for _, e := range events {
		if err := p.publishEvent(ctx, e); err != nil {
			p.logger.Error("Failed to publish ledger event",
				"outbox_id", e.ID, "transaction_id", e.TransactionID, "current_attempts", e.Attempts, "error", err,
			)

			if errInc := p.events.IncrementAttempts(ctx, e.ID); errInc != nil {
				p.logger.Error("Failed to increment attempts for ledger event", "outbox_id", e.ID, "error", errInc)
				continue
			}

			if e.Attempts+1 >= p.maxRetryAttempts {
				p.exhaustEvent(ctx, e)
			}
			continue
		}

		if err := p.events.UpdateStatus(ctx, e.ID, shared.OutboxStatusProcessed); err != nil {
			p.logger.Error("Published ledger event but failed to mark it PROCESSED",
				"outbox_id", e.ID, "error", err,
			)
		}
	}
	return nil
}

func (p *Poller) publishEvent(ctx context.Context, e *event.LedgerEvent) error {
	// Key by jar so consumers see per-jar event order
	return p.publisher.Publish(ctx, e.JarID.String(), e)
}

// exhaustEvent parks an event that ran out of publish attempts: it is marked
// FAILED_TO_PUBLISH and forwarded to the DLQ for operator inspection.
func (p *Poller) exhaustEvent(ctx context.Context, e *event.LedgerEvent) {
	p.logger.Warn("Max retry attempts reached for ledger event, marking as FAILED_TO_PUBLISH",
		"outbox_id", e.ID, "transaction_id", e.TransactionID, "attempts_made", e.Attempts+1,
	)

	if err := p.events.UpdateStatus(ctx, e.ID, shared.OutboxStatusFailedToPublish); err != nil {
		p.logger.Error("Failed to update ledger event status to FAILED_TO_PUBLISH", "outbox_id", e.ID, "error", err)
	}

	if p.dlqPublisher == nil {
		return
	}
	reason := fmt.Sprintf("ledger event %d exhausted %d publish attempts", e.ID, p.maxRetryAttempts)
	if err := p.dlqPublisher.PublishToDLQ(ctx, e.TransactionID.String(), e.Payload, reason); err != nil {
		p.logger.Error("Failed to forward exhausted ledger event to DLQ", "outbox_id", e.ID, "error", err)
	}
}
