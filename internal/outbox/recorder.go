// Package outbox implements the transactional outbox for ledger events:
// reconciliation writes events next to the state change, and a poller drains
// them to Kafka.
package outbox

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/susubox-payments-backend/internal/domain/event"
	"github.com/susubox-payments-backend/internal/domain/transaction"
)

// Recorder writes ledger events. Publish failures never fail the caller's
// state change; the poller retries from the table.
type Recorder interface {
	Record(ctx context.Context, kind event.Kind, tx *transaction.Transaction) error
	WithTx(dbTx pgx.Tx) Recorder
}

type recorder struct {
	events event.Repository
	logger *slog.Logger
}

// NewRecorder creates an outbox recorder
func NewRecorder(logger *slog.Logger, events event.Repository) Recorder {
	return &recorder{
		events: events,
		logger: logger,
	}
}

func (r *recorder) Record(ctx context.Context, kind event.Kind, tx *transaction.Transaction) error {
	e, err := event.NewLedgerEvent(kind, tx)
	if err != nil {
		return fmt.Errorf("failed to build ledger event: %w", err)
	}

	if err := r.events.Create(ctx, e); err != nil {
		return fmt.Errorf("failed to record ledger event: %w", err)
	}

	r.logger.Debug("Recorded ledger event",
		"kind", string(kind),
		"transaction_id", tx.ID.String(),
		"outbox_id", e.ID,
	)
	return nil
}

// WithTx binds the recorder to a database transaction so the event commits
// atomically with the ledger mutation.
func (r *recorder) WithTx(dbTx pgx.Tx) Recorder {
	return &recorder{
		events: r.events.WithTx(dbTx),
		logger: r.logger,
	}
}
