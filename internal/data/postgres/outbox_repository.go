package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/susubox-payments-backend/internal/domain/event"
	"github.com/susubox-payments-backend/internal/domain/shared"
	"github.com/susubox-payments-backend/internal/platform/persistence"
)

// OutboxRepository implements the event.Repository interface for PostgreSQL
type OutboxRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewOutboxRepository creates a new PostgreSQL outbox repository
func NewOutboxRepository(logger *slog.Logger, db *persistence.PostgresDB) event.Repository {
	return &OutboxRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so events commit atomically
// with the state change they record.
func (r *OutboxRepository) WithTx(tx pgx.Tx) event.Repository {
	return &OutboxRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new ledger event in the outbox
func (r *OutboxRepository) Create(ctx context.Context, e *event.LedgerEvent) error {
	query := `
		INSERT INTO outbox_messages (transaction_id, jar_id, kind, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		e.TransactionID, e.JarID, e.Kind, e.Payload, e.Status, e.Attempts, e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		r.logger.Error("Failed to create ledger event", "transaction_id", e.TransactionID.String(), "error", err)
		return fmt.Errorf("failed to create ledger event: %w", err)
	}

	return nil
}

// GetPending retrieves unpublished events, oldest first
func (r *OutboxRepository) GetPending(ctx context.Context, limit int) ([]*event.LedgerEvent, error) {
	query := `
		SELECT id, transaction_id, jar_id, kind, payload, status, attempts, created_at, last_attempt_at
		FROM outbox_messages
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, shared.OutboxStatusPending, limit)
	if err != nil {
		r.logger.Error("Failed to get pending ledger events", "error", err)
		return nil, fmt.Errorf("failed to get pending ledger events: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// UpdateStatus updates the status of a ledger event
func (r *OutboxRepository) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	query := `
		UPDATE outbox_messages
		SET status = $1, last_attempt_at = NOW()
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update ledger event status", "id", id, "error", err)
		return fmt.Errorf("failed to update ledger event status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return event.ErrEventNotFound{ID: id}
	}

	return nil
}

// IncrementAttempts increments the publish attempt counter
func (r *OutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	query := `
		UPDATE outbox_messages
		SET attempts = attempts + 1, last_attempt_at = NOW()
		WHERE id = $1
	`

	result, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to increment ledger event attempts", "id", id, "error", err)
		return fmt.Errorf("failed to increment ledger event attempts: %w", err)
	}

	if result.RowsAffected() == 0 {
		return event.ErrEventNotFound{ID: id}
	}

	return nil
}

// Delete removes a ledger event from the outbox
func (r *OutboxRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM outbox_messages WHERE id = $1`

	result, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete ledger event", "id", id, "error", err)
		return fmt.Errorf("failed to delete ledger event: %w", err)
	}

	if result.RowsAffected() == 0 {
		return event.ErrEventNotFound{ID: id}
	}

	return nil
}

// GetByTransactionID retrieves all events recorded for a transaction
func (r *OutboxRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) ([]*event.LedgerEvent, error) {
	query := `
		SELECT id, transaction_id, jar_id, kind, payload, status, attempts, created_at, last_attempt_at
		FROM outbox_messages
		WHERE transaction_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.querier.Query(ctx, query, transactionID)
	if err != nil {
		r.logger.Error("Failed to get ledger events by transaction", "transaction_id", transactionID.String(), "error", err)
		return nil, fmt.Errorf("failed to get ledger events by transaction: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

func (r *OutboxRepository) scanAll(rows pgx.Rows) ([]*event.LedgerEvent, error) {
	var events []*event.LedgerEvent
	for rows.Next() {
		var e event.LedgerEvent
		err := rows.Scan(&e.ID, &e.TransactionID, &e.JarID, &e.Kind, &e.Payload,
			&e.Status, &e.Attempts, &e.CreatedAt, &e.LastAttemptAt)
		if err != nil {
			r.logger.Error("Failed to scan ledger event row", "error", err)
			return nil, fmt.Errorf("failed to scan ledger event row: %w", err)
		}
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over ledger events: %w", err)
	}

	return events, nil
}
