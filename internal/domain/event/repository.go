package event

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/susubox-payments-backend/internal/domain/shared"
)

// Repository manages transactional outbox persistence for ledger events
type Repository interface {
	Create(ctx context.Context, event *LedgerEvent) error
	GetPending(ctx context.Context, limit int) ([]*LedgerEvent, error)
	UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error
	IncrementAttempts(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
	GetByTransactionID(ctx context.Context, transactionID uuid.UUID) ([]*LedgerEvent, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrEventNotFound indicates a missing outbox event
type ErrEventNotFound struct {
	ID int64
}

func (e ErrEventNotFound) Error() string {
	return "ledger event not found: " + strconv.FormatInt(e.ID, 10)
}
