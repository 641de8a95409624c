package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/susubox-payments-backend/internal/domain/shared"
	"github.com/susubox-payments-backend/internal/domain/transaction"
)

// Kind categorizes ledger events published for the admin dashboard
type Kind string

const (
	KindContributionCompleted Kind = "contribution.completed"
	KindContributionFailed    Kind = "contribution.failed"
	KindContributionSettled   Kind = "contribution.settled"
	KindPayoutInitiated       Kind = "payout.initiated"
	KindPayoutCompleted       Kind = "payout.completed"
	KindPayoutFailed          Kind = "payout.failed"
	KindPayoutTransferred     Kind = "payout.transferred"
)

// LedgerEvent stores a reconciliation state change for reliable publishing.
// Rows are written alongside the state change and drained to Kafka by the
// outbox poller.
type LedgerEvent struct {
	ID            int64               `json:"id"`
	TransactionID uuid.UUID           `json:"transaction_id"`
	JarID         uuid.UUID           `json:"jar_id"`
	Kind          Kind                `json:"kind"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

// NewLedgerEvent snapshots a transaction into a pending outbox event
func NewLedgerEvent(kind Kind, tx *transaction.Transaction) (*LedgerEvent, error) {
	payload, err := json.Marshal(tx)
	if err != nil {
		return nil, err
	}

	return &LedgerEvent{
		TransactionID: tx.ID,
		JarID:         tx.JarID,
		Kind:          kind,
		Payload:       payload,
		Status:        shared.OutboxStatusPending,
		Attempts:      0,
		CreatedAt:     time.Now(),
	}, nil
}

func (e *LedgerEvent) IncrementAttempts() {
	e.Attempts++
	now := time.Now()
	e.LastAttemptAt = &now
}

func (e *LedgerEvent) MarkAsProcessed() {
	e.Status = shared.OutboxStatusProcessed
	now := time.Now()
	e.LastAttemptAt = &now
}

func (e *LedgerEvent) MarkAsFailed() {
	e.Status = shared.OutboxStatusFailedToPublish
	now := time.Now()
	e.LastAttemptAt = &now
}

// GetTransaction extracts the transaction snapshot from the payload
func (e *LedgerEvent) GetTransaction() (*transaction.Transaction, error) {
	var tx transaction.Transaction
	if err := json.Unmarshal(e.Payload, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}
