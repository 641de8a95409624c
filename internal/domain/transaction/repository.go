package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/susubox-payments-backend/internal/domain/shared"
)

// BalanceBreakdown summarizes a jar's ledger position
type BalanceBreakdown struct {
	TotalContributions int64 // sum of completed contributions, settled or not
	SettledAmount      int64 // sum of completed and settled contributions
	PayoutsOutstanding int64 // sum of pending/completed/transferred payouts (negative)
	Available          int64 // SettledAmount + PayoutsOutstanding
}

// Repository defines transaction persistence operations.
//
// Status mutations are conditional at the storage layer: UpdateStatusIfPending
// only acts on rows still pending, so concurrent reconcilers (webhook vs poll
// sweep) converge without application-level locking.
type Repository interface {
	Create(ctx context.Context, tx *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	GetByReference(ctx context.Context, reference string) (*Transaction, error)

	// SetChargeDetails persists the provider reference and charge breakdown
	// after a charge has been accepted by the provider.
	SetChargeDetails(ctx context.Context, id uuid.UUID, reference string, platformCharge, amountPaid int64) error

	// SetReference persists the provider-assigned reference for a payout
	SetReference(ctx context.Context, id uuid.UUID, reference string) error

	// UpdateStatusIfPending transitions a pending transaction to the given
	// status. Returns ErrAlreadyResolved if the row is no longer pending.
	UpdateStatusIfPending(ctx context.Context, id uuid.UUID, status shared.PaymentStatus, reason string) error

	// MarkTransferredIfCompleted moves a completed payout to transferred
	MarkTransferredIfCompleted(ctx context.Context, id uuid.UUID) error

	// ListPendingMobileMoney returns pending mobile money transactions created
	// before the cutoff, oldest first.
	ListPendingMobileMoney(ctx context.Context, before time.Time, limit int) ([]*Transaction, error)

	// ListSettleable returns completed, unsettled mobile money contributions
	// created before the cutoff.
	ListSettleable(ctx context.Context, before time.Time, limit int) ([]*Transaction, error)

	// MarkSettled flips is_settled for eligible rows and returns the ids it
	// actually settled. A concurrent sweep may win some of the batch; callers
	// act only on the returned ids.
	MarkSettled(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)

	// HasPendingPayout reports whether a payout is already in flight for the jar
	HasPendingPayout(ctx context.Context, jarID uuid.UUID) (bool, error)

	// BalanceBreakdown aggregates the jar's ledger position in SQL
	BalanceBreakdown(ctx context.Context, jarID uuid.UUID) (*BalanceBreakdown, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrTransactionNotFound indicates a missing transaction
type ErrTransactionNotFound struct {
	ID uuid.UUID
}

func (e ErrTransactionNotFound) Error() string {
	return "transaction not found: " + e.ID.String()
}

// Is matches any ErrTransactionNotFound when the target carries a nil ID
func (e ErrTransactionNotFound) Is(target error) bool {
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}

// ErrReferenceNotFound indicates no transaction carries the given provider reference
type ErrReferenceNotFound struct {
	Reference string
}

func (e ErrReferenceNotFound) Error() string {
	return "no transaction with reference: " + e.Reference
}

// Is matches any ErrReferenceNotFound when the target carries an empty reference
func (e ErrReferenceNotFound) Is(target error) bool {
	t, ok := target.(ErrReferenceNotFound)
	if !ok {
		return false
	}
	if t.Reference == "" {
		return true
	}
	return e.Reference == t.Reference
}

// ErrAlreadyResolved indicates a conditional status update matched no pending row.
// This is how a lost reconciliation race surfaces; callers treat it as a no-op.
type ErrAlreadyResolved struct {
	ID uuid.UUID
}

func (e ErrAlreadyResolved) Error() string {
	return "transaction already resolved: " + e.ID.String()
}

// Is matches any ErrAlreadyResolved when the target carries a nil ID
func (e ErrAlreadyResolved) Is(target error) bool {
	t, ok := target.(ErrAlreadyResolved)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}

// ErrDuplicateReference indicates reference uniqueness violation
type ErrDuplicateReference struct {
	Reference string
}

func (e ErrDuplicateReference) Error() string {
	return "duplicate transaction reference: " + e.Reference
}
