// Package reconciliation moves transactions through the payment state machine:
// it initiates provider charges, applies webhook callbacks, and sweeps
// transactions whose webhook never arrived. All status writes go through
// conditional updates so concurrent reconcilers converge without locks.
package reconciliation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/susubox-payments-backend/internal/domain/event"
	"github.com/susubox-payments-backend/internal/domain/shared"
	"github.com/susubox-payments-backend/internal/domain/transaction"
	"github.com/susubox-payments-backend/internal/notification"
	"github.com/susubox-payments-backend/internal/outbox"
)

// Resolver applies provider-confirmed outcomes to pending transactions. It is
// shared by the webhook and polling reconcilers so both paths have identical
// side effects: one conditional status write, one ledger event, one
// notification.
type Resolver struct {
	transactions transaction.Repository
	recorder     outbox.Recorder
	notifier     notification.Notifier
	logger       *slog.Logger
}

// NewResolver creates a resolver
func NewResolver(logger *slog.Logger, transactions transaction.Repository, recorder outbox.Recorder, notifier notification.Notifier) *Resolver {
	return &Resolver{
		transactions: transactions,
		recorder:     recorder,
		notifier:     notifier,
		logger:       logger,
	}
}

// Complete transitions a pending transaction to completed. Losing the
// conditional update to a concurrent reconciler is a silent no-op; the other
// writer already produced the event and notification.
func (r *Resolver) Complete(ctx context.Context, tx *transaction.Transaction, source string) error {
	err := r.transactions.UpdateStatusIfPending(ctx, tx.ID, shared.PaymentStatusCompleted, "")
	if err != nil {
		if errors.Is(err, transaction.ErrAlreadyResolved{}) {
			r.logger.Debug("Transaction already resolved, skipping completion",
				"transaction_id", tx.ID.String(), "source", source)
			return nil
		}
		return err
	}

	tx.PaymentStatus = shared.PaymentStatusCompleted
	statusTransitions.WithLabelValues(string(tx.Type), "completed", source).Inc()

	if tx.Type == shared.TransactionTypePayout {
		r.completePayout(ctx, tx, source)
	} else {
		r.record(ctx, event.KindContributionCompleted, tx)
	}
	return nil
}

// Fail transitions a pending transaction to failed with the given reason
func (r *Resolver) Fail(ctx context.Context, tx *transaction.Transaction, reason, source string) error {
	err := r.transactions.UpdateStatusIfPending(ctx, tx.ID, shared.PaymentStatusFailed, reason)
	if err != nil {
		if errors.Is(err, transaction.ErrAlreadyResolved{}) {
			r.logger.Debug("Transaction already resolved, skipping failure",
				"transaction_id", tx.ID.String(), "source", source)
			return nil
		}
		return err
	}

	tx.PaymentStatus = shared.PaymentStatusFailed
	tx.FailureReason = reason
	statusTransitions.WithLabelValues(string(tx.Type), "failed", source).Inc()

	if tx.Type == shared.TransactionTypePayout {
		r.record(ctx, event.KindPayoutFailed, tx)
		r.notifier.PayoutFailed(ctx, tx)
	} else {
		r.record(ctx, event.KindContributionFailed, tx)
	}
	return nil
}

// completePayout promotes a just-completed payout to transferred. The transfer
// provider has confirmed the money movement, so completed is only a transient
// step on this path.
func (r *Resolver) completePayout(ctx context.Context, tx *transaction.Transaction, source string) {
	r.record(ctx, event.KindPayoutCompleted, tx)

	if err := r.transactions.MarkTransferredIfCompleted(ctx, tx.ID); err != nil {
		r.logger.Error("Failed to mark completed payout as transferred",
			"transaction_id", tx.ID.String(), "source", source, "error", err)
	} else {
		tx.PaymentStatus = shared.PaymentStatusTransferred
		tx.IsTransferred = true
		statusTransitions.WithLabelValues(string(tx.Type), "transferred", source).Inc()
		r.record(ctx, event.KindPayoutTransferred, tx)
	}

	r.notifier.PayoutCompleted(ctx, tx)
}

func (r *Resolver) record(ctx context.Context, kind event.Kind, tx *transaction.Transaction) {
	if err := r.recorder.Record(ctx, kind, tx); err != nil {
		r.logger.Error("Failed to record ledger event",
			"kind", string(kind), "transaction_id", tx.ID.String(), "error", err)
	}
}
