package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/susubox-payments-backend/internal/domain/event"
	"github.com/susubox-payments-backend/internal/domain/jar"
	"github.com/susubox-payments-backend/internal/domain/settings"
	"github.com/susubox-payments-backend/internal/domain/shared"
	"github.com/susubox-payments-backend/internal/domain/transaction"
	"github.com/susubox-payments-backend/internal/notification"
	"github.com/susubox-payments-backend/internal/outbox"
	"github.com/susubox-payments-backend/internal/platform/provider"
)

// ErrPayoutInFlight indicates the jar already has a payout being processed
var ErrPayoutInFlight = errors.New("a payout for this jar is already in progress")

// ErrBelowMinimum indicates the withdrawable balance is under the payout floor
type ErrBelowMinimum struct {
	Available int64
	Minimum   int64
}

func (e ErrBelowMinimum) Error() string {
	return fmt.Sprintf("withdrawable balance %d is below the minimum payout of %d", e.Available, e.Minimum)
}

// Is matches any ErrBelowMinimum regardless of amounts
func (e ErrBelowMinimum) Is(target error) bool {
	_, ok := target.(ErrBelowMinimum)
	return ok
}

// PayoutOrchestrator turns a jar's settled balance into a provider transfer.
// At most one payout per jar may be pending at a time: the in-process lock is
// the fast path, the database pending-payout check is authoritative.
type PayoutOrchestrator struct {
	transactions transaction.Repository
	jars         jar.Repository
	settings     settings.Repository
	registry     *provider.Registry
	locks        *JarLocks
	recorder     outbox.Recorder
	notifier     notification.Notifier
	logger       *slog.Logger
}

// NewPayoutOrchestrator creates a payout orchestrator
func NewPayoutOrchestrator(
	logger *slog.Logger,
	transactions transaction.Repository,
	jars jar.Repository,
	settingsRepo settings.Repository,
	registry *provider.Registry,
	locks *JarLocks,
	recorder outbox.Recorder,
	notifier notification.Notifier,
) *PayoutOrchestrator {
	return &PayoutOrchestrator{
		transactions: transactions,
		jars:         jars,
		settings:     settingsRepo,
		registry:     registry,
		locks:        locks,
		recorder:     recorder,
		notifier:     notifier,
		logger:       logger,
	}
}

// InitiatePayout withdraws the jar's full available balance to the creator's
// withdrawal account. The payout row is written pending before the transfer
// call, and the transfer reference embeds the transaction id so webhooks can
// always be matched back.
func (o *PayoutOrchestrator) InitiatePayout(ctx context.Context, jarID, requesterID uuid.UUID) (*transaction.Transaction, error) {
	if !o.locks.TryAcquire(jarID) {
		return nil, ErrPayoutInFlight
	}
	defer o.locks.Release(jarID)

	j, err := o.jars.GetByID(ctx, jarID)
	if err != nil {
		return nil, err
	}
	if j.CreatorID != requesterID {
		return nil, jar.ErrNotCreator
	}
	if !j.AcceptsPayout() {
		return nil, jar.ErrJarNotAccepting{ID: j.ID, Status: string(j.Status)}
	}
	if !j.WithdrawalAccount.Complete() {
		return nil, jar.ErrNoWithdrawalAccount
	}

	inFlight, err := o.transactions.HasPendingPayout(ctx, jarID)
	if err != nil {
		return nil, err
	}
	if inFlight {
		return nil, ErrPayoutInFlight
	}

	balance, err := o.transactions.BalanceBreakdown(ctx, jarID)
	if err != nil {
		return nil, err
	}

	cfg, err := o.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load platform settings for payout: %w", err)
	}
	if balance.Available < cfg.MinimumPayout {
		return nil, ErrBelowMinimum{Available: balance.Available, Minimum: cfg.MinimumPayout}
	}

	tx, err := transaction.NewPayout(jarID, j.CreatorID, balance.Available, cfg.TransferFeeBps)
	if err != nil {
		return nil, err
	}
	tx.Processor = provider.PaystackName
	tx.Reference = fmt.Sprintf("payout-%s", tx.ID)

	client, err := o.registry.Client(tx.Processor)
	if err != nil {
		return nil, err
	}

	if err := o.transactions.Create(ctx, tx); err != nil {
		return nil, err
	}

	if err := o.recorder.Record(ctx, event.KindPayoutInitiated, tx); err != nil {
		o.logger.Error("Failed to record payout initiation event",
			"transaction_id", tx.ID.String(), "error", err)
	}

	// The transfer carries the full gross; the provider deducts its own fee.
	// PayoutNetAmount is the display breakdown, never a second deduction.
	result, err := client.InitiateTransfer(ctx, provider.TransferRequest{
		Amount:        tx.Gross(),
		Currency:      j.Currency,
		Reference:     tx.Reference,
		AccountNumber: j.WithdrawalAccount.AccountNumber,
		AccountName:   j.WithdrawalAccount.AccountName,
		ProviderCode:  j.WithdrawalAccount.ProviderCode,
		Narration:     fmt.Sprintf("Payout from jar %s", j.Name),
	})
	if err != nil {
		o.failRejectedPayout(ctx, tx, err)
		return nil, err
	}

	// Providers may mint their own reference; keep ours in sync so webhook
	// and poll lookups match.
	if result.Reference != "" && result.Reference != tx.Reference {
		if err := o.transactions.SetReference(ctx, tx.ID, result.Reference); err != nil {
			o.logger.Error("Failed to store provider transfer reference",
				"transaction_id", tx.ID.String(), "reference", result.Reference, "error", err)
		} else {
			tx.Reference = result.Reference
		}
	}

	o.logger.Info("Initiated payout transfer",
		"transaction_id", tx.ID.String(),
		"jar_id", jarID.String(),
		"gross", tx.Gross(),
		"net", tx.PayoutNetAmount,
		"reference", tx.Reference,
	)
	return tx, nil
}

func (o *PayoutOrchestrator) failRejectedPayout(ctx context.Context, tx *transaction.Transaction, cause error) {
	reason := "provider rejected transfer"
	var rejected provider.ErrRejected
	if errors.As(cause, &rejected) {
		reason = rejected.Message
	}

	if err := o.transactions.UpdateStatusIfPending(ctx, tx.ID, shared.PaymentStatusFailed, reason); err != nil {
		o.logger.Error("Failed to mark rejected payout as failed",
			"transaction_id", tx.ID.String(), "error", err)
		return
	}
	tx.PaymentStatus = shared.PaymentStatusFailed
	tx.FailureReason = reason

	if err := o.recorder.Record(ctx, event.KindPayoutFailed, tx); err != nil {
		o.logger.Error("Failed to record payout failure event",
			"transaction_id", tx.ID.String(), "error", err)
	}
	o.notifier.PayoutFailed(ctx, tx)
}
