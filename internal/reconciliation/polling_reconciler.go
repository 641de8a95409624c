package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/susubox-payments-backend/internal/config"
	"github.com/susubox-payments-backend/internal/domain/shared"
	"github.com/susubox-payments-backend/internal/domain/transaction"
	"github.com/susubox-payments-backend/internal/platform/provider"
)

// SweepResult itemizes what happened to one transaction during a sweep
type SweepResult struct {
	TransactionID uuid.UUID           `json:"transaction_id"`
	Outcome       shared.SweepOutcome `json:"outcome"`
	Note          string              `json:"note,omitempty"`
}

// PollingReconciler is the backstop for lost webhooks: it periodically
// re-checks pending mobile money transactions against their provider and
// applies the authoritative status. One bad record never aborts the batch.
type PollingReconciler struct {
	transactions  transaction.Repository
	registry      *provider.Registry
	resolver      *Resolver
	pool          *ants.Pool
	logger        *slog.Logger
	gracePeriod   time.Duration
	maxPendingAge time.Duration
	batchSize     int
}

// NewPollingReconciler creates a polling reconciler backed by the shared
// worker pool.
func NewPollingReconciler(
	logger *slog.Logger,
	cfg *config.VerifyConfig,
	pool *ants.Pool,
	transactions transaction.Repository,
	registry *provider.Registry,
	resolver *Resolver,
) *PollingReconciler {
	return &PollingReconciler{
		transactions:  transactions,
		registry:      registry,
		resolver:      resolver,
		pool:          pool,
		logger:        logger,
		gracePeriod:   cfg.GracePeriod,
		maxPendingAge: cfg.MaxPendingAge,
		batchSize:     cfg.BatchSize,
	}
}

// Sweep verifies one batch of pending transactions concurrently and returns
// itemized results. Transactions younger than the grace period are left alone;
// their webhook may still arrive.
func (s *PollingReconciler) Sweep(ctx context.Context) ([]SweepResult, error) {
	timer := prometheus.NewTimer(sweepDuration)
	defer timer.ObserveDuration()

	cutoff := time.Now().Add(-s.gracePeriod)
	pending, err := s.transactions.ListPendingMobileMoney(ctx, cutoff, s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending transactions for sweep: %w", err)
	}
	if len(pending) == 0 {
		return nil, nil
	}

	s.logger.Info("Verification sweep starting", "pending", len(pending))

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make([]SweepResult, 0, len(pending))
	)

	collect := func(r SweepResult) {
		sweepOutcomes.WithLabelValues(string(r.Outcome)).Inc()
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	}

	for _, tx := range pending {
		tx := tx
		wg.Add(1)
		submitErr := s.pool.Submit(func() {
			defer wg.Done()
			collect(s.sweepOne(ctx, tx))
		})
		if submitErr != nil {
			wg.Done()
			s.logger.Error("Failed to submit sweep task to worker pool",
				"transaction_id", tx.ID.String(), "error", submitErr)
			collect(SweepResult{TransactionID: tx.ID, Outcome: shared.SweepOutcomeError, Note: submitErr.Error()})
		}
	}
	wg.Wait()

	s.logger.Info("Verification sweep finished", "checked", len(results))
	return results, nil
}

// sweepOne resolves a single pending transaction. Provider outages leave the
// record pending for the next sweep unless it has already exceeded the
// maximum pending age, in which case it is force-failed.
func (s *PollingReconciler) sweepOne(ctx context.Context, tx *transaction.Transaction) SweepResult {
	logger := s.logger.With("transaction_id", tx.ID.String())
	expired := time.Since(tx.CreatedAt) > s.maxPendingAge

	if tx.Reference == "" {
		// Charge initiation never completed; there is nothing to verify and
		// the contributor was never debited.
		return s.forceFail(ctx, tx, "charge has no provider reference")
	}

	client, err := s.registry.Client(tx.Processor)
	if err != nil {
		return s.forceFail(ctx, tx, fmt.Sprintf("unknown processor %q", tx.Processor))
	}

	result, err := client.CheckStatus(ctx, tx.Reference)
	if err != nil {
		if errors.Is(err, provider.ErrUnknownStatus) {
			return s.forceFail(ctx, tx, err.Error())
		}
		if expired {
			return s.forceFail(ctx, tx, "exceeded max pending age, provider unreachable")
		}
		logger.Warn("Provider status check failed, will retry next sweep", "error", err)
		return SweepResult{TransactionID: tx.ID, Outcome: shared.SweepOutcomeError, Note: err.Error()}
	}

	switch result.Status {
	case shared.PaymentStatusCompleted:
		if err := s.resolver.Complete(ctx, tx, "poll"); err != nil {
			logger.Error("Failed to apply completed status from sweep", "error", err)
			return SweepResult{TransactionID: tx.ID, Outcome: shared.SweepOutcomeError, Note: err.Error()}
		}
		return SweepResult{TransactionID: tx.ID, Outcome: shared.SweepOutcomeProcessed}

	case shared.PaymentStatusFailed:
		if err := s.resolver.Fail(ctx, tx, result.Reason, "poll"); err != nil {
			logger.Error("Failed to apply failed status from sweep", "error", err)
			return SweepResult{TransactionID: tx.ID, Outcome: shared.SweepOutcomeError, Note: err.Error()}
		}
		return SweepResult{TransactionID: tx.ID, Outcome: shared.SweepOutcomeFailed, Note: result.Reason}

	default:
		if expired {
			return s.forceFail(ctx, tx, "exceeded max pending age with provider still reporting pending")
		}
		return SweepResult{TransactionID: tx.ID, Outcome: shared.SweepOutcomeSkipped, Note: "provider still pending"}
	}
}

func (s *PollingReconciler) forceFail(ctx context.Context, tx *transaction.Transaction, reason string) SweepResult {
	if err := s.resolver.Fail(ctx, tx, reason, "poll"); err != nil {
		s.logger.Error("Failed to force-fail transaction",
			"transaction_id", tx.ID.String(), "reason", reason, "error", err)
		return SweepResult{TransactionID: tx.ID, Outcome: shared.SweepOutcomeError, Note: err.Error()}
	}
	return SweepResult{TransactionID: tx.ID, Outcome: shared.SweepOutcomeFailed, Note: reason}
}
