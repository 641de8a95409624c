// Package settlement owns the money-out half of the pipeline: promoting
// matured contributions to settled, initiating payouts, and nudging creators
// about withdrawable balances.
package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/susubox-payments-backend/internal/config"
	"github.com/susubox-payments-backend/internal/domain/event"
	"github.com/susubox-payments-backend/internal/domain/settings"
	"github.com/susubox-payments-backend/internal/domain/transaction"
	"github.com/susubox-payments-backend/internal/notification"
	"github.com/susubox-payments-backend/internal/outbox"
)

// Scheduler promotes completed mobile money contributions to settled once the
// maturity delay has elapsed. Settlement is what makes funds withdrawable.
type Scheduler struct {
	transactions transaction.Repository
	settings     settings.Repository
	recorder     outbox.Recorder
	notifier     notification.Notifier
	logger       *slog.Logger
	batchSize    int
}

// NewScheduler creates a settlement scheduler
func NewScheduler(
	logger *slog.Logger,
	cfg *config.SettlementConfig,
	transactions transaction.Repository,
	settingsRepo settings.Repository,
	recorder outbox.Recorder,
	notifier notification.Notifier,
) *Scheduler {
	return &Scheduler{
		transactions: transactions,
		settings:     settingsRepo,
		recorder:     recorder,
		notifier:     notifier,
		logger:       logger,
		batchSize:    cfg.BatchSize,
	}
}

// Sweep settles one batch of matured contributions and returns how many rows
// were settled. The conditional UPDATE repeats the eligibility predicate, so
// overlapping sweeps never settle a row twice; only the winning sweep
// notifies.
func (s *Scheduler) Sweep(ctx context.Context) (int64, error) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load platform settings for settlement: %w", err)
	}

	cutoff := time.Now().Add(-cfg.SettlementDelay)
	matured, err := s.transactions.ListSettleable(ctx, cutoff, s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list settleable contributions: %w", err)
	}
	if len(matured) == 0 {
		return 0, nil
	}

	ids := make([]uuid.UUID, len(matured))
	for i, tx := range matured {
		ids[i] = tx.ID
	}

	settledIDs, err := s.transactions.MarkSettled(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to mark contributions settled: %w", err)
	}

	s.logger.Info("Settlement sweep finished",
		"candidates", len(matured), "settled", len(settledIDs), "cutoff", cutoff)

	if len(settledIDs) == 0 {
		return 0, nil
	}

	won := make(map[uuid.UUID]bool, len(settledIDs))
	for _, id := range settledIDs {
		won[id] = true
	}

	type jarTotals struct {
		count int
		total int64
	}
	perJar := make(map[uuid.UUID]*jarTotals)

	// Only the rows this sweep actually won get events and count toward the
	// notification totals; an overlapping sweep owns the rest.
	for _, tx := range matured {
		if !won[tx.ID] {
			continue
		}
		tx.IsSettled = true
		if err := s.recorder.Record(ctx, event.KindContributionSettled, tx); err != nil {
			s.logger.Error("Failed to record settlement event",
				"transaction_id", tx.ID.String(), "error", err)
		}

		t, ok := perJar[tx.JarID]
		if !ok {
			t = &jarTotals{}
			perJar[tx.JarID] = t
		}
		t.count++
		t.total += tx.Amount
	}

	// One aggregated notice per jar, not one per contribution
	for jarID, t := range perJar {
		s.notifier.ContributionsSettled(ctx, jarID, t.count, t.total)
	}

	return int64(len(settledIDs)), nil
}
