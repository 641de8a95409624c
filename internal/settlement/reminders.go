package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/susubox-payments-backend/internal/config"
	"github.com/susubox-payments-backend/internal/domain/jar"
	"github.com/susubox-payments-backend/internal/domain/settings"
	"github.com/susubox-payments-backend/internal/domain/transaction"
	"github.com/susubox-payments-backend/internal/notification"
)

const reminderBatchSize = 200

// ReminderSweeper runs the daily nudges: creators sitting on a withdrawable
// balance, and open jars that stopped receiving contributions.
type ReminderSweeper struct {
	jars         jar.Repository
	transactions transaction.Repository
	settings     settings.Repository
	notifier     notification.Notifier
	logger       *slog.Logger
	dormantAfter time.Duration
}

// NewReminderSweeper creates a reminder sweeper
func NewReminderSweeper(
	logger *slog.Logger,
	cfg *config.RemindersConfig,
	jars jar.Repository,
	transactions transaction.Repository,
	settingsRepo settings.Repository,
	notifier notification.Notifier,
) *ReminderSweeper {
	return &ReminderSweeper{
		jars:         jars,
		transactions: transactions,
		settings:     settingsRepo,
		notifier:     notifier,
		logger:       logger,
		dormantAfter: cfg.DormantAfter,
	}
}

// Sweep sends both reminder kinds. Notification failures are logged by the
// notifier and never abort the sweep.
func (s *ReminderSweeper) Sweep(ctx context.Context) error {
	if err := s.remindWithdrawable(ctx); err != nil {
		return err
	}
	return s.remindDormant(ctx)
}

func (s *ReminderSweeper) remindWithdrawable(ctx context.Context) error {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to load platform settings for reminders: %w", err)
	}

	jars, err := s.jars.ListWithWithdrawableBalance(ctx, cfg.MinimumPayout, reminderBatchSize)
	if err != nil {
		return fmt.Errorf("failed to list jars with withdrawable balance: %w", err)
	}

	for _, j := range jars {
		balance, err := s.transactions.BalanceBreakdown(ctx, j.ID)
		if err != nil {
			s.logger.Error("Failed to compute balance for reminder", "jar_id", j.ID.String(), "error", err)
			continue
		}
		if balance.Available < cfg.MinimumPayout {
			continue
		}
		s.notifier.BalanceReminder(ctx, j, balance.Available)
	}

	s.logger.Info("Balance reminder sweep finished", "jars", len(jars))
	return nil
}

func (s *ReminderSweeper) remindDormant(ctx context.Context) error {
	since := time.Now().Add(-s.dormantAfter)
	jars, err := s.jars.ListDormantOpen(ctx, since, reminderBatchSize)
	if err != nil {
		return fmt.Errorf("failed to list dormant jars: %w", err)
	}

	for _, j := range jars {
		s.notifier.DormantJarReminder(ctx, j)
	}

	s.logger.Info("Dormant jar reminder sweep finished", "jars", len(jars))
	return nil
}
