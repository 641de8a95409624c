package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/susubox-payments-backend/internal/domain/jar"
	"github.com/susubox-payments-backend/internal/domain/transaction"
)

// Notifier is what the reconciliation and settlement components call to keep
// jar creators informed. Implementations must not block reconciliation on
// delivery problems.
type Notifier interface {
	PayoutCompleted(ctx context.Context, tx *transaction.Transaction)
	PayoutFailed(ctx context.Context, tx *transaction.Transaction)
	ContributionsSettled(ctx context.Context, jarID uuid.UUID, count int, total int64)
	BalanceReminder(ctx context.Context, j *jar.Jar, available int64)
	DormantJarReminder(ctx context.Context, j *jar.Jar)
}

// CreatorNotifier resolves the jar creator's device tokens and pushes through
// the configured messenger.
type CreatorNotifier struct {
	jars      jar.Repository
	tokens    DeviceTokenRepository
	messenger Messenger
	logger    *slog.Logger
}

// NewCreatorNotifier creates a notifier backed by the push messenger
func NewCreatorNotifier(logger *slog.Logger, jars jar.Repository, tokens DeviceTokenRepository, messenger Messenger) *CreatorNotifier {
	return &CreatorNotifier{
		jars:      jars,
		tokens:    tokens,
		messenger: messenger,
		logger:    logger,
	}
}

// PayoutCompleted notifies the creator with the net amount actually transferred
func (n *CreatorNotifier) PayoutCompleted(ctx context.Context, tx *transaction.Transaction) {
	j, ok := n.lookupJar(ctx, tx.JarID)
	if !ok {
		return
	}

	title := "Payout completed"
	body := fmt.Sprintf("%s has been sent to your withdrawal account from %q.",
		formatAmount(tx.PayoutNetAmount, j.Currency), j.Name)
	n.push(ctx, j.CreatorID, title, body, map[string]string{
		"type":           "payout_completed",
		"jar_id":         j.ID.String(),
		"transaction_id": tx.ID.String(),
	})
}

// PayoutFailed notifies the creator with the gross amount and the reason
func (n *CreatorNotifier) PayoutFailed(ctx context.Context, tx *transaction.Transaction) {
	j, ok := n.lookupJar(ctx, tx.JarID)
	if !ok {
		return
	}

	title := "Payout failed"
	body := fmt.Sprintf("Your payout of %s from %q could not be completed.",
		formatAmount(tx.Gross(), j.Currency), j.Name)
	if tx.FailureReason != "" {
		body += " Reason: " + tx.FailureReason
	}
	n.push(ctx, j.CreatorID, title, body, map[string]string{
		"type":           "payout_failed",
		"jar_id":         j.ID.String(),
		"transaction_id": tx.ID.String(),
	})
}

// ContributionsSettled sends one aggregated notice per jar per settlement sweep
func (n *CreatorNotifier) ContributionsSettled(ctx context.Context, jarID uuid.UUID, count int, total int64) {
	j, ok := n.lookupJar(ctx, jarID)
	if !ok {
		return
	}

	title := "Contributions settled"
	noun := "contributions"
	if count == 1 {
		noun = "contribution"
	}
	body := fmt.Sprintf("%d %s totalling %s settled in %q and are now withdrawable.",
		count, noun, formatAmount(total, j.Currency), j.Name)
	n.push(ctx, j.CreatorID, title, body, map[string]string{
		"type":   "contributions_settled",
		"jar_id": j.ID.String(),
	})
}

// BalanceReminder nudges a creator sitting on a withdrawable balance
func (n *CreatorNotifier) BalanceReminder(ctx context.Context, j *jar.Jar, available int64) {
	title := "You have funds to withdraw"
	body := fmt.Sprintf("%q has %s available for payout.", j.Name, formatAmount(available, j.Currency))
	n.push(ctx, j.CreatorID, title, body, map[string]string{
		"type":   "balance_reminder",
		"jar_id": j.ID.String(),
	})
}

// DormantJarReminder nudges a creator whose open jar stopped receiving contributions
func (n *CreatorNotifier) DormantJarReminder(ctx context.Context, j *jar.Jar) {
	title := "Your jar is quiet"
	body := fmt.Sprintf("%q has not received contributions recently. Share the jar link to keep it going.", j.Name)
	n.push(ctx, j.CreatorID, title, body, map[string]string{
		"type":   "dormant_jar_reminder",
		"jar_id": j.ID.String(),
	})
}

func (n *CreatorNotifier) lookupJar(ctx context.Context, jarID uuid.UUID) (*jar.Jar, bool) {
	j, err := n.jars.GetByID(ctx, jarID)
	if err != nil {
		n.logger.Error("Failed to load jar for notification", "jar_id", jarID.String(), "error", err)
		return nil, false
	}
	return j, true
}

func (n *CreatorNotifier) push(ctx context.Context, creatorID uuid.UUID, title, body string, data map[string]string) {
	tokens, err := n.tokens.TokensForUser(ctx, creatorID)
	if err != nil {
		n.logger.Error("Failed to load device tokens for notification", "user_id", creatorID.String(), "error", err)
		return
	}
	if len(tokens) == 0 {
		n.logger.Debug("No active device tokens for user", "user_id", creatorID.String())
		return
	}

	if err := n.messenger.SendMulticast(ctx, tokens, title, body, data); err != nil {
		n.logger.Error("Failed to deliver notification", "user_id", creatorID.String(), "error", err)
	}
}

// formatAmount renders minor units as a currency string, e.g. "GHS 50.00"
func formatAmount(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%s %d.%02d", sign, currency, minor/100, minor%100)
}
