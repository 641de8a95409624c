package reconciliation

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/susubox-payments-backend/internal/config"
	"github.com/susubox-payments-backend/internal/domain/audit"
	"github.com/susubox-payments-backend/internal/domain/shared"
	"github.com/susubox-payments-backend/internal/domain/transaction"
	"github.com/susubox-payments-backend/internal/platform/provider"
)

// payoutReferencePrefix marks references minted locally for payout transfers,
// allowing webhook lookup by embedded transaction id when the provider echoes
// our reference back.
const payoutReferencePrefix = "payout-"

// WebhookReconciler applies asynchronous provider callbacks to the ledger.
// Every delivery is archived, verified, normalized at the provider boundary,
// and applied through the shared resolver. Repeated deliveries for resolved
// transactions are acknowledged no-ops.
type WebhookReconciler struct {
	transactions   transaction.Repository
	registry       *provider.Registry
	audits         audit.Repository
	resolver       *Resolver
	logger         *slog.Logger
	verifyAttempts int
	verifyBackoff  time.Duration
}

// NewWebhookReconciler creates a webhook reconciler
func NewWebhookReconciler(
	logger *slog.Logger,
	cfg *config.PayoutConfig,
	transactions transaction.Repository,
	registry *provider.Registry,
	audits audit.Repository,
	resolver *Resolver,
) *WebhookReconciler {
	return &WebhookReconciler{
		transactions:   transactions,
		registry:       registry,
		audits:         audits,
		resolver:       resolver,
		logger:         logger,
		verifyAttempts: cfg.VerifyAttempts,
		verifyBackoff:  cfg.VerifyBackoff,
	}
}

// HandleWebhook verifies and applies one provider callback. A nil return means
// the delivery should be acknowledged with 200, including business no-ops.
// ErrBadSignature and ErrStaleWebhook map to 401, ErrMalformedPayload to 400.
func (s *WebhookReconciler) HandleWebhook(ctx context.Context, providerName string, header http.Header, body []byte, correlationID string) error {
	verifier, err := s.registry.Verifier(providerName)
	if err != nil {
		return err
	}
	signature := header.Get(verifier.SignatureHeader())

	if err := verifier.VerifyWebhook(header, body); err != nil {
		outcome := "bad_signature"
		if errors.Is(err, provider.ErrStaleWebhook) {
			outcome = "stale"
		}
		webhooksReceived.WithLabelValues(providerName, outcome).Inc()
		s.archive(ctx, providerName, "", "", body, signature, false, correlationID)
		return err
	}

	evt, err := verifier.ParseWebhook(body)
	if err != nil {
		webhooksReceived.WithLabelValues(providerName, "malformed").Inc()
		s.archive(ctx, providerName, "", "", body, signature, true, correlationID)
		return err
	}

	s.archive(ctx, providerName, evt.EventType, evt.Reference, body, signature, true, correlationID)

	logger := s.logger.With("correlation_id", correlationID, "provider", providerName, "reference", evt.Reference)

	tx, err := s.lookup(ctx, evt.Reference)
	if err != nil {
		if errors.Is(err, transaction.ErrReferenceNotFound{}) || errors.Is(err, transaction.ErrTransactionNotFound{}) {
			logger.Warn("Webhook references unknown transaction, acknowledging")
			webhooksReceived.WithLabelValues(providerName, "unmatched").Inc()
			return nil
		}
		return err
	}

	if tx.PaymentStatus != shared.PaymentStatusPending {
		logger.Debug("Webhook for already-resolved transaction, acknowledging",
			"transaction_id", tx.ID.String(), "status", string(tx.PaymentStatus))
		webhooksReceived.WithLabelValues(providerName, "no_op").Inc()
		return nil
	}

	status := evt.Status
	reason := evt.Reason
	if tx.Type == shared.TransactionTypePayout && status != shared.PaymentStatusPending {
		// Payouts move real money out; confirm against the provider's status
		// API instead of trusting the webhook body alone.
		status, reason = s.verifyPayoutStatus(ctx, logger, tx, evt)
	}

	webhooksReceived.WithLabelValues(providerName, "accepted").Inc()

	switch status {
	case shared.PaymentStatusCompleted:
		return s.resolver.Complete(ctx, tx, "webhook")
	case shared.PaymentStatusFailed:
		return s.resolver.Fail(ctx, tx, reason, "webhook")
	default:
		logger.Debug("Webhook reports non-final status, leaving transaction pending",
			"transaction_id", tx.ID.String(), "raw_status", evt.RawStatus)
		return nil
	}
}

// lookup finds the local transaction for a provider reference. References
// minted for payouts embed the transaction id, so an unmatched reference with
// the payout prefix falls back to an id lookup.
func (s *WebhookReconciler) lookup(ctx context.Context, reference string) (*transaction.Transaction, error) {
	tx, err := s.transactions.GetByReference(ctx, reference)
	if err == nil {
		return tx, nil
	}
	if !errors.Is(err, transaction.ErrReferenceNotFound{}) {
		return nil, err
	}

	raw, hasPrefix := strings.CutPrefix(reference, payoutReferencePrefix)
	if !hasPrefix {
		return nil, err
	}
	id, parseErr := uuid.Parse(raw)
	if parseErr != nil {
		return nil, err
	}
	return s.transactions.GetByID(ctx, id)
}

// verifyPayoutStatus re-checks a payout's status directly with the provider,
// retrying with fixed backoff while the provider reports a non-final status.
// After exhausting attempts the webhook-asserted status is honored.
func (s *WebhookReconciler) verifyPayoutStatus(ctx context.Context, logger *slog.Logger, tx *transaction.Transaction, evt *provider.WebhookEvent) (shared.PaymentStatus, string) {
	client, err := s.registry.Client(tx.Processor)
	if err != nil {
		logger.Warn("No client for payout processor, honoring webhook status",
			"transaction_id", tx.ID.String(), "processor", tx.Processor)
		return evt.Status, evt.Reason
	}

	for attempt := 1; attempt <= s.verifyAttempts; attempt++ {
		result, err := client.CheckStatus(ctx, tx.Reference)
		if err != nil {
			logger.Warn("Payout status re-check failed",
				"transaction_id", tx.ID.String(), "attempt", attempt, "error", err)
		} else if result.Status != shared.PaymentStatusPending {
			return result.Status, result.Reason
		} else {
			logger.Debug("Provider reports non-final payout status, retrying",
				"transaction_id", tx.ID.String(), "attempt", attempt, "raw_status", result.RawStatus)
		}

		if attempt < s.verifyAttempts {
			select {
			case <-ctx.Done():
				return evt.Status, evt.Reason
			case <-time.After(s.verifyBackoff):
			}
		}
	}

	logger.Warn("Exhausted payout status re-checks, honoring webhook status",
		"transaction_id", tx.ID.String(), "webhook_status", string(evt.Status))
	return evt.Status, evt.Reason
}

func (s *WebhookReconciler) archive(ctx context.Context, providerName, eventType, reference string, body []byte, signature string, signatureOK bool, correlationID string) {
	record := audit.NewWebhookRecord(providerName, eventType, reference, body, signature, signatureOK, correlationID)
	if err := s.audits.Create(ctx, record); err != nil {
		s.logger.Error("Failed to archive webhook delivery",
			"provider", providerName, "reference", reference, "error", err)
	}
}
