package reconciliation

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
	"github.com/susubox-payments-backend/internal/outbox"
	"github.com/susubox-payments-backend/internal/platform/provider"
)

// ErrChargeInFlight indicates a provider charge for the contribution was
// already submitted and is awaiting its webhook or poll result.
var ErrChargeInFlight = errors.New("a provider charge for this contribution is already in flight")

// ContributionParams describes a contribution to record
type ContributionParams struct {
	JarID           uuid.UUID
	CollectorID     uuid.UUID
	Amount          int64 // gross contribution in minor units, fees added on top
	Method          shared.PaymentMethod
	Processor       string // payment provider; defaults to paystack for mobile money
	ContributorName string
	Phone           string
	Network         string
	ViaPaymentLink  bool
}

// ChargeOutcome is what the API returns to the contributor
type ChargeOutcome struct {
	Transaction *transaction.Transaction
	DisplayText string // provider instruction, e.g. "Approve on your phone"
}

// ChargeInitiator records contributions and submits pending mobile money
// contributions to their payment provider. Recording and charging are separate
// steps: the pending ledger row always exists before the provider is called,
// so a crash mid-charge leaves a pending row for the polling reconciler to
// settle, never a provider-side charge with no local trace.
type ChargeInitiator struct {
	transactions transaction.Repository
	jars         jar.Repository
	settings     settings.Repository
	registry     *provider.Registry
	recorder     outbox.Recorder
	logger       *slog.Logger
}

// NewChargeInitiator creates a charge initiator
func NewChargeInitiator(
	logger *slog.Logger,
	transactions transaction.Repository,
	jars jar.Repository,
	settingsRepo settings.Repository,
	registry *provider.Registry,
	recorder outbox.Recorder,
) *ChargeInitiator {
	return &ChargeInitiator{
		transactions: transactions,
		jars:         jars,
		settings:     settingsRepo,
		registry:     registry,
		recorder:     recorder,
		logger:       logger,
	}
}

// CreateContribution validates and records a contribution against a jar. Cash
// and bank contributions have no asynchronous provider leg and complete
// immediately; mobile money contributions are written pending and collected
// later through InitiateCharge.
func (s *ChargeInitiator) CreateContribution(ctx context.Context, params ContributionParams) (*ChargeOutcome, error) {
	j, err := s.jars.GetByID(ctx, params.JarID)
	if err != nil {
		return nil, err
	}
	if !j.AcceptsTransactions() {
		return nil, jar.ErrJarNotAccepting{ID: j.ID, Status: string(j.Status)}
	}

	tx, err := transaction.NewContribution(params.JarID, params.CollectorID, params.Amount, params.Method, params.Phone, params.Network)
	if err != nil {
		return nil, err
	}
	tx.ContributorName = params.ContributorName
	tx.ViaPaymentLink = params.ViaPaymentLink

	if params.Method != shared.PaymentMethodMobileMoney {
		return s.recordDirectContribution(ctx, tx)
	}

	processor := params.Processor
	if processor == "" {
		processor = provider.PaystackName
	}
	if _, err := s.registry.Client(processor); err != nil {
		return nil, err
	}
	tx.Processor = processor

	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, err
	}

	s.logger.Info("Recorded pending contribution",
		"transaction_id", tx.ID.String(),
		"jar_id", j.ID.String(),
		"provider", processor,
		"amount", params.Amount,
	)
	return &ChargeOutcome{Transaction: tx}, nil
}

// InitiateCharge submits an existing pending mobile money contribution to its
// payment provider. The platform charge is added on top of the contributed
// amount so the jar receives the full gross.
func (s *ChargeInitiator) InitiateCharge(ctx context.Context, contributionID uuid.UUID) (*ChargeOutcome, error) {
	tx, err := s.transactions.GetByID(ctx, contributionID)
	if err != nil {
		return nil, err
	}
	if tx.Type != shared.TransactionTypeContribution || tx.PaymentMethod != shared.PaymentMethodMobileMoney {
		return nil, transaction.ErrNotMobileMoney
	}
	if tx.PaymentStatus != shared.PaymentStatusPending {
		return nil, transaction.ErrAlreadyResolved{ID: tx.ID}
	}
	if tx.Reference != "" {
		return nil, ErrChargeInFlight
	}

	j, err := s.jars.GetByID(ctx, tx.JarID)
	if err != nil {
		return nil, err
	}
	if !j.AcceptsTransactions() {
		return nil, jar.ErrJarNotAccepting{ID: j.ID, Status: string(j.Status)}
	}

	client, err := s.registry.Client(tx.Processor)
	if err != nil {
		return nil, err
	}

	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load platform settings: %w", err)
	}
	platformCharge := transaction.FeeAmount(tx.Amount, cfg.PlatformFeeBps)
	amountPaid := tx.Amount + platformCharge

	result, err := client.ChargeMobileMoney(ctx, provider.ChargeRequest{
		Amount:   amountPaid,
		Currency: j.Currency,
		Phone:    tx.ContributorPhone,
		Network:  tx.MobileMoneyNetwork,
	})
	if err != nil {
		chargesInitiated.WithLabelValues(tx.Processor, "rejected").Inc()
		s.failRejectedCharge(ctx, tx, err)
		return nil, err
	}

	if err := s.transactions.SetChargeDetails(ctx, tx.ID, result.Reference, platformCharge, amountPaid); err != nil {
		return nil, err
	}
	tx.Reference = result.Reference
	tx.PlatformCharge = platformCharge
	tx.AmountPaidByContributor = amountPaid

	chargesInitiated.WithLabelValues(tx.Processor, "accepted").Inc()
	s.logger.Info("Initiated contribution charge",
		"transaction_id", tx.ID.String(),
		"jar_id", j.ID.String(),
		"provider", tx.Processor,
		"reference", result.Reference,
		"amount", tx.Amount,
		"amount_paid", amountPaid,
	)

	return &ChargeOutcome{Transaction: tx, DisplayText: result.DisplayText}, nil
}

// recordDirectContribution handles cash and bank contributions, which have no
// asynchronous provider leg and complete immediately.
func (s *ChargeInitiator) recordDirectContribution(ctx context.Context, tx *transaction.Transaction) (*ChargeOutcome, error) {
	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, err
	}
	if err := s.transactions.UpdateStatusIfPending(ctx, tx.ID, shared.PaymentStatusCompleted, ""); err != nil {
		return nil, err
	}
	tx.PaymentStatus = shared.PaymentStatusCompleted

	if err := s.recorder.Record(ctx, event.KindContributionCompleted, tx); err != nil {
		s.logger.Error("Failed to record ledger event for direct contribution",
			"transaction_id", tx.ID.String(), "error", err)
	}

	chargesInitiated.WithLabelValues("none", "accepted").Inc()
	return &ChargeOutcome{Transaction: tx}, nil
}

// failRejectedCharge marks the pending record failed after a provider
// rejection. The ledger keeps the row so the rejection is auditable.
func (s *ChargeInitiator) failRejectedCharge(ctx context.Context, tx *transaction.Transaction, cause error) {
	reason := "provider rejected charge"
	var rejected provider.ErrRejected
	if errors.As(cause, &rejected) {
		reason = rejected.Message
	}

	if err := s.transactions.UpdateStatusIfPending(ctx, tx.ID, shared.PaymentStatusFailed, reason); err != nil {
		s.logger.Error("Failed to mark rejected charge as failed",
			"transaction_id", tx.ID.String(), "error", err)
		return
	}
	tx.PaymentStatus = shared.PaymentStatusFailed
	tx.FailureReason = reason

	if err := s.recorder.Record(ctx, event.KindContributionFailed, tx); err != nil {
		s.logger.Error("Failed to record ledger event for rejected charge",
			"transaction_id", tx.ID.String(), "error", err)
	}
}
