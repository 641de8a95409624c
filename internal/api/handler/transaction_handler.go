package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/susubox-payments-backend/internal/domain/jar"
	"github.com/susubox-payments-backend/internal/domain/shared"
	"github.com/susubox-payments-backend/internal/domain/transaction"
	"github.com/susubox-payments-backend/internal/platform/provider"
	"github.com/susubox-payments-backend/internal/reconciliation"
)

// TransactionHandler handles contribution charges, reads and manual sweeps
type TransactionHandler struct {
	charges      *reconciliation.ChargeInitiator
	poller       *reconciliation.PollingReconciler
	transactions transaction.Repository
	logger       *slog.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(
	logger *slog.Logger,
	charges *reconciliation.ChargeInitiator,
	poller *reconciliation.PollingReconciler,
	transactions transaction.Repository,
) *TransactionHandler {
	return &TransactionHandler{
		charges:      charges,
		poller:       poller,
		transactions: transactions,
		logger:       logger,
	}
}

// Create records a contribution against a jar. Mobile money contributions are
// written pending; cash and bank contributions complete immediately.
func (h *TransactionHandler) Create(c *gin.Context) {
	var req CreateContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid contribution request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	jarID, err := uuid.Parse(req.JarID)
	if err != nil {
		RespondBadRequest(c, "Invalid jar ID")
		return
	}
	collectorID, err := uuid.Parse(req.CollectorID)
	if err != nil {
		RespondBadRequest(c, "Invalid collector ID")
		return
	}

	outcome, err := h.charges.CreateContribution(c.Request.Context(), reconciliation.ContributionParams{
		JarID:           jarID,
		CollectorID:     collectorID,
		Amount:          req.Amount,
		Method:          shared.PaymentMethod(req.PaymentMethod),
		Processor:       req.Processor,
		ContributorName: req.ContributorName,
		Phone:           req.ContributorPhone,
		Network:         req.Network,
		ViaPaymentLink:  req.ViaPaymentLink,
	})
	if err != nil {
		h.respondChargeError(c, err)
		return
	}

	RespondCreated(c, mapTransactionToResponse(outcome.Transaction))
}

// Charge submits an existing pending mobile money contribution to its payment
// provider
func (h *TransactionHandler) Charge(c *gin.Context) {
	var req ChargeContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid charge request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	contributionID, err := uuid.Parse(req.ContributionID)
	if err != nil {
		RespondBadRequest(c, "Invalid contribution ID")
		return
	}

	outcome, err := h.charges.InitiateCharge(c.Request.Context(), contributionID)
	if err != nil {
		h.respondChargeError(c, err)
		return
	}

	resp := mapTransactionToResponse(outcome.Transaction)
	resp.DisplayText = outcome.DisplayText
	RespondOK(c, resp)
}

// GetByID retrieves a transaction, returns 404 if absent
func (h *TransactionHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	tx, err := h.transactions.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, transaction.ErrTransactionNotFound{}) {
			RespondNotFound(c, "Transaction not found")
			return
		}
		h.logger.Error("Failed to get transaction", "id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapTransactionToResponse(tx))
}

// VerifyPending triggers a verification sweep on demand and returns the
// itemized results. The scheduled sweep runs the same code path.
func (h *TransactionHandler) VerifyPending(c *gin.Context) {
	results, err := h.poller.Sweep(c.Request.Context())
	if err != nil {
		h.logger.Error("On-demand verification sweep failed", "error", err)
		RespondInternalError(c)
		return
	}

	if results == nil {
		results = []reconciliation.SweepResult{}
	}
	RespondOK(c, gin.H{"checked": len(results), "results": results})
}

func (h *TransactionHandler) respondChargeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, jar.ErrJarNotFound{}):
		RespondNotFound(c, "Jar not found")
	case errors.Is(err, transaction.ErrTransactionNotFound{}):
		RespondNotFound(c, "Contribution not found")
	case errors.Is(err, jar.ErrJarNotAccepting{}),
		errors.Is(err, transaction.ErrAlreadyResolved{}),
		errors.Is(err, transaction.ErrNotMobileMoney),
		errors.Is(err, reconciliation.ErrChargeInFlight):
		RespondConflict(c, err.Error())
	case errors.Is(err, transaction.ErrInvalidAmount),
		errors.Is(err, transaction.ErrMissingPhoneNumber),
		errors.Is(err, transaction.ErrMissingNetwork):
		RespondBadRequest(c, err.Error())
	case errors.Is(err, provider.ErrRejected{}):
		RespondWithError(c, 422, "PROVIDER_REJECTED", err.Error())
	case errors.Is(err, provider.ErrUnknownProvider):
		RespondBadRequest(c, err.Error())
	default:
		h.logger.Error("Failed to initiate charge", "error", err)
		RespondInternalError(c)
	}
}
