package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/susubox-payments-backend/internal/domain/jar"
	"github.com/susubox-payments-backend/internal/platform/provider"
	"github.com/susubox-payments-backend/internal/settlement"
)

// userIDHeader carries the authenticated user id set by the auth proxy in
// front of this service.
const userIDHeader = "X-User-ID"

// PayoutHandler handles creator payout requests
type PayoutHandler struct {
	payouts *settlement.PayoutOrchestrator
	logger  *slog.Logger
}

// NewPayoutHandler creates a new payout handler
func NewPayoutHandler(logger *slog.Logger, payouts *settlement.PayoutOrchestrator) *PayoutHandler {
	return &PayoutHandler{
		payouts: payouts,
		logger:  logger,
	}
}

// Initiate handles POST /transactions/payout. Only the jar creator may
// withdraw, and only one payout per jar may be in flight.
func (h *PayoutHandler) Initiate(c *gin.Context) {
	requesterID, err := uuid.Parse(c.GetHeader(userIDHeader))
	if err != nil {
		RespondUnauthorized(c, "Missing or invalid user identity")
		return
	}

	var req InitiatePayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	jarID, err := uuid.Parse(req.JarID)
	if err != nil {
		RespondBadRequest(c, "Invalid jar ID")
		return
	}

	tx, err := h.payouts.InitiatePayout(c.Request.Context(), jarID, requesterID)
	if err != nil {
		h.respondPayoutError(c, err)
		return
	}

	RespondAccepted(c, mapTransactionToResponse(tx))
}

func (h *PayoutHandler) respondPayoutError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, jar.ErrJarNotFound{}):
		RespondNotFound(c, "Jar not found")
	case errors.Is(err, jar.ErrNotCreator):
		RespondForbidden(c, err.Error())
	case errors.Is(err, jar.ErrNoWithdrawalAccount):
		RespondBadRequest(c, err.Error())
	case errors.Is(err, jar.ErrJarNotAccepting{}):
		RespondConflict(c, err.Error())
	case errors.Is(err, settlement.ErrPayoutInFlight):
		RespondWithError(c, http.StatusTooManyRequests, "PAYOUT_IN_FLIGHT", err.Error())
	case errors.Is(err, settlement.ErrBelowMinimum{}):
		RespondBadRequest(c, err.Error())
	case errors.Is(err, provider.ErrRejected{}):
		RespondWithError(c, http.StatusUnprocessableEntity, "PROVIDER_REJECTED", err.Error())
	default:
		h.logger.Error("Failed to initiate payout", "error", err)
		RespondInternalError(c)
	}
}
