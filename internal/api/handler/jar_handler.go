package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/susubox-payments-backend/internal/domain/jar"
	"github.com/susubox-payments-backend/internal/domain/transaction"
)

// JarHandler handles jar balance reads
type JarHandler struct {
	jars         jar.Repository
	transactions transaction.Repository
	logger       *slog.Logger
}

// NewJarHandler creates a new jar handler
func NewJarHandler(logger *slog.Logger, jars jar.Repository, transactions transaction.Repository) *JarHandler {
	return &JarHandler{
		jars:         jars,
		transactions: transactions,
		logger:       logger,
	}
}

// Balance handles GET /jars/:id/balance. The balance is always derived from
// the ledger, never stored.
func (h *JarHandler) Balance(c *gin.Context) {
	idParam := c.Param("id")
	jarID, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid jar ID")
		return
	}

	if _, err := h.jars.GetByID(c.Request.Context(), jarID); err != nil {
		if errors.Is(err, jar.ErrJarNotFound{}) {
			RespondNotFound(c, "Jar not found")
			return
		}
		h.logger.Error("Failed to load jar for balance", "jar_id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	breakdown, err := h.transactions.BalanceBreakdown(c.Request.Context(), jarID)
	if err != nil {
		h.logger.Error("Failed to compute jar balance", "jar_id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, BalanceResponse{
		JarID:              jarID.String(),
		TotalContributions: breakdown.TotalContributions,
		SettledAmount:      breakdown.SettledAmount,
		PayoutsOutstanding: breakdown.PayoutsOutstanding,
		Available:          breakdown.Available,
	})
}
