package handler

import (
	"errors"
	"io"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/susubox-payments-backend/internal/api/middleware"
	"github.com/susubox-payments-backend/internal/platform/provider"
	"github.com/susubox-payments-backend/internal/reconciliation"
)

// WebhookHandler receives provider callbacks. The raw body is passed through
// untouched because the HMAC covers the exact bytes on the wire.
type WebhookHandler struct {
	reconciler *reconciliation.WebhookReconciler
	logger     *slog.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(logger *slog.Logger, reconciler *reconciliation.WebhookReconciler) *WebhookHandler {
	return &WebhookHandler{
		reconciler: reconciler,
		logger:     logger,
	}
}

// Receive handles POST /transactions/webhooks/:provider. Once the signature
// verifies, business no-ops still return 200 so providers stop retrying.
func (h *WebhookHandler) Receive(c *gin.Context) {
	providerName := c.Param("provider")

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Error("Failed to read webhook body", "provider", providerName, "error", err)
		RespondBadRequest(c, "Unable to read request body")
		return
	}

	correlationID := middleware.GetCorrelationID(c)
	err = h.reconciler.HandleWebhook(c.Request.Context(), providerName, c.Request.Header, body, correlationID)
	if err != nil {
		switch {
		case errors.Is(err, provider.ErrBadSignature), errors.Is(err, provider.ErrStaleWebhook):
			RespondUnauthorized(c, "Webhook verification failed")
		case errors.Is(err, provider.ErrMalformedPayload), errors.Is(err, provider.ErrUnknownStatus):
			RespondBadRequest(c, "Malformed webhook payload")
		case errors.Is(err, provider.ErrUnknownProvider):
			RespondNotFound(c, "Unknown provider")
		default:
			// The polling reconciler is the backstop; 500 here only drives
			// the provider's own retry.
			h.logger.Error("Webhook processing failed", "provider", providerName, "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondOK(c, gin.H{"received": true})
}
