package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/susubox-payments-backend/internal/api/handler"
	"github.com/susubox-payments-backend/internal/api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	transactionHandler *handler.TransactionHandler,
	webhookHandler *handler.WebhookHandler,
	payoutHandler *handler.PayoutHandler,
	jarHandler *handler.JarHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Metrics())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		transactions := v1.Group("/transactions")
		{
			transactions.POST("", transactionHandler.Create)
			transactions.POST("/charge", transactionHandler.Charge)
			transactions.POST("/payout", payoutHandler.Initiate)
			transactions.POST("/webhooks/:provider", webhookHandler.Receive)
			transactions.GET("/verify-pending", transactionHandler.VerifyPending)
			transactions.GET("/:id", transactionHandler.GetByID)
		}

		jars := v1.Group("/jars")
		{
			jars.GET("/:id/balance", jarHandler.Balance)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})

	// Prometheus scrape endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
