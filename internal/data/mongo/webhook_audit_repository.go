// Package mongo provides MongoDB implementations of the archival repositories.
package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/susubox-payments-backend/internal/domain/audit"
)

const (
	// WebhookCollectionName is the name of the webhook archive collection
	WebhookCollectionName = "webhook_deliveries"
)

// WebhookAuditRepository implements the audit.Repository interface for MongoDB
type WebhookAuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewWebhookAuditRepository creates a new MongoDB webhook audit repository
func NewWebhookAuditRepository(logger *slog.Logger, db *mongo.Database) audit.Repository {
	return &WebhookAuditRepository{
		db:     db,
		logger: logger,
	}
}

// Create archives a webhook delivery. Every delivery is stored, including
// those that fail signature verification.
func (r *WebhookAuditRepository) Create(ctx context.Context, record *audit.WebhookRecord) error {
	collection := r.db.Collection(WebhookCollectionName)

	_, err := collection.InsertOne(ctx, record)
	if err != nil {
		r.logger.Error("Failed to archive webhook delivery",
			"provider", record.Provider,
			"reference", record.Reference,
			"error", err)
		return fmt.Errorf("failed to archive webhook delivery: %w", err)
	}

	return nil
}

// ListByReference retrieves all archived deliveries for a provider reference,
// oldest first.
func (r *WebhookAuditRepository) ListByReference(ctx context.Context, reference string) ([]*audit.WebhookRecord, error) {
	collection := r.db.Collection(WebhookCollectionName)

	filter := bson.M{"reference": reference}
	opts := options.Find().SetSort(bson.M{"received_at": 1})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list webhook deliveries",
			"reference", reference,
			"error", err)
		return nil, fmt.Errorf("failed to list webhook deliveries: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*audit.WebhookRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode webhook deliveries: %w", err)
	}

	return records, nil
}
