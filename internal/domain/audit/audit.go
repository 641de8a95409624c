// Package audit archives raw provider webhook deliveries. The archive is the
// forensic record for disputed charges, kept outside the relational ledger.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// WebhookRecord captures a single webhook delivery exactly as received
type WebhookRecord struct {
	ID            uuid.UUID `bson:"_id" json:"id"`
	Provider      string    `bson:"provider" json:"provider"`
	EventType     string    `bson:"event_type" json:"event_type"`
	Reference     string    `bson:"reference" json:"reference"`
	Body          []byte    `bson:"body" json:"body"`
	Signature     string    `bson:"signature" json:"signature"`
	SignatureOK   bool      `bson:"signature_ok" json:"signature_ok"`
	CorrelationID string    `bson:"correlation_id" json:"correlation_id"`
	ReceivedAt    time.Time `bson:"received_at" json:"received_at"`
}

// NewWebhookRecord snapshots a delivery before reconciliation touches it
func NewWebhookRecord(provider, eventType, reference string, body []byte, signature string, signatureOK bool, correlationID string) *WebhookRecord {
	return &WebhookRecord{
		ID:            uuid.New(),
		Provider:      provider,
		EventType:     eventType,
		Reference:     reference,
		Body:          body,
		Signature:     signature,
		SignatureOK:   signatureOK,
		CorrelationID: correlationID,
		ReceivedAt:    time.Now(),
	}
}

// Repository archives webhook deliveries
type Repository interface {
	Create(ctx context.Context, record *WebhookRecord) error
	ListByReference(ctx context.Context, reference string) ([]*WebhookRecord, error)
}
