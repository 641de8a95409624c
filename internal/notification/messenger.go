// Package notification delivers payout and settlement notices to jar
// creators. Delivery is best effort: a failed push never fails or retries a
// ledger mutation.
package notification

import (
	"context"

	"github.com/google/uuid"
)

// Messenger is the push delivery surface
type Messenger interface {
	Send(ctx context.Context, token string, title, body string, data map[string]string) error
	SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) error
}

// DeviceTokenRepository stores push tokens per user
type DeviceTokenRepository interface {
	Save(ctx context.Context, userID uuid.UUID, token string) error
	TokensForUser(ctx context.Context, userID uuid.UUID) ([]string, error)
	Deactivate(ctx context.Context, token string) error
}

// NoopMessenger drops all notifications. Used when push delivery is disabled.
type NoopMessenger struct{}

func (NoopMessenger) Send(ctx context.Context, token string, title, body string, data map[string]string) error {
	return nil
}

func (NoopMessenger) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	return nil
}
