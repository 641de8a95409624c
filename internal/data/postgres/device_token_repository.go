package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/susubox-payments-backend/internal/notification"
	"github.com/susubox-payments-backend/internal/platform/persistence"
)

// DeviceTokenRepository implements notification.DeviceTokenRepository for PostgreSQL
type DeviceTokenRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewDeviceTokenRepository creates a new PostgreSQL device token repository
func NewDeviceTokenRepository(logger *slog.Logger, db *persistence.PostgresDB) notification.DeviceTokenRepository {
	return &DeviceTokenRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// Save registers a device token for a user. Re-registering an existing token
// reactivates it.
func (r *DeviceTokenRepository) Save(ctx context.Context, userID uuid.UUID, token string) error {
	query := `
		INSERT INTO device_tokens (user_id, token)
		VALUES ($1, $2)
		ON CONFLICT (user_id, token) DO UPDATE SET active = TRUE
	`

	_, err := r.querier.Exec(ctx, query, userID, token)
	if err != nil {
		r.logger.Error("Failed to save device token", "user_id", userID.String(), "error", err)
		return fmt.Errorf("failed to save device token: %w", err)
	}

	return nil
}

// TokensForUser returns the user's active device tokens
func (r *DeviceTokenRepository) TokensForUser(ctx context.Context, userID uuid.UUID) ([]string, error) {
	query := `
		SELECT token FROM device_tokens
		WHERE user_id = $1 AND active
	`

	rows, err := r.querier.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to get device tokens", "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to get device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over device tokens: %w", err)
	}

	return tokens, nil
}

// Deactivate disables a token the push service reported as invalid
func (r *DeviceTokenRepository) Deactivate(ctx context.Context, token string) error {
	query := `UPDATE device_tokens SET active = FALSE WHERE token = $1`

	_, err := r.querier.Exec(ctx, query, token)
	if err != nil {
		r.logger.Error("Failed to deactivate device token", "error", err)
		return fmt.Errorf("failed to deactivate device token: %w", err)
	}

	return nil
}
