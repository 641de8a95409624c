package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/susubox-payments-backend/internal/domain/settings"
	"github.com/susubox-payments-backend/internal/platform/persistence"
)

// SettingsRepository reads the single platform settings row
type SettingsRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewSettingsRepository creates a new PostgreSQL settings repository
func NewSettingsRepository(logger *slog.Logger, db *persistence.PostgresDB) settings.Repository {
	return &SettingsRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// Get reads the platform settings. A missing row falls back to the seed
// defaults rather than failing the pipeline.
func (r *SettingsRepository) Get(ctx context.Context) (*settings.Settings, error) {
	query := `
		SELECT settlement_delay_seconds, transfer_fee_bps, platform_fee_bps, minimum_payout_amount
		FROM platform_settings
		WHERE id = 1
	`

	var delaySeconds int64
	s := &settings.Settings{}
	err := r.querier.QueryRow(ctx, query).Scan(&delaySeconds, &s.TransferFeeBps, &s.PlatformFeeBps, &s.MinimumPayout)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn("Platform settings row missing, using defaults")
			return settings.Defaults(), nil
		}
		r.logger.Error("Failed to read platform settings", "error", err)
		return nil, fmt.Errorf("failed to read platform settings: %w", err)
	}

	s.SettlementDelay = time.Duration(delaySeconds) * time.Second
	return s, nil
}
