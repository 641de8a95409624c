package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/susubox-payments-backend/internal/domain/settings"
)

func TestSettingsRepository_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &SettingsRepository{querier: mock, logger: newTestLogger()}
	ctx := context.Background()
	query := `SELECT settlement_delay_seconds, transfer_fee_bps, platform_fee_bps, minimum_payout_amount FROM platform_settings WHERE id = 1`

	t.Run("RowPresent", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"settlement_delay_seconds", "transfer_fee_bps", "platform_fee_bps", "minimum_payout_amount"}).
			AddRow(int64(300), 100, 195, int64(2000))
		mock.ExpectQuery(query).WillReturnRows(rows)

		s, err := repo.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5*time.Minute, s.SettlementDelay)
		assert.Equal(t, 100, s.TransferFeeBps)
		assert.Equal(t, 195, s.PlatformFeeBps)
		assert.Equal(t, int64(2000), s.MinimumPayout)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("MissingRowFallsBackToDefaults", func(t *testing.T) {
		mock.ExpectQuery(query).WillReturnRows(pgxmock.NewRows([]string{
			"settlement_delay_seconds", "transfer_fee_bps", "platform_fee_bps", "minimum_payout_amount",
		}))

		s, err := repo.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, settings.Defaults(), s)
	})

	t.Run("QueryFailure", func(t *testing.T) {
		mock.ExpectQuery(query).WillReturnError(errors.New("db down"))

		_, err := repo.Get(ctx)
		assert.Error(t, err)
	})
}
