package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/susubox-payments-backend/internal/config"
	"github.com/susubox-payments-backend/internal/domain/event"
	"github.com/susubox-payments-backend/internal/domain/settings"
	"github.com/susubox-payments-backend/internal/domain/shared"
	"github.com/susubox-payments-backend/internal/domain/transaction"
)

func newSettledContribution(t *testing.T, jarID uuid.UUID, amount int64) *transaction.Transaction {
	t.Helper()
	tx, err := transaction.NewContribution(jarID, uuid.New(), amount, shared.PaymentMethodMobileMoney, "0244000000", "MTN")
	require.NoError(t, err)
	tx.PaymentStatus = shared.PaymentStatusCompleted
	tx.CreatedAt = time.Now().Add(-10 * time.Minute)
	return tx
}

func newScheduler(txRepo *MockTransactionRepository, settingsRepo *MockSettingsRepository, recorder *MockRecorder, notifier *MockNotifier) *Scheduler {
	cfg := &config.SettlementConfig{SweepInterval: 5 * time.Minute, BatchSize: 200}
	return NewScheduler(newTestSettlementLogger(), cfg, txRepo, settingsRepo, recorder, notifier)
}

func TestSettlementSweep_SettlesAndNotifiesPerJar(t *testing.T) {
	txRepo := new(MockTransactionRepository)
	settingsRepo := new(MockSettingsRepository)
	recorder := new(MockRecorder)
	notifier := new(MockNotifier)
	scheduler := newScheduler(txRepo, settingsRepo, recorder, notifier)

	jarA := uuid.New()
	jarB := uuid.New()
	tx1 := newSettledContribution(t, jarA, 10000)
	tx2 := newSettledContribution(t, jarA, 5000)
	tx3 := newSettledContribution(t, jarB, 2000)
	matured := []*transaction.Transaction{tx1, tx2, tx3}

	settingsRepo.On("Get", mock.Anything).Return(settings.Defaults(), nil)
	txRepo.On("ListSettleable", mock.Anything, mock.AnythingOfType("time.Time"), 200).Return(matured, nil)
	txRepo.On("MarkSettled", mock.Anything, []uuid.UUID{tx1.ID, tx2.ID, tx3.ID}).Return([]uuid.UUID{tx1.ID, tx2.ID, tx3.ID}, nil)

	recorder.On("Record", mock.Anything, event.KindContributionSettled, mock.AnythingOfType("*transaction.Transaction")).Return(nil).Times(3)

	// One aggregated notification per jar
	notifier.On("ContributionsSettled", mock.Anything, jarA, 2, int64(15000)).Return()
	notifier.On("ContributionsSettled", mock.Anything, jarB, 1, int64(2000)).Return()

	settled, err := scheduler.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), settled)

	txRepo.AssertExpectations(t)
	recorder.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestSettlementSweep_NothingMatured(t *testing.T) {
	txRepo := new(MockTransactionRepository)
	settingsRepo := new(MockSettingsRepository)
	recorder := new(MockRecorder)
	notifier := new(MockNotifier)
	scheduler := newScheduler(txRepo, settingsRepo, recorder, notifier)

	settingsRepo.On("Get", mock.Anything).Return(settings.Defaults(), nil)
	txRepo.On("ListSettleable", mock.Anything, mock.Anything, 200).Return([]*transaction.Transaction{}, nil)

	settled, err := scheduler.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, settled)

	txRepo.AssertNotCalled(t, "MarkSettled", mock.Anything, mock.Anything)
	notifier.AssertNotCalled(t, "ContributionsSettled", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSettlementSweep_PartialWinCountsOnlySettledRows(t *testing.T) {
	txRepo := new(MockTransactionRepository)
	settingsRepo := new(MockSettingsRepository)
	recorder := new(MockRecorder)
	notifier := new(MockNotifier)
	scheduler := newScheduler(txRepo, settingsRepo, recorder, notifier)

	jarID := uuid.New()
	tx1 := newSettledContribution(t, jarID, 10000)
	tx2 := newSettledContribution(t, jarID, 5000)

	settingsRepo.On("Get", mock.Anything).Return(settings.Defaults(), nil)
	txRepo.On("ListSettleable", mock.Anything, mock.Anything, 200).Return([]*transaction.Transaction{tx1, tx2}, nil)

	// An overlapping sweep won tx2 first; only tx1 feeds events and the
	// notification totals.
	txRepo.On("MarkSettled", mock.Anything, []uuid.UUID{tx1.ID, tx2.ID}).Return([]uuid.UUID{tx1.ID}, nil)

	recorder.On("Record", mock.Anything, event.KindContributionSettled, tx1).Return(nil).Once()
	notifier.On("ContributionsSettled", mock.Anything, jarID, 1, int64(10000)).Return().Once()

	settled, err := scheduler.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), settled)

	recorder.AssertNotCalled(t, "Record", mock.Anything, event.KindContributionSettled, tx2)
	recorder.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestSettlementSweep_LostRaceDoesNotNotify(t *testing.T) {
	txRepo := new(MockTransactionRepository)
	settingsRepo := new(MockSettingsRepository)
	recorder := new(MockRecorder)
	notifier := new(MockNotifier)
	scheduler := newScheduler(txRepo, settingsRepo, recorder, notifier)

	jarID := uuid.New()
	tx := newSettledContribution(t, jarID, 10000)

	settingsRepo.On("Get", mock.Anything).Return(settings.Defaults(), nil)
	txRepo.On("ListSettleable", mock.Anything, mock.Anything, 200).Return([]*transaction.Transaction{tx}, nil)

	// An overlapping sweep already settled the row; the conditional update
	// matches nothing, so neither events nor notifications go out.
	txRepo.On("MarkSettled", mock.Anything, []uuid.UUID{tx.ID}).Return([]uuid.UUID{}, nil)

	settled, err := scheduler.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, settled)

	recorder.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything)
	notifier.AssertNotCalled(t, "ContributionsSettled", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSettlementSweep_MarkSettledFailure(t *testing.T) {
	txRepo := new(MockTransactionRepository)
	settingsRepo := new(MockSettingsRepository)
	recorder := new(MockRecorder)
	notifier := new(MockNotifier)
	scheduler := newScheduler(txRepo, settingsRepo, recorder, notifier)

	tx := newSettledContribution(t, uuid.New(), 10000)

	settingsRepo.On("Get", mock.Anything).Return(settings.Defaults(), nil)
	txRepo.On("ListSettleable", mock.Anything, mock.Anything, 200).Return([]*transaction.Transaction{tx}, nil)
	txRepo.On("MarkSettled", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	_, err := scheduler.Sweep(context.Background())
	assert.Error(t, err)
}
