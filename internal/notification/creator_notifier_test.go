package notification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/susubox-payments-backend/internal/domain/jar"
	"github.com/susubox-payments-backend/internal/domain/shared"
	"github.com/susubox-payments-backend/internal/domain/transaction"
)

func newTestNotificationLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// MockJarRepository mocks jar.Repository
type MockJarRepository struct {
	mock.Mock
}

func (m *MockJarRepository) Create(ctx context.Context, j *jar.Jar) error {
	args := m.Called(ctx, j)
	return args.Error(0)
}

func (m *MockJarRepository) GetByID(ctx context.Context, id uuid.UUID) (*jar.Jar, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jar.Jar), args.Error(1)
}

func (m *MockJarRepository) ListWithWithdrawableBalance(ctx context.Context, minimum int64, limit int) ([]*jar.Jar, error) {
	args := m.Called(ctx, minimum, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*jar.Jar), args.Error(1)
}

func (m *MockJarRepository) ListDormantOpen(ctx context.Context, since time.Time, limit int) ([]*jar.Jar, error) {
	args := m.Called(ctx, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*jar.Jar), args.Error(1)
}

// MockDeviceTokenRepository mocks DeviceTokenRepository
type MockDeviceTokenRepository struct {
	mock.Mock
}

func (m *MockDeviceTokenRepository) Save(ctx context.Context, userID uuid.UUID, token string) error {
	args := m.Called(ctx, userID, token)
	return args.Error(0)
}

func (m *MockDeviceTokenRepository) TokensForUser(ctx context.Context, userID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockDeviceTokenRepository) Deactivate(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

// MockMessenger mocks Messenger
type MockMessenger struct {
	mock.Mock
}

func (m *MockMessenger) Send(ctx context.Context, token string, title, body string, data map[string]string) error {
	args := m.Called(ctx, token, title, body, data)
	return args.Error(0)
}

func (m *MockMessenger) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	args := m.Called(ctx, tokens, title, body, data)
	return args.Error(0)
}

type notifierFixture struct {
	jars      *MockJarRepository
	tokens    *MockDeviceTokenRepository
	messenger *MockMessenger
	notifier  *CreatorNotifier
	jar       *jar.Jar
}

func newNotifierFixture(t *testing.T) *notifierFixture {
	t.Helper()

	j, err := jar.NewJar("Wedding fund", uuid.New(), "GHS")
	require.NoError(t, err)

	f := &notifierFixture{
		jars:      new(MockJarRepository),
		tokens:    new(MockDeviceTokenRepository),
		messenger: new(MockMessenger),
		jar:       j,
	}
	f.notifier = NewCreatorNotifier(newTestNotificationLogger(), f.jars, f.tokens, f.messenger)
	return f
}

func TestCreatorNotifier_PayoutCompleted(t *testing.T) {
	f := newNotifierFixture(t)

	tx, err := transaction.NewPayout(f.jar.ID, f.jar.CreatorID, 10000, 100)
	require.NoError(t, err)

	f.jars.On("GetByID", mock.Anything, f.jar.ID).Return(f.jar, nil)
	f.tokens.On("TokensForUser", mock.Anything, f.jar.CreatorID).Return([]string{"tok-1", "tok-2"}, nil)
	f.messenger.On("SendMulticast", mock.Anything, []string{"tok-1", "tok-2"},
		"Payout completed",
		mock.MatchedBy(func(body string) bool {
			// Net amount, not gross: GHS 99.00 after the 1% transfer fee
			return containsAll(body, "GHS 99.00", "Wedding fund")
		}),
		mock.Anything,
	).Return(nil)

	f.notifier.PayoutCompleted(context.Background(), tx)
	f.messenger.AssertExpectations(t)
}

func TestCreatorNotifier_PayoutFailedIncludesReason(t *testing.T) {
	f := newNotifierFixture(t)

	tx, err := transaction.NewPayout(f.jar.ID, f.jar.CreatorID, 10000, 100)
	require.NoError(t, err)
	tx.PaymentStatus = shared.PaymentStatusFailed
	tx.FailureReason = "transfer reversed"

	f.jars.On("GetByID", mock.Anything, f.jar.ID).Return(f.jar, nil)
	f.tokens.On("TokensForUser", mock.Anything, f.jar.CreatorID).Return([]string{"tok-1"}, nil)
	f.messenger.On("SendMulticast", mock.Anything, []string{"tok-1"},
		"Payout failed",
		mock.MatchedBy(func(body string) bool {
			return containsAll(body, "GHS 100.00", "transfer reversed")
		}),
		mock.Anything,
	).Return(nil)

	f.notifier.PayoutFailed(context.Background(), tx)
	f.messenger.AssertExpectations(t)
}

func TestCreatorNotifier_NoTokensIsQuietNoOp(t *testing.T) {
	f := newNotifierFixture(t)

	f.jars.On("GetByID", mock.Anything, f.jar.ID).Return(f.jar, nil)
	f.tokens.On("TokensForUser", mock.Anything, f.jar.CreatorID).Return([]string{}, nil)

	f.notifier.ContributionsSettled(context.Background(), f.jar.ID, 3, 15000)

	f.messenger.AssertNotCalled(t, "SendMulticast", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreatorNotifier_DeliveryFailureIsSwallowed(t *testing.T) {
	f := newNotifierFixture(t)

	f.jars.On("GetByID", mock.Anything, f.jar.ID).Return(f.jar, nil)
	f.tokens.On("TokensForUser", mock.Anything, f.jar.CreatorID).Return([]string{"tok-1"}, nil)
	f.messenger.On("SendMulticast", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("fcm unavailable"))

	// Must not panic or propagate; delivery is best effort
	f.notifier.BalanceReminder(context.Background(), f.jar, 5000)
}

func TestCreatorNotifier_JarLookupFailureIsSwallowed(t *testing.T) {
	f := newNotifierFixture(t)

	f.jars.On("GetByID", mock.Anything, f.jar.ID).Return(nil, jar.ErrJarNotFound{ID: f.jar.ID})

	f.notifier.ContributionsSettled(context.Background(), f.jar.ID, 1, 1000)

	f.tokens.AssertNotCalled(t, "TokensForUser", mock.Anything, mock.Anything)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "GHS 50.00", formatAmount(5000, "GHS"))
	assert.Equal(t, "GHS 0.05", formatAmount(5, "GHS"))
	assert.Equal(t, "GHS 101.95", formatAmount(10195, "GHS"))
	assert.Equal(t, "-GHS 1.00", formatAmount(-100, "GHS"))
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
