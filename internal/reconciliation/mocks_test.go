package reconciliation

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
	"github.com/susubox-payments-backend/internal/domain/audit"
	"github.com/susubox-payments-backend/internal/domain/event"
	"github.com/susubox-payments-backend/internal/domain/jar"
	"github.com/susubox-payments-backend/internal/domain/settings"
	"github.com/susubox-payments-backend/internal/domain/shared"
	"github.com/susubox-payments-backend/internal/domain/transaction"
	"github.com/susubox-payments-backend/internal/outbox"
	"github.com/susubox-payments-backend/internal/platform/provider"
)

func newTestReconciliationLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// MockTransactionRepository mocks transaction.Repository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *transaction.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByReference(ctx context.Context, reference string) (*transaction.Transaction, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) SetChargeDetails(ctx context.Context, id uuid.UUID, reference string, platformCharge, amountPaid int64) error {
	args := m.Called(ctx, id, reference, platformCharge, amountPaid)
	return args.Error(0)
}

func (m *MockTransactionRepository) SetReference(ctx context.Context, id uuid.UUID, reference string) error {
	args := m.Called(ctx, id, reference)
	return args.Error(0)
}

func (m *MockTransactionRepository) UpdateStatusIfPending(ctx context.Context, id uuid.UUID, status shared.PaymentStatus, reason string) error {
	args := m.Called(ctx, id, status, reason)
	return args.Error(0)
}

func (m *MockTransactionRepository) MarkTransferredIfCompleted(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTransactionRepository) ListPendingMobileMoney(ctx context.Context, before time.Time, limit int) ([]*transaction.Transaction, error) {
	args := m.Called(ctx, before, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListSettleable(ctx context.Context, before time.Time, limit int) ([]*transaction.Transaction, error) {
	args := m.Called(ctx, before, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) MarkSettled(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockTransactionRepository) HasPendingPayout(ctx context.Context, jarID uuid.UUID) (bool, error) {
	args := m.Called(ctx, jarID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) BalanceBreakdown(ctx context.Context, jarID uuid.UUID) (*transaction.BalanceBreakdown, error) {
	args := m.Called(ctx, jarID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.BalanceBreakdown), args.Error(1)
}

func (m *MockTransactionRepository) WithTx(tx pgx.Tx) transaction.Repository {
	return m
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

// MockSettingsRepository mocks settings.Repository
type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) Get(ctx context.Context) (*settings.Settings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settings.Settings), args.Error(1)
}

// MockRecorder mocks outbox.Recorder
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, kind event.Kind, tx *transaction.Transaction) error {
	args := m.Called(ctx, kind, tx)
	return args.Error(0)
}

func (m *MockRecorder) WithTx(dbTx pgx.Tx) outbox.Recorder {
	return m
}

// MockNotifier mocks notification.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) PayoutCompleted(ctx context.Context, tx *transaction.Transaction) {
	m.Called(ctx, tx)
}

func (m *MockNotifier) PayoutFailed(ctx context.Context, tx *transaction.Transaction) {
	m.Called(ctx, tx)
}

func (m *MockNotifier) ContributionsSettled(ctx context.Context, jarID uuid.UUID, count int, total int64) {
	m.Called(ctx, jarID, count, total)
}

func (m *MockNotifier) BalanceReminder(ctx context.Context, j *jar.Jar, available int64) {
	m.Called(ctx, j, available)
}

func (m *MockNotifier) DormantJarReminder(ctx context.Context, j *jar.Jar) {
	m.Called(ctx, j)
}

// MockProviderClient mocks provider.Client
type MockProviderClient struct {
	mock.Mock
	name string
}

func (m *MockProviderClient) Name() string {
	return m.name
}

func (m *MockProviderClient) ChargeMobileMoney(ctx context.Context, req provider.ChargeRequest) (*provider.ChargeResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.ChargeResult), args.Error(1)
}

func (m *MockProviderClient) CheckStatus(ctx context.Context, reference string) (*provider.StatusResult, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.StatusResult), args.Error(1)
}

func (m *MockProviderClient) InitiateTransfer(ctx context.Context, req provider.TransferRequest) (*provider.TransferResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.TransferResult), args.Error(1)
}

// MockWebhookVerifier mocks provider.WebhookVerifier
type MockWebhookVerifier struct {
	mock.Mock
	name            string
	signatureHeader string
}

func (m *MockWebhookVerifier) Name() string {
	return m.name
}

func (m *MockWebhookVerifier) SignatureHeader() string {
	return m.signatureHeader
}

func (m *MockWebhookVerifier) VerifyWebhook(header http.Header, body []byte) error {
	args := m.Called(header, body)
	return args.Error(0)
}

func (m *MockWebhookVerifier) ParseWebhook(body []byte) (*provider.WebhookEvent, error) {
	args := m.Called(body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.WebhookEvent), args.Error(1)
}

// MockAuditRepository mocks audit.Repository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Create(ctx context.Context, record *audit.WebhookRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockAuditRepository) ListByReference(ctx context.Context, reference string) ([]*audit.WebhookRecord, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.WebhookRecord), args.Error(1)
}
