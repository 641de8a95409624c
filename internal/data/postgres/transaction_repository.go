// Package postgres provides PostgreSQL implementations of the domain repositories.
// It handles all database operations while maintaining transaction safety and
// proper error handling for the jar ledger.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/susubox-payments-backend/internal/domain/shared"
	"github.com/susubox-payments-backend/internal/domain/transaction"
	"github.com/susubox-payments-backend/internal/platform/persistence"
)

const transactionColumns = `id, jar_id, type, amount, payment_method, payment_status, is_settled,
		reference, processor, collector_id, contributor_name, contributor_phone, mobile_money_network,
		platform_charge, amount_paid_by_contributor, payout_fee_bps, payout_fee_amount, payout_net_amount,
		is_transferred, linked_transfer_id, linked_contribution_id, via_payment_link, failure_reason,
		created_at, updated_at`

// TransactionRepository implements the transaction.Repository interface for PostgreSQL
type TransactionRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) transaction.Repository {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic operations
// across multiple repository calls.
func (r *TransactionRepository) WithTx(tx pgx.Tx) transaction.Repository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new transaction. A duplicate non-empty reference violates the
// partial unique index and is surfaced as ErrDuplicateReference.
func (r *TransactionRepository) Create(ctx context.Context, tx *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
	`

	_, err := r.querier.Exec(ctx, query,
		tx.ID, tx.JarID, tx.Type, tx.Amount, tx.PaymentMethod, tx.PaymentStatus, tx.IsSettled,
		nullIfEmpty(tx.Reference), nullIfEmpty(tx.Processor), tx.CollectorID,
		nullIfEmpty(tx.ContributorName), nullIfEmpty(tx.ContributorPhone), nullIfEmpty(tx.MobileMoneyNetwork),
		tx.PlatformCharge, tx.AmountPaidByContributor, tx.PayoutFeeBps, tx.PayoutFeeAmount, tx.PayoutNetAmount,
		tx.IsTransferred, tx.LinkedTransferID, tx.LinkedContributionID, tx.ViaPaymentLink, nullIfEmpty(tx.FailureReason),
		tx.CreatedAt, tx.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return transaction.ErrDuplicateReference{Reference: tx.Reference}
		}
		r.logger.Error("Failed to create transaction", "transaction_id", tx.ID.String(), "error", err)
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a transaction by its ID
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = $1
	`

	tx, err := r.scanOne(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound{ID: id}
		}
		r.logger.Error("Failed to get transaction", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return tx, nil
}

// GetByReference retrieves a transaction by its provider-assigned reference
func (r *TransactionRepository) GetByReference(ctx context.Context, reference string) (*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE reference = $1
	`

	tx, err := r.scanOne(r.querier.QueryRow(ctx, query, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrReferenceNotFound{Reference: reference}
		}
		r.logger.Error("Failed to get transaction by reference", "reference", reference, "error", err)
		return nil, fmt.Errorf("failed to get transaction by reference: %w", err)
	}

	return tx, nil
}

// SetChargeDetails persists the provider reference and charge breakdown once
// the provider has accepted a contribution charge.
func (r *TransactionRepository) SetChargeDetails(ctx context.Context, id uuid.UUID, reference string, platformCharge, amountPaid int64) error {
	query := `
		UPDATE transactions
		SET reference = $1, platform_charge = $2, amount_paid_by_contributor = $3, updated_at = NOW()
		WHERE id = $4
	`

	result, err := r.querier.Exec(ctx, query, reference, platformCharge, amountPaid, id)
	if err != nil {
		r.logger.Error("Failed to set charge details", "id", id.String(), "error", err)
		return fmt.Errorf("failed to set charge details: %w", err)
	}

	if result.RowsAffected() == 0 {
		return transaction.ErrTransactionNotFound{ID: id}
	}

	return nil
}

// SetReference persists the provider-assigned reference
func (r *TransactionRepository) SetReference(ctx context.Context, id uuid.UUID, reference string) error {
	query := `
		UPDATE transactions
		SET reference = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, reference, id)
	if err != nil {
		r.logger.Error("Failed to set transaction reference", "id", id.String(), "error", err)
		return fmt.Errorf("failed to set transaction reference: %w", err)
	}

	if result.RowsAffected() == 0 {
		return transaction.ErrTransactionNotFound{ID: id}
	}

	return nil
}

// UpdateStatusIfPending transitions a pending transaction to the given status.
// The WHERE clause carries the pending check so the storage layer enforces the
// forward-only rule; a lost race returns ErrAlreadyResolved.
func (r *TransactionRepository) UpdateStatusIfPending(ctx context.Context, id uuid.UUID, status shared.PaymentStatus, reason string) error {
	query := `
		UPDATE transactions
		SET payment_status = $1, failure_reason = $2, updated_at = NOW()
		WHERE id = $3 AND payment_status = $4
	`

	result, err := r.querier.Exec(ctx, query, status, nullIfEmpty(reason), id, shared.PaymentStatusPending)
	if err != nil {
		r.logger.Error("Failed to update transaction status", "id", id.String(), "status", string(status), "error", err)
		return fmt.Errorf("failed to update transaction status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return transaction.ErrAlreadyResolved{ID: id}
	}

	return nil
}

// MarkTransferredIfCompleted moves a completed payout to transferred
func (r *TransactionRepository) MarkTransferredIfCompleted(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE transactions
		SET payment_status = $1, is_transferred = TRUE, updated_at = NOW()
		WHERE id = $2 AND type = $3 AND payment_status = $4
	`

	result, err := r.querier.Exec(ctx, query,
		shared.PaymentStatusTransferred, id, shared.TransactionTypePayout, shared.PaymentStatusCompleted)
	if err != nil {
		r.logger.Error("Failed to mark payout transferred", "id", id.String(), "error", err)
		return fmt.Errorf("failed to mark payout transferred: %w", err)
	}

	if result.RowsAffected() == 0 {
		return transaction.ErrAlreadyResolved{ID: id}
	}

	return nil
}

// ListPendingMobileMoney returns pending mobile money transactions created
// before the cutoff, oldest first. Used by the verification sweep.
func (r *TransactionRepository) ListPendingMobileMoney(ctx context.Context, before time.Time, limit int) ([]*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE payment_status = $1 AND payment_method = $2 AND created_at < $3
		ORDER BY created_at ASC
		LIMIT $4
	`

	rows, err := r.querier.Query(ctx, query,
		shared.PaymentStatusPending, shared.PaymentMethodMobileMoney, before, limit)
	if err != nil {
		r.logger.Error("Failed to list pending mobile money transactions", "error", err)
		return nil, fmt.Errorf("failed to list pending mobile money transactions: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// ListSettleable returns completed, unsettled mobile money contributions
// created before the cutoff.
func (r *TransactionRepository) ListSettleable(ctx context.Context, before time.Time, limit int) ([]*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE type = $1 AND payment_method = $2 AND payment_status = $3 AND is_settled = FALSE AND created_at < $4
		ORDER BY created_at ASC
		LIMIT $5
	`

	rows, err := r.querier.Query(ctx, query,
		shared.TransactionTypeContribution, shared.PaymentMethodMobileMoney,
		shared.PaymentStatusCompleted, before, limit)
	if err != nil {
		r.logger.Error("Failed to list settleable contributions", "error", err)
		return nil, fmt.Errorf("failed to list settleable contributions: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// MarkSettled flips is_settled for the given rows and returns the ids it
// actually settled. The WHERE clause repeats the eligibility conditions so a
// concurrent sweep cannot settle twice or settle an ineligible row; callers
// must act only on the returned ids, not the candidate list.
func (r *TransactionRepository) MarkSettled(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		UPDATE transactions
		SET is_settled = TRUE, updated_at = NOW()
		WHERE id = ANY($1) AND type = $2 AND payment_status = $3 AND is_settled = FALSE
		RETURNING id
	`

	rows, err := r.querier.Query(ctx, query, ids, shared.TransactionTypeContribution, shared.PaymentStatusCompleted)
	if err != nil {
		r.logger.Error("Failed to mark contributions settled", "count", len(ids), "error", err)
		return nil, fmt.Errorf("failed to mark contributions settled: %w", err)
	}
	defer rows.Close()

	var settled []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan settled id: %w", err)
		}
		settled = append(settled, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to mark contributions settled: %w", err)
	}

	return settled, nil
}

// HasPendingPayout reports whether a payout is already in flight for the jar.
// This is the authoritative single-in-flight check; the in-memory lock is only
// a fast path.
func (r *TransactionRepository) HasPendingPayout(ctx context.Context, jarID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM transactions
			WHERE jar_id = $1 AND type = $2 AND payment_status = $3
		)
	`

	var exists bool
	err := r.querier.QueryRow(ctx, query, jarID, shared.TransactionTypePayout, shared.PaymentStatusPending).Scan(&exists)
	if err != nil {
		r.logger.Error("Failed to check for pending payout", "jar_id", jarID.String(), "error", err)
		return false, fmt.Errorf("failed to check for pending payout: %w", err)
	}

	return exists, nil
}

// BalanceBreakdown aggregates the jar's ledger position:
// available = settled completed contributions + outstanding payouts (negative).
func (r *TransactionRepository) BalanceBreakdown(ctx context.Context, jarID uuid.UUID) (*transaction.BalanceBreakdown, error) {
	query := `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE type = 'contribution' AND payment_status = 'completed'), 0),
			COALESCE(SUM(amount) FILTER (WHERE type = 'contribution' AND payment_status = 'completed' AND is_settled), 0),
			COALESCE(SUM(amount) FILTER (WHERE type = 'payout' AND payment_status IN ('pending', 'completed', 'transferred')), 0)
		FROM transactions
		WHERE jar_id = $1
	`

	var b transaction.BalanceBreakdown
	err := r.querier.QueryRow(ctx, query, jarID).Scan(&b.TotalContributions, &b.SettledAmount, &b.PayoutsOutstanding)
	if err != nil {
		r.logger.Error("Failed to compute balance breakdown", "jar_id", jarID.String(), "error", err)
		return nil, fmt.Errorf("failed to compute balance breakdown: %w", err)
	}

	b.Available = b.SettledAmount + b.PayoutsOutstanding
	return &b, nil
}

func (r *TransactionRepository) scanOne(row pgx.Row) (*transaction.Transaction, error) {
	var tx transaction.Transaction
	var reference, processor, contributorName, contributorPhone, network, failureReason *string
	err := row.Scan(
		&tx.ID, &tx.JarID, &tx.Type, &tx.Amount, &tx.PaymentMethod, &tx.PaymentStatus, &tx.IsSettled,
		&reference, &processor, &tx.CollectorID, &contributorName, &contributorPhone, &network,
		&tx.PlatformCharge, &tx.AmountPaidByContributor, &tx.PayoutFeeBps, &tx.PayoutFeeAmount, &tx.PayoutNetAmount,
		&tx.IsTransferred, &tx.LinkedTransferID, &tx.LinkedContributionID, &tx.ViaPaymentLink, &failureReason,
		&tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.Reference = deref(reference)
	tx.Processor = deref(processor)
	tx.ContributorName = deref(contributorName)
	tx.ContributorPhone = deref(contributorPhone)
	tx.MobileMoneyNetwork = deref(network)
	tx.FailureReason = deref(failureReason)
	return &tx, nil
}

func (r *TransactionRepository) scanAll(rows pgx.Rows) ([]*transaction.Transaction, error) {
	var txs []*transaction.Transaction
	for rows.Next() {
		tx, err := r.scanOne(rows)
		if err != nil {
			r.logger.Error("Failed to scan transaction row", "error", err)
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transactions: %w", err)
	}

	return txs, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
