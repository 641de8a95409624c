package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/susubox-payments-backend/internal/domain/jar"
	"github.com/susubox-payments-backend/internal/platform/persistence"
)

const jarColumns = `id, name, creator_id, currency, status,
		withdrawal_provider, withdrawal_provider_code, withdrawal_account_number, withdrawal_account_name,
		created_at, updated_at`

// JarRepository implements the jar.Repository interface for PostgreSQL
type JarRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewJarRepository creates a new PostgreSQL jar repository
func NewJarRepository(logger *slog.Logger, db *persistence.PostgresDB) jar.Repository {
	return &JarRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// Create stores a new jar
func (r *JarRepository) Create(ctx context.Context, j *jar.Jar) error {
	query := `
		INSERT INTO jars (` + jarColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	var provider, providerCode, accountNumber, accountName *string
	if j.WithdrawalAccount != nil {
		provider = &j.WithdrawalAccount.Provider
		providerCode = &j.WithdrawalAccount.ProviderCode
		accountNumber = &j.WithdrawalAccount.AccountNumber
		accountName = &j.WithdrawalAccount.AccountName
	}

	_, err := r.querier.Exec(ctx, query,
		j.ID, j.Name, j.CreatorID, j.Currency, j.Status,
		provider, providerCode, accountNumber, accountName,
		j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create jar", "jar_id", j.ID.String(), "error", err)
		return fmt.Errorf("failed to create jar: %w", err)
	}

	return nil
}

// GetByID retrieves a jar by its ID
func (r *JarRepository) GetByID(ctx context.Context, id uuid.UUID) (*jar.Jar, error) {
	query := `
		SELECT ` + jarColumns + `
		FROM jars
		WHERE id = $1
	`

	j, err := r.scanOne(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, jar.ErrJarNotFound{ID: id}
		}
		r.logger.Error("Failed to get jar", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get jar: %w", err)
	}

	return j, nil
}

// ListWithWithdrawableBalance returns jars whose settled balance meets the
// minimum payout amount. The subquery mirrors the available-balance aggregate
// so the reminder sweep and the payout path agree on withdrawability.
func (r *JarRepository) ListWithWithdrawableBalance(ctx context.Context, minimum int64, limit int) ([]*jar.Jar, error) {
	query := `
		SELECT ` + jarColumns + `
		FROM jars
		WHERE status IN ('open', 'sealed')
		  AND (
			SELECT COALESCE(SUM(amount) FILTER (WHERE type = 'contribution' AND payment_status = 'completed' AND is_settled), 0)
			     + COALESCE(SUM(amount) FILTER (WHERE type = 'payout' AND payment_status IN ('pending', 'completed', 'transferred')), 0)
			FROM transactions WHERE transactions.jar_id = jars.id
		  ) >= $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, minimum, limit)
	if err != nil {
		r.logger.Error("Failed to list jars with withdrawable balance", "error", err)
		return nil, fmt.Errorf("failed to list jars with withdrawable balance: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// ListDormantOpen returns open jars with no contributions since the cutoff
func (r *JarRepository) ListDormantOpen(ctx context.Context, since time.Time, limit int) ([]*jar.Jar, error) {
	query := `
		SELECT ` + jarColumns + `
		FROM jars
		WHERE status = 'open'
		  AND NOT EXISTS (
			SELECT 1 FROM transactions
			WHERE transactions.jar_id = jars.id
			  AND transactions.type = 'contribution'
			  AND transactions.created_at >= $1
		  )
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, since, limit)
	if err != nil {
		r.logger.Error("Failed to list dormant jars", "error", err)
		return nil, fmt.Errorf("failed to list dormant jars: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

func (r *JarRepository) scanOne(row pgx.Row) (*jar.Jar, error) {
	var j jar.Jar
	var provider, providerCode, accountNumber, accountName *string
	err := row.Scan(
		&j.ID, &j.Name, &j.CreatorID, &j.Currency, &j.Status,
		&provider, &providerCode, &accountNumber, &accountName,
		&j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if provider != nil || accountNumber != nil {
		j.WithdrawalAccount = &jar.WithdrawalAccount{
			Provider:      deref(provider),
			ProviderCode:  deref(providerCode),
			AccountNumber: deref(accountNumber),
			AccountName:   deref(accountName),
		}
	}
	return &j, nil
}

func (r *JarRepository) scanAll(rows pgx.Rows) ([]*jar.Jar, error) {
	var jars []*jar.Jar
	for rows.Next() {
		j, err := r.scanOne(rows)
		if err != nil {
			r.logger.Error("Failed to scan jar row", "error", err)
			return nil, fmt.Errorf("failed to scan jar row: %w", err)
		}
		jars = append(jars, j)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over jars: %w", err)
	}

	return jars, nil
}
