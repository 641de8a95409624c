package jar

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/susubox-payments-backend/internal/domain/shared"
)

// Common errors
var (
	ErrEmptyName           = errors.New("jar name cannot be empty")
	ErrInvalidCurrency     = errors.New("currency must be a 3-letter code")
	ErrNotCreator          = errors.New("only the jar creator may request a payout")
	ErrNoWithdrawalAccount = errors.New("jar creator has no withdrawal account configured")
)

// WithdrawalAccount holds the creator's payout destination
type WithdrawalAccount struct {
	Provider      string `json:"provider"`       // bank or mobile money operator name
	ProviderCode  string `json:"provider_code"`  // transfer provider's code for the operator
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
}

// Complete reports whether the account has everything a transfer needs
func (w *WithdrawalAccount) Complete() bool {
	return w != nil && w.Provider != "" && w.ProviderCode != "" &&
		w.AccountNumber != "" && w.AccountName != ""
}

// Jar owns zero or more transactions. Balance and TotalContributions are
// derived from the ledger on read, never mutated independently.
type Jar struct {
	ID                uuid.UUID          `json:"id"`
	Name              string             `json:"name"`
	CreatorID         uuid.UUID          `json:"creator_id"`
	Currency          string             `json:"currency"`
	Status            shared.JarStatus   `json:"status"`
	WithdrawalAccount *WithdrawalAccount `json:"withdrawal_account,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// NewJar creates an open jar
func NewJar(name string, creatorID uuid.UUID, currency string) (*Jar, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if len(currency) != 3 {
		return nil, ErrInvalidCurrency
	}

	now := time.Now()
	return &Jar{
		ID:        uuid.New(),
		Name:      name,
		CreatorID: creatorID,
		Currency:  currency,
		Status:    shared.JarStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// AcceptsTransactions reports whether new transactions may be created against
// the jar. Frozen blocks everything, broken is terminal, sealed stops new
// contributions but still allows the creator's payout.
func (j *Jar) AcceptsTransactions() bool {
	return j.Status == shared.JarStatusOpen
}

// AcceptsPayout reports whether a payout may be initiated for the jar
func (j *Jar) AcceptsPayout() bool {
	return j.Status == shared.JarStatusOpen || j.Status == shared.JarStatusSealed
}
