package transaction

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/susubox-payments-backend/internal/domain/shared"
)

// Common errors
var (
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrMissingJar         = errors.New("transaction requires a jar")
	ErrMissingCollector   = errors.New("transaction requires a collector")
	ErrMissingPhoneNumber = errors.New("mobile money contribution requires a contributor phone number")
	ErrMissingNetwork     = errors.New("mobile money contribution requires a network")
	ErrNotMobileMoney     = errors.New("operation only applies to mobile money transactions")
	ErrInvalidFee         = errors.New("fee percentage out of range")
)

// Transaction is the ledger's atomic unit: a contribution (money in, positive
// amount) or a payout (money out, negative amount). Amounts are stored in minor
// units (pesewas).
type Transaction struct {
	ID                      uuid.UUID              `json:"id"`
	JarID                   uuid.UUID              `json:"jar_id"`
	Type                    shared.TransactionType `json:"type"`
	Amount                  int64                  `json:"amount"`
	PaymentMethod           shared.PaymentMethod   `json:"payment_method"`
	PaymentStatus           shared.PaymentStatus   `json:"payment_status"`
	IsSettled               bool                   `json:"is_settled"`
	Reference               string                 `json:"reference,omitempty"`
	Processor               string                 `json:"processor,omitempty"` // payment provider handling the charge/transfer
	CollectorID             uuid.UUID              `json:"collector_id"`
	ContributorName         string                 `json:"contributor_name,omitempty"`
	ContributorPhone        string                 `json:"contributor_phone,omitempty"`
	MobileMoneyNetwork      string                 `json:"mobile_money_network,omitempty"`
	PlatformCharge          int64                  `json:"platform_charge"`
	AmountPaidByContributor int64                  `json:"amount_paid_by_contributor"`
	PayoutFeeBps            int                    `json:"payout_fee_bps"`
	PayoutFeeAmount         int64                  `json:"payout_fee_amount"`
	PayoutNetAmount         int64                  `json:"payout_net_amount"`
	IsTransferred           bool                   `json:"is_transferred"`
	LinkedTransferID        *uuid.UUID             `json:"linked_transfer_id,omitempty"`
	LinkedContributionID    *uuid.UUID             `json:"linked_contribution_id,omitempty"`
	ViaPaymentLink          bool                   `json:"via_payment_link"`
	FailureReason           string                 `json:"failure_reason,omitempty"`
	CreatedAt               time.Time              `json:"created_at"`
	UpdatedAt               time.Time              `json:"updated_at"`
}

// NewContribution creates a pending contribution transaction
func NewContribution(jarID, collectorID uuid.UUID, amount int64, method shared.PaymentMethod, phone, network string) (*Transaction, error) {
	if jarID == uuid.Nil {
		return nil, ErrMissingJar
	}
	if collectorID == uuid.Nil {
		return nil, ErrMissingCollector
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if method == shared.PaymentMethodMobileMoney {
		if phone == "" {
			return nil, ErrMissingPhoneNumber
		}
		if network == "" {
			return nil, ErrMissingNetwork
		}
	}

	now := time.Now()
	return &Transaction{
		ID:                 uuid.New(),
		JarID:              jarID,
		Type:               shared.TransactionTypeContribution,
		Amount:             amount,
		PaymentMethod:      method,
		PaymentStatus:      shared.PaymentStatusPending,
		CollectorID:        collectorID,
		ContributorPhone:   phone,
		MobileMoneyNetwork: network,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// NewPayout creates a pending payout transaction for the given gross amount.
// The ledger amount is negative and the fee breakdown is recorded for display
// only; the downstream transfer provider performs the actual deduction.
func NewPayout(jarID, collectorID uuid.UUID, gross int64, feeBps int) (*Transaction, error) {
	if jarID == uuid.Nil {
		return nil, ErrMissingJar
	}
	if collectorID == uuid.Nil {
		return nil, ErrMissingCollector
	}
	if gross <= 0 {
		return nil, ErrInvalidAmount
	}
	if feeBps < 0 || feeBps > 10000 {
		return nil, ErrInvalidFee
	}

	fee := FeeAmount(gross, feeBps)
	now := time.Now()
	return &Transaction{
		ID:              uuid.New(),
		JarID:           jarID,
		Type:            shared.TransactionTypePayout,
		Amount:          -gross,
		PaymentMethod:   shared.PaymentMethodMobileMoney,
		PaymentStatus:   shared.PaymentStatusPending,
		CollectorID:     collectorID,
		PayoutFeeBps:    feeBps,
		PayoutFeeAmount: fee,
		PayoutNetAmount: gross - fee,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Gross returns the absolute amount of the transaction
func (t *Transaction) Gross() int64 {
	if t.Amount < 0 {
		return -t.Amount
	}
	return t.Amount
}

// Settleable reports whether the settlement sweep may promote this transaction.
// Only completed mobile money contributions that are not yet settled qualify;
// the maturity delay is enforced by the caller.
func (t *Transaction) Settleable() bool {
	return t.Type == shared.TransactionTypeContribution &&
		t.PaymentMethod == shared.PaymentMethodMobileMoney &&
		t.PaymentStatus == shared.PaymentStatusCompleted &&
		!t.IsSettled
}

// CountsTowardBalance reports whether the transaction contributes to a jar's
// withdrawable balance: settled completed contributions add, and payouts that
// are pending, completed or transferred subtract (their amount is negative).
func (t *Transaction) CountsTowardBalance() bool {
	switch t.Type {
	case shared.TransactionTypeContribution:
		return t.PaymentStatus == shared.PaymentStatusCompleted && t.IsSettled
	case shared.TransactionTypePayout:
		return t.PaymentStatus == shared.PaymentStatusPending ||
			t.PaymentStatus == shared.PaymentStatusCompleted ||
			t.PaymentStatus == shared.PaymentStatusTransferred
	}
	return false
}

// Balance computes a jar balance from a transaction slice. The SQL aggregate in
// the repository is the production path; this is the reference definition.
func Balance(txs []*Transaction) int64 {
	var sum int64
	for _, t := range txs {
		if t.CountsTowardBalance() {
			sum += t.Amount
		}
	}
	return sum
}

// FeeAmount computes a fee in minor units from basis points, rounding down
func FeeAmount(amount int64, bps int) int64 {
	return amount * int64(bps) / 10000
}
