package handler

import (
	"github.com/susubox-payments-backend/internal/domain/transaction"
)

// CreateContributionRequest represents a request to record a contribution
type CreateContributionRequest struct {
	JarID            string `json:"jar_id" binding:"required,uuid"`
	CollectorID      string `json:"collector_id" binding:"required,uuid"`
	Amount           int64  `json:"amount" binding:"required,gt=0"`
	PaymentMethod    string `json:"payment_method" binding:"required,oneof=mobile-money bank cash card apple-pay"`
	Processor        string `json:"processor,omitempty" binding:"omitempty,oneof=paystack eganow"`
	ContributorName  string `json:"contributor_name,omitempty"`
	ContributorPhone string `json:"contributor_phone,omitempty"`
	Network          string `json:"network,omitempty"`
	ViaPaymentLink   bool   `json:"via_payment_link,omitempty"`
}

// ChargeContributionRequest asks to collect a pending contribution
type ChargeContributionRequest struct {
	ContributionID string `json:"contribution_id" binding:"required,uuid"`
}

// InitiatePayoutRequest represents a creator's payout request
type InitiatePayoutRequest struct {
	JarID string `json:"jar_id" binding:"required,uuid"`
}

// TransactionResponse represents a transaction in API responses
type TransactionResponse struct {
	ID              string `json:"id"`
	JarID           string `json:"jar_id"`
	Type            string `json:"type"`
	Amount          int64  `json:"amount"`
	PaymentMethod   string `json:"payment_method"`
	PaymentStatus   string `json:"payment_status"`
	IsSettled       bool   `json:"is_settled"`
	Reference       string `json:"reference,omitempty"`
	Processor       string `json:"processor,omitempty"`
	PlatformCharge  int64  `json:"platform_charge,omitempty"`
	AmountPaid      int64  `json:"amount_paid_by_contributor,omitempty"`
	PayoutFeeAmount int64  `json:"payout_fee_amount,omitempty"`
	PayoutNetAmount int64  `json:"payout_net_amount,omitempty"`
	FailureReason   string `json:"failure_reason,omitempty"`
	DisplayText     string `json:"display_text,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

// BalanceResponse represents a jar balance breakdown in API responses
type BalanceResponse struct {
	JarID              string `json:"jar_id"`
	TotalContributions int64  `json:"total_contributions"`
	SettledAmount      int64  `json:"settled_amount"`
	PayoutsOutstanding int64  `json:"payouts_outstanding"`
	Available          int64  `json:"available"`
}

func mapTransactionToResponse(tx *transaction.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:              tx.ID.String(),
		JarID:           tx.JarID.String(),
		Type:            string(tx.Type),
		Amount:          tx.Amount,
		PaymentMethod:   string(tx.PaymentMethod),
		PaymentStatus:   string(tx.PaymentStatus),
		IsSettled:       tx.IsSettled,
		Reference:       tx.Reference,
		Processor:       tx.Processor,
		PlatformCharge:  tx.PlatformCharge,
		AmountPaid:      tx.AmountPaidByContributor,
		PayoutFeeAmount: tx.PayoutFeeAmount,
		PayoutNetAmount: tx.PayoutNetAmount,
		FailureReason:   tx.FailureReason,
		CreatedAt:       tx.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:       tx.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}
