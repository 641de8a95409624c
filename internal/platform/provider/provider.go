// Package provider contains the payment provider adapters. Each adapter
// normalizes its provider's status vocabulary and webhook format at the
// boundary so provider-specific strings never reach the reconciliation logic.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/susubox-payments-backend/internal/domain/shared"
)

// Common errors
var (
	ErrBadSignature     = errors.New("webhook signature verification failed")
	ErrStaleWebhook     = errors.New("webhook timestamp outside freshness window")
	ErrMalformedPayload = errors.New("malformed webhook payload")
	ErrUnknownProvider  = errors.New("unknown payment provider")
	ErrUnknownStatus    = errors.New("unrecognized provider status")
)

// ErrRejected indicates the provider refused a charge or transfer request
type ErrRejected struct {
	Provider string
	Code     string
	Message  string
}

func (e ErrRejected) Error() string {
	return fmt.Sprintf("%s rejected request: %s (%s)", e.Provider, e.Message, e.Code)
}

// Is matches any ErrRejected regardless of provider detail
func (e ErrRejected) Is(target error) bool {
	_, ok := target.(ErrRejected)
	return ok
}

// ChargeRequest asks a provider to debit a contributor's mobile money wallet
type ChargeRequest struct {
	Amount    int64  // total to collect from the contributor, minor units
	Currency  string
	Phone     string
	Network   string // mobile money operator, e.g. MTN
	Email     string
	Reference string // optional caller-chosen reference
}

// ChargeResult is the provider's acknowledgement of an initiated charge
type ChargeResult struct {
	Reference   string // provider-assigned external reference
	Status      shared.PaymentStatus
	DisplayText string // provider instruction to surface to the contributor
}

// StatusResult reports the provider's current view of a transaction
type StatusResult struct {
	Reference string
	Status    shared.PaymentStatus
	RawStatus string // provider vocabulary, for logging and audit only
	Reason    string // failure detail when Status is failed
}

// TransferRequest asks a provider to pay out to a creator's account
type TransferRequest struct {
	Amount        int64 // full gross to transfer, minor units; the provider deducts its fee
	Currency      string
	Reference     string // caller-chosen reference, unique per payout
	AccountNumber string
	AccountName   string
	ProviderCode  string // bank or operator code at the transfer provider
	Narration     string
}

// TransferResult is the provider's acknowledgement of an initiated transfer
type TransferResult struct {
	Reference string
	Status    shared.PaymentStatus
}

// WebhookEvent is a provider callback normalized to local vocabulary
type WebhookEvent struct {
	EventType string
	Reference string
	Status    shared.PaymentStatus
	RawStatus string
	Reason    string
}

// Client is the outbound surface of a payment provider
type Client interface {
	Name() string
	ChargeMobileMoney(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	CheckStatus(ctx context.Context, reference string) (*StatusResult, error)
	InitiateTransfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
}

// WebhookVerifier authenticates and parses inbound provider callbacks
type WebhookVerifier interface {
	Name() string
	// SignatureHeader names the HTTP header carrying this provider's signature
	SignatureHeader() string
	VerifyWebhook(header http.Header, body []byte) error
	ParseWebhook(body []byte) (*WebhookEvent, error)
}

// Registry resolves providers by the processor name stored on transactions
type Registry struct {
	clients   map[string]Client
	verifiers map[string]WebhookVerifier
}

// NewRegistry builds a registry from the configured providers
func NewRegistry() *Registry {
	return &Registry{
		clients:   make(map[string]Client),
		verifiers: make(map[string]WebhookVerifier),
	}
}

// Register adds a provider under its name. A provider may implement either or
// both surfaces.
func (r *Registry) Register(name string, client Client, verifier WebhookVerifier) {
	if client != nil {
		r.clients[name] = client
	}
	if verifier != nil {
		r.verifiers[name] = verifier
	}
}

// Client resolves the outbound client for a processor name
func (r *Registry) Client(name string) (Client, error) {
	c, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return c, nil
}

// Verifier resolves the webhook verifier for a processor name
func (r *Registry) Verifier(name string) (WebhookVerifier, error) {
	v, ok := r.verifiers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return v, nil
}
