package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/susubox-payments-backend/internal/config"
	"github.com/susubox-payments-backend/internal/domain/shared"
)

// PaystackName is the processor name stored on transactions charged via Paystack
const PaystackName = "paystack"

const paystackSignatureHeader = "X-Paystack-Signature"

// paystackStatusMap normalizes Paystack's transaction status vocabulary.
// Anything not listed is treated as unrecognized and surfaced as an error.
var paystackStatusMap = map[string]shared.PaymentStatus{
	"success":     shared.PaymentStatusCompleted,
	"failed":      shared.PaymentStatusFailed,
	"abandoned":   shared.PaymentStatusFailed,
	"reversed":    shared.PaymentStatusFailed,
	"pending":     shared.PaymentStatusPending,
	"ongoing":     shared.PaymentStatusPending,
	"processing":  shared.PaymentStatusPending,
	"queued":      shared.PaymentStatusPending,
	"send_otp":    shared.PaymentStatusPending,
	"pay_offline": shared.PaymentStatusPending,
}

// Paystack is the adapter for the Paystack charge and transfer APIs
type Paystack struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewPaystack creates a Paystack adapter from configuration
func NewPaystack(logger *slog.Logger, cfg *config.ProviderConfig) *Paystack {
	return &Paystack{
		baseURL:    cfg.BaseURL,
		secretKey:  cfg.SecretKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

func (p *Paystack) Name() string { return PaystackName }

func (p *Paystack) SignatureHeader() string { return paystackSignatureHeader }

type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type paystackChargeData struct {
	Reference   string `json:"reference"`
	Status      string `json:"status"`
	DisplayText string `json:"display_text"`
}

type paystackVerifyData struct {
	Reference       string `json:"reference"`
	Status          string `json:"status"`
	GatewayResponse string `json:"gateway_response"`
}

type paystackTransferData struct {
	Reference    string `json:"reference"`
	Status       string `json:"status"`
	TransferCode string `json:"transfer_code"`
}

// ChargeMobileMoney initiates a mobile money charge. Paystack responds with
// its own reference, which becomes the transaction's external reference.
func (p *Paystack) ChargeMobileMoney(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	body := map[string]any{
		"amount":   req.Amount,
		"currency": req.Currency,
		"email":    req.Email,
		"mobile_money": map[string]string{
			"phone":    req.Phone,
			"provider": req.Network,
		},
	}
	if req.Reference != "" {
		body["reference"] = req.Reference
	}

	var data paystackChargeData
	if err := p.do(ctx, http.MethodPost, "/charge", body, &data); err != nil {
		return nil, err
	}

	status, ok := paystackStatusMap[data.Status]
	if !ok {
		return nil, fmt.Errorf("%w: paystack charge status %q", ErrUnknownStatus, data.Status)
	}

	return &ChargeResult{
		Reference:   data.Reference,
		Status:      status,
		DisplayText: data.DisplayText,
	}, nil
}

// CheckStatus queries Paystack's authoritative transaction status
func (p *Paystack) CheckStatus(ctx context.Context, reference string) (*StatusResult, error) {
	var data paystackVerifyData
	if err := p.do(ctx, http.MethodGet, "/transaction/verify/"+reference, nil, &data); err != nil {
		return nil, err
	}

	status, ok := paystackStatusMap[data.Status]
	if !ok {
		return nil, fmt.Errorf("%w: paystack status %q for %s", ErrUnknownStatus, data.Status, reference)
	}

	result := &StatusResult{
		Reference: data.Reference,
		Status:    status,
		RawStatus: data.Status,
	}
	if status == shared.PaymentStatusFailed {
		result.Reason = data.GatewayResponse
	}
	return result, nil
}

// InitiateTransfer creates a transfer recipient and starts the transfer. Both
// calls carry the caller's reference so a crash between them is recoverable by
// status lookup.
func (p *Paystack) InitiateTransfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	recipientBody := map[string]any{
		"type":           "mobile_money",
		"name":           req.AccountName,
		"account_number": req.AccountNumber,
		"bank_code":      req.ProviderCode,
		"currency":       req.Currency,
	}

	var recipient struct {
		RecipientCode string `json:"recipient_code"`
	}
	if err := p.do(ctx, http.MethodPost, "/transferrecipient", recipientBody, &recipient); err != nil {
		return nil, err
	}

	transferBody := map[string]any{
		"source":    "balance",
		"amount":    req.Amount,
		"currency":  req.Currency,
		"reference": req.Reference,
		"recipient": recipient.RecipientCode,
		"reason":    req.Narration,
	}

	var data paystackTransferData
	if err := p.do(ctx, http.MethodPost, "/transfer", transferBody, &data); err != nil {
		return nil, err
	}

	status, ok := paystackStatusMap[data.Status]
	if !ok {
		// Transfers report "otp" and similar intermediate states; treat any
		// unmapped non-terminal acknowledgement as pending.
		status = shared.PaymentStatusPending
	}

	return &TransferResult{
		Reference: data.Reference,
		Status:    status,
	}, nil
}

// VerifyWebhook checks the HMAC-SHA512 signature Paystack sends over the raw body
func (p *Paystack) VerifyWebhook(header http.Header, body []byte) error {
	signature := header.Get(paystackSignatureHeader)
	if signature == "" || !verifyHMACSHA512(p.secretKey, body, signature) {
		return ErrBadSignature
	}
	return nil
}

type paystackWebhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		Reference       string `json:"reference"`
		Status          string `json:"status"`
		GatewayResponse string `json:"gateway_response"`
	} `json:"data"`
}

// ParseWebhook normalizes a Paystack callback. Transfer events carry terminal
// status in the event name rather than the status field.
func (p *Paystack) ParseWebhook(body []byte) (*WebhookEvent, error) {
	var payload paystackWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if payload.Event == "" || payload.Data.Reference == "" {
		return nil, fmt.Errorf("%w: missing event or reference", ErrMalformedPayload)
	}

	event := &WebhookEvent{
		EventType: payload.Event,
		Reference: payload.Data.Reference,
		RawStatus: payload.Data.Status,
		Reason:    payload.Data.GatewayResponse,
	}

	switch payload.Event {
	case "charge.success", "transfer.success":
		event.Status = shared.PaymentStatusCompleted
	case "transfer.failed", "transfer.reversed":
		event.Status = shared.PaymentStatusFailed
	default:
		status, ok := paystackStatusMap[payload.Data.Status]
		if !ok {
			return nil, fmt.Errorf("%w: paystack webhook status %q", ErrUnknownStatus, payload.Data.Status)
		}
		event.Status = status
	}

	return event, nil
}

func (p *Paystack) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode paystack request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build paystack request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("paystack request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read paystack response: %w", err)
	}

	var envelope paystackEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("failed to decode paystack response: %w", err)
	}

	if resp.StatusCode >= 400 || !envelope.Status {
		p.logger.Warn("Paystack rejected request",
			"path", path, "http_status", resp.StatusCode, "message", envelope.Message)
		return ErrRejected{
			Provider: PaystackName,
			Code:     resp.Status,
			Message:  envelope.Message,
		}
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to decode paystack response data: %w", err)
		}
	}
	return nil
}
