package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/susubox-payments-backend/internal/config"
	"github.com/susubox-payments-backend/internal/domain/shared"
)

// EganowName is the processor name stored on transactions charged via Eganow
const EganowName = "eganow"

const (
	eganowSignatureHeader = "X-Eganow-Signature"
	eganowTimestampHeader = "X-Eganow-Timestamp"
)

// eganowStatusMap normalizes Eganow's all-caps status vocabulary
var eganowStatusMap = map[string]shared.PaymentStatus{
	"SUCCESSFUL": shared.PaymentStatusCompleted,
	"SUCCESS":    shared.PaymentStatusCompleted,
	"FAILED":     shared.PaymentStatusFailed,
	"EXPIRED":    shared.PaymentStatusFailed,
	"CANCELLED":  shared.PaymentStatusFailed,
	"PENDING":    shared.PaymentStatusPending,
	"PROCESSING": shared.PaymentStatusPending,
	"INITIATED":  shared.PaymentStatusPending,
}

// Eganow is the adapter for the Eganow mobile money collection and payout APIs
type Eganow struct {
	baseURL       string
	secretKey     string
	webhookMaxAge time.Duration
	httpClient    *http.Client
	logger        *slog.Logger
	now           func() time.Time // injectable for freshness tests
}

// NewEganow creates an Eganow adapter from configuration
func NewEganow(logger *slog.Logger, cfg *config.ProviderConfig) *Eganow {
	return &Eganow{
		baseURL:       cfg.BaseURL,
		secretKey:     cfg.SecretKey,
		webhookMaxAge: cfg.WebhookMaxAge,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		logger:        logger,
		now:           time.Now,
	}
}

func (e *Eganow) Name() string { return EganowName }

func (e *Eganow) SignatureHeader() string { return eganowSignatureHeader }

type eganowResponse struct {
	Code                 string `json:"code"`
	Message              string `json:"message"`
	TransactionReference string `json:"transaction_reference"`
	TransactionStatus    string `json:"transaction_status"`
	StatusReason         string `json:"status_reason"`
}

// ChargeMobileMoney initiates a wallet debit through Eganow
func (e *Eganow) ChargeMobileMoney(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	body := map[string]any{
		"amount":       req.Amount,
		"currency":     req.Currency,
		"phone_number": req.Phone,
		"network":      req.Network,
		"reference":    req.Reference,
	}

	var resp eganowResponse
	if err := e.do(ctx, http.MethodPost, "/v1/collections/momo", body, &resp); err != nil {
		return nil, err
	}

	status, ok := eganowStatusMap[resp.TransactionStatus]
	if !ok {
		return nil, fmt.Errorf("%w: eganow charge status %q", ErrUnknownStatus, resp.TransactionStatus)
	}

	return &ChargeResult{
		Reference:   resp.TransactionReference,
		Status:      status,
		DisplayText: resp.Message,
	}, nil
}

// CheckStatus queries Eganow's authoritative transaction status
func (e *Eganow) CheckStatus(ctx context.Context, reference string) (*StatusResult, error) {
	var resp eganowResponse
	if err := e.do(ctx, http.MethodGet, "/v1/transactions/"+reference+"/status", nil, &resp); err != nil {
		return nil, err
	}

	status, ok := eganowStatusMap[resp.TransactionStatus]
	if !ok {
		return nil, fmt.Errorf("%w: eganow status %q for %s", ErrUnknownStatus, resp.TransactionStatus, reference)
	}

	result := &StatusResult{
		Reference: reference,
		Status:    status,
		RawStatus: resp.TransactionStatus,
	}
	if status == shared.PaymentStatusFailed {
		result.Reason = resp.StatusReason
	}
	return result, nil
}

// InitiateTransfer starts a payout to the creator's wallet or bank account
func (e *Eganow) InitiateTransfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	body := map[string]any{
		"amount":         req.Amount,
		"currency":       req.Currency,
		"reference":      req.Reference,
		"account_number": req.AccountNumber,
		"account_name":   req.AccountName,
		"provider_code":  req.ProviderCode,
		"narration":      req.Narration,
	}

	var resp eganowResponse
	if err := e.do(ctx, http.MethodPost, "/v1/transfers", body, &resp); err != nil {
		return nil, err
	}

	status, ok := eganowStatusMap[resp.TransactionStatus]
	if !ok {
		status = shared.PaymentStatusPending
	}

	return &TransferResult{
		Reference: resp.TransactionReference,
		Status:    status,
	}, nil
}

// VerifyWebhook checks the HMAC-SHA256 signature over "<timestamp>.<body>" and
// rejects deliveries older than the freshness window to mitigate replay.
func (e *Eganow) VerifyWebhook(header http.Header, body []byte) error {
	signature := header.Get(eganowSignatureHeader)
	timestamp := header.Get(eganowTimestampHeader)
	if signature == "" || timestamp == "" {
		return ErrBadSignature
	}

	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrBadSignature
	}

	age := e.now().Sub(time.Unix(unix, 0))
	if age > e.webhookMaxAge || age < -e.webhookMaxAge {
		return ErrStaleWebhook
	}

	signed := append([]byte(timestamp+"."), body...)
	if !verifyHMACSHA256(e.secretKey, signed, signature) {
		return ErrBadSignature
	}
	return nil
}

type eganowWebhookPayload struct {
	EventType            string `json:"event_type"`
	TransactionReference string `json:"transaction_reference"`
	TransactionStatus    string `json:"transaction_status"`
	StatusReason         string `json:"status_reason"`
}

// ParseWebhook normalizes an Eganow callback
func (e *Eganow) ParseWebhook(body []byte) (*WebhookEvent, error) {
	var payload eganowWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if payload.TransactionReference == "" {
		return nil, fmt.Errorf("%w: missing transaction reference", ErrMalformedPayload)
	}

	status, ok := eganowStatusMap[payload.TransactionStatus]
	if !ok {
		return nil, fmt.Errorf("%w: eganow webhook status %q", ErrUnknownStatus, payload.TransactionStatus)
	}

	return &WebhookEvent{
		EventType: payload.EventType,
		Reference: payload.TransactionReference,
		Status:    status,
		RawStatus: payload.TransactionStatus,
		Reason:    payload.StatusReason,
	}, nil
}

func (e *Eganow) do(ctx context.Context, method, path string, body any, out *eganowResponse) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode eganow request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, e.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build eganow request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("eganow request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read eganow response: %w", err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode eganow response: %w", err)
	}

	if resp.StatusCode >= 400 {
		e.logger.Warn("Eganow rejected request",
			"path", path, "http_status", resp.StatusCode, "code", out.Code, "message", out.Message)
		return ErrRejected{
			Provider: EganowName,
			Code:     out.Code,
			Message:  out.Message,
		}
	}
	return nil
}
