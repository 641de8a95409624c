package provider

import (
	"context"
	"crypto/sha512"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/susubox-payments-backend/internal/config"
	"github.com/susubox-payments-backend/internal/domain/shared"
)

func newTestPaystack(t *testing.T, handler http.Handler) (*Paystack, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewPaystack(newTestLogger(), &config.ProviderConfig{
		BaseURL:   server.URL,
		SecretKey: "sk_test_secret",
		Timeout:   5 * time.Second,
	})
	return client, server
}

func TestPaystack_ChargeMobileMoney(t *testing.T) {
	ctx := context.Background()

	t.Run("accepted charge", func(t *testing.T) {
		client, _ := newTestPaystack(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/charge", r.URL.Path)
			assert.Equal(t, "Bearer sk_test_secret", r.Header.Get("Authorization"))
			w.Write([]byte(`{"status":true,"message":"Charge attempted","data":{"reference":"ref_123","status":"pay_offline","display_text":"Approve on your phone"}}`))
		}))

		result, err := client.ChargeMobileMoney(ctx, ChargeRequest{
			Amount:   5000,
			Currency: "GHS",
			Phone:    "0244000000",
			Network:  "mtn",
		})
		require.NoError(t, err)
		assert.Equal(t, "ref_123", result.Reference)
		assert.Equal(t, shared.PaymentStatusPending, result.Status)
		assert.Equal(t, "Approve on your phone", result.DisplayText)
	})

	t.Run("rejected charge", func(t *testing.T) {
		client, _ := newTestPaystack(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"status":false,"message":"Invalid phone number"}`))
		}))

		_, err := client.ChargeMobileMoney(ctx, ChargeRequest{Amount: 5000, Currency: "GHS"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRejected{})

		var rejected ErrRejected
		require.ErrorAs(t, err, &rejected)
		assert.Equal(t, PaystackName, rejected.Provider)
		assert.Equal(t, "Invalid phone number", rejected.Message)
	})
}

func TestPaystack_CheckStatus(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		rawStatus  string
		wantStatus shared.PaymentStatus
		wantReason string
	}{
		{"success maps to completed", "success", shared.PaymentStatusCompleted, ""},
		{"abandoned maps to failed", "abandoned", shared.PaymentStatusFailed, "declined by user"},
		{"ongoing maps to pending", "ongoing", shared.PaymentStatusPending, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestPaystack(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/transaction/verify/ref_123", r.URL.Path)
				w.Write([]byte(`{"status":true,"data":{"reference":"ref_123","status":"` + tc.rawStatus + `","gateway_response":"declined by user"}}`))
			}))

			result, err := client.CheckStatus(ctx, "ref_123")
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, result.Status)
			assert.Equal(t, tc.rawStatus, result.RawStatus)
			assert.Equal(t, tc.wantReason, result.Reason)
		})
	}

	t.Run("unrecognized status", func(t *testing.T) {
		client, _ := newTestPaystack(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":true,"data":{"reference":"ref_123","status":"mystery"}}`))
		}))

		_, err := client.CheckStatus(ctx, "ref_123")
		assert.ErrorIs(t, err, ErrUnknownStatus)
	})
}

func TestPaystack_VerifyWebhook(t *testing.T) {
	client := NewPaystack(newTestLogger(), &config.ProviderConfig{
		SecretKey: "sk_test_secret",
		Timeout:   5 * time.Second,
	})
	body := []byte(`{"event":"charge.success","data":{"reference":"ref_123","status":"success"}}`)

	t.Run("valid signature", func(t *testing.T) {
		header := http.Header{}
		header.Set(paystackSignatureHeader, hmacHex(sha512.New, "sk_test_secret", body))

		assert.NoError(t, client.VerifyWebhook(header, body))
	})

	t.Run("wrong secret", func(t *testing.T) {
		header := http.Header{}
		header.Set(paystackSignatureHeader, hmacHex(sha512.New, "sk_wrong", body))

		assert.ErrorIs(t, client.VerifyWebhook(header, body), ErrBadSignature)
	})

	t.Run("missing header", func(t *testing.T) {
		assert.ErrorIs(t, client.VerifyWebhook(http.Header{}, body), ErrBadSignature)
	})

	t.Run("tampered body", func(t *testing.T) {
		header := http.Header{}
		header.Set(paystackSignatureHeader, hmacHex(sha512.New, "sk_test_secret", body))

		tampered := append([]byte(nil), body...)
		tampered[10] ^= 0xff
		assert.ErrorIs(t, client.VerifyWebhook(header, tampered), ErrBadSignature)
	})
}

func TestPaystack_ParseWebhook(t *testing.T) {
	client := NewPaystack(newTestLogger(), &config.ProviderConfig{SecretKey: "sk", Timeout: time.Second})

	t.Run("charge success", func(t *testing.T) {
		event, err := client.ParseWebhook([]byte(`{"event":"charge.success","data":{"reference":"ref_1","status":"success"}}`))
		require.NoError(t, err)
		assert.Equal(t, "ref_1", event.Reference)
		assert.Equal(t, shared.PaymentStatusCompleted, event.Status)
	})

	t.Run("transfer failed carries reason", func(t *testing.T) {
		event, err := client.ParseWebhook([]byte(`{"event":"transfer.failed","data":{"reference":"payout-abc","status":"failed","gateway_response":"insufficient balance"}}`))
		require.NoError(t, err)
		assert.Equal(t, shared.PaymentStatusFailed, event.Status)
		assert.Equal(t, "insufficient balance", event.Reason)
	})

	t.Run("malformed body", func(t *testing.T) {
		_, err := client.ParseWebhook([]byte(`not json`))
		assert.ErrorIs(t, err, ErrMalformedPayload)
	})

	t.Run("missing reference", func(t *testing.T) {
		_, err := client.ParseWebhook([]byte(`{"event":"charge.success","data":{}}`))
		assert.ErrorIs(t, err, ErrMalformedPayload)
	})
}
