package adaptor

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cleaning-booking/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubWebhookService struct {
	outcome string
	err     error

	body      []byte
	signature string
	timestamp string
}

func (s *stubWebhookService) HandlePIX(_ context.Context, body []byte, signature, timestamp string) (string, error) {
	s.body, s.signature, s.timestamp = body, signature, timestamp
	return s.outcome, s.err
}

func (s *stubWebhookService) HandleStripe(_ context.Context, body []byte, signature string) (string, error) {
	s.body, s.signature = body, signature
	return s.outcome, s.err
}

func TestWebhookHandler_PIX(t *testing.T) {
	payload := []byte(`{"pix":[{"endToEndId":"E1","txid":"tx1","valor":"150.00"}]}`)

	t.Run("passes raw body and headers through", func(t *testing.T) {
		svc := &stubWebhookService{outcome: usecase.WebhookProcessed}
		h := NewWebhookHandler(svc, zap.NewNop())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/pix", bytes.NewReader(payload))
		req.Header.Set(headerPIXSignature, "sha256=abc")
		req.Header.Set(headerPIXTimestamp, "1749556800")
		rec := httptest.NewRecorder()
		h.PIX(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, payload, svc.body)
		assert.Equal(t, "sha256=abc", svc.signature)
		assert.Equal(t, "1749556800", svc.timestamp)
		assert.Equal(t, map[string]any{"result": usecase.WebhookProcessed}, decodeEnvelope(t, rec).Data)
	})

	t.Run("queued answers 202", func(t *testing.T) {
		h := NewWebhookHandler(&stubWebhookService{outcome: usecase.WebhookQueued}, zap.NewNop())

		rec := httptest.NewRecorder()
		h.PIX(rec, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/pix", bytes.NewReader(payload)))

		assert.Equal(t, http.StatusAccepted, rec.Code)
	})

	t.Run("duplicate still answers 200", func(t *testing.T) {
		h := NewWebhookHandler(&stubWebhookService{outcome: usecase.WebhookDuplicate}, zap.NewNop())

		rec := httptest.NewRecorder()
		h.PIX(rec, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/pix", bytes.NewReader(payload)))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("bad signature is 401", func(t *testing.T) {
		h := NewWebhookHandler(&stubWebhookService{err: usecase.ErrUnauthorized}, zap.NewNop())

		rec := httptest.NewRecorder()
		h.PIX(rec, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/pix", bytes.NewReader(payload)))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("oversized body is rejected before the service", func(t *testing.T) {
		svc := &stubWebhookService{outcome: usecase.WebhookProcessed}
		h := NewWebhookHandler(svc, zap.NewNop())

		big := strings.Repeat("x", maxWebhookBody+1)
		rec := httptest.NewRecorder()
		h.PIX(rec, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/pix", strings.NewReader(big)))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Nil(t, svc.body)
	})
}

func TestWebhookHandler_Stripe(t *testing.T) {
	svc := &stubWebhookService{outcome: usecase.WebhookIgnored}
	h := NewWebhookHandler(svc, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader(`{"type":"charge.refunded"}`))
	req.Header.Set(headerStripeSignature, "t=1,v1=deadbeef")
	rec := httptest.NewRecorder()
	h.Stripe(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t=1,v1=deadbeef", svc.signature)
	assert.Equal(t, map[string]any{"result": usecase.WebhookIgnored}, decodeEnvelope(t, rec).Data)
}
