package webhook

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/madhasoeki/scalevxmailketing/platform/logger"
)

type fakeSecrets struct {
	secret string
	err    error
}

func (f *fakeSecrets) WebhookSecret(_ context.Context) (string, error) {
	return f.secret, f.err
}

func newTestRouter(secrets SecretSource) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.New("development")
	module := NewModule(&fakeResolver{}, &fakeLedger{}, secrets, log)

	engine := gin.New()
	engine.POST("/webhook/scalev", module.handler.receive)
	return engine
}

func postWebhook(t *testing.T, engine *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/scalev", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestWebhookRejectsWhenSecretUnset(t *testing.T) {
	engine := newTestRouter(&fakeSecrets{secret: ""})
	body := []byte(`{"event":"business.test_event"}`)

	rec := postWebhook(t, engine, body, Sign("whatever", body))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 when the secret is not configured", rec.Code)
	}
}

func TestWebhookRejectsSecretLookupFailure(t *testing.T) {
	engine := newTestRouter(&fakeSecrets{err: errors.New("db down")})

	rec := postWebhook(t, engine, []byte(`{}`), "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 on secret lookup failure", rec.Code)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	engine := newTestRouter(&fakeSecrets{secret: "topsecret"})
	body := []byte(`{"event":"business.test_event"}`)

	t.Run("missing header", func(t *testing.T) {
		rec := postWebhook(t, engine, body, "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401 without a signature", rec.Code)
		}
	})

	t.Run("wrong signature", func(t *testing.T) {
		rec := postWebhook(t, engine, body, Sign("othersecret", body))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401 for a mis-signed body", rec.Code)
		}
	})
}

func TestWebhookAcceptsSignedTestEvent(t *testing.T) {
	engine := newTestRouter(&fakeSecrets{secret: "topsecret"})
	body := []byte(`{"event":"business.test_event"}`)

	rec := postWebhook(t, engine, body, Sign("topsecret", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
}

func TestWebhookRejectsMalformedJSON(t *testing.T) {
	engine := newTestRouter(&fakeSecrets{secret: "topsecret"})
	body := []byte(`{"event":`)

	rec := postWebhook(t, engine, body, Sign("topsecret", body))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for malformed JSON", rec.Code)
	}
}
