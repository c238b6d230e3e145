package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/madhasoeki/scalevxmailketing/platform/httpkit"
	"github.com/madhasoeki/scalevxmailketing/platform/logger"
)

// Webhook bodies are small; anything this large is hostile.
const maxBodyBytes = 1 << 20

// SecretSource provides the shared webhook secret at request time, so secret
// rotation in settings takes effect without a restart.
type SecretSource interface {
	WebhookSecret(ctx context.Context) (string, error)
}

// HTTPHandler authenticates inbound webhook requests and hands them to the
// processing service.
type HTTPHandler struct {
	service *Service
	secrets SecretSource
	log     *logger.Logger
}

// NewHTTPHandler creates the webhook HTTP handler.
func NewHTTPHandler(service *Service, secrets SecretSource, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{service: service, secrets: secrets, log: log}
}

func (h *HTTPHandler) receive(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "failed to read request body", nil)
		return
	}

	secret, err := h.secrets.WebhookSecret(c.Request.Context())
	if err != nil {
		h.log.Error("loading webhook secret", "error", err)
		httpkit.Error(c, http.StatusInternalServerError, "webhook secret unavailable", nil)
		return
	}
	if secret == "" {
		h.log.Error("webhook secret is not configured")
		httpkit.Error(c, http.StatusInternalServerError, "webhook secret not configured", nil)
		return
	}

	// Unsigned and mis-signed requests are rejected alike; there is no
	// development bypass.
	if !VerifySignature(secret, body, c.GetHeader(SignatureHeader)) {
		h.log.Warn("webhook signature rejected", "client_ip", c.ClientIP())
		httpkit.Error(c, http.StatusUnauthorized, "invalid signature", nil)
		return
	}

	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "malformed event payload", nil)
		return
	}

	result, err := h.service.Process(c.Request.Context(), ev, body)
	if err != nil {
		h.log.Error("webhook processing failed", "event", ev.Event, "order_id", ev.OrderID(), "error", err)
		httpkit.Error(c, http.StatusInternalServerError, "event processing failed", nil)
		return
	}

	httpkit.JSON(c, result.Status, gin.H{
		"status":  result.Outcome,
		"message": result.Message,
	})
}
