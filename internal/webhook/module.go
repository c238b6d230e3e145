package webhook

import (
	apphttp "github.com/madhasoeki/scalevxmailketing/internal/http"
	"github.com/madhasoeki/scalevxmailketing/platform/logger"
)

// Module wires the webhook endpoint into the HTTP application.
type Module struct {
	handler *HTTPHandler
}

// NewModule assembles the webhook module from its collaborators.
func NewModule(resolver RuleResolver, ledger Ledger, secrets SecretSource, log *logger.Logger) *Module {
	service := NewService(resolver, ledger, log)
	return &Module{handler: NewHTTPHandler(service, secrets, log)}
}

// Name implements the http.Module interface.
func (m *Module) Name() string { return "webhook" }

// RegisterRoutes mounts the public webhook endpoint. It lives on the engine
// root, outside /api/v1, because the path is registered verbatim at Scalev.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Engine.POST("/webhook/scalev", m.handler.receive)
}
