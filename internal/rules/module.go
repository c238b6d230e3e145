package rules

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "github.com/madhasoeki/scalevxmailketing/internal/http"
	"github.com/madhasoeki/scalevxmailketing/platform/logger"
	"github.com/madhasoeki/scalevxmailketing/platform/validator"
)

// Module wires the rules bounded context into the HTTP application.
type Module struct {
	repo     *Repository
	resolver *Resolver
	handler  *HTTPHandler
}

// NewModule assembles the rules module.
func NewModule(pool *pgxpool.Pool, v *validator.Validator, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	return &Module{
		repo:     repo,
		resolver: NewResolver(repo),
		handler:  NewHTTPHandler(repo, v, log),
	}
}

// Name implements the http.Module interface.
func (m *Module) Name() string { return "rules" }

// RegisterRoutes mounts the admin CRUD endpoints.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Admin.Group("/rules")
	group.GET("", m.handler.list)
	group.POST("", m.handler.create)
	group.GET("/:id", m.handler.get)
	group.PUT("/:id", m.handler.update)
	group.DELETE("/:id", m.handler.delete)
}

// Resolver exposes the matcher for the webhook module.
func (m *Module) Resolver() *Resolver { return m.resolver }
