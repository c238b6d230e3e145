package settings

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "github.com/madhasoeki/scalevxmailketing/internal/http"
	"github.com/madhasoeki/scalevxmailketing/internal/mailketing"
	"github.com/madhasoeki/scalevxmailketing/internal/scalev"
	"github.com/madhasoeki/scalevxmailketing/platform/logger"
)

// Module wires the settings bounded context into the HTTP application. It
// also owns the platform clients, since their credentials live here.
type Module struct {
	repo       *Repository
	mailketing *mailketing.Client
	scalev     *scalev.Client
	handler    *HTTPHandler
}

// NewModule assembles the settings module.
func NewModule(pool *pgxpool.Pool, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	mk := mailketing.NewClient(repo)
	sc := scalev.NewClient(repo)
	return &Module{
		repo:       repo,
		mailketing: mk,
		scalev:     sc,
		handler:    NewHTTPHandler(repo, mk, sc, log),
	}
}

// Name implements the http.Module interface.
func (m *Module) Name() string { return "settings" }

// RegisterRoutes mounts the settings admin API and the browse proxies.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Admin.Group("/settings")
	group.GET("", m.handler.get)
	group.PUT("", m.handler.update)
	group.POST("/test-mailketing", m.handler.testMailketing)
	group.POST("/test-scalev", m.handler.testScalev)

	browse := ctx.Admin.Group("/scalev")
	browse.GET("/stores", m.handler.listStores)
	browse.GET("/stores/:storeId/products", m.handler.listStoreProducts)
	browse.GET("/stores/:storeId/sales-people", m.handler.listStoreSalesPeople)
	browse.GET("/products", m.handler.listProducts)

	ctx.Admin.GET("/mailketing/lists", m.handler.listMailketingLists)
}

// Repository exposes the credential sources for other modules.
func (m *Module) Repository() *Repository { return m.repo }

// MailketingClient exposes the shared Mailketing client.
func (m *Module) MailketingClient() *mailketing.Client { return m.mailketing }
