package leads

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "github.com/madhasoeki/scalevxmailketing/internal/http"
	"github.com/madhasoeki/scalevxmailketing/internal/rules"
	"github.com/madhasoeki/scalevxmailketing/platform/logger"
)

// Module wires the leads bounded context into the HTTP application.
type Module struct {
	service *Service
	handler *HTTPHandler
}

// NewModule assembles the leads module. The syncer is the Mailketing client;
// rule lists are resolved through the rules repository.
func NewModule(pool *pgxpool.Pool, syncer ListSyncer, log *logger.Logger) *Module {
	service := NewService(
		NewRepository(pool),
		syncer,
		NewRuleListsSource(rules.NewRepository(pool)),
		log,
	)
	return &Module{
		service: service,
		handler: NewHTTPHandler(service, log),
	}
}

// Name implements the http.Module interface.
func (m *Module) Name() string { return "leads" }

// RegisterRoutes mounts the admin endpoints.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Admin.Group("/leads")
	group.GET("", m.handler.list)
	group.GET("/stats", m.handler.stats)
	group.GET("/:id", m.handler.get)
	group.POST("/:id/close", m.handler.close)
	group.POST("/:id/resync", m.handler.resync)
}

// Service exposes the lead lifecycle for the webhook and scheduler modules.
func (m *Module) Service() *Service { return m.service }

// ruleListsSource adapts the rules repository to the ListsSource interface.
type ruleListsSource struct {
	repo *rules.Repository
}

// NewRuleListsSource resolves destination lists through the rules repository.
func NewRuleListsSource(repo *rules.Repository) ListsSource {
	return &ruleListsSource{repo: repo}
}

func (s *ruleListsSource) RuleLists(ctx context.Context, ruleID uuid.UUID) (ListSet, error) {
	rule, err := s.repo.GetByID(ctx, ruleID)
	if err != nil {
		return ListSet{}, err
	}
	return ListSet{
		FollowUp:   rule.ListFollowUp,
		Closing:    rule.ListClosing,
		NotClosing: rule.ListNotClosing,
	}, nil
}
