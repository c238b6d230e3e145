package scheduler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apphttp "github.com/madhasoeki/scalevxmailketing/internal/http"
	"github.com/madhasoeki/scalevxmailketing/platform/httpkit"
	"github.com/madhasoeki/scalevxmailketing/platform/logger"
)

// Module exposes the manual sweep trigger to the admin API. With Redis
// configured the sweep is enqueued for the worker; without it the sweep runs
// inline in the request.
type Module struct {
	sweeper *Sweeper
	client  *Client
	log     *logger.Logger
}

// NewModule assembles the scheduler module. client may be nil when no Redis
// is configured.
func NewModule(sweeper *Sweeper, client *Client, log *logger.Logger) *Module {
	return &Module{sweeper: sweeper, client: client, log: log}
}

// Name implements the http.Module interface.
func (m *Module) Name() string { return "scheduler" }

// RegisterRoutes mounts the sweep trigger.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Admin.POST("/sweep/run", m.runSweep)
}

func (m *Module) runSweep(c *gin.Context) {
	if m.client != nil {
		err := m.client.EnqueueLeadExpirySweep(c.Request.Context(), LeadExpirySweepPayload{TriggeredBy: "admin"})
		if err != nil {
			m.log.Error("enqueueing manual sweep", "error", err)
			httpkit.Error(c, http.StatusInternalServerError, "failed to enqueue sweep", nil)
			return
		}
		httpkit.JSON(c, http.StatusAccepted, gin.H{"status": "queued"})
		return
	}

	moved, err := m.sweeper.SweepOnce(c.Request.Context())
	if err != nil {
		m.log.Error("manual sweep failed", "error", err)
		httpkit.Error(c, http.StatusInternalServerError, "sweep failed", nil)
		return
	}
	httpkit.JSON(c, http.StatusOK, gin.H{"status": "completed", "moved": moved})
}
