package cycle

import (
	"context"

	apphttp "outreach_backend/internal/http"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Enqueuer hands work to the background worker.
type Enqueuer interface {
	EnqueueCycle(ctx context.Context, trigger string) error
	EnqueueCompanyInfoRefresh(ctx context.Context) error
}

// CacheInvalidator drops cached reference content.
type CacheInvalidator interface {
	Invalidate()
}

// Module exposes the manual cycle trigger and the company-info refresh.
type Module struct {
	queue       Enqueuer
	companyInfo CacheInvalidator
}

func NewModule(queue Enqueuer, companyInfo CacheInvalidator) *Module {
	return &Module{queue: queue, companyInfo: companyInfo}
}

func (m *Module) Name() string {
	return "cycle"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Admin.POST("/cycle", m.Trigger)
	ctx.Admin.POST("/company-info/refresh", m.RefreshCompanyInfo)
}

// Trigger queues a cycle. Repeated triggers while one is queued collapse.
func (m *Module) Trigger(c *gin.Context) {
	trigger := "api"
	if id := httpkit.GetIdentity(c); id.IsAuthenticated() {
		trigger += ":" + id.Subject()
	}
	if err := m.queue.EnqueueCycle(c.Request.Context(), trigger); err != nil {
		httpkit.HandleError(c, apperr.External("queue", err))
		return
	}
	httpkit.Accepted(c, gin.H{"status": "queued"})
}

// RefreshCompanyInfo drops the local cache and asks the worker, which
// generates batch content, to drop its copy too.
func (m *Module) RefreshCompanyInfo(c *gin.Context) {
	if m.companyInfo != nil {
		m.companyInfo.Invalidate()
	}
	if err := m.queue.EnqueueCompanyInfoRefresh(c.Request.Context()); err != nil {
		httpkit.HandleError(c, apperr.External("queue", err))
		return
	}
	httpkit.OK(c, gin.H{"status": "invalidated"})
}
