package handler

import (
	apphttp "outreach_backend/internal/http"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/validator"
)

// Module mounts the batch approval endpoints: Slack interactivity and the
// operator batch API.
type Module struct {
	slack *SlackHandler
	admin *AdminHandler
}

func NewModule(proposals ProposalReader, queue Enqueuer, modals ModalOpener, val *validator.Validator, log *logger.Logger) *Module {
	return &Module{
		slack: NewSlackHandler(queue, modals, log),
		admin: NewAdminHandler(proposals, queue, val),
	}
}

func (m *Module) Name() string {
	return "batches"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.slack.RegisterRoutes(ctx.Slack)
	m.admin.RegisterRoutes(ctx.Admin.Group("/batches"))
}
