package handler

import (
	"context"
	"errors"
	"net/http"

	"outreach_backend/internal/batches"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/httpkit"
	"outreach_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// ProposalReader is the read side of the batch service.
type ProposalReader interface {
	Get(ctx context.Context, id string) (batches.Proposal, error)
	List(ctx context.Context) ([]batches.Proposal, error)
}

// ActionRequest queues an operator decision outside Slack.
type ActionRequest struct {
	Kind     string `json:"kind" validate:"required,oneof=approve regenerate refine confirm cancel"`
	Version  int64  `json:"version" validate:"min=0"`
	Feedback string `json:"feedback" validate:"required_if=Kind refine,max=2000"`
}

// AdminHandler serves the operator batch API.
type AdminHandler struct {
	proposals ProposalReader
	queue     Enqueuer
	val       *validator.Validator
}

func NewAdminHandler(proposals ProposalReader, queue Enqueuer, val *validator.Validator) *AdminHandler {
	return &AdminHandler{proposals: proposals, queue: queue, val: val}
}

func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/actions", h.QueueAction)
}

func (h *AdminHandler) List(c *gin.Context) {
	list, err := h.proposals.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": list})
}

func (h *AdminHandler) Get(c *gin.Context) {
	p, err := h.proposals.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, batches.ErrProposalNotFound) {
		err = apperr.NotFound("batch proposal not found")
	}
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, p)
}

func (h *AdminHandler) QueueAction(c *gin.Context) {
	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	action := batches.Action{
		Kind:     batches.ActionKind(req.Kind),
		BatchID:  c.Param("id"),
		Version:  req.Version,
		Feedback: req.Feedback,
		User:     httpkit.GetIdentity(c).Subject(),
	}
	if err := h.queue.EnqueueAction(c.Request.Context(), action); err != nil {
		httpkit.HandleError(c, apperr.External("queue", err))
		return
	}
	httpkit.Accepted(c, gin.H{"status": "queued", "batch_id": action.BatchID, "kind": action.Kind})
}
