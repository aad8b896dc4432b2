// Package handler exposes batch review over HTTP: the Slack interactivity
// endpoint and the operator API.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"outreach_backend/internal/batches"
	"outreach_backend/internal/notification"
	"outreach_backend/platform/httpkit"
	"outreach_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// Enqueuer hands an action to the background worker. Slack expects an
// answer within three seconds, so nothing is executed inline.
type Enqueuer interface {
	EnqueueAction(ctx context.Context, action batches.Action) error
}

// ModalOpener opens the refine feedback modal.
type ModalOpener interface {
	OpenView(ctx context.Context, triggerID string, view notification.View) error
}

type interactionPayload struct {
	Type        string `json:"type"`
	TriggerID   string `json:"trigger_id"`
	ResponseURL string `json:"response_url"`
	User        struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
	Actions []struct {
		ActionID string `json:"action_id"`
		BlockID  string `json:"block_id"`
		Value    string `json:"value"`
	} `json:"actions"`
	View struct {
		CallbackID      string `json:"callback_id"`
		PrivateMetadata string `json:"private_metadata"`
		State           struct {
			Values map[string]map[string]struct {
				Value string `json:"value"`
			} `json:"values"`
		} `json:"state"`
	} `json:"view"`
}

var buttonActions = map[string]batches.ActionKind{
	notification.ActionApproveTemplate:    batches.ActionApprove,
	notification.ActionRegenerateTemplate: batches.ActionRegenerate,
	notification.ActionConfirmBlast:       batches.ActionConfirm,
	notification.ActionCancelBlast:        batches.ActionCancel,
}

// SlackHandler receives block_actions and view_submission callbacks.
type SlackHandler struct {
	queue  Enqueuer
	modals ModalOpener
	log    *logger.Logger
}

func NewSlackHandler(queue Enqueuer, modals ModalOpener, log *logger.Logger) *SlackHandler {
	return &SlackHandler{queue: queue, modals: modals, log: log}
}

// RegisterRoutes mounts POST /actions. Signature checking belongs to the group.
func (h *SlackHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/actions", h.HandleInteraction)
}

// HandleInteraction parses the form-encoded payload and dispatches it.
func (h *SlackHandler) HandleInteraction(c *gin.Context) {
	raw := c.PostForm("payload")
	if raw == "" {
		httpkit.Error(c, http.StatusBadRequest, "missing payload", nil)
		return
	}
	var payload interactionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid payload", nil)
		return
	}

	switch payload.Type {
	case "block_actions":
		h.handleBlockActions(c, payload)
		c.Status(http.StatusOK)
	case "view_submission":
		h.handleViewSubmission(c, payload)
	default:
		c.Status(http.StatusOK)
	}
}

func (h *SlackHandler) handleBlockActions(c *gin.Context, payload interactionPayload) {
	ctx := c.Request.Context()
	for _, act := range payload.Actions {
		batchID := strings.TrimSpace(act.Value)
		version := notification.ParseVersion(act.BlockID)
		log := h.log.WithBatchID(batchID)

		if act.ActionID == notification.ActionRefineTemplate {
			view := notification.RefineModal(notification.RefineMetadata{
				BatchID:     batchID,
				Version:     version,
				ResponseURL: payload.ResponseURL,
			})
			if err := h.modals.OpenView(ctx, payload.TriggerID, view); err != nil {
				log.ExternalCallFailed("slack", "views.open", err)
			}
			continue
		}

		kind, ok := buttonActions[act.ActionID]
		if !ok {
			log.Warn("unknown slack action", "action_id", act.ActionID)
			continue
		}
		h.enqueue(ctx, batches.Action{
			Kind:        kind,
			BatchID:     batchID,
			Version:     version,
			ResponseURL: payload.ResponseURL,
			User:        payload.User.Username,
		})
	}
}

func (h *SlackHandler) handleViewSubmission(c *gin.Context, payload interactionPayload) {
	if payload.View.CallbackID != notification.RefineCallbackID {
		c.Status(http.StatusOK)
		return
	}
	var meta notification.RefineMetadata
	if err := json.Unmarshal([]byte(payload.View.PrivateMetadata), &meta); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid modal metadata", nil)
		return
	}
	feedback := strings.TrimSpace(payload.View.State.Values[notification.FeedbackBlockID][notification.FeedbackActionID].Value)
	if feedback == "" {
		c.JSON(http.StatusOK, gin.H{
			"response_action": "errors",
			"errors":          gin.H{notification.FeedbackBlockID: "Feedback is required"},
		})
		return
	}

	h.enqueue(c.Request.Context(), batches.Action{
		Kind:        batches.ActionRefine,
		BatchID:     meta.BatchID,
		Version:     meta.Version,
		Feedback:    feedback,
		ResponseURL: meta.ResponseURL,
		User:        payload.User.Username,
	})
	c.JSON(http.StatusOK, gin.H{"response_action": "clear"})
}

func (h *SlackHandler) enqueue(ctx context.Context, action batches.Action) {
	if err := action.Validate(); err != nil {
		h.log.Warn("dropping invalid slack action", "error", err)
		return
	}
	if err := h.queue.EnqueueAction(ctx, action); err != nil {
		h.log.WithBatchID(action.BatchID).Error("failed to enqueue batch action", "kind", action.Kind, "error", err)
	}
}
