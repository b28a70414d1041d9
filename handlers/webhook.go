package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bookiovoice/models"
	"bookiovoice/services/voice"
	"bookiovoice/utils"
)

// maxBodyBytes caps webhook bodies; tool calls are a handful of fields.
const maxBodyBytes = 64 << 10

// Dispatcher answers a tool call; *assistant.Assistant implements it.
type Dispatcher interface {
	Handle(ctx context.Context, req models.ToolRequest) models.ToolReply
}

type WebhookHandler struct {
	dispatcher Dispatcher
	voice      voice.Composer
}

func NewWebhookHandler(d Dispatcher, v voice.Composer) *WebhookHandler {
	return &WebhookHandler{dispatcher: d, voice: v}
}

// read decodes the body; on failure it has already written a 400 the agent
// can speak, as plain text when plain is set.
func (h *WebhookHandler) read(c *gin.Context, plain bool) (models.ToolRequest, bool) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err == nil {
		var req models.ToolRequest
		if req, err = decodeToolRequest(body); err == nil {
			return req, true
		}
	}
	if plain {
		getLogger(c).Warn("Invalid webhook payload", zap.Error(err))
		c.String(http.StatusBadRequest, h.voice.RepeatRequest())
		c.Abort()
	} else {
		utils.JSONError(c, http.StatusBadRequest, h.voice.RepeatRequest(), err.Error())
	}
	return models.ToolRequest{}, false
}

// ElevenLabs answers with {response, success, ...data}.
func (h *WebhookHandler) ElevenLabs(c *gin.Context) {
	req, ok := h.read(c, false)
	if !ok {
		return
	}
	reply := h.dispatcher.Handle(c.Request.Context(), req)
	getLogger(c).Debug("tool call answered",
		zap.String("action", req.ActionName()), zap.Bool("success", reply.Success))
	c.JSON(http.StatusOK, reply.JSON())
}

// ElevenLabsText answers with the response sentence only, as text/plain.
func (h *WebhookHandler) ElevenLabsText(c *gin.Context) {
	req, ok := h.read(c, true)
	if !ok {
		return
	}
	reply := h.dispatcher.Handle(c.Request.Context(), req)
	c.String(http.StatusOK, reply.Response)
}

// Tool takes the action from the path, e.g. /api/webhook/tools/book_appointment.
func (h *WebhookHandler) Tool(c *gin.Context) {
	req, ok := h.read(c, false)
	if !ok {
		return
	}
	req.Action = c.Param("tool")
	reply := h.dispatcher.Handle(c.Request.Context(), req)
	c.JSON(http.StatusOK, reply.JSON())
}

// Health reports the latest dependency snapshot; 503 when degraded.
func Health(monitor *utils.HealthMonitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		st := monitor.Status()
		status, code := "ok", http.StatusOK
		if !st.CheckedAt.IsZero() && !st.Healthy() {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "checks": st})
	}
}
