package handler

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"securechat/backend/internal/models"
)

// ResetAISession starts a fresh AI conversation for the caller and returns
// the localized greeting.
func (h *Handler) ResetAISession(c *gin.Context) {
	user := currentUser(c)
	if _, err := h.AI.Reset(c.Request.Context(), user.ID); err != nil {
		log.Printf("WARNING: AI session for %s unavailable: %v", user.ID, err)
		h.fail(c, http.StatusServiceUnavailable, "error.ai_unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"welcome": h.I18n.Format(h.lang(c), "ai.welcome", user.Username)})
}

type aiMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// StreamAIReply sends text to the caller's AI session and streams the reply
// back as server-sent events: "fragment" per chunk, then "done" or "error".
// Both turns are stored as messages with the AI participant.
func (h *Handler) StreamAIReply(c *gin.Context) {
	var req aiMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		h.fail(c, http.StatusBadRequest, "error.bad_request")
		return
	}

	user := currentUser(c)
	if !h.allowAI(user.ID) {
		h.fail(c, http.StatusTooManyRequests, "error.rate_limited")
		return
	}

	ctx := c.Request.Context()
	sess, err := h.AI.Get(ctx, user.ID)
	if err != nil {
		log.Printf("WARNING: AI session for %s unavailable: %v", user.ID, err)
		h.fail(c, http.StatusServiceUnavailable, "error.ai_unavailable")
		return
	}

	if err := h.Store.AddMessage(models.NewMessage(user.ID, models.AIParticipantID, req.Text)); err != nil {
		h.internalError(c, "store AI prompt", err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	var reply strings.Builder
	failed := false
	for fragment, err := range sess.Stream(ctx, req.Text) {
		if err != nil {
			log.Printf("ERROR: AI stream for %s: %v", user.ID, err)
			c.SSEvent("error", h.I18n.GetString(h.lang(c), "error.ai_stream"))
			c.Writer.Flush()
			failed = true
			break
		}
		reply.WriteString(fragment)
		c.SSEvent("fragment", fragment)
		c.Writer.Flush()
	}

	if reply.Len() > 0 {
		if err := h.Store.AddMessage(models.NewMessage(models.AIParticipantID, user.ID, reply.String())); err != nil {
			log.Printf("ERROR: failed to store AI reply for %s: %v", user.ID, err)
		}
	}
	if !failed {
		c.SSEvent("done", "")
		c.Writer.Flush()
	}
}
