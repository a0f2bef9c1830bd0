package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"securechat/backend/internal/models"
)

// GetMessages returns the conversation with :contactID, oldest first.
func (h *Handler) GetMessages(c *gin.Context) {
	me := currentUser(c).ID
	contactID := c.Param("contactID")
	if !h.canMessage(c, me, contactID) {
		return
	}

	msgs, err := h.Store.GetMessages(me, contactID)
	if err != nil {
		h.internalError(c, "load conversation", err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

type sendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// SendMessage appends a direct message. Messages to the AI go through
// StreamAIReply instead.
func (h *Handler) SendMessage(c *gin.Context) {
	me := currentUser(c).ID
	contactID := c.Param("contactID")
	if contactID == models.AIParticipantID {
		h.fail(c, http.StatusBadRequest, "error.bad_request")
		return
	}
	if !h.canMessage(c, me, contactID) {
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		h.fail(c, http.StatusBadRequest, "error.bad_request")
		return
	}

	msg := models.NewMessage(me, contactID, req.Content)
	if err := h.Store.AddMessage(msg); err != nil {
		h.internalError(c, "add message", err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}
