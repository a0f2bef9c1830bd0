package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"securechat/backend/internal/models"
)

func (h *Handler) GetFriends(c *gin.Context) {
	friends, err := h.Friends.GetFriends(currentUser(c).ID)
	if err != nil {
		h.internalError(c, "resolve friends", err)
		return
	}
	c.JSON(http.StatusOK, models.PublicUsers(friends))
}

// GetFriendRequests lists the pending requests addressed to the caller.
func (h *Handler) GetFriendRequests(c *gin.Context) {
	reqs, err := h.Store.GetFriendRequests(currentUser(c).ID)
	if err != nil {
		h.internalError(c, "list friend requests", err)
		return
	}
	c.JSON(http.StatusOK, reqs)
}

type friendRequestBody struct {
	To string `json:"to" binding:"required"`
}

// SendFriendRequest records a pending request to another existing user.
// Repeating a request is accepted silently.
func (h *Handler) SendFriendRequest(c *gin.Context) {
	var req friendRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "error.bad_request")
		return
	}

	me := currentUser(c)
	if req.To == me.ID {
		h.fail(c, http.StatusBadRequest, "error.bad_request")
		return
	}
	target, err := h.Store.GetUser(req.To)
	if err != nil {
		h.internalError(c, "load request target", err)
		return
	}
	if target == nil {
		h.fail(c, http.StatusNotFound, "error.not_found")
		return
	}

	if err := h.Store.SendFriendRequest(me.ID, target.ID); err != nil {
		h.internalError(c, "send friend request", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": h.I18n.GetString(h.lang(c), "friend.request_sent")})
}

// AcceptFriendRequest accepts a request. Only its addressee may do so; any
// other caller sees 404.
func (h *Handler) AcceptFriendRequest(c *gin.Context) {
	fr, err := h.Store.GetFriendRequest(c.Param("id"))
	if err != nil {
		h.internalError(c, "load friend request", err)
		return
	}
	if fr == nil || fr.ToUserID != currentUser(c).ID {
		h.fail(c, http.StatusNotFound, "error.not_found")
		return
	}

	if err := h.Store.AcceptFriendRequest(fr.ID); err != nil {
		h.internalError(c, "accept friend request", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}
