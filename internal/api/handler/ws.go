package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"securechat/backend/internal/chathub"
	"securechat/backend/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The demo frontend may be served from another origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the request to a WebSocket that receives the
// conversation with ?contact= as the hub observes it.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	user := currentUser(c)
	contactID := c.Query("contact")
	if contactID == "" {
		h.fail(c, http.StatusBadRequest, "error.bad_request")
		return
	}
	if !h.canMessage(c, user.ID, contactID) {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WARNING: WebSocket upgrade failed for user %s: %v", user.ID, err)
		return
	}

	client := chathub.NewWebSocketClient(h.Hub, conn, user.ID, contactID)
	if !h.Hub.Register(client) {
		client.Close()
		conn.Close()
		return
	}
	client.Run()
}

// canMessage aborts the request unless userID may read and write the
// conversation with contactID. The AI pseudo-contact is always allowed.
func (h *Handler) canMessage(c *gin.Context, userID, contactID string) bool {
	if contactID == models.AIParticipantID {
		return true
	}
	ok, err := h.Friends.AreFriends(userID, contactID)
	if err != nil {
		h.internalError(c, "check friendship", err)
		return false
	}
	if !ok {
		h.fail(c, http.StatusForbidden, "error.not_friends")
		return false
	}
	return true
}
