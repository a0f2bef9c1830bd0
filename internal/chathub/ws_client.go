package chathub

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"securechat/backend/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

// OutgoingFrame is what a client writes to the socket to send a message.
type OutgoingFrame struct {
	Content string `json:"content"`
}

// WebSocketClient implements Client over a gorilla/websocket connection.
type WebSocketClient struct {
	ID        string
	UserID    string
	ContactID string
	Conn      *websocket.Conn
	Hub       *ManagerService
	Send      chan models.Message

	closeOnce sync.Once
}

// NewWebSocketClient builds a client watching the conversation between userID and contactID.
func NewWebSocketClient(hub *ManagerService, conn *websocket.Conn, userID, contactID string) *WebSocketClient {
	return &WebSocketClient{
		ID:        uuid.New().String(),
		UserID:    userID,
		ContactID: contactID,
		Conn:      conn,
		Hub:       hub,
		Send:      make(chan models.Message, sendBufferSize),
	}
}

func (c *WebSocketClient) GetID() string                         { return c.ID }
func (c *WebSocketClient) GetUserID() string                     { return c.UserID }
func (c *WebSocketClient) GetContactID() string                  { return c.ContactID }
func (c *WebSocketClient) GetSendChannel() chan<- models.Message { return c.Send }

// Run starts the read and write pumps.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close closes Send, which stops writePump and with it the connection.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() { close(c.Send) })
}

// readPump reads outgoing messages from the socket and hands them to the hub.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var frame OutgoingFrame
		if err := c.Conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error reading message: %v", err)
			}
			return
		}

		if strings.TrimSpace(frame.Content) == "" {
			continue
		}

		if !c.Hub.Submit(models.NewMessage(c.UserID, c.ContactID, frame.Content)) {
			return
		}
	}
}

// writePump writes messages from Send to the socket and keeps the connection alive with pings.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteJSON(message); err != nil {
				log.Printf("Error writing message to client %s: %v", c.UserID, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
