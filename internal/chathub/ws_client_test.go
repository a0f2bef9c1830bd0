package chathub_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"securechat/backend/internal/chathub"
	"securechat/backend/internal/models"
	"securechat/backend/internal/storage"
)

// TestWebSocketClient_RoundTrip drives a real socket: history on connect, then a sent message echoed by the poll.
func TestWebSocketClient_RoundTrip(t *testing.T) {
	s := storage.NewStorageService(storage.NewMemoryKV(), "")
	require.NoError(t, s.AddMessage(models.Message{ID: "1", SenderID: "B", ReceiverID: "A", Content: "hi A", Timestamp: 1}))
	hub, _ := startHub(t, s, 50*time.Millisecond)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := chathub.NewWebSocketClient(hub, conn, "A", "B")
		if hub.Register(client) {
			client.Run()
		}
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first models.Message
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "hi A", first.Content)

	require.NoError(t, conn.WriteJSON(chathub.OutgoingFrame{Content: "   "}))
	require.NoError(t, conn.WriteJSON(chathub.OutgoingFrame{Content: "hi B"}))

	var echoed models.Message
	require.NoError(t, conn.ReadJSON(&echoed))
	assert.Equal(t, "hi B", echoed.Content)
	assert.Equal(t, "A", echoed.SenderID)
	assert.Equal(t, "B", echoed.ReceiverID)

	msgs, err := s.GetMessages("A", "B")
	require.NoError(t, err)
	assert.Len(t, msgs, 2, "blank frames are ignored")
}
