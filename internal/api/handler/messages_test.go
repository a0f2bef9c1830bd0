package handler_test

import (
	"fmt"
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
)

func TestMessages(t *testing.T) {
	env := newTestEnv(t, nil, 0)
	alice := env.addUser(t, "alice", "pw")
	bob := env.addUser(t, "bob", "pw")
	aliceTok := env.login(t, "alice", "pw")
	bobTok := env.login(t, "bob", "pw")

	t.Run("strangers cannot message", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/messages/"+bob.ID, aliceTok, map[string]string{"content": "hi"})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "You can only message friends.", errorMessage(t, w))

		w = env.do(t, http.MethodGet, "/api/messages/"+bob.ID, aliceTok, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin is everyone's friend", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/messages/"+models.DefaultAdminID, aliceTok, map[string]string{"content": "help"})
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("friends exchange messages", func(t *testing.T) {
		require.NoError(t, env.Store.SendFriendRequest(alice.ID, bob.ID))
		reqs, err := env.Store.GetFriendRequests(bob.ID)
		require.NoError(t, err)
		require.NoError(t, env.Store.AcceptFriendRequest(reqs[0].ID))

		w := env.do(t, http.MethodPost, "/api/messages/"+bob.ID, aliceTok, map[string]string{"content": "hello bob"})
		require.Equal(t, http.StatusCreated, w.Code)
		sent := decode[models.Message](t, w)
		assert.Equal(t, alice.ID, sent.SenderID)

		w = env.do(t, http.MethodPost, "/api/messages/"+alice.ID, bobTok, map[string]string{"content": "   "})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = env.do(t, http.MethodGet, "/api/messages/"+alice.ID, bobTok, nil)
		require.Equal(t, http.StatusOK, w.Code)
		msgs := decode[[]models.Message](t, w)
		require.Len(t, msgs, 1)
		assert.Equal(t, "hello bob", msgs[0].Content)
	})

	t.Run("AI conversation is readable but not writable here", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/messages/"+models.AIParticipantID, aliceTok, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = env.do(t, http.MethodPost, "/api/messages/"+models.AIParticipantID, aliceTok, map[string]string{"content": "x"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestServeWebSocket(t *testing.T) {
	env := newTestEnv(t, nil, 0)
	alice := env.addUser(t, "alice", "pw")
	aliceTok := env.login(t, "alice", "pw")
	require.NoError(t, env.Store.AddMessage(models.NewMessage(models.DefaultAdminID, alice.ID, "welcome")))

	srv := httptest.NewServer(env.Router)
	defer srv.Close()
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	t.Run("non-friend contact is refused", func(t *testing.T) {
		bob := env.addUser(t, "bob", "pw")
		_, resp, err := websocket.DefaultDialer.Dial(base+"?token="+aliceTok+"&contact="+bob.ID, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("polls the conversation", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(base+"?token="+aliceTok+"&contact="+models.DefaultAdminID, nil)
		require.NoError(t, err)
		defer conn.Close()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))

		var first models.Message
		require.NoError(t, conn.ReadJSON(&first))
		assert.Equal(t, "welcome", first.Content)

		require.NoError(t, conn.WriteJSON(chathub.OutgoingFrame{Content: "thanks"}))
		var echoed models.Message
		require.NoError(t, conn.ReadJSON(&echoed))
		assert.Equal(t, "thanks", echoed.Content)
		assert.Equal(t, alice.ID, echoed.SenderID)
	})

	t.Run("AI conversation is read-only", func(t *testing.T) {
		require.NoError(t, env.Store.AddMessage(models.NewMessage(models.AIParticipantID, alice.ID, "earlier reply")))

		conn, _, err := websocket.DefaultDialer.Dial(base+"?token="+aliceTok+"&contact="+models.AIParticipantID, nil)
		require.NoError(t, err)
		defer conn.Close()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))

		var first models.Message
		require.NoError(t, conn.ReadJSON(&first))
		assert.Equal(t, "earlier reply", first.Content)

		require.NoError(t, conn.WriteJSON(chathub.OutgoingFrame{Content: "smuggled"}))

		assert.Never(t, func() bool {
			msgs, err := env.Store.GetMessages(alice.ID, models.AIParticipantID)
			return err != nil || len(msgs) != 1
		}, 300*time.Millisecond, 20*time.Millisecond)
	})
}

// TestServeWebSocket_LongConversation verifies a conversation larger than the
// socket's send buffer arrives completely, newest message included.
func TestServeWebSocket_LongConversation(t *testing.T) {
	env := newTestEnv(t, nil, 0)
	alice := env.addUser(t, "alice", "pw")
	aliceTok := env.login(t, "alice", "pw")

	const total = 400
	db, err := env.Store.Load()
	require.NoError(t, err)
	for i := range total {
		msg := models.NewMessage(models.DefaultAdminID, alice.ID, fmt.Sprintf("message %d", i))
		msg.Timestamp = int64(i)
		db.Messages = append(db.Messages, msg)
	}
	require.NoError(t, env.Store.Save(db))

	srv := httptest.NewServer(env.Router)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + aliceTok + "&contact=" + models.DefaultAdminID

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var last models.Message
	for i := range total {
		require.NoError(t, conn.ReadJSON(&last), "message %d", i)
	}
	assert.Equal(t, fmt.Sprintf("message %d", total-1), last.Content)
}
