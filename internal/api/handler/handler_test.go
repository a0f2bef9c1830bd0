package handler_test

import (
	"bytes"
	"context"
	"errors"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"

	"securechat/backend/internal/api/handler"
	"securechat/backend/internal/assistant"
	"securechat/backend/internal/chathub"
	"securechat/backend/internal/geo"
	"securechat/backend/internal/localization"
	"securechat/backend/internal/models"
	"securechat/backend/internal/relations"
	"securechat/backend/internal/storage"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	testGatePassword = "open-sesame"
	testSecret       = "0123456789abcdef0123"
)

// fakeProvider replays fixed fragments, optionally followed by an error.
type fakeProvider struct {
	fragments []string
	err       error
}

func (p *fakeProvider) NewSession(context.Context) (assistant.Session, error) {
	return p, nil
}

func (p *fakeProvider) Stream(_ context.Context, _ string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var partial strings.Builder
		for _, f := range p.fragments {
			partial.WriteString(f)
			if !yield(f, nil) {
				return
			}
		}
		if p.err != nil {
			yield("", &assistant.StreamError{Partial: partial.String(), Err: p.err})
		}
	}
}

type testEnv struct {
	Router  *gin.Engine
	Store   *storage.Service
	Hub     *chathub.ManagerService
	Handler *handler.Handler
}

func newTestEnv(t *testing.T, ai assistant.Provider, aiPerMinute int) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := storage.NewStorageService(storage.NewMemoryKV(), "")
	i18n, err := localization.Default("en")
	require.NoError(t, err)

	hub := chathub.NewManagerService(store, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.Done()
	})

	h := handler.NewHandler(store, relations.NewResolver(store), hub, assistant.NewSessions(ai),
		geo.Static{IP: "203.0.113.9", Label: "Testville, Nowhere"}, i18n,
		handler.Options{GatePassword: testGatePassword, JWTSecret: testSecret, AIRequestsPerMinute: aiPerMinute})

	r := gin.New()
	h.Register(r)
	return &testEnv{Router: r, Store: store, Hub: hub, Handler: h}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) gateToken(t *testing.T) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/gate", "", map[string]string{"password": testGatePassword})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct{ Token string }
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/login", "",
		map[string]string{"username": username, "password": password},
		"X-Gate-Token", e.gateToken(t))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct{ Token string }
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

func (e *testEnv) addUser(t *testing.T, username, password string) models.User {
	t.Helper()
	u := models.NewUser(username, password)
	require.NoError(t, e.Store.AddUser(u))
	return u
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, w)["error"]
}

var errBoom = errors.New("boom")
