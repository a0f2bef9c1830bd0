package handler

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"securechat/backend/internal/assistant"
	"securechat/backend/internal/chathub"
	"securechat/backend/internal/geo"
	"securechat/backend/internal/localization"
	"securechat/backend/internal/relations"
	"securechat/backend/internal/storage"
)

// Handler holds the services behind the HTTP API.
type Handler struct {
	Store   storage.Storage
	Friends *relations.Resolver
	Hub     *chathub.ManagerService
	AI      *assistant.Sessions
	Geo     geo.Locator
	I18n    *localization.Localizer

	GatePassword string
	JWTSecret    []byte
	// AIRequestsPerMinute limits AI turns per user; 0 disables the limit.
	AIRequestsPerMinute int

	limitersMu sync.Mutex
	limiters   map[string]*rate.Limiter
}

// Options configures NewHandler.
type Options struct {
	GatePassword        string
	JWTSecret           string
	AIRequestsPerMinute int
}

func NewHandler(store storage.Storage, friends *relations.Resolver, hub *chathub.ManagerService,
	ai *assistant.Sessions, locator geo.Locator, i18n *localization.Localizer, opts Options) *Handler {
	return &Handler{
		Store:               store,
		Friends:             friends,
		Hub:                 hub,
		AI:                  ai,
		Geo:                 locator,
		I18n:                i18n,
		GatePassword:        opts.GatePassword,
		JWTSecret:           []byte(opts.JWTSecret),
		AIRequestsPerMinute: opts.AIRequestsPerMinute,
		limiters:            make(map[string]*rate.Limiter),
	}
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")
	api.POST("/gate", h.PassGate)
	api.POST("/login", h.Login)

	session := api.Group("", h.RequireSession)
	session.POST("/logout", h.Logout)
	session.GET("/me", h.GetMe)
	session.PUT("/me/password", h.UpdatePassword)
	session.GET("/users", h.ListUsers)

	session.GET("/friends", h.GetFriends)
	session.GET("/friends/requests", h.GetFriendRequests)
	session.POST("/friends/requests", h.SendFriendRequest)
	session.POST("/friends/requests/:id/accept", h.AcceptFriendRequest)

	session.GET("/messages/:contactID", h.GetMessages)
	session.POST("/messages/:contactID", h.SendMessage)

	session.POST("/ai/session", h.ResetAISession)
	session.POST("/ai/messages", h.StreamAIReply)

	admin := session.Group("/admin", h.RequireAdmin)
	admin.GET("/users", h.AdminListUsers)
	admin.POST("/users", h.AdminCreateUser)
	admin.DELETE("/users/:id", h.AdminDeleteUser)

	r.GET("/ws", h.RequireSession, h.ServeWebSocket)
}

func (h *Handler) lang(c *gin.Context) string {
	return h.I18n.Match(c.GetHeader("Accept-Language"))
}

// fail aborts with a localized {"error": ...} body.
func (h *Handler) fail(c *gin.Context, status int, key string) {
	c.AbortWithStatusJSON(status, gin.H{"error": h.I18n.GetString(h.lang(c), key)})
}

// internalError logs err and answers 500.
func (h *Handler) internalError(c *gin.Context, what string, err error) {
	log.Printf("ERROR: %s: %v", what, err)
	h.fail(c, http.StatusInternalServerError, "error.internal")
}

// allowAI reports whether userID may start another AI turn now.
func (h *Handler) allowAI(userID string) bool {
	if h.AIRequestsPerMinute <= 0 {
		return true
	}
	h.limitersMu.Lock()
	defer h.limitersMu.Unlock()

	l, ok := h.limiters[userID]
	if !ok {
		l = rate.NewLimiter(rate.Every(time.Minute/time.Duration(h.AIRequestsPerMinute)), h.AIRequestsPerMinute)
		h.limiters[userID] = l
	}
	return l.Allow()
}
