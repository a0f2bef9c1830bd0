package handler

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"

	"securechat/backend/internal/config"
	"securechat/backend/internal/models"
)

const (
	scopeGate    = "gate"
	scopeSession = "session"
	issuer       = "securechat-service"

	ctxUserKey = "user"
)

// Claims are carried by both gate and session tokens.
type Claims struct {
	Scope  string      `json:"scope"`
	UserID string      `json:"user_id,omitempty"`
	Role   models.Role `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// generateJWT signs a token for scope, valid for ttl.
func (h *Handler) generateJWT(scope string, user *models.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if user != nil {
		claims.UserID = user.ID
		claims.Role = user.Role
		claims.Subject = user.ID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.JWTSecret)
}

// parseJWT validates the signature, expiry, issuer and scope of tokenString.
func (h *Handler) parseJWT(tokenString, scope string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return h.JWTSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}
	if claims.Scope != scope {
		return nil, errors.New("token scope mismatch")
	}
	return claims, nil
}

type gateRequest struct {
	Password string `json:"password" binding:"required"`
}

// PassGate checks the shared gatekeeper password and returns a short-lived gate token.
func (h *Handler) PassGate(c *gin.Context) {
	var req gateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "error.bad_request")
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.GatePassword)) != 1 {
		h.fail(c, http.StatusUnauthorized, "error.gate_denied")
		return
	}

	token, err := h.generateJWT(scopeGate, nil, config.GateTokenTTL)
	if err != nil {
		h.internalError(c, "sign gate token", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates against the user table, marks the user online and
// records where they logged in from.
func (h *Handler) Login(c *gin.Context) {
	if _, err := h.parseJWT(c.GetHeader("X-Gate-Token"), scopeGate); err != nil {
		h.fail(c, http.StatusForbidden, "error.gate_required")
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "error.bad_request")
		return
	}

	user, err := h.Store.FindUserByCredentials(req.Username, req.Password)
	if err != nil {
		h.internalError(c, "find user", err)
		return
	}
	if user == nil {
		h.fail(c, http.StatusUnauthorized, "error.invalid_credentials")
		return
	}

	loc := h.Geo.Lookup(c.Request.Context(), c.ClientIP())
	user, err = h.Store.ModifyUser(user.ID, func(u *models.User) {
		u.IsOnline = true
		u.LastIP = loc.IP
		u.Location = loc.Label
	})
	if err != nil {
		h.internalError(c, "update user on login", err)
		return
	}
	if user == nil {
		// Deleted while the location was being looked up.
		h.fail(c, http.StatusUnauthorized, "error.invalid_credentials")
		return
	}

	token, err := h.generateJWT(scopeSession, user, config.SessionTokenTTL)
	if err != nil {
		h.internalError(c, "sign session token", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user.Public()})
}

// Logout marks the user offline and forgets their AI conversation.
func (h *Handler) Logout(c *gin.Context) {
	id := currentUser(c).ID
	if _, err := h.Store.ModifyUser(id, func(u *models.User) { u.IsOnline = false }); err != nil {
		h.internalError(c, "update user on logout", err)
		return
	}
	h.AI.Drop(id)
	c.Status(http.StatusNoContent)
}

// RequireSession authenticates the session token from the Authorization
// header (or the "token" query parameter, for WebSocket clients) and loads
// the current user. Deleted users are rejected even with a valid token.
func (h *Handler) RequireSession(c *gin.Context) {
	tokenString := c.Query("token")
	if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		tokenString = authHeader[len("Bearer "):]
	}
	if tokenString == "" {
		h.fail(c, http.StatusUnauthorized, "error.unauthorized")
		return
	}

	claims, err := h.parseJWT(tokenString, scopeSession)
	if err != nil {
		h.fail(c, http.StatusUnauthorized, "error.unauthorized")
		return
	}

	user, err := h.Store.GetUser(claims.UserID)
	if err != nil {
		h.internalError(c, "load session user", err)
		return
	}
	if user == nil {
		h.fail(c, http.StatusUnauthorized, "error.unauthorized")
		return
	}

	c.Set(ctxUserKey, *user)
	c.Next()
}

// RequireAdmin must run after RequireSession.
func (h *Handler) RequireAdmin(c *gin.Context) {
	if !currentUser(c).IsAdmin() {
		h.fail(c, http.StatusForbidden, "error.forbidden")
		return
	}
	c.Next()
}

func currentUser(c *gin.Context) models.User {
	return c.MustGet(ctxUserKey).(models.User)
}
