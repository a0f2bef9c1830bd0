package handler

import (
	"errors"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"securechat/backend/internal/models"
	"securechat/backend/internal/storage"
)

func (h *Handler) GetMe(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c).Public())
}

type passwordRequest struct {
	Password string `json:"password" binding:"required"`
}

// UpdatePassword changes the caller's own password.
func (h *Handler) UpdatePassword(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "error.bad_request")
		return
	}

	_, err := h.Store.ModifyUser(currentUser(c).ID, func(u *models.User) { u.Password = req.Password })
	if err != nil {
		h.internalError(c, "update password", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": h.I18n.GetString(h.lang(c), "user.password_updated")})
}

// ListUsers returns everyone except the caller, for the "add friend" picker.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.Store.GetUsers()
	if err != nil {
		h.internalError(c, "list users", err)
		return
	}
	me := currentUser(c).ID
	users = slices.DeleteFunc(users, func(u models.User) bool { return u.ID == me })
	c.JSON(http.StatusOK, models.PublicUsers(users))
}

func (h *Handler) AdminListUsers(c *gin.Context) {
	users, err := h.Store.GetUsers()
	if err != nil {
		h.internalError(c, "list users", err)
		return
	}
	c.JSON(http.StatusOK, models.PublicUsers(users))
}

type createUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AdminCreateUser adds a USER account. Duplicate usernames answer 409.
func (h *Handler) AdminCreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "error.bad_request")
		return
	}

	user := models.NewUser(req.Username, req.Password)
	if err := user.Validate(); err != nil {
		h.fail(c, http.StatusBadRequest, "error.bad_request")
		return
	}

	err := h.Store.AddUser(user)
	if errors.Is(err, storage.ErrUsernameTaken) {
		h.fail(c, http.StatusConflict, "error.username_taken")
		return
	}
	if err != nil {
		h.internalError(c, "add user", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":    user.Public(),
		"message": h.I18n.Format(h.lang(c), "user.created", user.Username),
	})
}

// AdminDeleteUser removes an account. Admins cannot delete themselves.
func (h *Handler) AdminDeleteUser(c *gin.Context) {
	id := c.Param("id")
	if id == currentUser(c).ID {
		h.fail(c, http.StatusBadRequest, "error.cannot_delete_self")
		return
	}
	if err := h.Store.DeleteUser(id); err != nil {
		h.internalError(c, "delete user", err)
		return
	}
	h.AI.Drop(id)
	c.Status(http.StatusNoContent)
}
