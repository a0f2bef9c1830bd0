package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"securechat/backend/internal/models"
)

func TestAdminUsers(t *testing.T) {
	env := newTestEnv(t, nil, 0)
	admin := env.login(t, "admin", "12345")

	t.Run("create", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/admin/users", admin, map[string]string{"username": "alice", "password": "pw"})

		require.Equal(t, http.StatusCreated, w.Code)
		resp := decode[struct {
			User    models.User `json:"user"`
			Message string      `json:"message"`
		}](t, w)
		assert.Equal(t, "alice", resp.User.Username)
		assert.Equal(t, models.RoleUser, resp.User.Role)
		assert.Equal(t, "User alice created.", resp.Message)
	})

	t.Run("duplicate username", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/admin/users", admin, map[string]string{"username": "alice", "password": "other"})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "Username taken", errorMessage(t, w))
		users, err := env.Store.GetUsers()
		require.NoError(t, err)
		assert.Len(t, users, 2)
	})

	t.Run("list", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/admin/users", admin, nil)

		require.Equal(t, http.StatusOK, w.Code)
		users := decode[[]models.User](t, w)
		assert.Len(t, users, 2)
		for _, u := range users {
			assert.Empty(t, u.Password)
		}
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		alice := env.login(t, "alice", "pw")
		w := env.do(t, http.MethodGet, "/api/admin/users", alice, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("cannot delete self", func(t *testing.T) {
		w := env.do(t, http.MethodDelete, "/api/admin/users/"+models.DefaultAdminID, admin, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("delete", func(t *testing.T) {
		users, err := env.Store.GetUsers()
		require.NoError(t, err)
		aliceID := users[1].ID

		w := env.do(t, http.MethodDelete, "/api/admin/users/"+aliceID, admin, nil)

		assert.Equal(t, http.StatusNoContent, w.Code)
		u, err := env.Store.GetUser(aliceID)
		require.NoError(t, err)
		assert.Nil(t, u)
	})
}

func TestListUsersExcludesSelf(t *testing.T) {
	env := newTestEnv(t, nil, 0)
	env.addUser(t, "alice", "pw")
	token := env.login(t, "alice", "pw")

	w := env.do(t, http.MethodGet, "/api/users", token, nil)

	require.Equal(t, http.StatusOK, w.Code)
	users := decode[[]models.User](t, w)
	require.Len(t, users, 1)
	assert.Equal(t, "admin", users[0].Username)
}

func TestUpdatePassword(t *testing.T) {
	env := newTestEnv(t, nil, 0)
	env.addUser(t, "alice", "old")
	token := env.login(t, "alice", "old")

	w := env.do(t, http.MethodPut, "/api/me/password", token, map[string]string{"password": "new"})

	require.Equal(t, http.StatusOK, w.Code)
	u, err := env.Store.FindUserByCredentials("alice", "new")
	require.NoError(t, err)
	assert.NotNil(t, u)
	assert.True(t, u.IsOnline, "password change keeps the session state")
}
