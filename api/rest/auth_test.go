package rest_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(http.MethodPost, "/api/auth/register", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestRegister_DuplicateUsername(t *testing.T) {
	e := newTestEnv(t)
	e.registerAndLogin(t, "alice")

	w := e.do(http.MethodPost, "/api/auth/register", map[string]string{
		"username": "alice",
		"email":    "other@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	e := newTestEnv(t)
	e.registerAndLogin(t, "alice")

	w := e.do(http.MethodPost, "/api/auth/register", map[string]string{
		"username": "alice2",
		"email":    "alice@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegister_InvalidBody(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(http.MethodPost, "/api/auth/register", map[string]string{
		"username": "x", // too short
		"email":    "not-an-email",
		"password": "123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin(t *testing.T) {
	e := newTestEnv(t)
	token := e.registerAndLogin(t, "alice")
	assert.NotEmpty(t, token)
}

func TestLogin_WrongPassword(t *testing.T) {
	e := newTestEnv(t)
	e.registerAndLogin(t, "bob")

	w := e.do(http.MethodPost, "/api/auth/login", map[string]string{
		"username": "bob",
		"password": "wrongpassword",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_UnknownUser(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(http.MethodPost, "/api/auth/login", map[string]string{
		"username": "ghost",
		"password": "password123",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogout(t *testing.T) {
	e := newTestEnv(t)
	token := e.registerAndLogin(t, "dave")

	w := e.do(http.MethodPost, "/api/auth/logout", nil, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)

	// Session removed: the same token is rejected now.
	w = e.do(http.MethodPost, "/api/auth/logout", nil, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefresh(t *testing.T) {
	e := newTestEnv(t)
	token := e.registerAndLogin(t, "erin")

	w := e.do(http.MethodPost, "/api/auth/refresh", nil, "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode(t, w)
	newToken := resp["token"].(string)
	assert.NotEmpty(t, newToken)

	// Old token invalidated, new one works.
	w = e.do(http.MethodPost, "/api/auth/logout", nil, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = e.do(http.MethodPost, "/api/auth/logout", nil, "Authorization", "Bearer "+newToken)
	assert.Equal(t, http.StatusOK, w.Code)
}
