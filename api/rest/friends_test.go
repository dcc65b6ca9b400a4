package rest_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sendRequest posts a friend request from the token holder to username and
// returns the pending request id as seen by the recipient.
func sendRequest(t *testing.T, e *testEnv, fromToken, toToken, toUsername string) int64 {
	t.Helper()
	w := e.do(http.MethodPost, "/api/friends/request",
		map[string]string{"username": toUsername},
		"Authorization", "Bearer "+fromToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(http.MethodGet, "/api/friends/requests", nil, "Authorization", "Bearer "+toToken)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	reqs := resp["requests"].([]interface{})
	require.NotEmpty(t, reqs)
	last := reqs[len(reqs)-1].(map[string]interface{})
	return int64(last["id"].(float64))
}

func TestFriendRequestFlow(t *testing.T) {
	e := newTestEnv(t)
	aliceTok := e.registerAndLogin(t, "alice")
	bobTok := e.registerAndLogin(t, "bob")

	reqID := sendRequest(t, e, aliceTok, bobTok, "bob")

	w := e.do(http.MethodPost, fmt.Sprintf("/api/friends/requests/%d/accept", reqID), nil,
		"Authorization", "Bearer "+bobTok)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Both users list each other.
	for tok, peer := range map[string]string{aliceTok: "bob", bobTok: "alice"} {
		w = e.do(http.MethodGet, "/api/friends", nil, "Authorization", "Bearer "+tok)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode(t, w)
		friends := resp["friends"].([]interface{})
		require.Len(t, friends, 1)
		assert.Equal(t, peer, friends[0].(map[string]interface{})["username"])
	}
}

func TestFriendRequest_UnknownUser(t *testing.T) {
	e := newTestEnv(t)
	tok := e.registerAndLogin(t, "alice")

	w := e.do(http.MethodPost, "/api/friends/request",
		map[string]string{"username": "ghost"},
		"Authorization", "Bearer "+tok)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFriendRequest_Self(t *testing.T) {
	e := newTestEnv(t)
	tok := e.registerAndLogin(t, "alice")

	w := e.do(http.MethodPost, "/api/friends/request",
		map[string]string{"username": "alice"},
		"Authorization", "Bearer "+tok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFriendRequest_Duplicate(t *testing.T) {
	e := newTestEnv(t)
	aliceTok := e.registerAndLogin(t, "alice")
	e.registerAndLogin(t, "bob")

	w := e.do(http.MethodPost, "/api/friends/request",
		map[string]string{"username": "bob"},
		"Authorization", "Bearer "+aliceTok)
	require.Equal(t, http.StatusCreated, w.Code)

	w = e.do(http.MethodPost, "/api/friends/request",
		map[string]string{"username": "bob"},
		"Authorization", "Bearer "+aliceTok)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestFriendRequest_AlreadyFriends(t *testing.T) {
	e := newTestEnv(t)
	aliceTok := e.registerAndLogin(t, "alice")
	bobTok := e.registerAndLogin(t, "bob")

	reqID := sendRequest(t, e, aliceTok, bobTok, "bob")
	w := e.do(http.MethodPost, fmt.Sprintf("/api/friends/requests/%d/accept", reqID), nil,
		"Authorization", "Bearer "+bobTok)
	require.Equal(t, http.StatusOK, w.Code)

	// Either direction now conflicts.
	w = e.do(http.MethodPost, "/api/friends/request",
		map[string]string{"username": "alice"},
		"Authorization", "Bearer "+bobTok)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestFriendRequest_Reject(t *testing.T) {
	e := newTestEnv(t)
	aliceTok := e.registerAndLogin(t, "alice")
	bobTok := e.registerAndLogin(t, "bob")

	reqID := sendRequest(t, e, aliceTok, bobTok, "bob")
	w := e.do(http.MethodPost, fmt.Sprintf("/api/friends/requests/%d/reject", reqID), nil,
		"Authorization", "Bearer "+bobTok)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(http.MethodGet, "/api/friends", nil, "Authorization", "Bearer "+aliceTok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["friends"])
}

func TestFriendRequest_DoubleAccept(t *testing.T) {
	e := newTestEnv(t)
	aliceTok := e.registerAndLogin(t, "alice")
	bobTok := e.registerAndLogin(t, "bob")

	reqID := sendRequest(t, e, aliceTok, bobTok, "bob")
	path := fmt.Sprintf("/api/friends/requests/%d/accept", reqID)

	w := e.do(http.MethodPost, path, nil, "Authorization", "Bearer "+bobTok)
	require.Equal(t, http.StatusOK, w.Code)
	w = e.do(http.MethodPost, path, nil, "Authorization", "Bearer "+bobTok)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestFriendRequest_RespondNotFound(t *testing.T) {
	e := newTestEnv(t)
	tok := e.registerAndLogin(t, "alice")

	w := e.do(http.MethodPost, "/api/friends/requests/9999/accept", nil,
		"Authorization", "Bearer "+tok)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFriends_RequiresAuth(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(http.MethodGet, "/api/friends", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
