package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wirdapp/server/audit"
	mw "github.com/wirdapp/server/middleware"
	"github.com/wirdapp/server/social"
)

// FriendsHandler handles the social-graph REST endpoints.
type FriendsHandler struct {
	svc   *social.Service
	audit *audit.Service
}

// NewFriendsHandler creates a new FriendsHandler.
func NewFriendsHandler(svc *social.Service, auditSvc *audit.Service) *FriendsHandler {
	return &FriendsHandler{svc: svc, audit: auditSvc}
}

// List handles GET /api/friends.
func (h *FriendsHandler) List(c *gin.Context) {
	userID := mw.GetUserID(c)
	friends, err := h.svc.Friends(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	type friendInfo struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	}
	result := make([]friendInfo, len(friends))
	for i, f := range friends {
		result[i] = friendInfo{ID: f.ID, Username: f.Username}
	}
	c.JSON(http.StatusOK, gin.H{"friends": result})
}

// SendRequest handles POST /api/friends/request.
func (h *FriendsHandler) SendRequest(c *gin.Context) {
	userID := mw.GetUserID(c)

	var req struct {
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.svc.SendFriendRequest(c.Request.Context(), userID, req.Username)
	switch {
	case errors.Is(err, social.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	case errors.Is(err, social.ErrSelfRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": "you cannot send a friend request to yourself"})
		return
	case errors.Is(err, social.ErrAlreadyFriends):
		c.JSON(http.StatusConflict, gin.H{"error": "you are already friends"})
		return
	case errors.Is(err, social.ErrRequestPending):
		c.JSON(http.StatusConflict, gin.H{"error": "friend request already sent"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	h.audit.Log(audit.Entry{
		TraceID: mw.GetTraceID(c),
		UserID:  &userID,
		Action:  "friends.request",
		Request: gin.H{"username": req.Username},
		IP:      c.ClientIP(),
	})
	c.JSON(http.StatusCreated, gin.H{"message": "Friend request sent."})
}

// ListRequests handles GET /api/friends/requests.
func (h *FriendsHandler) ListRequests(c *gin.Context) {
	userID := mw.GetUserID(c)
	requests, err := h.svc.IncomingRequests(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// Accept handles POST /api/friends/requests/:id/accept.
func (h *FriendsHandler) Accept(c *gin.Context) {
	h.respond(c, true)
}

// Reject handles POST /api/friends/requests/:id/reject.
func (h *FriendsHandler) Reject(c *gin.Context) {
	h.respond(c, false)
}

func (h *FriendsHandler) respond(c *gin.Context, accept bool) {
	userID := mw.GetUserID(c)
	requestID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	err = h.svc.Respond(c.Request.Context(), requestID, accept)
	switch {
	case errors.Is(err, social.ErrRequestNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "friend request not found"})
		return
	case errors.Is(err, social.ErrRequestResolved):
		c.JSON(http.StatusConflict, gin.H{"error": "friend request already responded to"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	action := "friends.reject"
	message := "Friend request rejected."
	if accept {
		action = "friends.accept"
		message = "Friend request accepted."
	}
	h.audit.Log(audit.Entry{
		TraceID: mw.GetTraceID(c),
		UserID:  &userID,
		Action:  action,
		Request: gin.H{"request_id": requestID},
		IP:      c.ClientIP(),
	})
	c.JSON(http.StatusOK, gin.H{"message": message})
}
