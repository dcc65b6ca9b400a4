package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wirdapp/server/audit"
	mw "github.com/wirdapp/server/middleware"
	"github.com/wirdapp/server/streak"
)

// StreakHandler handles recitation marking and streak listing.
type StreakHandler struct {
	svc   *streak.Service
	audit *audit.Service
}

// NewStreakHandler creates a new StreakHandler.
func NewStreakHandler(svc *streak.Service, auditSvc *audit.Service) *StreakHandler {
	return &StreakHandler{svc: svc, audit: auditSvc}
}

// Mark handles POST /api/recitations.
func (h *StreakHandler) Mark(c *gin.Context) {
	userID := mw.GetUserID(c)

	start := time.Now()
	msg, err := h.svc.Mark(c.Request.Context(), userID, time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	h.audit.Log(audit.Entry{
		TraceID:    mw.GetTraceID(c),
		UserID:     &userID,
		Action:     "recitations.mark",
		IP:         c.ClientIP(),
		DurationMs: int(time.Since(start).Milliseconds()),
	})
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// List handles GET /api/streaks.
func (h *StreakHandler) List(c *gin.Context) {
	userID := mw.GetUserID(c)
	views, err := h.svc.Streaks(c.Request.Context(), userID, time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"streaks": views})
}
