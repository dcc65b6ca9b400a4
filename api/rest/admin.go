package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wirdapp/server/model"
	"github.com/wirdapp/server/scheduler"
	"github.com/wirdapp/server/streak"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AdminHandler handles admin-only REST endpoints.
// Routes should be protected by AdminAuth middleware.
type AdminHandler struct {
	db        *gorm.DB
	streakSvc *streak.Service
	sched     *scheduler.Scheduler
	logger    *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(db *gorm.DB, streakSvc *streak.Service, sched *scheduler.Scheduler, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{db: db, streakSvc: streakSvc, sched: sched, logger: logger}
}

// Metrics returns server health metrics.
// GET /api/admin/metrics
func (h *AdminHandler) Metrics(c *gin.Context) {
	ctx := c.Request.Context()

	var users, friendships, pendingRequests, activeStreaks int64
	if err := h.db.WithContext(ctx).Model(&model.User{}).Count(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	if err := h.db.WithContext(ctx).Model(&model.Friendship{}).Count(&friendships).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	if err := h.db.WithContext(ctx).Model(&model.FriendRequest{}).
		Where("status = ?", model.RequestPending).
		Count(&pendingRequests).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	if err := h.db.WithContext(ctx).Model(&model.Streak{}).
		Where("current_streak > 0").
		Count(&activeStreaks).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users":            users,
		"friendships":      friendships,
		"pending_requests": pendingRequests,
		"active_streaks":   activeStreaks,
		"scheduler_tasks":  h.sched.ListTickers(),
	})
}

// RecomputeStreaks runs the batch streak reconciliation.
// POST /api/admin/streaks/recompute
func (h *AdminHandler) RecomputeStreaks(c *gin.Context) {
	n, err := h.streakSvc.RecomputeAll(c.Request.Context())
	if err != nil {
		h.logger.Error("admin streak recompute failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "recompute failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "recompute finished", "streaks": n})
}

// ListSchedulerTasks returns names of all registered ticker tasks.
// GET /api/admin/scheduler
func (h *AdminHandler) ListSchedulerTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.sched.ListTickers()})
}

// AdminAuth returns a middleware that checks the X-Admin-Key header.
// WARNING: if adminKey is empty all admin endpoints are disabled (503) so the
// server cannot be accidentally deployed without protection. Set a non-empty
// server.admin_key in config to enable admin routes.
func AdminAuth(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": "admin endpoints disabled: set server.admin_key in config"})
			return
		}
		key := c.GetHeader("X-Admin-Key")
		if key != adminKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
