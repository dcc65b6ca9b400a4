package rest

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wirdapp/server/cache"
	"github.com/wirdapp/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	rankingKey      = "ranking:streaks"
	defaultRankSize = 20
	maxRankSize     = 100
)

// RankingHandler serves the streak leaderboard, cached in a sorted set.
type RankingHandler struct {
	db     *gorm.DB
	cache  cache.Cache
	window time.Duration
	logger *zap.Logger
}

// NewRankingHandler creates a new RankingHandler.
func NewRankingHandler(db *gorm.DB, c cache.Cache, window time.Duration, logger *zap.Logger) *RankingHandler {
	return &RankingHandler{db: db, cache: c, window: window, logger: logger}
}

type rankingEntry struct {
	User1Username        string     `json:"user1_username"`
	User2Username        string     `json:"user2_username"`
	CurrentStreak        int        `json:"current_streak"`
	LastMutualRecitation *time.Time `json:"last_mutual_recitation,omitempty"`
}

// TopStreaks handles GET /api/ranking/streaks.
// Sorted-set members are streak row IDs scored by current_streak; rows gone
// stale since caching are filtered out at read time.
func (h *RankingHandler) TopStreaks(c *gin.Context) {
	limit := defaultRankSize
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		if n > maxRankSize {
			n = maxRankSize
		}
		limit = n
	}

	ctx := c.Request.Context()
	now := time.Now().UTC()

	members, err := h.cache.ZRevRange(ctx, rankingKey, 0, int64(limit-1))
	if err == nil && len(members) > 0 {
		entries, err := h.loadEntries(ctx, members, now)
		if err == nil {
			c.JSON(http.StatusOK, gin.H{"ranking": entries})
			return
		}
		h.logger.Warn("ranking cache enrich failed, falling back to db", zap.Error(err))
	}

	entries, err := h.refresh(ctx, limit, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ranking": entries})
}

// Refresh handles POST /api/admin/ranking/refresh.
func (h *RankingHandler) Refresh(c *gin.Context) {
	entries, err := h.refresh(c.Request.Context(), maxRankSize, time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ranking refreshed", "size": len(entries)})
}

// refresh rebuilds the sorted set from the database and returns the top
// entries.
func (h *RankingHandler) refresh(ctx context.Context, limit int, now time.Time) ([]rankingEntry, error) {
	var streaks []model.Streak
	if err := h.db.WithContext(ctx).
		Where("current_streak > 0").
		Order("current_streak DESC").
		Limit(limit).
		Find(&streaks).Error; err != nil {
		return nil, err
	}

	entries := make([]rankingEntry, 0, len(streaks))
	for _, s := range streaks {
		if h.expired(s, now) {
			continue
		}
		entry, ok := h.entryFor(ctx, s)
		if !ok {
			continue
		}
		entries = append(entries, entry)
		if err := h.cache.ZAdd(ctx, rankingKey, float64(s.CurrentStreak), strconv.FormatInt(s.ID, 10)); err != nil {
			h.logger.Warn("ranking cache update failed", zap.Error(err))
		}
	}
	return entries, nil
}

// loadEntries resolves cached streak row IDs back to display entries.
func (h *RankingHandler) loadEntries(ctx context.Context, members []string, now time.Time) ([]rankingEntry, error) {
	entries := make([]rankingEntry, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		var s model.Streak
		if err := h.db.WithContext(ctx).First(&s, id).Error; err != nil {
			continue
		}
		if s.CurrentStreak <= 0 || h.expired(s, now) {
			continue
		}
		entry, ok := h.entryFor(ctx, s)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (h *RankingHandler) expired(s model.Streak, now time.Time) bool {
	return s.LastMutualRecitation == nil || now.Sub(*s.LastMutualRecitation) > h.window
}

func (h *RankingHandler) entryFor(ctx context.Context, s model.Streak) (rankingEntry, bool) {
	var u1, u2 model.User
	if err := h.db.WithContext(ctx).First(&u1, s.User1ID).Error; err != nil {
		return rankingEntry{}, false
	}
	if err := h.db.WithContext(ctx).First(&u2, s.User2ID).Error; err != nil {
		return rankingEntry{}, false
	}
	return rankingEntry{
		User1Username:        u1.Username,
		User2Username:        u2.Username,
		CurrentStreak:        s.CurrentStreak,
		LastMutualRecitation: s.LastMutualRecitation,
	}, true
}
