package streak

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wirdapp/server/cache"
	"github.com/wirdapp/server/model"
	"github.com/wirdapp/server/social"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultWindow is how close together two recitations must land to count
// as mutual, and how long a streak survives without a new mutual recitation.
const DefaultWindow = 24 * time.Hour

// Service computes and mutates pairwise streak state from recitation events.
type Service struct {
	db     *gorm.DB
	social *social.Service
	pubsub cache.PubSub
	window time.Duration
	logger *zap.Logger

	pairLocks sync.Map // "u1:u2" → *sync.Mutex
}

// NewService creates a streak Service. pubsub may be nil; events are then
// not published. A window <= 0 falls back to DefaultWindow.
func NewService(db *gorm.DB, socialSvc *social.Service, pubsub cache.PubSub, window time.Duration, logger *zap.Logger) *Service {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Service{
		db:     db,
		social: socialSvc,
		pubsub: pubsub,
		window: window,
		logger: logger,
	}
}

// Window returns the configured mutual window.
func (svc *Service) Window() time.Duration {
	return svc.window
}

// View is one row of a user's streak listing.
type View struct {
	FriendID             int64      `json:"friend_id"`
	FriendUsername       string     `json:"friend_username,omitempty"`
	CurrentStreak        int        `json:"current_streak"`
	LastMutualRecitation *time.Time `json:"last_mutual_recitation,omitempty"`
}

// Event is published on every pair mutation.
type Event struct {
	UserID        int64 `json:"user_id"`
	FriendID      int64 `json:"friend_id"`
	CurrentStreak int   `json:"current_streak"`
}

// EventChannel is the pub/sub channel carrying streak events for a user.
func EventChannel(userID int64) string {
	return fmt.Sprintf("streaks:%d", userID)
}

// withinWindow reports whether two recitation instants are close enough,
// in either direction, to count as mutual.
func (svc *Service) withinWindow(a, b time.Time) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d <= svc.window
}

// lockPair serializes streak read-modify-write cycles per canonical pair.
// Two concurrent marks from both members of a pair would otherwise both
// read the old counter and lose an increment.
func (svc *Service) lockPair(u1, u2 int64) func() {
	key := fmt.Sprintf("%d:%d", u1, u2)
	v, _ := svc.pairLocks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Mark records a recitation for userID at the given instant and updates
// every pairwise streak the user participates in.
//
// Mutual detection compares the two users' latest recitation instants with
// a symmetric window; increment-vs-reset compares the new mark against the
// pair's last mutual recitation with a forward window. The two checks are
// deliberately distinct and must not be unified: a friend who recited 23h
// ago keeps the pair mutual even when the stored mutual stamp is older
// than the window.
//
// There is no rollback across pairs; a storage failure mid-way leaves
// earlier pair updates in place and is returned to the caller.
func (svc *Service) Mark(ctx context.Context, userID int64, at time.Time) (string, error) {
	// Step 1: the user's most recent activity, always overwritten.
	if err := svc.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("last_recitation_time", at).Error; err != nil {
		return "", err
	}

	// Step 2: append-only activity log, deduped on the exact instant.
	var existing model.Recitation
	err := svc.db.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, at).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rec := &model.Recitation{UserID: userID, Date: at, RecitedAt: at}
		if err := svc.db.WithContext(ctx).Create(rec).Error; err != nil {
			return "", err
		}
	} else if err != nil {
		return "", err
	}

	// Step 3: partition friends into mutual and non-mutual.
	friends, err := svc.social.Friends(ctx, userID)
	if err != nil {
		return "", err
	}

	for _, friend := range friends {
		mutual := friend.LastRecitationTime != nil &&
			svc.withinWindow(at, *friend.LastRecitationTime)
		if mutual {
			if err := svc.advancePair(ctx, userID, friend.ID, at); err != nil {
				return "", err
			}
		} else {
			if err := svc.resetPair(ctx, userID, friend.ID); err != nil {
				return "", err
			}
		}
	}

	return "Recitation marked for today.", nil
}

// advancePair increments or restarts the streak for a mutual pair and
// stamps the mutual recitation instant. A pair with no streak row yet
// (e.g. seeded friendships) lazily gets one starting at 1.
func (svc *Service) advancePair(ctx context.Context, userID, friendID int64, at time.Time) error {
	u1, u2 := model.PairIDs(userID, friendID)
	unlock := svc.lockPair(u1, u2)
	defer unlock()

	var streak model.Streak
	err := svc.db.WithContext(ctx).
		Where("user1_id = ? AND user2_id = ?", u1, u2).
		First(&streak).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		streak = model.Streak{
			User1ID:              u1,
			User2ID:              u2,
			CurrentStreak:        1,
			LastMutualRecitation: &at,
		}
		if err := svc.db.WithContext(ctx).Create(&streak).Error; err != nil {
			return err
		}
		svc.publish(ctx, userID, friendID, streak.CurrentStreak)
		return nil
	} else if err != nil {
		return err
	}

	newStreak := 1
	// Forward window from the stored mutual stamp, not the symmetric test
	// used for mutual detection.
	if streak.LastMutualRecitation != nil && at.Sub(*streak.LastMutualRecitation) <= svc.window {
		newStreak = streak.CurrentStreak + 1
	}
	if err := svc.db.WithContext(ctx).Model(&streak).Updates(map[string]interface{}{
		"current_streak":         newStreak,
		"last_mutual_recitation": at,
	}).Error; err != nil {
		return err
	}

	svc.logger.Debug("streak advanced",
		zap.Int64("user1", u1), zap.Int64("user2", u2), zap.Int("streak", newStreak))
	svc.publish(ctx, userID, friendID, newStreak)
	return nil
}

// resetPair zeroes the streak for a non-mutual pair. No streak row means
// nothing to reset.
func (svc *Service) resetPair(ctx context.Context, userID, friendID int64) error {
	u1, u2 := model.PairIDs(userID, friendID)
	unlock := svc.lockPair(u1, u2)
	defer unlock()

	var streak model.Streak
	err := svc.db.WithContext(ctx).
		Where("user1_id = ? AND user2_id = ?", u1, u2).
		First(&streak).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	} else if err != nil {
		return err
	}

	if err := svc.db.WithContext(ctx).Model(&streak).Updates(map[string]interface{}{
		"current_streak":         0,
		"last_mutual_recitation": nil,
	}).Error; err != nil {
		return err
	}
	svc.publish(ctx, userID, friendID, 0)
	return nil
}

// Streaks returns a view of every streak involving userID as of now.
// A streak whose last mutual recitation is older than the window is
// displayed as 0 without touching storage; the stored value is only
// corrected by the next Mark reset pass or the batch recompute.
func (svc *Service) Streaks(ctx context.Context, userID int64, now time.Time) ([]View, error) {
	var streaks []model.Streak
	if err := svc.db.WithContext(ctx).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Find(&streaks).Error; err != nil {
		return nil, err
	}

	views := make([]View, 0, len(streaks))
	for _, s := range streaks {
		friendID := s.User1ID
		if friendID == userID {
			friendID = s.User2ID
		}

		v := View{
			FriendID:             friendID,
			CurrentStreak:        s.CurrentStreak,
			LastMutualRecitation: s.LastMutualRecitation,
		}
		var friend model.User
		if err := svc.db.WithContext(ctx).First(&friend, friendID).Error; err == nil {
			v.FriendUsername = friend.Username
		}
		if s.LastMutualRecitation != nil && now.Sub(*s.LastMutualRecitation) > svc.window {
			v.CurrentStreak = 0 // expired for display only
		}
		views = append(views, v)
	}
	return views, nil
}

// RecomputeAll is the batch reconciliation over every streak row, used for
// maintenance and after seeding. Its rule compares the two members' latest
// recitation instants directly: both set and within the window of each
// other increments the streak and stamps the later of the two; anything
// else resets to zero. This is intentionally a different rule from the
// live per-mark path and the two are never merged.
func (svc *Service) RecomputeAll(ctx context.Context) (int, error) {
	var streaks []model.Streak
	if err := svc.db.WithContext(ctx).Find(&streaks).Error; err != nil {
		return 0, err
	}

	updated := 0
	for i := range streaks {
		s := &streaks[i]

		var u1, u2 model.User
		if err := svc.db.WithContext(ctx).First(&u1, s.User1ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return updated, err
		}
		if err := svc.db.WithContext(ctx).First(&u2, s.User2ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return updated, err
		}

		unlock := svc.lockPair(s.User1ID, s.User2ID)
		if u1.LastRecitationTime != nil && u2.LastRecitationTime != nil &&
			svc.withinWindow(*u1.LastRecitationTime, *u2.LastRecitationTime) {
			last := laterOf(*u1.LastRecitationTime, *u2.LastRecitationTime)
			err := svc.db.WithContext(ctx).Model(s).Updates(map[string]interface{}{
				"current_streak":         s.CurrentStreak + 1,
				"last_mutual_recitation": last,
			}).Error
			unlock()
			if err != nil {
				return updated, err
			}
		} else {
			err := svc.db.WithContext(ctx).Model(s).Updates(map[string]interface{}{
				"current_streak":         0,
				"last_mutual_recitation": nil,
			}).Error
			unlock()
			if err != nil {
				return updated, err
			}
		}
		updated++
	}

	svc.logger.Info("streak recompute finished", zap.Int("streaks", updated))
	return updated, nil
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

// publish sends a streak event to both members' channels, best-effort.
func (svc *Service) publish(ctx context.Context, userID, friendID int64, current int) {
	if svc.pubsub == nil {
		return
	}
	for _, pair := range [2][2]int64{{userID, friendID}, {friendID, userID}} {
		payload, _ := json.Marshal(Event{
			UserID:        pair[0],
			FriendID:      pair[1],
			CurrentStreak: current,
		})
		if err := svc.pubsub.Publish(ctx, EventChannel(pair[0]), string(payload)); err != nil {
			svc.logger.Warn("streak event publish failed", zap.Error(err))
		}
	}
}
