package seed

import (
	"context"
	"errors"
	"time"

	"github.com/wirdapp/server/model"
	"github.com/wirdapp/server/streak"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Run populates demo data: three users, pairwise friendships with zeroed
// streaks, recitations for yesterday and today, then one batch recompute so
// the streak counters reflect the seeded activity. Every step is
// idempotent; existing rows are left alone.
func Run(ctx context.Context, db *gorm.DB, streakSvc *streak.Service, logger *zap.Logger) error {
	users := []struct {
		username string
		email    string
		password string
	}{
		{"alice", "alice@example.com", "password123"},
		{"bob", "bob@example.com", "password456"},
		{"charlie", "charlie@example.com", "password789"},
	}

	ids := make(map[string]int64, len(users))
	for _, u := range users {
		id, err := createUser(ctx, db, u.username, u.email, u.password)
		if err != nil {
			return err
		}
		ids[u.username] = id
	}

	pairs := [][2]string{
		{"alice", "bob"},
		{"alice", "charlie"},
		{"bob", "charlie"},
	}
	for _, p := range pairs {
		if err := createFriendship(ctx, db, ids[p[0]], ids[p[1]]); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	yesterday := now.Add(-24 * time.Hour)
	for _, u := range users {
		if err := createRecitation(ctx, db, ids[u.username], yesterday); err != nil {
			return err
		}
		if err := createRecitation(ctx, db, ids[u.username], now); err != nil {
			return err
		}
	}

	n, err := streakSvc.RecomputeAll(ctx)
	if err != nil {
		return err
	}
	logger.Info("demo data seeded",
		zap.Int("users", len(ids)), zap.Int("streaks", n))
	return nil
}

func createUser(ctx context.Context, db *gorm.DB, username, email, password string) (int64, error) {
	var existing model.User
	err := db.WithContext(ctx).Where("username = ?", username).First(&existing).Error
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}
	u := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		return 0, err
	}
	return u.ID, nil
}

func createFriendship(ctx context.Context, db *gorm.DB, a, b int64) error {
	u1, u2 := model.PairIDs(a, b)
	var existing model.Friendship
	err := db.WithContext(ctx).Where("user1_id = ? AND user2_id = ?", u1, u2).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if err := db.WithContext(ctx).Create(&model.Friendship{User1ID: u1, User2ID: u2}).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Create(&model.Streak{User1ID: u1, User2ID: u2, CurrentStreak: 0}).Error
}

func createRecitation(ctx context.Context, db *gorm.DB, userID int64, date time.Time) error {
	if err := db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("last_recitation_time", date).Error; err != nil {
		return err
	}

	var existing model.Recitation
	err := db.WithContext(ctx).Where("user_id = ? AND date = ?", userID, date).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return db.WithContext(ctx).Create(&model.Recitation{
		UserID:    userID,
		Date:      date,
		RecitedAt: date,
	}).Error
}
