package model

import "time"

// Streak tracks consecutive mutual recitations for a friend pair. It is
// keyed by the same canonical User1ID < User2ID ordering as Friendship and
// created alongside it with CurrentStreak 0.
type Streak struct {
	ID            int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	User1ID       int64 `gorm:"uniqueIndex:idx_streak_pair;not null" json:"user1_id"`
	User2ID       int64 `gorm:"uniqueIndex:idx_streak_pair;not null" json:"user2_id"`
	CurrentStreak int   `gorm:"default:0;not null" json:"current_streak"`
	// LastMutualRecitation is nil until the pair has recited together once.
	// CurrentStreak > 0 implies it is set.
	LastMutualRecitation *time.Time `json:"last_mutual_recitation"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
