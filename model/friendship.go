package model

import "time"

// Friendship is an unordered pair of users stored canonically with
// User1ID < User2ID, so exactly one row represents the relationship
// regardless of which side looks it up.
type Friendship struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	User1ID   int64     `gorm:"uniqueIndex:idx_friendship_pair;not null" json:"user1_id"`
	User2ID   int64     `gorm:"uniqueIndex:idx_friendship_pair;not null" json:"user2_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// PairIDs returns the canonical ordering for an unordered user pair.
func PairIDs(a, b int64) (int64, int64) {
	if a < b {
		return a, b
	}
	return b, a
}
