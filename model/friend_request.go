package model

import "time"

// Friend request lifecycle states. A request is mutated exactly once,
// pending → accepted or pending → rejected.
const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
	RequestRejected = "rejected"
)

// FriendRequest is a directed invitation from one user to another.
type FriendRequest struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	FromUserID int64     `gorm:"index:idx_request_pair;not null" json:"from_user_id"`
	ToUserID   int64     `gorm:"index:idx_request_pair;not null" json:"to_user_id"`
	Status     string    `gorm:"size:16;default:'pending';not null" json:"status"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}
