package model

import "time"

// User is a registered account.
type User struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:32;not null" json:"username"`
	Email        string    `gorm:"uniqueIndex;size:128;not null" json:"email"`
	PasswordHash string    `gorm:"size:64;not null" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	// LastRecitationTime is the instant of the user's most recent mark.
	// Nil until the user has recited at least once.
	LastRecitationTime *time.Time `json:"last_recitation_time"`
}
