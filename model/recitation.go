package model

import "time"

// Recitation is one recorded mark. Rows are append-only; the streak logic
// reads User.LastRecitationTime, never this table.
type Recitation struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"index:idx_recitation_user_date;not null" json:"user_id"`
	Date      time.Time `gorm:"index:idx_recitation_user_date;not null" json:"date"`
	RecitedAt time.Time `gorm:"not null" json:"recited_at"`
}
