package models

import (
	"time"
)

// Follow represents a follow edge between two users. At most one row
// per (follower, following); self-follows are rejected before storage.
type Follow struct {
	ID          int64     `gorm:"primaryKey;column:id"`
	FollowerID  int64     `gorm:"not null;uniqueIndex:follows_ux_edge;column:follower_id"`
	FollowingID int64     `gorm:"not null;uniqueIndex:follows_ux_edge;column:following_id"`
	CreatedAt   time.Time `gorm:"not null;column:created_at"`

	// Relationships
	Follower  *User `gorm:"foreignKey:FollowerID;references:ID"`
	Following *User `gorm:"foreignKey:FollowingID;references:ID"`
}

// TableName specifies the table name for Follow
func (Follow) TableName() string {
	return "follows"
}
