package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Community represents a named group with an admin owner
type Community struct {
	ID          int64     `gorm:"primaryKey;column:id"`
	PublicID    string    `gorm:"type:varchar(100);not null;uniqueIndex:communities_ux_public_id;column:public_id"`
	Name        string    `gorm:"type:varchar(100);not null;uniqueIndex:communities_ux_name;column:name"`
	Description string    `gorm:"type:text;column:description"`
	Category    string    `gorm:"type:varchar(50);index:communities_ix_category;column:category"`
	AdminID     int64     `gorm:"not null;column:admin_id"`
	ImageURL    string    `gorm:"type:varchar(200);column:image_url"`
	IsPublic    bool      `gorm:"not null;default:true;column:is_public"`
	CreatedAt   time.Time `gorm:"not null;column:created_at"`
	UpdatedAt   time.Time `gorm:"not null;column:updated_at"`

	// Relationships
	Admin *User `gorm:"foreignKey:AdminID;references:ID"`
}

// TableName specifies the table name for Community
func (Community) TableName() string {
	return "communities"
}

// BeforeCreate assigns a public identifier if none is set
func (c *Community) BeforeCreate(tx *gorm.DB) error {
	if c.PublicID == "" {
		c.PublicID = uuid.NewString()
	}
	return nil
}

// CommunityMember represents a membership edge. At most one row per
// (community, user).
type CommunityMember struct {
	ID          int64     `gorm:"primaryKey;column:id"`
	CommunityID int64     `gorm:"not null;uniqueIndex:community_members_ux_edge;column:community_id"`
	UserID      int64     `gorm:"not null;uniqueIndex:community_members_ux_edge;column:user_id"`
	JoinedAt    time.Time `gorm:"not null;autoCreateTime;column:joined_at"`

	// Relationships
	User *User `gorm:"foreignKey:UserID;references:ID"`
}

// TableName specifies the table name for CommunityMember
func (CommunityMember) TableName() string {
	return "community_members"
}
