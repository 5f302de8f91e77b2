package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Post represents a user-authored post
type Post struct {
	ID           int64      `gorm:"primaryKey;column:id"`
	PublicID     string     `gorm:"type:varchar(100);not null;uniqueIndex:posts_ux_public_id;column:public_id"`
	Title        string     `gorm:"type:varchar(200);not null;column:title"`
	Content      string     `gorm:"type:text;not null;column:content"`
	AuthorID     int64      `gorm:"not null;index:posts_ix_author;column:author_id"`
	Category     string     `gorm:"type:varchar(50);index:posts_ix_category;column:category"`
	Tags         StringList `gorm:"type:text;column:tags"`
	ImageURLs    StringList `gorm:"type:text;column:image_urls"`
	LikeCount    int64      `gorm:"not null;default:0;column:like_count"`
	CommentCount int64      `gorm:"not null;default:0;column:comment_count"`
	CreatedAt    time.Time  `gorm:"not null;index:posts_ix_created_at;column:created_at"`
	UpdatedAt    time.Time  `gorm:"not null;column:updated_at"`

	// Relationships
	Author *User `gorm:"foreignKey:AuthorID;references:ID"`
}

// TableName specifies the table name for Post
func (Post) TableName() string {
	return "posts"
}

// BeforeCreate assigns a public identifier if none is set
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.PublicID == "" {
		p.PublicID = uuid.NewString()
	}
	return nil
}

// Comment represents a comment on a post
type Comment struct {
	ID        int64     `gorm:"primaryKey;column:id"`
	PublicID  string    `gorm:"type:varchar(100);not null;uniqueIndex:comments_ux_public_id;column:public_id"`
	PostID    int64     `gorm:"not null;index:comments_ix_post;column:post_id"`
	UserID    int64     `gorm:"not null;column:user_id"`
	Content   string    `gorm:"type:text;not null;column:content"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
	UpdatedAt time.Time `gorm:"not null;column:updated_at"`

	// Relationships
	User *User `gorm:"foreignKey:UserID;references:ID"`
}

// TableName specifies the table name for Comment
func (Comment) TableName() string {
	return "comments"
}

// BeforeCreate assigns a public identifier if none is set
func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.PublicID == "" {
		c.PublicID = uuid.NewString()
	}
	return nil
}

// Like represents a like on a post. At most one row per (post, user).
type Like struct {
	ID        int64     `gorm:"primaryKey;column:id"`
	PostID    int64     `gorm:"not null;uniqueIndex:likes_ux_post_user;column:post_id"`
	UserID    int64     `gorm:"not null;uniqueIndex:likes_ux_post_user;column:user_id"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for Like
func (Like) TableName() string {
	return "likes"
}
