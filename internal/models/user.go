package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a platform user
type User struct {
	ID            int64     `gorm:"primaryKey;column:id"`
	PublicID      string    `gorm:"type:varchar(100);not null;uniqueIndex:users_ux_public_id;column:public_id"`
	Username      string    `gorm:"type:varchar(50);not null;uniqueIndex:users_ux_username;column:username"`
	Email         string    `gorm:"type:varchar(100);not null;uniqueIndex:users_ux_email;column:email"`
	PasswordHash  string    `gorm:"type:varchar(200);not null;column:password_hash"`
	UserType      string    `gorm:"type:varchar(20);not null;default:'farmer';column:user_type"`
	FullName      string    `gorm:"type:varchar(100);column:full_name"`
	ProfileImage  string    `gorm:"type:varchar(200);column:profile_image"`
	Bio           string    `gorm:"type:text;column:bio"`
	Location      string    `gorm:"type:varchar(100);column:location"`
	ExpertiseArea string    `gorm:"type:varchar(100);column:expertise_area"`
	IsActive      bool      `gorm:"not null;default:true;column:is_active"`
	CreatedAt     time.Time `gorm:"not null;column:created_at"`
	UpdatedAt     time.Time `gorm:"not null;column:updated_at"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns a public identifier if none is set
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.PublicID == "" {
		u.PublicID = uuid.NewString()
	}
	return nil
}

// User type constants
const (
	UserTypeFarmer   = "farmer"
	UserTypeExpert   = "expert"
	UserTypeSupplier = "supplier"
	UserTypeAdmin    = "admin"
)

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool {
	return u.UserType == UserTypeAdmin
}
