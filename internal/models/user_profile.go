package models

import "time"

// UserProfile holds free-form profile fields, one per user. Profiles are
// created explicitly at the user-creation boundary rather than by a
// persistence-layer hook.
type UserProfile struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	User            *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Bio             string    `gorm:"type:text" json:"bio"`
	Specializations string    `gorm:"size:200" json:"specializations"`
	LinkedIn        string    `gorm:"size:200" json:"linkedin"`
	GitHub          string    `gorm:"size:200" json:"github"`
	Twitter         string    `gorm:"size:200" json:"twitter"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (UserProfile) TableName() string { return "user_profiles" }
