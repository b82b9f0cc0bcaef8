package models

import "time"

// ProjectMembership records that a user belongs to a project. It doubles as
// the members relation and the "when did this person join" record; CreatedAt
// is the date added. The owner receives a row when the project is created.
type ProjectMembership struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_membership_user_project;not null" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ProjectID uint      `gorm:"uniqueIndex:idx_membership_user_project;not null" json:"project_id"`
	Project   *Project  `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	CreatedAt time.Time `json:"date_added"`
}

func (ProjectMembership) TableName() string { return "project_memberships" }
