package models

import "time"

// ProjectUpvote marks that a user has upvoted a project. The Project.Upvotes
// counter is updated in the same transaction as this row, so the two never
// drift apart.
type ProjectUpvote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_upvote_user_project;not null" json:"user_id"`
	ProjectID uint      `gorm:"uniqueIndex:idx_upvote_user_project;not null" json:"project_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (ProjectUpvote) TableName() string { return "project_upvotes" }
