package models

import "time"

// InvitationStatus is the closed set of invitation states.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "PENDING"
	InvitationAccepted InvitationStatus = "ACCEPTED"
	InvitationDeclined InvitationStatus = "DECLINED"
)

// ProjectInvitation is an owner's invitation for a user to join a project.
// Unique per (project, invited_user); the row is deleted right after the
// invited user responds, freeing the slot for a future re-invite.
type ProjectInvitation struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	ProjectID     uint             `gorm:"uniqueIndex:idx_invitation_project_user;not null" json:"project_id"`
	Project       *Project         `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	InvitedByID   uint             `gorm:"not null" json:"invited_by_id"`
	InvitedBy     *User            `gorm:"foreignKey:InvitedByID" json:"invited_by,omitempty"`
	InvitedUserID uint             `gorm:"uniqueIndex:idx_invitation_project_user;not null" json:"invited_user_id"`
	InvitedUser   *User            `gorm:"foreignKey:InvitedUserID" json:"invited_user,omitempty"`
	Status        InvitationStatus `gorm:"size:20;default:PENDING" json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
	ResponseDate  *time.Time       `json:"response_date"`
}

func (ProjectInvitation) TableName() string { return "project_invitations" }
