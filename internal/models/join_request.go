package models

import "time"

// JoinRequestStatus is the closed set of join request states.
type JoinRequestStatus string

const (
	JoinRequestPending  JoinRequestStatus = "pending"
	JoinRequestAccepted JoinRequestStatus = "accepted"
	JoinRequestDenied   JoinRequestStatus = "denied"
)

// JoinRequest is a user's request to join a project. At most one non-denied
// request exists per (user, project); denied rows are purged when the user
// requests again.
type JoinRequest struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	UserID    uint              `gorm:"index;not null" json:"user_id"`
	User      *User             `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ProjectID uint              `gorm:"index;not null" json:"project_id"`
	Project   *Project          `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Status    JoinRequestStatus `gorm:"size:10;default:pending" json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}

func (JoinRequest) TableName() string { return "join_requests" }
