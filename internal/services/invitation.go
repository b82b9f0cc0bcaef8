package services

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/peerhub/peerhub/internal/models"
	"github.com/peerhub/peerhub/pkg/response"
)

// InvitationService handles owner-initiated invitations. An invitation row
// exists only while it awaits an answer; responding removes it, so the same
// user can be re-invited later.
type InvitationService struct {
	db *gorm.DB
}

func NewInvitationService(db *gorm.DB) *InvitationService {
	return &InvitationService{db: db}
}

// Invite sends an invitation from the project owner to another user.
func (s *InvitationService) Invite(p Principal, projectID, invitedUserID uint) (*models.ProjectInvitation, error) {
	var project models.Project
	err := s.db.Where("id = ? AND owner_id = ?", projectID, p.UserID).
		First(&project).Error
	if err != nil {
		return nil, errProjectNotFound(err)
	}

	var invited models.User
	if err := s.db.First(&invited, invitedUserID).Error; err != nil {
		return nil, errUserNotFound(err)
	}
	if invited.ID == p.UserID {
		return nil, response.NewBadRequest("you cannot invite yourself")
	}

	var invitation *models.ProjectInvitation
	err = s.db.Transaction(func(tx *gorm.DB) error {
		isMember, err := userIsMember(tx, invited.ID, project.ID)
		if err != nil {
			return err
		}
		if isMember {
			return response.NewConflict(
				fmt.Sprintf("%s is already a member of this project", invited.Username))
		}

		var existing int64
		if err := tx.Model(&models.ProjectInvitation{}).
			Where("project_id = ? AND invited_user_id = ? AND status = ?",
				project.ID, invited.ID, models.InvitationPending).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return response.NewConflict(
				fmt.Sprintf("an invitation has already been sent to %s", invited.Username))
		}

		invitation = &models.ProjectInvitation{
			ProjectID:     project.ID,
			InvitedByID:   p.UserID,
			InvitedUserID: invited.ID,
			Status:        models.InvitationPending,
		}
		return tx.Create(invitation).Error
	})
	if err != nil {
		return nil, err
	}
	return invitation, nil
}

// InvitationResponse is the outcome reported after a user answers an
// invitation.
type InvitationResponse struct {
	ProjectID uint                    `json:"project_id"`
	Status    models.InvitationStatus `json:"status"`
}

// Respond records the invited user's answer. Accepting makes them a member
// and settles any pending join request they had for the same project. The
// invitation row itself is deleted either way; only pending invitations
// addressed to p can be answered.
func (s *InvitationService) Respond(p Principal, invitationID uint, accept bool) (*InvitationResponse, error) {
	var invitation models.ProjectInvitation
	err := s.db.Where("id = ? AND invited_user_id = ? AND status = ?",
		invitationID, p.UserID, models.InvitationPending).
		First(&invitation).Error
	if err != nil {
		return nil, notFoundOr(err, "invitation not found")
	}

	status := models.InvitationDeclined
	if accept {
		status = models.InvitationAccepted
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if accept {
			membership := models.ProjectMembership{
				UserID:    p.UserID,
				ProjectID: invitation.ProjectID,
			}
			if err := tx.Where("user_id = ? AND project_id = ?", p.UserID, invitation.ProjectID).
				FirstOrCreate(&membership).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.JoinRequest{}).
				Where("user_id = ? AND project_id = ? AND status = ?",
					p.UserID, invitation.ProjectID, models.JoinRequestPending).
				Update("status", models.JoinRequestAccepted).Error; err != nil {
				return err
			}
		}

		return tx.Delete(&invitation).Error
	})
	if err != nil {
		return nil, err
	}

	return &InvitationResponse{ProjectID: invitation.ProjectID, Status: status}, nil
}

// PendingForUser lists the open invitations addressed to p.
func (s *InvitationService) PendingForUser(p Principal) ([]models.ProjectInvitation, error) {
	var invitations []models.ProjectInvitation
	err := s.db.Preload("Project").Preload("InvitedBy").
		Where("invited_user_id = ? AND status = ?", p.UserID, models.InvitationPending).
		Order("created_at DESC").
		Find(&invitations).Error
	return invitations, err
}

// PendingForProject lists the open invitations the owner has sent on a
// project.
func (s *InvitationService) PendingForProject(p Principal, projectID uint) ([]models.ProjectInvitation, error) {
	var project models.Project
	err := s.db.Where("id = ? AND owner_id = ?", projectID, p.UserID).
		First(&project).Error
	if err != nil {
		return nil, errProjectNotFound(err)
	}

	var invitations []models.ProjectInvitation
	err = s.db.Preload("InvitedUser").
		Where("project_id = ? AND status = ?", project.ID, models.InvitationPending).
		Order("created_at DESC").
		Find(&invitations).Error
	return invitations, err
}
