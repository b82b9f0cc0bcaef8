package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/peerhub/peerhub/internal/models"
	"github.com/peerhub/peerhub/pkg/response"
)

// MembershipService handles join requests and membership withdrawal. All
// transitions run in a transaction so concurrent decisions on the same
// request cannot double-apply.
type MembershipService struct {
	db *gorm.DB
}

func NewMembershipService(db *gorm.DB) *MembershipService {
	return &MembershipService{db: db}
}

// Request files a pending join request from p to the project. A previously
// denied request does not block re-applying; the denied row is purged first.
func (s *MembershipService) Request(p Principal, projectID uint) error {
	var project models.Project
	if err := s.db.First(&project, projectID).Error; err != nil {
		return errProjectNotFound(err)
	}
	if project.OwnerID == p.UserID {
		return response.NewConflict("you are the owner of this project")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		isMember, err := userIsMember(tx, p.UserID, project.ID)
		if err != nil {
			return err
		}
		if isMember {
			return response.NewConflict("you are already a member of this project")
		}

		if err := tx.Where("user_id = ? AND project_id = ? AND status = ?",
			p.UserID, project.ID, models.JoinRequestDenied).
			Delete(&models.JoinRequest{}).Error; err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&models.JoinRequest{}).
			Where("user_id = ? AND project_id = ?", p.UserID, project.ID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return response.NewConflict("you have already requested to join this project")
		}

		return tx.Create(&models.JoinRequest{
			UserID:    p.UserID,
			ProjectID: project.ID,
			Status:    models.JoinRequestPending,
		}).Error
	})
}

// Approve accepts a join request. Only the project owner may approve. The
// requester becomes a member, and when the member count then exceeds the
// reviewer count plus the owner, the reviewer count grows by one so the
// project never advertises fewer review slots than it has members. Any
// pending invitation to the same user is resolved as accepted.
func (s *MembershipService) Approve(p Principal, requestID uint) error {
	return s.decide(p, requestID, true)
}

// Deny rejects a join request. Only the project owner may deny. The row is
// kept with a denied status so the owner retains a record, but it no longer
// blocks the user from re-applying.
func (s *MembershipService) Deny(p Principal, requestID uint) error {
	return s.decide(p, requestID, false)
}

func (s *MembershipService) decide(p Principal, requestID uint, accept bool) error {
	var request models.JoinRequest
	if err := s.db.Preload("Project").First(&request, requestID).Error; err != nil {
		return notFoundOr(err, "join request not found")
	}
	if request.Project == nil || request.Project.OwnerID != p.UserID {
		return response.NewForbidden("only the project owner can decide join requests")
	}
	if request.Status != models.JoinRequestPending {
		return response.NewConflict("join request has already been decided")
	}

	if !accept {
		return s.db.Model(&request).
			Update("status", models.JoinRequestDenied).Error
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&request).
			Update("status", models.JoinRequestAccepted).Error; err != nil {
			return err
		}

		membership := models.ProjectMembership{
			UserID:    request.UserID,
			ProjectID: request.ProjectID,
		}
		if err := tx.Where("user_id = ? AND project_id = ?", request.UserID, request.ProjectID).
			FirstOrCreate(&membership).Error; err != nil {
			return err
		}

		if err := growReviewerCount(tx, request.ProjectID); err != nil {
			return err
		}

		// A user can hold both a join request and an invitation to the same
		// project; approving one settles the other.
		return tx.Model(&models.ProjectInvitation{}).
			Where("project_id = ? AND invited_user_id = ? AND status = ?",
				request.ProjectID, request.UserID, models.InvitationPending).
			Updates(map[string]interface{}{
				"status":        models.InvitationAccepted,
				"response_date": time.Now(),
			}).Error
	})
}

// growReviewerCount bumps number_of_reviewers when the member count exceeds
// reviewers plus the owner. At most one increment per call.
func growReviewerCount(tx *gorm.DB, projectID uint) error {
	var project models.Project
	if err := tx.First(&project, projectID).Error; err != nil {
		return err
	}
	var members int64
	if err := tx.Model(&models.ProjectMembership{}).
		Where("project_id = ?", projectID).
		Count(&members).Error; err != nil {
		return err
	}
	if members > int64(project.NumberOfReviewers)+1 {
		return tx.Model(&models.Project{}).Where("id = ?", projectID).
			UpdateColumn("number_of_reviewers", gorm.Expr("number_of_reviewers + 1")).Error
	}
	return nil
}

// Leave removes p from the project and clears their join request history for
// it, so they can apply again later. The owner cannot leave their own
// project.
func (s *MembershipService) Leave(p Principal, projectID uint) error {
	var project models.Project
	if err := s.db.First(&project, projectID).Error; err != nil {
		return errProjectNotFound(err)
	}
	if project.OwnerID == p.UserID {
		return response.NewForbidden("the project owner cannot leave their own project")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("user_id = ? AND project_id = ?", p.UserID, project.ID).
			Delete(&models.ProjectMembership{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return response.NewBadRequest("you are not a member of this project")
		}
		return tx.Where("user_id = ? AND project_id = ?", p.UserID, project.ID).
			Delete(&models.JoinRequest{}).Error
	})
}

// PendingForProject lists the pending join requests on a project. Owner only.
func (s *MembershipService) PendingForProject(p Principal, projectID uint) ([]models.JoinRequest, error) {
	var project models.Project
	if err := s.db.First(&project, projectID).Error; err != nil {
		return nil, errProjectNotFound(err)
	}
	if project.OwnerID != p.UserID && !p.IsAdmin {
		return nil, response.NewForbidden("only the project owner can see join requests")
	}

	var requests []models.JoinRequest
	err := s.db.Preload("User").
		Where("project_id = ? AND status = ?", project.ID, models.JoinRequestPending).
		Order("created_at ASC").
		Find(&requests).Error
	return requests, err
}

// Members lists a project's members with the date each joined.
func (s *MembershipService) Members(p Principal, projectID uint) ([]models.ProjectMembership, error) {
	var project models.Project
	if err := s.db.First(&project, projectID).Error; err != nil {
		return nil, errProjectNotFound(err)
	}
	isMember, err := userIsMember(s.db, p.UserID, project.ID)
	if err != nil {
		return nil, err
	}
	if !ProjectVisible(&project, p, isMember) {
		return nil, errProjectHidden()
	}

	var memberships []models.ProjectMembership
	err = s.db.Preload("User").
		Where("project_id = ?", project.ID).
		Order("created_at ASC").
		Find(&memberships).Error
	return memberships, err
}
