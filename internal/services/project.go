package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/peerhub/peerhub/internal/models"
	"github.com/peerhub/peerhub/internal/storage"
	"github.com/peerhub/peerhub/pkg/logger"
	"github.com/peerhub/peerhub/pkg/response"
)

// ProjectService owns the project lifecycle and the per-project object-store
// prefix that goes with it.
type ProjectService struct {
	db         *gorm.DB
	store      storage.ObjectStore
	presignTTL time.Duration
}

func NewProjectService(db *gorm.DB, store storage.ObjectStore, presignTTL time.Duration) *ProjectService {
	return &ProjectService{db: db, store: store, presignTTL: presignTTL}
}

// CreateProjectRequest carries the fields of a new or updated project.
type CreateProjectRequest struct {
	Name              string          `json:"name" binding:"required"`
	Category          models.Category `json:"category" binding:"required"`
	Description       string          `json:"description"`
	DueDate           *time.Time      `json:"due_date"`
	NumberOfReviewers uint            `json:"number_of_reviewers"`
	IsPrivate         bool            `json:"is_private"`
}

// sanitizeProjectName strips path separators so the project name can serve as
// an object-store key prefix.
func sanitizeProjectName(name string) string {
	return strings.TrimSpace(strings.ReplaceAll(name, "/", "-"))
}

// Create stores a new project and enrolls the owner as its first member.
func (s *ProjectService) Create(p Principal, req *CreateProjectRequest) (*models.Project, error) {
	name := sanitizeProjectName(req.Name)
	if name == "" {
		return nil, response.NewValidation("name", "project name is required")
	}
	if !req.Category.Valid() {
		return nil, response.NewValidation("category", "unknown project category")
	}
	reviewers := req.NumberOfReviewers
	if reviewers == 0 {
		reviewers = 1
	}

	project := &models.Project{
		Name:              name,
		OwnerID:           p.UserID,
		Category:          req.Category,
		Description:       req.Description,
		DueDate:           req.DueDate,
		NumberOfReviewers: reviewers,
		IsPrivate:         req.IsPrivate,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.Project{}).
			Where("owner_id = ? AND name = ?", p.UserID, name).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return response.NewValidation("name", "you already have a project with this name")
		}
		if err := tx.Create(project).Error; err != nil {
			return err
		}
		return tx.Create(&models.ProjectMembership{
			UserID:    p.UserID,
			ProjectID: project.ID,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// UpdateProjectRequest carries partial project edits; nil fields are left
// untouched.
type UpdateProjectRequest struct {
	Name              *string          `json:"name"`
	Category          *models.Category `json:"category"`
	Description       *string          `json:"description"`
	DueDate           *time.Time       `json:"due_date"`
	NumberOfReviewers *uint            `json:"number_of_reviewers"`
	IsPrivate         *bool            `json:"is_private"`
}

// Update edits a project. Owner or admin only. The reviewer count may not
// drop below the current member count minus the owner.
func (s *ProjectService) Update(p Principal, projectID uint, req *UpdateProjectRequest) (*models.Project, error) {
	var project models.Project
	if err := s.db.First(&project, projectID).Error; err != nil {
		return nil, errProjectNotFound(err)
	}
	if !CanEditProject(&project, p) {
		return nil, response.NewForbidden("only the project owner can edit this project")
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name := sanitizeProjectName(*req.Name)
		if name == "" {
			return nil, response.NewValidation("name", "project name is required")
		}
		if name != project.Name {
			var existing int64
			if err := s.db.Model(&models.Project{}).
				Where("owner_id = ? AND name = ? AND id <> ?", project.OwnerID, name, project.ID).
				Count(&existing).Error; err != nil {
				return nil, err
			}
			if existing > 0 {
				return nil, response.NewValidation("name", "you already have a project with this name")
			}
			updates["name"] = name
		}
	}
	if req.Category != nil {
		if !req.Category.Valid() {
			return nil, response.NewValidation("category", "unknown project category")
		}
		updates["category"] = *req.Category
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.DueDate != nil {
		updates["due_date"] = *req.DueDate
	}
	if req.NumberOfReviewers != nil {
		var members int64
		if err := s.db.Model(&models.ProjectMembership{}).
			Where("project_id = ?", project.ID).
			Count(&members).Error; err != nil {
			return nil, err
		}
		if int64(*req.NumberOfReviewers) < members-1 {
			return nil, response.NewValidation("number_of_reviewers",
				"reviewer count cannot drop below the current number of members")
		}
		updates["number_of_reviewers"] = *req.NumberOfReviewers
	}
	if req.IsPrivate != nil {
		updates["is_private"] = *req.IsPrivate
	}

	if len(updates) > 0 {
		if err := s.db.Model(&project).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return &project, nil
}

// Delete removes a project, its stored files and every dependent row. Files
// go first; if the object store refuses, the rows stay so the owner can
// retry. Once files are gone the row cleanup is not rolled back.
func (s *ProjectService) Delete(ctx context.Context, p Principal, projectID uint) error {
	var project models.Project
	if err := s.db.First(&project, projectID).Error; err != nil {
		return errProjectNotFound(err)
	}
	if !CanEditProject(&project, p) {
		return response.NewForbidden("only the project owner can delete this project")
	}

	if err := storage.DeletePrefix(ctx, s.store, project.StorageRoot()); err != nil {
		logger.Errorf("deleting stored files for project %d: %v", project.ID, err)
		return response.NewServerError("failed to delete project files")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		uploadIDs := tx.Model(&models.Upload{}).Select("id").
			Where("project_id = ?", project.ID)
		promptIDs := tx.Model(&models.Prompt{}).Select("id").
			Where("upload_id IN (?)", uploadIDs)

		if err := tx.Where("prompt_id IN (?)", promptIDs).
			Delete(&models.PromptResponse{}).Error; err != nil {
			return err
		}
		if err := tx.Where("upload_id IN (?)", uploadIDs).
			Delete(&models.Prompt{}).Error; err != nil {
			return err
		}
		for _, model := range []interface{}{
			&models.Upload{}, &models.Message{}, &models.ProjectMembership{},
			&models.JoinRequest{}, &models.ProjectInvitation{}, &models.ProjectUpvote{},
		} {
			if err := tx.Where("project_id = ?", project.ID).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&project).Error
	})
}

// UpvoteResult reports the outcome of an upvote toggle.
type UpvoteResult struct {
	Status  string `json:"status"`
	Upvotes uint   `json:"upvotes"`
}

// ToggleUpvote adds p's upvote to the project, or removes it when already
// present. The counter never goes below zero.
func (s *ProjectService) ToggleUpvote(p Principal, projectID uint) (*UpvoteResult, error) {
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

	result := &UpvoteResult{}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var upvote models.ProjectUpvote
		findErr := tx.Where("user_id = ? AND project_id = ?", p.UserID, project.ID).
			First(&upvote).Error
		switch {
		case findErr == nil:
			if err := tx.Delete(&upvote).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Project{}).
				Where("id = ? AND upvotes > 0", project.ID).
				UpdateColumn("upvotes", gorm.Expr("upvotes - 1")).Error; err != nil {
				return err
			}
			result.Status = "removed"
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			if err := tx.Create(&models.ProjectUpvote{
				UserID:    p.UserID,
				ProjectID: project.ID,
			}).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Project{}).
				Where("id = ?", project.ID).
				UpdateColumn("upvotes", gorm.Expr("upvotes + 1")).Error; err != nil {
				return err
			}
			result.Status = "added"
		default:
			return findErr
		}

		var fresh models.Project
		if err := tx.First(&fresh, project.ID).Error; err != nil {
			return err
		}
		result.Upvotes = fresh.Upvotes
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// PopularProject is a browse entry for the popular listing, with a preview
// link to the project's most recent upload when one exists.
type PopularProject struct {
	ProjectView
	LatestFileURL string `json:"latest_file_url,omitempty"`
}

// Popular lists the visible projects with the most upvotes, annotated with a
// presigned preview of each project's newest file.
func (s *ProjectService) Popular(ctx context.Context, p Principal, limit int) ([]PopularProject, error) {
	if limit <= 0 {
		limit = 10
	}

	var projects []models.Project
	err := s.db.Preload("Owner").
		Where("upvotes > 0").
		Order("upvotes DESC").Order("created_at DESC").
		Limit(limit * 2).
		Find(&projects).Error
	if err != nil {
		return nil, err
	}

	popular := make([]PopularProject, 0, limit)
	for i := range projects {
		project := &projects[i]
		isMember, err := userIsMember(s.db, p.UserID, project.ID)
		if err != nil {
			return nil, err
		}
		if !ProjectVisible(project, p, isMember) {
			continue
		}

		entry := PopularProject{ProjectView: ProjectView{
			Project: *project,
			CanEdit: CanEditProject(project, p),
		}}
		if !p.Anonymous() && !p.IsAdmin && project.OwnerID != p.UserID {
			hasPending, err := userHasPendingRequest(s.db, p.UserID, project.ID)
			if err != nil {
				return nil, err
			}
			entry.Status = RelationshipFor(isMember, hasPending)
		}

		var latest models.Upload
		if err := s.db.Where("project_id = ?", project.ID).
			Order("uploaded_at DESC").
			First(&latest).Error; err == nil {
			key := project.Name + "/" + latest.FileName
			contentType := mimeTypeFor(latest.FileName)
			url, err := s.store.PresignGet(ctx, key, contentType,
				dispositionFor(contentType, latest.FileName), s.presignTTL)
			if err != nil {
				logger.Warnf("presigning preview for project %d: %v", project.ID, err)
			} else {
				entry.LatestFileURL = url
			}
		}

		popular = append(popular, entry)
		if len(popular) == limit {
			break
		}
	}
	return popular, nil
}

// Dashboard aggregates a user's projects, memberships and waiting decisions.
type Dashboard struct {
	Owned        []models.Project           `json:"owned"`
	MemberOf     []models.Project           `json:"member_of"`
	JoinRequests []models.JoinRequest       `json:"join_requests"`
	Invitations  []models.ProjectInvitation `json:"invitations"`
}

// Dashboard returns p's owned projects, the projects they belong to, the
// pending join requests on their projects and the invitations waiting for
// their answer.
func (s *ProjectService) Dashboard(p Principal) (*Dashboard, error) {
	dash := &Dashboard{}

	if err := s.db.Where("owner_id = ?", p.UserID).
		Order("created_at DESC").
		Find(&dash.Owned).Error; err != nil {
		return nil, err
	}

	if err := s.db.Preload("Owner").
		Joins("JOIN project_memberships ON project_memberships.project_id = projects.id").
		Where("project_memberships.user_id = ? AND projects.owner_id <> ?", p.UserID, p.UserID).
		Order("project_memberships.created_at DESC").
		Find(&dash.MemberOf).Error; err != nil {
		return nil, err
	}

	if err := s.db.Preload("User").Preload("Project").
		Joins("JOIN projects ON projects.id = join_requests.project_id").
		Where("projects.owner_id = ? AND join_requests.status = ?",
			p.UserID, models.JoinRequestPending).
		Order("join_requests.created_at ASC").
		Find(&dash.JoinRequests).Error; err != nil {
		return nil, err
	}

	if err := s.db.Preload("Project").Preload("InvitedBy").
		Where("invited_user_id = ? AND status = ?", p.UserID, models.InvitationPending).
		Order("created_at DESC").
		Find(&dash.Invitations).Error; err != nil {
		return nil, err
	}
	return dash, nil
}

// attachment kinds for project-level documents.
const (
	AttachmentRubric     = "rubric"
	AttachmentGuidelines = "guidelines"
)

// SetAttachment stores a rubric or guidelines document for the project,
// replacing any previous one. Owner only.
func (s *ProjectService) SetAttachment(ctx context.Context, p Principal, projectID uint, kind, fileName string, body io.Reader) error {
	var project models.Project
	if err := s.db.First(&project, projectID).Error; err != nil {
		return errProjectNotFound(err)
	}
	if project.OwnerID != p.UserID {
		return response.NewForbidden("only the project owner can attach documents")
	}

	column, oldKey, err := attachmentColumn(&project, kind)
	if err != nil {
		return err
	}

	key := project.Name + "/" + kind + "s/" + fileName
	if err := s.store.Put(ctx, key, body, mimeTypeFor(fileName)); err != nil {
		logger.Errorf("storing %s for project %d: %v", kind, project.ID, err)
		return response.NewServerError("failed to store the document")
	}
	if oldKey != "" && oldKey != key {
		if err := s.store.Delete(ctx, oldKey); err != nil {
			logger.Warnf("removing replaced %s %q: %v", kind, oldKey, err)
		}
	}
	return s.db.Model(&project).Update(column, key).Error
}

// DeleteAttachment removes a project's rubric or guidelines document. Owner
// or admin.
func (s *ProjectService) DeleteAttachment(ctx context.Context, p Principal, projectID uint, kind string) error {
	var project models.Project
	if err := s.db.First(&project, projectID).Error; err != nil {
		return errProjectNotFound(err)
	}
	if !CanEditProject(&project, p) {
		return response.NewForbidden("only the project owner can remove documents")
	}

	column, key, err := attachmentColumn(&project, kind)
	if err != nil {
		return err
	}
	if key == "" {
		return response.NewNotFound("no such document on this project")
	}
	if err := s.store.Delete(ctx, key); err != nil {
		logger.Errorf("deleting %s %q: %v", kind, key, err)
		return response.NewServerError("failed to delete the document")
	}
	return s.db.Model(&project).Update(column, "").Error
}

// AttachmentURL presigns a read link for a project's rubric or guidelines
// document. Any viewer of the project may fetch it.
func (s *ProjectService) AttachmentURL(ctx context.Context, p Principal, projectID uint, kind string) (string, error) {
	var project models.Project
	if err := s.db.First(&project, projectID).Error; err != nil {
		return "", errProjectNotFound(err)
	}
	isMember, err := userIsMember(s.db, p.UserID, project.ID)
	if err != nil {
		return "", err
	}
	if !ProjectVisible(&project, p, isMember) {
		return "", errProjectHidden()
	}

	_, key, err := attachmentColumn(&project, kind)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", response.NewNotFound("no such document on this project")
	}
	contentType := mimeTypeFor(key)
	return s.store.PresignGet(ctx, key, contentType,
		dispositionFor(contentType, key), s.presignTTL)
}

func attachmentColumn(project *models.Project, kind string) (column, key string, err error) {
	switch kind {
	case AttachmentRubric:
		return "rubric_key", project.RubricKey, nil
	case AttachmentGuidelines:
		return "guidelines_key", project.GuidelinesKey, nil
	default:
		return "", "", response.NewBadRequest("unknown document kind")
	}
}
