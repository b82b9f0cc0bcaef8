package services

import (
	"strings"

	"gorm.io/gorm"

	"github.com/peerhub/peerhub/internal/models"
)

// Principal identifies the caller of a service operation. A zero UserID means
// an anonymous visitor.
type Principal struct {
	UserID  uint
	IsAdmin bool
}

// Anonymous reports whether the principal is an unauthenticated visitor.
func (p Principal) Anonymous() bool { return p.UserID == 0 }

// RelationshipStatus describes how a signed-in user relates to a project they
// neither own nor administrate.
type RelationshipStatus string

const (
	RelationshipMember    RelationshipStatus = "member"
	RelationshipPending   RelationshipStatus = "pending"
	RelationshipNotMember RelationshipStatus = "not_member"
)

// ProjectVisible reports whether p may see the project at all. Public
// projects are visible to everyone, including anonymous visitors; private
// projects only to the owner, members and administrators.
func ProjectVisible(project *models.Project, p Principal, isMember bool) bool {
	if !project.IsPrivate {
		return true
	}
	if p.Anonymous() {
		return false
	}
	return project.OwnerID == p.UserID || isMember || p.IsAdmin
}

// CanEditProject reports whether p may change or delete the project.
func CanEditProject(project *models.Project, p Principal) bool {
	if p.Anonymous() {
		return false
	}
	return project.OwnerID == p.UserID || p.IsAdmin
}

// RelationshipFor derives the membership status shown to a signed-in,
// non-admin, non-owner viewer. Membership wins over a pending request.
func RelationshipFor(isMember, hasPendingRequest bool) RelationshipStatus {
	if isMember {
		return RelationshipMember
	}
	if hasPendingRequest {
		return RelationshipPending
	}
	return RelationshipNotMember
}

// ProjectView is a project as seen by one principal.
type ProjectView struct {
	models.Project
	Status     RelationshipStatus `json:"status,omitempty"`
	CanEdit    bool               `json:"can_edit"`
	HasUpvoted bool               `json:"has_upvoted"`
}

// BrowseRequest carries the browse listing's search and sort parameters.
// Supported sorts are "created_at", "-created_at" (default), "due_date" and
// "-due_date"; due-date sorts always push undated projects to the end.
type BrowseRequest struct {
	Query string `form:"q"`
	Sort  string `form:"sort"`
}

// VisibilityService produces per-principal project listings.
type VisibilityService struct {
	db *gorm.DB
}

func NewVisibilityService(db *gorm.DB) *VisibilityService {
	return &VisibilityService{db: db}
}

// Browse returns every project p may see, annotated with p's relationship to
// each. Filtering happens after the query so a single pass over the user's
// membership, request and upvote sets covers all annotations.
func (s *VisibilityService) Browse(p Principal, req *BrowseRequest) ([]ProjectView, error) {
	query := s.db.Preload("Owner")
	if q := strings.TrimSpace(req.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where(
			"LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(category) LIKE ?",
			like, like, like,
		)
	}
	switch req.Sort {
	case "due_date":
		query = query.Order("due_date IS NULL").Order("due_date ASC")
	case "-due_date":
		query = query.Order("due_date IS NULL").Order("due_date DESC")
	case "created_at":
		query = query.Order("created_at ASC")
	default:
		query = query.Order("created_at DESC")
	}

	var projects []models.Project
	if err := query.Find(&projects).Error; err != nil {
		return nil, err
	}

	memberOf, err := s.projectIDSet(&models.ProjectMembership{}, p)
	if err != nil {
		return nil, err
	}
	pending, err := s.pendingRequestSet(p)
	if err != nil {
		return nil, err
	}
	upvoted, err := s.projectIDSet(&models.ProjectUpvote{}, p)
	if err != nil {
		return nil, err
	}

	views := make([]ProjectView, 0, len(projects))
	for i := range projects {
		project := &projects[i]
		if !ProjectVisible(project, p, memberOf[project.ID]) {
			continue
		}
		view := ProjectView{
			Project:    *project,
			CanEdit:    CanEditProject(project, p),
			HasUpvoted: upvoted[project.ID],
		}
		if !p.Anonymous() && !p.IsAdmin && project.OwnerID != p.UserID {
			view.Status = RelationshipFor(memberOf[project.ID], pending[project.ID])
		}
		views = append(views, view)
	}
	return views, nil
}

// View returns a single project annotated for p, or a not-found error when
// the project does not exist or p may not see it. Hidden and missing projects
// are indistinguishable to the caller.
func (s *VisibilityService) View(p Principal, projectID uint) (*ProjectView, error) {
	var project models.Project
	if err := s.db.Preload("Owner").First(&project, projectID).Error; err != nil {
		return nil, errProjectNotFound(err)
	}

	isMember, err := userIsMember(s.db, p.UserID, project.ID)
	if err != nil {
		return nil, err
	}
	if !ProjectVisible(&project, p, isMember) {
		return nil, errProjectHidden()
	}

	view := &ProjectView{
		Project: project,
		CanEdit: CanEditProject(&project, p),
	}
	if !p.Anonymous() {
		var upvotes int64
		if err := s.db.Model(&models.ProjectUpvote{}).
			Where("user_id = ? AND project_id = ?", p.UserID, project.ID).
			Count(&upvotes).Error; err != nil {
			return nil, err
		}
		view.HasUpvoted = upvotes > 0

		if !p.IsAdmin && project.OwnerID != p.UserID {
			hasPending, err := userHasPendingRequest(s.db, p.UserID, project.ID)
			if err != nil {
				return nil, err
			}
			view.Status = RelationshipFor(isMember, hasPending)
		}
	}
	return view, nil
}

func (s *VisibilityService) projectIDSet(model interface{}, p Principal) (map[uint]bool, error) {
	set := map[uint]bool{}
	if p.Anonymous() {
		return set, nil
	}
	var ids []uint
	if err := s.db.Model(model).Where("user_id = ?", p.UserID).
		Pluck("project_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

func (s *VisibilityService) pendingRequestSet(p Principal) (map[uint]bool, error) {
	set := map[uint]bool{}
	if p.Anonymous() {
		return set, nil
	}
	var ids []uint
	if err := s.db.Model(&models.JoinRequest{}).
		Where("user_id = ? AND status = ?", p.UserID, models.JoinRequestPending).
		Pluck("project_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

func userIsMember(db *gorm.DB, userID, projectID uint) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	var count int64
	err := db.Model(&models.ProjectMembership{}).
		Where("user_id = ? AND project_id = ?", userID, projectID).
		Count(&count).Error
	return count > 0, err
}

func userHasPendingRequest(db *gorm.DB, userID, projectID uint) (bool, error) {
	var count int64
	err := db.Model(&models.JoinRequest{}).
		Where("user_id = ? AND project_id = ? AND status = ?",
			userID, projectID, models.JoinRequestPending).
		Count(&count).Error
	return count > 0, err
}

// canAccessProjectFiles reports whether p may open the project's uploads and
// chat. Same rule as visibility for private projects, but public projects
// still require membership (or ownership, or an admin role) for file access.
func canAccessProjectFiles(db *gorm.DB, project *models.Project, p Principal) (bool, error) {
	if p.Anonymous() {
		return false, nil
	}
	if project.OwnerID == p.UserID || p.IsAdmin {
		return true, nil
	}
	return userIsMember(db, p.UserID, project.ID)
}
