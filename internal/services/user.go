package services

import (
	"strings"

	"gorm.io/gorm"

	"github.com/peerhub/peerhub/internal/models"
)

// UserService serves the user search behind the invitation picker.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// Search finds invitable users. The caller, administrators and, when
// projectID is set, existing members of that project are excluded. The query
// matches username, first and last name, and profile bio.
func (s *UserService) Search(p Principal, query string, projectID uint) ([]models.User, error) {
	q := s.db.Model(&models.User{}).
		Where("users.id <> ?", p.UserID).
		Where("users.role <> ?", models.RoleAdmin).
		Where("users.is_active = ?", true)

	if projectID != 0 {
		members := s.db.Model(&models.ProjectMembership{}).
			Select("user_id").Where("project_id = ?", projectID)
		q = q.Where("users.id NOT IN (?)", members)
	}

	if term := strings.TrimSpace(query); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Joins("LEFT JOIN user_profiles ON user_profiles.user_id = users.id").
			Where(`LOWER(users.username) LIKE ? OR LOWER(users.first_name) LIKE ?
				OR LOWER(users.last_name) LIKE ? OR LOWER(user_profiles.bio) LIKE ?`,
				like, like, like, like)
	}

	var users []models.User
	err := q.Order("users.username ASC").Limit(50).Find(&users).Error
	return users, err
}
