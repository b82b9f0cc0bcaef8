package services

import (
	"strings"

	"gorm.io/gorm"

	"github.com/peerhub/peerhub/internal/models"
	"github.com/peerhub/peerhub/pkg/response"
)

// MessageService is the per-project chat.
type MessageService struct {
	db *gorm.DB
}

func NewMessageService(db *gorm.DB) *MessageService {
	return &MessageService{db: db}
}

// Create posts a chat message to the project. Members, the owner and admins
// may post.
func (s *MessageService) Create(p Principal, projectID uint, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, response.NewValidation("content", "message content is required")
	}

	project, err := s.loadForChat(p, projectID)
	if err != nil {
		return nil, err
	}

	message := &models.Message{
		ProjectID: project.ID,
		UserID:    p.UserID,
		Content:   content,
	}
	if err := s.db.Create(message).Error; err != nil {
		return nil, err
	}
	if err := s.db.Preload("User").First(message, message.ID).Error; err != nil {
		return nil, err
	}
	return message, nil
}

// List returns the project's chat history, oldest first. Optionally only
// messages after a known ID, for incremental polling.
func (s *MessageService) List(p Principal, projectID, afterID uint) ([]models.Message, error) {
	project, err := s.loadForChat(p, projectID)
	if err != nil {
		return nil, err
	}

	query := s.db.Preload("User").Where("project_id = ?", project.ID)
	if afterID > 0 {
		query = query.Where("id > ?", afterID)
	}

	var messages []models.Message
	err = query.Order("created_at ASC").Order("id ASC").Find(&messages).Error
	return messages, err
}

func (s *MessageService) loadForChat(p Principal, projectID uint) (*models.Project, error) {
	var project models.Project
	if err := s.db.First(&project, projectID).Error; err != nil {
		return nil, errProjectNotFound(err)
	}
	allowed, err := canAccessProjectFiles(s.db, &project, p)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, response.NewForbidden("you must be a member of this project to use its chat")
	}
	return &project, nil
}
