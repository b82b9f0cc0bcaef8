package services

import (
	"strings"

	"gorm.io/gorm"

	"github.com/peerhub/peerhub/internal/models"
	"github.com/peerhub/peerhub/pkg/response"
)

// PromptService manages the discussion threads attached to uploads.
type PromptService struct {
	db *gorm.DB
}

func NewPromptService(db *gorm.DB) *PromptService {
	return &PromptService{db: db}
}

// CreatePrompt opens a new thread on an upload. Requires file access to the
// upload's project.
func (s *PromptService) CreatePrompt(p Principal, uploadID uint, content string) (*models.Prompt, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, response.NewValidation("content", "prompt content is required")
	}

	upload, err := s.loadUpload(p, uploadID)
	if err != nil {
		return nil, err
	}

	prompt := &models.Prompt{
		UploadID:    upload.ID,
		Content:     content,
		CreatedByID: p.UserID,
	}
	if err := s.db.Create(prompt).Error; err != nil {
		return nil, err
	}
	return prompt, nil
}

// CreateResponse adds a reply to a prompt thread.
func (s *PromptService) CreateResponse(p Principal, promptID uint, content string) (*models.PromptResponse, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, response.NewValidation("content", "response content is required")
	}

	var prompt models.Prompt
	if err := s.db.First(&prompt, promptID).Error; err != nil {
		return nil, notFoundOr(err, "prompt not found")
	}
	if _, err := s.loadUpload(p, prompt.UploadID); err != nil {
		return nil, err
	}

	reply := &models.PromptResponse{
		PromptID:    prompt.ID,
		Content:     content,
		CreatedByID: p.UserID,
	}
	if err := s.db.Create(reply).Error; err != nil {
		return nil, err
	}
	return reply, nil
}

// DeletePrompt removes a thread and its replies. Creator only.
func (s *PromptService) DeletePrompt(p Principal, promptID uint) error {
	var prompt models.Prompt
	if err := s.db.First(&prompt, promptID).Error; err != nil {
		return notFoundOr(err, "prompt not found")
	}
	if prompt.CreatedByID != p.UserID {
		return response.NewForbidden("only the prompt's creator can delete it")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("prompt_id = ?", prompt.ID).
			Delete(&models.PromptResponse{}).Error; err != nil {
			return err
		}
		return tx.Delete(&prompt).Error
	})
}

// DeleteResponse removes a single reply. Creator only.
func (s *PromptService) DeleteResponse(p Principal, responseID uint) error {
	var reply models.PromptResponse
	if err := s.db.First(&reply, responseID).Error; err != nil {
		return notFoundOr(err, "response not found")
	}
	if reply.CreatedByID != p.UserID {
		return response.NewForbidden("only the response's creator can delete it")
	}
	return s.db.Delete(&reply).Error
}

// ListForUpload returns an upload's threads, oldest first, with replies and
// authors attached.
func (s *PromptService) ListForUpload(p Principal, uploadID uint) ([]models.Prompt, error) {
	upload, err := s.loadUpload(p, uploadID)
	if err != nil {
		return nil, err
	}

	var prompts []models.Prompt
	err = s.db.Preload("CreatedBy").
		Preload("Responses", func(db *gorm.DB) *gorm.DB {
			return db.Order("prompt_responses.created_at ASC")
		}).
		Preload("Responses.CreatedBy").
		Where("upload_id = ?", upload.ID).
		Order("created_at ASC").
		Find(&prompts).Error
	return prompts, err
}

func (s *PromptService) loadUpload(p Principal, uploadID uint) (*models.Upload, error) {
	var upload models.Upload
	if err := s.db.Preload("Project").First(&upload, uploadID).Error; err != nil {
		return nil, errUploadNotFound(err)
	}
	if upload.Project == nil {
		return nil, errUploadNotFound(gorm.ErrRecordNotFound)
	}
	allowed, err := canAccessProjectFiles(s.db, upload.Project, p)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, response.NewForbidden("you must be a member of this project to take part in its discussions")
	}
	return &upload, nil
}
