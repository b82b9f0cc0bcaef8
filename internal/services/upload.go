package services

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/peerhub/peerhub/internal/models"
	"github.com/peerhub/peerhub/internal/storage"
	"github.com/peerhub/peerhub/pkg/logger"
	"github.com/peerhub/peerhub/pkg/response"
)

// inlineContentTypes are the types browsers may render in the page; anything
// else is served as a download.
var inlineContentTypes = map[string]bool{
	"image/jpeg":      true,
	"text/plain":      true,
	"application/pdf": true,
	"video/mp4":       true,
}

// mimeTypeFor guesses a content type from the file extension.
func mimeTypeFor(fileName string) string {
	contentType := mime.TypeByExtension(strings.ToLower(path.Ext(fileName)))
	if contentType == "" {
		return "application/octet-stream"
	}
	// Strip parameters like "; charset=utf-8" so the type matches the
	// inline allow-list.
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	return contentType
}

// dispositionFor builds the Content-Disposition served with a presigned
// link.
func dispositionFor(contentType, fileName string) string {
	base := path.Base(fileName)
	if inlineContentTypes[contentType] {
		return fmt.Sprintf("inline; filename=%q", base)
	}
	return fmt.Sprintf("attachment; filename=%q", base)
}

// UploadService stores project files and keeps the upload rows that describe
// them. Media files are handed to the transcription queue after the row is
// saved, so a queue outage never loses the file.
type UploadService struct {
	db          *gorm.DB
	store       storage.ObjectStore
	queue       TaskQueue
	transcriber *TranscriptionService
	presignTTL  time.Duration
}

func NewUploadService(db *gorm.DB, store storage.ObjectStore, queue TaskQueue, transcriber *TranscriptionService, presignTTL time.Duration) *UploadService {
	return &UploadService{
		db:          db,
		store:       store,
		queue:       queue,
		transcriber: transcriber,
		presignTTL:  presignTTL,
	}
}

// CreateUploadRequest carries the metadata accompanying a file upload.
type CreateUploadRequest struct {
	Name        string `form:"name" binding:"required"`
	Description string `form:"description"`
	Keywords    string `form:"keywords"`
}

// Create stores the file blob and its metadata row. Members, the owner and
// admins may upload. Display names are unique within a project.
func (s *UploadService) Create(ctx context.Context, p Principal, projectID uint, req *CreateUploadRequest, fileName string, body io.Reader) (*models.Upload, error) {
	var project models.Project
	if err := s.db.First(&project, projectID).Error; err != nil {
		return nil, errProjectNotFound(err)
	}
	allowed, err := canAccessProjectFiles(s.db, &project, p)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, response.NewForbidden("you must be a member of this project to upload files")
	}

	fileName = path.Base(fileName)
	if fileName == "" || fileName == "." || fileName == "/" {
		return nil, response.NewValidation("file", "a file is required")
	}

	var existing int64
	if err := s.db.Model(&models.Upload{}).
		Where("project_id = ? AND name = ?", project.ID, req.Name).
		Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, response.NewValidation("name",
			"an upload with this name already exists in this project")
	}

	key := project.Name + "/" + fileName
	if err := s.store.Put(ctx, key, body, mimeTypeFor(fileName)); err != nil {
		logger.Errorf("storing upload %q for project %d: %v", fileName, project.ID, err)
		return nil, response.NewServerError("failed to store the file")
	}

	outputKey := TranscriptionOutputKey(project.Name, fileName)
	upload := &models.Upload{
		Name:        req.Name,
		OwnerID:     p.UserID,
		ProjectID:   project.ID,
		FileName:    fileName,
		Description: req.Description,
		Keywords:    req.Keywords,
		OutputKey:   &outputKey,
	}
	if err := s.db.Create(upload).Error; err != nil {
		return nil, err
	}

	// The row is saved before submission, so a failed enqueue degrades to
	// "no transcription" rather than a lost upload.
	if upload.Transcribable() {
		if err := s.queue.Enqueue(ctx, &TranscriptionTask{UploadID: upload.ID}); err != nil {
			logger.Warnf("queueing transcription for upload %d: %v", upload.ID, err)
		}
	}
	return upload, nil
}

// UploadView is an upload prepared for display: a presigned file link plus
// whatever transcription text is currently known.
type UploadView struct {
	models.Upload
	FileURL       string `json:"file_url"`
	FileType      string `json:"file_type"`
	Transcription string `json:"transcription,omitempty"`
}

// View presigns the file and attaches the current transcription text. A
// transcript that cannot be fetched or parsed is reported as absent, not as
// an error.
func (s *UploadService) View(ctx context.Context, p Principal, projectID, uploadID uint) (*UploadView, error) {
	upload, project, err := s.load(p, projectID, uploadID)
	if err != nil {
		return nil, err
	}

	contentType := mimeTypeFor(upload.FileName)
	key := project.Name + "/" + upload.FileName
	url, err := s.store.PresignGet(ctx, key, contentType,
		dispositionFor(contentType, upload.FileName), s.presignTTL)
	if err != nil {
		logger.Errorf("presigning upload %d: %v", upload.ID, err)
		return nil, response.NewServerError("failed to generate a file link")
	}

	view := &UploadView{Upload: *upload, FileURL: url, FileType: contentType}
	if s.transcriber != nil && upload.TranscriptionJobName != nil && upload.OutputKey != nil {
		text, err := s.transcriber.CheckJob(ctx, *upload.TranscriptionJobName, *upload.OutputKey)
		if err != nil {
			logger.Warnf("checking transcription for upload %d: %v", upload.ID, err)
		} else {
			view.Transcription = text
		}
	}
	return view, nil
}

// RefreshTranscription re-polls the upload's transcription job for the
// status endpoint the file page polls while a job runs.
func (s *UploadService) RefreshTranscription(ctx context.Context, p Principal, projectID, uploadID uint) (*TranscriptionStatus, error) {
	upload, _, err := s.load(p, projectID, uploadID)
	if err != nil {
		return nil, err
	}
	if s.transcriber == nil {
		return &TranscriptionStatus{}, nil
	}
	return s.transcriber.RefreshStatus(ctx, upload), nil
}

// UpdateUploadRequest carries partial metadata edits; nil fields are left
// untouched.
type UpdateUploadRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Keywords    *string `json:"keywords"`
}

// UpdateMetadata edits an upload's display name, description or keywords.
// The uploader, the project owner and admins may edit.
func (s *UploadService) UpdateMetadata(p Principal, projectID, uploadID uint, req *UpdateUploadRequest) (*models.Upload, error) {
	upload, project, err := s.load(p, projectID, uploadID)
	if err != nil {
		return nil, err
	}
	if !s.canManage(upload, project, p) {
		return nil, response.NewForbidden("you cannot edit this file")
	}

	updates := map[string]interface{}{}
	if req.Name != nil && *req.Name != upload.Name {
		var existing int64
		if err := s.db.Model(&models.Upload{}).
			Where("project_id = ? AND name = ? AND id <> ?", project.ID, *req.Name, upload.ID).
			Count(&existing).Error; err != nil {
			return nil, err
		}
		if existing > 0 {
			return nil, response.NewValidation("name",
				"an upload with this name already exists in this project")
		}
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Keywords != nil {
		updates["keywords"] = *req.Keywords
	}
	if len(updates) > 0 {
		if err := s.db.Model(upload).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return upload, nil
}

// Delete removes the blob and then the row, along with the upload's prompt
// threads. The uploader, the project owner and admins may delete.
func (s *UploadService) Delete(ctx context.Context, p Principal, projectID, uploadID uint) error {
	upload, project, err := s.load(p, projectID, uploadID)
	if err != nil {
		return err
	}
	if !s.canManage(upload, project, p) {
		return response.NewForbidden("you cannot delete this file")
	}

	key := project.Name + "/" + upload.FileName
	if err := s.store.Delete(ctx, key); err != nil {
		logger.Errorf("deleting blob %q: %v", key, err)
		return response.NewServerError("failed to delete the file")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		promptIDs := tx.Model(&models.Prompt{}).Select("id").
			Where("upload_id = ?", upload.ID)
		if err := tx.Where("prompt_id IN (?)", promptIDs).
			Delete(&models.PromptResponse{}).Error; err != nil {
			return err
		}
		if err := tx.Where("upload_id = ?", upload.ID).
			Delete(&models.Prompt{}).Error; err != nil {
			return err
		}
		return tx.Delete(upload).Error
	})
}

// List returns a project's uploads, optionally filtered by a search over
// display name and keywords.
func (s *UploadService) List(p Principal, projectID uint, search string) ([]models.Upload, error) {
	var project models.Project
	if err := s.db.First(&project, projectID).Error; err != nil {
		return nil, errProjectNotFound(err)
	}
	allowed, err := canAccessProjectFiles(s.db, &project, p)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, response.NewForbidden("you must be a member of this project to see its files")
	}

	query := s.db.Preload("Owner").Where("project_id = ?", project.ID)
	if q := strings.TrimSpace(search); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(keywords) LIKE ?", like, like)
	}

	var uploads []models.Upload
	err = query.Order("uploaded_at DESC").Find(&uploads).Error
	return uploads, err
}

func (s *UploadService) load(p Principal, projectID, uploadID uint) (*models.Upload, *models.Project, error) {
	var project models.Project
	if err := s.db.First(&project, projectID).Error; err != nil {
		return nil, nil, errProjectNotFound(err)
	}
	allowed, err := canAccessProjectFiles(s.db, &project, p)
	if err != nil {
		return nil, nil, err
	}
	if !allowed {
		return nil, nil, response.NewForbidden("you must be a member of this project to see its files")
	}

	var upload models.Upload
	if err := s.db.Preload("Owner").
		Where("id = ? AND project_id = ?", uploadID, project.ID).
		First(&upload).Error; err != nil {
		return nil, nil, errUploadNotFound(err)
	}
	return &upload, &project, nil
}

func (s *UploadService) canManage(upload *models.Upload, project *models.Project, p Principal) bool {
	return upload.OwnerID == p.UserID || project.OwnerID == p.UserID || p.IsAdmin
}
