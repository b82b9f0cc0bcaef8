package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/peerhub/peerhub/internal/services"
	"github.com/peerhub/peerhub/pkg/response"
)

type UploadHandler struct {
	uploads *services.UploadService
	logs    *services.SystemLogService
}

func NewUploadHandler(uploads *services.UploadService, logs *services.SystemLogService) *UploadHandler {
	return &UploadHandler{uploads: uploads, logs: logs}
}

// Create accepts a multipart upload: the file plus its metadata fields.
func (h *UploadHandler) Create(c *gin.Context) {
	projectID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var req services.CreateUploadRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, "invalid upload fields")
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "a file is required")
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.BadRequest(c, "could not read the uploaded file")
		return
	}
	defer opened.Close()

	p := principal(c)
	upload, err := h.uploads.Create(c.Request.Context(), p, projectID, &req, file.Filename, opened)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.logs.Record("info", "upload", "create",
		"file uploaded: "+upload.FileName, &p.UserID, c.ClientIP())
	response.Created(c, upload)
}

// List returns a project's uploads, with an optional search over names and
// keywords.
func (h *UploadHandler) List(c *gin.Context) {
	projectID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	uploads, err := h.uploads.List(principal(c), projectID, c.Query("q"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, uploads)
}

// Get returns the upload with a presigned file link and any transcription.
func (h *UploadHandler) Get(c *gin.Context) {
	projectID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	uploadID, ok := uintParam(c, "uploadID")
	if !ok {
		return
	}

	view, err := h.uploads.View(c.Request.Context(), principal(c), projectID, uploadID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}

// RefreshTranscription re-polls the transcription job. The file page calls
// this while the transcribing placeholder is shown.
func (h *UploadHandler) RefreshTranscription(c *gin.Context) {
	projectID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	uploadID, ok := uintParam(c, "uploadID")
	if !ok {
		return
	}

	status, err := h.uploads.RefreshTranscription(c.Request.Context(), principal(c), projectID, uploadID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, status)
}

// Update edits an upload's metadata.
func (h *UploadHandler) Update(c *gin.Context) {
	projectID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	uploadID, ok := uintParam(c, "uploadID")
	if !ok {
		return
	}
	var req services.UpdateUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	upload, err := h.uploads.UpdateMetadata(principal(c), projectID, uploadID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, upload)
}

// Delete removes the file and its metadata.
func (h *UploadHandler) Delete(c *gin.Context) {
	projectID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	uploadID, ok := uintParam(c, "uploadID")
	if !ok {
		return
	}

	p := principal(c)
	if err := h.uploads.Delete(c.Request.Context(), p, projectID, uploadID); err != nil {
		response.Error(c, err)
		return
	}

	h.logs.Record("info", "upload", "delete", "file deleted", &p.UserID, c.ClientIP())
	response.Success(c, gin.H{"message": "file deleted"})
}
