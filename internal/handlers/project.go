package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/peerhub/peerhub/internal/models"
	"github.com/peerhub/peerhub/internal/services"
	"github.com/peerhub/peerhub/pkg/response"
)

type ProjectHandler struct {
	projects   *services.ProjectService
	visibility *services.VisibilityService
	logs       *services.SystemLogService
}

func NewProjectHandler(projects *services.ProjectService, visibility *services.VisibilityService, logs *services.SystemLogService) *ProjectHandler {
	return &ProjectHandler{projects: projects, visibility: visibility, logs: logs}
}

// List is the browse page: every visible project with per-viewer
// annotations, searchable and sortable.
func (h *ProjectHandler) List(c *gin.Context) {
	var req services.BrowseRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters")
		return
	}

	views, err := h.visibility.Browse(principal(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, views)
}

// Get returns one project with the viewer's relationship to it.
func (h *ProjectHandler) Get(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	view, err := h.visibility.View(principal(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}

// Create makes a new project owned by the caller.
func (h *ProjectHandler) Create(c *gin.Context) {
	var req services.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	p := principal(c)
	project, err := h.projects.Create(p, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.logs.Record("info", "project", "create", "project created: "+project.Name,
		&p.UserID, c.ClientIP())
	response.Created(c, project)
}

// Update edits a project.
func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req services.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	project, err := h.projects.Update(principal(c), id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, project)
}

// Delete removes a project and everything stored under it.
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	p := principal(c)
	if err := h.projects.Delete(c.Request.Context(), p, id); err != nil {
		response.Error(c, err)
		return
	}

	h.logs.Record("info", "project", "delete",
		"project deleted: "+strconv.FormatUint(uint64(id), 10), &p.UserID, c.ClientIP())
	response.Success(c, gin.H{"message": "project deleted"})
}

// ToggleUpvote adds or removes the caller's upvote.
func (h *ProjectHandler) ToggleUpvote(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	result, err := h.projects.ToggleUpvote(principal(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Popular lists the most upvoted visible projects.
func (h *ProjectHandler) Popular(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	popular, err := h.projects.Popular(c.Request.Context(), principal(c), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, popular)
}

// Dashboard aggregates the caller's projects and waiting decisions.
func (h *ProjectHandler) Dashboard(c *gin.Context) {
	dash, err := h.projects.Dashboard(principal(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dash)
}

// Categories lists the valid project categories for the creation form.
func (h *ProjectHandler) Categories(c *gin.Context) {
	response.Success(c, models.Categories)
}

// SetAttachment uploads a rubric or guidelines document.
func (h *ProjectHandler) SetAttachment(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	kind := c.Param("kind")

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

	if err := h.projects.SetAttachment(c.Request.Context(), principal(c),
		id, kind, file.Filename, opened); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": kind + " stored"})
}

// GetAttachment presigns the document for viewing.
func (h *ProjectHandler) GetAttachment(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	url, err := h.projects.AttachmentURL(c.Request.Context(), principal(c), id, c.Param("kind"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"url": url})
}

// DeleteAttachment removes the document.
func (h *ProjectHandler) DeleteAttachment(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	if err := h.projects.DeleteAttachment(c.Request.Context(), principal(c), id, c.Param("kind")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "document removed"})
}
