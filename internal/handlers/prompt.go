package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/peerhub/peerhub/internal/services"
	"github.com/peerhub/peerhub/pkg/response"
)

type PromptHandler struct {
	prompts *services.PromptService
}

func NewPromptHandler(prompts *services.PromptService) *PromptHandler {
	return &PromptHandler{prompts: prompts}
}

type promptContent struct {
	Content string `json:"content" binding:"required"`
}

// List returns an upload's discussion threads.
func (h *PromptHandler) List(c *gin.Context) {
	uploadID, ok := uintParam(c, "uploadID")
	if !ok {
		return
	}

	prompts, err := h.prompts.ListForUpload(principal(c), uploadID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, prompts)
}

// Create opens a new thread on an upload.
func (h *PromptHandler) Create(c *gin.Context) {
	uploadID, ok := uintParam(c, "uploadID")
	if !ok {
		return
	}
	var req promptContent
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	prompt, err := h.prompts.CreatePrompt(principal(c), uploadID, req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, prompt)
}

// Respond adds a reply to a thread.
func (h *PromptHandler) Respond(c *gin.Context) {
	promptID, ok := uintParam(c, "promptID")
	if !ok {
		return
	}
	var req promptContent
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	reply, err := h.prompts.CreateResponse(principal(c), promptID, req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reply)
}

// Delete removes a thread the caller created.
func (h *PromptHandler) Delete(c *gin.Context) {
	promptID, ok := uintParam(c, "promptID")
	if !ok {
		return
	}

	if err := h.prompts.DeletePrompt(principal(c), promptID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "prompt deleted"})
}

// DeleteResponse removes a reply the caller created.
func (h *PromptHandler) DeleteResponse(c *gin.Context) {
	responseID, ok := uintParam(c, "responseID")
	if !ok {
		return
	}

	if err := h.prompts.DeleteResponse(principal(c), responseID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "response deleted"})
}
