package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/peerhub/peerhub/internal/services"
	"github.com/peerhub/peerhub/pkg/response"
)

type MessageHandler struct {
	messages *services.MessageService
}

func NewMessageHandler(messages *services.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

type messageContent struct {
	Content string `json:"content" binding:"required"`
}

// Create posts a chat message.
func (h *MessageHandler) Create(c *gin.Context) {
	projectID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req messageContent
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	message, err := h.messages.Create(principal(c), projectID, req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, message)
}

// List returns the chat history; pass after=<id> to poll for new messages.
func (h *MessageHandler) List(c *gin.Context) {
	projectID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	after, _ := strconv.ParseUint(c.DefaultQuery("after", "0"), 10, 32)

	messages, err := h.messages.List(principal(c), projectID, uint(after))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, messages)
}
