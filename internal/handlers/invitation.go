package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/peerhub/peerhub/internal/services"
	"github.com/peerhub/peerhub/pkg/response"
)

type InvitationHandler struct {
	invitations *services.InvitationService
}

func NewInvitationHandler(invitations *services.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitations: invitations}
}

type inviteRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

// Invite sends an invitation on one of the caller's projects.
func (h *InvitationHandler) Invite(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	invitation, err := h.invitations.Invite(principal(c), id, req.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, invitation)
}

type respondRequest struct {
	Action string `json:"action" binding:"required"` // accept or decline
}

// Respond answers an invitation addressed to the caller.
func (h *InvitationHandler) Respond(c *gin.Context) {
	id, ok := uintParam(c, "invitationID")
	if !ok {
		return
	}
	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	var accept bool
	switch req.Action {
	case "accept":
		accept = true
	case "decline":
		accept = false
	default:
		response.BadRequest(c, "action must be accept or decline")
		return
	}

	result, err := h.invitations.Respond(principal(c), id, accept)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Mine lists the caller's open invitations.
func (h *InvitationHandler) Mine(c *gin.Context) {
	invitations, err := h.invitations.PendingForUser(principal(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, invitations)
}

// ForProject lists the open invitations the owner has sent.
func (h *InvitationHandler) ForProject(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	invitations, err := h.invitations.PendingForProject(principal(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, invitations)
}
