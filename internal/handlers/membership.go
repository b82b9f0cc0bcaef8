package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/peerhub/peerhub/internal/services"
	"github.com/peerhub/peerhub/pkg/response"
)

type MembershipHandler struct {
	memberships *services.MembershipService
	logs        *services.SystemLogService
}

func NewMembershipHandler(memberships *services.MembershipService, logs *services.SystemLogService) *MembershipHandler {
	return &MembershipHandler{memberships: memberships, logs: logs}
}

// Request files a join request for the caller.
func (h *MembershipHandler) Request(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	p := principal(c)
	if err := h.memberships.Request(p, id); err != nil {
		response.Error(c, err)
		return
	}

	h.logs.Record("info", "membership", "join_request",
		"join requested for project "+strconv.FormatUint(uint64(id), 10),
		&p.UserID, c.ClientIP())
	response.Created(c, gin.H{"status": "pending"})
}

// Approve accepts a join request.
func (h *MembershipHandler) Approve(c *gin.Context) {
	id, ok := uintParam(c, "requestID")
	if !ok {
		return
	}

	if err := h.memberships.Approve(principal(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"status": "accepted"})
}

// Deny rejects a join request.
func (h *MembershipHandler) Deny(c *gin.Context) {
	id, ok := uintParam(c, "requestID")
	if !ok {
		return
	}

	if err := h.memberships.Deny(principal(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"status": "denied"})
}

// Leave removes the caller from the project.
func (h *MembershipHandler) Leave(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	p := principal(c)
	if err := h.memberships.Leave(p, id); err != nil {
		response.Error(c, err)
		return
	}

	h.logs.Record("info", "membership", "leave",
		"left project "+strconv.FormatUint(uint64(id), 10), &p.UserID, c.ClientIP())
	response.Success(c, gin.H{"message": "left the project"})
}

// Requests lists a project's pending join requests for its owner.
func (h *MembershipHandler) Requests(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	requests, err := h.memberships.PendingForProject(principal(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, requests)
}

// Members lists a project's members and join dates.
func (h *MembershipHandler) Members(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	members, err := h.memberships.Members(principal(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, members)
}
