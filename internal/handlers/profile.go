package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/peerhub/peerhub/internal/services"
	"github.com/peerhub/peerhub/pkg/response"
)

type ProfileHandler struct {
	profiles *services.ProfileService
	users    *services.UserService
}

func NewProfileHandler(profiles *services.ProfileService, users *services.UserService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, users: users}
}

// Get shows a user's profile page.
func (h *ProfileHandler) Get(c *gin.Context) {
	userID, ok := uintParam(c, "userID")
	if !ok {
		return
	}

	page, err := h.profiles.Get(principal(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, page)
}

// Me shows the caller's own profile.
func (h *ProfileHandler) Me(c *gin.Context) {
	p := principal(c)
	page, err := h.profiles.Get(p, p.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, page)
}

// Update edits the caller's account and profile fields.
func (h *ProfileHandler) Update(c *gin.Context) {
	var req services.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	page, err := h.profiles.Update(principal(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, page)
}

// Search finds invitable users for the invitation picker.
func (h *ProfileHandler) Search(c *gin.Context) {
	projectID, _ := strconv.ParseUint(c.DefaultQuery("project_id", "0"), 10, 32)

	users, err := h.users.Search(principal(c), c.Query("q"), uint(projectID))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, users)
}
