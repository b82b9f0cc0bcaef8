package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/peerhub/peerhub/internal/services"
	"github.com/peerhub/peerhub/pkg/response"
)

type AuthHandler struct {
	auth *services.AuthService
	logs *services.SystemLogService
}

func NewAuthHandler(auth *services.AuthService, logs *services.SystemLogService) *AuthHandler {
	return &AuthHandler{auth: auth, logs: logs}
}

// Register creates a local account.
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	user, err := h.auth.Register(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.logs.Record("info", "auth", "register", "user registered: "+user.Username,
		&user.ID, c.ClientIP())
	response.Created(c, user)
}

// Login exchanges credentials for a token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	result, err := h.auth.Login(&req)
	if err != nil {
		h.logs.Record("warning", "auth", "login_failed", "failed login for "+req.Username,
			nil, c.ClientIP())
		response.Error(c, err)
		return
	}

	h.logs.Record("info", "auth", "login", "user logged in: "+result.User.Username,
		&result.User.ID, c.ClientIP())
	response.Success(c, result)
}

// Me returns the authenticated account.
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.auth.Me(principal(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, user)
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ChangePassword updates the caller's password.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	if err := h.auth.ChangePassword(principal(c), req.OldPassword, req.NewPassword); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "password changed"})
}
