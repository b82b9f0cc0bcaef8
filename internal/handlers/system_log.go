package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/peerhub/peerhub/internal/services"
	"github.com/peerhub/peerhub/pkg/response"
)

type SystemLogHandler struct {
	logs *services.SystemLogService
}

func NewSystemLogHandler(logs *services.SystemLogService) *SystemLogHandler {
	return &SystemLogHandler{logs: logs}
}

// List pages through the audit trail. Admin only, enforced by the route.
func (h *SystemLogHandler) List(c *gin.Context) {
	var query services.ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "invalid query parameters")
		return
	}

	logs, total, err := h.logs.List(&query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"items": logs, "total": total})
}
