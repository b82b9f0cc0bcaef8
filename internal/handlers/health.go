package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/peerhub/peerhub/pkg/response"
)

// Health is the liveness probe.
func Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}
