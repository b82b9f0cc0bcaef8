package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/peerhub/peerhub/internal/middleware"
	"github.com/peerhub/peerhub/internal/services"
	"github.com/peerhub/peerhub/pkg/response"
)

// principal builds the service-layer caller identity from the request
// context.
func principal(c *gin.Context) services.Principal {
	return services.Principal{
		UserID:  middleware.GetUserID(c),
		IsAdmin: middleware.IsAdmin(c),
	}
}

// uintParam parses a numeric path parameter. On failure it writes the error
// response and reports false.
func uintParam(c *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(value), true
}
