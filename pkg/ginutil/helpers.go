package ginutil

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// QueryInt extracts an integer from query parameters with default value
func QueryInt(c *gin.Context, key string, defaultValue int) int {
	valueStr := c.Query(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// ParamID extracts a trimmed, non-empty string ID from path parameters
func ParamID(c *gin.Context, key string) (string, bool) {
	id := strings.TrimSpace(c.Param(key))
	return id, id != ""
}
