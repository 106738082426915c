package respond

import (
	"github.com/gin-gonic/gin"

	"registration-backend/internal/shared/telemetry"
)

// Error sends {"error": message} merged with any extra fields, and logs the
// response. code is a machine label used only in logs and metrics.
func Error(c *gin.Context, status int, code, message string, extra map[string]any) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if status >= 500 {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	body := gin.H{"error": message}
	for k, v := range extra {
		if k == "error" {
			continue
		}
		body[k] = v
	}
	c.AbortWithStatusJSON(status, body)
}
