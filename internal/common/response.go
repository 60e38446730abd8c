package common

import (
	"github.com/gin-gonic/gin"

	"github.com/ZWieseDev/TaskSenseiOverview/internal/logger"
)

func OK(c *gin.Context, status int, data any) {
	c.JSON(status, data)
}

// Fail writes {"error": msg}. Every caller-facing error goes through here.
func Fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

// RenderError logs upstream and internal causes, then writes the safe message.
func RenderError(c *gin.Context, log logger.Interface, err error) {
	e := AsError(err)
	if e.Loggable() && log != nil {
		log.Errorw("request failed",
			"path", c.Request.URL.Path,
			"kind", string(e.Kind),
			"error", e.Err,
		)
	}
	Fail(c, e.Status(), e.Message)
}
