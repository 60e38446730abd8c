package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ZWieseDev/TaskSenseiOverview/internal/common"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/logger"
)

const (
	RequestIDHeader = "X-Request-ID"
	RequestIDKey    = "request_id"
)

// RequestID propagates the caller's X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func Recovery(log logger.Interface) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Errorw("panic recovered",
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
			"error", recovered,
			"stack", string(debug.Stack()))
		common.Fail(c, http.StatusInternalServerError, "Internal Server Error")
		c.Abort()
	})
}

func Logger(log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if id, ok := c.Get(RequestIDKey); ok {
			args = append(args, "request_id", id)
		}

		status := c.Writer.Status()
		switch {
		case status >= 500:
			log.Errorw("HTTP request completed with server error", args...)
		case status >= 400:
			log.Warnw("HTTP request completed with client error", args...)
		default:
			log.Debugw("HTTP request completed", args...)
		}
	}
}

// CORS allows any origin with credentials, answering preflights with 200.
func CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOriginFunc:           func(string) bool { return true },
		AllowMethods:              []string{"POST", "GET", "PUT", "OPTIONS"},
		AllowHeaders:              []string{"Content-Type", "Authorization", "Stripe-Signature", RequestIDHeader},
		ExposeHeaders:             []string{RequestIDHeader},
		AllowCredentials:          true,
		AllowWebSockets:           true,
		MaxAge:                    12 * time.Hour,
		OptionsResponseStatusCode: http.StatusOK,
	})
}
