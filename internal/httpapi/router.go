package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ZWieseDev/TaskSenseiOverview/internal/common"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/httpapi/handlers"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/httpapi/middleware"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/logger"
)

// NewRouter mounts the HTTP routes. ws may be nil when realtime is disabled.
func NewRouter(h *handlers.Handler, ws http.Handler, log logger.Interface) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log.Named("access")))
	r.Use(middleware.CORS())

	// OPTIONS is answered from the fallbacks: a catch-all OPTIONS route
	// would turn every unknown path into a 405.
	r.NoRoute(func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			h.Options(c)
			return
		}
		common.RenderError(c, log, common.NotFound("Resource Not Found"))
	})
	r.NoMethod(func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			h.Options(c)
			return
		}
		common.RenderError(c, log, common.MethodNotAllowed("Method Not Allowed"))
	})

	r.GET("/ping", h.Ping)

	// login
	r.POST("/auth", h.LoginExchange)
	r.GET("/auth/pkce", h.AuthorizeURL)

	// profile
	r.PUT("/profile", h.UpdateProfile)
	r.POST("/profile", h.UpdateProfile)

	// files
	r.POST("/files/presign", h.PresignFile)

	// billing
	r.POST("/billing/checkout", h.CreateCheckout)
	r.POST("/billing/webhook", h.PaymentWebhook)

	if ws != nil {
		r.GET("/ws", gin.WrapH(ws))
	}
	return r
}
