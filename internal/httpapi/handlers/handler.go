package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ZWieseDev/TaskSenseiOverview/internal/auth"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/common"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/logger"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/storage"
)

type LoginFlow interface {
	Login(ctx context.Context, authCode, codeVerifier string) (*auth.LoginResult, error)
	AuthCodeURL(state string) (authURL, codeVerifier string, err error)
}

type ProfileUpdater interface {
	Update(ctx context.Context, authHeader string, body []byte) error
}

type Presigner interface {
	Presign(ctx context.Context, req storage.Request) (*storage.Result, error)
}

type Billing interface {
	Checkout(ctx context.Context, userID, plan string) (string, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type Handler struct {
	Login   LoginFlow
	Profile ProfileUpdater
	Files   Presigner
	Billing Billing
	Log     logger.Interface
}

func NewHandler(login LoginFlow, profile ProfileUpdater, files Presigner, billing Billing, log logger.Interface) *Handler {
	return &Handler{
		Login:   login,
		Profile: profile,
		Files:   files,
		Billing: billing,
		Log:     log.Named("http"),
	}
}

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, http.StatusOK, gin.H{"status": "ok"})
}

// Options answers non-preflight OPTIONS requests with an empty object.
func (h *Handler) Options(c *gin.Context) {
	common.OK(c, http.StatusOK, gin.H{})
}

func (h *Handler) fail(c *gin.Context, err error) {
	common.RenderError(c, h.Log, err)
}
