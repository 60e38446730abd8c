package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ZWieseDev/TaskSenseiOverview/internal/common"
)

const refreshCookieMaxAge = 30 * 24 * 60 * 60

type loginReq struct {
	AuthorizationCode string `json:"authorization_code"`
	CodeVerifier      string `json:"code_verifier"`
}

// LoginExchange trades a PKCE authorization code for tokens.
func (h *Handler) LoginExchange(c *gin.Context) {
	var req loginReq
	_ = c.ShouldBindJSON(&req) // malformed bodies fall through to the missing-input check

	res, err := h.Login.Login(c.Request.Context(), req.AuthorizationCode, req.CodeVerifier)
	if err != nil {
		h.fail(c, err)
		return
	}

	body := gin.H{
		"message":      "Login successful",
		"user_id":      res.UserID,
		"email":        res.Email,
		"redirect":     res.Redirect,
		"access_token": res.AccessToken,
	}
	if res.RefreshToken != "" {
		body["refresh_token"] = res.RefreshToken
		c.SetSameSite(http.SameSiteNoneMode)
		c.SetCookie("refresh_token", res.RefreshToken, refreshCookieMaxAge, "/", "", true, false)
		c.SetCookie("has_refresh_token", "true", refreshCookieMaxAge, "/", "", true, false)
	}
	common.OK(c, http.StatusOK, body)
}

// AuthorizeURL starts a PKCE login: the browser keeps code_verifier and
// follows authorize_url.
func (h *Handler) AuthorizeURL(c *gin.Context) {
	state := c.Query("state")
	if state == "" {
		state = uuid.NewString()
	}
	authURL, verifier, err := h.Login.AuthCodeURL(state)
	if err != nil {
		h.fail(c, common.Internal(err))
		return
	}
	common.OK(c, http.StatusOK, gin.H{
		"authorize_url": authURL,
		"code_verifier": verifier,
		"state":         state,
	})
}
