package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/ZWieseDev/TaskSenseiOverview/internal/common"
)

const exchangeTimeout = 30 * time.Second

type LoginConfig struct {
	ClientID     string
	AuthorizeURL string
	TokenURL     string
	RedirectURI  string
	DashboardURL string
}

// LoginResult is what a successful code exchange hands back to the browser.
type LoginResult struct {
	UserID       string
	Email        string
	Redirect     string
	AccessToken  string
	RefreshToken string
}

// LoginFlow exchanges a PKCE authorization code for tokens and validates the
// returned id_token.
type LoginFlow struct {
	oauth        *oauth2.Config
	validator    *Validator
	dashboardURL string
	httpClient   *http.Client
}

func NewLoginFlow(cfg LoginConfig, validator *Validator, httpClient *http.Client) *LoginFlow {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: exchangeTimeout}
	}
	return &LoginFlow{
		oauth: &oauth2.Config{
			ClientID:    cfg.ClientID,
			RedirectURL: cfg.RedirectURI,
			Scopes:      []string{"openid", "email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthorizeURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		validator:    validator,
		dashboardURL: cfg.DashboardURL,
		httpClient:   httpClient,
	}
}

// AuthCodeURL builds the authorize redirect for a fresh PKCE pair. The caller
// keeps the verifier and sends it back with the code.
func (f *LoginFlow) AuthCodeURL(state string) (authURL, codeVerifier string, err error) {
	codeVerifier, codeChallenge, err := GeneratePKCE()
	if err != nil {
		return "", "", err
	}
	authURL = f.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
	return authURL, codeVerifier, nil
}

func (f *LoginFlow) Login(ctx context.Context, authCode, codeVerifier string) (*LoginResult, error) {
	if authCode == "" || codeVerifier == "" {
		return nil, common.BadRequest("Missing authorization code or verifier")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)
	tok, err := f.oauth.Exchange(ctx, authCode, oauth2.SetAuthURLParam("code_verifier", codeVerifier))
	if err != nil {
		return nil, &common.Error{Kind: common.KindUnauthorized, Message: "Invalid authorization code", Err: err}
	}

	idToken, _ := tok.Extra("id_token").(string)
	claims, err := f.validator.ValidateClaims(ctx, idToken)
	if err != nil {
		return nil, &common.Error{Kind: common.KindUnauthorized, Message: "Invalid ID token", Err: err}
	}

	username, _ := claims["cognito:username"].(string)
	if username == "" {
		username, _ = claims["sub"].(string)
	}
	if username == "" {
		return nil, &common.Error{Kind: common.KindUnauthorized, Message: "Invalid ID token", Err: errors.New("id_token has no subject")}
	}
	email, _ := claims["email"].(string)

	return &LoginResult{
		UserID:       username,
		Email:        email,
		Redirect:     f.dashboardURL,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}, nil
}
