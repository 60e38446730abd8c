package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZWieseDev/TaskSenseiOverview/internal/auth"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/billing"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/common"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/httpapi/handlers"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/logger"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/profile"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeLogin struct {
	res *auth.LoginResult
	err error
}

func (f *fakeLogin) Login(_ context.Context, code, verifier string) (*auth.LoginResult, error) {
	if code == "" || verifier == "" {
		return nil, common.BadRequest("Missing authorization code or verifier")
	}
	return f.res, f.err
}

func (f *fakeLogin) AuthCodeURL(state string) (string, string, error) {
	return "https://idp.example.com/authorize?state=" + state, "verifier", nil
}

type tokenStub struct{}

func (tokenStub) Validate(_ context.Context, token string) (string, error) {
	if token == "good" {
		return "u1", nil
	}
	return "", auth.ErrInvalidCredential
}

type nopDirectory struct{ got map[string]string }

func (d *nopDirectory) UpdateAttributes(_ context.Context, _ string, attrs map[string]string) error {
	d.got = attrs
	return nil
}

type nopExtra struct{}

func (nopExtra) UpdateExtraData(context.Context, string, []byte) error { return nil }

type okPresigner struct{}

func (okPresigner) PresignPut(_ context.Context, key string, _ int64, _ time.Duration) (string, error) {
	return "https://signed/" + key, nil
}

func (okPresigner) PresignDelete(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://signed/" + key, nil
}

type nopAudit struct{}

func (nopAudit) Record(context.Context, storage.AuditEntry) error { return nil }

type fixedCheckout struct{}

func (fixedCheckout) CreateCheckout(context.Context, string, string) (string, error) {
	return "cs_123", nil
}

type memSubscriptions struct{ users []string }

func (m *memSubscriptions) UpdateSubscription(_ context.Context, userID, _, _ string) error {
	m.users = append(m.users, userID)
	return nil
}

type testDeps struct {
	login *fakeLogin
	dir   *nopDirectory
	subs  *memSubscriptions
}

func newTestRouter() (*gin.Engine, *testDeps) {
	log := logger.Discard()
	deps := &testDeps{
		login: &fakeLogin{res: &auth.LoginResult{
			UserID:       "alice",
			Email:        "alice@example.com",
			Redirect:     "http://localhost/dashboard",
			AccessToken:  "access",
			RefreshToken: "refresh",
		}},
		dir:  &nopDirectory{},
		subs: &memSubscriptions{},
	}
	h := handlers.NewHandler(
		deps.login,
		profile.NewService(tokenStub{}, deps.dir, nopExtra{}),
		storage.NewService(okPresigner{}, nopAudit{}, time.Hour, log),
		billing.NewService(fixedCheckout{}, deps.subs, "", log),
		log,
	)
	return NewRouter(h, nil, log), deps
}

func do(r http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestRouting(t *testing.T) {
	r, _ := newTestRouter()

	for _, path := range []string{"/auth", "/nowhere"} {
		w := do(r, http.MethodOptions, path, "")
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.JSONEq(t, `{}`, w.Body.String(), path)
	}

	w := do(r, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = do(r, http.MethodPost, "/nowhere", "{}")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Resource Not Found"}`, w.Body.String())

	w = do(r, http.MethodGet, "/auth", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.JSONEq(t, `{"error":"Method Not Allowed"}`, w.Body.String())
}

func TestCORSHeaders(t *testing.T) {
	r, _ := newTestRouter()

	w := do(r, http.MethodPost, "/billing/checkout", `{"user_id":"u1"}`, "Origin", "https://app.example.com")
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	w = do(r, http.MethodOptions, "/profile", "",
		"Origin", "https://app.example.com",
		"Access-Control-Request-Method", "PUT")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PUT")
}

func TestLoginExchange(t *testing.T) {
	r, deps := newTestRouter()

	w := do(r, http.MethodPost, "/auth", `{"authorization_code":"c","code_verifier":"v"}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Login successful", body["message"])
	assert.Equal(t, "alice", body["user_id"])
	assert.Equal(t, "refresh", body["refresh_token"])

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 2)
	assert.Equal(t, "refresh_token", cookies[0].Name)
	assert.Equal(t, "has_refresh_token", cookies[1].Name)
	for _, ck := range cookies {
		assert.Equal(t, 2592000, ck.MaxAge)
		assert.True(t, ck.Secure)
		assert.Equal(t, http.SameSiteNoneMode, ck.SameSite)
		assert.Equal(t, "/", ck.Path)
	}

	w = do(r, http.MethodPost, "/auth", `{"authorization_code":"c"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Missing authorization code or verifier"}`, w.Body.String())

	deps.login.res, deps.login.err = nil, &common.Error{Kind: common.KindUnauthorized, Message: "Invalid ID token", Err: errors.New("bad sig")}
	w = do(r, http.MethodPost, "/auth", `{"authorization_code":"c","code_verifier":"v"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid ID token"}`, w.Body.String())
	assert.Empty(t, w.Result().Cookies())
}

func TestLoginWithoutRefreshTokenSetsNoCookies(t *testing.T) {
	r, deps := newTestRouter()
	deps.login.res.RefreshToken = ""

	w := do(r, http.MethodPost, "/auth", `{"authorization_code":"c","code_verifier":"v"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Result().Cookies())
	_, has := decode(t, w)["refresh_token"]
	assert.False(t, has)
}

func TestAuthorizeURL(t *testing.T) {
	r, _ := newTestRouter()

	w := do(r, http.MethodGet, "/auth/pkce?state=abc", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "abc", body["state"])
	assert.Equal(t, "verifier", body["code_verifier"])
}

func TestUpdateProfile(t *testing.T) {
	r, deps := newTestRouter()

	w := do(r, http.MethodPut, "/profile", `{"name":"A"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Unauthorized - Missing Token"}`, w.Body.String())

	w = do(r, http.MethodPut, "/profile", `{"name":"A"}`, "Authorization", "Bearer nope")
	assert.JSONEq(t, `{"error":"Invalid token"}`, w.Body.String())

	w = do(r, http.MethodPut, "/profile", `{"role":"admin"}`, "Authorization", "good")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"No valid fields to update."}`, w.Body.String())

	w = do(r, http.MethodPost, "/profile", `{"name":"A","email":"a@b.c"}`, "Authorization", "Bearer good")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"User profile updated successfully!"}`, w.Body.String())
	assert.Equal(t, map[string]string{"name": "A", "email": "a@b.c"}, deps.dir.got)
}

func TestPresignFile(t *testing.T) {
	r, _ := newTestRouter()

	w := do(r, http.MethodPost, "/files/presign", `{"user_id":"u1","filename":"malware.exe"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"File type not allowed."}`, w.Body.String())

	w = do(r, http.MethodPost, "/files/presign", `{"user_id":"u1","filename":"notes.txt","file_size":12}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"presigned_url":"https://signed/UserData/u1/notes.txt","expires_in":3600}`, w.Body.String())
}

func TestBilling(t *testing.T) {
	r, deps := newTestRouter()

	w := do(r, http.MethodPost, "/billing/checkout", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Missing user_id"}`, w.Body.String())

	w = do(r, http.MethodPost, "/billing/checkout", `{"user_id":"u1"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"sessionId":"cs_123"}`, w.Body.String())

	w = do(r, http.MethodPost, "/billing/webhook",
		`{"type":"checkout.session.completed","data":{"object":{"status":"paid","metadata":{"user_id":"u1","plan":"pro"}}}}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Webhook processed successfully"}`, w.Body.String())
	assert.Equal(t, []string{"u1"}, deps.subs.users)
}
