package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/courrier-mf/courrier/internal/config"
	"github.com/courrier-mf/courrier/internal/sessions"
	"github.com/courrier-mf/courrier/internal/tokens"
	"github.com/courrier-mf/courrier/internal/users"
	"github.com/courrier-mf/courrier/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authFixture struct {
	r        *gin.Engine
	cfg      *config.Config
	users    *users.Service
	sessions *sessions.Service
	redis    *mr.Miniredis
	password string
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)

	cfg := &config.Config{JWT: config.JWTConfig{Secret: "test-secret", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour}}
	usvc := users.NewService(users.NewMemoryUserRepository())
	_, password, err := usvc.Create(context.Background(), users.CreateInput{FirstName: "Jean", LastName: "Dupont", Email: "jean@example.com"})
	require.NoError(t, err)
	ssvc := sessions.NewService(sessions.NewMemoryRepository())

	bl := sessions.NewBlacklist(redis.NewClient(&redis.Options{Addr: m.Addr()}))
	ver, err := tokens.NewVerifier(cfg.JWT.Secret)
	require.NoError(t, err)
	authn := middleware.AuthMiddleware(ver, bl)

	r := gin.New()
	NewAuthHandler(cfg, usvc, ssvc, bl).Register(r, authn)
	r.GET("/protected", authn, func(c *gin.Context) { c.Status(http.StatusOK) })

	return &authFixture{r: r, cfg: cfg, users: usvc, sessions: ssvc, redis: m, password: password}
}

func (f *authFixture) post(path, token string, body interface{}) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	return w
}

func (f *authFixture) get(path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	return w
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

func decodePair(t *testing.T, w *httptest.ResponseRecorder) tokenPair {
	t.Helper()
	var p tokenPair
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	return p
}

func TestLoginSuccess(t *testing.T) {
	f := newAuthFixture(t)

	w := f.post("/auth/login", "", map[string]string{"login": "jean.dupont", "password": f.password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	p := decodePair(t, w)
	assert.NotEmpty(t, p.AccessToken)
	assert.NotEmpty(t, p.RefreshToken)
	assert.Equal(t, 60, p.ExpiresIn)
	assert.NotContains(t, w.Body.String(), "passwordHash")

	assert.Equal(t, http.StatusOK, f.get("/protected", p.AccessToken).Code)

	// legacy field name and email login
	w = f.post("/auth/login", "", map[string]string{"username": "jean@example.com", "password": f.password})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginFailures(t *testing.T) {
	f := newAuthFixture(t)

	w := f.post("/auth/login", "", map[string]string{"login": "jean.dupont", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.post("/auth/login", "", map[string]string{"login": "jean.dupont"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.cfg.JWT.Secret = ""
	w = f.post("/auth/login", "", map[string]string{"login": "jean.dupont", "password": f.password})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRefreshRotates(t *testing.T) {
	f := newAuthFixture(t)
	first := decodePair(t, f.post("/auth/login", "", map[string]string{"login": "jean.dupont", "password": f.password}))

	w := f.post("/auth/refresh", "", map[string]string{"refreshToken": first.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	next := decodePair(t, w)
	assert.NotEqual(t, first.RefreshToken, next.RefreshToken)
	assert.Equal(t, http.StatusOK, f.get("/protected", next.AccessToken).Code)

	// the old refresh token is single-use
	w = f.post("/auth/refresh", "", map[string]string{"refreshToken": first.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.post("/auth/refresh", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefreshForDeletedUser(t *testing.T) {
	f := newAuthFixture(t)
	p := decodePair(t, f.post("/auth/login", "", map[string]string{"login": "jean.dupont", "password": f.password}))

	u, err := f.users.Authenticate(context.Background(), "jean.dupont", f.password)
	require.NoError(t, err)
	require.NoError(t, f.users.Delete(context.Background(), u.ID))

	w := f.post("/auth/refresh", "", map[string]string{"refreshToken": p.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutRevokesTokens(t *testing.T) {
	f := newAuthFixture(t)
	p := decodePair(t, f.post("/auth/login", "", map[string]string{"login": "jean.dupont", "password": f.password}))

	w := f.post("/auth/logout", "", map[string]string{"refreshToken": p.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.post("/auth/logout", p.AccessToken, map[string]string{"refreshToken": p.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	ttl := f.redis.TTL("courrier:blacklist:access:" + p.AccessToken)
	assert.True(t, ttl > 0 && ttl <= time.Minute, "unexpected blacklist ttl %s", ttl)

	assert.Equal(t, http.StatusUnauthorized, f.get("/protected", p.AccessToken).Code)
	w = f.post("/auth/refresh", "", map[string]string{"refreshToken": p.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutKeepsOtherUsersSession(t *testing.T) {
	f := newAuthFixture(t)
	_, otherPassword, err := f.users.Create(context.Background(), users.CreateInput{FirstName: "Amina", LastName: "Benali"})
	require.NoError(t, err)

	victim := decodePair(t, f.post("/auth/login", "", map[string]string{"login": "jean.dupont", "password": f.password}))
	caller := decodePair(t, f.post("/auth/login", "", map[string]string{"login": "amina.benali", "password": otherPassword}))

	w := f.post("/auth/logout", caller.AccessToken, map[string]string{"refreshToken": victim.RefreshToken})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, http.StatusOK, f.get("/protected", caller.AccessToken).Code)

	w = f.post("/auth/refresh", "", map[string]string{"refreshToken": victim.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// an unknown refresh token still ends the caller's access token
	w = f.post("/auth/logout", caller.AccessToken, map[string]string{"refreshToken": "gone"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusUnauthorized, f.get("/protected", caller.AccessToken).Code)
	w = f.post("/auth/refresh", "", map[string]string{"refreshToken": caller.RefreshToken})
	assert.Equal(t, http.StatusOK, w.Code)
}
