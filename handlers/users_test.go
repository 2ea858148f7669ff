package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/courrier-mf/courrier/internal/config"
	"github.com/courrier-mf/courrier/internal/models"
	"github.com/courrier-mf/courrier/internal/tokens"
	"github.com/courrier-mf/courrier/internal/users"
	"github.com/courrier-mf/courrier/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tokenCfg = &config.Config{JWT: config.JWTConfig{Secret: "users-secret"}}

func userRouter(t *testing.T, guarded bool) (*gin.Engine, *users.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := users.NewService(users.NewMemoryUserRepository())
	ver, err := tokens.NewVerifier(tokenCfg.JWT.Secret)
	require.NoError(t, err)
	authn := middleware.AuthMiddleware(ver, nil)

	r := gin.New()
	var guard []gin.HandlerFunc
	if guarded {
		guard = []gin.HandlerFunc{authn, CurrentUser(svc), RequireAdmin()}
	}
	RegisterUserRoutes(r, svc, guard...)
	RegisterMeRoutes(r, svc, authn)
	return r, svc
}

func send(r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func accessFor(t *testing.T, u *models.User) string {
	t.Helper()
	tok, err := tokens.GenerateAccessToken(tokenCfg, u, time.Minute)
	require.NoError(t, err)
	return tok
}

func TestUserAdminRoutes(t *testing.T) {
	r, _ := userRouter(t, false)

	w := send(r, http.MethodPost, "/api/users", "", map[string]string{"firstName": "Jean", "lastName": "Dupont", "email": "jean@example.com"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		User     models.User `json:"user"`
		Password string      `json:"password"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "jean.dupont", created.User.Username)
	assert.Len(t, created.Password, users.PasswordLength)
	id := created.User.ID

	w = send(r, http.MethodPost, "/api/users", "", map[string]string{"firstName": "jean", "lastName": "DUPONT"})
	assert.Equal(t, http.StatusConflict, w.Code)
	w = send(r, http.MethodPost, "/api/users", "", map[string]string{"firstName": "Jean", "lastName": "Dupont", "role": "root"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = send(r, http.MethodGet, "/api/users", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	w = send(r, http.MethodPatch, "/api/users/"+id, "", map[string]string{"firstName": "Jeanne", "lastName": "Dupont", "role": models.RoleAdmin})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"username":"jeanne.dupont"`)
	assert.Contains(t, w.Body.String(), `"role":"admin"`)

	w = send(r, http.MethodPost, "/api/users/"+id+"/reset-password", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), created.Password)

	w = send(r, http.MethodDelete, "/api/users/"+id, "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = send(r, http.MethodGet, "/api/users/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUserAdminRoutesGuarded(t *testing.T) {
	r, svc := userRouter(t, true)
	ctx := context.Background()
	admin, _, err := svc.Create(ctx, users.CreateInput{FirstName: "Ada", LastName: "Admin", Role: models.RoleAdmin})
	require.NoError(t, err)
	op, _, err := svc.Create(ctx, users.CreateInput{FirstName: "Omar", LastName: "Operator"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, send(r, http.MethodGet, "/api/users", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, send(r, http.MethodGet, "/api/users", accessFor(t, op), nil).Code)
	assert.Equal(t, http.StatusOK, send(r, http.MethodGet, "/api/users", accessFor(t, admin), nil).Code)

	w := send(r, http.MethodDelete, "/api/users/"+admin.ID, accessFor(t, admin), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = send(r, http.MethodDelete, "/api/users/"+op.ID, accessFor(t, admin), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestUserPatchRejectsRoleWithoutSaving(t *testing.T) {
	r, svc := userRouter(t, false)
	u, _, err := svc.Create(context.Background(), users.CreateInput{FirstName: "Jean", LastName: "Dupont", Email: "jean@example.com"})
	require.NoError(t, err)

	w := send(r, http.MethodPatch, "/api/users/"+u.ID, "", map[string]string{"firstName": "Jeanne", "lastName": "Martin", "role": "root"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = send(r, http.MethodGet, "/api/users/"+u.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"jean.dupont"`)
	assert.Contains(t, w.Body.String(), `"email":"jean@example.com"`)
	assert.Contains(t, w.Body.String(), `"role":"operator"`)
}

func TestCurrentUserProvisioning(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := users.NewService(users.NewMemoryUserRepository())
	_, _, err := svc.Create(context.Background(), users.CreateInput{FirstName: "Amina", LastName: "Benali"})
	require.NoError(t, err)

	resolve := func(claims map[string]interface{}) *httptest.ResponseRecorder {
		r := gin.New()
		r.GET("/me", func(c *gin.Context) {
			c.Set(middleware.ClaimsKey, claims)
			c.Next()
		}, CurrentUser(svc), func(c *gin.Context) {
			c.JSON(http.StatusOK, currentUser(c))
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
		return w
	}

	w := resolve(map[string]interface{}{"sub": "kc-42"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"username":"kc-42"`)

	w = resolve(map[string]interface{}{"sub": "amina.benali", "given_name": "Amina", "family_name": "Benali"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestMeRoutes(t *testing.T) {
	r, svc := userRouter(t, false)
	u, password, err := svc.Create(context.Background(), users.CreateInput{FirstName: "Jean", LastName: "Dupont"})
	require.NoError(t, err)
	tok := accessFor(t, u)

	assert.Equal(t, http.StatusUnauthorized, send(r, http.MethodGet, "/api/v1/me", "", nil).Code)

	w := send(r, http.MethodGet, "/api/v1/me", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"jean.dupont"`)

	w = send(r, http.MethodPatch, "/api/v1/me", tok, map[string]string{"firstName": "Jean", "lastName": "Martin", "email": "jm@example.com"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"username":"jean.martin"`)

	w = send(r, http.MethodPost, "/api/v1/me/password", tok, map[string]string{"currentPassword": "nope", "newPassword": "longenough"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = send(r, http.MethodPost, "/api/v1/me/password", tok, map[string]string{"currentPassword": password, "newPassword": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = send(r, http.MethodPost, "/api/v1/me/password", tok, map[string]string{"currentPassword": password, "newPassword": "longenough"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	_, err = svc.Authenticate(context.Background(), "jean.martin", "longenough")
	assert.NoError(t, err)
}

func TestUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", Unavailable("authentication is not configured"), func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "not configured")
}
