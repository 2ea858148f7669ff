package handlers

import (
	"errors"
	"net/http"

	"github.com/courrier-mf/courrier/internal/models"
	"github.com/courrier-mf/courrier/internal/users"
	"github.com/courrier-mf/courrier/pkg/logger"
	"github.com/courrier-mf/courrier/pkg/middleware"
	"github.com/gin-gonic/gin"
)

const userKey = "user"

type profileRequest struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Email     string `json:"email"`
}

type userUpdateRequest struct {
	profileRequest
	Role string `json:"role"`
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

// Unavailable answers every request with 503 and msg. It stands in for
// authentication when no verifier is configured.
func Unavailable(msg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": msg})
	}
}

func writeUserError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, users.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	case errors.Is(err, users.ErrUsernameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, users.ErrInvalidInput), errors.Is(err, users.ErrWeakPassword):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, users.ErrInvalidCredentials):
		c.JSON(http.StatusForbidden, gin.H{"error": "current password is incorrect"})
	default:
		logger.Errorf("user request %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// CurrentUser resolves the verified claims to a stored user and keeps it on
// the context. It must run after middleware.AuthMiddleware.
func CurrentUser(svc *users.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := middleware.Claims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		u, err := svc.FromClaims(c.Request.Context(), claims)
		if err != nil {
			switch {
			case errors.Is(err, users.ErrNotFound):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
				return
			case errors.Is(err, users.ErrUsernameTaken):
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "username already taken"})
				return
			}
			logger.Errorf("resolve user from claims: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "user lookup failed"})
			return
		}
		c.Set(userKey, u)
		c.Next()
	}
}

// RequireAdmin rejects callers that are not administrators. It must run after
// CurrentUser.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentUser(c).IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "administrator role required"})
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

// RegisterUserRoutes mounts user administration under /api/users. guard runs
// before every handler; pass none to leave the routes open.
func RegisterUserRoutes(r gin.IRouter, svc *users.Service, guard ...gin.HandlerFunc) {
	g := r.Group("/api/users", guard...)

	g.GET("", func(c *gin.Context) {
		list, err := svc.List(c.Request.Context())
		if err != nil {
			writeUserError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})

	g.POST("", func(c *gin.Context) {
		var req users.CreateInput
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		u, password, err := svc.Create(c.Request.Context(), req)
		if err != nil {
			writeUserError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"user": u, "password": password})
	})

	g.GET("/:id", func(c *gin.Context) {
		u, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeUserError(c, err)
			return
		}
		c.JSON(http.StatusOK, u)
	})

	g.PATCH("/:id", func(c *gin.Context) {
		var req userUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		u, err := svc.Edit(c.Request.Context(), c.Param("id"), users.CreateInput{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Role:      req.Role,
		})
		if err != nil {
			writeUserError(c, err)
			return
		}
		c.JSON(http.StatusOK, u)
	})

	g.DELETE("/:id", func(c *gin.Context) {
		if me := currentUser(c); me != nil && me.ID == c.Param("id") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot delete your own account"})
			return
		}
		if err := svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
			writeUserError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	g.POST("/:id/reset-password", func(c *gin.Context) {
		password, err := svc.ResetPassword(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeUserError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"password": password})
	})
}

// RegisterMeRoutes mounts the profile endpoints under /api/v1/me. authn must
// verify the bearer token.
func RegisterMeRoutes(r gin.IRouter, svc *users.Service, authn gin.HandlerFunc) {
	me := r.Group("/api/v1/me", authn, CurrentUser(svc))

	me.GET("", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": currentUser(c)})
	})

	me.PATCH("", func(c *gin.Context) {
		var req profileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		u, err := svc.Update(c.Request.Context(), currentUser(c).ID, req.FirstName, req.LastName, req.Email)
		if err != nil {
			writeUserError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": u})
	})

	me.POST("/password", func(c *gin.Context) {
		var req passwordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := svc.ChangePassword(c.Request.Context(), currentUser(c).ID, req.CurrentPassword, req.NewPassword); err != nil {
			writeUserError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}
