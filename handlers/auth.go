package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/courrier-mf/courrier/internal/config"
	"github.com/courrier-mf/courrier/internal/sessions"
	"github.com/courrier-mf/courrier/internal/tokens"
	"github.com/courrier-mf/courrier/internal/users"
	"github.com/courrier-mf/courrier/pkg/logger"
	"github.com/courrier-mf/courrier/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// LoginRequest accepts a username or an email as login.
type LoginRequest struct {
	Login    string `json:"login"`
	Username string `json:"username"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	cfg         *config.Config
	usersSvc    *users.Service
	sessionsSvc *sessions.Service
	blacklist   *sessions.Blacklist
}

func NewAuthHandler(cfg *config.Config, u *users.Service, s *sessions.Service, bl *sessions.Blacklist) *AuthHandler {
	return &AuthHandler{cfg: cfg, usersSvc: u, sessionsSvc: s, blacklist: bl}
}

func (h *AuthHandler) accessTTL() time.Duration {
	if h.cfg.JWT.AccessTokenTTL > 0 {
		return h.cfg.JWT.AccessTokenTTL
	}
	return tokens.DefaultAccessTTL
}

// Register routes under /auth. authn guards logout, which needs the caller's
// access token to revoke it.
func (h *AuthHandler) Register(rg gin.IRouter, authn gin.HandlerFunc) {
	a := rg.Group("/auth")
	a.POST("/login", h.Login)
	a.POST("/refresh", h.Refresh)
	a.POST("/logout", authn, h.Logout)
}

// Login checks local credentials and issues an access token plus a refresh session.
func (h *AuthHandler) Login(c *gin.Context) {
	if h.cfg.JWT.Secret == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "local login is disabled: JWT_SECRET is not set"})
		return
	}
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	login := req.Login
	if login == "" {
		login = req.Username
	}
	u, err := h.usersSvc.Authenticate(c.Request.Context(), login, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		logger.Errorf("login lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	rft, err := h.sessionsSvc.CreateSession(c.Request.Context(), u.ID, h.cfg.JWT.RefreshTokenTTL)
	if err != nil {
		logger.Errorf("failed to create session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	access, err := tokens.GenerateAccessToken(h.cfg, u, h.accessTTL())
	if err != nil {
		logger.Errorf("failed to sign access token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create access token"})
		return
	}
	logger.Infof("user %s logged in", u.Username)
	c.JSON(http.StatusOK, gin.H{
		"accessToken":  access,
		"refreshToken": rft,
		"expiresIn":    int(h.accessTTL().Seconds()),
		"user":         u,
	})
}

// Refresh rotates the refresh token and returns a new access token.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, next, err := h.sessionsSvc.Rotate(c.Request.Context(), req.RefreshToken, h.cfg.JWT.RefreshTokenTTL)
	if err != nil {
		if errors.Is(err, sessions.ErrInvalidRefresh) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
			return
		}
		logger.Errorf("refresh failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh failed"})
		return
	}
	u, err := h.usersSvc.Get(c.Request.Context(), sess.UserID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			_ = h.sessionsSvc.DeleteRefresh(c.Request.Context(), next)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user no longer exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user lookup failed"})
		return
	}
	access, err := tokens.GenerateAccessToken(h.cfg, u, h.accessTTL())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create access token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessToken": access, "refreshToken": next, "expiresIn": int(h.accessTTL().Seconds())})
}

// Logout removes the caller's refresh session and blacklists the caller's
// access token for the rest of its lifetime. A refresh token owned by another
// user is refused and left untouched.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	claims := middleware.Claims(c)
	sess, err := h.sessionsSvc.ValidateRefresh(ctx, req.RefreshToken)
	switch {
	case errors.Is(err, sessions.ErrInvalidRefresh):
		sess = nil
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session lookup failed"})
		return
	default:
		if uid, _ := claims["uid"].(string); uid == "" || uid != sess.UserID {
			c.JSON(http.StatusForbidden, gin.H{"error": "refresh token belongs to another user"})
			return
		}
	}
	if at := c.GetString(middleware.TokenKey); at != "" {
		ttl := tokens.RemainingTTL(claims, time.Now())
		if err := h.blacklist.Add(ctx, at, ttl); err != nil {
			logger.Errorf("failed to blacklist access token: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to blacklist access token"})
			return
		}
	}
	if sess != nil {
		if err := h.sessionsSvc.DeleteRefresh(ctx, sess.RefreshToken); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove session"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
