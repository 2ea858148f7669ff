package middleware

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestRequestLogger_PassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusAccepted) })
	r.GET("/fail", func(c *gin.Context) {
		_ = c.Error(http.ErrAbortHandler)
		c.Status(http.StatusInternalServerError)
	})

	require.Equal(t, http.StatusAccepted, hit(r, "/ok"))
	require.Equal(t, http.StatusInternalServerError, hit(r, "/fail"))
	require.Equal(t, http.StatusNotFound, hit(r, "/missing"))
}
