package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picokeys/pico-bridge/internal/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupConfirmRouter(t *testing.T, ttl time.Duration) (*gin.Engine, auth.Config) {
	t.Helper()
	config, err := auth.NewConfig(ttl)
	require.NoError(t, err)

	r := gin.New()
	r.POST("/reset", RequireConfirmation(config, auth.ActionFidoReset), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r, config
}

func TestConfirmationRequired(t *testing.T) {
	r, _ := setupConfirmRouter(t, time.Minute)

	req, _ := http.NewRequest("POST", "/reset", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestConfirmationAccepted(t *testing.T) {
	r, config := setupConfirmRouter(t, time.Minute)

	token, err := auth.GenerateToken(config, auth.ActionFidoReset)
	require.NoError(t, err)

	req, _ := http.NewRequest("POST", "/reset", nil)
	req.Header.Set("X-Confirm-Token", token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestConfirmationSingleUse(t *testing.T) {
	r, config := setupConfirmRouter(t, time.Minute)

	token, err := auth.GenerateToken(config, auth.ActionFidoReset)
	require.NoError(t, err)

	for i, want := range []int{http.StatusNoContent, http.StatusForbidden} {
		req, _ := http.NewRequest("POST", "/reset", nil)
		req.Header.Set("X-Confirm-Token", token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, "request %d", i)
	}
}

func TestConfirmationWrongAction(t *testing.T) {
	r, config := setupConfirmRouter(t, time.Minute)

	token, err := auth.GenerateToken(config, auth.ActionHsmInitialize)
	require.NoError(t, err)

	req, _ := http.NewRequest("POST", "/reset", nil)
	req.Header.Set("X-Confirm-Token", token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestConfirmationExpired(t *testing.T) {
	r, config := setupConfirmRouter(t, -time.Minute)

	token, err := auth.GenerateToken(config, auth.ActionFidoReset)
	require.NoError(t, err)

	req, _ := http.NewRequest("POST", "/reset", nil)
	req.Header.Set("X-Confirm-Token", token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
