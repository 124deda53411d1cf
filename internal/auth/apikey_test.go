package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newTestRouter(apiKeys []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(APIKeyMiddleware(apiKeys))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func doRequest(r *gin.Engine, key string) int {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestNoKeysConfiguredDisablesAuth(t *testing.T) {
	r := newTestRouter(nil)
	assert.Equal(t, http.StatusOK, doRequest(r, ""))
}

func TestMissingKeyRejected(t *testing.T) {
	r := newTestRouter([]string{"secret"})
	assert.Equal(t, http.StatusUnauthorized, doRequest(r, ""))
}

func TestWrongKeyRejected(t *testing.T) {
	r := newTestRouter([]string{"secret"})
	assert.Equal(t, http.StatusForbidden, doRequest(r, "nope"))
}

func TestAnyConfiguredKeyAccepted(t *testing.T) {
	r := newTestRouter([]string{"first", "second"})
	assert.Equal(t, http.StatusOK, doRequest(r, "first"))
	assert.Equal(t, http.StatusOK, doRequest(r, "second"))
}
