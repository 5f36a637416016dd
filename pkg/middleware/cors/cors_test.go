package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func serve(origins []string, method, origin string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New(origins))
	r.GET("/papers", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(method, "/papers", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCORSAllowList(t *testing.T) {
	origins := []string{"https://studyhub.app/", "https://*.studyhub.app"}

	w := serve(origins, http.MethodGet, "https://studyhub.app")
	assert.Equal(t, "https://studyhub.app", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	w = serve(origins, http.MethodGet, "https://pr-12.studyhub.app")
	assert.Equal(t, "https://pr-12.studyhub.app", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(origins, http.MethodGet, "https://evil.example")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(origins, http.MethodGet, "http://pr-12.studyhub.app")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSOpenPolicyAndPreflight(t *testing.T) {
	w := serve(nil, http.MethodGet, "https://anywhere.example")
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))

	w = serve(nil, http.MethodOptions, "https://anywhere.example")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "X-Cache")
}
