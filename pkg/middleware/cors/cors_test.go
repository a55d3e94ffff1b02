package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newEngine(opts Options) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New(opts))
	r.GET("/courses", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func serve(r *gin.Engine, method, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/courses", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCORSAllowListedOrigin(t *testing.T) {
	r := newEngine(Options{AllowedOrigins: []string{"https://Registrar.example.edu/"}, AllowCredentials: true})

	w := serve(r, http.MethodGet, "https://registrar.example.edu")
	assert.Equal(t, "https://registrar.example.edu", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "Content-Disposition, X-Request-ID", w.Header().Get("Access-Control-Expose-Headers"))

	w = serve(r, http.MethodGet, "https://evil.example.com")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Empty(t, w.Header().Get("Access-Control-Expose-Headers"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))
}

func TestCORSConfiguredHeaders(t *testing.T) {
	r := newEngine(Options{
		AllowedHeaders: []string{"Authorization", "X-Term"},
		ExposedHeaders: []string{"Content-Disposition", "X-Total-Count"},
		MaxAge:         10 * time.Minute,
	})

	w := serve(r, http.MethodGet, "https://app.example.edu")
	assert.Equal(t, "Authorization, X-Term", w.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "Content-Disposition, X-Total-Count", w.Header().Get("Access-Control-Expose-Headers"))
	assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
}

func TestCORSWildcardNeverAllowsCredentials(t *testing.T) {
	r := newEngine(Options{AllowCredentials: true})

	w := serve(r, http.MethodGet, "")
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Empty(t, w.Header().Get("Access-Control-Max-Age"))
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	r := newEngine(Options{})

	w := serve(r, http.MethodOptions, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	r = newEngine(Options{AllowedOrigins: []string{"https://registrar.example.edu"}})
	w = serve(r, http.MethodOptions, "https://evil.example.com")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Methods"))
}
