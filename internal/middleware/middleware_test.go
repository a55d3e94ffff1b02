package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-registry-api/internal/models"
	"github.com/noah-isme/course-registry-api/internal/service"
	appErrors "github.com/noah-isme/course-registry-api/pkg/errors"
)

type stubValidator struct {
	tokens map[string]*models.JWTClaims
}

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s.tokens[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

func newAuthRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/courses/:id/students/:ssn", handlers...)
	return r
}

func serve(r *gin.Engine, path, token string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestJWTRejectsMissingAndInvalidTokens(t *testing.T) {
	validator := stubValidator{tokens: map[string]*models.JWTClaims{"good": {UserID: "u1", Role: models.RoleAdmin}}}
	r := newAuthRouter(JWT(validator))

	assert.Equal(t, http.StatusUnauthorized, serve(r, "/courses/1/students/S1", ""))
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/courses/1/students/S1", "bad"))
	assert.Equal(t, http.StatusOK, serve(r, "/courses/1/students/S1", "good"))

	req := httptest.NewRequest(http.MethodGet, "/courses/1/students/S1", nil)
	req.Header.Set("Authorization", "Basic abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOptionalJWTNeverBlocks(t *testing.T) {
	validator := stubValidator{tokens: map[string]*models.JWTClaims{"good": {UserID: "u1", Role: models.RoleAdmin}}}
	var seen *models.JWTClaims
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/courses", OptionalJWT(validator), func(c *gin.Context) {
		seen = Claims(c)
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, serve(r, "/courses", "bad"))
	assert.Nil(t, seen)
	assert.Equal(t, http.StatusOK, serve(r, "/courses", "good"))
	require.NotNil(t, seen)
	assert.Equal(t, "u1", seen.UserID)
}

func TestRBACRoles(t *testing.T) {
	validator := stubValidator{tokens: map[string]*models.JWTClaims{
		"admin":     {UserID: "a1", Role: models.RoleAdmin},
		"registrar": {UserID: "r1", Role: models.RoleRegistrar},
		"student":   {UserID: "S1", Role: models.RoleStudent},
	}}
	r := newAuthRouter(JWT(validator), RequireRoles(models.RoleAdmin, models.RoleRegistrar))

	assert.Equal(t, http.StatusOK, serve(r, "/courses/1/students/S1", "admin"))
	assert.Equal(t, http.StatusOK, serve(r, "/courses/1/students/S1", "registrar"))
	assert.Equal(t, http.StatusForbidden, serve(r, "/courses/1/students/S1", "student"))
}

func TestRBACSelfMatchesSSN(t *testing.T) {
	validator := stubValidator{tokens: map[string]*models.JWTClaims{
		"student": {UserID: "S1", Role: models.RoleStudent},
	}}
	r := newAuthRouter(JWT(validator), RBAC(string(models.RoleAdmin), Self))

	assert.Equal(t, http.StatusOK, serve(r, "/courses/1/students/S1", "student"))
	assert.Equal(t, http.StatusForbidden, serve(r, "/courses/1/students/S2", "student"))
}

func TestRBACWithoutClaims(t *testing.T) {
	r := newAuthRouter(RBAC(string(models.RoleAdmin)))
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/courses/1/students/S1", ""))
}

func TestMetricsRecordsRoutePattern(t *testing.T) {
	metrics := service.NewMetricsService()
	r := newAuthRouter(Metrics(metrics))

	assert.Equal(t, http.StatusOK, serve(r, "/courses/1/students/S1", ""))
	count, err := testutil.GatherAndCount(metrics.Registry(), "http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
