package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/apprentix/epa-tracker-api/internal/models"
	appErrors "github.com/apprentix/epa-tracker-api/pkg/errors"
)

type staticValidator struct {
	claims *models.JWTClaims
	err    error
}

func (v *staticValidator) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	return v.claims, v.err
}

func runJWT(t *testing.T, validator TokenValidator, authHeader string) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/records", nil)
	if authHeader != "" {
		c.Request.Header.Set("Authorization", authHeader)
	}
	JWT(validator)(c)
	return rec, c
}

func TestJWTStoresClaims(t *testing.T) {
	claims := &models.JWTClaims{UserID: "user-1", Role: models.RoleViewer}
	rec, c := runJWT(t, &staticValidator{claims: claims}, "Bearer signed-jwt")

	assert.False(t, c.IsAborted())
	assert.Equal(t, http.StatusOK, rec.Code)

	stored, exists := c.Get(ContextUserKey)
	assert.True(t, exists)
	assert.Same(t, claims, stored)
}

func TestJWTRejectsMissingHeader(t *testing.T) {
	rec, c := runJWT(t, &staticValidator{}, "")
	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTRejectsMalformedHeader(t *testing.T) {
	rec, c := runJWT(t, &staticValidator{}, "Token abc")
	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTRejectsInvalidToken(t *testing.T) {
	rec, c := runJWT(t, &staticValidator{err: appErrors.ErrUnauthorized}, "Bearer bad")
	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRolesAllowsMatchingRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/records", nil)
	c.Set(ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleAdmin})

	RequireRoles(models.RoleAdmin)(c)

	assert.False(t, c.IsAborted())
}

func TestRequireRolesRejectsOtherRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/records", nil)
	c.Set(ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleViewer})

	RequireRoles(models.RoleAdmin)(c)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRolesRejectsMissingClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/records", nil)

	RequireRoles(models.RoleAdmin)(c)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
