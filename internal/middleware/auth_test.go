package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"sparkreview_backend/internal/models"
	"sparkreview_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// fakeAuthService maps fixed tokens to identities.
type fakeAuthService struct {
	tokens map[string]struct {
		userID string
		role   models.UserRole
	}
}

func (f *fakeAuthService) Register(*dto.RegisterRequest) (*dto.AuthResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAuthService) Login(*dto.LoginRequest) (*dto.AuthResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAuthService) ParseToken(token string) (string, models.UserRole, error) {
	identity, ok := f.tokens[token]
	if !ok {
		return "", "", errors.New("invalid token")
	}
	return identity.userID, identity.role, nil
}

func newAuthRouter(roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)

	auth := &fakeAuthService{tokens: map[string]struct {
		userID string
		role   models.UserRole
	}{
		"reviewer-token": {"user-1", models.UserRoleReviewer},
		"admin-token":    {"user-2", models.UserRoleAdmin},
	}}

	router := gin.New()
	group := router.Group("/", AuthMiddleware(auth))
	handlers := gin.HandlersChain{}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRoles(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c)})
	})
	group.GET("/protected", handlers...)
	return router
}

func get(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddlewareAcceptsBearerToken(t *testing.T) {
	router := newAuthRouter()

	rec := get(router, "Bearer reviewer-token")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "user-1")
}

func TestAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	router := newAuthRouter()

	assert.Equal(t, http.StatusUnauthorized, get(router, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(router, "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, get(router, "Bearer unknown-token").Code)
}

func TestRequireRoles(t *testing.T) {
	router := newAuthRouter(models.UserRoleAdmin)

	assert.Equal(t, http.StatusForbidden, get(router, "Bearer reviewer-token").Code)
	assert.Equal(t, http.StatusOK, get(router, "Bearer admin-token").Code)
}

func TestRequireRolesAllowsAnyListed(t *testing.T) {
	router := newAuthRouter(models.UserRoleReviewer, models.UserRoleAdmin)

	assert.Equal(t, http.StatusOK, get(router, "Bearer reviewer-token").Code)
	assert.Equal(t, http.StatusOK, get(router, "Bearer admin-token").Code)
}
