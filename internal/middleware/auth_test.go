package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/go-marketplace-api/internal/model"
	"github.com/flicky/go-marketplace-api/internal/service"
)

const secret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, userID uuid.UUID, role, typ string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID.String(),
		"role": role,
		"typ":  typ,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers := append(mw, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c).String(), "role": GetUserRole(c)})
	})
	r.GET("/", handlers...)
	return r
}

func do(r *gin.Engine, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter(AuthMiddleware(secret))
	userID := uuid.New()

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"garbage", "not-a-jwt", http.StatusUnauthorized},
		{"refresh token", signToken(t, userID, model.RoleCustomer, service.TokenTypeRefresh), http.StatusUnauthorized},
		{"access token", signToken(t, userID, model.RoleCustomer, service.TokenTypeAccess), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, tt.token)
			assert.Equal(t, tt.status, w.Code)
		})
	}

	w := do(r, signToken(t, userID, model.RoleCustomer, service.TokenTypeAccess))
	assert.Contains(t, w.Body.String(), userID.String())
}

func TestOptionalAuth(t *testing.T) {
	r := newRouter(OptionalAuth(secret))

	w := do(r, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), uuid.Nil.String())

	w = do(r, "bad")
	assert.Equal(t, http.StatusOK, w.Code)

	userID := uuid.New()
	w = do(r, signToken(t, userID, model.RoleCustomer, service.TokenTypeAccess))
	assert.Contains(t, w.Body.String(), userID.String())
}

func TestAdminOnly(t *testing.T) {
	r := newRouter(AuthMiddleware(secret), AdminOnly())

	w := do(r, signToken(t, uuid.New(), model.RoleCustomer, service.TokenTypeAccess))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, signToken(t, uuid.New(), model.RoleAdmin, service.TokenTypeAccess))
	assert.Equal(t, http.StatusOK, w.Code)
}
