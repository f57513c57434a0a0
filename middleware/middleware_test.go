package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(handlers...)
	router.GET("/whoami", func(c *gin.Context) {
		role, _ := RoleID(c)
		c.JSON(http.StatusOK, gin.H{"actor": ActorID(c), "role": role, "email": Email(c)})
	})
	return router
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareSetsCaller(t *testing.T) {
	router := newTestRouter(AuthMiddleware("secret"))
	token, err := IssueToken("secret", Claims{UserID: 42, Email: "r@example.com", RoleID: RoleReviewer}, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := serve(router, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"actor":"42","role":2,"email":"r@example.com"}`, w.Body.String())
}

func TestAuthMiddlewareRejectsBadTokens(t *testing.T) {
	router := newTestRouter(AuthMiddleware("secret"))

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	noUser, err := IssueToken("secret", Claims{RoleID: RoleAdmin}, time.Minute)
	require.NoError(t, err)

	cases := map[string]string{
		"missing header": "",
		"no bearer":      "Token abc",
		"garbage":        "Bearer abc",
		"expired":        "Bearer " + expired,
		"no user":        "Bearer " + noUser,
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			w := serve(router, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), `"success":false`)
		})
	}
}

func TestAuthMiddlewareWithoutSecretRejects(t *testing.T) {
	router := newTestRouter(AuthMiddleware(""))
	token, err := IssueToken("anything", Claims{UserID: 1}, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, serve(router, req).Code)
}

func TestRequireRole(t *testing.T) {
	setRole := func(role int) gin.HandlerFunc {
		return func(c *gin.Context) {
			c.Set("userID", 7)
			c.Set("roleID", role)
			c.Next()
		}
	}

	allowed := newTestRouter(setRole(RoleAdmin), RequireRole(RoleReviewer, RoleAdmin))
	assert.Equal(t, http.StatusOK, serve(allowed, httptest.NewRequest(http.MethodGet, "/whoami", nil)).Code)

	denied := newTestRouter(setRole(RoleApplicant), RequireRole(RoleReviewer, RoleAdmin))
	assert.Equal(t, http.StatusForbidden, serve(denied, httptest.NewRequest(http.MethodGet, "/whoami", nil)).Code)

	anonymous := newTestRouter(RequireRole(RoleAdmin))
	assert.Equal(t, http.StatusForbidden, serve(anonymous, httptest.NewRequest(http.MethodGet, "/whoami", nil)).Code)
}

func TestCORSMiddleware(t *testing.T) {
	router := newTestRouter(CORSMiddleware([]string{"http://localhost:3000/"}))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := serve(router, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = serve(router, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/whoami", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w = serve(router, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")

	wildcard := newTestRouter(CORSMiddleware([]string{"*"}))
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Origin", "https://any.example.com")
	assert.Equal(t, "https://any.example.com", serve(wildcard, req).Header().Get("Access-Control-Allow-Origin"))
}

func TestSecurityHeaders(t *testing.T) {
	w := serve(newTestRouter(SecurityHeaders()), httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}
