package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yieldboard/models"
	"yieldboard/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func protectedRouter(t *testing.T, apiKey string) (*gin.Engine, *utils.JWTManager) {
	t.Helper()
	jwt, err := utils.NewJWTManager("test-secret", time.Hour)
	require.NoError(t, err)

	r := gin.New()
	r.Use(AuthRequired(apiKey, jwt))
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("user_email"))
	})
	return r, jwt
}

func TestAuthRequired(t *testing.T) {
	r, jwt := protectedRouter(t, "shared-key")
	token, err := jwt.GenerateJWT(&models.User{ID: 7, Email: "qa@example.com"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		setup  func(*http.Request)
		status int
		body   string
	}{
		{"no credentials", func(*http.Request) {}, http.StatusUnauthorized, ""},
		{"api key", func(r *http.Request) { r.Header.Set("X-API-KEY", "shared-key") }, http.StatusOK, "api-key"},
		{"wrong api key", func(r *http.Request) { r.Header.Set("X-API-KEY", "nope") }, http.StatusUnauthorized, ""},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusOK, "qa@example.com"},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "jwt_token", Value: token}) }, http.StatusOK, "qa@example.com"},
		{"garbage token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer x.y.z") }, http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestAuthRequiredEmptyKeyNeverMatches(t *testing.T) {
	r, _ := protectedRouter(t, "")
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-API-KEY", "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware("http://dash.local"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://dash.local", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-API-KEY")
}

func TestRequestLoggerSetsID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	id := w.Header().Get(RequestIDHeader)
	assert.Len(t, id, 36)
	assert.Equal(t, id, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))
}
