package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	iauth "github.com/oversightlab/missiondesk/internal/auth"
	"github.com/oversightlab/missiondesk/internal/permissions"
)

func newJWTService(t *testing.T) *iauth.JWTService {
	t.Helper()

	svc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "secret",
		Issuer:         "test-suite",
		AccessTokenTTL: time.Minute,
	})
	require.NoError(t, err)
	return svc
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwtSvc := newJWTService(t)

	token, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{
		UserID:    "user-123",
		SessionID: "session-abc",
		Role:      "u2",
	})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/secure", Auth(jwtSvc), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":    c.GetString(CtxUserIDKey),
			"session_id": c.GetString(CtxSessionIDKey),
			"role":       c.GetString(CtxRoleKey),
		})
	})

	// Missing Authorization header -> 401
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Garbage token -> 401 with challenge header
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer nope")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))

	// Valid token -> downstream handler executes
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, "user-123", payload["user_id"])
	require.Equal(t, "session-abc", payload["session_id"])
	require.Equal(t, "u2", payload["role"])
}

func TestRequireCapability(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwtSvc := newJWTService(t)

	r := gin.New()
	r.POST("/missions", Auth(jwtSvc), RequireCapability(permissions.CapMissionCreate), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	serve := func(role string) int {
		token, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{UserID: "u", Role: role})
		require.NoError(t, err)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/missions", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)
		return w.Code
	}

	require.Equal(t, http.StatusForbidden, serve("u1"))
	require.Equal(t, http.StatusCreated, serve("u2"))
	require.Equal(t, http.StatusCreated, serve("u4"))
}

func TestRouteGate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwtSvc := newJWTService(t)

	r := gin.New()
	r.Use(Auth(jwtSvc), RouteGate())
	r.GET("/api/missions", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/users", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve := func(role, path string) int {
		token, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{UserID: "u", Role: role})
		require.NoError(t, err)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)
		return w.Code
	}

	require.Equal(t, http.StatusOK, serve("u1", "/api/missions"))
	require.Equal(t, http.StatusForbidden, serve("u1", "/api/users"))
	require.Equal(t, http.StatusOK, serve("u4", "/api/users"))
}
