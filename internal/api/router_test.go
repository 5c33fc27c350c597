package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/oversightlab/missiondesk/internal/app"
	iauth "github.com/oversightlab/missiondesk/internal/auth"
	"github.com/oversightlab/missiondesk/internal/database"
	"github.com/oversightlab/missiondesk/internal/database/testutil"
	"github.com/oversightlab/missiondesk/internal/storage"
)

func newTestRouter(t *testing.T) (*gin.Engine, *iauth.JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "test-secret", Issuer: "test", AccessTokenTTL: 15 * time.Minute})
	require.NoError(t, err)
	sessions, err := iauth.NewSessionService(db, jwtSvc, iauth.SessionConfig{})
	require.NoError(t, err)
	store, err := storage.NewFilesystemStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	router, err := NewRouter(db, jwtSvc, sessions, store, &app.Config{})
	require.NoError(t, err)
	return router, jwtSvc
}

func TestRouterPublicAndProtectedRoutes(t *testing.T) {
	router, _ := newTestRouter(t)

	// Health should be public
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// Protected endpoints without auth should be 401
	for _, path := range []string{"/api/auth/me", "/api/users", "/api/missions", "/api/gallery"} {
		w = httptest.NewRecorder()
		req, _ = http.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	// Unknown routes return the JSON 404 envelope
	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/nope", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestRouterLoginFlow(t *testing.T) {
	router, _ := newTestRouter(t)

	body, _ := json.Marshal(map[string]string{
		"username": database.DefaultAdminUsername,
		"password": "ChangeMe!123",
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			Tokens struct {
				AccessToken string `json:"access_token"`
			} `json:"tokens"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	require.NotEmpty(t, envelope.Data.Tokens.AccessToken)

	// The seeded admin can reach the user listing
	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+envelope.Data.Tokens.AccessToken)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// and the session introspection endpoint
	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+envelope.Data.Tokens.AccessToken)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRouterRouteGate(t *testing.T) {
	router, jwtSvc := newTestRouter(t)

	viewer, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{UserID: "viewer-1", Role: "u1"})
	require.NoError(t, err)

	// drafts sit above the viewer threshold in the route table
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/drafts/mission", nil)
	req.Header.Set("Authorization", "Bearer "+viewer)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)

	// profile routes stay reachable for viewers: the malformed body fails
	// validation, not the gate
	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodPut, "/api/profile", strings.NewReader("{"))
	req.Header.Set("Authorization", "Bearer "+viewer)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouterCapabilityDenial(t *testing.T) {
	router, jwtSvc := newTestRouter(t)

	token, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{UserID: "viewer-1", Role: "u1"})
	require.NoError(t, err)

	// A viewer cannot create missions
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/missions", strings.NewReader(""))
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)

	// Nor reach user administration
	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouterMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	metricsRec := httptest.NewRecorder()
	metricsReq, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	router.ServeHTTP(metricsRec, metricsReq)
	require.Equal(t, http.StatusOK, metricsRec.Code)
	require.Contains(t, metricsRec.Body.String(), "missiondesk_api_latency_seconds")
}
