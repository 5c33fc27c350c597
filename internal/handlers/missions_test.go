package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oversightlab/missiondesk/internal/database/testutil"
	"github.com/oversightlab/missiondesk/internal/middleware"
	"github.com/oversightlab/missiondesk/internal/models"
	"github.com/oversightlab/missiondesk/internal/permissions"
	"github.com/oversightlab/missiondesk/internal/services"
	"github.com/oversightlab/missiondesk/internal/storage"
	"github.com/oversightlab/missiondesk/internal/workflow"
)

type missionHandlerFixture struct {
	router *gin.Engine
	db     *gorm.DB
	leader *models.User
}

// newMissionHandlerFixture wires the mission routes behind a stub that
// authenticates every request as the given role.
func newMissionHandlerFixture(t *testing.T, role permissions.GlobalRole) *missionHandlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	users, err := services.NewUserService(db)
	require.NoError(t, err)
	leader, err := users.Create(context.Background(), services.CreateUserInput{
		Username: "lead",
		Email:    "lead@example.com",
		Password: "Sup3rSecret!",
		Role:     role,
	})
	require.NoError(t, err)

	store, err := storage.NewFilesystemStore(t.TempDir(), "/uploads")
	require.NoError(t, err)
	missions, err := services.NewMissionService(db, store)
	require.NoError(t, err)
	engine, err := workflow.NewEngine(db)
	require.NoError(t, err)

	h := NewMissionHandler(missions, users, engine)

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(middleware.CtxUserIDKey, leader.ID) })
	r.POST("/api/missions", h.Create)
	r.POST("/api/missions/:id/send", h.Send)
	r.PATCH("/api/missions/:id/status", h.SetStatus)

	return &missionHandlerFixture{router: r, db: db, leader: leader}
}

func (f *missionHandlerFixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

type missionEnvelope struct {
	Success bool           `json:"success"`
	Data    models.Mission `json:"data"`
	Error   *struct {
		Code   string              `json:"code"`
		Fields map[string][]string `json:"fields"`
	} `json:"error"`
}

func decodeMissionEnvelope(t *testing.T, w *httptest.ResponseRecorder) missionEnvelope {
	t.Helper()
	var env missionEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func missionForm(t *testing.T, fields map[string]string, photoField string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if photoField != "" {
		part, err := mw.CreateFormFile(photoField, "site.jpg")
		require.NoError(t, err)
		_, err = part.Write([]byte("jpeg-bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestMissionHandlerCreateMultipart(t *testing.T) {
	f := newMissionHandlerFixture(t, permissions.RoleTeamLeader)

	company := models.Company{Name: "Ponts SA"}
	require.NoError(t, f.db.Create(&company).Error)
	project := models.Project{Name: "Viaduct", CompanyID: company.ID}
	require.NoError(t, f.db.Create(&project).Error)

	markets, err := json.Marshal([]map[string]string{{
		"project_id":  project.ID,
		"market_name": "Lot 1",
		"notes":       "north span",
	}})
	require.NoError(t, err)

	body, contentType := missionForm(t, map[string]string{
		"start_date": "2026-09-01",
		"end_date":   "2026-09-03",
		"location":   "Lyon",
		"markets":    string(markets),
	}, "photos_0")

	req := httptest.NewRequest(http.MethodPost, "/api/missions", body)
	req.Header.Set("Content-Type", contentType)
	w := f.do(t, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	env := decodeMissionEnvelope(t, w)
	require.True(t, env.Success)
	require.Contains(t, env.Data.Number, "MIS-2026-")
	require.Equal(t, models.MissionDraft, env.Data.Status)
	require.Equal(t, 1, env.Data.AgentCount)
	require.Equal(t, 1, env.Data.MarketCount)
	require.Len(t, env.Data.MissionProjects, 1)
	require.Len(t, env.Data.MissionProjects[0].Files, 1)

	// the created draft can be sent through the workflow route
	send := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/missions/%s/send", env.Data.ID), nil)
	w = f.do(t, send)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, models.MissionPending, decodeMissionEnvelope(t, w).Data.Status)
}

func TestMissionHandlerCreateRejectsBadDates(t *testing.T) {
	f := newMissionHandlerFixture(t, permissions.RoleTeamLeader)

	body, contentType := missionForm(t, map[string]string{
		"start_date": "yesterday",
		"end_date":   "2026-09-03",
		"location":   "Lyon",
	}, "")

	req := httptest.NewRequest(http.MethodPost, "/api/missions", body)
	req.Header.Set("Content-Type", contentType)
	w := f.do(t, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeMissionEnvelope(t, w)
	require.False(t, env.Success)
	require.NotNil(t, env.Error)
	require.Contains(t, env.Error.Fields, "start_date")
}

type closeTrackingReader struct{ closed bool }

func (r *closeTrackingReader) Read([]byte) (int, error) { return 0, io.EOF }
func (r *closeTrackingReader) Close() error             { r.closed = true; return nil }

func TestClosePhotosReleasesReaders(t *testing.T) {
	first := &closeTrackingReader{}
	second := &closeTrackingReader{}
	input := services.MissionInput{Markets: []services.MarketInput{
		{Photos: []services.PhotoInput{{FileName: "a.jpg", Reader: first}}},
		{Photos: []services.PhotoInput{{FileName: "b.jpg", Reader: second}}},
	}}

	closePhotos(input)
	require.True(t, first.closed)
	require.True(t, second.closed)
}

func TestMissionHandlerSetStatusRejectsUnknownState(t *testing.T) {
	f := newMissionHandlerFixture(t, permissions.RoleTeamLeader)

	req := httptest.NewRequest(http.MethodPatch, "/api/missions/any/status",
		bytes.NewBufferString(`{"status":"SIDEWAYS"}`))
	req.Header.Set("Content-Type", "application/json")
	w := f.do(t, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeMissionEnvelope(t, w)
	require.NotNil(t, env.Error)
	require.Contains(t, env.Error.Fields, "status")
}
