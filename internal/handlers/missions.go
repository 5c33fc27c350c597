package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oversightlab/missiondesk/internal/middleware"
	"github.com/oversightlab/missiondesk/internal/models"
	"github.com/oversightlab/missiondesk/internal/services"
	"github.com/oversightlab/missiondesk/internal/workflow"
	"github.com/oversightlab/missiondesk/pkg/errors"
	"github.com/oversightlab/missiondesk/pkg/response"
)

const missionDateLayout = "2006-01-02"

// MissionHandler exposes mission CRUD, the guarded workflow transitions and
// the photo gallery.
type MissionHandler struct {
	missions *services.MissionService
	users    *services.UserService
	engine   *workflow.Engine
}

func NewMissionHandler(missions *services.MissionService, users *services.UserService, engine *workflow.Engine) *MissionHandler {
	return &MissionHandler{missions: missions, users: users, engine: engine}
}

// actor resolves the authenticated user for service calls.
func (h *MissionHandler) actor(c *gin.Context) (*models.User, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return nil, false
	}

	user, err := h.users.GetByID(requestContext(c), userID)
	if err != nil {
		response.Error(c, errors.ErrUnauthorized.WithInternal(err))
		return nil, false
	}
	return user, true
}

type marketForm struct {
	ProjectID  string `json:"project_id"`
	MarketName string `json:"market_name"`
	Notes      string `json:"notes"`
}

// parseMissionForm reads the multipart mission form: scalar fields, the
// markets JSON array and per-market photo files named photos_<index>.
func parseMissionForm(c *gin.Context) (services.MissionInput, error) {
	var input services.MissionInput

	form, err := c.MultipartForm()
	if err != nil {
		return input, errors.NewBadRequest("expected a multipart form")
	}

	fields := map[string][]string{}

	start, err := parseDateField(c.PostForm("start_date"))
	if err != nil {
		fields["start_date"] = []string{"must be a date formatted YYYY-MM-DD"}
	}
	end, err := parseDateField(c.PostForm("end_date"))
	if err != nil {
		fields["end_date"] = []string{"must be a date formatted YYYY-MM-DD"}
	}

	rawMarkets := c.PostForm("markets")
	var markets []marketForm
	if rawMarkets != "" {
		if err := json.Unmarshal([]byte(rawMarkets), &markets); err != nil {
			fields["markets"] = []string{"must be a JSON array"}
		}
	}

	if len(fields) > 0 {
		return input, errors.NewValidation(fields)
	}

	input.StartDate = start
	input.EndDate = end
	input.Location = strings.TrimSpace(c.PostForm("location"))
	input.MemberIDs = form.Value["member_ids"]

	for i, m := range markets {
		input.Markets = append(input.Markets, services.MarketInput{
			ProjectID:  m.ProjectID,
			MarketName: m.MarketName,
			Notes:      m.Notes,
		})
		market := &input.Markets[len(input.Markets)-1]
		for _, fh := range form.File[fmt.Sprintf("photos_%d", i)] {
			photo, err := photoFromHeader(fh)
			if err != nil {
				closePhotos(input)
				return services.MissionInput{}, err
			}
			market.Photos = append(market.Photos, photo)
		}
	}

	return input, nil
}

// closePhotos releases the multipart file handles opened for the form.
func closePhotos(input services.MissionInput) {
	for _, market := range input.Markets {
		for _, photo := range market.Photos {
			if closer, ok := photo.Reader.(io.Closer); ok {
				closer.Close()
			}
		}
	}
}

func parseDateField(raw string) (time.Time, error) {
	return time.Parse(missionDateLayout, strings.TrimSpace(raw))
}

func photoFromHeader(fh *multipart.FileHeader) (services.PhotoInput, error) {
	f, err := fh.Open()
	if err != nil {
		return services.PhotoInput{}, errors.NewBadRequest("unreadable uploaded file")
	}
	return services.PhotoInput{
		FileName: fh.Filename,
		MimeType: fh.Header.Get("Content-Type"),
		Size:     fh.Size,
		Reader:   f,
	}, nil
}

// POST /api/missions
func (h *MissionHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	input, err := parseMissionForm(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closePhotos(input)

	mission, err := h.missions.Create(requestContext(c), actor, input)
	if err != nil {
		response.Error(c, serviceError(err))
		return
	}
	response.Success(c, http.StatusCreated, mission)
}

// PUT /api/missions/:id
func (h *MissionHandler) Update(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	input, err := parseMissionForm(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closePhotos(input)

	mission, err := h.missions.Update(requestContext(c), actor, c.Param("id"), input)
	if err != nil {
		response.Error(c, serviceError(err))
		return
	}
	response.Success(c, http.StatusOK, mission)
}

// GET /api/missions
func (h *MissionHandler) List(c *gin.Context) {
	input := services.ListMissionsInput{
		Status:       models.MissionStatus(strings.ToUpper(strings.TrimSpace(c.Query("status")))),
		TeamLeaderID: strings.TrimSpace(c.Query("team_leader_id")),
	}
	if input.Status != "" && !input.Status.Valid() {
		response.Error(c, errors.NewBadRequest("unknown status filter"))
		return
	}

	missions, err := h.missions.List(requestContext(c), input)
	if err != nil {
		response.Error(c, serviceError(err))
		return
	}
	response.Success(c, http.StatusOK, missions)
}

// GET /api/missions/:id
func (h *MissionHandler) Get(c *gin.Context) {
	mission, err := h.missions.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, serviceError(err))
		return
	}
	response.Success(c, http.StatusOK, mission)
}

// DELETE /api/missions/:id
func (h *MissionHandler) Delete(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	if err := h.missions.Delete(requestContext(c), actor, c.Param("id")); err != nil {
		response.Error(c, serviceError(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// POST /api/missions/:id/send
func (h *MissionHandler) Send(c *gin.Context) {
	h.transition(c, func(actor *models.User) (*models.Mission, error) {
		return h.engine.Send(requestContext(c), c.Param("id"), actor)
	})
}

// POST /api/missions/:id/validate
func (h *MissionHandler) Validate(c *gin.Context) {
	h.transition(c, func(actor *models.User) (*models.Mission, error) {
		return h.engine.Validate(requestContext(c), c.Param("id"), actor)
	})
}

type reviewRequest struct {
	Comment string `json:"comment"`
}

// POST /api/missions/:id/review
func (h *MissionHandler) Review(c *gin.Context) {
	var req reviewRequest
	if !bindAndValidate(c, &req) {
		return
	}
	h.transition(c, func(actor *models.User) (*models.Mission, error) {
		return h.engine.Review(requestContext(c), c.Param("id"), actor, req.Comment)
	})
}

// POST /api/missions/:id/reopen
func (h *MissionHandler) Reopen(c *gin.Context) {
	h.transition(c, func(actor *models.User) (*models.Mission, error) {
		return h.engine.Reopen(requestContext(c), c.Param("id"), actor)
	})
}

type statusRequest struct {
	Status  string `json:"status" validate:"required"`
	Comment string `json:"comment"`
}

// PATCH /api/missions/:id/status moves a mission on the board. The move is
// routed through the same guarded transitions as the explicit endpoints.
func (h *MissionHandler) SetStatus(c *gin.Context) {
	var req statusRequest
	if !bindAndValidate(c, &req) {
		return
	}

	target := models.MissionStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if !target.Valid() {
		response.Error(c, errors.NewValidation(map[string][]string{
			"status": {"must be one of DRAFT, PENDING, COMPLETED, REJECTED"},
		}))
		return
	}

	h.transition(c, func(actor *models.User) (*models.Mission, error) {
		return h.engine.Apply(requestContext(c), c.Param("id"), actor, target, req.Comment)
	})
}

func (h *MissionHandler) transition(c *gin.Context, fn func(*models.User) (*models.Mission, error)) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	mission, err := fn(actor)
	if err != nil {
		response.Error(c, serviceError(err))
		return
	}
	response.Success(c, http.StatusOK, mission)
}

// GET /api/gallery
func (h *MissionHandler) Gallery(c *gin.Context) {
	files, err := h.missions.ListFiles(requestContext(c), strings.TrimSpace(c.Query("mission_id")))
	if err != nil {
		response.Error(c, serviceError(err))
		return
	}
	response.Success(c, http.StatusOK, files)
}
