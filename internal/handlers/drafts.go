package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oversightlab/missiondesk/internal/middleware"
	"github.com/oversightlab/missiondesk/internal/services"
	"github.com/oversightlab/missiondesk/pkg/errors"
	"github.com/oversightlab/missiondesk/pkg/response"
)

// maxDraftBytes caps the stored payload of a single form draft.
const maxDraftBytes = 256 << 10

// DraftHandler exposes the per-user form draft cache.
type DraftHandler struct {
	drafts *services.DraftService
}

func NewDraftHandler(drafts *services.DraftService) *DraftHandler {
	return &DraftHandler{drafts: drafts}
}

// GET /api/drafts/:formType
func (h *DraftHandler) Load(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	draft, err := h.drafts.Load(requestContext(c), userID, c.Param("formType"))
	if err != nil {
		response.Error(c, serviceError(err))
		return
	}
	response.Success(c, http.StatusOK, draft)
}

// PUT /api/drafts/:formType stores the raw JSON body as the draft payload.
func (h *DraftHandler) Save(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxDraftBytes+1))
	if err != nil {
		response.Error(c, errors.NewBadRequest("unreadable request body"))
		return
	}
	if len(body) > maxDraftBytes {
		response.Error(c, errors.NewBadRequest("draft payload too large"))
		return
	}
	if !json.Valid(body) {
		response.Error(c, errors.NewBadRequest("draft payload must be valid JSON"))
		return
	}

	draft, err := h.drafts.Save(requestContext(c), userID, c.Param("formType"), body)
	if err != nil {
		response.Error(c, serviceError(err))
		return
	}
	response.Success(c, http.StatusOK, draft)
}

// DELETE /api/drafts/:formType
func (h *DraftHandler) Clear(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if err := h.drafts.Clear(requestContext(c), userID, c.Param("formType")); err != nil {
		response.Error(c, serviceError(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"cleared": true})
}
