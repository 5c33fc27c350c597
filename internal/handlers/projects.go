package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oversightlab/missiondesk/internal/services"
	"github.com/oversightlab/missiondesk/pkg/response"
)

// ProjectHandler exposes project CRUD.
type ProjectHandler struct {
	projects *services.ProjectService
}

func NewProjectHandler(projects *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

type projectRequest struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Description string  `json:"description"`
	Location    string  `json:"location"`
	Budget      float64 `json:"budget" validate:"min=0"`
	CompanyID   string  `json:"company_id" validate:"required"`
}

type projectUpdateRequest struct {
	Name        *string  `json:"name" validate:"omitempty,max=255"`
	Description *string  `json:"description"`
	Location    *string  `json:"location"`
	Budget      *float64 `json:"budget" validate:"omitempty,min=0"`
	CompanyID   *string  `json:"company_id"`
}

// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req projectRequest
	if !bindAndValidate(c, &req) {
		return
	}

	project, err := h.projects.Create(requestContext(c), services.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
		Budget:      req.Budget,
		CompanyID:   req.CompanyID,
	})
	if err != nil {
		response.Error(c, serviceError(err))
		return
	}
	response.Success(c, http.StatusCreated, project)
}

// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.projects.List(requestContext(c))
	if err != nil {
		response.Error(c, serviceError(err))
		return
	}
	response.Success(c, http.StatusOK, projects)
}

// GET /api/projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	project, err := h.projects.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, serviceError(err))
		return
	}
	response.Success(c, http.StatusOK, project)
}

// PUT /api/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	var req projectUpdateRequest
	if !bindAndValidate(c, &req) {
		return
	}

	project, err := h.projects.Update(requestContext(c), c.Param("id"), services.UpdateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
		Budget:      req.Budget,
		CompanyID:   req.CompanyID,
	})
	if err != nil {
		response.Error(c, serviceError(err))
		return
	}
	response.Success(c, http.StatusOK, project)
}

// DELETE /api/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	if err := h.projects.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, serviceError(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
