package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oversightlab/missiondesk/internal/services"
	"github.com/oversightlab/missiondesk/pkg/response"
)

// CompanyHandler exposes company CRUD.
type CompanyHandler struct {
	companies *services.CompanyService
}

func NewCompanyHandler(companies *services.CompanyService) *CompanyHandler {
	return &CompanyHandler{companies: companies}
}

type companyRequest struct {
	Name               string `json:"name" validate:"required,max=255"`
	RegistrationNumber string `json:"registration_number"`
	Address            string `json:"address"`
	ContactName        string `json:"contact_name"`
	ContactEmail       string `json:"contact_email" validate:"omitempty,email"`
	ContactPhone       string `json:"contact_phone"`
}

type companyUpdateRequest struct {
	Name         *string `json:"name" validate:"omitempty,max=255"`
	Address      *string `json:"address"`
	ContactName  *string `json:"contact_name"`
	ContactEmail *string `json:"contact_email" validate:"omitempty,email"`
	ContactPhone *string `json:"contact_phone"`
}

// POST /api/companies
func (h *CompanyHandler) Create(c *gin.Context) {
	var req companyRequest
	if !bindAndValidate(c, &req) {
		return
	}

	company, err := h.companies.Create(requestContext(c), services.CreateCompanyInput{
		Name:               req.Name,
		RegistrationNumber: req.RegistrationNumber,
		Address:            req.Address,
		ContactName:        req.ContactName,
		ContactEmail:       req.ContactEmail,
		ContactPhone:       req.ContactPhone,
	})
	if err != nil {
		response.Error(c, serviceError(err))
		return
	}
	response.Success(c, http.StatusCreated, company)
}

// GET /api/companies
func (h *CompanyHandler) List(c *gin.Context) {
	companies, err := h.companies.List(requestContext(c))
	if err != nil {
		response.Error(c, serviceError(err))
		return
	}
	response.Success(c, http.StatusOK, companies)
}

// GET /api/companies/:id
func (h *CompanyHandler) Get(c *gin.Context) {
	company, err := h.companies.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, serviceError(err))
		return
	}
	response.Success(c, http.StatusOK, company)
}

// PUT /api/companies/:id
func (h *CompanyHandler) Update(c *gin.Context) {
	var req companyUpdateRequest
	if !bindAndValidate(c, &req) {
		return
	}

	company, err := h.companies.Update(requestContext(c), c.Param("id"), services.UpdateCompanyInput{
		Name:         req.Name,
		Address:      req.Address,
		ContactName:  req.ContactName,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
	})
	if err != nil {
		response.Error(c, serviceError(err))
		return
	}
	response.Success(c, http.StatusOK, company)
}

// DELETE /api/companies/:id
func (h *CompanyHandler) Delete(c *gin.Context) {
	if err := h.companies.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, serviceError(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
