package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oversightlab/missiondesk/internal/middleware"
	"github.com/oversightlab/missiondesk/internal/permissions"
	"github.com/oversightlab/missiondesk/internal/services"
	"github.com/oversightlab/missiondesk/pkg/response"
)

// OrganizationHandler exposes organization CRUD, membership management and
// the invitation lifecycle.
type OrganizationHandler struct {
	orgs        *services.OrganizationService
	invitations *services.InvitationService
}

func NewOrganizationHandler(orgs *services.OrganizationService, invitations *services.InvitationService) *OrganizationHandler {
	return &OrganizationHandler{orgs: orgs, invitations: invitations}
}

type organizationRequest struct {
	Name        string         `json:"name" validate:"required,max=255"`
	Description string         `json:"description"`
	Settings    map[string]any `json:"settings"`
}

type organizationUpdateRequest struct {
	Name        *string        `json:"name" validate:"omitempty,max=255"`
	Description *string        `json:"description"`
	Settings    map[string]any `json:"settings"`
}

// POST /api/orgs
func (h *OrganizationHandler) Create(c *gin.Context) {
	var req organizationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	org, err := h.orgs.Create(requestContext(c), services.CreateOrganizationInput{
		Name:        req.Name,
		Description: req.Description,
		Settings:    req.Settings,
	})
	if err != nil {
		response.Error(c, serviceError(err))
		return
	}
	response.Success(c, http.StatusCreated, org)
}

// GET /api/orgs
func (h *OrganizationHandler) List(c *gin.Context) {
	orgs, err := h.orgs.List(requestContext(c))
	if err != nil {
		response.Error(c, serviceError(err))
		return
	}
	response.Success(c, http.StatusOK, orgs)
}

// GET /api/orgs/:id
func (h *OrganizationHandler) Get(c *gin.Context) {
	org, err := h.orgs.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, serviceError(err))
		return
	}
	response.Success(c, http.StatusOK, org)
}

// PUT /api/orgs/:id
func (h *OrganizationHandler) Update(c *gin.Context) {
	var req organizationUpdateRequest
	if !bindAndValidate(c, &req) {
		return
	}

	org, err := h.orgs.Update(requestContext(c), c.Param("id"), services.UpdateOrganizationInput{
		Name:        req.Name,
		Description: req.Description,
		Settings:    req.Settings,
	})
	if err != nil {
		response.Error(c, serviceError(err))
		return
	}
	response.Success(c, http.StatusOK, org)
}

// DELETE /api/orgs/:id
func (h *OrganizationHandler) Delete(c *gin.Context) {
	if err := h.orgs.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, serviceError(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

type memberRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	OrgRole string `json:"org_role" validate:"required,oneof=u1 u2 u3 u4 u5"`
}

// POST /api/orgs/:id/members
func (h *OrganizationHandler) AddMember(c *gin.Context) {
	var req memberRequest
	if !bindAndValidate(c, &req) {
		return
	}

	member, err := h.orgs.AddMember(requestContext(c), c.Param("id"), req.UserID, permissions.OrgRole(req.OrgRole))
	if err != nil {
		response.Error(c, serviceError(err))
		return
	}
	response.Success(c, http.StatusCreated, member)
}

type memberRoleRequest struct {
	OrgRole string `json:"org_role" validate:"required,oneof=u1 u2 u3 u4 u5"`
}

// PUT /api/orgs/:id/members/:userID
func (h *OrganizationHandler) UpdateMemberRole(c *gin.Context) {
	var req memberRoleRequest
	if !bindAndValidate(c, &req) {
		return
	}

	err := h.orgs.UpdateMemberRole(requestContext(c), c.Param("id"), c.Param("userID"), permissions.OrgRole(req.OrgRole))
	if err != nil {
		response.Error(c, serviceError(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"updated": true})
}

// DELETE /api/orgs/:id/members/:userID
func (h *OrganizationHandler) RemoveMember(c *gin.Context) {
	if err := h.orgs.RemoveMember(requestContext(c), c.Param("id"), c.Param("userID")); err != nil {
		response.Error(c, serviceError(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": true})
}

type invitationRequest struct {
	Email   string `json:"email" validate:"required,email"`
	OrgRole string `json:"org_role" validate:"required,oneof=u1 u2 u3 u4 u5"`
}

// POST /api/orgs/:id/invitations
func (h *OrganizationHandler) CreateInvitation(c *gin.Context) {
	var req invitationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	invitedBy, _ := middleware.UserID(c)
	invitation, err := h.invitations.Create(requestContext(c), services.CreateInvitationInput{
		Email:          req.Email,
		OrganizationID: c.Param("id"),
		OrgRole:        permissions.OrgRole(req.OrgRole),
		InvitedBy:      invitedBy,
	})
	if err != nil {
		response.Error(c, serviceError(err))
		return
	}
	response.Success(c, http.StatusCreated, invitation)
}

// GET /api/orgs/:id/invitations
func (h *OrganizationHandler) ListInvitations(c *gin.Context) {
	invitations, err := h.invitations.List(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, serviceError(err))
		return
	}
	response.Success(c, http.StatusOK, invitations)
}

// DELETE /api/orgs/:id/invitations/:invitationID
func (h *OrganizationHandler) CancelInvitation(c *gin.Context) {
	if err := h.invitations.Cancel(requestContext(c), c.Param("invitationID")); err != nil {
		response.Error(c, serviceError(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"cancelled": true})
}

type acceptInvitationRequest struct {
	Token     string `json:"token" validate:"required"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// POST /api/invitations/accept redeems an invitation token. The route is public:
// the invitee may not have an account yet.
func (h *OrganizationHandler) AcceptInvitation(c *gin.Context) {
	var req acceptInvitationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.invitations.Accept(requestContext(c), services.AcceptInvitationInput{
		Token:     req.Token,
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		response.Error(c, serviceError(err))
		return
	}
	response.Success(c, http.StatusOK, user)
}
