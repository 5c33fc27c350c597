package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/oversightlab/missiondesk/internal/services"
	"github.com/oversightlab/missiondesk/internal/workflow"
	appErrors "github.com/oversightlab/missiondesk/pkg/errors"
	"github.com/oversightlab/missiondesk/pkg/response"
	appValidator "github.com/oversightlab/missiondesk/pkg/validator"
)

// bindAndValidate binds the JSON payload into dest and runs struct validation rules.
// When validation fails, an error response is automatically written and false is returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}

	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, validationError(err))
		return false
	}

	return true
}

// validationError converts validator failures into the field-level
// VALIDATION_FAILED shape.
func validationError(err error) error {
	var ve appValidator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return appErrors.NewValidation(ve.FieldMap())
	}
	return appErrors.NewBadRequest("invalid request payload")
}

// serviceError maps service sentinel errors onto the API error taxonomy.
func serviceError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, services.ErrMissionNotFound),
		errors.Is(err, workflow.ErrMissionNotFound),
		errors.Is(err, services.ErrProjectNotFound),
		errors.Is(err, services.ErrCompanyNotFound),
		errors.Is(err, services.ErrOrganizationNotFound),
		errors.Is(err, services.ErrMemberNotFound),
		errors.Is(err, services.ErrInvitationNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrDraftNotFound):
		return appErrors.ErrNotFound.WithInternal(err)
	case errors.Is(err, services.ErrProjectInUse),
		errors.Is(err, services.ErrCompanyInUse),
		errors.Is(err, services.ErrMemberAlreadyExists),
		errors.Is(err, services.ErrInvitationNotPending),
		errors.Is(err, services.ErrInvitationExpired),
		errors.Is(err, services.ErrUserExists):
		return appErrors.New("CONFLICT", err.Error(), 409).WithInternal(err)
	case errors.Is(err, services.ErrProjectReference):
		return appErrors.NewValidation(map[string][]string{
			"markets": {"references an unknown project"},
		})
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrUserDisabled):
		return appErrors.ErrInvalidCredentials.WithInternal(err)
	default:
		return err
	}
}
