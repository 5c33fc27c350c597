package validator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type sampleForm struct {
	Location string `json:"location" validate:"required"`
	Comment  string `json:"comment" validate:"omitempty,max=10"`
	Email    string `json:"email" validate:"omitempty,email"`
}

func TestValidateStructOK(t *testing.T) {
	require.NoError(t, ValidateStruct(&sampleForm{Location: "Pont de Sully"}))
}

func TestValidateStructFieldNames(t *testing.T) {
	err := ValidateStruct(&sampleForm{Comment: "way too long comment", Email: "nope"})
	require.Error(t, err)

	ve, ok := err.(ValidationErrors)
	require.True(t, ok)

	fields := ve.FieldMap()
	require.Contains(t, fields, "location")
	require.Contains(t, fields, "comment")
	require.Contains(t, fields, "email")
	require.Equal(t, []string{"location is required"}, fields["location"])
	require.Equal(t, []string{"comment must be at most 10 characters"}, fields["comment"])
}
