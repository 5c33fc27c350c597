package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppErrorError(t *testing.T) {
	err := New("TEST", "something broke", http.StatusTeapot)
	require.Equal(t, "something broke", err.Error())

	wrapped := err.WithInternal(errors.New("disk on fire"))
	require.Equal(t, "something broke: disk on fire", wrapped.Error())
	// the original must stay untouched
	require.Nil(t, err.Internal)
}

func TestFromError(t *testing.T) {
	require.Nil(t, FromError(nil))

	plain := errors.New("boom")
	appErr := FromError(plain)
	require.Equal(t, ErrInternalServer.Code, appErr.Code)
	require.ErrorIs(t, appErr, plain)

	require.Same(t, ErrForbidden, FromError(ErrForbidden))
}

func TestWrapKeepsInternal(t *testing.T) {
	cause := errors.New("db gone")
	err := Wrap(cause, "could not load mission")
	require.Equal(t, http.StatusInternalServerError, err.StatusCode)
	require.ErrorIs(t, err, cause)
}

func TestNewValidationCarriesFields(t *testing.T) {
	err := NewValidation(map[string][]string{
		"end_date": {"end date must not be before start date"},
	})
	require.Equal(t, "VALIDATION_FAILED", err.Code)
	require.Equal(t, http.StatusBadRequest, err.StatusCode)
	require.Len(t, err.Fields["end_date"], 1)
}

func TestIsMatchesByCode(t *testing.T) {
	wrapped := ErrInvalidTransition.WithInternal(errors.New("mission already pending"))
	require.ErrorIs(t, wrapped, ErrInvalidTransition)
	require.NotErrorIs(t, wrapped, ErrForbidden)
}

func TestInvalidTransitionStatus(t *testing.T) {
	require.Equal(t, http.StatusConflict, ErrInvalidTransition.StatusCode)
}
