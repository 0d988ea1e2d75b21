package errutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorsAsRecoversBaseError(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", InsufficientBalance("not enough points"))

	var be BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, StatusInsufficientBalance, be.Status())
}

func TestWithErrKeepsCause(t *testing.T) {
	cause := errors.New("disk on fire")
	err := Internal("write failed", WithErr(cause))

	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "disk on fire")
}

func TestHTTPStatusMapping(t *testing.T) {
	require.Equal(t, http.StatusNotFound, StatusNotFound.HTTPStatus())
	require.Equal(t, http.StatusConflict, StatusAlreadyProcessed.HTTPStatus())
	require.Equal(t, http.StatusUnprocessableEntity, StatusInvalidPromotion.HTTPStatus())
	require.Equal(t, http.StatusUnprocessableEntity, StatusUnverified.HTTPStatus())
	require.Equal(t, http.StatusTooManyRequests, StatusTooManyRequests.HTTPStatus())
	require.Equal(t, http.StatusInternalServerError, CoreStatus("SOMETHING_ELSE").HTTPStatus())
}
