package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_IsMatchesCode(t *testing.T) {
	err := fmt.Errorf("accept: %w", NotFound("connection request not found"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Equal(t, CodeNotFound, CodeOf(err))
}

func TestAppError_WrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal("failed to load conversation", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to load conversation: connection refused", err.Error())
}

func TestCodeOf_ForeignErrorIsInternal(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
}

func TestCode_HTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeInvalidArgument:  http.StatusBadRequest,
		CodePermissionDenied: http.StatusForbidden,
		CodeNotFound:         http.StatusNotFound,
		CodeAlreadyExists:    http.StatusConflict,
		CodeUnauthenticated:  http.StatusUnauthorized,
		CodeInternal:         http.StatusInternalServerError,
		CodeUnknown:          http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, code.HTTPStatus(), string(code))
	}
}
