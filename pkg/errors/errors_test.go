package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorUnwrapsToSentinel(t *testing.T) {
	assert.ErrorIs(t, NotFound("campaign", "c-1"), ErrNotFound)
	assert.ErrorIs(t, AlreadyExists("campaign", "code", "X"), ErrAlreadyExists)
	assert.ErrorIs(t, InvalidInput("bad"), ErrInvalidInput)
	assert.ErrorIs(t, QuotaExceeded("limit reached"), ErrQuotaExceeded)
	assert.ErrorIs(t, Conflict("retry"), ErrConflict)
}

func TestHTTPStatus_AppError(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("campaign", "c-1")))
	assert.Equal(t, http.StatusConflict, HTTPStatus(AlreadyExists("campaign", "code", "X")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(InvalidInput("bad")))
	assert.Equal(t, http.StatusConflict, HTTPStatus(QuotaExceeded("limit")))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(Unauthorized("nope")))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(Forbidden("nope")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(Internal(errors.New("boom"))))
}

func TestHTTPStatus_WrappedSentinel(t *testing.T) {
	err := fmt.Errorf("load campaign: %w", ErrNotFound)
	assert.Equal(t, http.StatusNotFound, HTTPStatus(err))

	err = fmt.Errorf("redeem: %w", ErrQuotaExceeded)
	assert.Equal(t, http.StatusConflict, HTTPStatus(err))
}

func TestHTTPStatus_UnknownError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestAppErrorMessage(t *testing.T) {
	err := NotFound("campaign", "c-1")
	assert.Contains(t, err.Error(), "NOT_FOUND")
	assert.Contains(t, err.Error(), "c-1")
}
