package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestDomainError_Is(t *testing.T) {
	errLastAdmin := New(ErrConflict, "workspace must have at least one admin")
	wrapped := fmt.Errorf("update role: %w", errLastAdmin)

	require.ErrorIs(t, wrapped, errLastAdmin)
	require.ErrorIs(t, wrapped, ErrConflict)
	require.NotErrorIs(t, wrapped, ErrNotFound)
	require.Equal(t, ErrConflict, Kind(wrapped))
	require.Nil(t, Kind(stderrors.New("boom")))
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		New(ErrNotFound, "x"):          http.StatusNotFound,
		New(ErrValidation, "x"):        http.StatusBadRequest,
		New(ErrAuthorization, "x"):     http.StatusForbidden,
		New(ErrConflict, "x"):          http.StatusConflict,
		New(ErrNotYetImplemented, "x"): http.StatusNotImplemented,
		stderrors.New("x"):             http.StatusInternalServerError,
	}
	for err, status := range cases {
		require.Equal(t, status, StatusFor(err), err.Error())
	}
}

func TestRespondWithDomainError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondWithDomainError(c, New(ErrAuthorization, "nope"))

	require.Equal(t, http.StatusForbidden, w.Code)
	require.JSONEq(t, `{"code":"FORBIDDEN","message":"nope"}`, w.Body.String())
}

func TestRespondWithDomainError_HidesInfrastructureErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondWithDomainError(c, fmt.Errorf("failed to save invite: %w", stderrors.New("connection reset")))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.JSONEq(t, `{"code":"INTERNAL_ERROR","message":"Internal server error"}`, w.Body.String())
}

func TestInvalidCredentials(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	InvalidCredentials(c, "")

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.JSONEq(t, `{"code":"INVALID_CREDENTIALS","message":"Invalid email or password"}`, w.Body.String())
}
