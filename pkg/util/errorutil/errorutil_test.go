package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

func TestToDomainErrorPassesThroughDomainErrors(t *testing.T) {
	original := NewPrivilegeRequired("original_global_admin", "only the original admin may delete tickets")
	wrapped := fmt.Errorf("delete ticket: %w", original)

	de := ToDomainError(wrapped)
	require.Equal(t, "PRIVILEGE_REQUIRED", de.Code)
	require.Equal(t, http.StatusForbidden, de.HTTPStatus)
	require.Equal(t, "original_global_admin", de.Details["required_privilege"])
	require.True(t, IsCode(wrapped, "PRIVILEGE_REQUIRED"))
}

func TestToDomainErrorMapsNoRowsToNotFound(t *testing.T) {
	de := ToDomainError(fmt.Errorf("lookup: %w", pgx.ErrNoRows))
	require.Equal(t, http.StatusNotFound, de.HTTPStatus)
	require.Equal(t, "NOT_FOUND", de.Code)
}

func TestToDomainErrorHidesUnknownErrors(t *testing.T) {
	cause := errors.New("connection reset by peer")
	de := ToDomainError(cause)
	require.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
	require.Equal(t, "internal server error", de.Message)
	require.ErrorIs(t, de, cause)
}

func TestToDomainErrorNil(t *testing.T) {
	require.Nil(t, ToDomainError(nil))
	require.False(t, IsCode(nil, "NOT_FOUND"))
}
