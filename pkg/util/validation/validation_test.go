package validation

import (
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/marketbook/marketbook-api/pkg/util/errorutil"
)

type signup struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role,omitempty" validate:"omitempty,oneof=user admin"`
}

func TestStructAcceptsValidPayload(t *testing.T) {
	require.NoError(t, Struct(signup{Email: "ann@example.com", Password: "secret1"}))
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(signup{Email: "nope", Password: "abc", Role: "root"})
	require.Error(t, err)

	domainErr := apperrors.ToDomainError(err)
	require.Equal(t, "VALIDATION_FAILED", domainErr.Code)
	require.Equal(t, 400, domainErr.HTTPStatus)

	fields, ok := domainErr.Details["fields"].([]FieldError)
	require.True(t, ok)
	require.Len(t, fields, 3)
	require.Equal(t, FieldError{Field: "email", Tag: "email"}, fields[0])
	require.Equal(t, FieldError{Field: "password", Tag: "min", Param: "6"}, fields[1])
	require.Equal(t, "role", fields[2].Field)
	require.Contains(t, domainErr.Message, "email, password, role")
}
