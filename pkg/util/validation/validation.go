package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/marketbook/marketbook-api/pkg/util/errorutil"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// FieldError is a single failed rule, keyed by the JSON field name.
type FieldError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param,omitempty"`
}

// Struct validates s against its `validate` tags. Failures come back as a
// VALIDATION_FAILED domain error listing every field in details.fields.
func Struct(s any) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	fields := make([]FieldError, 0, len(ve))
	names := make([]string, 0, len(ve))
	for _, fe := range ve {
		fields = append(fields, FieldError{Field: fe.Field(), Tag: fe.Tag(), Param: fe.Param()})
		names = append(names, fe.Field())
	}
	return apperrors.NewValidationError("invalid or missing fields: "+strings.Join(names, ", "),
		map[string]any{"fields": fields})
}

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := fld.Tag.Get("json")
			if comma := strings.Index(name, ","); comma != -1 {
				name = name[:comma]
			}
			switch name {
			case "":
				return fld.Name
			case "-":
				return ""
			}
			return name
		})
	})
	return validate
}
