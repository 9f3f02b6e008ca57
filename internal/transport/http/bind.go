package http

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apperrors "lingobar/internal/errors"
)

// maxBodyBytes caps request bodies on the loopback API.
const maxBodyBytes = 16 << 10

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json names so problem details match the wire format.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeAndValidate decodes a JSON body into dst and runs struct validation.
// Failures are returned as *apperrors.ValidationError.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		return apperrors.NewValidationError("body", "invalid_json", "request body must be a JSON object")
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return apperrors.NewValidationError("body", "invalid", err.Error())
		}
		fe := verrs[0]
		if fe.Field() == "license_key" && fe.Tag() == "required" {
			return apperrors.ErrEmptyKey
		}
		return apperrors.NewValidationError(fe.Field(), fe.Tag(),
			fmt.Sprintf("%s failed the %q check", fe.Field(), fe.Tag()))
	}
	return nil
}
