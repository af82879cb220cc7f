package httpserver

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"review_pulse/internal/domain"
)

// fieldErrors maps a query/body field (json name) to a short message.
type fieldErrors map[string]string

func (f fieldErrors) Error() string {
	parts := make([]string, 0, len(f))
	for k, v := range f {
		parts = append(parts, k+" "+v)
	}
	return strings.Join(parts, "; ")
}

type requestValidator struct {
	v *validator.Validate
}

func newValidator() *requestValidator {
	v := validator.New()

	// report json names so messages match the query string
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	// "all" or one of the known rating categories
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if strings.EqualFold(s, "all") {
			return true
		}
		_, ok := domain.CategoryByName(s)
		return ok
	})

	return &requestValidator{v: v}
}

func (rv *requestValidator) validate(s any) error {
	err := rv.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := fieldErrors{}
	for _, e := range verrs {
		out[e.Field()] = friendlyMessage(e)
	}
	return out
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + e.Param()
	case "datetime":
		return "must be a date formatted " + e.Param()
	case "category":
		return fmt.Sprintf("must be one of: %s", strings.Join(domain.CategoryNames(), ", "))
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	default:
		return "is invalid"
	}
}
