package middleware

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/myscheme/schemeapi/apperrors"
)

var registerOnce sync.Once

// RegisterValidation makes gin's validator report json field names.
func RegisterValidation() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
}

// BindJSON decodes the body into dst and renders a validation error on
// failure. It reports whether the handler should continue.
func BindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		RenderError(c, BindingError(err))
		return false
	}
	return true
}

// BindingError converts a gin binding failure into a validation error with
// per-field details.
func BindingError(err error) *apperrors.Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.Validation("invalid request body")
	}

	details := make(map[string]string, len(verrs))
	for _, e := range verrs {
		details[fieldPath(e)] = friendlyMessage(e)
	}
	return apperrors.ValidationWithDetails("validation failed", details)
}

// fieldPath drops the struct name prefix: "CreateSchemeDTO.eligibility.age.min"
// becomes "eligibility.age.min".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return e.Field()
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", e.Param())
		}
		return "must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must not exceed %s characters", e.Param())
		}
		return "must not exceed " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	case "http_url":
		return "must be an http or https URL"
	case "hexcolor":
		return "must be a hex color"
	case "mongodb":
		return "must be a valid id"
	default:
		return "is invalid"
	}
}
