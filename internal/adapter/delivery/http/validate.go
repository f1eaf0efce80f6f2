package http

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/linkly/url-shortener/internal/shortcode"
	"github.com/linkly/url-shortener/pkg/response"
)

// newValidator returns a validator that reports fields by their json names
// and knows the targeturl and shortcode tags.
func newValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Registration fails only for empty tags or nil funcs.
	_ = validate.RegisterValidation("targeturl", func(fl validator.FieldLevel) bool {
		return shortcode.IsValidURL(fl.Field().String())
	})
	_ = validate.RegisterValidation("shortcode", func(fl validator.FieldLevel) bool {
		return shortcode.IsValidCode(fl.Field().String())
	})

	return validate
}

// validationMessage maps the first failed rule to its client message. Fields
// are reported in declaration order, so a missing target URL wins over a bad
// custom code.
func validationMessage(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return response.MsgInvalidBody
	}

	e := errs[0]

	switch e.Field() {
	case "targetUrl":
		if e.Tag() == "required" {
			return response.MsgTargetURLRequired
		}
		return response.MsgInvalidURL
	case "customCode":
		return response.MsgInvalidCode
	default:
		return response.MsgInvalidBody
	}
}
