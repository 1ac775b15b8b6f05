package handlers

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/gmp-id/gmpcms/internal/httpx"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON names so clients see the keys they sent.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// errBadBody marks a request body that could not be decoded.
var errBadBody = errors.New("invalid request body")

// bindJSON decodes the body into dst and validates it.
func bindJSON(c fiber.Ctx, dst any) error {
	if err := c.Bind().JSON(dst); err != nil {
		return errBadBody
	}
	return validate.Struct(dst)
}

// writeBindError turns a bindJSON failure into a 400 response.
func writeBindError(c fiber.Ctx, err error) error {
	if errors.Is(err, errBadBody) {
		return httpx.BadRequest(c, "Invalid request body")
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		var msg *inputError
		if errors.As(err, &msg) {
			return httpx.BadRequest(c, msg.Error())
		}
		return httpx.BadRequest(c, err.Error())
	}

	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return httpx.BadRequest(c, "Missing required field: "+fe.Field())
		}
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describeFieldError(fe)
	}
	return httpx.ValidationError(c, fields)
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "email":
		return "must be a valid email address"
	case "url", "http_url":
		return "must be a valid URL"
	case "max":
		return "must be at most " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "datetime":
		return "must be a date formatted as " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

// inputError is a hand-written validation failure with a client-facing message.
type inputError struct {
	msg string
}

func (e *inputError) Error() string { return e.msg }

func invalidInput(msg string) error {
	return &inputError{msg: msg}
}
