package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// echoValidator adapts go-playground/validator to the echo.Validator
// interface so handlers can call c.Validate(req) on bound payloads.
type echoValidator struct {
	v *validator.Validate
}

func NewValidator() *echoValidator {
	return &echoValidator{v: validator.New()}
}

// Validate reports every failing field in one message, joined with "; ",
// so a client fixing a payload sees the full list at once.
func (ev *echoValidator) Validate(i any) error {
	err := ev.v.Struct(i)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}

	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

// fieldMessage renders one failure. The auth payloads only carry
// "required" constraints; anything else gets a generic message rather
// than leaking validator internals to the client.
func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	if fe.Tag() == "required" {
		return field + " is required"
	}
	return field + " is invalid"
}
