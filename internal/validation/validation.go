// Package validation checks request payloads with go-playground/validator and turns
// failures into the field-level messages returned to clients.
package validation

import (
	"errors"
	"reflect"
	"strings"

	validator "github.com/go-playground/validator/v10"

	"github.com/patric-chuzhbe/contactkeeper/internal/models"
)

// Messages keyed by "<json field>.<tag>", falling back to "<json field>".
var messages = map[string]string{
	"name":              "Please add name",
	"email":             "Please include a valid email",
	"password.min":      "Please enter a password with 6 or more characters",
	"password.required": "Password is required",
	"type":              "Type must be personal or professional",
}

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for an empty tag or nil func.
	_ = validate.RegisterValidation("contacttype", validateContactType)

	return &Validator{validate: validate}
}

func validateContactType(fieldLevel validator.FieldLevel) bool {
	switch fieldLevel.Field().String() {
	case models.ContactTypePersonal, models.ContactTypeProfessional:
		return true
	}

	return false
}

// Struct validates payload and returns a *models.ValidationError listing every
// rejected field, or nil.
func (v *Validator) Struct(payload any) error {
	err := v.validate.Struct(payload)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	result := &models.ValidationError{}
	for _, fieldErr := range validationErrors {
		result.Fields = append(result.Fields, models.FieldError{
			Msg:      message(fieldErr),
			Param:    fieldErr.Field(),
			Location: "body",
		})
	}

	return result
}

func message(fieldErr validator.FieldError) string {
	if msg, ok := messages[fieldErr.Field()+"."+fieldErr.Tag()]; ok {
		return msg
	}
	if msg, ok := messages[fieldErr.Field()]; ok {
		return msg
	}

	return fieldErr.Field() + " is invalid"
}
