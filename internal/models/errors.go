package models

import (
	"errors"
	"strings"
)

var (
	ErrNoToken            = errors.New("No token, authorisation denied")
	ErrInvalidToken       = errors.New("Token is invalid")
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrNotOwner           = errors.New("Not authorized")
	ErrContactNotFound    = errors.New("Contact not found")
	ErrUserNotFound       = errors.New("User not found")
	ErrUserExists         = errors.New("User already exists")
	ErrValidation         = errors.New("validation failed")
)

// FieldError describes one rejected request field, in the shape the web client expects.
type FieldError struct {
	Msg      string `json:"msg"`
	Param    string `json:"param"`
	Location string `json:"location"`
}

type ValidationErrorsResponse struct {
	Errors []FieldError `json:"errors"`
}

// ValidationError carries field-level messages and matches ErrValidation with errors.Is.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Msg)
	}

	return ErrValidation.Error() + ": " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError builds a ValidationError for a single body field.
func NewValidationError(param, msg string) *ValidationError {
	return &ValidationError{
		Fields: []FieldError{{Msg: msg, Param: param, Location: "body"}},
	}
}
