package payment

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrProviderNotFound  = errors.New("payment provider not found")
	ErrSessionNotFound   = errors.New("payment session not found")
	ErrInvalidAmount     = errors.New("invalid payment amount")
	ErrMissingResourceID = errors.New("resource id is required")
)

// ErrorType classifies provider failures the same way for every provider.
type ErrorType string

const (
	TypeAuthorization ErrorType = "payment_authorization_error"
	TypeRequiresMore  ErrorType = "payment_requires_more_error"
	TypeInvalidData   ErrorType = "invalid_data"
	TypeNotFound      ErrorType = "not_found"
)

// Error is returned by providers for every lifecycle failure that reaches the caller.
type Error struct {
	Type    ErrorType
	Message string
	// Code is an HTTP-like status; only set for TypeRequiresMore.
	Code int
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func NewAuthorizationError(message string, err error) *Error {
	return &Error{Type: TypeAuthorization, Message: message, Err: err}
}

// NewRequiresMoreError defaults code to 500 when the remote status is unknown.
func NewRequiresMoreError(message string, code int, err error) *Error {
	if code == 0 {
		code = http.StatusInternalServerError
	}
	return &Error{Type: TypeRequiresMore, Message: message, Code: code, Err: err}
}

func NewInvalidDataError(message string, err error) *Error {
	return &Error{Type: TypeInvalidData, Message: message, Err: err}
}

func IsAuthorizationError(err error) bool { return isType(err, TypeAuthorization) }

func IsRequiresMoreError(err error) bool { return isType(err, TypeRequiresMore) }

func IsInvalidDataError(err error) bool { return isType(err, TypeInvalidData) }

func isType(err error, t ErrorType) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Type == t
}

// HTTPStatus maps an error to the status code the HTTP layer should answer with.
func HTTPStatus(err error) int {
	var pe *Error
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrProviderNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrMissingResourceID):
		return http.StatusBadRequest
	case errors.As(err, &pe):
		switch pe.Type {
		case TypeInvalidData:
			return http.StatusBadRequest
		case TypeNotFound:
			return http.StatusNotFound
		case TypeRequiresMore:
			return http.StatusPaymentRequired
		default:
			return http.StatusBadGateway
		}
	default:
		return http.StatusInternalServerError
	}
}
