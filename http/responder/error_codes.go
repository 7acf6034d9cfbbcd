package responder

import (
	"net/http"

	"github.com/leeforge/orchestra/errors"
)

// API error codes. 4xxx are client errors, 5xxx server errors.
const (
	ErrCodeBadRequest       = 4000
	ErrCodeValidationFailed = 4002
	ErrCodeNotFound         = 4003
	ErrCodeRouteNotFound    = 4004
	ErrCodeForbidden        = 4005

	ErrCodeInternalServer = 5000
	ErrCodeDatabase       = 5001
	ErrCodeConfig         = 5007
	ErrCodeTemplate       = 5008
)

var errorMessages = map[int]string{
	ErrCodeBadRequest:       "Bad Request",
	ErrCodeValidationFailed: "Validation Failed",
	ErrCodeNotFound:         "Resource Not Found",
	ErrCodeRouteNotFound:    "Route Not Found",
	ErrCodeForbidden:        "Forbidden",
	ErrCodeInternalServer:   "Internal Server Error",
	ErrCodeDatabase:         "Database Error",
	ErrCodeConfig:           "Configuration Error",
	ErrCodeTemplate:         "Template Error",
}

// GetErrorMessage returns the default message for an error code
func GetErrorMessage(code int) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return "Unknown Error"
}

func NewError(code int, message string) Error {
	if message == "" {
		message = GetErrorMessage(code)
	}
	return Error{Code: code, Message: message}
}

var (
	ErrBadRequest     = NewError(ErrCodeBadRequest, "")
	ErrNotFound       = NewError(ErrCodeNotFound, "")
	ErrRouteNotFound  = NewError(ErrCodeRouteNotFound, "")
	ErrForbidden      = NewError(ErrCodeForbidden, "")
	ErrInternalServer = NewError(ErrCodeInternalServer, "")
)

var codeByType = map[errors.ErrorType]int{
	errors.ErrorTypeValidation:   ErrCodeValidationFailed,
	errors.ErrorTypeNotFound:     ErrCodeNotFound,
	errors.ErrorTypePrecondition: ErrCodeNotFound,
	errors.ErrorTypeForbidden:    ErrCodeForbidden,
	errors.ErrorTypeDatabase:     ErrCodeDatabase,
	errors.ErrorTypeConfig:       ErrCodeConfig,
	errors.ErrorTypeTemplate:     ErrCodeTemplate,
}

// FromError maps err to an HTTP status and envelope error. Messages of
// server errors are replaced by the generic text of their code.
func FromError(err error) (int, Error) {
	appErr := errors.FromError(err)
	if appErr == nil {
		return http.StatusInternalServerError, ErrInternalServer
	}

	status := errors.HTTPStatus(appErr)
	code, ok := codeByType[appErr.Type]
	if !ok {
		code = ErrCodeInternalServer
	}

	out := NewError(code, "")
	if status < http.StatusInternalServerError {
		out.Message = appErr.Message
		if len(appErr.Details) > 0 {
			out.Details = appErr.Details
		}
	}
	return status, out
}
