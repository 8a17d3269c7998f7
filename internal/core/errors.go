package core

import "fmt"

type ErrorCode string

const (
	ErrValidation  ErrorCode = "WSD_VALIDATION"
	ErrNotFound    ErrorCode = "WSD_NOT_FOUND"
	ErrConflict    ErrorCode = "WSD_CONFLICT"
	ErrProvider    ErrorCode = "WSD_PROVIDER"
	ErrPersistence ErrorCode = "WSD_PERSISTENCE"
	ErrInternal    ErrorCode = "WSD_INTERNAL"
)

// HTTPStatus returns the HTTP status code for this error code.
func (e ErrorCode) HTTPStatus() int {
	switch e {
	case ErrValidation:
		return 400
	case ErrNotFound:
		return 404
	case ErrConflict:
		return 409
	case ErrProvider:
		return 502
	default:
		return 500
	}
}

type AppError struct {
	Code    ErrorCode
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAppError(code ErrorCode, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

func NotFoundf(format string, args ...interface{}) *AppError {
	return &AppError{Code: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...interface{}) *AppError {
	return &AppError{Code: ErrValidation, Message: fmt.Sprintf(format, args...)}
}
