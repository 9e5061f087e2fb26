package types

import (
	"fmt"
	"net/http"
)

// AppError is an expected failure whose message is safe to show to clients.
type AppError struct {
	StatusCode int    `json:"statusCode"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

func NewAppError(message string, statusCode int) *AppError {
	if message == "" {
		message = "Internal Server Error"
	}
	if statusCode == 0 {
		statusCode = http.StatusInternalServerError
	}
	status := StatusFail
	if statusCode >= http.StatusInternalServerError {
		status = StatusError
	}
	return &AppError{StatusCode: statusCode, Status: status, Message: message}
}

func (e *AppError) Error() string {
	return e.Message
}

// CastError reports a value that could not be converted to the type of the
// field it targets, e.g. a non-numeric id in a path.
type CastError struct {
	Path  string
	Value string
}

func (e *CastError) Error() string {
	return fmt.Sprintf("Invalid %s: %s", e.Path, e.Value)
}

var ErrPermissionDenied = NewAppError("You do not have permission to perform this action!", http.StatusForbidden)
