package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidRoomName    = fmt.Errorf("room name is empty or blank")
	ErrRoomAlreadyExists  = fmt.Errorf("room already exists")
	ErrRoomNotFound       = fmt.Errorf("room not found")
	ErrRoomProtected      = fmt.Errorf("room is protected and cannot be deleted")
	ErrInvalidUsername    = fmt.Errorf("username is empty or blank")
	ErrMalformedPayload   = fmt.Errorf("malformed payload")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity rules")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrUnauthorized       = fmt.Errorf("unauthorized")
	ErrStore              = fmt.Errorf("store unavailable")
	ErrWorkerPanic        = fmt.Errorf("worker panic")
)

// HTTPStatus maps core errors to an HTTP status at the transport boundary.
// Unknown errors are treated as internal/store failures.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidRoomName),
		errors.Is(err, ErrInvalidUsername),
		errors.Is(err, ErrMalformedPayload),
		errors.Is(err, ErrInvalidPassword):
		return http.StatusBadRequest
	case errors.Is(err, ErrRoomAlreadyExists),
		errors.Is(err, ErrUserAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRoomProtected):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Code returns the stable machine-readable identifier sent to clients.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRoomName):
		return "INVALID_NAME"
	case errors.Is(err, ErrInvalidUsername):
		return "INVALID_USERNAME"
	case errors.Is(err, ErrMalformedPayload):
		return "BAD_PAYLOAD"
	case errors.Is(err, ErrRoomAlreadyExists):
		return "ALREADY_EXISTS"
	case errors.Is(err, ErrRoomNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrRoomProtected):
		return "PROTECTED"
	case errors.Is(err, ErrUserAlreadyExists):
		return "USER_EXISTS"
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, ErrInvalidPassword):
		return "INVALID_PASSWORD"
	default:
		return "STORE_ERROR"
	}
}
