package common

import (
	"errors"
	"net/http"
)

// Business logic errors
var (
	// General errors
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")

	// Friend graph errors
	ErrInvalidState           = errors.New("invalid friend request state")
	ErrInconsistentFriendship = errors.New("inconsistent friendship records")

	// Messaging errors
	ErrNotAuthorized  = errors.New("not authorized to message this account")
	ErrEmptyMessage   = errors.New("message is empty")
	ErrMessageTooLong = errors.New("message is too long")

	// Live view errors
	ErrPartialSync = errors.New("conversation view partially synced")

	// Auth errors
	ErrUnauthorized = errors.New("unauthorized")
)

// StatusFor maps a business error to an HTTP status code
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrEmptyMessage), errors.Is(err, ErrMessageTooLong), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
