// Package server provides the HTTP REST API for the marketing hub.
package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"
)

// ErrNotFound indicates the requested record does not exist
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrConflict indicates the request collides with existing data, such as a reused lead email
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrInvalidState indicates the record cannot make the requested transition
type ErrInvalidState struct {
	Message string
}

func (e *ErrInvalidState) Error() string {
	return e.Message
}

// ErrForbidden indicates the caller lacks the required role
type ErrForbidden struct{}

func (e *ErrForbidden) Error() string {
	return "insufficient permissions"
}

// ErrOTPNotFound indicates no login code is pending for the email
type ErrOTPNotFound struct{}

func (e *ErrOTPNotFound) Error() string {
	return "no verification code found, please request a new one"
}

// ErrOTPExpired indicates the pending login code is past its expiry
type ErrOTPExpired struct{}

func (e *ErrOTPExpired) Error() string {
	return "verification code has expired, please request a new one"
}

// ErrOTPAttemptsExceeded indicates too many wrong codes were submitted
type ErrOTPAttemptsExceeded struct{}

func (e *ErrOTPAttemptsExceeded) Error() string {
	return "too many invalid attempts, please request a new verification code"
}

// ErrOTPInvalid indicates a wrong code
type ErrOTPInvalid struct {
	Remaining int
}

func (e *ErrOTPInvalid) Error() string {
	return fmt.Sprintf("invalid verification code, %d attempts remaining", e.Remaining)
}

// HTTPStatus returns the appropriate HTTP status code for an error.
// Wrapped errors are matched as well.
func HTTPStatus(err error) int {
	var (
		notFound   *ErrNotFound
		validation *ErrValidation
		conflict   *ErrConflict
		state      *ErrInvalidState
		forbidden  *ErrForbidden
		otpMissing *ErrOTPNotFound
		otpExpired *ErrOTPExpired
		otpLocked  *ErrOTPAttemptsExceeded
		otpInvalid *ErrOTPInvalid
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &forbidden):
		return http.StatusForbidden
	case errors.As(err, &validation), errors.As(err, &conflict), errors.As(err, &state),
		errors.As(err, &otpMissing), errors.As(err, &otpExpired), errors.As(err, &otpLocked),
		errors.As(err, &otpInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status and JSON body. Internal errors are logged
// and replaced by fallback so details never reach the client.
func writeError(w http.ResponseWriter, err error, fallback string) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("[api] %s: %v", fallback, err)
		errorResponse(w, status, fallback)
		return
	}
	errorResponse(w, status, err.Error())
}
