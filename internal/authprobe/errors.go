package authprobe

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidCredentials is returned when the auth collaborator rejects the email/password pair.
	ErrInvalidCredentials = errors.New("authprobe: invalid login credentials")
	// ErrRoleNotFound is returned when the user has no role row.
	ErrRoleNotFound = errors.New("authprobe: role not found")
)

// AuthError is a non-2xx answer from the hosted auth service.
type AuthError struct {
	Status  int
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("authprobe: auth service returned %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("authprobe: auth service returned %d: %s", e.Status, e.Message)
}

// Rejected reports whether the service refused the email/password pair. A
// 401, 403 or 404 means the API key or base URL is wrong and is not a
// rejection of the user's credentials.
func (e *AuthError) Rejected() bool {
	if e.Status != http.StatusBadRequest {
		return false
	}
	switch e.Code {
	case "invalid_grant", "invalid_credentials":
		return true
	}
	return false
}

// Misconfigured reports whether the service refused this deployment's API
// key or route.
func (e *AuthError) Misconfigured() bool {
	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}

// Is lets errors.Is(err, ErrInvalidCredentials) match credential rejections.
func (e *AuthError) Is(target error) bool {
	return target == ErrInvalidCredentials && e.Rejected()
}
