package osioclient

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotStarted is returned when a request is made before Start or after Stop
	ErrNotStarted = errors.New("gateway is not started")
	// ErrUnsupportedVersion is returned when an endpoint or the gateway does not support the API version
	ErrUnsupportedVersion = errors.New("unsupported API version")
	// ErrUnauthorized matches a GatewayError with status 401
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden matches a GatewayError with status 403
	ErrForbidden = errors.New("forbidden")
	// ErrTokenExpired is returned when the login token has expired. Login again to continue.
	ErrTokenExpired = errors.New("login token has expired")
)

// GatewayError is a request that was answered with an unexpected status code
type GatewayError struct {
	Op         string // operation or endpoint name
	StatusCode int
	Status     string
	Body       string
}

func (e *GatewayError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	if e.Body == "" {
		return fmt.Sprintf("%s: %s", e.Op, status)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, status, e.Body)
}

// Unwrap lets errors.Is match ErrUnauthorized and ErrForbidden
func (e *GatewayError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	}
	return nil
}

// unsupportedVersion wraps ErrUnsupportedVersion with the operation name
func unsupportedVersion(op string, version string) error {
	return fmt.Errorf("%s: version '%s': %w", op, version, ErrUnsupportedVersion)
}
