package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrUnavailable        = errors.New("server unavailable")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// StatusError is returned for every non-2xx response. It unwraps to the
// sentinel matching its status class, so callers can use errors.Is.
type StatusError struct {
	Code   int
	Method string
	Path   string
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, e.Detail)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, http.StatusText(e.Code))
}

func (e *StatusError) Unwrap() error {
	switch {
	case IsAuthFailure(e.Code):
		return ErrUnauthorized
	case e.Code == http.StatusNotFound:
		return ErrNotFound
	case e.Code == http.StatusBadRequest, e.Code == http.StatusConflict, e.Code == http.StatusUnprocessableEntity:
		return ErrValidation
	case e.Code >= 500:
		return ErrUnavailable
	default:
		return nil
	}
}

// IsAuthFailure reports whether code means the bearer token was rejected.
func IsAuthFailure(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}
