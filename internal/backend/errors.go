package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthenticated is returned for 401/403 responses and for calls made without a token.
	ErrUnauthenticated = errors.New("backend: unauthenticated")
	ErrEmptyResponse   = errors.New("backend: empty response")
)

// StatusError carries a non-2xx answer of the backend.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status=%d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: status=%d body=%s", e.Op, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	if isAuthStatus(e.StatusCode) {
		return ErrUnauthenticated
	}
	return nil
}

// ServerSide reports whether the backend itself failed. Only these trip the breaker.
func (e *StatusError) ServerSide() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

func isAuthStatus(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}
