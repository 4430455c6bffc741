package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConnection marks transport failures: refused, timed out, reset.
	ErrConnection = errors.New("connection error")
	// ErrAuth marks credentials the server rejected.
	ErrAuth = errors.New("authentication error")
	// ErrServer marks non-success responses that are not auth failures.
	ErrServer = errors.New("server error")
	// ErrMalformedResponse marks bodies that could not be decoded.
	ErrMalformedResponse = errors.New("malformed response")
	ErrConfiguration     = errors.New("configuration error")
	ErrValidation        = errors.New("validation error")
)

// Wrap builds an error message that includes phase context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, phase, operation, message string, err error) error {
	detail := buildDetail(phase, operation, message)
	if marker == nil {
		marker = ErrServer
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRetryable reports whether a failed unit of remote work may be attempted
// again. Only transport and server failures qualify.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAuth) || errors.Is(err, ErrMalformedResponse) {
		return false
	}
	return errors.Is(err, ErrConnection) || errors.Is(err, ErrServer)
}

// IsFatal reports whether the error should abort the whole run when it occurs
// during the initial connectivity check.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConnection) || errors.Is(err, ErrAuth) || errors.Is(err, ErrConfiguration)
}

// Kind returns a short label for the error's marker, used in logs and run
// history.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrConnection):
		return "connection"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, ErrServer):
		return "server"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrValidation):
		return "validation"
	default:
		return "unknown"
	}
}

func buildDetail(phase, operation, message string) string {
	parts := make([]string, 0, 3)
	if phase = strings.TrimSpace(phase); phase != "" {
		parts = append(parts, phase)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
