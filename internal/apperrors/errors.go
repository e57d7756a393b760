package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the four failure classes the API distinguishes.
// Callers branch on errors.Is rather than message text.
var (
	// ErrValidation marks a missing or malformed identifier. User-correctable.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized marks a stamp token that does not match the shared secret.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound marks an operation that addressed a customer that does not
	// exist and where creation is not implied.
	ErrNotFound = errors.New("not found")

	// ErrStorage marks an unreachable backend or a failed query. The core does
	// not retry; the caller may retry the whole request.
	ErrStorage = errors.New("storage failure")
)

// Validationf wraps ErrValidation with a formatted detail message.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Unauthorizedf wraps ErrUnauthorized with a formatted detail message.
func Unauthorizedf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrUnauthorized, fmt.Sprintf(format, args...))
}

// NotFoundf wraps ErrNotFound with a formatted detail message.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Storagef wraps ErrStorage with a formatted detail message and the
// underlying cause.
func Storagef(cause error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, fmt.Sprintf(format, args...), cause)
}
