// Package errors defines the error taxonomy shared by the transport,
// controller client, pattern store, workflow engine, and the API surfaces.
package errors

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrUnreachable is returned when a connection to a controller cannot be established.
var ErrUnreachable = errors.New("controller unreachable")

// ErrTimeout is returned when a controller does not respond within the call budget.
var ErrTimeout = errors.New("controller timed out")

// ErrProtocol is returned when a controller response does not parse.
// It is considered persistent (firmware/version mismatch) and is never retried.
var ErrProtocol = errors.New("protocol error")

// ErrDeviceUnavailable is returned when retries against a controller are exhausted.
var ErrDeviceUnavailable = errors.New("device unavailable")

// ErrBusy is returned when a workflow session is already active for a controller.
var ErrBusy = errors.New("controller busy")

// ErrNotFound is returned when a requested resource doesn't exist.
var ErrNotFound = errors.New("resource not found")

// ErrDuplicateName is returned when a pattern name collides with an existing
// pattern on the same controller.
var ErrDuplicateName = errors.New("duplicate pattern name")

// ErrInvalidInput is returned when the provided input is invalid.
var ErrInvalidInput = errors.New("invalid input")

// ErrInternal is returned for unexpected internal errors.
var ErrInternal = errors.New("internal error")

// LogErrorAndReturn logs an error with structured context and returns it.
func LogErrorAndReturn(logger *slog.Logger, err error, message string, args ...any) error {
	if err == nil {
		return nil
	}
	logger.Error(message, append([]any{"error", err}, args...)...)
	return err
}

// WrapErrorf wraps an error with additional context using fmt.Errorf.
func WrapErrorf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// IsUnreachable returns true if the error is or wraps ErrUnreachable.
func IsUnreachable(err error) bool { return errors.Is(err, ErrUnreachable) }

// IsTimeout returns true if the error is or wraps ErrTimeout.
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

// IsProtocol returns true if the error is or wraps ErrProtocol.
func IsProtocol(err error) bool { return errors.Is(err, ErrProtocol) }

// IsDeviceUnavailable returns true if the error is or wraps ErrDeviceUnavailable.
func IsDeviceUnavailable(err error) bool { return errors.Is(err, ErrDeviceUnavailable) }

// IsBusy returns true if the error is or wraps ErrBusy.
func IsBusy(err error) bool { return errors.Is(err, ErrBusy) }

// IsNotFound returns true if the error is or wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsDuplicateName returns true if the error is or wraps ErrDuplicateName.
func IsDuplicateName(err error) bool { return errors.Is(err, ErrDuplicateName) }

// IsInvalidInput returns true if the error is or wraps ErrInvalidInput.
func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }

// IsRetryable reports whether the transport error kind may be retried by the
// controller client. Only Unreachable and Timeout are transient.
func IsRetryable(err error) bool {
	return IsUnreachable(err) || IsTimeout(err)
}

// Unreachablef returns a formatted ErrUnreachable error.
func Unreachablef(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrUnreachable)...)
}

// Timeoutf returns a formatted ErrTimeout error.
func Timeoutf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrTimeout)...)
}

// Protocolf returns a formatted ErrProtocol error.
func Protocolf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrProtocol)...)
}

// DeviceUnavailablef returns a formatted ErrDeviceUnavailable error.
func DeviceUnavailablef(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrDeviceUnavailable)...)
}

// Busyf returns a formatted ErrBusy error.
func Busyf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrBusy)...)
}

// NotFoundf returns a formatted ErrNotFound error.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// DuplicateNamef returns a formatted ErrDuplicateName error.
func DuplicateNamef(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrDuplicateName)...)
}

// InvalidInputf returns a formatted ErrInvalidInput error.
func InvalidInputf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalidInput)...)
}

// Internalf returns a formatted ErrInternal error.
func Internalf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInternal)...)
}
