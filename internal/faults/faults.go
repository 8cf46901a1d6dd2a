// Package faults defines the layered error sum shared by the pipeline.
// Retryability is a property of the class, not of call sites.
package faults

import (
	"errors"
	"fmt"

	"jigpipe/internal/media"
)

// Class partitions every pipeline failure.
type Class int

const (
	// Config covers startup problems: missing credentials, bad targets.
	Config Class = iota
	// Transport covers network and transient I/O failures.
	Transport
	// AuthDenied covers 401/403 responses from the platform.
	AuthDenied
	// Classified carries a mapped per-item resolution.
	Classified
	// ManifestInvalid covers unparseable or mismatched album documents.
	ManifestInvalid
	// TranscodeFailure covers media decode/encode errors.
	TranscodeFailure
	// Fatal covers assertions that abort the whole process.
	Fatal
)

func (c Class) String() string {
	switch c {
	case Config:
		return "config"
	case Transport:
		return "transport"
	case AuthDenied:
		return "auth_denied"
	case Classified:
		return "classified"
	case ManifestInvalid:
		return "manifest_invalid"
	case TranscodeFailure:
		return "transcode_failure"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error is one classified failure.
type Error struct {
	Class      Class
	Resolution media.Resolution
	Status     int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Class, e.Err)
	}
	if e.Resolution != "" {
		return fmt.Sprintf("%s: %s", e.Class, e.Resolution)
	}
	return e.Class.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the failure should be retried.
func (e *Error) Retryable() bool { return e.Class == Transport }

// Configf builds a configuration error.
func Configf(format string, args ...any) *Error {
	return &Error{Class: Config, Err: fmt.Errorf(format, args...)}
}

// TransportErr wraps a network or transient I/O failure.
func TransportErr(err error) *Error {
	return &Error{Class: Transport, Resolution: media.ResolutionTransportError, Err: err}
}

// AuthDeniedErr records a 401/403 response.
func AuthDeniedErr(status int) *Error {
	return &Error{Class: AuthDenied, Status: status, Err: fmt.Errorf("platform denied request with status %d", status)}
}

// ClassifiedErr carries a mapped resolution such as AlreadyUpdated.
func ClassifiedErr(res media.Resolution, status int) *Error {
	return &Error{Class: Classified, Resolution: res, Status: status}
}

// ManifestInvalidf marks an album document the loader cannot accept.
func ManifestInvalidf(format string, args ...any) *Error {
	return &Error{Class: ManifestInvalid, Err: fmt.Errorf(format, args...)}
}

// TranscodeErr wraps a media decode/encode failure.
func TranscodeErr(err error) *Error {
	return &Error{Class: TranscodeFailure, Err: err}
}

// Fatalf marks an assertion failure that must abort the process.
func Fatalf(format string, args ...any) *Error {
	return &Error{Class: Fatal, Err: fmt.Errorf(format, args...)}
}

// ClassOf extracts the class from err, defaulting to Transport for plain
// errors so unknown failures stay retry-safe rather than fatal.
func ClassOf(err error) (Class, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Class, true
	}
	return Transport, false
}

// ResolutionOf extracts a mapped resolution from err when one is present.
func ResolutionOf(err error) (media.Resolution, bool) {
	var fe *Error
	if errors.As(err, &fe) && fe.Resolution != "" {
		return fe.Resolution, true
	}
	return "", false
}

// IsRetryable reports whether err should be retried.
func IsRetryable(err error) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Retryable()
	}
	return false
}
