// Package errkind classifies failures into the closed taxonomy the
// scheduler and event bus use to decide retry, logging, and client-facing
// behavior.
package errkind

import "errors"

// Kind is a closed set of failure classes. New values must not be added
// without updating every switch that branches on Kind.
type Kind string

const (
	TransientFetchFailure     Kind = "transient_fetch_failure"
	PermanentFetchFailure     Kind = "permanent_fetch_failure"
	EngineUnavailable         Kind = "engine_unavailable"
	CancellationRequested     Kind = "cancellation_requested"
	DuplicateRejected         Kind = "duplicate_rejected"
	ConfigurationInvalid      Kind = "configuration_invalid"
	PersistenceUnavailable    Kind = "persistence_unavailable"
	InternalInvariantViolation Kind = "internal_invariant_violation"
)

// Error wraps an underlying error with a Kind so callers can branch with
// errors.As without parsing message text.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a classified error with no underlying cause.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap classifies an existing error under kind.
func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Is reports whether err (or anything it wraps) is classified as kind.
func Is(err error, kind Kind) bool {
	var ke *Error
	if errors.As(err, &ke) {
		return ke.Kind == kind
	}
	return false
}

// OfOrDefault returns err's Kind if classified, or def otherwise.
func OfOrDefault(err error, def Kind) Kind {
	var ke *Error
	if errors.As(err, &ke) {
		return ke.Kind
	}
	return def
}
