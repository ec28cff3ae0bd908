package research

import (
	"errors"
	"fmt"
)

// Error taxonomy. Validation, not-found and invalid-state errors surface
// to the caller directly; upstream agent failures outside the search
// fan-out abort the run and become a failed Outcome; persistence errors
// after a computed result become a warning on the Outcome instead.

// ValidationError reports malformed caller input. Never retried.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// NotFoundError reports an unknown session id.
type NotFoundError struct {
	SessionID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("session %s not found", e.SessionID)
}

// InvalidStateError reports an operation applied to a session in the
// wrong status, e.g. resume on a session that is not paused.
type InvalidStateError struct {
	SessionID string
	Status    string
	Expected  string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("session %s is %s, expected %s", e.SessionID, e.Status, e.Expected)
}

// UpstreamAgentError reports a failed agent invocation. Capability names
// which agent call failed (search, fact_check, summarize, report, approval).
type UpstreamAgentError struct {
	Capability string
	Err        error
}

func (e *UpstreamAgentError) Error() string {
	return fmt.Sprintf("agent %s failed: %v", e.Capability, e.Err)
}

func (e *UpstreamAgentError) Unwrap() error { return e.Err }

// PersistenceError reports a store write that failed after the
// computational result was already produced.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ErrTimeout marks a research call aborted by the caller's deadline.
var ErrTimeout = errors.New("research timed out")

// IsValidation reports whether err is a caller-input problem.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is an unknown-session error.
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

// IsInvalidState reports whether err is a wrong-status error.
func IsInvalidState(err error) bool {
	var ise *InvalidStateError
	return errors.As(err, &ise)
}
