package ledger

import (
	"errors"
	"fmt"
)

// ErrUnavailable marks a ledger that could not answer: connection lost,
// timeout, or node shutting down.
var ErrUnavailable = errors.New("ledger unavailable")

// Dispatch failures raised by every ledger before a call reaches its pallet.
const (
	ReasonBadNonce     = "system.BadNonce"
	ReasonBadSignature = "system.BadSignature"
	ReasonUnknownCall  = "system.CallNotFound"
	ReasonInvalidArgs  = "system.InvalidArgs"
)

// ConnectionError is returned when a client cannot be established.
type ConnectionError struct {
	Ledger   string
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to %s ledger at %s: %v", e.Ledger, e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// SubmissionError is returned when a ledger rejects an extrinsic or its
// dispatch fails. Reason is "<pallet>.<Error>" when the ledger reported one.
type SubmissionError struct {
	Ledger string
	Call   string
	Reason string
	Err    error
}

func (e *SubmissionError) Error() string {
	msg := fmt.Sprintf("%s ledger rejected %s", e.Ledger, e.Call)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// IsDispatchError reports whether err is a SubmissionError with the given reason.
func IsDispatchError(err error, reason string) bool {
	var se *SubmissionError
	if errors.As(err, &se) {
		return se.Reason == reason
	}
	return false
}

// IsUnavailable reports whether err means the ledger could not be reached.
func IsUnavailable(err error) bool {
	if errors.Is(err, ErrUnavailable) {
		return true
	}
	var ce *ConnectionError
	return errors.As(err, &ce)
}
