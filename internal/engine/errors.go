package engine

import (
	"errors"
	"fmt"

	"github.com/w3f/edunews/internal/identity"
	"github.com/w3f/edunews/internal/ir"
	"github.com/w3f/edunews/internal/issuance"
	"github.com/w3f/edunews/internal/keys"
	"github.com/w3f/edunews/internal/ledger"
	"github.com/w3f/edunews/internal/registry"
)

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeMalformedInput indicates input rejected before any ledger write.
	ErrCodeMalformedInput ErrorCode = "MALFORMED_INPUT"

	// ErrCodeConnectionFailure indicates a ledger client could not be established.
	ErrCodeConnectionFailure ErrorCode = "CONNECTION_FAILURE"

	// ErrCodeNotFound indicates the requested article or container does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodePartialWrite indicates a registration stopped after some writes finalized.
	ErrCodePartialWrite ErrorCode = "PARTIAL_WRITE"

	// ErrCodeLedgerUnavailable indicates a ledger stopped answering mid-operation.
	ErrCodeLedgerUnavailable ErrorCode = "LEDGER_UNAVAILABLE"

	// ErrCodeContention indicates another registration for the publisher is running.
	ErrCodeContention ErrorCode = "CONTENTION"

	// ErrCodeSubmissionFailed indicates a ledger rejected a write.
	ErrCodeSubmissionFailed ErrorCode = "SUBMISSION_FAILED"
)

// Error is an engine failure with a stable code.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Ledger names the ledger involved, if any.
	Ledger string

	// FlowToken identifies the affected registration, if any.
	FlowToken string

	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Ledger != "" {
		msg += fmt.Sprintf(" (ledger=%s)", e.Ledger)
	}
	if e.FlowToken != "" {
		msg += fmt.Sprintf(" (flow=%s)", e.FlowToken)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// PartialWriteError is returned when a registration stopped after at least
// one ledger write finalized. Phase is the last phase reached.
type PartialWriteError struct {
	FlowToken        string
	Phase            ir.Phase
	ContainerID      uint32
	UnitID           uint32
	HasUnit          bool
	ContainerCreated bool
	Err              error
}

func (e *PartialWriteError) Error() string {
	where := fmt.Sprintf("container %d", e.ContainerID)
	if e.HasUnit {
		where = fmt.Sprintf("unit %d/%d", e.ContainerID, e.UnitID)
	}
	return fmt.Sprintf("%s: registration stopped at %s (%s, flow=%s): %v",
		ErrCodePartialWrite, e.Phase, where, e.FlowToken, e.Err)
}

func (e *PartialWriteError) Unwrap() error { return e.Err }

// Unit returns the minted unit, if the registration got that far.
func (e *PartialWriteError) Unit() (ir.IssuanceUnit, bool) {
	return ir.IssuanceUnit{ContainerID: e.ContainerID, UnitID: e.UnitID}, e.HasUnit
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Err
	}
	return false
}

// IsMalformedInput reports whether err was caused by invalid input.
func IsMalformedInput(err error) bool {
	if hasCode(err, ErrCodeMalformedInput) {
		return true
	}
	for _, target := range []error{
		ir.ErrInvalidContentHash,
		keys.ErrInvalidAddress,
		keys.ErrInvalidMnemonic,
		keys.ErrSoftDerivation,
		keys.ErrUnknownScheme,
		issuance.ErrMetadataTooLong,
		registry.ErrFieldTooLong,
		registry.ErrMissingSignature,
		identity.ErrFieldTooLong,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err means the requested item does not exist.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound) ||
		errors.Is(err, issuance.ErrContainerNotFound) ||
		errors.Is(err, issuance.ErrUnitNotFound)
}

// IsPartialWrite reports whether err left finalized writes behind.
func IsPartialWrite(err error) bool {
	var pe *PartialWriteError
	return errors.As(err, &pe) || hasCode(err, ErrCodePartialWrite)
}

// IsConnectionFailure reports whether a ledger client could not be established.
func IsConnectionFailure(err error) bool {
	var ce *ledger.ConnectionError
	return hasCode(err, ErrCodeConnectionFailure) || errors.As(err, &ce)
}

// IsUnavailable reports whether a ledger could not be reached.
func IsUnavailable(err error) bool {
	return hasCode(err, ErrCodeLedgerUnavailable) || ledger.IsUnavailable(err)
}

// IsContention reports whether err came from a concurrent registration.
func IsContention(err error) bool {
	return hasCode(err, ErrCodeContention) || errors.Is(err, ErrContention)
}

// Category is the user-visible class of an error.
type Category int

const (
	CategoryOther Category = iota
	CategoryInvalidInput
	CategoryUnreachable
	CategoryNotFound
)

func (c Category) String() string {
	switch c {
	case CategoryInvalidInput:
		return "invalid input"
	case CategoryUnreachable:
		return "ledger unreachable"
	case CategoryNotFound:
		return "not found"
	default:
		return "error"
	}
}

// Classify maps err to one of the user-visible categories.
func Classify(err error) Category {
	switch {
	case err == nil:
		return CategoryOther
	case IsMalformedInput(err):
		return CategoryInvalidInput
	case IsNotFound(err):
		return CategoryNotFound
	case IsConnectionFailure(err), IsUnavailable(err):
		return CategoryUnreachable
	default:
		return CategoryOther
	}
}

// Code returns the engine error code that best describes err.
func Code(err error) ErrorCode {
	if IsPartialWrite(err) {
		return ErrCodePartialWrite
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var se *ledger.SubmissionError
	switch {
	case IsMalformedInput(err):
		return ErrCodeMalformedInput
	case IsNotFound(err):
		return ErrCodeNotFound
	case IsContention(err):
		return ErrCodeContention
	case IsConnectionFailure(err):
		return ErrCodeConnectionFailure
	case IsUnavailable(err):
		return ErrCodeLedgerUnavailable
	case errors.As(err, &se):
		return ErrCodeSubmissionFailed
	default:
		return ""
	}
}

func malformed(format string, args ...any) *Error {
	return &Error{Code: ErrCodeMalformedInput, Message: fmt.Sprintf(format, args...)}
}

// ledgerError wraps a failure of a ledger step, picking the code from err.
func ledgerError(name, flow, msg string, err error) *Error {
	code := ErrCodeSubmissionFailed
	switch {
	case IsMalformedInput(err):
		code = ErrCodeMalformedInput
	case IsNotFound(err):
		code = ErrCodeNotFound
	case ledger.IsUnavailable(err):
		code = ErrCodeLedgerUnavailable
	}
	return &Error{Code: code, Message: msg, Ledger: name, FlowToken: flow, Err: err}
}
