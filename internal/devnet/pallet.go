package devnet

import (
	"encoding/json"
	"fmt"

	"github.com/w3f/edunews/internal/ledger"
)

// Pallet executes the calls of one module.
type Pallet interface {
	Name() string
	Dispatch(env *Env, call ledger.Call) ([]ledger.Event, error)
}

// DispatchError is a call failure the ledger reports to the submitter.
// The extrinsic is rejected and none of its writes are kept.
type DispatchError struct {
	Reason string
	Detail string
}

func (e *DispatchError) Error() string {
	if e.Detail == "" {
		return e.Reason
	}
	return e.Reason + ": " + e.Detail
}

func fail(reason, format string, args ...any) error {
	return &DispatchError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

func event(pallet, name string, data any) ledger.Event {
	raw, err := json.Marshal(data)
	if err != nil {
		raw = nil
	}
	return ledger.Event{Pallet: pallet, Name: name, Data: raw}
}

// decode unmarshals call arguments, reporting bad input as a dispatch error.
func decode(call ledger.Call, v any) error {
	if err := call.DecodeArgs(v); err != nil {
		return &DispatchError{Reason: ledger.ReasonInvalidArgs, Detail: err.Error()}
	}
	return nil
}
