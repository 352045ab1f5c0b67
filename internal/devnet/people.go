package devnet

import (
	"github.com/w3f/edunews/internal/ledger"
	"github.com/w3f/edunews/internal/runtime/people"
)

// Identity implements the identity pallet.
type Identity struct{}

func (Identity) Name() string { return people.Pallet }

func (Identity) Dispatch(env *Env, call ledger.Call) ([]ledger.Event, error) {
	q := people.IdentityOf(env.Origin)
	switch call.Name {
	case "set_identity":
		var args people.SetIdentityArgs
		if err := decode(call, &args); err != nil {
			return nil, err
		}
		for _, field := range []string{args.Info.Display, args.Info.Legal, args.Info.Web, args.Info.Email} {
			if len(field) > people.FieldLimit {
				return nil, fail(people.ErrFieldTooLong, "%d bytes", len(field))
			}
		}
		// Changing the info invalidates earlier judgements.
		reg := people.Registration{Info: args.Info, Judgements: []people.Judgement{}}
		if err := save(env.State, q, reg); err != nil {
			return nil, err
		}
		return []ledger.Event{event(people.Pallet, people.EventIdentitySet, people.IdentityEvent{Who: env.Origin})}, nil

	case "clear_identity":
		_, found, err := env.State.Get(q)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fail(people.ErrNoIdentity, "%s", env.Origin)
		}
		env.State.Delete(q)
		return []ledger.Event{event(people.Pallet, people.EventIdentityCleared, people.IdentityEvent{Who: env.Origin})}, nil

	default:
		return nil, fail(ledger.ReasonUnknownCall, "%s", call)
	}
}
