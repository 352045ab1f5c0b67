// Package people describes the identity pallet of the identity ledger.
package people

import (
	"github.com/w3f/edunews/internal/ir"
	"github.com/w3f/edunews/internal/ledger"
)

const Pallet = "identity"

// FieldLimit bounds every identity field in bytes.
const FieldLimit = 32

const (
	ErrNoIdentity   = "identity.NoIdentity"
	ErrFieldTooLong = "identity.FieldTooLong"
)

const (
	EventIdentitySet     = "IdentitySet"
	EventIdentityCleared = "IdentityCleared"
)

// IdentityInfo holds the self-declared fields of an identity. Empty fields
// are unset.
type IdentityInfo struct {
	Display string `json:"display,omitempty"`
	Legal   string `json:"legal,omitempty"`
	Web     string `json:"web,omitempty"`
	Email   string `json:"email,omitempty"`
}

// Judgement is a registrar's opinion of an identity.
type Judgement struct {
	Registrar uint32 `json:"registrar"`
	Judgement string `json:"judgement"`
}

// Registration is stored under IdentityOf(addr).
type Registration struct {
	Info       IdentityInfo `json:"info"`
	Judgements []Judgement  `json:"judgements"`
}

// Attestation converts a registration into the shared model. Any
// registration counts as verified; judgements are not consulted.
func (r Registration) Attestation(addr ir.Address) ir.IdentityAttestation {
	a := ir.IdentityAttestation{Address: addr, Verified: true}
	if r.Info.Display != "" {
		display := r.Info.Display
		a.DisplayName = &display
	}
	if r.Info.Legal != "" {
		legal := r.Info.Legal
		a.LegalName = &legal
	}
	return a
}

func IdentityOf(addr ir.Address) ledger.Query {
	return ledger.NewQuery(Pallet, "identity_of", addr)
}

type SetIdentityArgs struct {
	Info IdentityInfo `json:"info"`
}

func SetIdentity(info IdentityInfo) (ledger.Call, error) {
	return ledger.NewCall(Pallet, "set_identity", SetIdentityArgs{Info: info})
}

func ClearIdentity() (ledger.Call, error) {
	return ledger.NewCall(Pallet, "clear_identity", struct{}{})
}

type IdentityEvent struct {
	Who ir.Address `json:"who"`
}
