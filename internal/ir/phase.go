package ir

// Phase records how far a two-step finalized write progressed.
// A write that stops between steps leaves the ledger in a recoverable
// state that a caller can resume by retrying only the missing step.
type Phase string

const (
	PhaseNone          Phase = ""
	PhaseContainerNew  Phase = "container.created"
	PhaseContainerDone Phase = "container.labelled"
	PhaseUnitMinted    Phase = "unit.minted"
	PhaseUnitDone      Phase = "unit.described"
	PhaseRegistered    Phase = "article.registered"
)

// Complete reports whether p is a terminal phase of its two-step write.
func (p Phase) Complete() bool {
	switch p {
	case PhaseContainerDone, PhaseUnitDone, PhaseRegistered:
		return true
	default:
		return false
	}
}
