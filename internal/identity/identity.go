// Package identity resolves publisher addresses against the identity ledger.
package identity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/w3f/edunews/internal/ir"
	"github.com/w3f/edunews/internal/keys"
	"github.com/w3f/edunews/internal/ledger"
	"github.com/w3f/edunews/internal/runtime/people"
)

// Resolver reads identity records.
type Resolver struct {
	client ledger.Client
	logger *slog.Logger
}

// New creates a Resolver. A nil logger uses slog.Default().
func New(client ledger.Client, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{client: client, logger: logger.With("ledger", client.Name())}
}

// Resolve returns the attestation of addr. An address without a record is
// unverified, not an error. A malformed address fails with
// keys.ErrInvalidAddress before any ledger read.
func (r *Resolver) Resolve(ctx context.Context, addr ir.Address) (ir.IdentityAttestation, error) {
	if err := keys.ValidateAddress(addr); err != nil {
		return ir.IdentityAttestation{}, err
	}
	reg, found, err := ledger.Fetch[people.Registration](ctx, r.client, people.IdentityOf(addr))
	if err != nil {
		return ir.IdentityAttestation{}, fmt.Errorf("read identity of %s: %w", addr, err)
	}
	if !found {
		return ir.Unverified(addr), nil
	}
	return reg.Attestation(addr), nil
}

// Set publishes the signer's identity, replacing any earlier one.
func (r *Resolver) Set(ctx context.Context, signer ledger.Signer, info people.IdentityInfo) (ledger.Receipt, error) {
	for _, f := range []struct{ name, value string }{
		{"display", info.Display}, {"legal", info.Legal}, {"web", info.Web}, {"email", info.Email},
	} {
		if len(f.value) > people.FieldLimit {
			return ledger.Receipt{}, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrFieldTooLong, f.name, len(f.value), people.FieldLimit)
		}
	}
	call, err := people.SetIdentity(info)
	if err != nil {
		return ledger.Receipt{}, err
	}
	receipt, err := ledger.Submit(ctx, r.client, signer, call)
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("set identity: %w", err)
	}
	r.logger.Info("identity set", "publisher", signer.Address(), "block", receipt.BlockNumber)
	return receipt, nil
}

// Clear removes the signer's identity.
func (r *Resolver) Clear(ctx context.Context, signer ledger.Signer) (ledger.Receipt, error) {
	call, err := people.ClearIdentity()
	if err != nil {
		return ledger.Receipt{}, err
	}
	receipt, err := ledger.Submit(ctx, r.client, signer, call)
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("clear identity: %w", err)
	}
	r.logger.Info("identity cleared", "publisher", signer.Address(), "block", receipt.BlockNumber)
	return receipt, nil
}
