// Package issuance mints one collectible per article on the issuance ledger.
//
// Each publisher owns a single container (collection). Creating a container
// and minting a unit are both two-step writes: the second step only sets
// metadata, and a failure between the steps is reported with the phase that
// was reached so the caller can resume it.
package issuance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/w3f/edunews/internal/ir"
	"github.com/w3f/edunews/internal/ledger"
	"github.com/w3f/edunews/internal/runtime/nfts"
)

// ContainerLabel is the collection metadata of every publisher container.
const ContainerLabel = "news"

var (
	// ErrContainerNotFound is returned when minting into a missing container.
	ErrContainerNotFound = errors.New("container not found")

	// ErrMetadataTooLong is returned before minting when the unit metadata
	// would exceed the ledger limit.
	ErrMetadataTooLong = errors.New("unit metadata too long")

	// ErrUnitNotFound is returned when resuming metadata of a missing unit.
	ErrUnitNotFound = errors.New("unit not found")
)

// PartialError reports a two-step write that stopped after its first step.
type PartialError struct {
	Phase ir.Phase
	Unit  ir.IssuanceUnit
	Err   error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("partial write at %s (%s): %v", e.Phase, e.Unit, e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// ContainerResult describes the publisher's container.
type ContainerResult struct {
	ContainerID uint32
	Created     bool
	Phase       ir.Phase
	Receipt     *ledger.Receipt
}

// MintResult describes a minted unit.
type MintResult struct {
	Unit     ir.IssuanceUnit
	Metadata string
	Phase    ir.Phase
	Receipt  ledger.Receipt
}

// Issuer writes to and reads from the issuance ledger.
type Issuer struct {
	client ledger.Client
	logger *slog.Logger
}

// New creates an Issuer. A nil logger uses slog.Default().
func New(client ledger.Client, logger *slog.Logger) *Issuer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Issuer{client: client, logger: logger.With("ledger", client.Name())}
}

// Client returns the issuance ledger client.
func (i *Issuer) Client() ledger.Client { return i.client }

// FindContainer returns the first container owned by owner, scanning ids
// from 0 to next_collection_id.
func (i *Issuer) FindContainer(ctx context.Context, owner ir.Address) (uint32, bool, error) {
	next, _, err := ledger.Fetch[uint32](ctx, i.client, nfts.NextCollectionID())
	if err != nil {
		return 0, false, fmt.Errorf("read next container id: %w", err)
	}
	for id := uint32(0); id < next; id++ {
		details, found, err := ledger.Fetch[nfts.CollectionDetails](ctx, i.client, nfts.Collection(id))
		if err != nil {
			return 0, false, fmt.Errorf("read container %d: %w", id, err)
		}
		if found && details.Owner == owner {
			return id, true, nil
		}
	}
	return 0, false, nil
}

// EnsureContainer returns the signer's container, creating and labelling
// one if none exists. Repeated calls for one publisher return the same id.
//
// An existing container whose label is missing is returned with
// PhaseContainerNew; ResumeContainerLabel completes it.
func (i *Issuer) EnsureContainer(ctx context.Context, signer ledger.Signer) (ContainerResult, error) {
	owner := signer.Address()
	id, found, err := i.FindContainer(ctx, owner)
	if err != nil {
		return ContainerResult{}, err
	}
	if found {
		_, labelled, err := i.client.ReadLatest(ctx, nfts.CollectionMetadataOf(id))
		if err != nil {
			return ContainerResult{}, fmt.Errorf("read container %d label: %w", id, err)
		}
		phase := ir.PhaseContainerDone
		if !labelled {
			phase = ir.PhaseContainerNew
		}
		i.logger.Debug("container found", "publisher", owner, "container", id, "phase", phase)
		return ContainerResult{ContainerID: id, Phase: phase}, nil
	}

	call, err := nfts.Create(owner, nfts.NewsCollectionConfig())
	if err != nil {
		return ContainerResult{}, err
	}
	receipt, err := ledger.Submit(ctx, i.client, signer, call)
	if err != nil {
		return ContainerResult{}, fmt.Errorf("create container: %w", err)
	}
	ev, ok := receipt.FindEvent(nfts.Pallet, nfts.EventCreated)
	if !ok {
		return ContainerResult{}, fmt.Errorf("create container: no %s event in block %d", nfts.EventCreated, receipt.BlockNumber)
	}
	var created nfts.CreatedEvent
	if err := decodeEvent(ev, &created); err != nil {
		return ContainerResult{}, err
	}
	id = created.Collection
	i.logger.Info("container created", "publisher", owner, "container", id, "block", receipt.BlockNumber)

	result := ContainerResult{ContainerID: id, Created: true, Phase: ir.PhaseContainerNew, Receipt: &receipt}
	if err := i.ResumeContainerLabel(ctx, signer, id); err != nil {
		return result, &PartialError{Phase: ir.PhaseContainerNew, Unit: ir.IssuanceUnit{ContainerID: id}, Err: err}
	}
	result.Phase = ir.PhaseContainerDone
	return result, nil
}

// ResumeContainerLabel sets the container label. It is the second step of
// container creation and is safe to repeat.
func (i *Issuer) ResumeContainerLabel(ctx context.Context, signer ledger.Signer, containerID uint32) error {
	call, err := nfts.SetCollectionMetadata(containerID, ContainerLabel)
	if err != nil {
		return err
	}
	if _, err := ledger.Submit(ctx, i.client, signer, call); err != nil {
		return fmt.Errorf("label container %d: %w", containerID, err)
	}
	i.logger.Debug("container labelled", "container", containerID)
	return nil
}

// UnitMetadata returns the canonical metadata document of a unit.
func UnitMetadata(title string, digest ir.Digest) (string, error) {
	b, err := ir.MarshalCanonical(map[string]any{
		"content_hash": digest.String(),
		"title":        title,
	})
	if err != nil {
		return "", fmt.Errorf("encode unit metadata: %w", err)
	}
	if len(b) > nfts.MetadataLimit {
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrMetadataTooLong, len(b), nfts.MetadataLimit)
	}
	return string(b), nil
}

// MintUnit mints the next unit of containerID to the signer and attaches
// metadata linking it to the article.
func (i *Issuer) MintUnit(ctx context.Context, signer ledger.Signer, containerID uint32, title string, digest ir.Digest) (MintResult, error) {
	metadata, err := UnitMetadata(title, digest)
	if err != nil {
		return MintResult{}, err
	}

	details, found, err := ledger.Fetch[nfts.CollectionDetails](ctx, i.client, nfts.Collection(containerID))
	if err != nil {
		return MintResult{}, fmt.Errorf("read container %d: %w", containerID, err)
	}
	if !found {
		return MintResult{}, fmt.Errorf("%w: %d", ErrContainerNotFound, containerID)
	}
	unit := ir.IssuanceUnit{ContainerID: containerID, UnitID: details.Items}

	call, err := nfts.Mint(unit.ContainerID, unit.UnitID, signer.Address())
	if err != nil {
		return MintResult{}, err
	}
	receipt, err := ledger.Submit(ctx, i.client, signer, call)
	if err != nil {
		if ledger.IsDispatchError(err, nfts.ErrUnknownCollection) {
			return MintResult{}, fmt.Errorf("%w: %d", ErrContainerNotFound, containerID)
		}
		return MintResult{}, fmt.Errorf("mint unit %s: %w", unit, err)
	}
	i.logger.Info("unit minted", "container", unit.ContainerID, "unit", unit.UnitID, "block", receipt.BlockNumber)

	result := MintResult{Unit: unit, Metadata: metadata, Phase: ir.PhaseUnitMinted, Receipt: receipt}
	if err := i.setUnitMetadata(ctx, signer, unit, metadata); err != nil {
		return result, &PartialError{Phase: ir.PhaseUnitMinted, Unit: unit, Err: err}
	}
	result.Phase = ir.PhaseUnitDone
	return result, nil
}

// ResumeUnitMetadata attaches the article metadata to a unit minted by a
// registration that stopped after minting.
func (i *Issuer) ResumeUnitMetadata(ctx context.Context, signer ledger.Signer, unit ir.IssuanceUnit, title string, digest ir.Digest) error {
	metadata, err := UnitMetadata(title, digest)
	if err != nil {
		return err
	}
	exists, err := i.UnitExists(ctx, unit)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnitNotFound, unit)
	}
	return i.setUnitMetadata(ctx, signer, unit, metadata)
}

func (i *Issuer) setUnitMetadata(ctx context.Context, signer ledger.Signer, unit ir.IssuanceUnit, metadata string) error {
	call, err := nfts.SetMetadata(unit.ContainerID, unit.UnitID, metadata)
	if err != nil {
		return err
	}
	if _, err := ledger.Submit(ctx, i.client, signer, call); err != nil {
		return fmt.Errorf("set metadata of unit %s: %w", unit, err)
	}
	return nil
}

// UnitExists reports whether the unit is present on the issuance ledger.
func (i *Issuer) UnitExists(ctx context.Context, unit ir.IssuanceUnit) (bool, error) {
	_, found, err := i.client.ReadLatest(ctx, nfts.Item(unit.ContainerID, unit.UnitID))
	if err != nil {
		return false, fmt.Errorf("read unit %s: %w", unit, err)
	}
	return found, nil
}

// UnitOwner returns the current owner of a unit.
func (i *Issuer) UnitOwner(ctx context.Context, unit ir.IssuanceUnit) (ir.Address, bool, error) {
	item, found, err := ledger.Fetch[nfts.ItemDetails](ctx, i.client, nfts.Item(unit.ContainerID, unit.UnitID))
	if err != nil {
		return "", false, fmt.Errorf("read unit %s: %w", unit, err)
	}
	return item.Owner, found, nil
}

// Metadata returns the metadata attached to a unit.
func (i *Issuer) Metadata(ctx context.Context, unit ir.IssuanceUnit) (string, bool, error) {
	md, found, err := ledger.Fetch[nfts.Metadata](ctx, i.client, nfts.ItemMetadataOf(unit.ContainerID, unit.UnitID))
	if err != nil {
		return "", false, fmt.Errorf("read unit %s metadata: %w", unit, err)
	}
	return md.Data, found, nil
}

func decodeEvent(ev ledger.Event, v any) error {
	if err := json.Unmarshal(ev.Data, v); err != nil {
		return fmt.Errorf("decode %s.%s event: %w", ev.Pallet, ev.Name, err)
	}
	return nil
}
