package devnet

import (
	"github.com/w3f/edunews/internal/ir"
	"github.com/w3f/edunews/internal/ledger"
	"github.com/w3f/edunews/internal/runtime/nfts"
)

// NFTs implements the collectibles pallet.
type NFTs struct{}

func (NFTs) Name() string { return nfts.Pallet }

func (p NFTs) Dispatch(env *Env, call ledger.Call) ([]ledger.Event, error) {
	switch call.Name {
	case "create":
		var args nfts.CreateArgs
		if err := decode(call, &args); err != nil {
			return nil, err
		}
		return p.create(env, args)
	case "set_collection_metadata":
		var args nfts.SetCollectionMetadataArgs
		if err := decode(call, &args); err != nil {
			return nil, err
		}
		return p.setCollectionMetadata(env, args)
	case "mint":
		var args nfts.MintArgs
		if err := decode(call, &args); err != nil {
			return nil, err
		}
		return p.mint(env, args)
	case "set_metadata":
		var args nfts.SetMetadataArgs
		if err := decode(call, &args); err != nil {
			return nil, err
		}
		return p.setMetadata(env, args)
	default:
		return nil, fail(ledger.ReasonUnknownCall, "%s", call)
	}
}

func (NFTs) create(env *Env, args nfts.CreateArgs) ([]ledger.Event, error) {
	next, _, err := load[uint32](env.State, nfts.NextCollectionID())
	if err != nil {
		return nil, err
	}
	details := nfts.CollectionDetails{Owner: env.Origin, Admin: args.Admin}
	if err := save(env.State, nfts.Collection(next), details); err != nil {
		return nil, err
	}
	if err := save(env.State, nfts.CollectionConfigOf(next), args.Config); err != nil {
		return nil, err
	}
	if err := save(env.State, nfts.NextCollectionID(), next+1); err != nil {
		return nil, err
	}
	return []ledger.Event{event(nfts.Pallet, nfts.EventCreated, nfts.CreatedEvent{
		Collection: next,
		Creator:    env.Origin,
		Owner:      env.Origin,
	})}, nil
}

// collection loads a collection and checks origin may manage it.
func (NFTs) collection(env *Env, id uint32) (nfts.CollectionDetails, error) {
	details, found, err := load[nfts.CollectionDetails](env.State, nfts.Collection(id))
	if err != nil {
		return details, err
	}
	if !found {
		return details, fail(nfts.ErrUnknownCollection, "collection %d", id)
	}
	if !canManage(details, env.Origin) {
		return details, fail(nfts.ErrNoPermission, "%s does not manage collection %d", env.Origin, id)
	}
	return details, nil
}

func canManage(d nfts.CollectionDetails, who ir.Address) bool {
	return who == d.Owner || who == d.Admin
}

func (p NFTs) setCollectionMetadata(env *Env, args nfts.SetCollectionMetadataArgs) ([]ledger.Event, error) {
	if _, err := p.collection(env, args.Collection); err != nil {
		return nil, err
	}
	if len(args.Data) > nfts.MetadataLimit {
		return nil, fail(nfts.ErrMetadataTooLong, "%d bytes", len(args.Data))
	}
	if err := save(env.State, nfts.CollectionMetadataOf(args.Collection), nfts.Metadata{Data: args.Data}); err != nil {
		return nil, err
	}
	return []ledger.Event{event(nfts.Pallet, nfts.EventCollectionMetadataSet, args)}, nil
}

func (NFTs) mint(env *Env, args nfts.MintArgs) ([]ledger.Event, error) {
	details, found, err := load[nfts.CollectionDetails](env.State, nfts.Collection(args.Collection))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fail(nfts.ErrUnknownCollection, "collection %d", args.Collection)
	}
	cfg, _, err := load[nfts.CollectionConfig](env.State, nfts.CollectionConfigOf(args.Collection))
	if err != nil {
		return nil, err
	}
	if cfg.MintSettings.MintType != nfts.MintPublic && !canManage(details, env.Origin) {
		return nil, fail(nfts.ErrNoPermission, "%s may not mint into collection %d", env.Origin, args.Collection)
	}
	if cfg.MaxSupply != nil && details.Items >= *cfg.MaxSupply {
		return nil, fail(nfts.ErrMaxSupplyReached, "collection %d", args.Collection)
	}
	_, exists, err := env.State.Get(nfts.Item(args.Collection, args.Item))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fail(nfts.ErrAlreadyExists, "item %d/%d", args.Collection, args.Item)
	}

	item := nfts.ItemDetails{Owner: args.MintTo, Settings: cfg.MintSettings.DefaultItemSettings}
	if err := save(env.State, nfts.Item(args.Collection, args.Item), item); err != nil {
		return nil, err
	}
	details.Items++
	if err := save(env.State, nfts.Collection(args.Collection), details); err != nil {
		return nil, err
	}
	return []ledger.Event{event(nfts.Pallet, nfts.EventIssued, nfts.IssuedEvent{
		Collection: args.Collection,
		Item:       args.Item,
		Owner:      args.MintTo,
	})}, nil
}

func (p NFTs) setMetadata(env *Env, args nfts.SetMetadataArgs) ([]ledger.Event, error) {
	details, err := p.collection(env, args.Collection)
	if err != nil {
		return nil, err
	}
	_, exists, err := env.State.Get(nfts.Item(args.Collection, args.Item))
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fail(nfts.ErrUnknownItem, "item %d/%d", args.Collection, args.Item)
	}
	if len(args.Data) > nfts.MetadataLimit {
		return nil, fail(nfts.ErrMetadataTooLong, "%d bytes", len(args.Data))
	}

	q := nfts.ItemMetadataOf(args.Collection, args.Item)
	_, had, err := env.State.Get(q)
	if err != nil {
		return nil, err
	}
	if err := save(env.State, q, nfts.Metadata{Data: args.Data}); err != nil {
		return nil, err
	}
	if !had {
		details.ItemMetadatas++
		if err := save(env.State, nfts.Collection(args.Collection), details); err != nil {
			return nil, err
		}
	}
	return []ledger.Event{event(nfts.Pallet, nfts.EventItemMetadataSet, args)}, nil
}
