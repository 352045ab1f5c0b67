// Package nfts describes the collectibles pallet of the issuance ledger.
package nfts

import (
	"github.com/w3f/edunews/internal/ir"
	"github.com/w3f/edunews/internal/ledger"
)

// Pallet is the pallet name on the issuance ledger.
const Pallet = "nfts"

// MetadataLimit is the maximum size of collection and item metadata in bytes.
const MetadataLimit = 256

// Dispatch errors.
const (
	ErrNoPermission      = "nfts.NoPermission"
	ErrUnknownCollection = "nfts.UnknownCollection"
	ErrUnknownItem       = "nfts.UnknownItem"
	ErrAlreadyExists     = "nfts.AlreadyExists"
	ErrMetadataTooLong   = "nfts.MetadataTooLong"
	ErrMaxSupplyReached  = "nfts.MaxSupplyReached"
)

// Events.
const (
	EventCreated               = "Created"
	EventIssued                = "Issued"
	EventCollectionMetadataSet = "CollectionMetadataSet"
	EventItemMetadataSet       = "MetadataSet"
)

// MintType controls who may mint into a collection.
type MintType string

const (
	MintIssuer MintType = "Issuer"
	MintPublic MintType = "Public"
)

// Item setting flags.
const (
	ItemTransferable       uint64 = 1 << 0
	ItemUnlockedMetadata   uint64 = 1 << 1
	ItemUnlockedAttributes uint64 = 1 << 2
)

type MintSettings struct {
	MintType            MintType `json:"mint_type"`
	Price               *uint64  `json:"price,omitempty"`
	StartBlock          *uint64  `json:"start_block,omitempty"`
	EndBlock            *uint64  `json:"end_block,omitempty"`
	DefaultItemSettings uint64   `json:"default_item_settings"`
}

type CollectionConfig struct {
	Settings     uint64       `json:"settings"`
	MaxSupply    *uint32      `json:"max_supply,omitempty"`
	MintSettings MintSettings `json:"mint_settings"`
}

// NewsCollectionConfig is the configuration of a publisher's collection:
// only the owner mints, and items are transferable.
func NewsCollectionConfig() CollectionConfig {
	return CollectionConfig{
		Settings: 0,
		MintSettings: MintSettings{
			MintType:            MintIssuer,
			DefaultItemSettings: ItemTransferable,
		},
	}
}

// CollectionDetails is stored under Collection(id).
// Items counts minted items and doubles as the next item id.
type CollectionDetails struct {
	Owner         ir.Address `json:"owner"`
	Admin         ir.Address `json:"admin"`
	Items         uint32     `json:"items"`
	ItemMetadatas uint32     `json:"item_metadatas"`
}

// ItemDetails is stored under Item(collection, item).
type ItemDetails struct {
	Owner    ir.Address `json:"owner"`
	Settings uint64     `json:"settings"`
}

// Metadata is stored under CollectionMetadataOf and ItemMetadataOf.
type Metadata struct {
	Data string `json:"data"`
}

func NextCollectionID() ledger.Query {
	return ledger.NewQuery(Pallet, "next_collection_id")
}

func Collection(id uint32) ledger.Query {
	return ledger.NewQuery(Pallet, "collection", id)
}

func CollectionConfigOf(id uint32) ledger.Query {
	return ledger.NewQuery(Pallet, "collection_config_of", id)
}

func Item(collection, item uint32) ledger.Query {
	return ledger.NewQuery(Pallet, "item", collection, item)
}

func CollectionMetadataOf(id uint32) ledger.Query {
	return ledger.NewQuery(Pallet, "collection_metadata_of", id)
}

func ItemMetadataOf(collection, item uint32) ledger.Query {
	return ledger.NewQuery(Pallet, "item_metadata_of", collection, item)
}

type CreateArgs struct {
	Admin  ir.Address       `json:"admin"`
	Config CollectionConfig `json:"config"`
}

type SetCollectionMetadataArgs struct {
	Collection uint32 `json:"collection"`
	Data       string `json:"data"`
}

type MintArgs struct {
	Collection uint32     `json:"collection"`
	Item       uint32     `json:"item"`
	MintTo     ir.Address `json:"mint_to"`
}

type SetMetadataArgs struct {
	Collection uint32 `json:"collection"`
	Item       uint32 `json:"item"`
	Data       string `json:"data"`
}

func Create(admin ir.Address, cfg CollectionConfig) (ledger.Call, error) {
	return ledger.NewCall(Pallet, "create", CreateArgs{Admin: admin, Config: cfg})
}

func SetCollectionMetadata(collection uint32, data string) (ledger.Call, error) {
	return ledger.NewCall(Pallet, "set_collection_metadata", SetCollectionMetadataArgs{Collection: collection, Data: data})
}

func Mint(collection, item uint32, to ir.Address) (ledger.Call, error) {
	return ledger.NewCall(Pallet, "mint", MintArgs{Collection: collection, Item: item, MintTo: to})
}

func SetMetadata(collection, item uint32, data string) (ledger.Call, error) {
	return ledger.NewCall(Pallet, "set_metadata", SetMetadataArgs{Collection: collection, Item: item, Data: data})
}

type CreatedEvent struct {
	Collection uint32     `json:"collection"`
	Creator    ir.Address `json:"creator"`
	Owner      ir.Address `json:"owner"`
}

type IssuedEvent struct {
	Collection uint32     `json:"collection"`
	Item       uint32     `json:"item"`
	Owner      ir.Address `json:"owner"`
}
