package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/w3f/edunews/internal/ir"
)

// Names of the three ledgers.
const (
	Issuance = "issuance"
	Registry = "registry"
	Identity = "identity"
)

// Names lists the ledgers in the order they are connected.
var Names = []string{Issuance, Registry, Identity}

// Client is a connection to one ledger. Implementations must be safe for
// concurrent reads.
type Client interface {
	// Name identifies the ledger in logs and errors ("issuance", "registry", "identity").
	Name() string

	// ReadLatest returns the value stored under q at the latest finalized
	// block. A missing item is reported with found == false, not an error.
	ReadLatest(ctx context.Context, q Query) (value []byte, found bool, err error)

	// SubmitAndWatch submits x and blocks until it is finalized or rejected.
	SubmitAndWatch(ctx context.Context, x Extrinsic) (Receipt, error)

	Close() error
}

// Query addresses one storage item.
type Query struct {
	Pallet string   `json:"pallet"`
	Item   string   `json:"item"`
	Keys   []string `json:"keys,omitempty"`
}

// NewQuery builds a query; keys are rendered with fmt.Sprint.
func NewQuery(pallet, item string, keys ...any) Query {
	q := Query{Pallet: pallet, Item: item}
	for _, k := range keys {
		q.Keys = append(q.Keys, fmt.Sprint(k))
	}
	return q
}

// Key returns the flat storage key, e.g. "nfts.item/0/3".
func (q Query) Key() string {
	var b strings.Builder
	b.WriteString(q.Pallet)
	b.WriteByte('.')
	b.WriteString(q.Item)
	for _, k := range q.Keys {
		b.WriteByte('/')
		b.WriteString(k)
	}
	return b.String()
}

func (q Query) String() string { return q.Key() }

// Call is a pallet dispatchable with JSON arguments.
type Call struct {
	Pallet string          `json:"pallet"`
	Name   string          `json:"name"`
	Args   json.RawMessage `json:"args"`
}

// NewCall marshals args into a Call. Optional argument fields must use
// omitempty; null is not allowed in a signed payload.
func NewCall(pallet, name string, args any) (Call, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return Call{}, fmt.Errorf("encode %s.%s args: %w", pallet, name, err)
	}
	return Call{Pallet: pallet, Name: name, Args: raw}, nil
}

func (c Call) String() string { return c.Pallet + "." + c.Name }

// DecodeArgs unmarshals the call arguments into v.
func (c Call) DecodeArgs(v any) error {
	if err := json.Unmarshal(c.Args, v); err != nil {
		return fmt.Errorf("decode %s args: %w", c, err)
	}
	return nil
}

// Extrinsic is a signed call.
type Extrinsic struct {
	Signer    ir.Address   `json:"signer"`
	Nonce     uint64       `json:"nonce"`
	Call      Call         `json:"call"`
	Signature ir.Signature `json:"signature"`
}

func (x Extrinsic) unsigned() map[string]any {
	var args any = x.Call.Args
	if len(x.Call.Args) == 0 {
		args = map[string]any{}
	}
	return map[string]any{
		"signer": string(x.Signer),
		"nonce":  x.Nonce,
		"call": map[string]any{
			"pallet": x.Call.Pallet,
			"name":   x.Call.Name,
			"args":   args,
		},
	}
}

// SigningMessage returns the bytes the signer must sign.
func (x Extrinsic) SigningMessage() ([]byte, error) {
	payload, err := ir.MarshalCanonical(x.unsigned())
	if err != nil {
		return nil, fmt.Errorf("encode extrinsic: %w", err)
	}
	return ir.ExtrinsicSigningMessage(payload), nil
}

// Hash returns the content-addressed extrinsic hash, covering the signature.
func (x Extrinsic) Hash() (string, error) {
	full := x.unsigned()
	full["signature"] = map[string]any{
		"scheme": string(x.Signature.Scheme),
		"value":  x.Signature.Hex(),
	}
	payload, err := ir.MarshalCanonical(full)
	if err != nil {
		return "", fmt.Errorf("encode extrinsic: %w", err)
	}
	return ir.ExtrinsicHash(payload), nil
}

// Event is emitted by a dispatched call.
type Event struct {
	Pallet string          `json:"pallet"`
	Name   string          `json:"name"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Receipt describes a finalized extrinsic.
type Receipt struct {
	Ledger      string  `json:"ledger"`
	TxHash      string  `json:"tx_hash"`
	BlockNumber uint64  `json:"block_number"`
	BlockHash   string  `json:"block_hash"`
	Events      []Event `json:"events"`
}

// FindEvent returns the first event with the given pallet and name.
func (r Receipt) FindEvent(pallet, name string) (Event, bool) {
	for _, e := range r.Events {
		if e.Pallet == pallet && e.Name == name {
			return e, true
		}
	}
	return Event{}, false
}

// Block is a finalized block header.
type Block struct {
	Number     uint64   `json:"number"`
	Hash       string   `json:"hash"`
	ParentHash string   `json:"parent_hash"`
	Timestamp  int64    `json:"timestamp"`
	Extrinsics []string `json:"extrinsics"`
}
