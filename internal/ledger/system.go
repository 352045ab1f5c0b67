package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/w3f/edunews/internal/ir"
)

// SystemPallet holds per-account bookkeeping present on every ledger.
const SystemPallet = "system"

// AccountInfo is the system record of an account.
type AccountInfo struct {
	Nonce uint64 `json:"nonce"`
}

// AccountQuery addresses the system record of addr.
func AccountQuery(addr ir.Address) Query {
	return NewQuery(SystemPallet, "account", addr)
}

// Fetch reads q and decodes the JSON value into T.
func Fetch[T any](ctx context.Context, c Client, q Query) (T, bool, error) {
	var out T
	raw, found, err := c.ReadLatest(ctx, q)
	if err != nil || !found {
		return out, false, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false, fmt.Errorf("%s: decode %s: %w", c.Name(), q, err)
	}
	return out, true, nil
}

// Signer is the part of keys.Signer needed to authorize an extrinsic.
type Signer interface {
	Address() ir.Address
	Sign(msg []byte) (ir.Signature, error)
}

// Submit signs call with the signer's next nonce and waits for finality.
func Submit(ctx context.Context, c Client, s Signer, call Call) (Receipt, error) {
	info, _, err := Fetch[AccountInfo](ctx, c, AccountQuery(s.Address()))
	if err != nil {
		return Receipt{}, fmt.Errorf("read nonce: %w", err)
	}
	x := Extrinsic{Signer: s.Address(), Nonce: info.Nonce, Call: call}
	msg, err := x.SigningMessage()
	if err != nil {
		return Receipt{}, err
	}
	if x.Signature, err = s.Sign(msg); err != nil {
		return Receipt{}, fmt.Errorf("sign %s: %w", call, err)
	}
	return c.SubmitAndWatch(ctx, x)
}
