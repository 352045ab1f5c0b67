package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/w3f/edunews/internal/ir"
)

// stubClient records submissions and serves reads from a map.
type stubClient struct {
	values    map[string][]byte
	delay     time.Duration
	submitted []Extrinsic
}

func (s *stubClient) Name() string { return "stub" }
func (s *stubClient) Close() error { return nil }

func (s *stubClient) ReadLatest(ctx context.Context, q Query) ([]byte, bool, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
	v, ok := s.values[q.Key()]
	return v, ok, nil
}

func (s *stubClient) SubmitAndWatch(ctx context.Context, x Extrinsic) (Receipt, error) {
	s.submitted = append(s.submitted, x)
	h, err := x.Hash()
	if err != nil {
		return Receipt{}, err
	}
	return Receipt{Ledger: "stub", TxHash: h, BlockNumber: 1}, nil
}

type stubSigner struct{}

func (stubSigner) Address() ir.Address { return "5Stub" }
func (stubSigner) Sign(msg []byte) (ir.Signature, error) {
	d := ir.HashContent(msg)
	return ir.Signature{Scheme: ir.SchemeEd25519, Bytes: d[:]}, nil
}

func TestQueryKey(t *testing.T) {
	assert.Equal(t, "nfts.next_collection_id", NewQuery("nfts", "next_collection_id").Key())
	assert.Equal(t, "nfts.item/0/3", NewQuery("nfts", "item", uint32(0), uint32(3)).Key())
	assert.Equal(t, "system.account/5Abc", AccountQuery("5Abc").Key())
}

func TestNewCall(t *testing.T) {
	call, err := NewCall("nfts", "mint", map[string]any{"collection": 1})
	require.NoError(t, err)
	assert.Equal(t, "nfts.mint", call.String())

	var args struct {
		Collection uint32 `json:"collection"`
	}
	require.NoError(t, call.DecodeArgs(&args))
	assert.Equal(t, uint32(1), args.Collection)
}

func TestSigningMessageCoversNonceAndCall(t *testing.T) {
	call, err := NewCall("nfts", "mint", map[string]any{"collection": 1})
	require.NoError(t, err)

	a := Extrinsic{Signer: "5Abc", Nonce: 0, Call: call}
	b := Extrinsic{Signer: "5Abc", Nonce: 1, Call: call}

	ma, err := a.SigningMessage()
	require.NoError(t, err)
	mb, err := b.SigningMessage()
	require.NoError(t, err)
	assert.NotEqual(t, ma, mb)

	// Argument whitespace does not change the signed bytes.
	c := a
	c.Call.Args = json.RawMessage(`{ "collection" : 1 }`)
	mc, err := c.SigningMessage()
	require.NoError(t, err)
	assert.Equal(t, ma, mc)
}

func TestSigningMessageEmptyArgs(t *testing.T) {
	x := Extrinsic{Signer: "5Abc", Call: Call{Pallet: "system", Name: "remark"}}
	_, err := x.SigningMessage()
	assert.NoError(t, err)
}

func TestHashCoversSignature(t *testing.T) {
	call, err := NewCall("news", "record_article", map[string]any{"title": "x"})
	require.NoError(t, err)
	x := Extrinsic{Signer: "5Abc", Call: call, Signature: ir.Signature{Scheme: ir.SchemeEd25519, Bytes: []byte{1}}}
	y := x
	y.Signature = ir.Signature{Scheme: ir.SchemeEd25519, Bytes: []byte{2}}

	hx, err := x.Hash()
	require.NoError(t, err)
	hy, err := y.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, hx, hy)
}

func TestFetch(t *testing.T) {
	c := &stubClient{values: map[string][]byte{
		"system.account/5Abc": []byte(`{"nonce":7}`),
		"system.account/5Bad": []byte(`not json`),
	}}

	info, found, err := Fetch[AccountInfo](context.Background(), c, AccountQuery("5Abc"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint64(7), info.Nonce)

	_, found, err = Fetch[AccountInfo](context.Background(), c, AccountQuery("5None"))
	require.NoError(t, err)
	assert.False(t, found)

	_, _, err = Fetch[AccountInfo](context.Background(), c, AccountQuery("5Bad"))
	assert.Error(t, err)
}

func TestSubmitUsesAccountNonce(t *testing.T) {
	c := &stubClient{values: map[string][]byte{
		"system.account/5Stub": []byte(`{"nonce":4}`),
	}}
	call, err := NewCall("people", "clear_identity", struct{}{})
	require.NoError(t, err)

	r, err := Submit(context.Background(), c, stubSigner{}, call)
	require.NoError(t, err)
	require.Len(t, c.submitted, 1)

	x := c.submitted[0]
	assert.Equal(t, uint64(4), x.Nonce)
	assert.Equal(t, ir.Address("5Stub"), x.Signer)
	assert.False(t, x.Signature.IsZero())

	h, err := x.Hash()
	require.NoError(t, err)
	assert.Equal(t, h, r.TxHash)
}

func TestWithTimeoutsMapsDeadline(t *testing.T) {
	c := WithTimeouts(&stubClient{delay: time.Second}, Timeouts{Read: 10 * time.Millisecond})

	_, _, err := c.ReadLatest(context.Background(), NewQuery("nfts", "next_collection_id"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, IsUnavailable(err))
}

func TestWithTimeoutsPassesThrough(t *testing.T) {
	c := WithTimeouts(&stubClient{values: map[string][]byte{"a.b": []byte(`1`)}}, Timeouts{Read: time.Second})
	v, found, err := c.ReadLatest(context.Background(), Query{Pallet: "a", Item: "b"})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte(`1`), v)
	assert.Equal(t, "stub", c.Name())
}

func TestErrors(t *testing.T) {
	se := &SubmissionError{Ledger: "issuance", Call: "nfts.mint", Reason: "nfts.NoPermission"}
	wrapped := errors.Join(errors.New("context"), se)
	assert.True(t, IsDispatchError(wrapped, "nfts.NoPermission"))
	assert.False(t, IsDispatchError(wrapped, ReasonBadNonce))
	assert.Contains(t, se.Error(), "nfts.NoPermission")

	ce := &ConnectionError{Ledger: "registry", Endpoint: "grpc://x", Err: errors.New("refused")}
	assert.True(t, IsUnavailable(ce))
	assert.Contains(t, ce.Error(), "registry")
	assert.False(t, IsUnavailable(se))
}

func TestReceiptFindEvent(t *testing.T) {
	r := Receipt{Events: []Event{{Pallet: "nfts", Name: "Created"}, {Pallet: "nfts", Name: "Issued"}}}
	e, ok := r.FindEvent("nfts", "Issued")
	assert.True(t, ok)
	assert.Equal(t, "Issued", e.Name)
	_, ok = r.FindEvent("news", "ArticleRecorded")
	assert.False(t, ok)
}
