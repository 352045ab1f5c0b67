package devnet

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/w3f/edunews/internal/ir"
	"github.com/w3f/edunews/internal/keys"
	"github.com/w3f/edunews/internal/ledger"
	"github.com/w3f/edunews/internal/runtime/news"
	"github.com/w3f/edunews/internal/runtime/nfts"
	"github.com/w3f/edunews/internal/runtime/people"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var genesis = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func dev(t *testing.T, name string) keys.Signer {
	t.Helper()
	s, err := keys.Dev(name)
	require.NoError(t, err)
	return s
}

// must unwraps the (call, error) pair of a call constructor.
func must(t *testing.T) func(ledger.Call, error) ledger.Call {
	return func(c ledger.Call, err error) ledger.Call {
		t.Helper()
		require.NoError(t, err)
		return c
	}
}

func submit(t *testing.T, n *Node, s keys.Signer, call ledger.Call) (ledger.Receipt, error) {
	t.Helper()
	return ledger.Submit(context.Background(), n, s, call)
}

func TestNodeBlocksAndNonces(t *testing.T) {
	ctx := context.Background()
	n := NewNode(ledger.Issuance, NewMemoryBackend(), []Pallet{NFTs{}}, WithClock(fixedClock{genesis}))
	alice := dev(t, "Alice")

	head, err := n.Head(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), head.Number)

	create := must(t)(nfts.Create(alice.Address(), nfts.NewsCollectionConfig()))
	r1, err := submit(t, n, alice, create)
	require.NoError(t, err)
	r2, err := submit(t, n, alice, create)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), r1.BlockNumber)
	assert.Equal(t, uint64(2), r2.BlockNumber)
	assert.NotEqual(t, r1.TxHash, r2.TxHash)
	assert.Equal(t, ledger.Issuance, r1.Ledger)

	info, found, err := ledger.Fetch[ledger.AccountInfo](ctx, n, ledger.AccountQuery(alice.Address()))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint64(2), info.Nonce)

	head, err = n.Head(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), head.Number)
	assert.Equal(t, genesis.Unix(), head.Timestamp)
	assert.Equal(t, r2.BlockHash, head.Hash)
}

func TestNodeRejectsBadNonceAndSignature(t *testing.T) {
	ctx := context.Background()
	n := NewNode(ledger.Issuance, NewMemoryBackend(), []Pallet{NFTs{}})
	alice := dev(t, "Alice")
	bob := dev(t, "Bob")

	call := must(t)(nfts.Create(alice.Address(), nfts.NewsCollectionConfig()))

	x := ledger.Extrinsic{Signer: alice.Address(), Nonce: 5, Call: call}
	msg, err := x.SigningMessage()
	require.NoError(t, err)
	x.Signature, err = alice.Sign(msg)
	require.NoError(t, err)
	_, err = n.SubmitAndWatch(ctx, x)
	assert.True(t, ledger.IsDispatchError(err, ledger.ReasonBadNonce), "got %v", err)

	// Signed by Bob, claimed by Alice.
	x.Nonce = 0
	msg, err = x.SigningMessage()
	require.NoError(t, err)
	x.Signature, err = bob.Sign(msg)
	require.NoError(t, err)
	_, err = n.SubmitAndWatch(ctx, x)
	assert.True(t, ledger.IsDispatchError(err, ledger.ReasonBadSignature), "got %v", err)

	_, found, err := n.ReadLatest(ctx, nfts.Collection(0))
	require.NoError(t, err)
	assert.False(t, found, "rejected extrinsics must not change state")
}

func TestNodeUnknownPallet(t *testing.T) {
	n := NewNode(ledger.Registry, NewMemoryBackend(), []Pallet{News{}})
	alice := dev(t, "Alice")
	_, err := submit(t, n, alice, must(t)(nfts.Create(alice.Address(), nfts.NewsCollectionConfig())))
	assert.True(t, ledger.IsDispatchError(err, ledger.ReasonUnknownCall), "got %v", err)
}

func TestNodeClosedIsUnavailable(t *testing.T) {
	n := NewNode(ledger.Identity, NewMemoryBackend(), []Pallet{Identity{}})
	require.NoError(t, n.Close())

	_, _, err := n.ReadLatest(context.Background(), people.IdentityOf("x"))
	assert.ErrorIs(t, err, ledger.ErrUnavailable)

	_, err = n.SubmitAndWatch(context.Background(), ledger.Extrinsic{})
	assert.ErrorIs(t, err, ledger.ErrUnavailable)
}

func TestNodeCancelledContext(t *testing.T) {
	n := NewNode(ledger.Identity, NewMemoryBackend(), []Pallet{Identity{}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := n.ReadLatest(ctx, people.IdentityOf("x"))
	assert.ErrorIs(t, err, ledger.ErrUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNFTsCollectionsAndItems(t *testing.T) {
	ctx := context.Background()
	n := NewNode(ledger.Issuance, NewMemoryBackend(), []Pallet{NFTs{}})
	alice := dev(t, "Alice")
	bob := dev(t, "Bob")

	r, err := submit(t, n, alice, must(t)(nfts.Create(alice.Address(), nfts.NewsCollectionConfig())))
	require.NoError(t, err)
	_, ok := r.FindEvent(nfts.Pallet, nfts.EventCreated)
	assert.True(t, ok)

	next, _, err := ledger.Fetch[uint32](ctx, n, nfts.NextCollectionID())
	require.NoError(t, err)
	assert.Equal(t, uint32(1), next)

	_, err = submit(t, n, alice, must(t)(nfts.SetCollectionMetadata(0, "news")))
	require.NoError(t, err)

	// Issuer-only minting.
	_, err = submit(t, n, bob, must(t)(nfts.Mint(0, 0, bob.Address())))
	assert.True(t, ledger.IsDispatchError(err, nfts.ErrNoPermission), "got %v", err)

	_, err = submit(t, n, alice, must(t)(nfts.Mint(0, 0, alice.Address())))
	require.NoError(t, err)
	_, err = submit(t, n, alice, must(t)(nfts.Mint(0, 0, alice.Address())))
	assert.True(t, ledger.IsDispatchError(err, nfts.ErrAlreadyExists), "got %v", err)

	_, err = submit(t, n, alice, must(t)(nfts.Mint(7, 0, alice.Address())))
	assert.True(t, ledger.IsDispatchError(err, nfts.ErrUnknownCollection), "got %v", err)

	_, err = submit(t, n, alice, must(t)(nfts.SetMetadata(0, 1, "{}")))
	assert.True(t, ledger.IsDispatchError(err, nfts.ErrUnknownItem), "got %v", err)

	long := make([]byte, nfts.MetadataLimit+1)
	_, err = submit(t, n, alice, must(t)(nfts.SetMetadata(0, 0, string(long))))
	assert.True(t, ledger.IsDispatchError(err, nfts.ErrMetadataTooLong), "got %v", err)

	_, err = submit(t, n, alice, must(t)(nfts.SetMetadata(0, 0, `{"title":"x"}`)))
	require.NoError(t, err)

	details, found, err := ledger.Fetch[nfts.CollectionDetails](ctx, n, nfts.Collection(0))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, alice.Address(), details.Owner)
	assert.Equal(t, uint32(1), details.Items)
	assert.Equal(t, uint32(1), details.ItemMetadatas)

	item, found, err := ledger.Fetch[nfts.ItemDetails](ctx, n, nfts.Item(0, 0))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, alice.Address(), item.Owner)
	assert.Equal(t, nfts.ItemTransferable, item.Settings)
}

func recordArgs(t *testing.T, s keys.Signer, content string, c, u uint32) news.RecordArticleArgs {
	t.Helper()
	d := ir.HashContent([]byte(content))
	sig, err := s.Sign(ir.SigningPayload(d))
	require.NoError(t, err)
	return news.RecordArticleArgs{
		ContentHash:  d,
		CollectionID: c,
		ItemID:       u,
		Title:        "Title " + content,
		CanonicalURL: "https://example.com/" + content,
		Signature:    sig,
		HashAlgo:     news.HashBlake2b256,
		WordCount:    1,
	}
}

func TestNewsRecordArticle(t *testing.T) {
	ctx := context.Background()
	n := NewNode(ledger.Registry, NewMemoryBackend(), []Pallet{News{}}, WithClock(fixedClock{genesis}))
	alice := dev(t, "Alice")
	bob := dev(t, "Bob")

	args := recordArgs(t, alice, "one", 0, 0)
	_, err := submit(t, n, alice, must(t)(news.RecordArticle(args)))
	require.NoError(t, err)

	rec, found, err := ledger.Fetch[news.ArticleRecord](ctx, n, news.ArticleByHash(args.ContentHash))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, alice.Address(), rec.Publisher)
	assert.Equal(t, uint64(1), rec.LastUpdatedAt)
	assert.Equal(t, genesis.Unix(), rec.Timestamp)

	root, found, err := ledger.Fetch[ir.Digest](ctx, n, news.RootByItem(0, 0))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, args.ContentHash, root)

	_, err = submit(t, n, alice, must(t)(news.RecordArticle(args)))
	assert.True(t, ledger.IsDispatchError(err, news.ErrArticleExists), "got %v", err)

	second := recordArgs(t, alice, "two", 0, 0)
	_, err = submit(t, n, alice, must(t)(news.RecordArticle(second)))
	assert.True(t, ledger.IsDispatchError(err, news.ErrItemAlreadyLinked), "got %v", err)

	// Bob submits a binding signed by Alice.
	stolen := recordArgs(t, alice, "three", 0, 1)
	_, err = submit(t, n, bob, must(t)(news.RecordArticle(stolen)))
	assert.True(t, ledger.IsDispatchError(err, news.ErrBadSignature), "got %v", err)

	second.ItemID = 1
	_, err = submit(t, n, alice, must(t)(news.RecordArticle(second)))
	require.NoError(t, err)

	index, found, err := ledger.Fetch[[]ir.Digest](ctx, n, news.ArticlesByPublisher(alice.Address()))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []ir.Digest{args.ContentHash, second.ContentHash}, index)
}

func TestNewsLimits(t *testing.T) {
	n := NewNode(ledger.Registry, NewMemoryBackend(), []Pallet{News{}})
	alice := dev(t, "Alice")

	args := recordArgs(t, alice, "x", 0, 0)
	args.HashAlgo = "Sha256"
	_, err := submit(t, n, alice, must(t)(news.RecordArticle(args)))
	assert.True(t, ledger.IsDispatchError(err, news.ErrUnsupportedHash), "got %v", err)

	args = recordArgs(t, alice, "x", 0, 0)
	args.Title = string(make([]byte, news.TitleLimit+1))
	_, err = submit(t, n, alice, must(t)(news.RecordArticle(args)))
	assert.True(t, ledger.IsDispatchError(err, news.ErrTitleTooLong), "got %v", err)
}

func TestIdentitySetAndClear(t *testing.T) {
	ctx := context.Background()
	n := NewNode(ledger.Identity, NewMemoryBackend(), []Pallet{Identity{}})
	alice := dev(t, "Alice")

	_, err := submit(t, n, alice, must(t)(people.ClearIdentity()))
	assert.True(t, ledger.IsDispatchError(err, people.ErrNoIdentity), "got %v", err)

	_, err = submit(t, n, alice, must(t)(people.SetIdentity(people.IdentityInfo{Display: "Alice News"})))
	require.NoError(t, err)

	reg, found, err := ledger.Fetch[people.Registration](ctx, n, people.IdentityOf(alice.Address()))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Alice News", reg.Info.Display)

	_, err = submit(t, n, alice, must(t)(people.ClearIdentity()))
	require.NoError(t, err)
	_, found, err = n.ReadLatest(ctx, people.IdentityOf(alice.Address()))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryNetwork(t *testing.T) {
	net := NewMemoryNetwork()
	for _, name := range ledger.Names {
		node, ok := net.Node(name)
		require.True(t, ok)
		assert.Equal(t, name, node.Name())
	}
	_, ok := net.Node("other")
	assert.False(t, ok)

	_, err := PalletsFor("other")
	assert.Error(t, err)
	require.NoError(t, net.Close())
}
