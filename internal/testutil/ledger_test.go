package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/w3f/edunews/internal/ledger"
	"github.com/w3f/edunews/internal/runtime/nfts"
)

func TestFaultyClient(t *testing.T) {
	ctx := context.Background()
	n := NewNetwork(t)
	alice := DevSigner(t, "Alice")
	c := NewFaultyClient(n.Issuance)

	create, err := nfts.Create(alice.Address(), nfts.NewsCollectionConfig())
	require.NoError(t, err)

	c.FailCall("nfts.create", 1, nil)
	_, err = ledger.Submit(ctx, c, alice, create)
	require.NoError(t, err, "first submission is skipped")
	_, err = ledger.Submit(ctx, c, alice, create)
	require.Error(t, err)
	assert.True(t, ledger.IsUnavailable(err))

	c.FailReads(nil)
	_, _, err = c.ReadLatest(ctx, nfts.NextCollectionID())
	assert.True(t, ledger.IsUnavailable(err))

	c.Heal()
	next, found, err := ledger.Fetch[uint32](ctx, c, nfts.NextCollectionID())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint32(1), next)
}
