package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerBackend_GetMissing(t *testing.T) {
	s := createTestStore(t)

	v, ok, err := s.Ledger("registry").Get(context.Background(), "news.article/0x01")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestLedgerBackend_HeadEmpty(t *testing.T) {
	s := createTestStore(t)

	_, ok, err := s.Ledger("registry").Head(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLedgerBackend_CommitWritesBlockAndState(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	b := s.Ledger("issuance")

	blk := createTestBlock(1, "0xaa")
	require.NoError(t, b.Commit(ctx, blk, map[string][]byte{
		"nfts.item/0/0": []byte(`{"owner":"5Grw"}`),
	}))

	v, ok, err := b.Get(ctx, "nfts.item/0/0")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"owner":"5Grw"}`, string(v))

	head, ok, err := b.Head(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, blk, head)
}

func TestLedgerBackend_NilValueDeletes(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	b := s.Ledger("identity")

	require.NoError(t, b.Commit(ctx, createTestBlock(1), map[string][]byte{"identity.of/x": []byte(`1`)}))
	require.NoError(t, b.Commit(ctx, createTestBlock(2), map[string][]byte{"identity.of/x": nil}))

	_, ok, err := b.Get(ctx, "identity.of/x")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLedgerBackend_OverwriteKeepsLatest(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	b := s.Ledger("registry")

	require.NoError(t, b.Commit(ctx, createTestBlock(1), map[string][]byte{"k": []byte(`1`)}))
	require.NoError(t, b.Commit(ctx, createTestBlock(2), map[string][]byte{"k": []byte(`2`)}))

	v, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2", string(v))
}

func TestLedgerBackend_DuplicateBlockRollsBack(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	b := s.Ledger("registry")

	require.NoError(t, b.Commit(ctx, createTestBlock(1), nil))
	err := b.Commit(ctx, createTestBlock(1), map[string][]byte{"k": []byte(`1`)})
	require.Error(t, err)

	_, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "writes of a rejected block must not persist")
}

func TestLedgerBackend_LedgersAreIsolated(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Ledger("issuance").Commit(ctx, createTestBlock(1), map[string][]byte{"k": []byte(`1`)}))

	_, ok, err := s.Ledger("registry").Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.Ledger("registry").Head(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLedgerBackend_BlocksNewestFirst(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	b := s.Ledger("registry")

	for n := uint64(1); n <= 3; n++ {
		require.NoError(t, b.Commit(ctx, createTestBlock(n, "0xe"), nil))
	}

	blocks, err := b.Blocks(ctx, 2)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, uint64(3), blocks[0].Number)
	assert.Equal(t, uint64(2), blocks[1].Number)
	assert.Equal(t, []string{"0xe"}, blocks[0].Extrinsics)

	empty, err := s.Ledger("identity").Blocks(ctx, 10)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestLedgerBackend_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devnet.db")
	ctx := context.Background()

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Ledger("registry").Commit(ctx, createTestBlock(1), map[string][]byte{"k": []byte(`"v"`)}))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	v, ok, err := s2.Ledger("registry").Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `"v"`, string(v))

	head, ok, err := s2.Ledger("registry").Head(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(1), head.Number)
}
