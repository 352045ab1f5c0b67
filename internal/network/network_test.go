package network

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"github.com/w3f/edunews/internal/config"
	"github.com/w3f/edunews/internal/devnet"
	"github.com/w3f/edunews/internal/grpcledger"
	"github.com/w3f/edunews/internal/keys"
	"github.com/w3f/edunews/internal/ledger"
	"github.com/w3f/edunews/internal/runtime/nfts"
)

var timeouts = config.Timeouts{Connect: 2 * time.Second, Read: 2 * time.Second, Submit: 2 * time.Second}

func createCollection(t *testing.T, c ledger.Client) ledger.Receipt {
	t.Helper()
	alice, err := keys.Dev("Alice")
	require.NoError(t, err)
	call, err := nfts.Create(alice.Address(), nfts.NewsCollectionConfig())
	require.NoError(t, err)
	r, err := ledger.Submit(context.Background(), c, alice, call)
	require.NoError(t, err)
	return r
}

func TestConnectMemory(t *testing.T) {
	eps := config.Endpoints{
		Issuance: "memory://issuance",
		Registry: "memory://registry",
		Identity: "memory://",
	}
	clients, err := Connect(context.Background(), eps, timeouts)
	require.NoError(t, err)
	defer clients.Close()

	assert.Equal(t, ledger.Issuance, clients.Issuance.Name())
	assert.Equal(t, ledger.Registry, clients.Registry.Name())
	assert.Equal(t, ledger.Identity, clients.Identity.Name())

	r := createCollection(t, clients.Issuance)
	head, err := clients.Head(context.Background(), ledger.Issuance)
	require.NoError(t, err)
	assert.Equal(t, r.BlockHash, head.Hash)

	c, ok := clients.Ledger(ledger.Registry)
	require.True(t, ok)
	assert.Equal(t, ledger.Registry, c.Name())
	_, ok = clients.Ledger("bogus")
	assert.False(t, ok)
}

func TestConnectSQLitePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devnet.db")
	eps := config.SQLiteEndpoints(path)
	ctx := context.Background()

	clients, err := Connect(ctx, eps, timeouts)
	require.NoError(t, err)
	createCollection(t, clients.Issuance)
	require.NoError(t, clients.Close())

	clients, err = Connect(ctx, eps, timeouts)
	require.NoError(t, err)
	defer clients.Close()

	details, found, err := ledger.Fetch[nfts.CollectionDetails](ctx, clients.Issuance, nfts.Collection(0))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint32(0), details.Items)

	head, err := clients.Head(ctx, ledger.Registry)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), head.Number)
}

func TestConnectGRPC(t *testing.T) {
	network := devnet.NewMemoryNetwork()
	ledgers := map[string]grpcledger.Ledger{}
	for _, n := range network.Nodes() {
		ledgers[n.Name()] = n
	}

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := grpc.NewServer()
	grpcledger.RegisterLedgerServer(srv, &grpcledger.Server{Ledgers: ledgers})
	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	clients, err := Connect(context.Background(), config.GRPCEndpoints(lis.Addr().String()), timeouts)
	require.NoError(t, err)
	defer clients.Close()

	r := createCollection(t, clients.Issuance)
	local, err := network.Issuance.Head(context.Background())
	require.NoError(t, err)
	assert.Equal(t, r.BlockHash, local.Hash)
}

func TestConnectFailures(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	dead := lis.Addr().String()
	lis.Close()

	tests := []struct {
		name        string
		eps         config.Endpoints
		ledger      string
		unavailable bool
	}{
		{
			name:   "unsupported scheme",
			eps:    config.Endpoints{Issuance: "ws://127.0.0.1:9944", Registry: "memory://", Identity: "memory://"},
			ledger: ledger.Issuance,
		},
		{
			name:   "wrong ledger",
			eps:    config.Endpoints{Issuance: "memory://", Registry: "memory://identity", Identity: "memory://"},
			ledger: ledger.Registry,
		},
		{
			name:        "unreachable node",
			eps:         config.Endpoints{Issuance: "memory://", Registry: "memory://", Identity: "grpc://" + dead + "/identity"},
			ledger:      ledger.Identity,
			unavailable: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Connect(context.Background(), tt.eps, config.Timeouts{Connect: 500 * time.Millisecond})
			require.Error(t, err)

			var ce *ledger.ConnectionError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.ledger, ce.Ledger)
			assert.True(t, ledger.IsUnavailable(err))
			if tt.unavailable {
				assert.ErrorIs(t, err, ledger.ErrUnavailable)
			}
		})
	}
}
