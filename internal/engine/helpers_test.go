package engine

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/w3f/edunews/internal/devnet"
	"github.com/w3f/edunews/internal/identity"
	"github.com/w3f/edunews/internal/issuance"
	"github.com/w3f/edunews/internal/keys"
	"github.com/w3f/edunews/internal/registry"
	"github.com/w3f/edunews/internal/testutil"
)

// fixture wires the engine to an in-memory network through fault-injecting
// clients. Faults are off until a test turns them on.
type fixture struct {
	net       *devnet.Network
	issuance  *testutil.FaultyClient
	registry  *testutil.FaultyClient
	identity  *testutil.FaultyClient
	issuer    *issuance.Issuer
	registrar *registry.Registrar
	resolver  *identity.Resolver
	orch      *Orchestrator
	agg       *Aggregator
	logs      *bytes.Buffer
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	n := testutil.NewNetwork(t)
	f := &fixture{
		net:      n,
		issuance: testutil.NewFaultyClient(n.Issuance),
		registry: testutil.NewFaultyClient(n.Registry),
		identity: testutil.NewFaultyClient(n.Identity),
		logs:     &bytes.Buffer{},
	}
	quiet := testutil.DiscardLogger()
	f.issuer = issuance.New(f.issuance, quiet)
	f.registrar = registry.New(f.registry, quiet)
	f.resolver = identity.New(f.identity, quiet)

	logger := slog.New(slog.NewTextHandler(f.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	base := []Option{
		WithFlowGenerator(NewFixedGenerator("flow-1", "flow-2", "flow-3")),
		WithLogger(logger),
	}
	f.orch = NewOrchestrator(f.issuer, f.registrar, append(base, opts...)...)
	f.agg = NewAggregator(f.issuer, f.registrar, f.resolver, quiet)
	return f
}

func request(t *testing.T, signer keys.Signer, title, content string) Request {
	t.Helper()
	return Request{Title: title, URL: "http://x", Content: []byte(content), Signer: signer}
}
