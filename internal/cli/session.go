package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/w3f/edunews/internal/engine"
	"github.com/w3f/edunews/internal/identity"
	"github.com/w3f/edunews/internal/ir"
	"github.com/w3f/edunews/internal/issuance"
	"github.com/w3f/edunews/internal/keys"
	"github.com/w3f/edunews/internal/network"
	"github.com/w3f/edunews/internal/registry"
)

// session is one command's connection to the configured network.
type session struct {
	clients  *network.Clients
	orch     *engine.Orchestrator
	agg      *engine.Aggregator
	resolver *identity.Resolver
}

func (o *RootOptions) connect(ctx context.Context) (*session, error) {
	clients, err := network.Connect(ctx, o.Config.Endpoints, o.Config.Timeouts, network.WithLogger(o.Logger))
	if err != nil {
		return nil, err
	}
	issuer := issuance.New(clients.Issuance, o.Logger)
	registrar := registry.New(clients.Registry, o.Logger)
	resolver := identity.New(clients.Identity, o.Logger)

	orchOpts := []engine.Option{engine.WithLogger(o.Logger)}
	if o.FlowGenerator != nil {
		orchOpts = append(orchOpts, engine.WithFlowGenerator(o.FlowGenerator))
	}
	return &session{
		clients:  clients,
		orch:     engine.NewOrchestrator(issuer, registrar, orchOpts...),
		agg:      engine.NewAggregator(issuer, registrar, resolver, o.Logger),
		resolver: resolver,
	}, nil
}

func (s *session) Close() error { return s.clients.Close() }

// withSession connects, runs fn and closes the connection. Connection
// failures are reported through f.
func (o *RootOptions) withSession(cmd *cobra.Command, f *OutputFormatter, fn func(ctx context.Context, s *session) error) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	s, err := o.connect(ctx)
	if err != nil {
		return f.Fail("connect to "+o.Config.Network, err)
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			o.Logger.Error("error closing ledger clients", "error", closeErr)
		}
	}()
	return fn(ctx, s)
}

// signalContext returns the command context, cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	// Use command's context if available (for testing), otherwise create one
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// signer derives the publisher key from the --mnemonic flag, falling back
// to the configured mnemonic (EDUNEWS_MNEMONIC).
func (o *RootOptions) signer(mnemonic, scheme string) (keys.Signer, error) {
	if mnemonic == "" {
		mnemonic = o.Config.Mnemonic
	}
	if mnemonic == "" {
		return nil, invalidInput("a mnemonic must be provided with --mnemonic or EDUNEWS_MNEMONIC")
	}
	s, err := keys.FromURI(mnemonic, ir.SignatureScheme(scheme), o.Config.SS58Prefix)
	if err != nil {
		return nil, fmt.Errorf("derive signer: %w", err)
	}
	return s, nil
}

func invalidInput(format string, args ...any) error {
	return &engine.Error{Code: engine.ErrCodeMalformedInput, Message: fmt.Sprintf(format, args...)}
}

// parseUnit parses the <collection> <item> arguments.
func parseUnit(args []string) (ir.IssuanceUnit, error) {
	c, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return ir.IssuanceUnit{}, invalidInput("invalid collection id %q", args[0])
	}
	u, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return ir.IssuanceUnit{}, invalidInput("invalid item id %q", args[1])
	}
	return ir.IssuanceUnit{ContainerID: uint32(c), UnitID: uint32(u)}, nil
}
