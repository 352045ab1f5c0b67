// Package network opens the three ledger clients of a configured network.
package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/w3f/edunews/internal/config"
	"github.com/w3f/edunews/internal/devnet"
	"github.com/w3f/edunews/internal/grpcledger"
	"github.com/w3f/edunews/internal/ledger"
	"github.com/w3f/edunews/internal/store"
)

// Clients holds one client per ledger. Close releases all of them.
type Clients struct {
	Issuance ledger.Client
	Registry ledger.Client
	Identity ledger.Client

	heads   map[string]headReader
	closers []io.Closer
}

type headReader interface {
	Head(ctx context.Context) (ledger.Block, error)
}

// Option configures Connect.
type Option func(*connector)

// WithLogger sets the logger handed to in-process nodes.
func WithLogger(l *slog.Logger) Option {
	return func(c *connector) { c.logger = l }
}

// WithClock sets the block clock of in-process nodes.
func WithClock(clock devnet.Clock) Option {
	return func(c *connector) { c.clock = clock }
}

type connector struct {
	timeouts config.Timeouts
	logger   *slog.Logger
	clock    devnet.Clock
	stores   map[string]*store.Store
	out      *Clients
}

// Connect establishes the issuance, registry and identity clients, in that
// order. If any connection fails the ones already opened are closed and a
// *ledger.ConnectionError is returned.
func Connect(ctx context.Context, eps config.Endpoints, timeouts config.Timeouts, opts ...Option) (*Clients, error) {
	c := &connector{
		timeouts: timeouts,
		logger:   slog.Default(),
		stores:   make(map[string]*store.Store),
		out:      &Clients{heads: make(map[string]headReader)},
	}
	for _, opt := range opts {
		opt(c)
	}

	targets := []struct {
		name string
		ep   string
		dst  *ledger.Client
	}{
		{ledger.Issuance, eps.Issuance, &c.out.Issuance},
		{ledger.Registry, eps.Registry, &c.out.Registry},
		{ledger.Identity, eps.Identity, &c.out.Identity},
	}
	for _, t := range targets {
		client, err := c.open(ctx, t.name, t.ep)
		if err != nil {
			c.out.Close()
			var ce *ledger.ConnectionError
			if errors.As(err, &ce) {
				return nil, err
			}
			return nil, &ledger.ConnectionError{Ledger: t.name, Endpoint: t.ep, Err: err}
		}
		c.logger.Debug("ledger connected", "ledger", t.name, "endpoint", t.ep)
		*t.dst = ledger.WithTimeouts(client, ledger.Timeouts{Read: timeouts.Read, Submit: timeouts.Submit})
	}
	return c.out, nil
}

func (c *connector) open(ctx context.Context, role, endpoint string) (ledger.Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}

	switch u.Scheme {
	case "memory":
		if err := checkRole(role, u.Host); err != nil {
			return nil, err
		}
		return c.node(role, devnet.NewMemoryBackend())

	case "sqlite":
		path := u.Host + u.Path
		if path == "" {
			return nil, errors.New("sqlite endpoint needs a path")
		}
		if err := checkRole(role, u.Query().Get("ledger")); err != nil {
			return nil, err
		}
		st, ok := c.stores[path]
		if !ok {
			if dir := filepath.Dir(path); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, err
				}
			}
			if st, err = store.Open(path); err != nil {
				return nil, err
			}
			c.stores[path] = st
			c.out.closers = append(c.out.closers, st)
		}
		return c.node(role, st.Ledger(role))

	case "grpc":
		if err := checkRole(role, strings.Trim(u.Path, "/")); err != nil {
			return nil, err
		}
		dctx := ctx
		if c.timeouts.Connect > 0 {
			var cancel context.CancelFunc
			dctx, cancel = context.WithTimeout(ctx, c.timeouts.Connect)
			defer cancel()
		}
		client, err := grpcledger.Dial(dctx, u.Host, role, grpcledger.DialOptions{Timeout: c.timeouts.Connect})
		if err != nil {
			return nil, err
		}
		c.out.closers = append(c.out.closers, client)
		c.out.heads[role] = client
		return client, nil

	default:
		return nil, fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}
}

func (c *connector) node(role string, b devnet.Backend) (ledger.Client, error) {
	pallets, err := devnet.PalletsFor(role)
	if err != nil {
		return nil, err
	}
	opts := []devnet.Option{devnet.WithLogger(c.logger)}
	if c.clock != nil {
		opts = append(opts, devnet.WithClock(c.clock))
	}
	n := devnet.NewNode(role, b, pallets, opts...)
	c.out.closers = append(c.out.closers, n)
	c.out.heads[role] = n
	return n, nil
}

// checkRole rejects an endpoint that names a different ledger than the one
// it is configured for. An empty name defaults to the role.
func checkRole(role, named string) error {
	if named != "" && named != role {
		return fmt.Errorf("endpoint serves the %s ledger, not %s", named, role)
	}
	return nil
}

// Ledger returns the client for a ledger name.
func (c *Clients) Ledger(name string) (ledger.Client, bool) {
	switch name {
	case ledger.Issuance:
		return c.Issuance, c.Issuance != nil
	case ledger.Registry:
		return c.Registry, c.Registry != nil
	case ledger.Identity:
		return c.Identity, c.Identity != nil
	default:
		return nil, false
	}
}

// Head returns the latest finalized block of the named ledger.
func (c *Clients) Head(ctx context.Context, name string) (ledger.Block, error) {
	h, ok := c.heads[name]
	if !ok {
		return ledger.Block{}, fmt.Errorf("unknown ledger %q", name)
	}
	return h.Head(ctx)
}

// Close closes clients before the stores they read from.
func (c *Clients) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i].Close())
	}
	c.closers = nil
	return errors.Join(errs...)
}
