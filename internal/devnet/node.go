package devnet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sasha-s/go-deadlock"

	"github.com/w3f/edunews/internal/ir"
	"github.com/w3f/edunews/internal/keys"
	"github.com/w3f/edunews/internal/ledger"
)

// Clock supplies block timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Option configures a Node.
type Option func(*Node)

// WithClock sets the source of block timestamps.
func WithClock(c Clock) Option {
	return func(n *Node) { n.clock = c }
}

// WithLogger sets the node logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *Node) { n.logger = l }
}

// Node is an in-process ledger. It implements ledger.Client.
//
// Reads run concurrently against the backend. Submissions are serialized:
// each one produces exactly one block.
type Node struct {
	name    string
	backend Backend
	pallets map[string]Pallet
	clock   Clock
	logger  *slog.Logger

	mu     deadlock.Mutex
	closed atomic.Bool
}

// NewNode creates a ledger named name over backend with the given pallets.
func NewNode(name string, backend Backend, pallets []Pallet, opts ...Option) *Node {
	n := &Node{
		name:    name,
		backend: backend,
		pallets: make(map[string]Pallet, len(pallets)),
		clock:   systemClock{},
		logger:  slog.Default(),
	}
	for _, p := range pallets {
		n.pallets[p.Name()] = p
	}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = n.logger.With("ledger", name)
	return n
}

func (n *Node) Name() string { return n.name }

// Close stops the node. Later calls fail with ledger.ErrUnavailable.
// The backend is owned by the caller and stays open.
func (n *Node) Close() error {
	n.closed.Store(true)
	return nil
}

func (n *Node) available(ctx context.Context) error {
	if n.closed.Load() {
		return fmt.Errorf("%s: %w: node closed", n.name, ledger.ErrUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w: %w", n.name, ledger.ErrUnavailable, err)
	}
	return nil
}

func (n *Node) ReadLatest(ctx context.Context, q ledger.Query) ([]byte, bool, error) {
	if err := n.available(ctx); err != nil {
		return nil, false, err
	}
	v, found, err := n.backend.Get(ctx, q.Key())
	if err != nil {
		return nil, false, fmt.Errorf("%s: read %s: %w", n.name, q, err)
	}
	return v, found, nil
}

// Head returns the latest finalized block, or the zero block before genesis.
func (n *Node) Head(ctx context.Context) (ledger.Block, error) {
	if err := n.available(ctx); err != nil {
		return ledger.Block{}, err
	}
	b, _, err := n.backend.Head(ctx)
	if err != nil {
		return ledger.Block{}, fmt.Errorf("%s: head: %w", n.name, err)
	}
	return b, nil
}

func (n *Node) SubmitAndWatch(ctx context.Context, x ledger.Extrinsic) (ledger.Receipt, error) {
	if err := n.available(ctx); err != nil {
		return ledger.Receipt{}, err
	}
	reject := func(reason string, err error) (ledger.Receipt, error) {
		n.logger.Debug("extrinsic rejected", "call", x.Call.String(), "signer", x.Signer, "reason", reason)
		return ledger.Receipt{}, &ledger.SubmissionError{Ledger: n.name, Call: x.Call.String(), Reason: reason, Err: err}
	}

	msg, err := x.SigningMessage()
	if err != nil {
		return reject(ledger.ReasonInvalidArgs, err)
	}
	ok, err := keys.Verify(x.Signer, msg, x.Signature)
	if err != nil || !ok {
		return reject(ledger.ReasonBadSignature, err)
	}
	txHash, err := x.Hash()
	if err != nil {
		return reject(ledger.ReasonInvalidArgs, err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	st := newState(ctx, n.backend)
	account, _, err := load[ledger.AccountInfo](st, ledger.AccountQuery(x.Signer))
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("%s: %w", n.name, err)
	}
	if x.Nonce != account.Nonce {
		return reject(ledger.ReasonBadNonce, fmt.Errorf("expected nonce %d, got %d", account.Nonce, x.Nonce))
	}

	pallet, ok := n.pallets[x.Call.Pallet]
	if !ok {
		return reject(ledger.ReasonUnknownCall, fmt.Errorf("no pallet %q", x.Call.Pallet))
	}

	head, _, err := n.backend.Head(ctx)
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("%s: head: %w", n.name, err)
	}
	block := ledger.Block{
		Number:     head.Number + 1,
		ParentHash: head.Hash,
		Timestamp:  n.clock.Now().Unix(),
		Extrinsics: []string{txHash},
	}

	env := &Env{State: st, Origin: x.Signer, Block: block.Number, Timestamp: block.Timestamp}
	events, err := pallet.Dispatch(env, x.Call)
	if err != nil {
		var de *DispatchError
		if errors.As(err, &de) {
			return reject(de.Reason, err)
		}
		return ledger.Receipt{}, fmt.Errorf("%s: dispatch %s: %w", n.name, x.Call, err)
	}

	account.Nonce++
	if err := save(st, ledger.AccountQuery(x.Signer), account); err != nil {
		return ledger.Receipt{}, err
	}
	if block.Hash, err = blockHash(block); err != nil {
		return ledger.Receipt{}, err
	}
	if err := n.available(ctx); err != nil {
		return ledger.Receipt{}, err
	}
	if err := n.backend.Commit(ctx, block, st.writes); err != nil {
		return ledger.Receipt{}, fmt.Errorf("%s: commit block %d: %w", n.name, block.Number, err)
	}

	n.logger.Debug("extrinsic finalized",
		"call", x.Call.String(),
		"signer", x.Signer,
		"block", block.Number,
		"tx", txHash,
	)
	if events == nil {
		events = []ledger.Event{}
	}
	return ledger.Receipt{
		Ledger:      n.name,
		TxHash:      txHash,
		BlockNumber: block.Number,
		BlockHash:   block.Hash,
		Events:      events,
	}, nil
}

func blockHash(b ledger.Block) (string, error) {
	exts := make([]string, len(b.Extrinsics))
	copy(exts, b.Extrinsics)
	header, err := ir.MarshalCanonical(map[string]any{
		"number":      b.Number,
		"parent_hash": b.ParentHash,
		"timestamp":   b.Timestamp,
		"extrinsics":  exts,
	})
	if err != nil {
		return "", fmt.Errorf("encode block header: %w", err)
	}
	return ir.HashContent(header).String(), nil
}
