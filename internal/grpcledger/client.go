package grpcledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/w3f/edunews/internal/ledger"
)

// Client implements ledger.Client for one ledger hosted by a Server.
type Client struct {
	cc     *grpc.ClientConn
	client LedgerClient
	ledger string
	target string

	// Timeout applies per RPC when non-zero and the caller's context has
	// no earlier deadline.
	Timeout time.Duration
}

type DialOptions struct {
	// Timeout applies to the initial handshake when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
}

// Dial connects to the named ledger at target and checks that the server
// hosts it. Failures are reported as *ledger.ConnectionError.
func Dial(ctx context.Context, target, name string, opts DialOptions, extra ...grpc.DialOption) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}
	dialOpts = append(dialOpts, extra...)

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, &ledger.ConnectionError{Ledger: name, Endpoint: target, Err: err}
	}
	c := NewClient(cc, name)
	c.target = target

	pingCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	if _, err := c.Head(pingCtx); err != nil {
		cc.Close()
		return nil, &ledger.ConnectionError{Ledger: name, Endpoint: target, Err: err}
	}
	return c, nil
}

// NewClient binds an existing connection to the named ledger.
func NewClient(cc *grpc.ClientConn, name string) *Client {
	return &Client{cc: cc, client: NewLedgerClient(cc), ledger: name, target: cc.Target()}
}

func (c *Client) Name() string { return c.ledger }

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) ReadLatest(ctx context.Context, q ledger.Query) ([]byte, bool, error) {
	body, err := json.Marshal(readRequest{Ledger: c.ledger, Query: q})
	if err != nil {
		return nil, false, fmt.Errorf("encode read: %w", err)
	}
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	out, err := c.client.Read(ctx, wrapperspb.Bytes(body))
	if err != nil {
		return nil, false, c.mapRPC(err, "")
	}
	var r readReply
	if err := json.Unmarshal(out.GetValue(), &r); err != nil {
		return nil, false, fmt.Errorf("%s: decode read reply: %w", c.ledger, err)
	}
	if !r.Found {
		return nil, false, nil
	}
	return []byte(r.Value), true, nil
}

func (c *Client) SubmitAndWatch(ctx context.Context, x ledger.Extrinsic) (ledger.Receipt, error) {
	body, err := json.Marshal(submitRequest{Ledger: c.ledger, Extrinsic: x})
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("encode submit: %w", err)
	}
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	out, err := c.client.Submit(ctx, wrapperspb.Bytes(body))
	if err != nil {
		return ledger.Receipt{}, c.mapRPC(err, x.Call.String())
	}
	var r ledger.Receipt
	if err := json.Unmarshal(out.GetValue(), &r); err != nil {
		return ledger.Receipt{}, fmt.Errorf("%s: decode receipt: %w", c.ledger, err)
	}
	return r, nil
}

// Head returns the latest finalized block of the ledger.
func (c *Client) Head(ctx context.Context) (ledger.Block, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	out, err := c.client.Head(ctx, wrapperspb.String(c.ledger))
	if err != nil {
		return ledger.Block{}, c.mapRPC(err, "")
	}
	var b ledger.Block
	if err := json.Unmarshal(out.GetValue(), &b); err != nil {
		return ledger.Block{}, fmt.Errorf("%s: decode block: %w", c.ledger, err)
	}
	return b, nil
}

func (c *Client) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, c.Timeout)
}
