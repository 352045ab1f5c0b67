package testutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/sasha-s/go-deadlock"
	"github.com/stretchr/testify/require"

	"github.com/w3f/edunews/internal/devnet"
	"github.com/w3f/edunews/internal/keys"
	"github.com/w3f/edunews/internal/ledger"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// DevSigner returns the well-known development account for name ("Alice", "Bob", ...).
func DevSigner(t testing.TB, name string) keys.Signer {
	t.Helper()
	s, err := keys.Dev(name)
	require.NoError(t, err)
	return s
}

// NewNetwork creates an in-memory three-ledger network with a deterministic
// block clock. It is closed when the test ends.
func NewNetwork(t testing.TB) *devnet.Network {
	t.Helper()
	n := devnet.NewMemoryNetwork(
		devnet.WithClock(NewDeterministicClock()),
		devnet.WithLogger(DiscardLogger()),
	)
	t.Cleanup(func() { n.Close() })
	return n
}

// FaultyClient wraps a ledger.Client and fails selected operations.
// The zero fault set passes everything through.
type FaultyClient struct {
	ledger.Client

	mu      deadlock.Mutex
	readErr error
	reads   int
	calls   map[string]error
	after   map[string]int
	hooks   map[string]func()
}

// NewFaultyClient wraps c.
func NewFaultyClient(c ledger.Client) *FaultyClient {
	return &FaultyClient{
		Client: c,
		calls:  make(map[string]error),
		after:  make(map[string]int),
		hooks:  make(map[string]func()),
	}
}

// Unavailable is the error FaultyClient injects when none is given.
func (f *FaultyClient) Unavailable() error {
	return fmt.Errorf("%s: %w: injected fault", f.Name(), ledger.ErrUnavailable)
}

// FailReads makes every read fail with err (nil uses Unavailable).
func (f *FaultyClient) FailReads(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		err = f.Unavailable()
	}
	f.readErr = err
}

// FailCall makes submissions of call ("pallet.name") fail with err (nil
// uses Unavailable) once skip earlier submissions of it have passed.
func (f *FaultyClient) FailCall(call string, skip int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		err = f.Unavailable()
	}
	f.calls[call] = err
	f.after[call] = skip
}

// Reads returns the number of reads seen so far, failed ones included.
func (f *FaultyClient) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

// OnCall runs fn before each submission of call is forwarded or failed.
func (f *FaultyClient) OnCall(call string, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks[call] = fn
}

// Heal removes every fault.
func (f *FaultyClient) Heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readErr = nil
	f.calls = make(map[string]error)
	f.after = make(map[string]int)
}

func (f *FaultyClient) ReadLatest(ctx context.Context, q ledger.Query) ([]byte, bool, error) {
	f.mu.Lock()
	err := f.readErr
	f.reads++
	f.mu.Unlock()
	if err != nil {
		return nil, false, err
	}
	return f.Client.ReadLatest(ctx, q)
}

func (f *FaultyClient) SubmitAndWatch(ctx context.Context, x ledger.Extrinsic) (ledger.Receipt, error) {
	name := x.Call.String()
	f.mu.Lock()
	hook := f.hooks[name]
	f.mu.Unlock()
	if hook != nil {
		hook()
	}

	f.mu.Lock()
	err, ok := f.calls[name]
	if ok && f.after[name] > 0 {
		f.after[name]--
		ok = false
	}
	f.mu.Unlock()
	if ok {
		return ledger.Receipt{}, err
	}
	return f.Client.SubmitAndWatch(ctx, x)
}
