package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Timeouts bound individual ledger operations. Zero disables a bound.
type Timeouts struct {
	Read   time.Duration
	Submit time.Duration
}

// WithTimeouts wraps c so every read and submit runs under its own deadline.
// An expired deadline is reported as ErrUnavailable.
func WithTimeouts(c Client, t Timeouts) Client {
	return &timeoutClient{inner: c, t: t}
}

type timeoutClient struct {
	inner Client
	t     Timeouts
}

func (c *timeoutClient) Name() string { return c.inner.Name() }
func (c *timeoutClient) Close() error { return c.inner.Close() }

func (c *timeoutClient) ReadLatest(ctx context.Context, q Query) ([]byte, bool, error) {
	ctx, cancel := bound(ctx, c.t.Read)
	defer cancel()
	v, found, err := c.inner.ReadLatest(ctx, q)
	return v, found, c.wrap(err)
}

func (c *timeoutClient) SubmitAndWatch(ctx context.Context, x Extrinsic) (Receipt, error) {
	ctx, cancel := bound(ctx, c.t.Submit)
	defer cancel()
	r, err := c.inner.SubmitAndWatch(ctx, x)
	return r, c.wrap(err)
}

func (c *timeoutClient) wrap(err error) error {
	if err != nil && errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrUnavailable) {
		return fmt.Errorf("%s: %w: %w", c.inner.Name(), ErrUnavailable, err)
	}
	return err
}

func bound(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
