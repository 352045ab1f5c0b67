package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sasha-s/go-deadlock"

	"github.com/w3f/edunews/internal/ir"
)

// ErrContention is returned when a registration for the same publisher is
// already in progress in this process.
var ErrContention = errors.New("registration already in progress for publisher")

// PublisherGuard admits at most one registration per publisher at a time.
// It does not queue: a second caller is rejected immediately.
type PublisherGuard struct {
	mu     deadlock.Mutex
	active map[ir.Address]string
}

// NewPublisherGuard returns a guard with no publisher held.
func NewPublisherGuard() *PublisherGuard {
	return &PublisherGuard{active: make(map[ir.Address]string)}
}

// Acquire reserves publisher for flow. Calling the returned release func
// more than once has no further effect.
func (g *PublisherGuard) Acquire(publisher ir.Address, flow string) (release func(), err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if holder, busy := g.active[publisher]; busy {
		return nil, &Error{
			Code:      ErrCodeContention,
			Message:   fmt.Sprintf("publisher %s is held by flow %s", publisher, holder),
			FlowToken: flow,
			Err:       ErrContention,
		}
	}
	g.active[publisher] = flow
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			delete(g.active, publisher)
		})
	}, nil
}

// Active reports whether a registration for publisher is in progress.
func (g *PublisherGuard) Active(publisher ir.Address) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.active[publisher]
	return busy
}
