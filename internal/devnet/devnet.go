package devnet

import (
	"errors"
	"fmt"

	"github.com/w3f/edunews/internal/ledger"
)

// PalletsFor returns the pallets hosted by the named ledger.
func PalletsFor(name string) ([]Pallet, error) {
	switch name {
	case ledger.Issuance:
		return []Pallet{NFTs{}}, nil
	case ledger.Registry:
		return []Pallet{News{}}, nil
	case ledger.Identity:
		return []Pallet{Identity{}}, nil
	default:
		return nil, fmt.Errorf("unknown ledger %q", name)
	}
}

// Network is a set of three nodes, one per ledger.
type Network struct {
	Issuance *Node
	Registry *Node
	Identity *Node
}

// NewNetwork creates the three ledgers, asking backendFor for the backend of each.
func NewNetwork(backendFor func(name string) (Backend, error), opts ...Option) (*Network, error) {
	nodes := make(map[string]*Node, len(ledger.Names))
	for _, name := range ledger.Names {
		b, err := backendFor(name)
		if err != nil {
			return nil, fmt.Errorf("backend for %s: %w", name, err)
		}
		pallets, err := PalletsFor(name)
		if err != nil {
			return nil, err
		}
		nodes[name] = NewNode(name, b, pallets, opts...)
	}
	return &Network{
		Issuance: nodes[ledger.Issuance],
		Registry: nodes[ledger.Registry],
		Identity: nodes[ledger.Identity],
	}, nil
}

// NewMemoryNetwork creates three ledgers over fresh memory backends.
func NewMemoryNetwork(opts ...Option) *Network {
	n, err := NewNetwork(func(string) (Backend, error) { return NewMemoryBackend(), nil }, opts...)
	if err != nil {
		// Memory backends cannot fail.
		panic(err)
	}
	return n
}

// Node returns the node for a ledger name.
func (n *Network) Node(name string) (*Node, bool) {
	switch name {
	case ledger.Issuance:
		return n.Issuance, true
	case ledger.Registry:
		return n.Registry, true
	case ledger.Identity:
		return n.Identity, true
	default:
		return nil, false
	}
}

// Nodes returns the three nodes in ledger.Names order.
func (n *Network) Nodes() []*Node {
	return []*Node{n.Issuance, n.Registry, n.Identity}
}

func (n *Network) Close() error {
	var errs []error
	for _, node := range n.Nodes() {
		errs = append(errs, node.Close())
	}
	return errors.Join(errs...)
}
