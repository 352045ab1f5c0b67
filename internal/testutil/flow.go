package testutil

import "sync/atomic"

// FixedFlowGenerator hands every registration the same flow token and
// counts how many registrations asked for one.
//
// A fixed token keeps receipts and log lines byte-identical across runs.
type FixedFlowGenerator struct {
	token  string
	issued atomic.Int64
}

// NewFixedFlowGenerator returns a generator for token, or for
// "test-flow-default" when token is empty.
func NewFixedFlowGenerator(token string) *FixedFlowGenerator {
	if token == "" {
		token = "test-flow-default"
	}
	return &FixedFlowGenerator{token: token}
}

// Generate implements engine.FlowTokenGenerator.
func (g *FixedFlowGenerator) Generate() string {
	g.issued.Add(1)
	return g.token
}

// Issued returns the number of tokens handed out so far.
func (g *FixedFlowGenerator) Issued() int {
	return int(g.issued.Load())
}
