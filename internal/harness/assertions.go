package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/w3f/edunews/internal/devnet"
	"github.com/w3f/edunews/internal/ledger"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			switch event.Type {
			case EventInvocation:
				fmt.Fprintf(&buf, "  [%d] %s %v\n", i+1, event.Op, event.Args)
			case EventCompletion:
				fmt.Fprintf(&buf, "  [%d]   -> %s\n", i+1, event.OutputCase)
			}
		}
	}

	return buf.String()
}

// invocationArgs returns the args of a trace invocation as a map.
func invocationArgs(event TraceEvent) map[string]any {
	args, _ := event.Args.(map[string]any)
	return args
}

// assertTraceContains checks if the trace contains an invocation matching
// the specified operation and args (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Type == EventInvocation && event.Op == assertion.Action {
			if matchArgs(invocationArgs(event), assertion.Args) {
				return nil
			}
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("operation %s with args %s", assertion.Action, formatArgs(assertion.Args)),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if operations appear in the specified order.
// Operations don't need to be consecutive, and each one is matched at or
// after the position of the previous match, so repeats are allowed.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	pos := 0
	prev := -1
	for _, want := range assertion.Actions {
		found := -1
		for i := pos; i < len(trace); i++ {
			if trace[i].Type == EventInvocation && trace[i].Op == want {
				found = i
				break
			}
		}
		if found < 0 {
			actual := fmt.Sprintf("missing operation: %s", want)
			if prev >= 0 {
				actual = fmt.Sprintf("no %s after position %d", want, prev+1)
			}
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("operations in order: %v", assertion.Actions),
				Actual:   actual,
				Trace:    trace,
			}
		}
		prev = found
		pos = found + 1
	}
	return nil
}

// assertTraceCount checks if the operation appears exactly the specified number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == EventInvocation && event.Op == assertion.Action {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState reads one storage item from a ledger's latest block and
// checks the expected fields (subset semantics). A value that is not an
// object is compared under the "value" key.
func assertFinalState(ctx context.Context, net *devnet.Network, assertion Assertion) error {
	node, ok := net.Node(assertion.Ledger)
	if !ok {
		return fmt.Errorf("final_state: unknown ledger %q", assertion.Ledger)
	}

	keys := make([]string, len(assertion.Keys))
	for i, k := range assertion.Keys {
		resolved, err := resolveRef(k)
		if err != nil {
			return fmt.Errorf("final_state: key %q: %w", k, err)
		}
		keys[i] = resolved
	}
	q := ledger.Query{Pallet: assertion.Pallet, Item: assertion.Item, Keys: keys}
	where := fmt.Sprintf("%s on %s", q.Key(), assertion.Ledger)

	raw, found, err := node.ReadLatest(ctx, q)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("read %s", where),
			Actual:   fmt.Sprintf("read error: %v", err),
		}
	}

	if assertion.Absent {
		if found {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("no item at %s", where),
				Actual:   fmt.Sprintf("item present: %s", raw),
			}
		}
		return nil
	}
	if !found {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("item at %s", where),
			Actual:   "item not found",
		}
	}

	actual, err := decodeJSON(raw)
	if err != nil {
		return fmt.Errorf("final_state: decode %s: %w", where, err)
	}
	if _, ok := actual.(map[string]any); !ok {
		actual = map[string]any{"value": actual}
	}
	want, err := normalizeExpected(assertion.Expect)
	if err != nil {
		return fmt.Errorf("final_state: expect: %w", err)
	}
	if m := matchSubset(want, actual, q.Key()); m != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s = %v", m.Path, m.Want),
			Actual:   fmt.Sprintf("%s = %v", m.Path, m.Got),
		}
	}
	return nil
}

// AssertionContext provides the ledgers final_state assertions read.
type AssertionContext struct {
	Network *devnet.Network
	Ctx     context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			if actx == nil || actx.Network == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires a network", i)
			} else {
				ctx := actx.Ctx
				if ctx == nil {
					ctx = context.Background()
				}
				err = assertFinalState(ctx, actx.Network, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
