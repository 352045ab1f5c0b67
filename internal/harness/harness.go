package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/w3f/edunews/internal/devnet"
	"github.com/w3f/edunews/internal/engine"
	"github.com/w3f/edunews/internal/identity"
	"github.com/w3f/edunews/internal/ir"
	"github.com/w3f/edunews/internal/issuance"
	"github.com/w3f/edunews/internal/keys"
	"github.com/w3f/edunews/internal/ledger"
	"github.com/w3f/edunews/internal/registry"
	"github.com/w3f/edunews/internal/runtime/people"
	"github.com/w3f/edunews/internal/testutil"
)

// Harness executes scenario steps against one network.
// It runs scenarios with a deterministic clock and flow tokens.
type Harness struct {
	net    *devnet.Network
	faults map[string]*testutil.FaultyClient
	orch   *engine.Orchestrator
	agg    *engine.Aggregator
	ident  *identity.Resolver
	seq    int64
	logger *slog.Logger
}

// ArgError reports a step whose args cannot be used. It is a scenario
// error, not an outcome of the step.
type ArgError struct {
	Op  string
	Err error
}

func (e *ArgError) Error() string { return fmt.Sprintf("%s: invalid args: %v", e.Op, e.Err) }

func (e *ArgError) Unwrap() error { return e.Err }

// partialView is the step output of a registration that stopped part way.
type partialView struct {
	Phase        ir.Phase `json:"phase"`
	CollectionID uint32   `json:"collection_id"`
	ItemID       uint32   `json:"item_id"`
	HasItem      bool     `json:"has_item"`
	FlowToken    string   `json:"flow_token"`
}

// listView is the step output of list.
type listView struct {
	Count    int          `json:"count"`
	Articles []ir.Article `json:"articles"`
}

func newHarness(flowToken string) *Harness {
	logger := testutil.DiscardLogger() // Suppress logs in scenarios
	net := devnet.NewMemoryNetwork(
		devnet.WithClock(testutil.NewDeterministicClock()),
		devnet.WithLogger(logger),
	)
	h := &Harness{
		net:    net,
		faults: make(map[string]*testutil.FaultyClient, len(ledger.Names)),
		logger: logger,
	}
	for _, node := range net.Nodes() {
		h.faults[node.Name()] = testutil.NewFaultyClient(node)
	}
	issuer := issuance.New(h.faults[ledger.Issuance], logger)
	registrar := registry.New(h.faults[ledger.Registry], logger)
	h.ident = identity.New(h.faults[ledger.Identity], logger)
	h.orch = engine.NewOrchestrator(issuer, registrar,
		engine.WithFlowGenerator(testutil.NewFixedFlowGenerator(flowToken)),
		engine.WithLogger(logger),
	)
	h.agg = engine.NewAggregator(issuer, registrar, h.ident, logger)
	return h
}

// Run executes a scenario and returns the result.
//
// Each scenario runs on a fresh memory network.
//
// Execution flow:
// 1. Create the network and engine
// 2. Execute setup steps (each must succeed)
// 3. Execute flow steps, checking expect clauses
// 4. Evaluate assertions against the trace and the ledgers
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	flowToken := scenario.FlowToken
	if flowToken == "" {
		flowToken = DefaultFlowToken
	}
	h := newHarness(flowToken)
	defer h.net.Close()

	result := NewResult()
	if err := h.executeSetup(ctx, scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	for _, f := range h.faults {
		f.Heal()
	}
	actx := &AssertionContext{Network: h.net, Ctx: ctx}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}
	return result, nil
}

// executeSetup runs all setup steps. A failing setup step fails the run.
func (h *Harness) executeSetup(ctx context.Context, setup []ActionStep) error {
	for i, step := range setup {
		if _, err := h.execute(ctx, step.Action, step.Args); err != nil {
			return fmt.Errorf("setup step %d (%s): %w", i, step.Action, err)
		}
		h.logger.Info("setup step completed", "step", i, "action", step.Action)
	}
	return nil
}

// executeFlow runs all flow steps and validates expect clauses.
//
// Each step:
// 1. Records the invocation in the trace
// 2. Executes the operation against the engine
// 3. Derives the outcome case from the error code
// 4. Compares case and result with the expect clause
// 5. Records the completion with the observed values of the expected fields
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		h.seq++
		result.AddInvocationTrace(step.Invoke, step.Args, h.seq)

		output, err := h.execute(ctx, step.Invoke, step.Args)
		var argErr *ArgError
		if errors.As(err, &argErr) {
			return fmt.Errorf("flow step %d: %w", i, err)
		}
		outcome := outcomeCase(err)

		actual, convErr := toJSONValue(output)
		if convErr != nil {
			return fmt.Errorf("flow step %d: encode output: %w", i, convErr)
		}

		var expected map[string]interface{}
		expectedCase := CaseOK
		if step.Expect != nil {
			expectedCase = step.Expect.Case
			expected = step.Expect.Result
		}

		var traceResult interface{}
		if len(expected) > 0 {
			want, err := normalizeExpected(expected)
			if err != nil {
				return fmt.Errorf("flow step %d: expect: %w", i, err)
			}
			if actual != nil {
				if traceResult, err = rawJSON(project(actual, want)); err != nil {
					return fmt.Errorf("flow step %d: encode result: %w", i, err)
				}
			}
			if outcome == expectedCase {
				if m := matchSubset(want, actual, ""); m != nil {
					result.AddError(fmt.Sprintf("flow[%d] %s: result mismatch %s", i, step.Invoke, m))
				}
			}
		}

		if outcome != expectedCase {
			msg := fmt.Sprintf("flow[%d] %s: expected case %s, got %s", i, step.Invoke, expectedCase, outcome)
			if err != nil {
				msg += ": " + err.Error()
			}
			result.AddError(msg)
		}

		h.seq++
		result.AddCompletionTrace(outcome, traceResult, h.seq)

		h.logger.Info("flow step completed",
			"step", i,
			"action", step.Invoke,
			"output_case", outcome,
		)
	}
	return nil
}

// outcomeCase maps a step error to its case name.
func outcomeCase(err error) string {
	if err == nil {
		return CaseOK
	}
	if code := engine.Code(err); code != "" {
		return string(code)
	}
	return "ERROR"
}

// execute runs one operation. Invalid args are reported as *ArgError.
func (h *Harness) execute(ctx context.Context, op string, raw map[string]interface{}) (interface{}, error) {
	args := stepArgs{op: op, m: raw}
	switch op {
	case OpRegister:
		req, err := args.request()
		if err != nil {
			return nil, err
		}
		receipt, err := h.orch.Register(ctx, req)
		return registrationOutput(receipt, err)

	case OpResume:
		req, err := args.request()
		if err != nil {
			return nil, err
		}
		unit, err := args.unit()
		if err != nil {
			return nil, err
		}
		phase, err := args.str("phase")
		if err != nil {
			return nil, err
		}
		receipt, err := h.orch.Resume(ctx, req, engine.Checkpoint{
			Phase:       ir.Phase(phase),
			ContainerID: unit.ContainerID,
			UnitID:      unit.UnitID,
		})
		return registrationOutput(receipt, err)

	case OpVerify:
		unit, err := args.unit()
		if err != nil {
			return nil, err
		}
		return h.agg.Verify(ctx, unit)

	case OpShow:
		unit, err := args.unit()
		if err != nil {
			return nil, err
		}
		return h.agg.Show(ctx, unit)

	case OpAudit:
		unit, err := args.unit()
		if err != nil {
			return nil, err
		}
		return h.agg.Audit(ctx, unit)

	case OpList:
		addr, err := args.address("publisher")
		if err != nil {
			return nil, err
		}
		articles, err := h.agg.ListForPublisher(ctx, addr)
		if err != nil {
			return nil, err
		}
		return listView{Count: len(articles), Articles: articles}, nil

	case OpIdentity:
		addr, err := args.address("address")
		if err != nil {
			return nil, err
		}
		return h.agg.Identity(ctx, addr)

	case OpSetIdentity:
		signer, err := args.signer()
		if err != nil {
			return nil, err
		}
		var info people.IdentityInfo
		for key, dst := range map[string]*string{
			"display": &info.Display, "legal": &info.Legal, "web": &info.Web, "email": &info.Email,
		} {
			if *dst, err = args.str(key); err != nil {
				return nil, err
			}
		}
		receipt, err := h.ident.Set(ctx, signer, info)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"block_number": receipt.BlockNumber}, nil

	case OpFail:
		return nil, h.fail(args)

	case OpHeal:
		name, err := args.str("ledger")
		if err != nil {
			return nil, err
		}
		for ledgerName, f := range h.faults {
			if name == "" || name == ledgerName {
				f.Heal()
			}
		}
		return nil, nil

	default:
		return nil, &ArgError{Op: op, Err: fmt.Errorf("unknown operation")}
	}
}

func registrationOutput(receipt ir.RegistrationReceipt, err error) (interface{}, error) {
	var pwe *engine.PartialWriteError
	if errors.As(err, &pwe) {
		return partialView{
			Phase:        pwe.Phase,
			CollectionID: pwe.ContainerID,
			ItemID:       pwe.UnitID,
			HasItem:      pwe.HasUnit,
			FlowToken:    pwe.FlowToken,
		}, err
	}
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// fail injects a fault into one ledger.
func (h *Harness) fail(args stepArgs) error {
	name, err := args.str("ledger")
	if err != nil {
		return err
	}
	f, ok := h.faults[name]
	if !ok {
		return args.errorf("unknown ledger %q", name)
	}
	call, err := args.str("call")
	if err != nil {
		return err
	}
	reads, err := args.boolean("reads")
	if err != nil {
		return err
	}
	skip, err := args.integer("skip")
	if err != nil {
		return err
	}
	if call == "" && !reads {
		return args.errorf("fail needs a call or reads: true")
	}
	if call != "" {
		f.FailCall(call, skip, nil)
	}
	if reads {
		f.FailReads(nil)
	}
	return nil
}

// stepArgs reads typed values out of YAML-decoded args.
type stepArgs struct {
	op string
	m  map[string]interface{}
}

func (a stepArgs) errorf(format string, v ...any) error {
	return &ArgError{Op: a.op, Err: fmt.Errorf(format, v...)}
}

// str returns the string at key, or "" when it is absent.
func (a stepArgs) str(key string) (string, error) {
	v, ok := a.m[key]
	if !ok {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", a.errorf("%s must be a string, got %T", key, v)
	}
	return s, nil
}

func (a stepArgs) boolean(key string) (bool, error) {
	v, ok := a.m[key]
	if !ok {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, a.errorf("%s must be a bool, got %T", key, v)
	}
	return b, nil
}

// integer returns the non-negative integer at key, or 0 when absent.
func (a stepArgs) integer(key string) (int, error) {
	v, ok := a.m[key]
	if !ok {
		return 0, nil
	}
	var n int64
	switch val := v.(type) {
	case int:
		n = int64(val)
	case int64:
		n = val
	case uint64:
		n = int64(val)
	case float64:
		if val != float64(int64(val)) {
			return 0, a.errorf("%s must be an integer, got %v", key, val)
		}
		n = int64(val)
	default:
		return 0, a.errorf("%s must be an integer, got %T", key, v)
	}
	if n < 0 || n > int64(^uint32(0)) {
		return 0, a.errorf("%s out of range: %d", key, n)
	}
	return int(n), nil
}

func (a stepArgs) unit() (ir.IssuanceUnit, error) {
	for _, key := range []string{"collection_id", "item_id"} {
		if _, ok := a.m[key]; !ok {
			return ir.IssuanceUnit{}, a.errorf("%s is required", key)
		}
	}
	c, err := a.integer("collection_id")
	if err != nil {
		return ir.IssuanceUnit{}, err
	}
	u, err := a.integer("item_id")
	if err != nil {
		return ir.IssuanceUnit{}, err
	}
	return ir.IssuanceUnit{ContainerID: uint32(c), UnitID: uint32(u)}, nil
}

// signer returns the development account named by the "signer" arg.
func (a stepArgs) signer() (keys.Signer, error) {
	name, err := a.str("signer")
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, a.errorf("signer is required")
	}
	s, err := devSigner(name)
	if err != nil {
		return nil, a.errorf("signer: %v", err)
	}
	return s, nil
}

// address returns the address at key; "@Name" resolves to a development
// account. Anything else is passed through unvalidated.
func (a stepArgs) address(key string) (ir.Address, error) {
	s, err := a.str(key)
	if err != nil {
		return "", err
	}
	addr, err := resolveRef(s)
	if err != nil {
		return "", a.errorf("%s: %v", key, err)
	}
	return ir.Address(addr), nil
}

func (a stepArgs) request() (engine.Request, error) {
	signer, err := a.signer()
	if err != nil {
		return engine.Request{}, err
	}
	var req engine.Request
	req.Signer = signer
	if req.Title, err = a.str("title"); err != nil {
		return engine.Request{}, err
	}
	if req.URL, err = a.str("url"); err != nil {
		return engine.Request{}, err
	}
	content, err := a.str("content")
	if err != nil {
		return engine.Request{}, err
	}
	if content != "" {
		req.Content = []byte(content)
	}
	return req, nil
}

// devSigner accepts "Alice" or a secret URI such as "//Alice//stash".
func devSigner(name string) (keys.Signer, error) {
	if strings.HasPrefix(name, "/") {
		return keys.FromURI(name, ir.SchemeEd25519, keys.DefaultPrefix)
	}
	return keys.Dev(name)
}

// resolveRef turns "@Name" into the address of a development account.
func resolveRef(s string) (string, error) {
	name, ok := strings.CutPrefix(s, "@")
	if !ok {
		return s, nil
	}
	signer, err := devSigner(name)
	if err != nil {
		return "", err
	}
	return string(signer.Address()), nil
}
