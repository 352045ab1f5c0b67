package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/w3f/edunews/internal/ledger"
)

// Scenario defines a registration and verification scenario.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Setup contains steps run before the main flow. Setup steps must
	// succeed and are not part of the trace.
	Setup []ActionStep `yaml:"setup,omitempty"`

	// Flow contains the main steps with expected outcomes.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and ledger state.
	Assertions []Assertion `yaml:"assertions"`

	// FlowToken is the flow token every registration of the scenario
	// carries. Defaults to DefaultFlowToken.
	FlowToken string `yaml:"flow_token,omitempty"`
}

// DefaultFlowToken is used when a scenario sets no flow_token.
const DefaultFlowToken = "test-flow-default"

// ActionStep is a setup step.
type ActionStep struct {
	// Action is the operation name (e.g., "set_identity").
	Action string `yaml:"action"`

	Args map[string]interface{} `yaml:"args"`
}

// FlowStep is one step of the main flow.
type FlowStep struct {
	// Invoke is the operation name.
	Invoke string `yaml:"invoke"`

	Args map[string]interface{} `yaml:"args"`

	// Expect specifies the expected outcome. Nil means the step must
	// succeed and its output is not checked.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a flow step.
type ExpectClause struct {
	// Case is CaseOK or an engine error code such as "PARTIAL_WRITE".
	Case string `yaml:"case"`

	// Result is matched as a subset of the step output. Ignored unless
	// Case is CaseOK or CasePartialWrite.
	Result map[string]interface{} `yaml:"result,omitempty"`
}

// CaseOK is the outcome case of a successful step.
const CaseOK = "ok"

// Operations a step can invoke.
const (
	OpRegister    = "register"
	OpResume      = "resume"
	OpVerify      = "verify"
	OpShow        = "show"
	OpList        = "list"
	OpIdentity    = "identity"
	OpSetIdentity = "set_identity"
	OpAudit       = "audit"
	OpFail        = "fail"
	OpHeal        = "heal"
)

// Operations lists every operation in documentation order.
var Operations = []string{
	OpRegister, OpResume, OpVerify, OpShow, OpList,
	OpIdentity, OpSetIdentity, OpAudit, OpFail, OpHeal,
}

// Assertion validates the trace or the final ledger state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an operation appears in the trace with args
	// - "trace_order": operations appear in order
	// - "trace_count": an operation appears exactly N times
	// - "final_state": a ledger storage item holds expected values
	Type string `yaml:"type"`

	// Action is the operation name (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Args are the expected operation args (trace_contains). Subset match.
	Args map[string]interface{} `yaml:"args,omitempty"`

	// Ledger, Pallet, Item and Keys address a storage item (final_state).
	Ledger string   `yaml:"ledger,omitempty"`
	Pallet string   `yaml:"pallet,omitempty"`
	Item   string   `yaml:"item,omitempty"`
	Keys   []string `yaml:"keys,omitempty"`

	// Absent asserts the storage item does not exist (final_state).
	Absent bool `yaml:"absent,omitempty"`

	// Expect contains expected field values (final_state). Subset match.
	// A stored value that is not an object is compared under "value".
	Expect map[string]interface{} `yaml:"expect,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Actions is the expected operation order (trace_order).
	Actions []string `yaml:"actions,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if step.Action == "" {
			return fmt.Errorf("setup[%d]: action is required", i)
		}
		if !slices.Contains(Operations, step.Action) {
			return fmt.Errorf("setup[%d]: unknown operation %q", i, step.Action)
		}
		if step.Args == nil {
			return fmt.Errorf("setup[%d]: args is required (use empty map if no args)", i)
		}
	}

	for i, step := range s.Flow {
		if step.Invoke == "" {
			return fmt.Errorf("flow[%d]: invoke is required", i)
		}
		if !slices.Contains(Operations, step.Invoke) {
			return fmt.Errorf("flow[%d]: unknown operation %q", i, step.Invoke)
		}
		if step.Args == nil {
			return fmt.Errorf("flow[%d]: args is required (use empty map if no args)", i)
		}
		if step.Expect != nil && step.Expect.Case == "" {
			return fmt.Errorf("flow[%d].expect: case is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if !slices.Contains(ledger.Names, a.Ledger) {
			return fmt.Errorf("assertions[%d]: ledger must be one of %v for final_state", index, ledger.Names)
		}
		if a.Pallet == "" || a.Item == "" {
			return fmt.Errorf("assertions[%d]: pallet and item are required for final_state", index)
		}
		if !a.Absent && len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
