package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/w3f/edunews/internal/ir"
)

// TraceSnapshot is the golden form of a scenario run. It is written as
// canonical JSON so reruns produce identical bytes.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	FlowToken    string       `json:"flow_token,omitempty"`
	Trace        []TraceEvent `json:"trace"`
}

// toCanonicalMap flattens the snapshot into the generic values
// ir.MarshalCanonical accepts. Empty fields are left out.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"type": event.Type,
			"seq":  event.Seq,
		}
		if event.Op != "" {
			eventMap["op"] = event.Op
		}
		if args := invocationArgs(event); len(args) > 0 {
			eventMap["args"] = args
		}
		if event.OutputCase != "" {
			eventMap["output_case"] = event.OutputCase
		}
		if event.Result != nil {
			eventMap["result"] = event.Result
		}
		traceList[i] = eventMap
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
	}
	if s.FlowToken != "" {
		result["flow_token"] = s.FlowToken
	}
	return result
}

// Marshal returns the canonical JSON of the snapshot.
func (s *TraceSnapshot) Marshal() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// Snapshot builds the trace snapshot of a scenario run.
func Snapshot(scenario *Scenario, result *Result) *TraceSnapshot {
	flowToken := scenario.FlowToken
	if flowToken == "" {
		flowToken = DefaultFlowToken
	}
	return &TraceSnapshot{
		ScenarioName: scenario.Name,
		FlowToken:    flowToken,
		Trace:        result.Trace,
	}
}

// newGoldie stores scenario traces under testdata/golden/<name>.golden.
func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

// RunWithGolden runs scenario and compares its trace with the golden file
// named after it. Regenerate with go test ./internal/harness -update.
//
// A trace mismatch fails t; the returned error covers a scenario that
// could not run at all.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, assertSnapshot(t, scenario.Name, Snapshot(scenario, result))
}

// AssertGolden compares an existing result with the golden file for
// scenarioName. The snapshot carries no flow token.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()
	return assertSnapshot(t, scenarioName, &TraceSnapshot{ScenarioName: scenarioName, Trace: result.Trace})
}

func assertSnapshot(t *testing.T, name string, snap *TraceSnapshot) error {
	t.Helper()
	data, err := snap.Marshal()
	if err != nil {
		return err
	}
	newGoldie(t).Assert(t, name, data)
	return nil
}
