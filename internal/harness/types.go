package harness

// Each scenario step contributes an invocation event, then a completion
// event whose output case is "ok" or an engine error code.
const (
	EventInvocation = "invocation"
	EventCompletion = "completion"
)

// TraceEvent is one half of a scenario step.
type TraceEvent struct {
	Type       string      `json:"type"` // "invocation" or "completion"
	Op         string      `json:"op,omitempty"`
	Args       interface{} `json:"args,omitempty"`
	OutputCase string      `json:"output_case,omitempty"`
	Result     interface{} `json:"result,omitempty"`
	Seq        int64       `json:"seq"`
}

// Result is the outcome of a scenario run. Pass holds until the first
// failed expect clause or assertion is recorded in Errors.
type Result struct {
	Pass   bool         `json:"pass"`
	Trace  []TraceEvent `json:"trace"`
	Errors []string     `json:"errors,omitempty"`
}

// NewResult returns a passing result with an empty trace.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddInvocationTrace records the start of step op.
func (r *Result) AddInvocationTrace(op string, args interface{}, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type: EventInvocation,
		Op:   op,
		Args: args,
		Seq:  seq,
	})
}

// AddCompletionTrace records how the step started at the previous event ended.
func (r *Result) AddCompletionTrace(outputCase string, result interface{}, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:       EventCompletion,
		OutputCase: outputCase,
		Result:     result,
		Seq:        seq,
	})
}
