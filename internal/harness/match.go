package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// mismatch describes the first place where an expected value and an
// actual value differ.
type mismatch struct {
	Path string
	Want any
	Got  any
}

func (m *mismatch) String() string {
	return fmt.Sprintf("at %s: expected %v, got %v", m.Path, m.Want, m.Got)
}

// toJSONValue converts v into the generic form encoding/json decodes into,
// keeping numbers as json.Number.
func toJSONValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return decodeJSON(data)
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// rawJSON encodes v for the trace. json.RawMessage keeps integers exact
// when the trace is written as canonical JSON.
func rawJSON(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

// normalizeExpected resolves "@Name" references in expected values and
// converts them to the form actual outputs are decoded into.
func normalizeExpected(expected map[string]any) (any, error) {
	resolved, err := resolveRefs(expected)
	if err != nil {
		return nil, err
	}
	return toJSONValue(resolved)
}

func resolveRefs(v any) (any, error) {
	switch val := v.(type) {
	case string:
		return resolveRef(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			r, err := resolveRefs(elem)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = r
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			r, err := resolveRefs(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = r
		}
		return out, nil
	default:
		return v, nil
	}
}

// project keeps the non-null top-level fields of actual that want names.
func project(actual, want any) any {
	wantMap, ok := want.(map[string]any)
	if !ok {
		return actual
	}
	actualMap, ok := actual.(map[string]any)
	if !ok {
		return actual
	}
	out := make(map[string]any, len(wantMap))
	for k := range wantMap {
		if v, ok := actualMap[k]; ok && v != nil {
			out[k] = v
		}
	}
	return out
}

// matchSubset reports the first difference between want and got.
// Objects match when every expected key matches; extra keys are ignored.
// Arrays must have the same length and match element-wise.
func matchSubset(want, got any, path string) *mismatch {
	if path == "" {
		path = "result"
	}
	switch w := want.(type) {
	case map[string]any:
		g, ok := got.(map[string]any)
		if !ok {
			return &mismatch{Path: path, Want: want, Got: got}
		}
		keys := make([]string, 0, len(w))
		for k := range w {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			gv, ok := g[k]
			if !ok {
				return &mismatch{Path: path + "." + k, Want: w[k], Got: "<missing>"}
			}
			if m := matchSubset(w[k], gv, path+"."+k); m != nil {
				return m
			}
		}
		return nil
	case []any:
		g, ok := got.([]any)
		if !ok || len(g) != len(w) {
			return &mismatch{Path: path, Want: want, Got: got}
		}
		for i := range w {
			if m := matchSubset(w[i], g[i], fmt.Sprintf("%s[%d]", path, i)); m != nil {
				return m
			}
		}
		return nil
	default:
		if !reflect.DeepEqual(want, got) {
			return &mismatch{Path: path, Want: want, Got: got}
		}
		return nil
	}
}

// matchArgs checks if actual args contain all expected args (subset match).
// Extra keys in actual are ignored.
func matchArgs(actual, expected map[string]any) bool {
	if len(expected) == 0 {
		return true
	}
	a, err := toJSONValue(actual)
	if err != nil {
		return false
	}
	e, err := toJSONValue(expected)
	if err != nil {
		return false
	}
	return matchSubset(e, a, "args") == nil
}

// formatArgs renders args with sorted keys for error messages.
func formatArgs(args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, args[k]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}
