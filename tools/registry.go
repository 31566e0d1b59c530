package tools

import (
	"encoding/json"
	"fmt"
)

// FailureMarker prefixes every textual tool-failure result produced by
// Dispatch. The orchestration loop keys its early-termination check on it.
const FailureMarker = "Tool execution failed: "

// Registry owns the registered tools, mediates dispatch, and aggregates
// provenance across them. Registration order is preserved: the catalogue is
// resent verbatim on every round, so it must be deterministic.
type Registry struct {
	order []string
	tools map[string]Tool
}

// NewRegistry builds a registry with the given tools registered in order.
func NewRegistry(ts ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range ts {
		r.Register(t)
	}
	return r
}

// Register adds a tool under its declared name. Re-registering a name
// replaces the tool but keeps its catalogue position (last write wins).
func (r *Registry) Register(t Tool) {
	name := t.Definition().Name
	if _, ok := r.tools[name]; !ok {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
}

// Definitions returns the catalogue in registration order.
func (r *Registry) Definitions() []ToolDefinition {
	out := make([]ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].Definition())
	}
	return out
}

// Dispatch executes the named tool. Execution-level failures never surface
// as Go errors: they are converted, here and only here, into a
// FailureMarker-prefixed text result so every caller sees one contract. The
// returned error is non-nil only for an unknown tool name, which means the
// caller broke the contract of offering only catalogued names.
func (r *Registry) Dispatch(name string, input json.RawMessage) (string, error) {
	t, ok := r.tools[name]
	if !ok {
		return "", fmt.Errorf("unknown tool %q", name)
	}
	out, err := t.Execute(input)
	if err != nil {
		return FailureMarker + err.Error(), nil
	}
	return out, nil
}

// Sources concatenates, in registration order, the last-execution provenance
// of every tool that tracks any. Idempotent between dispatches.
func (r *Registry) Sources() []Source {
	var out []Source
	for _, name := range r.order {
		if st, ok := r.tools[name].(SourceTracker); ok {
			out = append(out, st.LastSources()...)
		}
	}
	return out
}

// ResetSources clears every tool's provenance record. Callers run it before
// dispatching a new top-level query so sources never leak across queries.
func (r *Registry) ResetSources() {
	for _, name := range r.order {
		if st, ok := r.tools[name].(SourceTracker); ok {
			st.ResetSources()
		}
	}
}
