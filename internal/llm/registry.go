package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Registry holds the tools exposed to the completion service. Safe for
// concurrent use; listing preserves registration order so compiled
// schemas are deterministic.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds or replaces a tool by name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
}

// Get returns the named tool.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns tools in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Compiled returns the strict wire definitions for all registered tools.
func (r *Registry) Compiled() []FunctionTool {
	return CompileTools(r.List())
}

// ToolCallRecord is one entry of a turn's call log.
type ToolCallRecord struct {
	ToolName string         `json:"tool_name"`
	Args     map[string]any `json:"args"`
}

// CallLog collects tool call records across a turn. Records are appended
// before execution, so an entry exists even when the tool fails. Safe for
// concurrent use during parallel dispatch.
type CallLog struct {
	mu       sync.Mutex
	records  []ToolCallRecord
	observer func(ToolCallRecord)
}

// NewCallLog creates a log. The observer, if non-nil, is invoked for each
// record as it is appended (used for live streaming of tool activity).
func NewCallLog(observer func(ToolCallRecord)) *CallLog {
	return &CallLog{observer: observer}
}

// Record appends an entry and notifies the observer.
func (l *CallLog) Record(name string, args map[string]any) {
	rec := ToolCallRecord{ToolName: name, Args: args}
	l.mu.Lock()
	l.records = append(l.records, rec)
	l.mu.Unlock()
	if l.observer != nil {
		l.observer(rec)
	}
}

// Records returns a copy of the log.
func (l *CallLog) Records() []ToolCallRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ToolCallRecord(nil), l.records...)
}

// errorPayload serializes a tool failure into the structured payload
// returned to the service in place of a result.
func errorPayload(message string) string {
	b, _ := json.Marshal(map[string]any{
		"error":   true,
		"message": message,
	})
	return string(b)
}

// Dispatch executes one requested tool call and always returns a string
// payload for the service. Failures at any stage degrade to an error
// payload rather than failing the turn:
//
//   - unparseable arguments are replaced by an empty argument map
//   - argument keys not declared in the tool's schema are dropped
//   - the call is logged before the handler runs
//   - unknown tools and handler errors produce an error payload
//
// String results pass through verbatim; anything else is JSON-serialized.
func (r *Registry) Dispatch(ctx context.Context, call FunctionCall, log *CallLog) string {
	args := map[string]any{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil || args == nil {
			args = map[string]any{}
		}
	}

	tool, ok := r.Get(call.Name)
	if ok && tool.Parameters != nil && tool.Parameters.Properties != nil {
		for key := range args {
			if _, declared := tool.Parameters.Properties[key]; !declared {
				delete(args, key)
			}
		}
	}

	log.Record(call.Name, args)

	if !ok || tool.Handler == nil {
		return errorPayload(fmt.Sprintf("unknown tool: %s", call.Name))
	}

	result, err := tool.Handler(ctx, args)
	if err != nil {
		return errorPayload(err.Error())
	}

	switch v := result.(type) {
	case string:
		return v
	case nil:
		return "null"
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return errorPayload(fmt.Sprintf("serializing result of %s: %v", call.Name, err))
		}
		return string(b)
	}
}
