package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// Execute runs the named tool and returns its result serialized as a
// JSON string. It never returns an error to the caller: unknown tools,
// handler errors, and handler panics all become error payloads the
// model can read and recover from.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any, ec ExecContext) (result string) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("tool panicked", "tool", name, "panic", p)
			result = errorResult(fmt.Sprintf("tool %s panicked: %v", name, p))
		}
	}()

	handler, ok := r.handlers[name]
	if !ok {
		r.logger.Warn("unknown tool requested", "tool", name)
		return errorResult("Unknown tool: " + name)
	}

	if args == nil {
		args = map[string]any{}
	}

	r.logger.Info("executing tool", "tool", name, "user_id", ec.UserID)

	out, err := handler(ctx, args, ec)
	if err != nil {
		r.logger.Warn("tool failed", "tool", name, "error", err)
		return errorResult(err.Error())
	}

	return marshalResult(out)
}

// errorResult builds the standard error payload.
func errorResult(msg string) string {
	data, err := json.Marshal(map[string]string{"error": msg})
	if err != nil {
		return `{"error":"internal error"}`
	}
	return string(data)
}

// marshalResult serializes a handler result. Values that defeat the
// JSON encoder are coerced to strings rather than dropped, so the model
// always sees something.
func marshalResult(v any) string {
	data, err := json.Marshal(v)
	if err == nil {
		return string(data)
	}
	data, err = json.Marshal(jsonSafe(v))
	if err != nil {
		return errorResult("result serialization failed")
	}
	return string(data)
}

// jsonSafe recursively replaces unserializable values with their
// fmt.Sprint rendering.
func jsonSafe(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = jsonSafe(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = jsonSafe(val)
		}
		return out
	default:
		if _, err := json.Marshal(v); err != nil {
			return fmt.Sprint(v)
		}
		return v
	}
}
