package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

func TestExecuteUnknownTool(t *testing.T) {
	r := NewRegistry(nil, Deps{})

	got := r.Execute(context.Background(), "frobnicate", nil, ExecContext{})
	want := `{"error":"Unknown tool: frobnicate"}`
	if got != want {
		t.Errorf("Execute = %s, want %s", got, want)
	}
}

func TestExecuteHandlerError(t *testing.T) {
	r := NewRegistry(nil, Deps{})
	r.Register(Definition{Name: "broken"}, func(ctx context.Context, args map[string]any, ec ExecContext) (any, error) {
		return nil, fmt.Errorf("database is on fire")
	})

	got := r.Execute(context.Background(), "broken", nil, ExecContext{})

	var payload map[string]string
	if err := json.Unmarshal([]byte(got), &payload); err != nil {
		t.Fatalf("result is not JSON: %s", got)
	}
	if payload["error"] != "database is on fire" {
		t.Errorf("error payload = %q", payload["error"])
	}
}

func TestExecuteHandlerPanic(t *testing.T) {
	r := NewRegistry(nil, Deps{})
	r.Register(Definition{Name: "explosive"}, func(ctx context.Context, args map[string]any, ec ExecContext) (any, error) {
		panic("kaboom")
	})

	got := r.Execute(context.Background(), "explosive", nil, ExecContext{})

	var payload map[string]string
	if err := json.Unmarshal([]byte(got), &payload); err != nil {
		t.Fatalf("result is not JSON: %s", got)
	}
	if !strings.Contains(payload["error"], "kaboom") {
		t.Errorf("panic should surface as an error payload, got %q", payload["error"])
	}
}

func TestExecuteResultSerialization(t *testing.T) {
	r := NewRegistry(nil, Deps{})
	r.Register(Definition{Name: "echo"}, func(ctx context.Context, args map[string]any, ec ExecContext) (any, error) {
		return map[string]any{"answer": 42, "tags": []any{"a", "b"}}, nil
	})

	got := r.Execute(context.Background(), "echo", nil, ExecContext{})

	var payload map[string]any
	if err := json.Unmarshal([]byte(got), &payload); err != nil {
		t.Fatalf("result is not JSON: %s", got)
	}
	if payload["answer"] != float64(42) {
		t.Errorf("answer = %v, want 42", payload["answer"])
	}
}

func TestExecuteContextNotModelOverridable(t *testing.T) {
	r := NewRegistry(nil, Deps{})

	var seen string
	r.Register(Definition{Name: "whoami"}, func(ctx context.Context, args map[string]any, ec ExecContext) (any, error) {
		seen = ec.UserID
		return map[string]string{"user": ec.UserID}, nil
	})

	// A hostile model passing user_id in the arguments must not shadow
	// the trusted execution context.
	args := map[string]any{"user_id": "UATTACKER", "_user_id": "UATTACKER"}
	r.Execute(context.Background(), "whoami", args, ExecContext{UserID: "UREAL"})

	if seen != "UREAL" {
		t.Errorf("handler saw user %q, want UREAL", seen)
	}
}

func TestExecuteNilArgs(t *testing.T) {
	r := NewRegistry(nil, Deps{})
	r.Register(Definition{Name: "noargs"}, func(ctx context.Context, args map[string]any, ec ExecContext) (any, error) {
		if args == nil {
			return nil, fmt.Errorf("args must not be nil")
		}
		return map[string]bool{"ok": true}, nil
	})

	got := r.Execute(context.Background(), "noargs", nil, ExecContext{})
	if !strings.Contains(got, `"ok":true`) {
		t.Errorf("nil args should arrive as an empty map, got %s", got)
	}
}

func TestListCatalogueStable(t *testing.T) {
	r := NewRegistry(nil, Deps{})

	first := r.List()
	second := r.List()

	if len(first) == 0 {
		t.Fatal("catalogue is empty")
	}
	if len(first) != len(second) {
		t.Fatalf("catalogue size changed between calls: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Name != second[i].Name {
			t.Errorf("catalogue order changed at %d: %q vs %q", i, first[i].Name, second[i].Name)
		}
	}

	want := []string{
		"ping_host", "dns_lookup", "check_disk_usage", "check_service_status",
		"create_ticket", "get_ticket", "update_ticket", "list_tickets",
		"search_knowledge_base",
	}
	if len(first) != len(want) {
		t.Fatalf("catalogue has %d tools, want %d", len(first), len(want))
	}
	for i, name := range want {
		if first[i].Name != name {
			t.Errorf("catalogue[%d] = %q, want %q", i, first[i].Name, name)
		}
	}
}

func TestBuiltinsWithoutDepsReturnErrors(t *testing.T) {
	r := NewRegistry(nil, Deps{})

	for _, name := range []string{"create_ticket", "get_ticket", "search_knowledge_base", "ping_host"} {
		got := r.Execute(context.Background(), name, map[string]any{}, ExecContext{})
		var payload map[string]any
		if err := json.Unmarshal([]byte(got), &payload); err != nil {
			t.Fatalf("%s: result is not JSON: %s", name, got)
		}
		if _, ok := payload["error"]; !ok {
			t.Errorf("%s without deps should return an error payload, got %s", name, got)
		}
	}
}
