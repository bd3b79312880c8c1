package llm

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestChatParsesToolUseResponse(t *testing.T) {
	var gotReq anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-api-key"); got != "sk-test" {
			t.Errorf("x-api-key = %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got != anthropicAPIVersion {
			t.Errorf("anthropic-version = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "test-model",
			"stop_reason": "tool_use",
			"content": [
				{"type": "text", "text": "Checking now."},
				{"type": "tool_use", "id": "toolu_01", "name": "ping_host", "input": {"host": "example.com"}}
			],
			"usage": {"input_tokens": 10, "output_tokens": 20}
		}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("sk-test", nil)
	c.baseURL = srv.URL

	resp, err := c.Chat(t.Context(), &ChatRequest{
		Model:     "test-model",
		System:    "be helpful",
		MaxTokens: 100,
		Tools:     []ToolSchema{{Name: "ping_host"}},
		Messages:  []Message{UserText("is example.com up?")},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if resp.StopReason != StopToolUse {
		t.Errorf("stop reason = %v, want tool_use", resp.StopReason)
	}
	if resp.InputTokens != 10 || resp.OutputTokens != 20 {
		t.Errorf("usage = %d/%d", resp.InputTokens, resp.OutputTokens)
	}

	uses := resp.ToolUses()
	if len(uses) != 1 {
		t.Fatalf("got %d tool uses, want 1", len(uses))
	}
	if uses[0].ID != "toolu_01" || uses[0].Name != "ping_host" {
		t.Errorf("tool use = %+v", uses[0])
	}
	if uses[0].Input["host"] != "example.com" {
		t.Errorf("input = %+v", uses[0].Input)
	}
	if resp.Text() != "Checking now." {
		t.Errorf("text = %q", resp.Text())
	}

	// Wire request shape: system prompt at the top level, plain string
	// content for text-only messages, tool schema defaulted.
	if gotReq.System != "be helpful" {
		t.Errorf("wire system = %q", gotReq.System)
	}
	if len(gotReq.Messages) != 1 {
		t.Fatalf("wire messages = %d", len(gotReq.Messages))
	}
	if content, ok := gotReq.Messages[0].Content.(string); !ok || content != "is example.com up?" {
		t.Errorf("wire content = %#v, want plain string", gotReq.Messages[0].Content)
	}
	if len(gotReq.Tools) != 1 || gotReq.Tools[0].InputSchema == nil {
		t.Errorf("wire tools = %+v, nil schema must be defaulted", gotReq.Tools)
	}
}

func TestChatAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"type": "rate_limit_error"}}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("sk-test", nil)
	c.baseURL = srv.URL

	_, err := c.Chat(t.Context(), &ChatRequest{Model: "m", Messages: []Message{UserText("hi")}})
	if err == nil {
		t.Fatal("Chat should fail on non-200")
	}
}

func TestConvertToAnthropicToolTurns(t *testing.T) {
	messages := []Message{
		UserText("check the vpn"),
		{
			Role: "assistant",
			Blocks: []Block{
				TextBlock("on it"),
				ToolUseBlock("toolu_01", "ping_host", map[string]any{"host": "vpn.corp"}),
			},
		},
		{
			Role: "user",
			Blocks: []Block{
				ToolResultBlock("toolu_01", `{"status":"reachable"}`, false),
			},
		},
	}

	wire := convertToAnthropic(messages)
	if len(wire) != 3 {
		t.Fatalf("got %d wire messages, want 3", len(wire))
	}

	if _, ok := wire[0].Content.(string); !ok {
		t.Errorf("text-only message should collapse to a string, got %#v", wire[0].Content)
	}

	asst, ok := wire[1].Content.([]anthropicContent)
	if !ok {
		t.Fatalf("assistant content = %#v, want block array", wire[1].Content)
	}
	if len(asst) != 2 || asst[0].Type != "text" || asst[1].Type != "tool_use" {
		t.Errorf("assistant blocks = %+v", asst)
	}
	if asst[1].ID != "toolu_01" || asst[1].Name != "ping_host" {
		t.Errorf("tool_use block = %+v", asst[1])
	}

	user, ok := wire[2].Content.([]anthropicContent)
	if !ok {
		t.Fatalf("user content = %#v, want block array", wire[2].Content)
	}
	if len(user) != 1 || user[0].Type != "tool_result" || user[0].ToolUseID != "toolu_01" {
		t.Errorf("tool_result block = %+v", user[0])
	}
}

func TestConvertToAnthropicNilToolInput(t *testing.T) {
	wire := convertToAnthropic([]Message{
		{Role: "assistant", Blocks: []Block{ToolUseBlock("id", "tool", nil)}},
	})

	blocks := wire[0].Content.([]anthropicContent)
	if blocks[0].Input == nil {
		t.Error("nil tool input must serialize as an empty object, not null")
	}
}

func TestParseStopReason(t *testing.T) {
	tests := []struct {
		in   string
		want StopReason
	}{
		{"end_turn", StopEndTurn},
		{"tool_use", StopToolUse},
		{"max_tokens", StopMaxTokens},
		{"stop_sequence", StopOther},
		{"", StopOther},
		{"pause_turn", StopOther},
	}

	for _, tt := range tests {
		if got := parseStopReason(tt.in); got != tt.want {
			t.Errorf("parseStopReason(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestResponseText(t *testing.T) {
	resp := &ChatResponse{
		Blocks: []Block{
			TextBlock("first"),
			ToolUseBlock("id", "tool", nil),
			TextBlock("second"),
		},
	}
	if got := resp.Text(); got != "first\nsecond" {
		t.Errorf("Text() = %q", got)
	}

	empty := &ChatResponse{Blocks: []Block{ToolUseBlock("id", "tool", nil)}}
	if got := empty.Text(); got != "" {
		t.Errorf("Text() on textless response = %q, want empty", got)
	}
}
