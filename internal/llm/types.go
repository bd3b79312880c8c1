// Package llm provides the completion-service client used by the agent loop.
package llm

import (
	"log/slog"
	"strings"
)

// LevelTrace is below Debug, used for wire-level payload logging.
const LevelTrace = slog.Level(-8)

// BlockKind identifies the type of a content block.
type BlockKind int

const (
	// BlockText is a plain text block.
	BlockText BlockKind = iota

	// BlockToolUse is a tool invocation requested by the model.
	BlockToolUse

	// BlockToolResult carries the outcome of one tool invocation back
	// to the model, correlated by ToolUseID.
	BlockToolResult
)

func (k BlockKind) String() string {
	switch k {
	case BlockText:
		return "text"
	case BlockToolUse:
		return "tool_use"
	case BlockToolResult:
		return "tool_result"
	default:
		return "unknown"
	}
}

// Block is one content block in a message. Consumers switch on Kind to
// determine which fields are set; use the constructors below rather
// than building Blocks by hand.
type Block struct {
	Kind BlockKind

	// Text is set for BlockText.
	Text string

	// ID, Name and Input are set for BlockToolUse. Input is the
	// model-supplied argument document and must be treated as untrusted.
	ID    string
	Name  string
	Input map[string]any

	// ToolUseID, Content and IsError are set for BlockToolResult.
	ToolUseID string
	Content   string
	IsError   bool
}

// TextBlock builds a plain text block.
func TextBlock(text string) Block {
	return Block{Kind: BlockText, Text: text}
}

// ToolUseBlock builds a tool invocation block.
func ToolUseBlock(id, name string, input map[string]any) Block {
	return Block{Kind: BlockToolUse, ID: id, Name: name, Input: input}
}

// ToolResultBlock builds a tool result block answering the tool_use
// block with the given id.
func ToolResultBlock(toolUseID, content string, isError bool) Block {
	return Block{Kind: BlockToolResult, ToolUseID: toolUseID, Content: content, IsError: isError}
}

// Message is one turn in a conversation: a role plus an ordered
// sequence of content blocks. Messages are append-only; once handed to
// the agent or the conversation store they must not be mutated.
type Message struct {
	Role   string `json:"role"` // user, assistant
	Blocks []Block
}

// UserText builds a user message containing a single text block.
func UserText(text string) Message {
	return Message{Role: "user", Blocks: []Block{TextBlock(text)}}
}

// AssistantText builds an assistant message containing a single text block.
func AssistantText(text string) Message {
	return Message{Role: "assistant", Blocks: []Block{TextBlock(text)}}
}

// StopReason is the provider-neutral stop condition of a completion.
type StopReason int

const (
	// StopEndTurn means the model produced a final answer.
	StopEndTurn StopReason = iota

	// StopToolUse means the model is requesting tool execution.
	StopToolUse

	// StopMaxTokens means the response was truncated by the output limit.
	StopMaxTokens

	// StopOther covers stop conditions this client does not recognize.
	// The loop treats it as terminal and extracts whatever text exists.
	StopOther
)

func (r StopReason) String() string {
	switch r {
	case StopEndTurn:
		return "end_turn"
	case StopToolUse:
		return "tool_use"
	case StopMaxTokens:
		return "max_tokens"
	default:
		return "other"
	}
}

// ToolSchema describes one tool in the catalogue sent with every
// completion request.
type ToolSchema struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// ChatRequest is a completion request.
type ChatRequest struct {
	Model     string
	System    string
	MaxTokens int
	Tools     []ToolSchema
	Messages  []Message
}

// ChatResponse is the unified completion response. Wire format
// conversion happens at the provider boundary (anthropic.go).
type ChatResponse struct {
	Model      string
	StopReason StopReason
	Blocks     []Block

	// Token usage (provider-neutral)
	InputTokens  int
	OutputTokens int
}

// Text returns all text blocks joined by newlines. Returns the empty
// string when the response carries no text blocks.
func (r *ChatResponse) Text() string {
	var parts []string
	for _, b := range r.Blocks {
		if b.Kind == BlockText {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// ToolUses returns the tool_use blocks in response order.
func (r *ChatResponse) ToolUses() []Block {
	var uses []Block
	for _, b := range r.Blocks {
		if b.Kind == BlockToolUse {
			uses = append(uses, b)
		}
	}
	return uses
}
