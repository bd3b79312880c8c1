// Package agent implements the tool-use reasoning loop that turns a
// conversation history into a final text response.
package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/opsdesk/opsdesk/internal/llm"
	"github.com/opsdesk/opsdesk/internal/tools"
)

const systemPrompt = `You are an IT Support Agent. You help employees with technical issues, manage support tickets, and search the company knowledge base for solutions.

Your capabilities:
- **Diagnostics**: Ping hosts, DNS lookups, check disk usage, check service status
- **Ticket Management**: Create, view, update, and list IT support tickets
- **Knowledge Base**: Search internal IT documentation for solutions and procedures

Guidelines:
- Be helpful, concise, and professional.
- When a user reports an issue, try to diagnose it first using diagnostic tools before escalating.
- Search the knowledge base for common issues before creating tickets.
- When creating tickets, extract a clear title and description from the conversation.
- Always confirm actions with the user (e.g., "I've created ticket #5 for your issue").
- If you can't resolve an issue, create a ticket and let the user know.
- Format responses for Slack using markdown (*bold*, ` + "`code`" + `, bullet points).`

const (
	// budgetMessage is returned when the loop budget runs out before the
	// model produces a final answer.
	budgetMessage = "I've reached my processing limit for this request. Please try breaking your question into smaller parts."

	// noTextMessage stands in when a completed response has no text blocks.
	noTextMessage = "I processed your request but have no text to display."
)

// DefaultMaxLoops bounds how many completions one request may consume.
const DefaultMaxLoops = 10

// Agent drives the model through tool use until it produces a final
// text answer or exhausts its loop budget.
type Agent struct {
	logger    *slog.Logger
	client    llm.Client
	registry  *tools.Registry
	model     string
	maxTokens int
	maxLoops  int
}

// New creates an agent. Zero maxTokens and maxLoops select 4096 and
// DefaultMaxLoops.
func New(logger *slog.Logger, client llm.Client, registry *tools.Registry, model string, maxTokens, maxLoops int) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	if maxLoops <= 0 {
		maxLoops = DefaultMaxLoops
	}
	return &Agent{
		logger:    logger,
		client:    client,
		registry:  registry,
		model:     model,
		maxTokens: maxTokens,
		maxLoops:  maxLoops,
	}
}

// Run executes the reasoning loop over the given history and returns
// the final text response. The history is not mutated; tool traffic
// lives only in the loop's working copy. userID identifies the human
// behind the request and flows to tools through the execution context,
// never through the model.
func (a *Agent) Run(ctx context.Context, history []llm.Message, userID string) (string, error) {
	requestID := correlationID()
	logger := a.logger.With("request_id", requestID)

	messages := append([]llm.Message(nil), history...)
	ec := tools.ExecContext{UserID: userID}

	logger.Info("agent run started",
		"user_id", userID,
		"history", len(messages),
		"max_loops", a.maxLoops,
	)

	for loop := 0; loop < a.maxLoops; loop++ {
		logger.Debug("agent loop", "loop", loop, "messages", len(messages))

		resp, err := a.client.Chat(ctx, &llm.ChatRequest{
			Model:     a.model,
			System:    systemPrompt,
			MaxTokens: a.maxTokens,
			Tools:     a.registry.List(),
			Messages:  messages,
		})
		if err != nil {
			return "", fmt.Errorf("completion failed: %w", err)
		}

		switch resp.StopReason {
		case llm.StopToolUse:
			messages = append(messages, llm.Message{
				Role:   "assistant",
				Blocks: resp.Blocks,
			})

			var results []llm.Block
			for _, use := range resp.ToolUses() {
				logger.Info("tool call",
					"loop", loop,
					"tool", use.Name,
					"tool_use_id", use.ID,
				)
				out := a.registry.Execute(ctx, use.Name, use.Input, ec)
				results = append(results, llm.ToolResultBlock(use.ID, out, false))
			}
			messages = append(messages, llm.Message{
				Role:   "user",
				Blocks: results,
			})

		default:
			// end_turn and everything unexpected terminate the loop with
			// whatever text the model produced.
			text := resp.Text()
			if text == "" {
				text = noTextMessage
			}
			logger.Info("agent run finished",
				"loops", loop+1,
				"stop_reason", resp.StopReason.String(),
				"response_len", len(text),
			)
			return text, nil
		}
	}

	logger.Warn("agent loop budget exhausted", "max_loops", a.maxLoops)
	return budgetMessage, nil
}

// correlationID returns a sortable unique ID for one agent run.
func correlationID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
