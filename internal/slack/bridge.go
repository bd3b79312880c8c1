package slack

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/opsdesk/opsdesk/internal/conversation"
	"github.com/opsdesk/opsdesk/internal/llm"
)

// AgentRunner abstracts the agent loop for testability. The real
// implementation is *agent.Agent.
type AgentRunner interface {
	Run(ctx context.Context, history []llm.Message, userID string) (string, error)
}

// handleTimeout bounds how long a single inbound message may be
// processed (agent loop + response send).
const handleTimeout = 5 * time.Minute

// reconnectDelay is the base backoff between socket reconnect attempts.
const reconnectDelay = 2 * time.Second

// maxReconnectDelay caps the reconnect backoff.
const maxReconnectDelay = time.Minute

// mentionPattern matches the leading <@UXXXX> tag Slack injects into
// app_mention text.
var mentionPattern = regexp.MustCompile(`<@[A-Z0-9]+>\s*`)

const greeting = "Hi! I'm the IT Support Agent. How can I help you?"

// Bridge receives Slack events over Socket Mode, routes them through
// the agent loop, and posts responses back to the originating thread.
type Bridge struct {
	client    *Client
	runner    AgentRunner
	convs     *conversation.Store
	logger    *slog.Logger
	botUserID string
}

// NewBridge creates a Slack event bridge.
func NewBridge(client *Client, runner AgentRunner, convs *conversation.Store, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		client: client,
		runner: runner,
		convs:  convs,
		logger: logger,
	}
}

// Run connects to Slack and processes events until ctx is cancelled.
// Dropped connections are re-established with backoff; Slack rotates
// Socket Mode connections routinely, so reconnects are normal
// operation, not failures.
func (b *Bridge) Run(ctx context.Context) error {
	userID, err := b.client.AuthTest(ctx)
	if err != nil {
		return err
	}
	b.botUserID = userID
	b.logger.Info("slack bridge started", "bot_user_id", userID)

	delay := reconnectDelay
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := b.runSession(ctx)
		if ctx.Err() != nil {
			b.logger.Info("slack bridge shutting down")
			return ctx.Err()
		}
		if err != nil {
			b.logger.Warn("socket session ended", "error", err, "retry_in", delay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// runSession opens one Socket Mode connection and pumps envelopes
// until it closes.
func (b *Bridge) runSession(ctx context.Context) error {
	wsURL, err := b.client.OpenConnection(ctx)
	if err != nil {
		return err
	}

	sock, err := DialSocket(ctx, wsURL, b.logger)
	if err != nil {
		return err
	}
	defer sock.Close()

	// Close the socket when ctx ends so the blocking Read unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			sock.Close()
		case <-done:
		}
	}()

	for {
		env, err := sock.Read()
		if err != nil {
			return err
		}

		switch env.Type {
		case "hello":
			b.logger.Debug("socket mode hello received")

		case "disconnect":
			b.logger.Info("socket mode disconnect requested", "reason", env.Reason)
			return nil

		case "events_api":
			// Ack before processing; the agent loop can outlive Slack's
			// redelivery window.
			if err := sock.Ack(env.EnvelopeID); err != nil {
				b.logger.Warn("envelope ack failed", "error", err)
			}
			event, err := env.ParseEvent()
			if err != nil {
				b.logger.Warn("event parse failed", "error", err)
				continue
			}
			b.handleEvent(ctx, event)

		default:
			if err := sock.Ack(env.EnvelopeID); err != nil {
				b.logger.Warn("envelope ack failed", "error", err)
			}
			b.logger.Debug("ignoring envelope", "type", env.Type)
		}
	}
}

// handleEvent filters and dispatches one event.
func (b *Bridge) handleEvent(ctx context.Context, event *Event) {
	// Never respond to bots, including ourselves, and skip message
	// edits, deletions, and other subtyped noise.
	if event.BotID != "" || event.User == b.botUserID {
		return
	}

	switch event.Type {
	case "app_mention":
		text := strings.TrimSpace(mentionPattern.ReplaceAllString(event.Text, ""))
		if text == "" {
			b.post(ctx, event, greeting, ResponseBlocks(greeting))
			return
		}
		b.handleMessage(ctx, event, text)

	case "message":
		if event.Subtype != "" {
			return
		}
		text := strings.TrimSpace(event.Text)
		if text == "" {
			return
		}
		b.handleMessage(ctx, event, text)
	}
}

// handleMessage runs one user message through the agent and posts the
// reply into the thread. The whole turn holds the thread's
// conversation lock so concurrent messages in one thread serialize.
func (b *Bridge) handleMessage(ctx context.Context, event *Event, text string) {
	ctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	threadTS := event.ThreadTS
	if threadTS == "" {
		threadTS = event.TS
	}
	key := conversation.Key{Channel: event.Channel, Thread: threadTS}

	userID := event.User
	if userID == "" {
		userID = "unknown"
	}

	b.logger.Info("message received",
		"channel", event.Channel,
		"thread_ts", threadTS,
		"user_id", userID,
		"text_len", len(text),
	)

	var response string
	err := b.convs.Do(key, func(history []llm.Message) ([]llm.Message, error) {
		history = append(history, llm.UserText(text))

		reply, err := b.runner.Run(ctx, history, userID)
		if err != nil {
			return nil, err
		}

		response = reply
		return append(history, llm.AssistantText(reply)), nil
	})
	if err != nil {
		b.logger.Error("agent run failed",
			"channel", event.Channel,
			"thread_ts", threadTS,
			"error", err,
		)
		blocks := ErrorBlocks("Something went wrong processing your request. Please try again.")
		b.post(ctx, event, "Error processing request", blocks)
		return
	}

	b.logger.Info("agent run completed",
		"channel", event.Channel,
		"thread_ts", threadTS,
		"response_len", len(response),
	)

	b.post(ctx, event, response, ResponseBlocks(response))
}

// post sends a threaded reply, logging failures rather than
// propagating them.
func (b *Bridge) post(ctx context.Context, event *Event, text string, blocks []Block) {
	threadTS := event.ThreadTS
	if threadTS == "" {
		threadTS = event.TS
	}
	if err := b.client.PostMessage(ctx, event.Channel, threadTS, text, blocks); err != nil {
		b.logger.Error("reply send failed",
			"channel", event.Channel,
			"thread_ts", threadTS,
			"error", err,
		)
	}
}
