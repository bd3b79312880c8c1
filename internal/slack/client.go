// Package slack connects the agent to Slack via the Web API and
// Socket Mode.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/opsdesk/opsdesk/internal/httpkit"
)

const apiBaseURL = "https://slack.com/api"

// Client is a minimal Slack Web API client covering the methods the
// agent needs: socket connection bootstrap, message posting, and
// identity lookup.
type Client struct {
	botToken   string
	appToken   string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Slack Web API client. The bot token authorizes
// chat and auth methods; the app token authorizes Socket Mode.
func NewClient(botToken, appToken string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		botToken: botToken,
		appToken: appToken,
		baseURL:  apiBaseURL,
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(30 * time.Second),
		),
		logger: logger.With("component", "slack"),
	}
}

// apiResponse is the envelope every Slack Web API method returns.
type apiResponse struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	URL    string `json:"url,omitempty"`     // apps.connections.open
	UserID string `json:"user_id,omitempty"` // auth.test
	BotID  string `json:"bot_id,omitempty"`  // auth.test
}

// call posts a Slack Web API method and decodes its envelope.
func (c *Client) call(ctx context.Context, method, token string, body any) (*apiResponse, error) {
	var reqBody []byte
	contentType := "application/x-www-form-urlencoded"
	if body != nil {
		var err error
		reqBody, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s request: %w", method, err)
		}
		contentType = "application/json; charset=utf-8"
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/"+method, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody := httpkit.ReadErrorBody(resp.Body, 512)
		return nil, fmt.Errorf("%s returned status %d: %s", method, resp.StatusCode, errBody)
	}

	var api apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", method, err)
	}
	if !api.OK {
		return nil, fmt.Errorf("%s failed: %s", method, api.Error)
	}
	return &api, nil
}

// OpenConnection requests a Socket Mode websocket URL.
func (c *Client) OpenConnection(ctx context.Context) (string, error) {
	resp, err := c.call(ctx, "apps.connections.open", c.appToken, nil)
	if err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", fmt.Errorf("apps.connections.open returned no URL")
	}
	return resp.URL, nil
}

// AuthTest verifies the bot token and returns the bot's user ID.
func (c *Client) AuthTest(ctx context.Context) (userID string, err error) {
	resp, err := c.call(ctx, "auth.test", c.botToken, nil)
	if err != nil {
		return "", err
	}
	return resp.UserID, nil
}

// postMessageRequest is the chat.postMessage payload.
type postMessageRequest struct {
	Channel  string  `json:"channel"`
	Text     string  `json:"text"`
	Blocks   []Block `json:"blocks,omitempty"`
	ThreadTS string  `json:"thread_ts,omitempty"`
}

// PostMessage sends a message to a channel, optionally threaded.
// Text serves as the notification fallback when blocks are present.
func (c *Client) PostMessage(ctx context.Context, channel, threadTS, text string, blocks []Block) error {
	_, err := c.call(ctx, "chat.postMessage", c.botToken, postMessageRequest{
		Channel:  channel,
		Text:     text,
		Blocks:   blocks,
		ThreadTS: threadTS,
	})
	if err != nil {
		return err
	}
	c.logger.Debug("message posted", "channel", channel, "thread_ts", threadTS, "blocks", len(blocks))
	return nil
}

// validateWSURL rejects connection URLs that are not secure websockets.
func validateWSURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse websocket URL: %w", err)
	}
	if !strings.EqualFold(u.Scheme, "wss") {
		return fmt.Errorf("unexpected websocket scheme %q", u.Scheme)
	}
	return nil
}
