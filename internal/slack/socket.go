package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// Envelope is a Socket Mode frame. Events arrive wrapped in one and
// must be acknowledged by envelope ID.
type Envelope struct {
	EnvelopeID string          `json:"envelope_id"`
	Type       string          `json:"type"` // hello, events_api, disconnect
	Payload    json.RawMessage `json:"payload,omitempty"`
	Reason     string          `json:"reason,omitempty"` // disconnect
}

// eventsPayload is the events_api envelope payload.
type eventsPayload struct {
	Event Event `json:"event"`
}

// Event is a Slack Events API event. Only the fields the bridge needs
// are decoded.
type Event struct {
	Type     string `json:"type"` // app_mention, message
	Subtype  string `json:"subtype,omitempty"`
	Channel  string `json:"channel"`
	User     string `json:"user"`
	BotID    string `json:"bot_id,omitempty"`
	Text     string `json:"text"`
	TS       string `json:"ts"`
	ThreadTS string `json:"thread_ts,omitempty"`
}

// ack is the acknowledgement frame for a received envelope.
type ack struct {
	EnvelopeID string `json:"envelope_id"`
}

const (
	writeTimeout = 10 * time.Second
	readTimeout  = 5 * time.Minute
)

// Socket is one Socket Mode websocket session. Slack closes these
// periodically (announced by a disconnect envelope); callers are
// expected to reconnect with a fresh URL.
type Socket struct {
	conn   *websocket.Conn
	logger *slog.Logger
}

// DialSocket connects to a Socket Mode websocket URL obtained from
// apps.connections.open.
func DialSocket(ctx context.Context, wsURL string, logger *slog.Logger) (*Socket, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := validateWSURL(wsURL); err != nil {
		return nil, err
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}

	logger.Debug("socket mode connected")
	return &Socket{conn: conn, logger: logger}, nil
}

// Close closes the websocket connection.
func (s *Socket) Close() error {
	return s.conn.Close()
}

// Read blocks until the next envelope arrives. Returns an error when
// the connection is closed or unreadable.
func (s *Socket) Read() (*Envelope, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}

	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("read envelope: %w", err)
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &env, nil
}

// Ack acknowledges an envelope. Slack redelivers unacknowledged
// events, so this must happen promptly for every events_api envelope.
func (s *Socket) Ack(envelopeID string) error {
	if envelopeID == "" {
		return nil
	}
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := s.conn.WriteJSON(ack{EnvelopeID: envelopeID}); err != nil {
		return fmt.Errorf("ack envelope: %w", err)
	}
	return nil
}

// ParseEvent extracts the event from an events_api envelope.
func (e *Envelope) ParseEvent() (*Event, error) {
	if e.Type != "events_api" {
		return nil, fmt.Errorf("envelope type %q carries no event", e.Type)
	}
	var payload eventsPayload
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode event payload: %w", err)
	}
	return &payload.Event, nil
}
