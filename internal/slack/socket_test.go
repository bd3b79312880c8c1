package slack

import (
	"encoding/json"
	"testing"
)

func TestParseEvent(t *testing.T) {
	raw := `{
		"envelope_id": "env-1",
		"type": "events_api",
		"payload": {
			"event": {
				"type": "app_mention",
				"channel": "C1",
				"user": "U1",
				"text": "<@UBOT> hello",
				"ts": "100.1",
				"thread_ts": "99.9"
			}
		}
	}`

	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}

	event, err := env.ParseEvent()
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if event.Type != "app_mention" || event.Channel != "C1" || event.User != "U1" {
		t.Errorf("event = %+v", event)
	}
	if event.ThreadTS != "99.9" {
		t.Errorf("thread_ts = %q", event.ThreadTS)
	}
}

func TestParseEventWrongEnvelopeType(t *testing.T) {
	env := Envelope{Type: "hello"}
	if _, err := env.ParseEvent(); err == nil {
		t.Error("ParseEvent should fail for non-events_api envelopes")
	}
}

func TestValidateWSURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"wss://wss-primary.slack.com/link/?ticket=abc", false},
		{"ws://insecure.example.com/", true},
		{"https://slack.com/", true},
		{"://bad", true},
	}

	for _, tt := range tests {
		err := validateWSURL(tt.url)
		if (err != nil) != tt.wantErr {
			t.Errorf("validateWSURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
		}
	}
}
