package slack

import (
	"strings"
	"testing"

	"github.com/opsdesk/opsdesk/internal/tickets"
)

func TestResponseBlocksShort(t *testing.T) {
	blocks := ResponseBlocks("all good")

	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(blocks))
	}
	if blocks[0].Type != "section" {
		t.Errorf("block type = %q", blocks[0].Type)
	}
	if blocks[0].Text.Type != "mrkdwn" || blocks[0].Text.Text != "all good" {
		t.Errorf("text = %+v", blocks[0].Text)
	}
}

func TestResponseBlocksSplitsLongText(t *testing.T) {
	line := strings.Repeat("word ", 200) // ~1000 chars
	text := line + "\n" + line + "\n" + line + "\n" + line

	blocks := ResponseBlocks(text)

	if len(blocks) < 2 {
		t.Fatalf("got %d blocks for %d chars, want at least 2", len(blocks), len(text))
	}
	for i, b := range blocks {
		if len(b.Text.Text) > maxBlockText {
			t.Errorf("block %d is %d chars, exceeds limit", i, len(b.Text.Text))
		}
	}
}

func TestChunkTextWordBoundaries(t *testing.T) {
	text := "alpha beta gamma delta"

	chunks := chunkText(text, 12)

	for i, c := range chunks {
		if len(c) > 12 {
			t.Errorf("chunk %d is %d chars", i, len(c))
		}
		if strings.HasPrefix(c, " ") || strings.HasSuffix(c, " ") {
			t.Errorf("chunk %d has boundary whitespace: %q", i, c)
		}
	}
	if got := strings.Join(chunks, " "); got != text {
		t.Errorf("rejoined = %q, want %q", got, text)
	}
}

func TestChunkTextPrefersNewlines(t *testing.T) {
	text := "first line\nsecond line"

	chunks := chunkText(text, 15)

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2: %q", len(chunks), chunks)
	}
	if chunks[0] != "first line" {
		t.Errorf("chunk 0 = %q, want split at newline", chunks[0])
	}
	if chunks[1] != "second line" {
		t.Errorf("chunk 1 = %q", chunks[1])
	}
}

func TestChunkTextHardCut(t *testing.T) {
	text := strings.Repeat("x", 25)

	chunks := chunkText(text, 10)

	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if got := strings.Join(chunks, ""); got != text {
		t.Errorf("unbreakable text mangled: %q", got)
	}
}

func TestErrorBlocks(t *testing.T) {
	blocks := ErrorBlocks("it broke")

	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(blocks))
	}
	want := ":warning: *Error:* it broke"
	if blocks[0].Text.Text != want {
		t.Errorf("text = %q, want %q", blocks[0].Text.Text, want)
	}
}

func TestTicketBlocks(t *testing.T) {
	tk := &tickets.Ticket{
		ID:       7,
		Title:    "Laptop won't boot",
		Status:   tickets.StatusInProgress,
		Priority: tickets.PriorityHigh,
		Category: "hardware",
	}

	blocks := TicketBlocks(tk)

	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(blocks))
	}
	if blocks[0].Text.Text != "*Laptop won't boot*" {
		t.Errorf("title block = %q", blocks[0].Text.Text)
	}

	fields := blocks[1].Text.Text
	for _, want := range []string{"*ID:* 7", ":hourglass: in_progress", "*Priority:* high", "*Category:* hardware"} {
		if !strings.Contains(fields, want) {
			t.Errorf("fields missing %q: %s", want, fields)
		}
	}
}

func TestTicketBlocksUnknownStatusAndEmptyFields(t *testing.T) {
	tk := &tickets.Ticket{ID: 1, Title: "t", Status: "archived"}

	blocks := TicketBlocks(tk)

	fields := blocks[1].Text.Text
	if !strings.Contains(fields, ":ticket: archived") {
		t.Errorf("unknown status should use the fallback emoji: %s", fields)
	}
	if !strings.Contains(fields, "*Priority:* N/A") || !strings.Contains(fields, "*Category:* N/A") {
		t.Errorf("empty fields should render N/A: %s", fields)
	}
}
