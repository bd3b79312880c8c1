package slack

import (
	"fmt"
	"strings"

	"github.com/opsdesk/opsdesk/internal/tickets"
)

// maxBlockText is Slack's per-section-block character limit.
const maxBlockText = 3000

// Block is a Block Kit layout block.
type Block struct {
	Type string      `json:"type"`
	Text *TextObject `json:"text,omitempty"`
}

// TextObject is a Block Kit text object.
type TextObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func section(text string) Block {
	return Block{
		Type: "section",
		Text: &TextObject{Type: "mrkdwn", Text: text},
	}
}

// ResponseBlocks formats a plain text response into section blocks,
// splitting at the per-block character limit on word boundaries.
func ResponseBlocks(text string) []Block {
	chunks := chunkText(text, maxBlockText)
	blocks := make([]Block, 0, len(chunks))
	for _, chunk := range chunks {
		blocks = append(blocks, section(chunk))
	}
	return blocks
}

// ErrorBlocks formats an error message into Slack blocks.
func ErrorBlocks(errMsg string) []Block {
	return []Block{section(":warning: *Error:* " + errMsg)}
}

var statusEmoji = map[string]string{
	tickets.StatusOpen:       ":large_blue_circle:",
	tickets.StatusInProgress: ":hourglass:",
	tickets.StatusWaiting:    ":pause_button:",
	tickets.StatusResolved:   ":white_check_mark:",
	tickets.StatusClosed:     ":lock:",
}

// TicketBlocks formats a ticket summary into Slack blocks.
func TicketBlocks(t *tickets.Ticket) []Block {
	emoji, ok := statusEmoji[t.Status]
	if !ok {
		emoji = ":ticket:"
	}

	orNA := func(s string) string {
		if s == "" {
			return "N/A"
		}
		return s
	}

	fields := []string{
		fmt.Sprintf("*ID:* %d", t.ID),
		fmt.Sprintf("*Status:* %s %s", emoji, t.Status),
		fmt.Sprintf("*Priority:* %s", orNA(t.Priority)),
		fmt.Sprintf("*Category:* %s", orNA(t.Category)),
	}

	return []Block{
		section("*" + t.Title + "*"),
		section(strings.Join(fields, "\n")),
	}
}

// chunkText splits text into pieces of at most maxLen characters,
// preferring newline boundaries, then spaces, then a hard cut.
func chunkText(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var chunks []string
	for text != "" {
		if len(text) <= maxLen {
			chunks = append(chunks, text)
			break
		}
		splitAt := strings.LastIndex(text[:maxLen], "\n")
		if splitAt == -1 {
			splitAt = strings.LastIndex(text[:maxLen], " ")
		}
		if splitAt == -1 {
			splitAt = maxLen
		}
		chunks = append(chunks, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " \n")
	}
	return chunks
}
