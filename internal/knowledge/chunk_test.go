package knowledge

import (
	"fmt"
	"strings"
	"testing"
)

const sampleDoc = `Intro paragraph before any heading.

# VPN Setup

Install the client and sign in with SSO.

## Troubleshooting

If the tunnel drops, check the MTU.

### Deep detail

This stays inside the troubleshooting chunk.

# Printer Issues

Power cycle the printer first.
`

func TestChunkMarkdown(t *testing.T) {
	chunks := ChunkMarkdown("guide.md", []byte(sampleDoc))

	if len(chunks) != 4 {
		t.Fatalf("got %d chunks, want 4: %+v", len(chunks), chunkTitles(chunks))
	}

	// Preamble before the first heading.
	if chunks[0].Title != "" {
		t.Errorf("chunk 0 title = %q, want empty", chunks[0].Title)
	}
	if !strings.Contains(chunks[0].Content, "Intro paragraph") {
		t.Errorf("chunk 0 missing preamble: %q", chunks[0].Content)
	}

	if chunks[1].Title != "VPN Setup" {
		t.Errorf("chunk 1 title = %q, want VPN Setup", chunks[1].Title)
	}
	if !strings.Contains(chunks[1].Content, "sign in with SSO") {
		t.Errorf("chunk 1 content = %q", chunks[1].Content)
	}

	// Level 3 headings do not split; they stay inside their parent.
	if chunks[2].Title != "Troubleshooting" {
		t.Errorf("chunk 2 title = %q, want Troubleshooting", chunks[2].Title)
	}
	if !strings.Contains(chunks[2].Content, "Deep detail") {
		t.Errorf("chunk 2 should contain the level-3 section: %q", chunks[2].Content)
	}

	if chunks[3].Title != "Printer Issues" {
		t.Errorf("chunk 3 title = %q, want Printer Issues", chunks[3].Title)
	}
}

func TestChunkMarkdownIDs(t *testing.T) {
	chunks := ChunkMarkdown("guide.md", []byte(sampleDoc))

	for i, c := range chunks {
		wantID := fmt.Sprintf("guide.md::chunk_%d", i)
		if c.ID != wantID {
			t.Errorf("chunk %d ID = %q, want %q", i, c.ID, wantID)
		}
		if c.Index != i {
			t.Errorf("chunk %d Index = %d", i, c.Index)
		}
		if c.Source != "guide.md" {
			t.Errorf("chunk %d Source = %q", i, c.Source)
		}
	}
}

func TestChunkMarkdownNoHeadings(t *testing.T) {
	chunks := ChunkMarkdown("note.md", []byte("just a flat note\nwith two lines\n"))

	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].ID != "note.md::chunk_0" {
		t.Errorf("ID = %q", chunks[0].ID)
	}
	if chunks[0].Title != "" {
		t.Errorf("title = %q, want empty", chunks[0].Title)
	}
}

func TestChunkMarkdownEmpty(t *testing.T) {
	if chunks := ChunkMarkdown("empty.md", nil); len(chunks) != 0 {
		t.Errorf("empty document produced %d chunks", len(chunks))
	}
	if chunks := ChunkMarkdown("blank.md", []byte("   \n\n")); len(chunks) != 0 {
		t.Errorf("whitespace document produced %d chunks", len(chunks))
	}
}

func TestChunkMarkdownHeadingOnly(t *testing.T) {
	chunks := ChunkMarkdown("h.md", []byte("# Lonely Heading\n"))

	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Title != "Lonely Heading" {
		t.Errorf("title = %q", chunks[0].Title)
	}
	if !strings.HasPrefix(chunks[0].Content, "# Lonely Heading") {
		t.Errorf("content = %q, want the heading line preserved", chunks[0].Content)
	}
}

func chunkTitles(chunks []Chunk) []string {
	titles := make([]string, len(chunks))
	for i, c := range chunks {
		titles[i] = c.Title
	}
	return titles
}
