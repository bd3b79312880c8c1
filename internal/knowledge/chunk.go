// Package knowledge implements the vector-backed knowledge base:
// markdown chunking, embedding generation, and Qdrant storage/search.
package knowledge

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Chunk is one retrievable unit of a document, split on top-level
// headings.
type Chunk struct {
	ID      string
	Title   string
	Content string
	Source  string
	Index   int
}

// ChunkMarkdown splits a markdown document into chunks at level 1 and 2
// headings. Content before the first heading becomes its own untitled
// chunk. Chunk IDs take the form "source::chunk_N".
func ChunkMarkdown(source string, data []byte) []Chunk {
	type boundary struct {
		title string
		start int
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(data))

	var bounds []boundary
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok || h.Level > 2 {
			return ast.WalkContinue, nil
		}
		if h.Lines().Len() == 0 {
			return ast.WalkContinue, nil
		}

		// Back up over the "#" markers and the following space to the
		// start of the heading line.
		seg := h.Lines().At(0)
		start := seg.Start - h.Level - 1
		if start < 0 {
			start = 0
		}
		bounds = append(bounds, boundary{
			title: string(h.Text(data)),
			start: start,
		})
		return ast.WalkSkipChildren, nil
	})

	var chunks []Chunk
	add := func(title string, body []byte) {
		content := strings.TrimSpace(string(body))
		if content == "" {
			return
		}
		chunks = append(chunks, Chunk{
			ID:      fmt.Sprintf("%s::chunk_%d", source, len(chunks)),
			Title:   title,
			Content: content,
			Source:  source,
			Index:   len(chunks),
		})
	}

	if len(bounds) == 0 {
		add("", data)
		return chunks
	}

	if bounds[0].start > 0 {
		add("", data[:bounds[0].start])
	}
	for i, b := range bounds {
		end := len(data)
		if i+1 < len(bounds) {
			end = bounds[i+1].start
		}
		add(b.title, data[b.start:end])
	}

	return chunks
}
