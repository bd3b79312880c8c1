// Opsdesk-index imports markdown documentation into the Opsdesk
// knowledge base. It chunks each document on headings, generates
// embeddings via Ollama, and upserts the chunks into Qdrant.
//
// Usage:
//
//	opsdesk-index [-config path] [-recreate] [docs-dir]
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"

	"github.com/opsdesk/opsdesk/internal/config"
	"github.com/opsdesk/opsdesk/internal/knowledge"
)

func main() {
	if err := run(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "Path to config file (default: auto-discover)")
	recreate := flag.Bool("recreate", false, "Drop and recreate the collection before indexing")
	flag.Parse()

	cfgPath, err := config.FindConfig(*configPath)
	if err != nil {
		return err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	if cfg.Knowledge.QdrantAddr == "" {
		return fmt.Errorf("knowledge.qdrant_addr is not configured in %s", cfgPath)
	}

	docsDir := cfg.Knowledge.DocsPath
	if flag.NArg() > 0 {
		docsDir = flag.Arg(0)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	embedder := knowledge.NewOllamaEmbedder(
		cfg.Knowledge.Embeddings.BaseURL,
		cfg.Knowledge.Embeddings.Model,
	)

	store, err := knowledge.Connect(cfg.Knowledge.QdrantAddr, cfg.Knowledge.Collection, embedder, nil)
	if err != nil {
		return err
	}
	defer store.Close()

	color.Cyan("Indexing %s into collection %q at %s", docsDir, cfg.Knowledge.Collection, cfg.Knowledge.QdrantAddr)

	files, err := markdownFiles(docsDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no markdown files found under %s", docsDir)
	}

	// Probe one embedding to size the collection's vectors.
	probe, err := embedder.Generate(ctx, "dimension probe")
	if err != nil {
		return fmt.Errorf("embedding probe failed (is Ollama running at %s?): %w",
			cfg.Knowledge.Embeddings.BaseURL, err)
	}
	if err := store.EnsureCollection(ctx, uint64(len(probe)), *recreate); err != nil {
		return err
	}

	totalChunks := 0
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		source, err := filepath.Rel(docsDir, path)
		if err != nil {
			source = path
		}

		chunks := knowledge.ChunkMarkdown(source, data)
		if len(chunks) == 0 {
			color.Yellow("  %s: empty, skipped", source)
			continue
		}

		if err := store.Upsert(ctx, chunks); err != nil {
			return fmt.Errorf("index %s: %w", source, err)
		}

		color.Green("  %s: %d chunks", source, len(chunks))
		totalChunks += len(chunks)
	}

	count, err := store.Count(ctx)
	if err != nil {
		return err
	}

	color.Cyan("Indexed %d chunks from %d files (%d points in collection)", totalChunks, len(files), count)
	return nil
}

// markdownFiles returns all .md files under root, sorted by path.
func markdownFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".md" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, nil
}
