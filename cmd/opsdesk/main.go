// Opsdesk is a Slack-native IT support agent.
//
// It connects to Slack over Socket Mode, answers employee questions
// with Claude, and carries a toolbelt of network diagnostics, a ticket
// database, and a semantic knowledge base. Configuration is loaded
// from a single YAML file discovered automatically (see
// [config.DefaultSearchPaths]).
//
// Usage:
//
//	opsdesk serve       Connect to Slack and serve requests
//	opsdesk init [dir]  Write an example config file
//	opsdesk version     Print version and build information
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/opsdesk/opsdesk/examples"
	"github.com/opsdesk/opsdesk/internal/agent"
	"github.com/opsdesk/opsdesk/internal/buildinfo"
	"github.com/opsdesk/opsdesk/internal/config"
	"github.com/opsdesk/opsdesk/internal/conversation"
	"github.com/opsdesk/opsdesk/internal/diag"
	"github.com/opsdesk/opsdesk/internal/knowledge"
	"github.com/opsdesk/opsdesk/internal/llm"
	"github.com/opsdesk/opsdesk/internal/slack"
	"github.com/opsdesk/opsdesk/internal/tickets"
	"github.com/opsdesk/opsdesk/internal/tools"
)

// main constructs the OS-level environment and delegates to [run],
// keeping os.Exit and os.Args out of the application logic.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point. Arguments are parsed by hand; the flag
// package relies on package-level globals that interfere with driving
// run from tests.
func run(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	var configPath string
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		case command != "":
			cmdArgs = append(cmdArgs, args[i])
		default:
			return fmt.Errorf("unexpected argument: %s", args[i])
		}
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, configPath)
	case "init":
		dir := "."
		if len(cmdArgs) > 0 {
			dir = cmdArgs[0]
		}
		return runInit(stdout, dir)
	case "version":
		fmt.Fprintln(stdout, buildinfo.String())
		return nil
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runInit writes the example config into dir, refusing to clobber an
// existing file.
func runInit(stdout io.Writer, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	path := filepath.Join(dir, "opsdesk.yaml")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists, not overwriting", path)
	}

	if err := os.WriteFile(path, examples.ConfigYAML, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Fprintf(stdout, "Wrote %s\n", path)
	fmt.Fprintln(stdout, "Set SLACK_BOT_TOKEN, SLACK_APP_TOKEN, and ANTHROPIC_API_KEY, then run: opsdesk serve")
	return nil
}

func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Opsdesk - Slack IT Support Agent")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: opsdesk [flags] <command>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve        Connect to Slack and serve requests")
	fmt.Fprintln(w, "  init [dir]   Write an example config file (default: .)")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	return nil
}

// newLogger creates the process-wide structured logger.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
}

// runServe wires up all components and runs the Slack bridge until the
// process receives SIGINT or SIGTERM.
func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	// A local .env is a development convenience; absence is fine.
	_ = godotenv.Load()

	cfgPath, err := config.FindConfig(configPath)
	if err != nil {
		return err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := newLogger(stdout, level)
	slog.SetDefault(logger)

	logger.Info("starting Opsdesk",
		"version", buildinfo.Version,
		"commit", buildinfo.GitCommit,
		"built", buildinfo.BuildTime,
		"config", cfgPath,
	)

	if cfg.Slack.BotToken == "" || cfg.Slack.AppToken == "" {
		return fmt.Errorf("slack bot_token and app_token are required")
	}
	if cfg.Anthropic.APIKey == "" {
		return fmt.Errorf("anthropic api_key is required")
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ticketStore, err := tickets.Open(cfg.Tickets.DBPath, logger)
	if err != nil {
		return fmt.Errorf("open ticket store: %w", err)
	}
	defer ticketStore.Close()

	// The knowledge base is optional; without a Qdrant address the
	// search tool reports it as unavailable.
	var searcher tools.Searcher
	if cfg.Knowledge.QdrantAddr != "" {
		embedder := knowledge.NewOllamaEmbedder(
			cfg.Knowledge.Embeddings.BaseURL,
			cfg.Knowledge.Embeddings.Model,
		)
		kb, err := knowledge.Connect(cfg.Knowledge.QdrantAddr, cfg.Knowledge.Collection, embedder, logger)
		if err != nil {
			return fmt.Errorf("connect knowledge base: %w", err)
		}
		defer kb.Close()
		searcher = kb
	} else {
		logger.Warn("knowledge base disabled: no qdrant_addr configured")
	}

	registry := tools.NewRegistry(logger, tools.Deps{
		Tickets:   ticketStore,
		Knowledge: searcher,
		Diag:      diag.NewRunner(logger, cfg.Diag.Timeout()),
	})

	client := llm.NewAnthropicClient(cfg.Anthropic.APIKey, logger)
	a := agent.New(logger, client, registry,
		cfg.Anthropic.Model, cfg.Anthropic.MaxTokens, cfg.Agent.MaxToolLoops)

	convs := conversation.NewStore(cfg.Agent.MaxHistory)
	slackClient := slack.NewClient(cfg.Slack.BotToken, cfg.Slack.AppToken, logger)
	bridge := slack.NewBridge(slackClient, a, convs, logger)

	err = bridge.Run(ctx)
	if ctx.Err() != nil {
		logger.Info("Opsdesk stopped")
		return nil
	}
	return err
}
