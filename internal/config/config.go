// Package config handles Opsdesk configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./opsdesk.yaml, ~/.config/opsdesk/config.yaml, /etc/opsdesk/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"opsdesk.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "opsdesk", "config.yaml"))
	}

	paths = append(paths, "/etc/opsdesk/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all Opsdesk configuration.
type Config struct {
	Slack     SlackConfig     `yaml:"slack"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	Agent     AgentConfig     `yaml:"agent"`
	Tickets   TicketsConfig   `yaml:"tickets"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Diag      DiagConfig      `yaml:"diag"`
	LogLevel  string          `yaml:"log_level"`
}

// SlackConfig defines the Slack connection settings. BotToken is the
// xoxb- token used for Web API calls; AppToken is the xapp- token used
// to open a Socket Mode connection.
type SlackConfig struct {
	BotToken string `yaml:"bot_token"`
	AppToken string `yaml:"app_token"`
}

// AnthropicConfig defines Anthropic API settings.
type AnthropicConfig struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// AgentConfig bounds the reasoning loop and conversation memory.
type AgentConfig struct {
	// MaxToolLoops caps completion round-trips per request (default 10).
	MaxToolLoops int `yaml:"max_tool_loops"`
	// MaxHistory caps retained messages per conversation thread (default 20).
	MaxHistory int `yaml:"max_history"`
}

// TicketsConfig defines the ticket database settings.
type TicketsConfig struct {
	DBPath string `yaml:"db_path"`
}

// KnowledgeConfig defines the knowledge base settings. When QdrantAddr
// is empty the knowledge tools report the knowledge base as unavailable.
type KnowledgeConfig struct {
	QdrantAddr string           `yaml:"qdrant_addr"` // host:port of the Qdrant gRPC endpoint
	Collection string           `yaml:"collection"`
	DocsPath   string           `yaml:"docs_path"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
}

// EmbeddingsConfig defines embedding generation settings.
type EmbeddingsConfig struct {
	BaseURL string `yaml:"baseurl"` // Ollama URL (e.g. http://localhost:11434)
	Model   string `yaml:"model"`   // Embedding model name (e.g., nomic-embed-text)
}

// DiagConfig defines diagnostic tool limits.
type DiagConfig struct {
	TimeoutSec int `yaml:"timeout_sec"`
}

// Timeout returns the diagnostic timeout as a duration.
func (d DiagConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutSec) * time.Second
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{
			Model:     "claude-sonnet-4-5-20250929",
			MaxTokens: 4096,
		},
		Agent: AgentConfig{
			MaxToolLoops: 10,
			MaxHistory:   20,
		},
		Tickets: TicketsConfig{
			DBPath: "tickets.db",
		},
		Knowledge: KnowledgeConfig{
			Collection: "it_knowledge_base",
			DocsPath:   "docs",
			Embeddings: EmbeddingsConfig{
				BaseURL: "http://localhost:11434",
				Model:   "nomic-embed-text",
			},
		},
		Diag: DiagConfig{
			TimeoutSec: 10,
		},
	}
}
