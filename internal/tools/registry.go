// Package tools implements the agent's tool catalogue and dispatcher.
// Tool handlers receive model-supplied arguments plus a trusted
// execution context; the collaborators they touch are injected at
// registry construction and can never be overridden by the model.
package tools

import (
	"context"
	"log/slog"

	"github.com/opsdesk/opsdesk/internal/diag"
	"github.com/opsdesk/opsdesk/internal/knowledge"
	"github.com/opsdesk/opsdesk/internal/llm"
	"github.com/opsdesk/opsdesk/internal/tickets"
)

// ExecContext carries trusted, caller-derived request state into tool
// handlers. It originates from the transport layer, never from the
// model.
type ExecContext struct {
	UserID string
}

// Handler executes one tool call. The returned value is serialized to
// JSON for the model; errors are converted to error payloads by the
// dispatcher.
type Handler func(ctx context.Context, args map[string]any, ec ExecContext) (any, error)

// Definition describes a tool to the model.
type Definition struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Searcher is the knowledge base surface tools need.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]knowledge.Result, error)
}

// Deps are the collaborators tool handlers operate on. Any of them may
// be nil; the corresponding tools then report an error payload instead
// of panicking.
type Deps struct {
	Tickets   *tickets.Store
	Knowledge Searcher
	Diag      *diag.Runner
}

// Registry holds the tool catalogue and its handlers. Definition order
// is insertion order, so the catalogue presented to the model is
// stable.
type Registry struct {
	logger   *slog.Logger
	defs     []Definition
	handlers map[string]Handler
	deps     Deps
}

// NewRegistry creates a registry with all built-in tools registered.
func NewRegistry(logger *slog.Logger, deps Deps) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		logger:   logger,
		handlers: make(map[string]Handler),
		deps:     deps,
	}
	r.registerBuiltins()
	return r
}

// Register adds a tool to the catalogue. Re-registering a name
// replaces its handler but keeps its catalogue position.
func (r *Registry) Register(def Definition, h Handler) {
	if _, exists := r.handlers[def.Name]; !exists {
		r.defs = append(r.defs, def)
	}
	r.handlers[def.Name] = h
}

// List returns the tool catalogue in registration order, in the shape
// the model API expects.
func (r *Registry) List() []llm.ToolSchema {
	schemas := make([]llm.ToolSchema, 0, len(r.defs))
	for _, def := range r.defs {
		schemas = append(schemas, llm.ToolSchema{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		})
	}
	return schemas
}

func (r *Registry) registerBuiltins() {
	r.Register(Definition{
		Name:        "ping_host",
		Description: "Ping a hostname or IP address to check if it is reachable. Returns latency info.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"host": map[string]any{
					"type":        "string",
					"description": "Hostname or IP address to ping (e.g. 'google.com' or '8.8.8.8')",
				},
				"count": map[string]any{
					"type":        "integer",
					"description": "Number of ping packets to send (default 4, max 10)",
					"default":     4,
				},
			},
			"required": []string{"host"},
		},
	}, r.pingHost)

	r.Register(Definition{
		Name:        "dns_lookup",
		Description: "Perform a DNS lookup on a hostname. Returns resolved IP addresses and record info.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"hostname": map[string]any{
					"type":        "string",
					"description": "Hostname to resolve (e.g. 'google.com')",
				},
				"record_type": map[string]any{
					"type":        "string",
					"description": "DNS record type (A, AAAA, MX, CNAME, TXT, NS)",
					"default":     "A",
					"enum":        []string{"A", "AAAA", "MX", "CNAME", "TXT", "NS"},
				},
			},
			"required": []string{"hostname"},
		},
	}, r.dnsLookup)

	r.Register(Definition{
		Name:        "check_disk_usage",
		Description: "Check disk usage on the system. Returns filesystem usage info.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Filesystem path to check (default '/')",
					"default":     "/",
				},
			},
			"required": []string{},
		},
	}, r.checkDiskUsage)

	r.Register(Definition{
		Name:        "check_service_status",
		Description: "Check if a system service or process is running.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"service_name": map[string]any{
					"type":        "string",
					"description": "Name of the service or process to check (e.g. 'nginx', 'postgres')",
				},
			},
			"required": []string{"service_name"},
		},
	}, r.checkServiceStatus)

	r.Register(Definition{
		Name:        "create_ticket",
		Description: "Create a new IT support ticket.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title": map[string]any{
					"type":        "string",
					"description": "Short title for the ticket",
				},
				"description": map[string]any{
					"type":        "string",
					"description": "Detailed description of the issue",
				},
				"priority": map[string]any{
					"type":    "string",
					"enum":    []string{"low", "medium", "high", "critical"},
					"default": "medium",
				},
				"category": map[string]any{
					"type":        "string",
					"description": "Category (e.g. 'network', 'hardware', 'software', 'access')",
				},
			},
			"required": []string{"title", "description"},
		},
	}, r.createTicket)

	r.Register(Definition{
		Name:        "get_ticket",
		Description: "Retrieve an IT support ticket by its ID.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"ticket_id": map[string]any{
					"type":        "integer",
					"description": "The ticket ID",
				},
			},
			"required": []string{"ticket_id"},
		},
	}, r.getTicket)

	r.Register(Definition{
		Name:        "update_ticket",
		Description: "Update an existing IT support ticket. Can change status, priority, assignee, or add a comment.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"ticket_id": map[string]any{
					"type":        "integer",
					"description": "The ticket ID to update",
				},
				"status": map[string]any{
					"type": "string",
					"enum": []string{"open", "in_progress", "waiting", "resolved", "closed"},
				},
				"priority": map[string]any{
					"type": "string",
					"enum": []string{"low", "medium", "high", "critical"},
				},
				"assignee_id": map[string]any{
					"type":        "string",
					"description": "Slack user ID of assignee",
				},
				"comment": map[string]any{
					"type":        "string",
					"description": "Comment to add to the ticket",
				},
			},
			"required": []string{"ticket_id"},
		},
	}, r.updateTicket)

	r.Register(Definition{
		Name:        "list_tickets",
		Description: "List IT support tickets with optional filters.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"status": map[string]any{
					"type":        "string",
					"enum":        []string{"open", "in_progress", "waiting", "resolved", "closed"},
					"description": "Filter by status",
				},
				"priority": map[string]any{
					"type":        "string",
					"enum":        []string{"low", "medium", "high", "critical"},
					"description": "Filter by priority",
				},
				"requester_id": map[string]any{
					"type":        "string",
					"description": "Filter by requester Slack user ID",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Max number of tickets to return (default 10)",
					"default":     10,
				},
			},
			"required": []string{},
		},
	}, r.listTickets)

	r.Register(Definition{
		Name:        "search_knowledge_base",
		Description: "Search the IT knowledge base using semantic search. Use this to find solutions, documentation, and procedures for common IT issues.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Natural language search query (e.g. 'how to set up VPN')",
				},
				"n_results": map[string]any{
					"type":        "integer",
					"description": "Number of results to return (default 3, max 10)",
					"default":     3,
				},
			},
			"required": []string{"query"},
		},
	}, r.searchKnowledgeBase)
}

// Argument helpers. JSON numbers arrive as float64; tolerate both
// numeric and string forms where reasonable.

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

func int64Arg(args map[string]any, key string) (int64, bool) {
	switch v := args[key].(type) {
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	}
	return 0, false
}
