package tools

import (
	"context"
	"fmt"

	"github.com/opsdesk/opsdesk/internal/knowledge"
)

const maxSearchResults = 10

func (r *Registry) searchKnowledgeBase(ctx context.Context, args map[string]any, _ ExecContext) (any, error) {
	if r.deps.Knowledge == nil {
		return nil, fmt.Errorf("knowledge base not configured")
	}

	query := stringArg(args, "query")
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}

	n := intArg(args, "n_results", 3)
	if n < 1 {
		n = 1
	}
	if n > maxSearchResults {
		n = maxSearchResults
	}

	results, err := r.deps.Knowledge.Search(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("knowledge base search failed: %w", err)
	}

	if len(results) == 0 {
		return map[string]any{
			"results": []knowledge.Result{},
			"message": "No matching documents found in the knowledge base.",
		}, nil
	}

	return map[string]any{"results": results, "count": len(results)}, nil
}
