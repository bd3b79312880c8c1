package tools

import (
	"context"
	"fmt"

	"github.com/opsdesk/opsdesk/internal/tickets"
)

func (r *Registry) createTicket(_ context.Context, args map[string]any, ec ExecContext) (any, error) {
	if r.deps.Tickets == nil {
		return nil, fmt.Errorf("ticket store not configured")
	}

	title := stringArg(args, "title")
	description := stringArg(args, "description")
	if title == "" || description == "" {
		return nil, fmt.Errorf("title and description are required")
	}

	requester := ec.UserID
	if requester == "" {
		requester = "unknown"
	}

	t := &tickets.Ticket{
		Title:       title,
		Description: description,
		Priority:    stringArg(args, "priority"),
		Category:    stringArg(args, "category"),
		RequesterID: requester,
	}
	if err := r.deps.Tickets.Create(t); err != nil {
		return nil, err
	}

	return map[string]any{"success": true, "ticket": t}, nil
}

func (r *Registry) getTicket(_ context.Context, args map[string]any, _ ExecContext) (any, error) {
	if r.deps.Tickets == nil {
		return nil, fmt.Errorf("ticket store not configured")
	}

	id, ok := int64Arg(args, "ticket_id")
	if !ok {
		return nil, fmt.Errorf("ticket_id is required")
	}

	t, err := r.deps.Tickets.Get(id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("Ticket #%d not found", id)
	}

	comments, err := r.deps.Tickets.Comments(id)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []*tickets.Comment{}
	}

	return map[string]any{"ticket": t, "comments": comments}, nil
}

func (r *Registry) updateTicket(_ context.Context, args map[string]any, ec ExecContext) (any, error) {
	if r.deps.Tickets == nil {
		return nil, fmt.Errorf("ticket store not configured")
	}

	id, ok := int64Arg(args, "ticket_id")
	if !ok {
		return nil, fmt.Errorf("ticket_id is required")
	}

	t, err := r.deps.Tickets.UpdateTicket(id, tickets.Update{
		Status:     stringArg(args, "status"),
		Priority:   stringArg(args, "priority"),
		AssigneeID: stringArg(args, "assignee_id"),
	})
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("Ticket #%d not found", id)
	}

	if comment := stringArg(args, "comment"); comment != "" {
		author := ec.UserID
		if author == "" {
			author = "unknown"
		}
		if err := r.deps.Tickets.AddComment(&tickets.Comment{
			TicketID: id,
			AuthorID: author,
			Content:  comment,
		}); err != nil {
			return nil, err
		}
	}

	return map[string]any{"success": true, "ticket": t}, nil
}

func (r *Registry) listTickets(_ context.Context, args map[string]any, _ ExecContext) (any, error) {
	if r.deps.Tickets == nil {
		return nil, fmt.Errorf("ticket store not configured")
	}

	list, err := r.deps.Tickets.List(tickets.Filter{
		Status:      stringArg(args, "status"),
		Priority:    stringArg(args, "priority"),
		RequesterID: stringArg(args, "requester_id"),
		Limit:       intArg(args, "limit", tickets.DefaultListLimit),
	})
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*tickets.Ticket{}
	}

	return map[string]any{"tickets": list, "count": len(list)}, nil
}
