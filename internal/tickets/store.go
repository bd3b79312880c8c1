package tickets

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed ticket store. Safe for concurrent use; the
// underlying *sql.DB serializes access and WAL mode keeps readers and
// writers from blocking each other.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if necessary) the ticket database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("ticket database ready", "path", path)
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the schema if it does not exist.
func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS tickets (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			title        TEXT NOT NULL,
			description  TEXT NOT NULL DEFAULT '',
			status       TEXT NOT NULL DEFAULT 'open',
			priority     TEXT NOT NULL DEFAULT 'medium',
			category     TEXT NOT NULL DEFAULT '',
			requester_id TEXT NOT NULL DEFAULT '',
			assignee_id  TEXT NOT NULL DEFAULT '',
			created_at   TEXT NOT NULL,
			updated_at   TEXT NOT NULL,
			resolved_at  TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS ticket_comments (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			ticket_id  INTEGER NOT NULL,
			author_id  TEXT NOT NULL DEFAULT '',
			content    TEXT NOT NULL,
			created_at TEXT NOT NULL,
			FOREIGN KEY (ticket_id) REFERENCES tickets(id)
		);
		CREATE INDEX IF NOT EXISTS idx_comments_ticket ON ticket_comments(ticket_id, created_at);
		CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status);
	`)
	return err
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Create inserts a new ticket and fills in its ID and timestamps.
// Status defaults to open, priority to medium.
func (s *Store) Create(t *Ticket) error {
	if t.Status == "" {
		t.Status = StatusOpen
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if !ValidStatus(t.Status) {
		return fmt.Errorf("invalid status: %q", t.Status)
	}
	if !ValidPriority(t.Priority) {
		return fmt.Errorf("invalid priority: %q", t.Priority)
	}

	ts := now()
	t.CreatedAt = ts
	t.UpdatedAt = ts

	res, err := s.db.Exec(`
		INSERT INTO tickets (title, description, status, priority, category,
		                     requester_id, assignee_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.Title, t.Description, t.Status, t.Priority, t.Category,
		t.RequesterID, t.AssigneeID, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create ticket: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create ticket: %w", err)
	}
	t.ID = id

	s.logger.Info("ticket created", "id", t.ID, "title", t.Title, "priority", t.Priority)
	return nil
}

// Get returns a ticket by ID, or nil if no such ticket exists.
func (s *Store) Get(id int64) (*Ticket, error) {
	t := &Ticket{}
	err := s.db.QueryRow(`
		SELECT id, title, description, status, priority, category,
		       requester_id, assignee_id, created_at, updated_at, resolved_at
		FROM tickets WHERE id = ?
	`, id).Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.Category,
		&t.RequesterID, &t.AssigneeID, &t.CreatedAt, &t.UpdatedAt, &t.ResolvedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ticket %d: %w", id, err)
	}
	return t, nil
}

// Update describes a partial ticket update; empty fields are left
// unchanged.
type Update struct {
	Status     string
	Priority   string
	AssigneeID string
}

// UpdateTicket applies the non-empty fields of u to the ticket and
// returns the updated row. Setting status to resolved stamps
// resolved_at. Returns nil if no such ticket exists.
func (s *Store) UpdateTicket(id int64, u Update) (*Ticket, error) {
	var sets []string
	var args []any

	if u.Status != "" {
		if !ValidStatus(u.Status) {
			return nil, fmt.Errorf("invalid status: %q", u.Status)
		}
		sets = append(sets, "status = ?")
		args = append(args, u.Status)
	}
	if u.Priority != "" {
		if !ValidPriority(u.Priority) {
			return nil, fmt.Errorf("invalid priority: %q", u.Priority)
		}
		sets = append(sets, "priority = ?")
		args = append(args, u.Priority)
	}
	if u.AssigneeID != "" {
		sets = append(sets, "assignee_id = ?")
		args = append(args, u.AssigneeID)
	}

	if len(sets) == 0 {
		return s.Get(id)
	}

	ts := now()
	sets = append(sets, "updated_at = ?")
	args = append(args, ts)

	if u.Status == StatusResolved {
		sets = append(sets, "resolved_at = ?")
		args = append(args, ts)
	}

	args = append(args, id)
	query := "UPDATE tickets SET " + strings.Join(sets, ", ") + " WHERE id = ?"

	res, err := s.db.Exec(query, args...)
	if err != nil {
		return nil, fmt.Errorf("update ticket %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update ticket %d: %w", id, err)
	}
	if n == 0 {
		return nil, nil
	}

	s.logger.Info("ticket updated", "id", id, "status", u.Status, "priority", u.Priority)
	return s.Get(id)
}

// Filter narrows a List call; empty fields match everything.
type Filter struct {
	Status      string
	Priority    string
	RequesterID string
	Limit       int
}

// DefaultListLimit and MaxListLimit bound how many tickets List returns.
const (
	DefaultListLimit = 10
	MaxListLimit     = 50
)

// List returns tickets matching the filter, newest first.
func (s *Store) List(f Filter) ([]*Ticket, error) {
	query := `
		SELECT id, title, description, status, priority, category,
		       requester_id, assignee_id, created_at, updated_at, resolved_at
		FROM tickets WHERE 1=1`
	var args []any

	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, f.Status)
	}
	if f.Priority != "" {
		query += " AND priority = ?"
		args = append(args, f.Priority)
	}
	if f.RequesterID != "" {
		query += " AND requester_id = ?"
		args = append(args, f.RequesterID)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*Ticket
	for rows.Next() {
		t := &Ticket{}
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority,
			&t.Category, &t.RequesterID, &t.AssigneeID, &t.CreatedAt, &t.UpdatedAt,
			&t.ResolvedAt); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

// AddComment appends a comment to a ticket and fills in its ID and
// timestamp.
func (s *Store) AddComment(c *Comment) error {
	c.CreatedAt = now()
	res, err := s.db.Exec(`
		INSERT INTO ticket_comments (ticket_id, author_id, content, created_at)
		VALUES (?, ?, ?, ?)
	`, c.TicketID, c.AuthorID, c.Content, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("add comment: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("add comment: %w", err)
	}
	c.ID = id
	return nil
}

// Comments returns all comments for a ticket, oldest first.
func (s *Store) Comments(ticketID int64) ([]*Comment, error) {
	rows, err := s.db.Query(`
		SELECT id, ticket_id, author_id, content, created_at
		FROM ticket_comments WHERE ticket_id = ?
		ORDER BY created_at, id
	`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("get comments: %w", err)
	}
	defer rows.Close()

	var comments []*Comment
	for rows.Next() {
		c := &Comment{}
		if err := rows.Scan(&c.ID, &c.TicketID, &c.AuthorID, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
