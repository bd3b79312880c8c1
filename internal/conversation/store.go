// Package conversation tracks per-thread chat history in memory.
// Only the final text of each turn is retained; the intermediate tool
// traffic of a turn never enters history.
package conversation

import (
	"sync"

	"github.com/opsdesk/opsdesk/internal/llm"
)

// DefaultMaxHistory is the number of messages retained per thread.
const DefaultMaxHistory = 20

// Key identifies one conversation thread.
type Key struct {
	Channel string
	Thread  string
}

type conversation struct {
	mu       sync.Mutex
	messages []llm.Message
}

// Store holds conversation histories keyed by thread. Each thread has
// its own lock, so turns in one thread serialize while other threads
// proceed.
type Store struct {
	mu         sync.Mutex
	convs      map[Key]*conversation
	maxHistory int
}

// NewStore creates a conversation store. A maxHistory of zero or less
// selects DefaultMaxHistory.
func NewStore(maxHistory int) *Store {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Store{
		convs:      make(map[Key]*conversation),
		maxHistory: maxHistory,
	}
}

func (s *Store) get(key Key) *conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[key]
	if !ok {
		c = &conversation{}
		s.convs[key] = c
	}
	return c
}

// trim drops the oldest messages beyond the history cap.
func (s *Store) trim(c *conversation) {
	if n := len(c.messages); n > s.maxHistory {
		c.messages = append([]llm.Message(nil), c.messages[n-s.maxHistory:]...)
	}
}

// Append adds a message to the thread's history.
func (s *Store) Append(key Key, msg llm.Message) {
	c := s.get(key)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
	s.trim(c)
}

// History returns a copy of the thread's messages.
func (s *Store) History(key Key) []llm.Message {
	c := s.get(key)
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]llm.Message(nil), c.messages...)
}

// Len returns the number of messages in the thread.
func (s *Store) Len(key Key) int {
	c := s.get(key)
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// Do runs fn with the thread's current history while holding the
// thread's lock, then replaces the history with fn's result. Holding
// the lock for the whole turn keeps concurrent messages in one thread
// from interleaving their histories.
func (s *Store) Do(key Key, fn func(history []llm.Message) ([]llm.Message, error)) error {
	c := s.get(key)
	c.mu.Lock()
	defer c.mu.Unlock()

	updated, err := fn(append([]llm.Message(nil), c.messages...))
	if err != nil {
		return err
	}
	c.messages = updated
	s.trim(c)
	return nil
}
