package conversation

import (
	"fmt"
	"sync"
	"testing"

	"github.com/opsdesk/opsdesk/internal/llm"
)

func TestAppendTrimsOldest(t *testing.T) {
	s := NewStore(5)
	key := Key{Channel: "C1", Thread: "100.1"}

	for i := 0; i < 8; i++ {
		s.Append(key, llm.UserText(fmt.Sprintf("msg %d", i)))
	}

	history := s.History(key)
	if len(history) != 5 {
		t.Fatalf("history length = %d, want 5", len(history))
	}
	// Oldest three dropped; survivors keep their order.
	for i, msg := range history {
		want := fmt.Sprintf("msg %d", i+3)
		if got := msg.Blocks[0].Text; got != want {
			t.Errorf("history[%d] = %q, want %q", i, got, want)
		}
	}
}

func TestThreadsAreIndependent(t *testing.T) {
	s := NewStore(10)
	a := Key{Channel: "C1", Thread: "100.1"}
	b := Key{Channel: "C1", Thread: "200.2"}

	s.Append(a, llm.UserText("in thread a"))

	if n := s.Len(b); n != 0 {
		t.Errorf("thread b has %d messages, want 0", n)
	}
	if n := s.Len(a); n != 1 {
		t.Errorf("thread a has %d messages, want 1", n)
	}
}

func TestHistoryReturnsCopy(t *testing.T) {
	s := NewStore(10)
	key := Key{Channel: "C1", Thread: "100.1"}
	s.Append(key, llm.UserText("original"))

	history := s.History(key)
	history[0] = llm.UserText("mutated")

	if got := s.History(key)[0].Blocks[0].Text; got != "original" {
		t.Errorf("store content changed to %q via the returned slice", got)
	}
}

func TestDoReplacesHistoryAndTrims(t *testing.T) {
	s := NewStore(4)
	key := Key{Channel: "C1", Thread: "100.1"}
	s.Append(key, llm.UserText("hello"))

	err := s.Do(key, func(history []llm.Message) ([]llm.Message, error) {
		history = append(history, llm.UserText("question"))
		history = append(history, llm.AssistantText("answer 1"))
		history = append(history, llm.AssistantText("answer 2"))
		history = append(history, llm.AssistantText("answer 3"))
		return history, nil
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}

	history := s.History(key)
	if len(history) != 4 {
		t.Fatalf("history length = %d, want 4", len(history))
	}
	if got := history[len(history)-1].Blocks[0].Text; got != "answer 3" {
		t.Errorf("last message = %q, want answer 3", got)
	}
}

func TestDoErrorLeavesHistoryUntouched(t *testing.T) {
	s := NewStore(10)
	key := Key{Channel: "C1", Thread: "100.1"}
	s.Append(key, llm.UserText("hello"))

	err := s.Do(key, func(history []llm.Message) ([]llm.Message, error) {
		return nil, fmt.Errorf("agent failed")
	})
	if err == nil {
		t.Fatal("Do should propagate the callback error")
	}
	if n := s.Len(key); n != 1 {
		t.Errorf("history length = %d after failed turn, want 1", n)
	}
}

func TestConcurrentAppends(t *testing.T) {
	s := NewStore(1000)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := Key{Channel: "C1", Thread: fmt.Sprintf("thread-%d", n%3)}
			for j := 0; j < 50; j++ {
				s.Append(key, llm.UserText("m"))
			}
		}(i)
	}
	wg.Wait()

	total := 0
	for i := 0; i < 3; i++ {
		total += s.Len(Key{Channel: "C1", Thread: fmt.Sprintf("thread-%d", i)})
	}
	if total != 500 {
		t.Errorf("total messages = %d, want 500", total)
	}
}
