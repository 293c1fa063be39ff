package session

import (
	"fmt"
	"sync"
	"testing"

	"go.uber.org/goleak"

	"github.com/mirutec/sage/internal/log"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestGetOrCreate_BlankIDGeneratesNew(t *testing.T) {
	m := NewManager(log.NewNop())

	a := m.GetOrCreate("")
	b := m.GetOrCreate("  ")
	if a == "" || b == "" {
		t.Fatal("expected generated session IDs")
	}
	if a == b {
		t.Errorf("two blank requests produced the same session %q", a)
	}
	if m.Count() != 2 {
		t.Errorf("Count() = %d, want 2", m.Count())
	}
}

func TestGetOrCreate_ReusesExisting(t *testing.T) {
	m := NewManager(log.NewNop())

	id := m.GetOrCreate("customer-1")
	if id != "customer-1" {
		t.Fatalf("GetOrCreate = %q, want caller-provided ID back", id)
	}
	m.GetOrCreate("customer-1")
	if m.Count() != 1 {
		t.Errorf("Count() = %d, want 1", m.Count())
	}
}

func TestAppend_OrderAndIsolation(t *testing.T) {
	m := NewManager(log.NewNop())

	m.Append("s1", RoleUser, "hello")
	m.Append("s1", RoleAssistant, "hi there")
	m.Append("s2", RoleUser, "unrelated")

	got := m.Messages("s1")
	if len(got) != 2 {
		t.Fatalf("len(Messages(s1)) = %d, want 2", len(got))
	}
	if got[0].Role != RoleUser || got[0].Content != "hello" {
		t.Errorf("first message = %+v, want the user turn", got[0])
	}
	if got[1].Role != RoleAssistant {
		t.Errorf("second message role = %q, want assistant", got[1].Role)
	}
	if len(m.Messages("s2")) != 1 {
		t.Error("session s2 history leaked or lost messages")
	}
}

func TestMessages_UnknownSession(t *testing.T) {
	m := NewManager(log.NewNop())
	if got := m.Messages("nope"); len(got) != 0 {
		t.Errorf("Messages(unknown) = %v, want empty", got)
	}
}

func TestMessages_ReturnsCopy(t *testing.T) {
	m := NewManager(log.NewNop())
	m.Append("s", RoleUser, "original")

	snapshot := m.Messages("s")
	snapshot[0].Content = "mutated"

	if m.Messages("s")[0].Content != "original" {
		t.Error("snapshot mutation reached the stored history")
	}
}

func TestAppend_ConcurrentNoLostMessages(t *testing.T) {
	m := NewManager(log.NewNop())

	const perSession = 50
	var wg sync.WaitGroup
	for s := range 4 {
		sid := fmt.Sprintf("s%d", s)
		m.GetOrCreate(sid)
		for i := range perSession {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				m.Append(sid, RoleUser, fmt.Sprintf("msg %d", n))
			}(i)
		}
	}
	wg.Wait()

	for s := range 4 {
		sid := fmt.Sprintf("s%d", s)
		if got := len(m.Messages(sid)); got != perSession {
			t.Errorf("session %s has %d messages, want %d", sid, got, perSession)
		}
	}
}
