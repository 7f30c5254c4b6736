package messaging

import (
	"context"
	"testing"
)

func TestInProcessMessageNotVisibleUntilFlush(t *testing.T) {
	m := NewInProcess()
	m.Register("a")
	m.Register("b")

	if err := m.Send(context.Background(), Message{From: "a", To: "b", Kind: Text}); err != nil {
		t.Fatal(err)
	}
	msgs, err := m.Drain(context.Background(), "b")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Fatalf("Drain before Flush returned %d messages, want 0", len(msgs))
	}

	m.Flush()
	msgs, err = m.Drain(context.Background(), "b")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("Drain after Flush returned %d messages, want 1", len(msgs))
	}
}

func TestInProcessDrainClearsQueue(t *testing.T) {
	m := NewInProcess()
	m.Register("a")
	m.Register("b")
	m.Send(context.Background(), Message{From: "a", To: "b", Kind: Text})
	m.Flush()
	m.Drain(context.Background(), "b")

	msgs, _ := m.Drain(context.Background(), "b")
	if len(msgs) != 0 {
		t.Errorf("second Drain returned %d messages, want 0 (already drained)", len(msgs))
	}
}

func TestInProcessBroadcastReachesEveryOtherRecipient(t *testing.T) {
	m := NewInProcess()
	m.Register("a")
	m.Register("b")
	m.Register("c")
	m.Send(context.Background(), Message{From: "a", To: Broadcast, Kind: Warning})
	m.Flush()

	for _, id := range []string{"b", "c"} {
		msgs, _ := m.Drain(context.Background(), id)
		if len(msgs) != 1 {
			t.Errorf("Drain(%s) = %d messages, want 1", id, len(msgs))
		}
	}
	selfMsgs, _ := m.Drain(context.Background(), "a")
	if len(selfMsgs) != 0 {
		t.Errorf("broadcast sender received its own message: %v", selfMsgs)
	}
}
