package messaging

import (
	"context"
	"sync"
)

var _ Messaging = (*InProcess)(nil)

// InProcess is the default in-memory Messaging implementation. Sent
// messages land in a staging area and only become visible to Drain
// after Flush runs, matching spec.md §5's "messages sent in tick t
// are delivered at the start of tick t+1" and "append-only during the
// tick, flushed between ticks". No library in the pack offers a
// tick-gated pub-sub primitive this small; a mutex-guarded map is the
// idiomatic stdlib choice.
type InProcess struct {
	mu         sync.Mutex
	recipients map[string]bool
	pending    map[string][]Message
	ready      map[string][]Message
}

// NewInProcess returns an empty InProcess bus.
func NewInProcess() *InProcess {
	return &InProcess{
		recipients: map[string]bool{},
		pending:    map[string][]Message{},
		ready:      map[string][]Message{},
	}
}

// Register adds agentID as a recipient Broadcast sends reach. The
// scheduler registers every agent it creates.
func (m *InProcess) Register(agentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recipients[agentID] = true
}

// Send implements Messaging.
func (m *InProcess) Send(ctx context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg.To == Broadcast {
		for id := range m.recipients {
			if id == msg.From {
				continue
			}
			m.pending[id] = append(m.pending[id], msg)
		}
		return nil
	}
	m.pending[msg.To] = append(m.pending[msg.To], msg)
	return nil
}

// Drain implements Messaging.
func (m *InProcess) Drain(ctx context.Context, to string) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.ready[to]
	m.ready[to] = nil
	return out, nil
}

// Flush moves every pending message into the ready queue it will be
// Drained from, and must be called exactly once between ticks.
func (m *InProcess) Flush() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, msgs := range m.pending {
		m.ready[id] = append(m.ready[id], msgs...)
	}
	m.pending = map[string][]Message{}
}
