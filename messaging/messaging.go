// Package messaging holds the interface the core consumes from an
// external messaging collaborator, per spec.md §6, plus an in-memory
// reference implementation and a websocket-backed transport.
package messaging

import (
	"context"
	"time"
)

// Kind names the category of a Message's payload, per spec.md §6.
type Kind string

const (
	Text       Kind = "text"
	TradeOffer Kind = "trade_offer"
	Knowledge  Kind = "knowledge"
	Warning    Kind = "warning"
)

// Broadcast is the reserved "to" value meaning every agent.
const Broadcast = "*"

// Message is one item exchanged between agents, per spec.md §6.
type Message struct {
	ID        string
	From      string
	To        string // Broadcast, or a single agent id
	Kind      Kind
	Payload   []byte
	Timestamp time.Time
}

// Messaging is the narrow interface the core consumes, per spec.md §6.
// Messages sent during tick t are delivered at the start of tick t+1
// (spec.md §5's ordering guarantee): an implementation's Drain must
// not return a Message sent later in the same logical tick it was
// sent in.
type Messaging interface {
	// Send enqueues payload for delivery to "to" (or every agent, if
	// to is Broadcast), returning once the bus has durably accepted
	// it.
	Send(ctx context.Context, msg Message) error

	// Drain returns and clears every Message queued for "to" since
	// its last Drain call.
	Drain(ctx context.Context, to string) ([]Message, error)
}
