package messaging

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var _ Messaging = (*WebSocketBus)(nil)

// WebSocketBus extends InProcess's tick-gated queue with a live
// websocket fan-out, for deployments where agents (or remote
// observers) connect over a network rather than sharing one process.
// Messages are always enqueued through InProcess, so Drain's
// tick-boundary semantics hold regardless of transport; the websocket
// push is a best-effort real-time notification on top.
type WebSocketBus struct {
	*InProcess

	mu       sync.Mutex
	conns    map[string]*websocket.Conn
	upgrader websocket.Upgrader
}

// NewWebSocketBus returns an empty WebSocketBus.
func NewWebSocketBus() *WebSocketBus {
	return &WebSocketBus{
		InProcess: NewInProcess(),
		conns:     map[string]*websocket.Conn{},
		upgrader:  websocket.Upgrader{},
	}
}

// HandleConn upgrades an incoming HTTP request to a websocket
// connection for agentID and starts reading inbound messages from it.
func (b *WebSocketBus) HandleConn(agentID string, w http.ResponseWriter, r *http.Request) error {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.conns[agentID] = conn
	b.mu.Unlock()
	b.Register(agentID)
	go b.readLoop(agentID, conn)
	return nil
}

func (b *WebSocketBus) readLoop(agentID string, conn *websocket.Conn) {
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			b.mu.Lock()
			delete(b.conns, agentID)
			b.mu.Unlock()
			return
		}
		_ = b.InProcess.Send(context.Background(), msg)
	}
}

// Send implements Messaging, enqueuing through InProcess and pushing
// a best-effort live notification over any open websocket connection.
func (b *WebSocketBus) Send(ctx context.Context, msg Message) error {
	if err := b.InProcess.Send(ctx, msg); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if msg.To == Broadcast {
		for id, conn := range b.conns {
			if id == msg.From {
				continue
			}
			_ = conn.WriteJSON(msg)
		}
		return nil
	}
	if conn, ok := b.conns[msg.To]; ok {
		_ = conn.WriteJSON(msg)
	}
	return nil
}

// Close closes every open connection.
func (b *WebSocketBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var firstErr error
	for id, conn := range b.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(b.conns, id)
	}
	return firstErr
}
