// Package hub fans notification frames out to every connected device of an
// owner. The hub never inspects frame contents; they are encrypted
// end-to-end and the sender's own devices filter echoes themselves.
package hub

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/taskvault/taskvault/internal/logging"
)

const writeTimeout = 5 * time.Second

// Hub tracks websocket connections grouped by owner.
type Hub struct {
	logger logging.Logger

	mu    sync.RWMutex
	conns map[string]map[*websocket.Conn]bool
}

func New(logger logging.Logger) *Hub {
	return &Hub{
		logger: logger,
		conns:  make(map[string]map[*websocket.Conn]bool),
	}
}

func (h *Hub) add(owner string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[owner] == nil {
		h.conns[owner] = make(map[*websocket.Conn]bool)
	}
	h.conns[owner][conn] = true
}

func (h *Hub) remove(owner string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.conns[owner]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.conns, owner)
		}
	}
}

// ConnCount reports the owner's live connections.
func (h *Hub) ConnCount(owner string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[owner])
}

// Broadcast delivers one frame to every connection of the owner except the
// origin: publishers use short-lived connections that never read, and an
// echo queued on one stalls its close. The sender's standing subscription,
// a separate connection, still gets the frame and filters it by device id.
// A connection that fails to accept the write is dropped; its device falls
// back to polling and resubscribes on resume.
func (h *Hub) Broadcast(ctx context.Context, owner string, data []byte, origin *websocket.Conn) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.conns[owner]))
	for conn := range h.conns[owner] {
		if conn != origin {
			conns = append(conns, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := conn.Write(wctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			h.logger.Warn(ctx, "dropping slow notification client", "owner", owner, "error", err)
			h.remove(owner, conn)
			_ = conn.Close(websocket.StatusPolicyViolation, "write failed")
		}
	}
}

// Serve registers the connection and pumps its inbound frames back out to
// the owner's channel until the connection drops or ctx ends. Blocks for
// the connection's lifetime.
func (h *Hub) Serve(ctx context.Context, owner string, conn *websocket.Conn) {
	h.add(owner, conn)
	defer func() {
		h.remove(owner, conn)
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		h.Broadcast(ctx, owner, data, conn)
	}
}

// Close tears down every connection, for server shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for owner, set := range h.conns {
		for conn := range set {
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		}
		delete(h.conns, owner)
	}
}
