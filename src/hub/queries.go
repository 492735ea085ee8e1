package hub

import (
	"sort"

	"github.com/zontana/chatwire/src/types"
)

// RegisterHandler registers a handler for an event name.
func (h *Hub) RegisterHandler(event string, handler types.MessageHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[event] = handler
}

// OnConnection registers a callback for new connections.
func (h *Hub) OnConnection(cb func(string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onConnect = append(h.onConnect, cb)
}

// OnDisconnection registers a callback for disconnections.
func (h *Hub) OnDisconnection(cb func(string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDisconn = append(h.onDisconn, cb)
}

// ConnectedClients returns a snapshot of every connected client, oldest
// connection first.
func (h *Hub) ConnectedClients() []types.ClientInfo {
	h.mu.RLock()
	infos := make([]types.ClientInfo, 0, len(h.clients))
	for _, c := range h.clients {
		infos = append(infos, c.Info())
	}
	h.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].ConnectedAt.Before(infos[j].ConnectedAt) })
	return infos
}

// ClientInfo returns info for a connected client, or nil.
func (h *Hub) ClientInfo(clientID string) *types.ClientInfo {
	h.mu.RLock()
	client, ok := h.clients[clientID]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	info := client.Info()
	return &info
}

// Stats is the live hub snapshot served by the info endpoint.
type Stats struct {
	Clients  int            `json:"clients"`
	Channels map[string]int `json:"channels"` // channel -> subscriber count
}

// Stats reports the connected client count and per-channel subscriber counts.
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	channels := make(map[string]int, len(h.channels))
	for ch, subs := range h.channels {
		channels[ch] = len(subs)
	}
	return Stats{Clients: len(h.clients), Channels: channels}
}
