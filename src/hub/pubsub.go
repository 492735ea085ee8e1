package hub

import (
	"github.com/zontana/chatwire/src/types"
)

func (h *Hub) handleMessage(msg types.Message) {
	h.mu.RLock()
	handler, ok := h.handlers[msg.Event]
	h.mu.RUnlock()

	if !ok {
		h.logger.Debug().Str("event", msg.Event).Msg("no handler")
		return
	}
	if err := handler(msg.ClientID, msg); err != nil {
		h.logger.Error().Err(err).Str("event", msg.Event).Msg("handler error")
	}
}

func (h *Hub) broadcastToChannel(channel string, msg types.Message) {
	h.mu.RLock()
	subs, ok := h.channels[channel]
	if !ok {
		h.mu.RUnlock()
		return
	}
	// Copy subscriber IDs to avoid holding lock during sends.
	ids := make([]string, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	for _, id := range ids {
		h.deliver(id, msg)
	}
}

// BroadcastAll sends a message to every connected client. Presence updates
// re-send the complete online list to everyone, so this fan-out is O(clients)
// per call.
func (h *Hub) BroadcastAll(msg types.Message) {
	h.BroadcastExcept("", msg)
}

// BroadcastExcept sends a message to every connected client but the one with
// the given id.
func (h *Hub) BroadcastExcept(clientID string, msg types.Message) {
	h.mu.RLock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		if id != clientID {
			ids = append(ids, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range ids {
		h.deliver(id, msg)
	}
}

// deliver enqueues a message for one client. A full send buffer drops only
// that client's copy so one slow consumer never blocks a fan-out.
func (h *Hub) deliver(clientID string, msg types.Message) {
	h.mu.RLock()
	client, exists := h.clients[clientID]
	h.mu.RUnlock()
	if !exists {
		return
	}
	select {
	case client.Send <- msg:
	default:
		h.logger.Warn().Str("client_id", clientID).Msg("send buffer full, dropping")
	}
}

// SendToClient sends a message directly to a specific client.
func (h *Hub) SendToClient(clientID string, msg types.Message) bool {
	h.mu.RLock()
	client, ok := h.clients[clientID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	select {
	case client.Send <- msg:
		return true
	default:
		return false
	}
}

// Subscribe adds a client to a channel.
func (h *Hub) Subscribe(channel, clientID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[clientID]; !ok {
		return false
	}
	if h.channels[channel] == nil {
		h.channels[channel] = make(map[string]bool)
	}
	h.channels[channel][clientID] = true
	h.clients[clientID].AddChannel(channel)
	return true
}

// Unsubscribe removes a client from a channel.
func (h *Hub) Unsubscribe(channel, clientID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.channels[channel]
	if !ok {
		return false
	}
	delete(subs, clientID)
	if len(subs) == 0 {
		delete(h.channels, channel)
	}
	if c, ok := h.clients[clientID]; ok {
		c.RemoveChannel(channel)
	}
	return true
}
