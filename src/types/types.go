package types

import "time"

// Client-to-server events.
const (
	EventAddUser           = "addUser"
	EventSendMessage       = "sendMessage"
	EventSendGroupMessage  = "sendGroupMessage"
	EventJoinGroup         = "join-group"
	EventLoadGroupMessages = "loadGroupMessages"
	EventRefreshChatRooms  = "refreshChatRooms"
)

// Server-to-client events.
const (
	EventGetUsers        = "getUsers"
	EventGetMessage      = "getMessage"
	EventGetGroupMessage = "getGroupMessage"
	EventError           = "errorMessage"
)

// Message is one event on a client's WebSocket channel. Channel carries the
// broadcast channel the message belongs to ("group:<id>" for group traffic,
// empty for point-to-point events).
type Message struct {
	Channel   string         `json:"channel,omitempty"`
	Event     string         `json:"event"`
	Data      map[string]any `json:"data,omitempty"`
	ClientID  string         `json:"client_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// MessageHandler handles an incoming event from a connected client.
type MessageHandler func(clientID string, msg Message) error

// ClientInfo holds metadata about a connected WebSocket client.
type ClientInfo struct {
	ID          string    `json:"id"`
	ConnectedAt time.Time `json:"connected_at"`
	Channels    []string  `json:"channels"`
}

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	WriteJSON(v any) error
	ReadJSON(v any) error
	Close() error
}
