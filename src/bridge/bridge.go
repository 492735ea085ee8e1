package bridge

import "github.com/zontana/chatwire/src/types"

// Bridge defines the interface for cross-instance message broadcasting.
// Implementations relay chat events between multiple server instances so
// group messages and refresh signals reach clients connected elsewhere.
type Bridge interface {
	// Publish sends a message to all other instances via the bridge.
	Publish(msg types.Message) error

	// Start begins listening for messages from other instances.
	Start() error

	// Stop shuts down the bridge connection.
	Stop() error

	// Available reports whether the bridge is connected and operational.
	Available() bool
}

// BroadcastTarget receives messages relayed from other instances. The chat
// service implements it and routes by event.
type BroadcastTarget interface {
	BroadcastToLocal(msg types.Message)
}
