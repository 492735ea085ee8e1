package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/zontana/chatwire/src/hub"
	"github.com/zontana/chatwire/src/store"
	"github.com/zontana/chatwire/src/types"
)

// MessageBridge publishes messages to other server instances.
type MessageBridge interface {
	Publish(msg types.Message) error
	Available() bool
}

// GroupChannel names the broadcast channel carrying a group's live traffic.
func GroupChannel(groupID string) string {
	return "group:" + groupID
}

// Router persists outbound chat events and fans them out to the connected
// subset of their addressees. Live delivery is best-effort and at-most-once:
// recipients without a presence entry see the message on their next history
// fetch, never from a queue.
type Router struct {
	hub      *hub.Hub
	presence *hub.Registry
	messages store.MessageStore
	groups   *GroupDirectory
	bridge   MessageBridge
	logger   zerolog.Logger
}

func NewRouter(h *hub.Hub, presence *hub.Registry, messages store.MessageStore, groups *GroupDirectory, logger zerolog.Logger) *Router {
	return &Router{
		hub:      h,
		presence: presence,
		messages: messages,
		groups:   groups,
		logger:   logger.With().Str("component", "router").Logger(),
	}
}

// SetBridge attaches a cross-instance message bridge.
func (r *Router) SetBridge(b MessageBridge) {
	r.bridge = b
}

// SendDirect persists a direct message, then delivers it to the receiver's
// live connection if one is registered. Persistence failure aborts the send
// with no fan-out; an offline receiver is an expected state, not an error.
// The sender gets the persisted message back as the return value, not over
// the live channel.
func (r *Router) SendDirect(ctx context.Context, senderID, receiverID, roomID, body, imageURL string) (*store.Message, error) {
	msg, err := r.messages.CreateMessage(ctx, roomID, senderID, body, imageURL)
	if err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}

	clientID, online := r.presence.Lookup(receiverID)
	if !online {
		r.logger.Debug().Str("receiver", receiverID).Str("room_id", roomID).Msg("receiver offline, live delivery skipped")
		return msg, nil
	}

	delivered := r.hub.SendToClient(clientID, types.Message{
		Event: types.EventGetMessage,
		Data: map[string]any{
			"senderId":   senderID,
			"message":    body,
			"chatRoomId": roomID,
			"imageUrl":   imageURL,
		},
		Timestamp: msg.CreatedAt,
	})
	if !delivered {
		r.logger.Warn().Str("receiver", receiverID).Msg("direct delivery dropped")
	}
	return msg, nil
}

// SendGroup checks membership, persists the message, then fans it out to
// every member with a live connection, the sender included. Delivery is
// isolated per recipient: one full buffer drops only that copy.
func (r *Router) SendGroup(ctx context.Context, senderID, groupID, body, imageURL string) (*store.GroupMessage, error) {
	group, err := r.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.HasMember(senderID) {
		return nil, fmt.Errorf("group %s: %w", groupID, ErrNotMember)
	}

	msg, err := r.messages.CreateGroupMessage(ctx, groupID, senderID, body, imageURL)
	if err != nil {
		return nil, fmt.Errorf("persist group message: %w", err)
	}

	payload := types.Message{
		Channel: GroupChannel(groupID),
		Event:   types.EventGetGroupMessage,
		Data: map[string]any{
			"sender":          senderID,
			"message":         body,
			"groupChatRoomId": groupID,
			"imageUrl":        imageURL,
			"createdAt":       msg.CreatedAt,
		},
		Timestamp: msg.CreatedAt,
	}

	for _, member := range group.Members {
		clientID, online := r.presence.Lookup(member)
		if !online {
			continue
		}
		if ok := r.hub.SendToClient(clientID, payload); !ok {
			r.logger.Warn().Str("member", member).Str("group_id", groupID).Msg("group delivery dropped")
		}
	}

	r.publish(payload)
	return msg, nil
}

// Refresh tells every other connected client to refetch its room list. Sent
// after the first message in a brand-new direct room so the counterpart's
// list updates without polling. Deliberately a broadcast, not a targeted
// send: the fan-out is O(connections) and visible here.
func (r *Router) Refresh(originUserID, originClientID string) {
	msg := types.Message{
		Event:     types.EventRefreshChatRooms,
		Data:      map[string]any{"userId": originUserID},
		Timestamp: time.Now(),
	}
	r.hub.BroadcastExcept(originClientID, msg)
	r.publish(msg)
}

// publish forwards a message to other instances when a bridge is attached.
func (r *Router) publish(msg types.Message) {
	if r.bridge == nil || !r.bridge.Available() {
		return
	}
	if err := r.bridge.Publish(msg); err != nil {
		r.logger.Error().Err(err).Msg("bridge publish failed")
	}
}
