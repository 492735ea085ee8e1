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

// Service wires the chat event contract onto the hub: it owns the presence
// registry, the room and group directories and the message router, and
// registers a handler per client event.
type Service struct {
	hub      *hub.Hub
	presence *hub.Registry
	store    store.Store
	rooms    *RoomDirectory
	groups   *GroupDirectory
	router   *Router
	logger   zerolog.Logger
}

// NewService builds the chat service and hooks it into the hub's event
// dispatch and disconnect callbacks.
func NewService(h *hub.Hub, st store.Store, logger zerolog.Logger) *Service {
	groups := NewGroupDirectory(st, logger)
	presence := hub.NewRegistry()
	s := &Service{
		hub:      h,
		presence: presence,
		store:    st,
		rooms:    NewRoomDirectory(st, logger),
		groups:   groups,
		router:   NewRouter(h, presence, st, groups, logger),
		logger:   logger.With().Str("component", "chat").Logger(),
	}

	s.register(types.EventAddUser, s.handleAddUser)
	s.register(types.EventSendMessage, s.handleSendMessage)
	s.register(types.EventSendGroupMessage, s.handleSendGroupMessage)
	s.register(types.EventJoinGroup, s.handleJoinGroup)
	s.register(types.EventLoadGroupMessages, s.handleLoadGroupMessages)
	s.register(types.EventRefreshChatRooms, s.handleRefresh)

	h.OnDisconnection(s.onDisconnect)
	return s
}

// Presence exposes the registry for callers outside the event path.
func (s *Service) Presence() *hub.Registry { return s.presence }

// Rooms exposes the direct-room directory.
func (s *Service) Rooms() *RoomDirectory { return s.rooms }

// Groups exposes the group directory.
func (s *Service) Groups() *GroupDirectory { return s.groups }

// Router exposes the message router.
func (s *Service) Router() *Router { return s.router }

// SetBridge attaches a cross-instance bridge to the router.
func (s *Service) SetBridge(b MessageBridge) { s.router.SetBridge(b) }

// register wraps a handler so failures go back to the offending client as a
// structured error event with a stable code, then bubble up for hub logging.
func (s *Service) register(event string, fn types.MessageHandler) {
	s.hub.RegisterHandler(event, func(clientID string, msg types.Message) error {
		err := fn(clientID, msg)
		if err != nil {
			s.hub.SendToClient(clientID, types.Message{
				Event: types.EventError,
				Data: map[string]any{
					"event": event,
					"code":  ErrorCode(err),
					"error": err.Error(),
				},
				Timestamp: time.Now(),
			})
		}
		return err
	})
}

func (s *Service) handleAddUser(clientID string, msg types.Message) error {
	userID := str(msg.Data, "userId")
	if userID == "" {
		return fmt.Errorf("addUser: missing userId")
	}

	superseded, replaced := s.presence.Register(userID, clientID)
	if replaced {
		// Last-connect-wins: the old connection stays open but is no
		// longer addressable. Its eventual disconnect is a presence no-op.
		s.logger.Info().Str("user_id", userID).Str("superseded", superseded).Msg("connection replaced")
	}
	s.logger.Debug().Str("user_id", userID).Str("client_id", clientID).Msg("user online")

	s.broadcastOnline()
	return nil
}

func (s *Service) handleSendMessage(clientID string, msg types.Message) error {
	senderID := str(msg.Data, "senderId")
	receiverID := str(msg.Data, "receiverId")
	roomID := str(msg.Data, "chatRoomId")
	if senderID == "" || receiverID == "" || roomID == "" {
		return fmt.Errorf("sendMessage: senderId, receiverId and chatRoomId are required")
	}

	_, err := s.router.SendDirect(context.Background(), senderID, receiverID, roomID,
		str(msg.Data, "message"), str(msg.Data, "imageUrl"))
	return err
}

func (s *Service) handleSendGroupMessage(clientID string, msg types.Message) error {
	senderID := str(msg.Data, "senderId")
	groupID := str(msg.Data, "groupChatRoomId")
	if senderID == "" || groupID == "" {
		return fmt.Errorf("sendGroupMessage: senderId and groupChatRoomId are required")
	}

	_, err := s.router.SendGroup(context.Background(), senderID, groupID,
		str(msg.Data, "message"), str(msg.Data, "imageUrl"))
	return err
}

// handleJoinGroup subscribes the connection to the group's broadcast channel
// so bridged messages from other instances reach it.
func (s *Service) handleJoinGroup(clientID string, msg types.Message) error {
	key := groupKey(msg.Data)
	if key == "" {
		return fmt.Errorf("join-group: missing group id")
	}
	if ok := s.hub.Subscribe(GroupChannel(key), clientID); !ok {
		return fmt.Errorf("join-group: client %s not connected", clientID)
	}
	return nil
}

// handleLoadGroupMessages answers a history request with a single response
// event to the requesting client only.
func (s *Service) handleLoadGroupMessages(clientID string, msg types.Message) error {
	groupID := groupKey(msg.Data)
	if groupID == "" {
		return fmt.Errorf("loadGroupMessages: missing group id")
	}

	history, err := s.store.MessagesForGroup(context.Background(), groupID)
	if err != nil {
		return fmt.Errorf("load group history: %w", err)
	}

	s.hub.SendToClient(clientID, types.Message{
		Event: types.EventLoadGroupMessages,
		Data: map[string]any{
			"groupChatRoomId": groupID,
			"messages":        history,
		},
		Timestamp: time.Now(),
	})
	return nil
}

func (s *Service) handleRefresh(clientID string, msg types.Message) error {
	userID := str(msg.Data, "userId")
	if userID == "" {
		return fmt.Errorf("refreshChatRooms: missing userId")
	}
	s.router.Refresh(userID, clientID)
	return nil
}

// onDisconnect evicts the presence entry owned by the closed connection.
// Superseded connections own no entry, so only the newest connection's close
// changes the online set.
func (s *Service) onDisconnect(clientID string) {
	userID, dropped := s.presence.Drop(clientID)
	if !dropped {
		return
	}
	s.logger.Debug().Str("user_id", userID).Str("client_id", clientID).Msg("user offline")
	s.broadcastOnline()
}

// broadcastOnline re-sends the complete online-identity list to every
// connected client. Every join and leave triggers this full-list broadcast.
func (s *Service) broadcastOnline() {
	s.hub.BroadcastAll(types.Message{
		Event:     types.EventGetUsers,
		Data:      map[string]any{"users": s.presence.Online()},
		Timestamp: time.Now(),
	})
}

// BroadcastToLocal delivers a bridged message from another instance to the
// local clients it concerns.
func (s *Service) BroadcastToLocal(msg types.Message) {
	switch msg.Event {
	case types.EventGetGroupMessage:
		s.hub.BroadcastChannel(msg.Channel, msg)
	case types.EventRefreshChatRooms:
		// The originator is connected to the other instance, so every
		// local client qualifies.
		s.hub.BroadcastAll(msg)
	default:
		s.logger.Debug().Str("event", msg.Event).Msg("ignoring bridged event")
	}
}

func str(data map[string]any, key string) string {
	v, _ := data[key].(string)
	return v
}

// groupKey reads the group identifier from an event payload. Clients send
// groupChatRoomId; groupName is accepted as a legacy alias.
func groupKey(data map[string]any) string {
	if id := str(data, "groupChatRoomId"); id != "" {
		return id
	}
	return str(data, "groupName")
}
