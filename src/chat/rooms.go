package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/zontana/chatwire/src/store"
)

// RoomDirectory resolves the canonical direct room for a pair of users.
type RoomDirectory struct {
	store  store.RoomStore
	logger zerolog.Logger
}

func NewRoomDirectory(st store.RoomStore, logger zerolog.Logger) *RoomDirectory {
	return &RoomDirectory{
		store:  st,
		logger: logger.With().Str("component", "rooms").Logger(),
	}
}

// ResolveOrCreate returns the direct room for the unordered pair {a, b},
// creating it on first use. Repeated calls for the same pair, in either
// order, return the same room; callers rely on this instead of checking
// existence themselves.
func (d *RoomDirectory) ResolveOrCreate(ctx context.Context, a, b string) (*store.Room, error) {
	room, err := d.store.RoomByMembers(ctx, a, b)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("resolve room: %w", err)
	}

	room, err = d.store.CreateRoom(ctx, a, b)
	if errors.Is(err, store.ErrRoomExists) {
		// Lost the first-contact race; the winner's room is visible now.
		return d.store.RoomByMembers(ctx, a, b)
	}
	if err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}
	d.logger.Info().Str("room_id", room.ID).Strs("members", room.Members).Msg("direct room created")
	return room, nil
}

// RoomsForUser lists a user's direct rooms, most recently active first.
func (d *RoomDirectory) RoomsForUser(ctx context.Context, userID string) ([]store.Room, error) {
	return d.store.RoomsForUser(ctx, userID)
}

// RoomOfPair returns the existing room for a pair without creating one.
func (d *RoomDirectory) RoomOfPair(ctx context.Context, a, b string) (*store.Room, error) {
	return d.store.RoomByMembers(ctx, a, b)
}
