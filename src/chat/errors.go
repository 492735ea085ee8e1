package chat

import (
	"errors"

	"github.com/zontana/chatwire/src/store"
)

// ErrNotMember rejects a group send from an identity outside the member set.
// The original system dropped these silently; surfacing a structured error
// keeps the authorization gate intact while letting clients branch on it.
var ErrNotMember = errors.New("sender is not a group member")

// ErrorCode maps an error to the stable code delivered to clients, so they
// can distinguish "already a member" from "group deleted" and so on.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	case errors.Is(err, store.ErrAlreadyMember):
		return "already_member"
	case errors.Is(err, ErrNotMember):
		return "not_member"
	case errors.Is(err, store.ErrEmptyMessage):
		return "empty_message"
	case errors.Is(err, store.ErrDuplicateUser):
		return "duplicate_user"
	case errors.Is(err, store.ErrSameUser):
		return "invalid_members"
	case errors.Is(err, store.ErrRoomExists):
		return "room_exists"
	default:
		return "persistence_failed"
	}
}
