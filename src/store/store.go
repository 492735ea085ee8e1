// Package store owns the durable chat data: users, direct rooms, group
// rooms and their messages. The core only touches it through the Store
// interface, so the GORM-backed implementation and the in-memory one used
// in tests are interchangeable.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyMember = errors.New("already a member")
	ErrEmptyMessage  = errors.New("message needs a body or an image")
	ErrDuplicateUser = errors.New("username already taken")
	ErrSameUser      = errors.New("a direct room needs two distinct members")
	ErrRoomExists    = errors.New("a room for this pair already exists")
)

// PairKey is the canonical identity of an unordered member pair. Rooms carry
// it under a unique index so concurrent first-contact creates cannot produce
// two rooms for the same pair.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

// DefaultAvatarSeed builds the avatar URL assigned to a group when the
// creator does not supply one.
func DefaultAvatarSeed(name string) string {
	return fmt.Sprintf("https://api.dicebear.com/7.x/shapes/svg?seed=%s", name)
}

type User struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Username  string    `json:"username" gorm:"size:190;uniqueIndex;not null"`
	Avatar    string    `json:"avatar" gorm:"size:512"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Room is a two-party direct conversation. Members always holds exactly two
// distinct user ids.
type Room struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	PairKey   string    `json:"-" gorm:"size:80;uniqueIndex"`
	Members   []string  `json:"members" gorm:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Group struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	Name        string    `json:"name" gorm:"size:190;not null"`
	Description string    `json:"description" gorm:"size:512"`
	Avatar      string    `json:"avatar" gorm:"size:512"`
	CreatedBy   string    `json:"createdBy" gorm:"size:36;index"`
	Members     []string  `json:"members" gorm:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// HasMember reports whether userID belongs to the group.
func (g *Group) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m == userID {
			return true
		}
	}
	return false
}

type Message struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	ChatRoomID string    `json:"chatRoomId" gorm:"size:36;index"`
	Sender     string    `json:"sender" gorm:"size:36;index"`
	Body       string    `json:"message" gorm:"type:text"`
	ImageURL   string    `json:"imageUrl,omitempty" gorm:"size:512"`
	CreatedAt  time.Time `json:"createdAt" gorm:"index"`
}

type GroupMessage struct {
	ID              string    `json:"id" gorm:"primaryKey;size:36"`
	GroupChatRoomID string    `json:"groupChatRoomId" gorm:"size:36;index"`
	Sender          string    `json:"sender" gorm:"size:36;index"`
	Body            string    `json:"message" gorm:"type:text"`
	ImageURL        string    `json:"imageUrl,omitempty" gorm:"size:512"`
	CreatedAt       time.Time `json:"createdAt" gorm:"index"`
}

type UserStore interface {
	CreateUser(ctx context.Context, username, avatar string) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

type RoomStore interface {
	// RoomByMembers finds the direct room for the unordered pair {a, b}.
	RoomByMembers(ctx context.Context, a, b string) (*Room, error)
	// CreateRoom returns ErrRoomExists when the pair already has a room,
	// including when a concurrent create won the race.
	CreateRoom(ctx context.Context, a, b string) (*Room, error)
	// RoomsForUser lists a user's rooms, most recently updated first.
	RoomsForUser(ctx context.Context, userID string) ([]Room, error)
}

type GroupStore interface {
	CreateGroup(ctx context.Context, name, description, avatar, createdBy string) (*Group, error)
	GetGroup(ctx context.Context, id string) (*Group, error)
	// ListGroups returns every group, newest-created first.
	ListGroups(ctx context.Context) ([]Group, error)
	// GroupsForUser returns the user's groups, most recently updated first.
	GroupsForUser(ctx context.Context, userID string) ([]Group, error)
	// AddMember appends userID to the group. ErrAlreadyMember when the user
	// is in the member set, ErrNotFound when the group is absent.
	AddMember(ctx context.Context, groupID, userID string) (*Group, error)
}

type MessageStore interface {
	CreateMessage(ctx context.Context, roomID, sender, body, imageURL string) (*Message, error)
	MessagesForRoom(ctx context.Context, roomID string) ([]Message, error)
	CreateGroupMessage(ctx context.Context, groupID, sender, body, imageURL string) (*GroupMessage, error)
	MessagesForGroup(ctx context.Context, groupID string) ([]GroupMessage, error)
}

// Store bundles every persistence concern the chat core consumes.
type Store interface {
	UserStore
	RoomStore
	GroupStore
	MessageStore
}
