package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store used by tests and local development.
// All methods copy on the way out so callers never alias internal state.
type MemoryStore struct {
	mu sync.RWMutex

	users    map[string]*User
	rooms    map[string]*Room
	groups   map[string]*Group
	messages map[string][]Message      // roomID -> ordered messages
	groupMsg map[string][]GroupMessage // groupID -> ordered messages

	seq int64 // insertion order tiebreaker for equal timestamps
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*User),
		rooms:    make(map[string]*Room),
		groups:   make(map[string]*Group),
		messages: make(map[string][]Message),
		groupMsg: make(map[string][]GroupMessage),
	}
}

func (s *MemoryStore) now() time.Time {
	s.seq++
	return time.Now().Add(time.Duration(s.seq) * time.Microsecond)
}

func (s *MemoryStore) CreateUser(_ context.Context, username, avatar string) (*User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return nil, ErrDuplicateUser
		}
	}
	now := s.now()
	u := &User{ID: uuid.New().String(), Username: username, Avatar: avatar, CreatedAt: now, UpdatedAt: now}
	s.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) ListUsers(_ context.Context) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) RoomByMembers(_ context.Context, a, b string) (*Room, error) {
	if a == b {
		return nil, ErrSameUser
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.rooms {
		if samePair(r.Members, a, b) {
			return copyRoom(r), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CreateRoom(_ context.Context, a, b string) (*Room, error) {
	if a == b {
		return nil, ErrSameUser
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rooms {
		if samePair(r.Members, a, b) {
			return nil, ErrRoomExists
		}
	}
	now := s.now()
	r := &Room{ID: uuid.New().String(), PairKey: PairKey(a, b), Members: []string{a, b}, CreatedAt: now, UpdatedAt: now}
	s.rooms[r.ID] = r
	return copyRoom(r), nil
}

func (s *MemoryStore) RoomsForUser(_ context.Context, userID string) ([]Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Room{}
	for _, r := range s.rooms {
		for _, m := range r.Members {
			if m == userID {
				out = append(out, *copyRoom(r))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *MemoryStore) CreateGroup(_ context.Context, name, description, avatar, createdBy string) (*Group, error) {
	if avatar == "" {
		avatar = DefaultAvatarSeed(name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	g := &Group{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		Avatar:      avatar,
		CreatedBy:   createdBy,
		Members:     []string{createdBy},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.groups[g.ID] = g
	return copyGroup(g), nil
}

func (s *MemoryStore) GetGroup(_ context.Context, id string) (*Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyGroup(g), nil
}

func (s *MemoryStore) ListGroups(_ context.Context) ([]Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, *copyGroup(g))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) GroupsForUser(_ context.Context, userID string) ([]Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Group{}
	for _, g := range s.groups {
		if g.HasMember(userID) {
			out = append(out, *copyGroup(g))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *MemoryStore) AddMember(_ context.Context, groupID, userID string) (*Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return nil, ErrNotFound
	}
	if g.HasMember(userID) {
		return nil, ErrAlreadyMember
	}
	g.Members = append(g.Members, userID)
	g.UpdatedAt = s.now()
	return copyGroup(g), nil
}

func (s *MemoryStore) CreateMessage(_ context.Context, roomID, sender, body, imageURL string) (*Message, error) {
	if body == "" && imageURL == "" {
		return nil, ErrEmptyMessage
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m := Message{
		ID:         uuid.New().String(),
		ChatRoomID: roomID,
		Sender:     sender,
		Body:       body,
		ImageURL:   imageURL,
		CreatedAt:  s.now(),
	}
	s.messages[roomID] = append(s.messages[roomID], m)
	if r, ok := s.rooms[roomID]; ok {
		r.UpdatedAt = m.CreatedAt
	}
	return &m, nil
}

func (s *MemoryStore) MessagesForRoom(_ context.Context, roomID string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages[roomID]))
	copy(out, s.messages[roomID])
	return out, nil
}

func (s *MemoryStore) CreateGroupMessage(_ context.Context, groupID, sender, body, imageURL string) (*GroupMessage, error) {
	if body == "" && imageURL == "" {
		return nil, ErrEmptyMessage
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m := GroupMessage{
		ID:              uuid.New().String(),
		GroupChatRoomID: groupID,
		Sender:          sender,
		Body:            body,
		ImageURL:        imageURL,
		CreatedAt:       s.now(),
	}
	s.groupMsg[groupID] = append(s.groupMsg[groupID], m)
	if g, ok := s.groups[groupID]; ok {
		g.UpdatedAt = m.CreatedAt
	}
	return &m, nil
}

func (s *MemoryStore) MessagesForGroup(_ context.Context, groupID string) ([]GroupMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]GroupMessage, len(s.groupMsg[groupID]))
	copy(out, s.groupMsg[groupID])
	return out, nil
}

func samePair(members []string, a, b string) bool {
	if len(members) != 2 {
		return false
	}
	return (members[0] == a && members[1] == b) || (members[0] == b && members[1] == a)
}

func copyRoom(r *Room) *Room {
	cp := *r
	cp.Members = append([]string(nil), r.Members...)
	return &cp
}

func copyGroup(g *Group) *Group {
	cp := *g
	cp.Members = append([]string(nil), g.Members...)
	return &cp
}
