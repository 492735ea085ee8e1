package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// roomMember is one participant row of a direct room.
type roomMember struct {
	ID     uint   `gorm:"primaryKey"`
	RoomID string `gorm:"size:36;uniqueIndex:idx_room_user;index"`
	UserID string `gorm:"size:36;uniqueIndex:idx_room_user;index"`
}

// groupMember is one membership row of a group room.
type groupMember struct {
	ID      uint   `gorm:"primaryKey"`
	GroupID string `gorm:"size:36;uniqueIndex:idx_group_user;index"`
	UserID  string `gorm:"size:36;uniqueIndex:idx_group_user;index"`
}

// GormStore persists chat data through GORM.
type GormStore struct {
	db *gorm.DB
}

// Open connects to MySQL and migrates the schema.
func Open(dsn string) (*GormStore, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	return NewGormStore(db)
}

// NewGormStore wraps an existing GORM connection and migrates the schema.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	err := db.AutoMigrate(
		&User{},
		&Room{},
		&roomMember{},
		&Group{},
		&groupMember{},
		&Message{},
		&GroupMessage{},
	)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) CreateUser(ctx context.Context, username, avatar string) (*User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	var count int64
	if err := s.db.WithContext(ctx).Model(&User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if count > 0 {
		return nil, ErrDuplicateUser
	}
	u := &User{ID: uuid.New().String(), Username: username, Avatar: avatar}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *GormStore) GetUser(ctx context.Context, id string) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err, "get user")
	}
	return &u, nil
}

func (s *GormStore) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := s.db.WithContext(ctx).Order("created_at desc").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *GormStore) RoomByMembers(ctx context.Context, a, b string) (*Room, error) {
	if a == b {
		return nil, ErrSameUser
	}
	var roomID string
	err := s.db.WithContext(ctx).
		Model(&roomMember{}).
		Select("room_id").
		Where("user_id IN ?", []string{a, b}).
		Group("room_id").
		Having("COUNT(DISTINCT user_id) = 2").
		Limit(1).
		Scan(&roomID).Error
	if err != nil {
		return nil, fmt.Errorf("find room by members: %w", err)
	}
	if roomID == "" {
		return nil, ErrNotFound
	}
	return s.loadRoom(ctx, roomID)
}

func (s *GormStore) CreateRoom(ctx context.Context, a, b string) (*Room, error) {
	if a == b {
		return nil, ErrSameUser
	}
	room := &Room{ID: uuid.New().String(), PairKey: PairKey(a, b), Members: []string{a, b}}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&Room{ID: room.ID, PairKey: room.PairKey}).Error; err != nil {
			return err
		}
		rows := []roomMember{
			{RoomID: room.ID, UserID: a},
			{RoomID: room.ID, UserID: b},
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		// The unique pair index turns a lost create race into a typed error
		// the caller resolves by re-reading the winner's room.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrRoomExists
		}
		return nil, fmt.Errorf("create room: %w", err)
	}
	return s.loadRoom(ctx, room.ID)
}

func (s *GormStore) RoomsForUser(ctx context.Context, userID string) ([]Room, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&roomMember{}).
		Where("user_id = ?", userID).
		Pluck("room_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("rooms for user: %w", err)
	}
	if len(ids) == 0 {
		return []Room{}, nil
	}
	var rooms []Room
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Order("updated_at desc").Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("rooms for user: %w", err)
	}
	for i := range rooms {
		if err := s.fillRoomMembers(ctx, &rooms[i]); err != nil {
			return nil, err
		}
	}
	return rooms, nil
}

func (s *GormStore) loadRoom(ctx context.Context, id string) (*Room, error) {
	var room Room
	if err := s.db.WithContext(ctx).First(&room, "id = ?", id).Error; err != nil {
		return nil, translate(err, "get room")
	}
	if err := s.fillRoomMembers(ctx, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *GormStore) fillRoomMembers(ctx context.Context, room *Room) error {
	var members []string
	err := s.db.WithContext(ctx).
		Model(&roomMember{}).
		Where("room_id = ?", room.ID).
		Order("id").
		Pluck("user_id", &members).Error
	if err != nil {
		return fmt.Errorf("room members: %w", err)
	}
	room.Members = members
	return nil
}

func (s *GormStore) CreateGroup(ctx context.Context, name, description, avatar, createdBy string) (*Group, error) {
	if avatar == "" {
		avatar = DefaultAvatarSeed(name)
	}
	g := &Group{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		Avatar:      avatar,
		CreatedBy:   createdBy,
		Members:     []string{createdBy},
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(g).Error; err != nil {
			return err
		}
		return tx.Create(&groupMember{GroupID: g.ID, UserID: createdBy}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	return g, nil
}

func (s *GormStore) GetGroup(ctx context.Context, id string) (*Group, error) {
	var g Group
	if err := s.db.WithContext(ctx).First(&g, "id = ?", id).Error; err != nil {
		return nil, translate(err, "get group")
	}
	if err := s.fillGroupMembers(ctx, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *GormStore) ListGroups(ctx context.Context) ([]Group, error) {
	var groups []Group
	if err := s.db.WithContext(ctx).Order("created_at desc").Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	for i := range groups {
		if err := s.fillGroupMembers(ctx, &groups[i]); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

func (s *GormStore) GroupsForUser(ctx context.Context, userID string) ([]Group, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&groupMember{}).
		Where("user_id = ?", userID).
		Pluck("group_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("groups for user: %w", err)
	}
	if len(ids) == 0 {
		return []Group{}, nil
	}
	var groups []Group
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Order("updated_at desc").Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("groups for user: %w", err)
	}
	for i := range groups {
		if err := s.fillGroupMembers(ctx, &groups[i]); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

func (s *GormStore) AddMember(ctx context.Context, groupID, userID string) (*Group, error) {
	g, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g.HasMember(userID) {
		return nil, ErrAlreadyMember
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&groupMember{GroupID: groupID, UserID: userID}).Error; err != nil {
			return err
		}
		// Touch updated_at so the joined group surfaces first in the
		// member's group list.
		return tx.Model(&Group{}).Where("id = ?", groupID).Update("updated_at", gorm.Expr("NOW()")).Error
	})
	if err != nil {
		return nil, fmt.Errorf("add member: %w", err)
	}
	return s.GetGroup(ctx, groupID)
}

func (s *GormStore) fillGroupMembers(ctx context.Context, g *Group) error {
	var members []string
	err := s.db.WithContext(ctx).
		Model(&groupMember{}).
		Where("group_id = ?", g.ID).
		Order("id").
		Pluck("user_id", &members).Error
	if err != nil {
		return fmt.Errorf("group members: %w", err)
	}
	g.Members = members
	return nil
}

func (s *GormStore) CreateMessage(ctx context.Context, roomID, sender, body, imageURL string) (*Message, error) {
	if body == "" && imageURL == "" {
		return nil, ErrEmptyMessage
	}
	m := &Message{
		ID:         uuid.New().String(),
		ChatRoomID: roomID,
		Sender:     sender,
		Body:       body,
		ImageURL:   imageURL,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		return tx.Model(&Room{}).Where("id = ?", roomID).Update("updated_at", gorm.Expr("NOW()")).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	return m, nil
}

func (s *GormStore) MessagesForRoom(ctx context.Context, roomID string) ([]Message, error) {
	var msgs []Message
	err := s.db.WithContext(ctx).
		Where("chat_room_id = ?", roomID).
		Order("created_at asc").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("messages for room: %w", err)
	}
	return msgs, nil
}

func (s *GormStore) CreateGroupMessage(ctx context.Context, groupID, sender, body, imageURL string) (*GroupMessage, error) {
	if body == "" && imageURL == "" {
		return nil, ErrEmptyMessage
	}
	m := &GroupMessage{
		ID:              uuid.New().String(),
		GroupChatRoomID: groupID,
		Sender:          sender,
		Body:            body,
		ImageURL:        imageURL,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		return tx.Model(&Group{}).Where("id = ?", groupID).Update("updated_at", gorm.Expr("NOW()")).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create group message: %w", err)
	}
	return m, nil
}

func (s *GormStore) MessagesForGroup(ctx context.Context, groupID string) ([]GroupMessage, error) {
	var msgs []GroupMessage
	err := s.db.WithContext(ctx).
		Where("group_chat_room_id = ?", groupID).
		Order("created_at asc").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("messages for group: %w", err)
	}
	return msgs, nil
}

func translate(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
