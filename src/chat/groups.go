package chat

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/zontana/chatwire/src/store"
)

// GroupDirectory owns group lifecycle and membership invariants.
type GroupDirectory struct {
	store  store.GroupStore
	logger zerolog.Logger
}

func NewGroupDirectory(st store.GroupStore, logger zerolog.Logger) *GroupDirectory {
	return &GroupDirectory{
		store:  st,
		logger: logger.With().Str("component", "groups").Logger(),
	}
}

// Create makes a new group with the creator as its sole member.
func (d *GroupDirectory) Create(ctx context.Context, name, description, createdBy string) (*store.Group, error) {
	if name == "" {
		return nil, fmt.Errorf("group name is required")
	}
	g, err := d.store.CreateGroup(ctx, name, description, "", createdBy)
	if err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	d.logger.Info().Str("group_id", g.ID).Str("created_by", createdBy).Msg("group created")
	return g, nil
}

// Join adds userID to the group. store.ErrAlreadyMember and store.ErrNotFound
// propagate unchanged so callers can branch on them.
func (d *GroupDirectory) Join(ctx context.Context, groupID, userID string) (*store.Group, error) {
	g, err := d.store.AddMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	d.logger.Info().Str("group_id", groupID).Str("user_id", userID).Msg("member joined")
	return g, nil
}

// ListAll returns every group, newest first.
func (d *GroupDirectory) ListAll(ctx context.Context) ([]store.Group, error) {
	return d.store.ListGroups(ctx)
}

// ListForUser returns the groups userID belongs to, most recently active
// first.
func (d *GroupDirectory) ListForUser(ctx context.Context, userID string) ([]store.Group, error) {
	return d.store.GroupsForUser(ctx, userID)
}

// GetByID fetches a group; store.ErrNotFound when absent.
func (d *GroupDirectory) GetByID(ctx context.Context, groupID string) (*store.Group, error) {
	return d.store.GetGroup(ctx, groupID)
}
