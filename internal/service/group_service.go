package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tabmate/tabmate/internal/models"
	"github.com/tabmate/tabmate/internal/storage"
)

var (
	ErrEmptyName     = errors.New("name can't be empty")
	ErrEmptyCurrency = errors.New("currency can't be empty")
)

// GroupService manages groups and their membership.
type GroupService struct {
	store storage.Store
}

// NewGroupService creates a GroupService with the given storage backend.
func NewGroupService(store storage.Store) *GroupService {
	return &GroupService{store: store}
}

// CreateGroup creates a new group.
func (s *GroupService) CreateGroup(ctx context.Context, name, currency string, members []string) (*models.Group, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if currency == "" {
		return nil, ErrEmptyCurrency
	}

	group := &models.Group{
		Name:     name,
		Currency: currency,
		Members:  members,
	}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	slog.Info("Group created", "group_id", group.ID, "name", group.Name, "members_count", len(group.Members))
	return group, nil
}

// GetGroup retrieves a group by ID.
func (s *GroupService) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	return s.store.GetGroup(ctx, groupID)
}

// ListGroups retrieves all groups.
func (s *GroupService) ListGroups(ctx context.Context) ([]*models.Group, error) {
	return s.store.ListGroups(ctx)
}

// AddMembers adds participants to an existing group.
func (s *GroupService) AddMembers(ctx context.Context, groupID string, memberIDs []string) error {
	if err := s.store.AddGroupMembers(ctx, groupID, memberIDs); err != nil {
		return err
	}
	slog.Info("Group members added", "group_id", groupID, "members", memberIDs)
	return nil
}
