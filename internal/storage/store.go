// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/tabmate/tabmate/internal/models"
)

var ErrGroupNotFound = errors.New("group not found")

// Store defines the interface for durable expense storage. The in-memory
// ledger treats an implementation as its confirm/rollback oracle: an
// optimistic mutation is confirmed when the corresponding call here
// succeeds and rolled back when it fails. Swapping backends (SQLite,
// PostgreSQL, ...) must not change the service layer.
type Store interface {
	// CreateExpense persists a new expense with its shares.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense retrieves an expense by ID, shares included.
	// Returns models.ErrExpenseNotFound if absent.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// ListExpensesByGroup retrieves a group's expenses, oldest first.
	ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error)

	// DeleteExpense removes an expense and its shares.
	DeleteExpense(ctx context.Context, expenseID string) error

	// SettleShare marks one share as settled. Idempotent.
	SettleShare(ctx context.Context, expenseID, participantID string) error

	// CreateGroup persists a new group, assigning ID and CreatedAt when
	// unset.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group by ID. Returns ErrGroupNotFound if
	// absent.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ListGroups retrieves all groups.
	ListGroups(ctx context.Context) ([]*models.Group, error)

	// AddGroupMembers adds participants to a group, skipping existing
	// members.
	AddGroupMembers(ctx context.Context, groupID string, memberIDs []string) error

	// CreateSettlement persists a recorded payment.
	CreateSettlement(ctx context.Context, settlement *models.Settlement) error

	// ListSettlementsByGroup retrieves a group's settlements, oldest
	// first.
	ListSettlementsByGroup(ctx context.Context, groupID string) ([]*models.Settlement, error)

	// DeleteSettlement removes a settlement by ID.
	// Returns models.ErrSettlementNotFound if absent.
	DeleteSettlement(ctx context.Context, settlementID string) error

	// Close releases any resources held by the store.
	Close() error
}
