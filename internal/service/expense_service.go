// Package service wires the in-memory balance stores to durable storage.
// Each group has one ledger store; every mutation is applied there
// optimistically, then persisted, and the persistence result confirms or
// rejects the optimistic state. The service serializes access so the
// ledger stores keep their single-threaded contract.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/tabmate/tabmate/internal/calculator"
	"github.com/tabmate/tabmate/internal/ledger"
	"github.com/tabmate/tabmate/internal/models"
	"github.com/tabmate/tabmate/internal/money"
	"github.com/tabmate/tabmate/internal/storage"
)

// ExpenseService manages expenses, shares and balances.
type ExpenseService struct {
	mu      sync.Mutex
	store   storage.Store
	ledgers map[string]*ledger.Store
}

// NewExpenseService creates an ExpenseService with the given storage
// backend.
func NewExpenseService(store storage.Store) *ExpenseService {
	return &ExpenseService{
		store:   store,
		ledgers: make(map[string]*ledger.Store),
	}
}

// CreateExpenseRequest is the input for recording a new expense.
type CreateExpenseRequest struct {
	Description    string
	Amount         money.Money
	PayerID        string
	GroupID        string
	Split          calculator.SplitKind
	Percentages    map[string]decimal.Decimal
	Amounts        map[string]int64
	ParticipantIDs []string

	// PayerExternal allows a payer outside the participant set.
	PayerExternal bool
}

// ledgerFor returns the group's balance store, hydrating it from durable
// storage on first use. Callers hold s.mu.
func (s *ExpenseService) ledgerFor(ctx context.Context, groupID string) (*ledger.Store, error) {
	if l, ok := s.ledgers[groupID]; ok {
		return l, nil
	}
	expenses, err := s.store.ListExpensesByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load expenses: %w", err)
	}
	settlements, err := s.store.ListSettlementsByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load settlements: %w", err)
	}
	l := ledger.New()
	l.Load(expenses, settlements)
	s.ledgers[groupID] = l
	return l, nil
}

// confirmOrReject resolves an optimistic mutation against the persistence
// result. A persistence failure rolls the ledger back and surfaces as a
// remote rejection.
func confirmOrReject(p *ledger.Pending, persistErr error) error {
	if persistErr == nil {
		return p.Confirm()
	}
	p.Reject()
	return fmt.Errorf("%w: %s", ledger.ErrRemoteRejected, persistErr)
}

// CreateExpense validates the request, applies it optimistically and
// persists it. Participants not yet in the group are added to it, matching
// how people get pulled into a shared tab.
func (s *ExpenseService) CreateExpense(ctx context.Context, req CreateExpenseRequest) (*models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, err := s.store.GetGroup(ctx, req.GroupID)
	if err != nil {
		return nil, err
	}
	if req.Amount.Currency != group.Currency {
		return nil, fmt.Errorf("%w: expense %s in %s group", money.ErrCurrencyMismatch, req.Amount.Currency, group.Currency)
	}

	l, err := s.ledgerFor(ctx, req.GroupID)
	if err != nil {
		return nil, err
	}

	expense, pending, err := l.AddExpense(models.ExpenseProposal{
		Description:   req.Description,
		Amount:        req.Amount,
		PayerID:       req.PayerID,
		GroupID:       req.GroupID,
		Split:         req.Split,
		Params:        calculator.Params{Percentages: req.Percentages, Amounts: req.Amounts},
		Participants:  req.ParticipantIDs,
		PayerExternal: req.PayerExternal,
	})
	if err != nil {
		slog.Warn("CreateExpense rejected", "group_id", req.GroupID, "error", err)
		return nil, err
	}

	if err := confirmOrReject(pending, s.store.CreateExpense(ctx, expense)); err != nil {
		slog.Error("CreateExpense rollback", "expense_id", expense.ID, "error", err)
		return nil, err
	}

	s.autoAddParticipantsToGroup(ctx, group, req.ParticipantIDs, req.PayerID, req.PayerExternal)

	slog.Info("Expense created",
		"expense_id", expense.ID,
		"group_id", req.GroupID,
		"amount", expense.Amount.String(),
		"split", string(expense.Split),
	)
	return expense, nil
}

// DeleteExpense removes an expense everywhere. Edits are modeled as delete
// plus recreate, so this is also half of an update.
func (s *ExpenseService) DeleteExpense(ctx context.Context, expenseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return err
	}
	l, err := s.ledgerFor(ctx, expense.GroupID)
	if err != nil {
		return err
	}

	pending, err := l.RemoveExpense(expenseID)
	if err != nil {
		return err
	}
	if err := confirmOrReject(pending, s.store.DeleteExpense(ctx, expenseID)); err != nil {
		slog.Error("DeleteExpense rollback", "expense_id", expenseID, "error", err)
		return err
	}

	slog.Info("Expense deleted", "expense_id", expenseID, "group_id", expense.GroupID)
	return nil
}

// SettleShare marks one participant's share as paid. Idempotent.
func (s *ExpenseService) SettleShare(ctx context.Context, expenseID, participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return err
	}
	l, err := s.ledgerFor(ctx, expense.GroupID)
	if err != nil {
		return err
	}

	pending, err := l.SettleShare(expenseID, participantID)
	if err != nil {
		return err
	}
	if err := confirmOrReject(pending, s.store.SettleShare(ctx, expenseID, participantID)); err != nil {
		slog.Error("SettleShare rollback", "expense_id", expenseID, "participant_id", participantID, "error", err)
		return err
	}

	slog.Info("Share settled", "expense_id", expenseID, "participant_id", participantID)
	return nil
}

// RecordSettlement records a direct payment between two group members.
func (s *ExpenseService) RecordSettlement(ctx context.Context, settlement *models.Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, err := s.store.GetGroup(ctx, settlement.GroupID)
	if err != nil {
		return err
	}
	if settlement.Amount.Currency != group.Currency {
		return fmt.Errorf("%w: settlement %s in %s group", money.ErrCurrencyMismatch, settlement.Amount.Currency, group.Currency)
	}

	l, err := s.ledgerFor(ctx, settlement.GroupID)
	if err != nil {
		return err
	}

	pending, err := l.AddSettlement(settlement)
	if err != nil {
		return err
	}
	if err := confirmOrReject(pending, s.store.CreateSettlement(ctx, settlement)); err != nil {
		slog.Error("RecordSettlement rollback", "settlement_id", settlement.ID, "error", err)
		return err
	}

	slog.Info("Settlement recorded",
		"settlement_id", settlement.ID,
		"group_id", settlement.GroupID,
		"from", settlement.FromID,
		"to", settlement.ToID,
		"amount", settlement.Amount.String(),
	)
	return nil
}

// DeleteSettlement removes a recorded settlement, restoring the debt it
// had cleared.
func (s *ExpenseService) DeleteSettlement(ctx context.Context, groupID, settlementID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return err
	}
	l, err := s.ledgerFor(ctx, groupID)
	if err != nil {
		return err
	}

	pending, err := l.RemoveSettlement(settlementID)
	if err != nil {
		return err
	}
	if err := confirmOrReject(pending, s.store.DeleteSettlement(ctx, settlementID)); err != nil {
		slog.Error("DeleteSettlement rollback", "settlement_id", settlementID, "error", err)
		return err
	}

	slog.Info("Settlement deleted", "settlement_id", settlementID, "group_id", groupID)
	return nil
}

// GetExpense retrieves one expense.
func (s *ExpenseService) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.GetExpense(ctx, expenseID)
}

// ListExpenses retrieves a group's expenses, oldest first.
func (s *ExpenseService) ListExpenses(ctx context.Context, groupID string) ([]*models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.ledgerFor(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return l.Expenses(), nil
}

// ListSettlements retrieves a group's recorded settlements, oldest first.
func (s *ExpenseService) ListSettlements(ctx context.Context, groupID string) ([]*models.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.ledgerFor(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return l.Settlements(), nil
}

// Balances returns the group's derived ledger view. The view is memoized
// by the balance store and recomputed only after mutations.
func (s *ExpenseService) Balances(ctx context.Context, groupID string) (*calculator.LedgerView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	l, err := s.ledgerFor(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return l.View()
}

// SettleUpPlan suggests the transfers that clear all of the group's debts.
func (s *ExpenseService) SettleUpPlan(ctx context.Context, groupID string) ([]calculator.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	l, err := s.ledgerFor(ctx, groupID)
	if err != nil {
		return nil, err
	}
	view, err := l.View()
	if err != nil {
		return nil, err
	}
	return calculator.SettleUp(view), nil
}

// autoAddParticipantsToGroup adds any expense participants (and the payer)
// not already in the group. Failures are logged, not fatal: the expense is
// already committed.
func (s *ExpenseService) autoAddParticipantsToGroup(ctx context.Context, group *models.Group, participants []string, payerID string, payerExternal bool) {
	all := slices.Clone(participants)
	if !payerExternal && !slices.Contains(all, payerID) {
		all = append(all, payerID)
	}

	var newMembers []string
	for _, p := range all {
		if !slices.Contains(group.Members, p) {
			newMembers = append(newMembers, p)
		}
	}
	if len(newMembers) == 0 {
		return
	}

	if err := s.store.AddGroupMembers(ctx, group.ID, newMembers); err != nil {
		slog.Error("autoAddParticipantsToGroup failed", "group_id", group.ID, "error", err)
		return
	}
	slog.Info("Auto-added participants to group", "group_id", group.ID, "new_members", newMembers)
}
