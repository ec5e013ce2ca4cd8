// Package ledger holds the in-memory expense collection and its derived
// balance view. The store applies mutations optimistically: each mutation
// returns a pending handle that the persistence layer later confirms or
// rejects, and a rejection rolls the collection back to the snapshot taken
// before the mutation was applied.
//
// The store is not safe for concurrent use. All mutations and reads are
// expected on one logical thread of control; callers embedding it in a
// server serialize access themselves.
package ledger

import (
	"errors"
	"fmt"
	"slices"

	"github.com/tabmate/tabmate/internal/calculator"
	"github.com/tabmate/tabmate/internal/models"
	"github.com/tabmate/tabmate/internal/money"
)

// ErrRemoteRejected reports that the backing store refused an optimistic
// mutation and the collection was rolled back.
var ErrRemoteRejected = errors.New("mutation rejected by backing store")

// Store is the reactive container for expenses and settlements. Derived
// aggregates are memoized: mutations mark the view dirty and the next read
// recomputes it.
type Store struct {
	expenses    []*models.Expense
	settlements []*models.Settlement

	view      *calculator.LedgerView
	viewDirty bool

	pending []*Pending
	nextSeq uint64
}

// Pending tracks an optimistic mutation awaiting its confirm or rollback
// signal. The outcome is applied exactly once; later calls are no-ops, so a
// caller may stop caring about a handle without the store losing the
// eventual resolution.
//
// A confirmed mutation stays registered, snapshot and all, until every
// earlier mutation has resolved too: rejecting an earlier one restores
// state the later mutation was built on, so the later one is unwound with
// it and its handle reports the rejection from then on.
type Pending struct {
	store *Store
	seq   uint64

	// Collection snapshots taken before the mutation was applied. The
	// records themselves are immutable, so sharing them is safe.
	prevExpenses    []*models.Expense
	prevSettlements []*models.Settlement

	confirmed bool
	rejected  bool
}

// New returns an empty store.
func New() *Store {
	return &Store{viewDirty: true}
}

// currency returns the collection's currency, or "" when empty.
func (s *Store) currency() string {
	if len(s.expenses) > 0 {
		return s.expenses[0].Amount.Currency
	}
	if len(s.settlements) > 0 {
		return s.settlements[0].Amount.Currency
	}
	return ""
}

func (s *Store) checkCurrency(c string) error {
	if have := s.currency(); have != "" && have != c {
		return fmt.Errorf("%w: %s vs %s", money.ErrCurrencyMismatch, c, have)
	}
	return nil
}

// begin snapshots the collection and registers a pending mutation.
// Snapshots are shallow clones; records are never mutated in place.
func (s *Store) begin() *Pending {
	s.nextSeq++
	p := &Pending{
		store:           s,
		seq:             s.nextSeq,
		prevExpenses:    slices.Clone(s.expenses),
		prevSettlements: slices.Clone(s.settlements),
	}
	s.pending = append(s.pending, p)
	return p
}

// Load replaces the collection with records restored from durable storage.
// Loading is not optimistic: restored records were confirmed in an earlier
// session. Pending mutations, if any, are discarded.
func (s *Store) Load(expenses []*models.Expense, settlements []*models.Settlement) {
	s.expenses = slices.Clone(expenses)
	s.settlements = slices.Clone(settlements)
	s.pending = nil
	s.viewDirty = true
}

// AddExpense validates the proposal, resolves its split and appends the
// record optimistically. The returned record is immutable.
func (s *Store) AddExpense(proposal models.ExpenseProposal) (*models.Expense, *Pending, error) {
	if err := s.checkCurrency(proposal.Amount.Currency); err != nil {
		return nil, nil, err
	}
	expense, err := models.NewExpense(proposal)
	if err != nil {
		return nil, nil, err
	}
	p := s.begin()
	s.expenses = append(s.expenses, expense)
	s.viewDirty = true
	return expense, p, nil
}

// RemoveExpense removes the expense optimistically.
func (s *Store) RemoveExpense(id string) (*Pending, error) {
	idx := slices.IndexFunc(s.expenses, func(e *models.Expense) bool { return e.ID == id })
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrExpenseNotFound, id)
	}
	p := s.begin()
	s.expenses = slices.Delete(slices.Clone(s.expenses), idx, idx+1)
	s.viewDirty = true
	return p, nil
}

// SettleShare marks the participant's share on the expense as settled,
// optimistically. Settling an already-settled share is idempotent.
func (s *Store) SettleShare(expenseID, participantID string) (*Pending, error) {
	idx := slices.IndexFunc(s.expenses, func(e *models.Expense) bool { return e.ID == expenseID })
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrExpenseNotFound, expenseID)
	}
	settled, err := s.expenses[idx].WithShareSettled(participantID)
	if err != nil {
		return nil, err
	}
	p := s.begin()
	expenses := slices.Clone(s.expenses)
	expenses[idx] = settled
	s.expenses = expenses
	s.viewDirty = true
	return p, nil
}

// AddSettlement records a payment between two participants, optimistically.
// The payer and receiver must be distinct, non-empty IDs.
func (s *Store) AddSettlement(settlement *models.Settlement) (*Pending, error) {
	if settlement.FromID == "" || settlement.ToID == "" {
		return nil, fmt.Errorf("%w: settlement needs both payer and receiver", models.ErrEmptyParticipant)
	}
	if settlement.FromID == settlement.ToID {
		return nil, fmt.Errorf("%w: %s", models.ErrSelfSettlement, settlement.FromID)
	}
	if err := s.checkCurrency(settlement.Amount.Currency); err != nil {
		return nil, err
	}
	if !settlement.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", calculator.ErrNonPositiveAmount, settlement.Amount)
	}
	p := s.begin()
	s.settlements = append(s.settlements, settlement)
	s.viewDirty = true
	return p, nil
}

// RemoveSettlement removes the settlement optimistically.
func (s *Store) RemoveSettlement(id string) (*Pending, error) {
	idx := slices.IndexFunc(s.settlements, func(st *models.Settlement) bool { return st.ID == id })
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrSettlementNotFound, id)
	}
	p := s.begin()
	s.settlements = slices.Delete(slices.Clone(s.settlements), idx, idx+1)
	s.viewDirty = true
	return p, nil
}

// Expense returns the expense with the given ID.
func (s *Store) Expense(id string) (*models.Expense, error) {
	for _, e := range s.expenses {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", models.ErrExpenseNotFound, id)
}

// Expenses returns the current collection. The slice is a copy; the
// records are shared and immutable.
func (s *Store) Expenses() []*models.Expense {
	return slices.Clone(s.expenses)
}

// Settlements returns the current settlements.
func (s *Store) Settlements() []*models.Settlement {
	return slices.Clone(s.settlements)
}

// View returns the derived ledger view, recomputing it only when a
// mutation has invalidated the cached copy. The view always reflects the
// latest applied mutation, optimistic ones included.
func (s *Store) View() (*calculator.LedgerView, error) {
	if !s.viewDirty {
		return s.view, nil
	}
	expenses := make([]calculator.ExpenseForBalance, len(s.expenses))
	for i, e := range s.expenses {
		expenses[i] = e.ForBalance()
	}
	settlements := make([]calculator.SettlementForBalance, len(s.settlements))
	for i, st := range s.settlements {
		settlements[i] = st.ForBalance()
	}
	view, err := calculator.Aggregate(expenses, settlements)
	if err != nil {
		return nil, err
	}
	s.view = view
	s.viewDirty = false
	return s.view, nil
}

// PendingCount reports how many mutations await confirmation. Confirmed
// mutations blocked behind an earlier unresolved one are not counted.
func (s *Store) PendingCount() int {
	n := 0
	for _, p := range s.pending {
		if !p.confirmed {
			n++
		}
	}
	return n
}

// Confirm resolves the pending mutation as accepted. Idempotent; confirming
// a mutation that a rollback already unwound reports ErrRemoteRejected.
func (p *Pending) Confirm() error {
	if p.rejected {
		return ErrRemoteRejected
	}
	if p.confirmed {
		return nil
	}
	p.confirmed = true
	p.store.pruneConfirmed()
	return nil
}

// Reject resolves the pending mutation as refused and atomically restores
// the collection snapshot taken before it was applied. Mutations issued
// after the rejected one were built on rejected state; they are unwound
// with it, in reverse issuance order, and their handles report
// ErrRemoteRejected from then on, confirmed or not.
func (p *Pending) Reject() error {
	if p.rejected {
		return ErrRemoteRejected
	}
	if p.confirmed {
		return nil
	}
	s := p.store

	// Unwind every mutation from the newest down to p.
	for i := len(s.pending) - 1; i >= 0; i-- {
		q := s.pending[i]
		if q.seq < p.seq {
			continue
		}
		q.confirmed = false
		q.rejected = true
		s.pending = slices.Delete(s.pending, i, i+1)
	}
	s.expenses = p.prevExpenses
	s.settlements = p.prevSettlements
	s.viewDirty = true
	return ErrRemoteRejected
}

// pruneConfirmed discards snapshots that can no longer be rolled back to:
// a confirmed mutation's entry is dropped only once no earlier mutation is
// still unresolved.
func (s *Store) pruneConfirmed() {
	for len(s.pending) > 0 && s.pending[0].confirmed {
		s.pending = s.pending[1:]
	}
}
