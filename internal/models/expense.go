package models

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/tabmate/tabmate/internal/calculator"
	"github.com/tabmate/tabmate/internal/money"
)

var (
	ErrExpenseNotFound = errors.New("expense not found")
	ErrShareNotFound   = errors.New("share not found")
	ErrPayerNotInSplit = errors.New("payer must be a participant or marked external")
)

// Share is one participant's portion of an expense.
type Share struct {
	// ParticipantID identifies who owes this portion.
	ParticipantID string

	// Amount is the portion in the expense's currency. Never negative.
	Amount money.Money

	// Settled marks the share as paid back. A settled share is excluded
	// from outstanding balances but keeps its amount for history.
	Settled bool
}

// Expense is an immutable record of a cost and how it was divided.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// Description is what the expense was for. May be empty.
	Description string

	// Amount is the full cost, in minor units of a fixed currency.
	Amount money.Money

	// PayerID is who paid. The payer is usually among the participants;
	// an external payer covered the cost without owing a share.
	PayerID string

	// GroupID is the group this expense belongs to, empty for ungrouped.
	GroupID string

	// Split is the strategy the shares were resolved with.
	Split calculator.SplitKind

	// Shares partition Amount exactly, one entry per participant, in the
	// order the participants were supplied.
	Shares []Share

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64
}

// ExpenseProposal is the input for creating an expense.
type ExpenseProposal struct {
	Description  string
	Amount       money.Money
	PayerID      string
	GroupID      string
	Split        calculator.SplitKind
	Params       calculator.Params
	Participants []string

	// PayerExternal allows a payer outside the participant set. Such a
	// payer fronted the cost but carries no share of it.
	PayerExternal bool
}

// NewExpense validates a proposal and produces an immutable expense by
// resolving its split strategy. It mutates nothing beyond the record it
// returns.
func NewExpense(p ExpenseProposal) (*Expense, error) {
	if !p.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", calculator.ErrNonPositiveAmount, p.Amount)
	}
	if p.PayerID == "" {
		return nil, fmt.Errorf("%w: expense needs a payer", ErrEmptyParticipant)
	}
	if !p.PayerExternal && !slices.Contains(p.Participants, p.PayerID) {
		return nil, fmt.Errorf("%w: %s", ErrPayerNotInSplit, p.PayerID)
	}

	resolved, err := calculator.Resolve(p.Amount.Units, p.Participants, p.Split, p.Params)
	if err != nil {
		return nil, err
	}

	shares := make([]Share, len(resolved))
	for i, s := range resolved {
		shares[i] = Share{
			ParticipantID: s.Participant,
			Amount:        money.New(s.Units, p.Amount.Currency),
		}
	}

	return &Expense{
		ID:          uuid.New().String(),
		Description: p.Description,
		Amount:      p.Amount,
		PayerID:     p.PayerID,
		GroupID:     p.GroupID,
		Split:       p.Split,
		Shares:      shares,
		CreatedAt:   time.Now().Unix(),
	}, nil
}

// Share returns the share belonging to the given participant.
func (e *Expense) Share(participantID string) (Share, error) {
	for _, s := range e.Shares {
		if s.ParticipantID == participantID {
			return s, nil
		}
	}
	return Share{}, fmt.Errorf("%w: %s on expense %s", ErrShareNotFound, participantID, e.ID)
}

// WithShareSettled returns a copy of the expense with the participant's
// share marked settled. Settling an already-settled share is a no-op copy.
// The receiver is never modified; callers holding older snapshots stay
// valid.
func (e *Expense) WithShareSettled(participantID string) (*Expense, error) {
	idx := slices.IndexFunc(e.Shares, func(s Share) bool {
		return s.ParticipantID == participantID
	})
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s on expense %s", ErrShareNotFound, participantID, e.ID)
	}
	clone := *e
	clone.Shares = slices.Clone(e.Shares)
	clone.Shares[idx].Settled = true
	return &clone, nil
}

// ForBalance converts the expense into the aggregator's input shape.
func (e *Expense) ForBalance() calculator.ExpenseForBalance {
	shares := make([]calculator.ShareForBalance, len(e.Shares))
	for i, s := range e.Shares {
		shares[i] = calculator.ShareForBalance{
			Participant: s.ParticipantID,
			Units:       s.Amount.Units,
			Settled:     s.Settled,
		}
	}
	return calculator.ExpenseForBalance{
		PayerID:  e.PayerID,
		Units:    e.Amount.Units,
		Currency: e.Amount.Currency,
		Shares:   shares,
	}
}
